package persist

import (
	"context"
	"errors"
	"testing"

	"lifebalance/internal/storage/memory"
)

type record struct {
	ID   string `json:"id"`
	Note string `json:"note"`
}

// failingKV wraps the memory store and fails writes on demand.
type failingKV struct {
	*memory.Store
	failWrites bool
}

var errQuota = errors.New("quota exceeded")

func (f *failingKV) SetItem(ctx context.Context, ns, key, value string) error {
	if f.failWrites {
		return errQuota
	}
	return f.Store.SetItem(ctx, ns, key, value)
}

func TestValueRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	v, err := Open(ctx, kv, "dev", "wellness-records", []record{})
	if err != nil {
		t.Fatal(err)
	}
	want := []record{{ID: "2", Note: "b"}, {ID: "1", Note: "a"}}
	if err := v.Set(ctx, want); err != nil {
		t.Fatal(err)
	}

	// A fresh cell over the same store simulates a reload.
	again, err := Open(ctx, kv, "dev", "wellness-records", []record{})
	if err != nil {
		t.Fatal(err)
	}
	got := again.Get()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestValueCorruptBlobYieldsDefault(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	_ = kv.SetItem(ctx, "dev", "financial-records", "{not json")

	var hooked string
	v, err := Open(ctx, kv, "dev", "financial-records", []record{}, WithCorruptHook(func(key string, _ error) {
		hooked = key
	}))
	if err != nil {
		t.Fatalf("corruption must not surface as an error: %v", err)
	}
	if got := v.Get(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty default, got %#v", got)
	}
	if hooked != "financial-records" {
		t.Fatalf("corrupt hook not called, got %q", hooked)
	}

	// The bad blob is left alone until the next write.
	raw, _, _ := kv.GetItem(ctx, "dev", "financial-records")
	if raw != "{not json" {
		t.Fatalf("blob rewritten on open: %q", raw)
	}
	if err := v.Set(ctx, []record{{ID: "1"}}); err != nil {
		t.Fatal(err)
	}
	raw, _, _ = kv.GetItem(ctx, "dev", "financial-records")
	if raw != `[{"id":"1","note":""}]` {
		t.Fatalf("unexpected blob %q", raw)
	}
}

func TestValueWriteFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{Store: memory.New()}

	v, err := Open(ctx, kv, "dev", "k", 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Set(ctx, 2); err != nil {
		t.Fatal(err)
	}

	kv.failWrites = true
	if err := v.Set(ctx, 3); !errors.Is(err, errQuota) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if v.Get() != 2 {
		t.Fatalf("cell changed despite failed write: %d", v.Get())
	}
}

func TestValueSubscribeAndRemove(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	v, _ := Open[*record](ctx, kv, "dev", "lifeBalanceUser", nil)

	var seen []*record
	cancel := v.Subscribe(func(r *record) { seen = append(seen, r) })

	if err := v.Set(ctx, &record{ID: "u1"}); err != nil {
		t.Fatal(err)
	}
	if err := v.Remove(ctx); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0].ID != "u1" || seen[1] != nil {
		t.Fatalf("unexpected notifications %+v", seen)
	}
	if _, ok, _ := kv.GetItem(ctx, "dev", "lifeBalanceUser"); ok {
		t.Fatal("key should be removed")
	}

	cancel()
	_ = v.Set(ctx, &record{ID: "u2"})
	if len(seen) != 2 {
		t.Fatalf("cancelled subscriber still notified")
	}
}

func TestCollectionPrependInvariant(t *testing.T) {
	ctx := context.Background()
	c, err := OpenCollection[record](ctx, memory.New(), "dev", "professional-records")
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range []string{"a", "b", "c", "d"} {
		if err := c.Prepend(ctx, record{ID: id}); err != nil {
			t.Fatal(err)
		}
		if c.Len() != i+1 {
			t.Fatalf("expected len %d, got %d", i+1, c.Len())
		}
		if c.All()[0].ID != id {
			t.Fatalf("newest record not at index 0: %+v", c.All())
		}
	}

	all := c.All()
	all[0].ID = "mutated"
	if c.All()[0].ID != "d" {
		t.Fatal("All must return a copy")
	}
}

func TestCollectionPrependFailureLeavesCollection(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{Store: memory.New()}
	c, _ := OpenCollection[record](ctx, kv, "dev", "k")
	_ = c.Prepend(ctx, record{ID: "a"})

	kv.failWrites = true
	if err := c.Prepend(ctx, record{ID: "b"}); err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 1 || c.All()[0].ID != "a" {
		t.Fatalf("unexpected collection %+v", c.All())
	}
}
