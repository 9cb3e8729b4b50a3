package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lifebalance/internal/log"
	"lifebalance/internal/metrics"
	"lifebalance/internal/section"
	"lifebalance/internal/session"
	"lifebalance/internal/shell"
	"lifebalance/internal/storage/memory"
)

// flakyStore fails every write while broken is set.
type flakyStore struct {
	*memory.Store
	broken atomic.Bool
}

func (f *flakyStore) SetItem(ctx context.Context, ns, key, value string) error {
	if f.broken.Load() {
		return errors.New("disk full")
	}
	return f.Store.SetItem(ctx, ns, key, value)
}

type testServer struct {
	srv    *Server
	store  *flakyStore
	cookie *http.Cookie
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	store := &flakyStore{Store: memory.New()}
	now := func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	registry := shell.NewRegistry(store, shell.RegistryConfig{
		Logger: log.Discard(),
		Deps: shell.Deps{
			Section: section.Deps{Now: now, Logger: log.Discard()},
			Session: session.Options{Delay: -1, Now: now, Logger: log.Discard()},
		},
	})
	t.Cleanup(registry.Close)

	srv, err := NewServer(Options{
		Addr:               ":0",
		Registry:           registry,
		Devices:            session.NewDeviceIssuer("test-secret-0123456789", time.Hour),
		Metrics:            metrics.New(),
		Store:              store,
		Logger:             log.Discard(),
		RateLimitPerMinute: rateLimit,
		Now:                now,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{srv: srv, store: store}
}

// do sends a request as the test's device, adopting any device cookie the
// server issues.
func (ts *testServer) do(t *testing.T, method, path, body string, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	if ts.cookie != nil {
		req.AddCookie(ts.cookie)
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.DeviceCookie {
			ts.cookie = c
		}
	}
	return rr
}

func (ts *testServer) login(t *testing.T) {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/login", "email=ana%40example.com&password=secret", true)
	if rr.Code != http.StatusOK || rr.Header().Get("HX-Redirect") != "/" {
		t.Fatalf("login status=%d redirect=%q", rr.Code, rr.Header().Get("HX-Redirect"))
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, 0)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(t, http.MethodGet, path, "", false)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s content type = %q", path, ct)
		}
	}
	if ts.cookie != nil {
		t.Error("probes must not issue device cookies")
	}
}

func TestIndexIssuesDeviceCookie(t *testing.T) {
	ts := newTestServer(t, 0)

	rr := ts.do(t, http.MethodGet, "/", "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	if ts.cookie == nil || !ts.cookie.HttpOnly {
		t.Fatalf("expected an HttpOnly device cookie, got %+v", ts.cookie)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<!doctype html>") || !strings.Contains(body, `action="/login"`) {
		t.Errorf("logged-out index should render the full login page")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing security headers")
	}

	first := ts.cookie.Value
	rr = ts.do(t, http.MethodGet, "/", "", false)
	if len(rr.Result().Cookies()) != 0 {
		t.Error("a valid device cookie must be reused")
	}
	if ts.cookie.Value != first {
		t.Error("device cookie changed")
	}
}

func TestTamperedCookieGetsNewDevice(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.do(t, http.MethodGet, "/", "", false)
	ts.login(t)

	ts.cookie = &http.Cookie{Name: session.DeviceCookie, Value: ts.cookie.Value + "x"}
	rr := ts.do(t, http.MethodGet, "/", "", true)
	if strings.Contains(rr.Body.String(), "Olá, ana") {
		t.Error("tampered cookie must not reach the logged-in workspace")
	}
	if strings.HasSuffix(ts.cookie.Value, "x") {
		t.Error("expected a freshly issued cookie")
	}
}

func TestLoginFlow(t *testing.T) {
	ts := newTestServer(t, 0)

	rr := ts.do(t, http.MethodPost, "/login", "email=ana%40example.com&password=", true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("incomplete login status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), session.MsgMissingFields) {
		t.Error("incomplete login should show the missing-fields message")
	}
	if !strings.Contains(rr.Body.String(), `value="ana@example.com"`) {
		t.Error("email should be kept in the form")
	}

	if trigger := rr.Header().Get("HX-Trigger"); strings.Contains(trigger, "logged_in") {
		t.Error("failed login must not announce a session")
	}

	ts.login(t)

	rr = ts.do(t, http.MethodGet, "/", "", true)
	if !strings.Contains(rr.Body.String(), "Olá, ana!") {
		t.Errorf("dashboard should greet the user: %s", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "<!doctype html>") {
		t.Error("htmx requests should get the fragment only")
	}

	rr = ts.do(t, http.MethodGet, "/login", "", false)
	if rr.Code != http.StatusSeeOther {
		t.Errorf("login form while logged in status=%d, want 303", rr.Code)
	}
}

func TestRegisterWithoutHTMXRedirects(t *testing.T) {
	ts := newTestServer(t, 0)

	rr := ts.do(t, http.MethodPost, "/register", "name=Ana+Lima&email=ana%40example.com&password=pw", false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("register status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
	rr = ts.do(t, http.MethodGet, "/", "", false)
	if !strings.Contains(rr.Body.String(), "Olá, Ana Lima!") || !strings.Contains(rr.Body.String(), ">AL<") {
		t.Error("dashboard should show the registered name and initials")
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.do(t, http.MethodGet, "/", "", false)
	ts.login(t)
	ts.do(t, http.MethodPost, "/sections/financial/compose", "", true)

	rr := ts.do(t, http.MethodPost, "/logout", "", true)
	if rr.Header().Get("HX-Redirect") != "/" {
		t.Fatalf("logout redirect=%q", rr.Header().Get("HX-Redirect"))
	}
	rr = ts.do(t, http.MethodGet, "/", "", true)
	if !strings.Contains(rr.Body.String(), `action="/login"`) {
		t.Error("after logout the login form should be shown")
	}

	ts.login(t)
	rr = ts.do(t, http.MethodGet, "/sections/financial", "", true)
	if strings.Contains(rr.Body.String(), "Novo registro financeiro") {
		t.Error("logout should close open forms")
	}
}

func TestSectionsRequireLogin(t *testing.T) {
	ts := newTestServer(t, 0)

	rr := ts.do(t, http.MethodPost, "/sections/financial/compose", "", false)
	if rr.Code != http.StatusSeeOther {
		t.Errorf("compose while logged out status=%d, want 303", rr.Code)
	}
	rr = ts.do(t, http.MethodPost, "/quick/add-expense", "", true)
	if rr.Header().Get("HX-Redirect") != "/" {
		t.Errorf("quick action while logged out should redirect, got %d", rr.Code)
	}
}

func TestSectionNavigation(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.do(t, http.MethodGet, "/", "", false)
	ts.login(t)

	tests := []struct {
		path string
		want string
	}{
		{"/sections/financial", "Despesas por categoria"},
		{"/sections/professional", "Atividades"},
		{"/sections/wellness", "Práticas recentes"},
		{"/sections/health", "Esta seção estará disponível em breve."},
		{"/sections/nowhere", "Ações rápidas"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := ts.do(t, http.MethodGet, tt.path, "", true)
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}

	for _, path := range []string{"/sections/health/compose", "/sections/dashboard/records"} {
		rr := ts.do(t, http.MethodPost, path, "", true)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s status=%d, want 404", path, rr.Code)
		}
	}
}

func TestComposeToggles(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.do(t, http.MethodGet, "/", "", false)
	ts.login(t)

	rr := ts.do(t, http.MethodPost, "/sections/professional/compose", "", true)
	if !strings.Contains(rr.Body.String(), "Nova atividade profissional") {
		t.Fatal("first compose should open the form")
	}
	rr = ts.do(t, http.MethodPost, "/sections/professional/compose", "", true)
	if strings.Contains(rr.Body.String(), "Nova atividade profissional") {
		t.Error("second compose should close the form")
	}

	ts.do(t, http.MethodPost, "/sections/professional/compose", "", true)
	rr = ts.do(t, http.MethodPost, "/sections/professional/cancel", "", true)
	if strings.Contains(rr.Body.String(), "Nova atividade profissional") {
		t.Error("cancel should close the form")
	}
}

func TestFinancialSubmit(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.do(t, http.MethodGet, "/", "", false)
	ts.login(t)

	rr := ts.do(t, http.MethodPost, "/sections/financial/records",
		"type=expense&amount=abc&description=&category=Food&date=2024-03-10", true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid submit status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Número inválido", "Campo obrigatório", `value="Food"`} {
		if !strings.Contains(body, want) {
			t.Errorf("invalid submit body missing %q", want)
		}
	}

	rr = ts.do(t, http.MethodPost, "/sections/financial/records",
		"type=expense&amount=12%2C5&description=Lunch&category=Food&date=2024-03-10", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("valid submit status=%d body=%s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, want := range []string{`"record:created"`, `"section":"financial"`, `"type":"expense"`} {
		if !strings.Contains(trigger, want) {
			t.Errorf("HX-Trigger missing %q: %s", want, trigger)
		}
	}
	body = rr.Body.String()
	if !strings.Contains(body, "Lunch") || !strings.Contains(body, "R$12,50") {
		t.Error("new record should be listed with its formatted amount")
	}
	if strings.Contains(body, "Novo registro financeiro") {
		t.Error("form should close after a successful submit")
	}

	rr = ts.do(t, http.MethodGet, "/sections/financial?filter=income", "", true)
	if strings.Contains(rr.Body.String(), "Lunch") {
		t.Error("income filter should hide expenses")
	}
	rr = ts.do(t, http.MethodGet, "/sections/financial?filter=bogus", "", true)
	if !strings.Contains(rr.Body.String(), "Lunch") {
		t.Error("unknown filter should show everything")
	}

	rr = ts.do(t, http.MethodGet, "/", "", true)
	if !strings.Contains(rr.Body.String(), "R$12,50") {
		t.Error("dashboard should include the month's spending")
	}
}

func TestWellnessDraftTogglesDuration(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.do(t, http.MethodGet, "/", "", false)
	ts.login(t)

	rr := ts.do(t, http.MethodPost, "/sections/wellness/compose", "", true)
	if !strings.Contains(rr.Body.String(), `name="duration"`) {
		t.Fatal("meditation drafts should show the duration input")
	}

	rr = ts.do(t, http.MethodPost, "/sections/wellness/draft", "type=gratitude&content=Family&mood=8", true)
	if strings.Contains(rr.Body.String(), `name="duration"`) {
		t.Error("gratitude drafts should hide the duration input")
	}
	if !strings.Contains(rr.Body.String(), "Family") {
		t.Error("draft content should be kept")
	}

	rr = ts.do(t, http.MethodPost, "/sections/wellness/records", "type=gratitude&content=Family&mood=8", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("submit status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "😊") {
		t.Error("mood 8 should render its emoji")
	}
}

func TestSubmitFromBrowsingOpensForm(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.do(t, http.MethodGet, "/", "", false)
	ts.login(t)

	rr := ts.do(t, http.MethodPost, "/sections/professional/records",
		"type=course&title=Go&description=Concurrency&category=Tech&progress=40", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "40%") {
		t.Error("new activity should be listed with its progress")
	}
}

func TestQuickActions(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.do(t, http.MethodGet, "/", "", false)
	ts.login(t)

	rr := ts.do(t, http.MethodPost, "/quick/add-expense", "", true)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Novo registro financeiro") {
		t.Errorf("add-expense should open the financial form, status=%d", rr.Code)
	}
	rr = ts.do(t, http.MethodPost, "/quick/add-meditation", "", true)
	if !strings.Contains(rr.Body.String(), "Nova prática") {
		t.Error("add-meditation should open the wellness form")
	}
	rr = ts.do(t, http.MethodPost, "/quick/add-friend", "", true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown quick action status=%d, want 404", rr.Code)
	}
}

func TestStorageFailureKeepsDraft(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.do(t, http.MethodGet, "/", "", false)
	ts.login(t)

	ts.store.broken.Store(true)
	rr := ts.do(t, http.MethodPost, "/sections/financial/records",
		"type=income&amount=100&description=Salary&category=Work&date=2024-03-01", true)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rr.Code)
	}

	ts.store.broken.Store(false)
	rr = ts.do(t, http.MethodGet, "/sections/financial", "", true)
	body := rr.Body.String()
	if !strings.Contains(body, "Novo registro financeiro") || !strings.Contains(body, `value="Salary"`) {
		t.Error("failed submit should leave the form open with its draft")
	}
	if strings.Contains(body, "<strong>Salary</strong>") {
		t.Error("failed submit must not list the record")
	}
}

func TestRateLimitOnPosts(t *testing.T) {
	ts := newTestServer(t, 2)
	ts.do(t, http.MethodGet, "/", "", false)

	for i := 0; i < 2; i++ {
		if rr := ts.do(t, http.MethodPost, "/login", "email=&password=", true); rr.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d limited too early", i+1)
		}
	}
	rr := ts.do(t, http.MethodPost, "/login", "email=&password=", true)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Error("missing Retry-After")
	}
	if rr := ts.do(t, http.MethodGet, "/", "", true); rr.Code != http.StatusOK {
		t.Errorf("GET should not be limited, status=%d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.do(t, http.MethodGet, "/", "", false)
	ts.login(t)

	rr := ts.do(t, http.MethodGet, "/metrics", "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "lifebalance_") {
		t.Error("metrics should expose lifebalance series")
	}
}

func TestStaticAssets(t *testing.T) {
	ts := newTestServer(t, 0)
	rr := ts.do(t, http.MethodGet, "/static/app.js", "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
	if rr.Header().Get("Cache-Control") != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}
}
