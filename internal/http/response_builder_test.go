package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder(t *testing.T) {
	tests := []struct {
		name        string
		builder     *HTMXResponseBuilder
		wantStatus  int
		wantBody    string
		wantType    string
		wantHeaders map[string]string
		wantTrigger []string
	}{
		{
			name:       "html body",
			builder:    NewHTMXResponse().BodyHTML("test"),
			wantStatus: http.StatusOK,
			wantBody:   "test",
			wantType:   "text/html; charset=utf-8",
		},
		{
			name: "record saved",
			builder: NewHTMXResponse().
				TriggerRecordCreated("financial", "rec-1", "expense").
				TriggerFormReset().
				TriggerSuccessNotification("Registro salvo"),
			wantStatus: http.StatusOK,
			wantTrigger: []string{
				`"record:created"`, `"form:reset"`, `"show-notification"`,
				`"section":"financial"`, `"id":"rec-1"`, `"type":"success"`,
			},
		},
		{
			name:        "session redirect",
			builder:     NewHTMXResponse().TriggerSessionChanged("logged_in").Redirect("/"),
			wantStatus:  http.StatusOK,
			wantHeaders: map[string]string{"HX-Redirect": "/"},
			wantTrigger: []string{`"state":"logged_in"`},
		},
		{
			name:       "validation status without body",
			builder:    NewHTMXResponse().Status(http.StatusUnprocessableEntity),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:        "server error toast",
			builder:     InternalServerError("Something broke").TriggerErrorNotification("Something broke"),
			wantStatus:  http.StatusInternalServerError,
			wantBody:    `<div class="error">Something broke</div>`,
			wantType:    "text/html; charset=utf-8",
			wantTrigger: []string{`"type":"error"`, `"duration":5000`},
		},
		{
			name:       "bad request",
			builder:    BadRequestError("Invalid input"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `<div class="error">Invalid input</div>`,
			wantType:   "text/html; charset=utf-8",
		},
		{
			name:       "not found",
			builder:    NotFoundError("Resource not found"),
			wantStatus: http.StatusNotFound,
			wantBody:   `<div class="error">Resource not found</div>`,
			wantType:   "text/html; charset=utf-8",
		},
		{
			name:       "escaped message",
			builder:    BadRequestError("<script>alert('xss')</script>"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `<div class="error">&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;</div>`,
			wantType:   "text/html; charset=utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if got := w.Header().Get("Content-Type"); got != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
			for name, want := range tt.wantHeaders {
				if got := w.Header().Get(name); got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
			trigger := w.Header().Get("HX-Trigger")
			if len(tt.wantTrigger) == 0 && trigger != "" {
				t.Errorf("unexpected HX-Trigger %s", trigger)
			}
			for _, part := range tt.wantTrigger {
				if !strings.Contains(trigger, part) {
					t.Errorf("HX-Trigger missing %q: %s", part, trigger)
				}
			}
		})
	}
}
