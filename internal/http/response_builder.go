package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// HTMXResponseBuilder collects the status, htmx events and body of a
// response. Events end up in a single HX-Trigger header.
type HTMXResponseBuilder struct {
	status   int
	triggers map[string]any
	redirect string
	body     []byte
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{status: http.StatusOK, triggers: map[string]any{}}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

func (b *HTMXResponseBuilder) trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerRecordCreated announces a new record so other parts of the page can
// refresh.
func (b *HTMXResponseBuilder) TriggerRecordCreated(section, id, recordType string) *HTMXResponseBuilder {
	return b.trigger("record:created", map[string]string{"section": section, "id": id, "type": recordType})
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.trigger("form:reset", struct{}{})
}

func (b *HTMXResponseBuilder) TriggerSessionChanged(state string) *HTMXResponseBuilder {
	return b.trigger("session:changed", map[string]string{"state": state})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.notify("success", message, 3000)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.notify("error", message, 5000)
}

// notify feeds the toast listener in app.js.
func (b *HTMXResponseBuilder) notify(kind, message string, durationMs int) *HTMXResponseBuilder {
	return b.trigger("show-notification", map[string]any{
		"type":     kind,
		"message":  message,
		"duration": durationMs,
	})
}

// Redirect asks htmx to perform a full client-side navigation to url.
func (b *HTMXResponseBuilder) Redirect(url string) *HTMXResponseBuilder {
	b.redirect = url
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.body = []byte(html)
	return b
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	h := w.Header()
	if b.redirect != "" {
		h.Set("HX-Redirect", b.redirect)
	}
	if len(b.triggers) > 0 {
		if data, err := json.Marshal(b.triggers); err == nil {
			h.Set("HX-Trigger", string(data))
		}
	}
	if b.body != nil {
		h.Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse renders message, escaped, as an error fragment.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(status).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}
