package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lifebalance/internal/log"
	"lifebalance/internal/session"
	"lifebalance/internal/shell"
	"lifebalance/internal/storage"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	}
	writeJSON(w, http.StatusOK, health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if p, ok := s.store.(storage.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "ok"
	}

	checks["workspaces_open"] = s.registry.Open()
	checks["rate_limited_clients"] = s.rateLimiter.ActiveClients()

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := s.registry.With(ctx, deviceFrom(ctx), func(ws *shell.Workspace) error {
		s.render(w, r, NewHTMXResponse(), buildPage(ws, s.now(), viewOptions{}))
		return nil
	})
	if err != nil {
		s.serverError(w, r, "Erro ao carregar o painel", err, log.ComponentShell, log.OpRead)
	}
}

// handleAuthForm shows the login or registration form. Logged-in devices
// go back to the dashboard.
func (s *Server) handleAuthForm(register bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		err := s.registry.With(ctx, deviceFrom(ctx), func(ws *shell.Workspace) error {
			if ws.Session.State() == session.LoggedIn {
				redirect(w, r, "/", NewHTMXResponse())
				return nil
			}
			pd := buildPage(ws, s.now(), viewOptions{})
			pd.Register = register
			s.render(w, r, NewHTMXResponse(), pd)
			return nil
		})
		if err != nil {
			s.serverError(w, r, "Erro ao carregar o formulário", err, log.ComponentSession, log.OpRead)
		}
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, false)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, true)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, register bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}
	name, email, password := p.Get("name"), p.Get("email"), p.Get("password")

	op := log.OpLogin
	if register {
		op = log.OpRegister
	}

	ctx := r.Context()
	device := deviceFrom(ctx)
	sess, err := s.registry.Session(ctx, device)
	if err != nil {
		s.serverError(w, r, "Erro ao entrar", err, log.ComponentSession, op)
		return
	}

	// The simulated delay runs outside the workspace so the device's other
	// requests are not queued behind it.
	var ok bool
	if register {
		ok, err = sess.Register(ctx, name, email, password)
	} else {
		ok, err = sess.Login(ctx, email, password)
	}
	if err != nil {
		s.metrics.LoginError(op)
		s.serverError(w, r, "Erro ao entrar", err, log.ComponentSession, op)
		return
	}
	s.metrics.Login(op, ok)

	err = s.registry.With(ctx, device, func(ws *shell.Workspace) error {
		if !ok {
			pd := buildPage(ws, s.now(), viewOptions{})
			pd.Register = register
			pd.AuthError = session.MsgMissingFields
			pd.AuthName = name
			pd.AuthEmail = email
			s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), pd)
			return nil
		}

		ws.Navigate(shell.Dashboard)
		redirect(w, r, "/", NewHTMXResponse().TriggerSessionChanged(session.LoggedIn.String()))
		return nil
	})
	if err != nil {
		s.serverError(w, r, "Erro ao entrar", err, log.ComponentSession, op)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := s.registry.With(ctx, deviceFrom(ctx), func(ws *shell.Workspace) error {
		if err := ws.Session.Logout(ctx); err != nil {
			return err
		}
		redirect(w, r, "/", NewHTMXResponse().TriggerSessionChanged(session.LoggedOut.String()))
		return nil
	})
	if err != nil {
		s.serverError(w, r, "Erro ao sair", err, log.ComponentSession, log.OpLogout)
	}
}

// render writes the full page, or just the #app fragment for htmx requests.
func (s *Server) render(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder, pd *pageData) {
	name := "page"
	if isHTMX(r) {
		name = "app"
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, pd); err != nil {
		s.serverError(w, r, "Erro ao renderizar a página", err, log.ComponentTemplate, log.OpRender)
		return
	}
	resp.BodyHTML(buf.String()).Write(w)
}

// redirect sends the browser to url: an HX-Redirect for htmx, a 303 otherwise.
func redirect(w http.ResponseWriter, r *http.Request, url string, resp *HTMXResponseBuilder) {
	if !isHTMX(r) {
		http.Redirect(w, r, url, http.StatusSeeOther)
		return
	}
	resp.Redirect(url).Write(w)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error, component, op string) {
	fields := log.NewFields()
	fields[log.FieldMethod] = r.Method
	fields[log.FieldPath] = r.URL.Path
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), msg, err, component, op, fields)
	InternalServerError(msg).TriggerErrorNotification(msg).Write(w)
}
