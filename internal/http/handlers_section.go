package http

import (
	"context"
	"errors"
	"net/http"

	"lifebalance/internal/core"
	"lifebalance/internal/log"
	"lifebalance/internal/section"
	"lifebalance/internal/session"
	"lifebalance/internal/shell"
)

// recordSection maps a path name to one of the sections that hold records.
func recordSection(name string) (shell.Section, bool) {
	switch sec := shell.Section(name); sec {
	case shell.Financial, shell.Professional, shell.Wellness:
		return sec, true
	default:
		return "", false
	}
}

// withUser runs fn with the device's workspace when someone is logged in and
// sends everyone else back to the login page.
func (s *Server) withUser(w http.ResponseWriter, r *http.Request, op string, fn func(*shell.Workspace) error) {
	ctx := r.Context()
	err := s.registry.With(ctx, deviceFrom(ctx), func(ws *shell.Workspace) error {
		if ws.Session.State() != session.LoggedIn {
			redirect(w, r, "/", NewHTMXResponse())
			return nil
		}
		return fn(ws)
	})
	if err != nil {
		s.serverError(w, r, "Erro ao processar a requisição", err, log.ComponentSection, op)
	}
}

// handleSection shows a section. Unknown names show the dashboard.
func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	sec := shell.ParseSection(r.PathValue("name"))
	filter := ParseFilterParam(r.URL.Query(), log.FromContext(r.Context()))

	ctx := r.Context()
	err := s.registry.With(ctx, deviceFrom(ctx), func(ws *shell.Workspace) error {
		if ws.Session.State() == session.LoggedIn {
			ws.Navigate(sec)
		}
		s.render(w, r, NewHTMXResponse(), buildPage(ws, s.now(), viewOptions{Filter: filter}))
		return nil
	})
	if err != nil {
		s.serverError(w, r, "Erro ao carregar a seção", err, log.ComponentShell, log.OpRead)
	}
}

// handleCompose toggles the section's form, like its "add" button.
func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	s.withForm(w, r, func(ws *shell.Workspace, sec shell.Section) {
		switch sec {
		case shell.Financial:
			ws.Financial.Compose()
		case shell.Professional:
			ws.Professional.Compose()
		case shell.Wellness:
			ws.Wellness.Compose()
		}
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.withForm(w, r, func(ws *shell.Workspace, sec shell.Section) {
		switch sec {
		case shell.Financial:
			ws.Financial.Cancel()
		case shell.Professional:
			ws.Professional.Cancel()
		case shell.Wellness:
			ws.Wellness.Cancel()
		}
	})
}

// handleDraft stores the form fields without submitting, so the form can be
// re-rendered when a field changes what it shows.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}
	s.withForm(w, r, func(ws *shell.Workspace, sec shell.Section) {
		switch sec {
		case shell.Financial:
			ws.Financial.Start()
			ws.Financial.UpdateDraft(p.ApplyFinancial)
		case shell.Professional:
			ws.Professional.Start()
			ws.Professional.UpdateDraft(p.ApplyProfessional)
		case shell.Wellness:
			ws.Wellness.Start()
			ws.Wellness.UpdateDraft(p.ApplyWellness)
		}
	})
}

// withForm runs a form transition on a record section and re-renders it.
func (s *Server) withForm(w http.ResponseWriter, r *http.Request, fn func(*shell.Workspace, shell.Section)) {
	sec, ok := recordSection(r.PathValue("name"))
	if !ok {
		NotFoundError("Seção não encontrada").Write(w)
		return
	}
	filter := ParseFilterParam(r.URL.Query(), log.FromContext(r.Context()))
	s.withUser(w, r, log.OpRead, func(ws *shell.Workspace) error {
		ws.Navigate(sec)
		fn(ws, sec)
		s.render(w, r, NewHTMXResponse(), buildPage(ws, s.now(), viewOptions{Filter: filter}))
		return nil
	})
}

// handleSubmit applies the posted fields to the draft and submits it.
// Validation failures re-render the form with per-field messages.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sec, ok := recordSection(r.PathValue("name"))
	if !ok {
		NotFoundError("Seção não encontrada").Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}
	filter := ParseFilterParam(r.URL.Query(), log.FromContext(r.Context()))

	s.withUser(w, r, log.OpCreate, func(ws *shell.Workspace) error {
		ctx := r.Context()
		ws.Navigate(sec)

		var rec core.Record
		var err error
		switch sec {
		case shell.Financial:
			rec, err = submitDraft(ctx, ws.Financial, p.ApplyFinancial)
		case shell.Professional:
			rec, err = submitDraft(ctx, ws.Professional, p.ApplyProfessional)
		case shell.Wellness:
			rec, err = submitDraft(ctx, ws.Wellness, p.ApplyWellness)
		}

		resp := NewHTMXResponse()
		opts := viewOptions{Filter: filter}
		switch fes := core.FieldErrors(err); {
		case err == nil:
			resp.TriggerRecordCreated(string(sec), rec.RecordID(), rec.RecordType()).
				TriggerFormReset().
				TriggerSuccessNotification("Registro salvo com sucesso")
		case len(fes) > 0:
			opts.Errors = fieldMessages(fes)
			resp.Status(http.StatusUnprocessableEntity)
		default:
			return err
		}
		s.render(w, r, resp, buildPage(ws, s.now(), opts))
		return nil
	})
}

// submitDraft opens the form if needed, applies the posted fields and
// submits the draft.
func submitDraft[D section.Draft[R], R core.Record](ctx context.Context, c *section.Controller[D, R], apply func(*D)) (core.Record, error) {
	c.Start()
	c.UpdateDraft(apply)
	rec, err := c.Submit(ctx)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// handleQuickAction runs a dashboard shortcut.
func (s *Server) handleQuickAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("action")
	s.withUser(w, r, log.OpRead, func(ws *shell.Workspace) error {
		if _, err := ws.RunQuickAction(id); err != nil {
			if errors.Is(err, shell.ErrUnknownAction) {
				NotFoundError("Ação não encontrada").Write(w)
				return nil
			}
			return err
		}
		s.render(w, r, NewHTMXResponse(), buildPage(ws, s.now(), viewOptions{}))
		return nil
	})
}
