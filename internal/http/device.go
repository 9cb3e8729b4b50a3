package http

import (
	"context"
	"net/http"

	"lifebalance/internal/log"
	"lifebalance/internal/session"
)

type deviceKey struct{}

// withDevice resolves the device behind a request from its signed cookie,
// issuing a fresh device when the cookie is missing or invalid.
func (s *Server) withDevice(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device, err := s.deviceFor(w, r)
		if err != nil {
			log.NewStructuredLogger(s.logger).LogError(r.Context(), "Device issue failed", err,
				log.ComponentSession, log.OpCreate, nil)
			InternalServerError("Erro ao iniciar a sessão").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), deviceKey{}, device)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldDevice, device))
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) deviceFor(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(session.DeviceCookie); err == nil {
		device, err := s.devices.Verify(c.Value)
		if err == nil {
			return device, nil
		}
		log.FromContext(r.Context()).DebugContext(r.Context(), "Device cookie rejected", log.FieldError, err)
	}

	device, token, err := s.devices.Issue()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.DeviceCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.devices.Lifetime().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return device, nil
}

// deviceFrom returns the device resolved by withDevice.
func deviceFrom(ctx context.Context) string {
	device, _ := ctx.Value(deviceKey{}).(string)
	return device
}
