package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"lifebalance/internal/log"
	"lifebalance/internal/metrics"
	"lifebalance/internal/middleware/ratelimit"
	"lifebalance/internal/middleware/security"
	"lifebalance/internal/middleware/trace"
	"lifebalance/internal/session"
	"lifebalance/internal/shell"
	"lifebalance/internal/storage"
	appweb "lifebalance/web"
)

// Options configure a Server. Registry and Devices are required.
type Options struct {
	Addr     string
	Registry *shell.Registry
	Devices  *session.DeviceIssuer
	Metrics  *metrics.Metrics
	// Store is pinged by the readiness check when it implements storage.Pinger.
	Store              storage.KV
	Logger             *log.Logger
	RateLimitPerMinute int
	Now                func() time.Time
}

type Server struct {
	http.Server
	templates   *template.Template
	registry    *shell.Registry
	devices     *session.DeviceIssuer
	metrics     *metrics.Metrics
	store       storage.KV
	logger      *log.Logger
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	now         func() time.Time
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Registry == nil || opts.Devices == nil {
		return nil, fmt.Errorf("http server: registry and device issuer are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Wrap(nil, log.ComponentHTTP)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	limits := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limits.RequestsPerMinute = opts.RateLimitPerMinute
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		templates:   t,
		registry:    opts.Registry,
		devices:     opts.Devices,
		metrics:     opts.Metrics,
		store:       opts.Store,
		logger:      opts.Logger.WithComponent(log.ComponentHTTP),
		rateLimiter: ratelimit.NewLimiter(limits),
		detector:    security.NewDetector(),
		now:         opts.Now,
		started:     opts.Now(),
	}

	// Static assets (served from embedded FS)
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Pages and auth
	mux.HandleFunc("GET /{$}", s.withDevice(s.handleIndex))
	mux.HandleFunc("GET /login", s.withDevice(s.handleAuthForm(false)))
	mux.HandleFunc("GET /register", s.withDevice(s.handleAuthForm(true)))
	mux.HandleFunc("POST /login", s.withDevice(s.handleLogin))
	mux.HandleFunc("POST /register", s.withDevice(s.handleRegister))
	mux.HandleFunc("POST /logout", s.withDevice(s.handleLogout))

	// Sections
	mux.HandleFunc("GET /sections/{name}", s.withDevice(s.handleSection))
	mux.HandleFunc("POST /sections/{name}/compose", s.withDevice(s.handleCompose))
	mux.HandleFunc("POST /sections/{name}/cancel", s.withDevice(s.handleCancel))
	mux.HandleFunc("POST /sections/{name}/draft", s.withDevice(s.handleDraft))
	mux.HandleFunc("POST /sections/{name}/records", s.withDevice(s.handleSubmit))
	mux.HandleFunc("POST /quick/{action}", s.withDevice(s.handleQuickAction))

	s.Handler = s.middleware(mux)
	return s, nil
}

// middleware wraps the mux: tracing outermost so the access log and the
// duration histogram see every response, including rejected ones.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(next)
	inspected := s.detector.Middleware(s.logger.WithComponent(log.ComponentSecurity), s.metrics.Suspicious)(limited)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(inspected)
	traced := trace.NewMiddleware(s.logger.WithComponent(log.ComponentTrace), s.detector.ExtractClientIP, s.metrics)
	return traced.Middleware(headers)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.").
		TriggerErrorNotification("Muitas requisições. Tente novamente em instantes.").
		Write(w)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
