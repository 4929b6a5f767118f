package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"shollu-partner/internal/access"
	"shollu-partner/internal/attendance"
	"shollu-partner/internal/config"
	"shollu-partner/internal/email"
	"shollu-partner/internal/events"
	"shollu-partner/internal/jwt"
	"shollu-partner/internal/live"
	"shollu-partner/internal/qrscan"
	"shollu-partner/internal/query"
	"shollu-partner/internal/routes"
	"shollu-partner/internal/session"
	"shollu-partner/internal/shollu"
	"shollu-partner/internal/shollu/shollutest"
	"shollu-partner/internal/status"
	"shollu-partner/internal/storage"

	"github.com/gin-gonic/gin"
)

// How long list views and statistics are served from memory.
const QUERY_CACHE_TTL = 30 * time.Second

// How often expired sessions are swept.
const SESSION_JANITOR_INTERVAL = time.Minute

func securityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "same-origin")
	c.Header("Permissions-Policy", "camera=(self)")

	// Pages carry personal data; static assets may be cached.
	if !strings.HasPrefix(c.Request.URL.Path, "/assets/") {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
	}
	c.Next()
}

// Middleware to check if the IP is allowed.
func IPAccessControl(allowedCIDRs []string) gin.HandlerFunc {
	var parsedCIDRs []*net.IPNet

	// Allow local networks in debug mode
	if os.Getenv("GIN_MODE") != "release" {
		allowedCIDRs = append(allowedCIDRs, "127.0.0.1/8", "::1/128")
	}

	for _, cidr := range allowedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("Invalid CIDR", "cidr", cidr)
			continue
		}
		slog.Debug("Allowed CIDR", "cidr", cidr)
		parsedCIDRs = append(parsedCIDRs, network)
	}

	return func(c *gin.Context) {
		clientIP := net.ParseIP(c.ClientIP())
		if clientIP == nil {
			slog.Warn("Invalid client IP", "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		for _, cidr := range parsedCIDRs {
			if cidr.Contains(clientIP) {
				c.Next()
				return
			}
		}
		slog.Warn("IP not allowed", "ip", clientIP)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

// splitCIDRs parses the allowed_networks setting.
func splitCIDRs(s string) []string {
	var out []string
	for cidr := range strings.SplitSeq(s, ",") {
		if cidr := strings.TrimSpace(cidr); cidr != "" {
			out = append(out, cidr)
		}
	}
	return out
}

// NewBackend returns the Shollu client for cfg. In demo mode it also starts
// the in-process fake backend; the returned func stops it.
func NewBackend(cfg *config.Config) (*shollu.Client, func(), error) {
	switch cfg.Backend.Mode {
	case config.BackendDemo:
		fake := shollutest.New()
		srv := fake.Start()
		slog.Warn("Using in-process demo backend", "url", srv.URL)
		bc := shollutest.BackendConfig(srv, fake.APIKey)
		bc.Mode = config.BackendDemo
		return shollu.New(bc), srv.Close, nil
	case config.BackendLive:
		if cfg.Backend.BaseURL == "" {
			return nil, nil, fmt.Errorf("backend.base_url is required")
		}
		return shollu.New(cfg.Backend), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend.mode %q", cfg.Backend.Mode)
	}
}

// App is the assembled partner center.
type App struct {
	Engine   *gin.Engine
	Handlers *routes.Handlers
	Sessions *session.Manager
	Backend  *shollu.Client

	closers []func()
}

// New wires configuration, backend, stores and routes. provider may be nil
// unless session_store is "sql".
func New(ctx context.Context, cfg *config.Config, provider storage.Provider, web fs.FS) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	client, stop, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	a.Backend = client
	a.closers = append(a.closers, stop)

	store, err := session.NewStore(cfg, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	slog.Info("Initialized session store", "type", cfg.SessionStore)

	manager := session.NewManager(client, store, cfg.SessionTTL())
	client.OnUnauthorized(manager.Invalidate)
	manager.StartJanitor(SESSION_JANITOR_INTERVAL)
	a.closers = append(a.closers, manager.Close)
	a.Sessions = manager

	catalog, err := events.Load(ctx, cfg.Events, client)
	if err != nil {
		return nil, fmt.Errorf("failed to load event catalog: %w", err)
	}

	rbac, err := access.Load(cfg.RBAC.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load RBAC policy %q: %w", cfg.RBAC.PolicyFile, err)
	}

	capture, err := qrscan.NewCapture(cfg.Scanner)
	if err != nil {
		return nil, err
	}

	pipeline, err := status.PipelineByName(cfg.Cards.Pipeline)
	if err != nil {
		return nil, err
	}

	cache := query.NewCache(QUERY_CACHE_TTL)
	hub := live.NewHub(nil)
	registry := attendance.NewRegistry(func(machineID string) *attendance.Orchestrator {
		return attendance.New(client, capture, catalog, attendance.Options{
			MachineID:    machineID,
			DismissAfter: cfg.Attendance.DismissAfter(),
			OnRecorded: func(o attendance.Outcome) {
				cache.Invalidate("stats:" + machineID)
				hub.Publish(machineID, live.Message{Action: "attendance", Data: o})
			},
		})
	})
	manager.OnEnd(registry.Drop)

	var mailer *email.Client
	if cfg.Email.PrintOffice != "" {
		mailer = email.NewClient(cfg.Email)
	}

	a.Handlers = &routes.Handlers{
		Config:     cfg,
		Backend:    client,
		Sessions:   manager,
		Signer:     jwt.NewSigner(cfg.Secret, cfg.SessionTTL()),
		Catalog:    catalog,
		RBAC:       rbac,
		Attendance: registry,
		Hub:        hub,
		Cache:      cache,
		Views:      query.NewGenerations(),
		Pipeline:   pipeline,
		Mailer:     mailer,
		Capture:    capture,
		Web:        web,
	}

	a.Engine, err = HTTPServer(cfg, a.Handlers)
	if err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

// HTTPServer builds the gin engine with the global middleware and routes.
func HTTPServer(cfg *config.Config, h *routes.Handlers) (*gin.Engine, error) {
	r := gin.Default()

	if cidrs := splitCIDRs(cfg.AllowedNetworks); len(cidrs) > 0 {
		slog.Debug("Enabling IP access control", "allowed_networks", cfg.AllowedNetworks)
		r.Use(IPAccessControl(cidrs))
	}
	r.Use(securityHeaders)

	if err := h.Register(r); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}
	return r, nil
}

// Close releases the stores and stops the demo backend, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: a.Engine, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		slog.Info("Listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdown)
}
