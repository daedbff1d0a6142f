package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/matheuscscp/fairshare/internal/auth"
	"github.com/matheuscscp/fairshare/models"
	"github.com/matheuscscp/fairshare/services/events"
	"github.com/matheuscscp/fairshare/services/images"
	"github.com/matheuscscp/fairshare/services/notify"
	"github.com/matheuscscp/fairshare/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type (
	// Extractor reads receipt items out of photos.
	Extractor interface {
		Extract(ctx context.Context, image []byte, mimeType string) (models.Receipt, error)
		Followup(ctx context.Context, items models.Receipt, prompt string) (models.Receipt, error)
	}

	// Deps are the collaborators of the server. Images and Notifier may be
	// nil.
	Deps struct {
		Store         storage.Store
		Extractor     Extractor
		Issuer        *auth.Issuer
		Broker        *events.Broker
		Images        images.Service
		Notifier      notify.Service
		BaseURL       string
		MaxImageBytes int64
	}

	// Server serves the HTTP API.
	Server struct {
		store         storage.Store
		extractor     Extractor
		issuer        *auth.Issuer
		broker        *events.Broker
		images        images.Service
		notifier      notify.Service
		baseURL       string
		maxImageBytes int64
		keepAlive     time.Duration
		metrics       *metrics
		handler       http.Handler
	}
)

const (
	defaultMaxImageBytes = 10 << 20
	// maxJSONBytes caps the body of every route without a receipt photo.
	maxJSONBytes      = 64 << 10
	keepAliveInterval = 25 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// New ...
func New(deps Deps) *Server {
	s := &Server{
		store:         deps.Store,
		extractor:     deps.Extractor,
		issuer:        deps.Issuer,
		broker:        deps.Broker,
		images:        deps.Images,
		notifier:      deps.Notifier,
		baseURL:       deps.BaseURL,
		maxImageBytes: deps.MaxImageBytes,
		keepAlive:     keepAliveInterval,
		metrics:       newMetrics(),
	}
	if s.broker == nil {
		s.broker = events.NewBroker(nil, "")
	}
	if s.images == nil {
		s.images, _ = images.NewService(context.Background(), "")
	}
	if s.notifier == nil {
		s.notifier, _ = notify.NewService("", 0, "")
	}
	if s.maxImageBytes <= 0 {
		s.maxImageBytes = defaultMaxImageBytes
	}
	s.handler = cors(s.routes())
	return s
}

// ServeHTTP ...
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.withLogging(pattern, limitBody(maxJSONBytes, h)))
	}
	// routes carrying a base64 receipt photo
	imageBodyBytes := s.maxImageBytes*4/3 + maxJSONBytes
	handleImage := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.withLogging(pattern, limitBody(imageBodyBytes, h)))
	}

	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("GET /metrics", s.metrics.handler())

	// receipts
	handleImage("POST /api/receipts/extract", s.extractReceipt)
	handle("POST /api/receipts/followup", s.followupReceipt)

	// sessions, host operations need the host token
	handleImage("POST /api/sessions", s.createSession)
	handle("GET /api/sessions/{slug}", s.getSession)
	handle("DELETE /api/sessions/{slug}", s.deleteSession)
	handle("PUT /api/sessions/{slug}/items", s.replaceItems)
	handle("POST /api/sessions/{slug}/items", s.addItem)
	handle("PATCH /api/sessions/{slug}/items/{id}", s.editItem)
	handle("DELETE /api/sessions/{slug}/items/{id}", s.removeItem)
	handle("GET /api/sessions/{slug}/qr.png", s.qrCode)

	// participants
	handle("POST /api/sessions/{slug}/participants", s.joinSession)
	handle("GET /api/sessions/{slug}/participants", s.listParticipants)
	handle("GET /api/sessions/{slug}/participants/{id}/payment", s.paymentLink)

	// allocations
	handle("GET /api/sessions/{slug}/allocations", s.listAllocations)
	handle("PUT /api/sessions/{slug}/allocations", s.updateAllocation)
	handle("GET /api/sessions/{slug}/summary", s.getSummary)
	handle("GET /api/sessions/{slug}/events", s.streamEvents)

	return mux
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		logrus.WithError(err).Error("health check failed")
		errorJSON(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	g, ctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		logrus.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
