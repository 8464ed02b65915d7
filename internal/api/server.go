// Package api implements the gateway's HTTP surface:
// POST /v1/messages, POST /v1/messages/count_tokens, GET /healthz, and
// GET /metrics. Route binding uses chi; writeError and the SSE writer
// (text/event-stream, http.Flusher, "data: ...\n\n" framing, [DONE]
// sentinel) follow the same Server-struct shape as the rest of the
// gateway's HTTP-facing code.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nugget/gateway/internal/apierror"
	"github.com/nugget/gateway/internal/continuation"
	"github.com/nugget/gateway/internal/metrics"
	"github.com/nugget/gateway/internal/stream"
	"github.com/nugget/gateway/internal/tools"
	"github.com/nugget/gateway/internal/upstream"
	"github.com/nugget/gateway/internal/wire"
)

// Server is the gateway's HTTP API server.
type Server struct {
	address string
	port    int

	loop           *continuation.Loop
	counter        TokenCounter
	metrics        *metrics.Registry
	grants         map[string]bool
	fallbackAPIKey string
	logger         *slog.Logger

	server *http.Server
}

// New builds a Server. grants is the static, config-driven permission set
// applied to every inbound request's context. fallbackAPIKey
// is the configured UPSTREAM_API_KEY, used when an inbound request carries
// neither x-api-key nor Authorization.
func New(address string, port int, loop *continuation.Loop, counter TokenCounter, m *metrics.Registry, grants map[string]bool, fallbackAPIKey string, logger *slog.Logger) *Server {
	if counter == nil {
		counter = CharHeuristicCounter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:        address,
		port:           port,
		loop:           loop,
		counter:        counter,
		metrics:        m,
		grants:         grants,
		fallbackAPIKey: fallbackAPIKey,
		logger:         logger,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.withRequestID)
	r.Use(s.withLogging)

	r.Post("/v1/messages", s.handleMessages)
	r.Post("/v1/messages/count_tokens", s.handleCountTokens)
	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	}
	return r
}

// Start begins serving HTTP requests; it blocks until Shutdown is called
// or the listener fails.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // long enough for SSE continuation rounds
	}
	s.logger.Info("starting API server", "address", s.address, "port", s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type requestIDKey struct{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("x-correlation-id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

// apiKeyFromHeaders resolves the upstream bearer token from the inbound
// request, falling back to the configured UPSTREAM_API_KEY.
func apiKeyFromHeaders(r *http.Request, fallback string) string {
	if v := r.Header.Get("x-api-key"); v != "" {
		return v
	}
	if v := r.Header.Get("Authorization"); v != "" {
		return strings.TrimPrefix(v, "Bearer ")
	}
	return fallback
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var req wire.MessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apierror.InvalidRequest("invalid request body: "+err.Error()))
		return
	}
	if req.Model == "" || req.MaxTokens <= 0 || len(req.Messages) == 0 {
		s.writeError(w, apierror.InvalidRequest("model, max_tokens, and messages are required"))
		return
	}

	reqID := requestID(r.Context())
	key := apiKeyFromHeaders(r, s.fallbackAPIKey)
	ctx := tools.WithGrants(r.Context(), s.grants)

	if req.Stream {
		s.handleMessagesStream(w, r.WithContext(ctx), &req, key, reqID)
		return
	}

	resp, warnings, uerr, err := s.loop.Run(ctx, &req, key, reqID)
	if err != nil {
		s.logger.Error("continuation loop failed", "request_id", reqID, "error", err)
		s.writeError(w, apierror.Internal("gateway failed to process request"))
		return
	}
	if uerr != nil {
		s.writeError(w, s.translateUpstreamError(uerr))
		return
	}
	for _, warn := range warnings {
		s.logger.Warn("translation warning", "request_id", reqID, "warning", warn.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

func (s *Server) handleMessagesStream(w http.ResponseWriter, r *http.Request, req *wire.MessagesRequest, key, reqID string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, apierror.Internal("streaming not supported"))
		return
	}

	events := s.loop.RunStream(r.Context(), req, key, reqID)
	for evt := range events {
		if evt.Kind == stream.KindError {
			s.logger.Error("stream error", "request_id", reqID, "error", evt.ErrorMessage)
		}
		w.Write(stream.EmitAnthropic(evt))
		flusher.Flush()
	}
	w.Write(stream.EmitDone())
	flusher.Flush()
}

func (s *Server) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	var req wire.MessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apierror.InvalidRequest("invalid request body: "+err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"input_tokens": s.counter.Count(&req)})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, e *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	json.NewEncoder(w).Encode(e.Envelope())
}

// translateUpstreamError maps an *upstream.Error (5xx/4xx from the
// backend, already classified) to the bit-exact Anthropic envelope
//. A 5xx without fallback becomes a 502 api_error; a 4xx
// maps through the Kind taxonomy.
func (s *Server) translateUpstreamError(uerr *upstream.Error) *apierror.Error {
	if uerr.IsServerError() {
		return apierror.BadGateway(uerr.Body)
	}
	return apierror.FromUpstreamStatus(uerr.Status, uerr.Body)
}
