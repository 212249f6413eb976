// Package api implements the HTTP endpoints that expose share resolution.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nahucai95/GoFile-Direct-Link/internal/errs"
	"github.com/nahucai95/GoFile-Direct-Link/internal/logging"
	"github.com/nahucai95/GoFile-Direct-Link/internal/metrics"
	"github.com/nahucai95/GoFile-Direct-Link/internal/ratelimit"
	"github.com/nahucai95/GoFile-Direct-Link/internal/resolver"
	"github.com/nahucai95/GoFile-Direct-Link/internal/storage"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/models"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/protocol"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/retry"
)

const (
	msgInvalidURL  = "Invalid URL."
	msgNoFileFound = "No file found."

	maxBodyBytes = 1 << 20
)

// Resolver resolves one request into file descriptors.
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (*resolver.Result, error)
}

// Config holds server settings.
type Config struct {
	// SharePrefix is the accepted share URL prefix for /get-link.
	SharePrefix string
	// DefaultDir is the destination directory used when a request names none.
	DefaultDir string
	// Retry wraps each resolution; MaxAttempts 1 disables retries.
	Retry retry.Config
	// Limiter, if set, throttles the resolution endpoints per client.
	Limiter *ratelimit.Limiter
}

// Server is the HTTP API server.
type Server struct {
	resolver  Resolver
	manifests storage.Backend
	cfg       Config
}

// NewServer creates a server. manifests may be nil, in which case requests
// naming a manifest key are rejected.
func NewServer(r Resolver, manifests storage.Backend, cfg Config) *Server {
	if cfg.SharePrefix == "" {
		cfg.SharePrefix = "https://gofile.io/d/"
	}
	if cfg.DefaultDir == "" {
		cfg.DefaultDir = "./"
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = retry.DefaultConfig(1)
	}
	return &Server{resolver: r, manifests: manifests, cfg: cfg}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /get-link", s.limited(s.handleGetLink))
	mux.Handle("POST /api/v1/resolve", s.limited(s.handleResolve))
	mux.HandleFunc("GET /api/v1/manifests/{key...}", s.handleGetManifest)

	return metrics.Middleware(logging.Middleware(mux))
}

func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.cfg.Limiter == nil {
		return h
	}
	return s.cfg.Limiter.Middleware(h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetLink returns the first direct link of a share. Every outcome is
// reported with status 200 and success=false on failure.
func (s *Server) handleGetLink(w http.ResponseWriter, r *http.Request) {
	var req protocol.GetLinkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.sendJSON(w, http.StatusOK, protocol.GetLinkResponse{Error: msgInvalidURL})
		return
	}
	if req.URL == "" || !strings.HasPrefix(req.URL, s.cfg.SharePrefix) {
		s.sendJSON(w, http.StatusOK, protocol.GetLinkResponse{Error: msgInvalidURL})
		return
	}

	res, err := s.resolve(r.Context(), resolver.Request{DestDir: s.cfg.DefaultDir, ShareURL: req.URL})
	if err != nil {
		s.sendJSON(w, http.StatusOK, protocol.GetLinkResponse{Error: err.Error()})
		return
	}
	if len(res.Files) == 0 {
		msg := msgNoFileFound
		if len(res.Failures) > 0 {
			msg = res.Failures[0].Error()
		}
		s.sendJSON(w, http.StatusOK, protocol.GetLinkResponse{Error: msg})
		return
	}

	s.sendJSON(w, http.StatusOK, protocol.GetLinkResponse{Success: true, Link: res.Files[0].Link})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req protocol.ResolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Manifest != "" && s.manifests == nil {
		s.sendError(w, http.StatusBadRequest, "manifest storage is not configured")
		return
	}

	dir := req.Dir
	if dir == "" {
		dir = s.cfg.DefaultDir
	}

	res, err := s.resolve(r.Context(), resolver.Request{
		DestDir:   dir,
		ContentID: req.ContentID,
		ShareURL:  req.URL,
		Password:  req.Password,
		Excludes:  req.Excludes,
	})
	if err != nil {
		s.sendJSON(w, statusFor(err), protocol.ResolveResponse{ContentID: res.ContentID, Error: err.Error()})
		return
	}

	resp := protocol.ResolveResponse{
		Success:   true,
		ContentID: res.ContentID,
		Files:     make([]protocol.ResolvedFile, len(res.Files)),
		Failures:  failureMessages(res.Failures),
	}
	for i, f := range res.Files {
		resp.Files[i] = protocol.ResolvedFile{Link: f.Link, DestinationPath: f.DestinationPath}
	}

	if req.Manifest != "" {
		m := &models.Manifest{
			ContentID:   res.ContentID,
			GeneratedAt: time.Now().UTC(),
			Files:       res.Files,
			Failures:    resp.Failures,
		}
		if err := storage.WriteManifest(r.Context(), s.manifests, req.Manifest, m); err != nil {
			logging.WithContext(r.Context()).Error("manifest write failed", zap.Error(err))
			s.sendError(w, http.StatusInternalServerError, "failed to write manifest")
			return
		}
		resp.Manifest = req.Manifest
	}

	s.sendJSON(w, http.StatusOK, resp)
}

// handleGetManifest returns a manifest stored by an earlier resolve call.
func (s *Server) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	if s.manifests == nil {
		s.sendError(w, http.StatusNotFound, "manifest storage is not configured")
		return
	}
	key := r.PathValue("key")
	m, err := storage.ReadManifest(r.Context(), s.manifests, key)
	if err != nil {
		logging.WithContext(r.Context()).Warn("manifest read failed", zap.String("key", key), zap.Error(err))
		s.sendError(w, http.StatusNotFound, "manifest not found")
		return
	}
	s.sendJSON(w, http.StatusOK, m)
}

// resolve runs one resolution under the retry policy. The returned Result is never nil.
func (s *Server) resolve(ctx context.Context, req resolver.Request) (*resolver.Result, error) {
	cfg := s.cfg.Retry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		logging.WithContext(ctx).Warn("retrying resolution",
			zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}
	res, err := retry.DoWithResult(ctx, cfg, func() (*resolver.Result, error) {
		return s.resolver.Resolve(ctx, req)
	})
	if res == nil {
		res = &resolver.Result{}
	}
	return res, err
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrStructural):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func failureMessages(failures []error) []string {
	if len(failures) == 0 {
		return nil
	}
	out := make([]string, len(failures))
	for i, f := range failures {
		out[i] = f.Error()
	}
	return out
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	s.sendJSON(w, code, protocol.ErrorResponse{Error: message, Code: code})
}
