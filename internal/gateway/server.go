// Package gateway implements the HTTP API between untrusted clients and
// the upstream issue tracker. Every response uses a uniform JSON
// envelope; writes pass a rate gate and invalidate the response cache,
// reads are served from cache whenever possible to protect the upstream
// rate budget.
package gateway

import (
	"net/http"
	"time"

	"github.com/nightfallstudio/bugboard/internal/cache"
	"github.com/nightfallstudio/bugboard/internal/config"
	"github.com/nightfallstudio/bugboard/internal/patchnotes"
	"github.com/nightfallstudio/bugboard/internal/ratelimit"
	"github.com/nightfallstudio/bugboard/internal/token"
	"github.com/nightfallstudio/bugboard/internal/triage"
	"github.com/nightfallstudio/bugboard/internal/upstream"
)

// Server holds the gateway's collaborators. It is stateless per request;
// the only cross-request state lives in the injected stores.
type Server struct {
	api    upstream.API
	tokens *token.Store
	gate   *ratelimit.Limiter
	cache  *cache.Cache
	notes  *patchnotes.Source

	// triager is nil unless LLM triage is configured.
	triager *triage.Client

	allowedOrigins []string
	issuesTTL      time.Duration
	statsTTL       time.Duration
	staticTTL      time.Duration
}

// NewServer wires the gateway from its collaborators. triager may be nil.
func NewServer(cfg *config.Config, api upstream.API, tokens *token.Store, gate *ratelimit.Limiter, respCache *cache.Cache, notes *patchnotes.Source, triager *triage.Client) *Server {
	return &Server{
		api:            api,
		tokens:         tokens,
		gate:           gate,
		cache:          respCache,
		notes:          notes,
		triager:        triager,
		allowedOrigins: cfg.Server.AllowedOrigins,
		issuesTTL:      cfg.Cache.IssuesTTL,
		statsTTL:       cfg.Cache.StatsTTL,
		staticTTL:      cfg.Cache.StaticTTL,
	}
}

// Router returns the gateway's http.Handler with all middleware applied.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/issues", s.listIssues)
	mux.HandleFunc("POST /api/submit-bug", s.submitBug)
	mux.HandleFunc("PUT /api/issues/{number}/labels", s.replaceLabels)
	mux.HandleFunc("GET /api/stats", s.stats)
	mux.HandleFunc("GET /api/patch-notes", s.patchNotes)
	mux.HandleFunc("GET /api/latest-version", s.latestVersion)
	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("/", s.notFound)

	return s.withRecovery(s.withLogging(s.withCORS(mux)))
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "no such route")
}
