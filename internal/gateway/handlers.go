package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nightfallstudio/bugboard/internal/board"
	"github.com/nightfallstudio/bugboard/internal/cache"
	"github.com/nightfallstudio/bugboard/internal/logging"
	"github.com/nightfallstudio/bugboard/internal/models"
	"github.com/nightfallstudio/bugboard/internal/token"
	"github.com/nightfallstudio/bugboard/internal/triage"
	"github.com/nightfallstudio/bugboard/internal/upstream"
)

// --- Reads ---

// listIssues serves the filtered issue listing with each issue's derived
// column, severity, and category attached. Responses are cached; a hit is
// served byte-identical to what was cached.
func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	key := cache.Key(cache.NSIssues, canonicalListKey(opts))
	if body, found := s.cache.Get(r.Context(), key); found {
		writeRaw(w, http.StatusOK, body)
		return
	}

	issues, err := s.api.ListIssues(r.Context(), opts)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	snapshot := board.NewSnapshot(issues)
	body, err := json.Marshal(envelope{Success: true, Data: map[string]any{
		"issues": snapshot.Cards(),
		"count":  len(snapshot.Cards()),
	}})
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	s.cache.Put(r.Context(), key, body, s.issuesTTL)
	writeRaw(w, http.StatusOK, body)
}

// parseListOptions validates and normalizes the listing query parameters.
func parseListOptions(q url.Values) (upstream.ListOptions, error) {
	opts := upstream.ListOptions{
		State:     q.Get("state"),
		Sort:      q.Get("sort"),
		Direction: q.Get("direction"),
	}
	if opts.State == "" {
		opts.State = "open"
	}
	switch opts.State {
	case "open", "closed", "all":
	default:
		return opts, fmt.Errorf("invalid state %q: must be open, closed, or all", opts.State)
	}
	switch opts.Sort {
	case "", "created", "updated", "comments":
	default:
		return opts, fmt.Errorf("invalid sort %q: must be created, updated, or comments", opts.Sort)
	}
	switch opts.Direction {
	case "", "asc", "desc":
	default:
		return opts, fmt.Errorf("invalid direction %q: must be asc or desc", opts.Direction)
	}

	if raw := q.Get("labels"); raw != "" {
		for _, label := range strings.Split(raw, ",") {
			if label = strings.TrimSpace(label); label != "" {
				opts.Labels = append(opts.Labels, label)
			}
		}
	}

	var err error
	if raw := q.Get("page"); raw != "" {
		if opts.Page, err = strconv.Atoi(raw); err != nil || opts.Page < 1 {
			return opts, fmt.Errorf("invalid page %q", raw)
		}
	}
	if raw := q.Get("per_page"); raw != "" {
		if opts.PerPage, err = strconv.Atoi(raw); err != nil || opts.PerPage < 1 || opts.PerPage > 100 {
			return opts, fmt.Errorf("invalid per_page %q: must be 1-100", raw)
		}
	}
	return opts, nil
}

// canonicalListKey renders options as a stable cache key so equivalent
// requests share an entry.
func canonicalListKey(opts upstream.ListOptions) string {
	return fmt.Sprintf("state=%s&labels=%s&sort=%s&direction=%s&page=%d&per_page=%d",
		opts.State, strings.Join(opts.Labels, ","), opts.Sort, opts.Direction, opts.Page, opts.PerPage)
}

// stats serves aggregate issue statistics. The upstream facts are fetched
// concurrently; any single failure fails the whole request, since partial
// statistics are misleading.
func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	key := cache.Key(cache.NSStats, "")
	if body, found := s.cache.Get(r.Context(), key); found {
		writeRaw(w, http.StatusOK, body)
		return
	}

	var open, closed []models.Issue
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		open, err = s.api.ListIssues(ctx, upstream.ListOptions{State: "open", PerPage: 100})
		return err
	})
	g.Go(func() error {
		var err error
		closed, err = s.api.ListIssues(ctx, upstream.ListOptions{State: "closed", PerPage: 100})
		return err
	})
	if err := g.Wait(); err != nil {
		writeUpstreamError(w, err)
		return
	}

	perColumn := make(map[models.Column]int, len(models.Columns))
	for _, col := range models.Columns {
		perColumn[col] = 0
	}
	perSeverity := map[models.Severity]int{}
	all := append(append([]models.Issue{}, open...), closed...)
	for i := range all {
		perColumn[board.ColumnOf(&all[i])]++
		perSeverity[board.SeverityOf(&all[i])]++
	}

	body, err := json.Marshal(envelope{Success: true, Data: map[string]any{
		"total":       len(all),
		"open":        len(open),
		"closed":      len(closed),
		"perColumn":   perColumn,
		"perSeverity": perSeverity,
	}})
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	s.cache.Put(r.Context(), key, body, s.statsTTL)
	writeRaw(w, http.StatusOK, body)
}

// patchNotes serves the release notes list.
func (s *Server) patchNotes(w http.ResponseWriter, r *http.Request) {
	key := cache.Key(cache.NSStatic, "patch-notes")
	if body, found := s.cache.Get(r.Context(), key); found {
		writeRaw(w, http.StatusOK, body)
		return
	}

	notes, err := s.notes.Notes(r.Context())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	body, err := json.Marshal(envelope{Success: true, Data: map[string]any{"notes": notes}})
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	s.cache.Put(r.Context(), key, body, s.staticTTL)
	writeRaw(w, http.StatusOK, body)
}

// latestVersion serves the newest release's tag and URL.
func (s *Server) latestVersion(w http.ResponseWriter, r *http.Request) {
	key := cache.Key(cache.NSStatic, "latest-version")
	if body, found := s.cache.Get(r.Context(), key); found {
		writeRaw(w, http.StatusOK, body)
		return
	}

	latest, err := s.notes.Latest(r.Context())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if latest == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "no releases published")
		return
	}

	body, err := json.Marshal(envelope{Success: true, Data: map[string]any{
		"version": latest.Version,
		"url":     latest.URL,
		"date":    latest.Date,
	}})
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	s.cache.Put(r.Context(), key, body, s.staticTTL)
	writeRaw(w, http.StatusOK, body)
}

// health is the liveness probe.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// --- Writes ---

// submitBug validates a bug report, files it upstream, and invalidates
// the affected cache entries. Anonymous and trusted submissions differ
// only in labeling and the body attribution line.
func (s *Server) submitBug(w http.ResponseWriter, r *http.Request) {
	if !s.gate.Admit(r.Context(), clientAddr(r)) {
		writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many submissions, please wait before trying again")
		return
	}

	var report models.BugReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON")
		return
	}
	if strings.TrimSpace(report.Title) == "" || strings.TrimSpace(report.Description) == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "title and description are required")
		return
	}

	// Attribution is advisory: it changes labels, never access.
	classification := s.tokens.Classify(r.Context(), r.Header.Get("X-App-Token"))
	trusted := classification == token.Trusted

	if report.Severity == "" && s.triager != nil {
		suggestion, err := s.triager.Suggest(r.Context(), report.Title, report.Description)
		if err != nil {
			logging.Warn("llm triage failed, using heuristic", "error", err)
			h := triage.Heuristic(report.Title, report.Description)
			suggestion = &h
		}
		report.Severity = suggestion.Severity
		if report.Category == "" {
			report.Category = suggestion.Category
		}
	}
	report.Normalize()

	source := "web form"
	if trusted {
		source = "application"
	}

	issue, err := s.api.CreateIssue(r.Context(), report.Title, report.RenderBody(source), report.IssueLabels(trusted))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	s.cache.InvalidateIssues(r.Context())
	writeData(w, http.StatusCreated, map[string]any{
		"issueNumber": issue.Number,
		"issueUrl":    issue.URL,
	})
}

// replaceLabels applies a full label replacement to an issue, typically
// the result of a board column move. The submitted set is sanitized so at
// most one label per family survives.
func (s *Server) replaceLabels(w http.ResponseWriter, r *http.Request) {
	if !s.gate.Admit(r.Context(), clientAddr(r)) {
		writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many requests, please wait before trying again")
		return
	}

	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid issue number")
		return
	}

	var req struct {
		Labels *[]string `json:"labels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON")
		return
	}
	if req.Labels == nil {
		writeError(w, http.StatusBadRequest, codeValidation, "labels array is required")
		return
	}

	s.tokens.Classify(r.Context(), r.Header.Get("X-App-Token"))

	labels := board.NormalizeLabels(*req.Labels)
	applied, err := s.api.ReplaceLabels(r.Context(), number, labels)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	s.cache.InvalidateIssues(r.Context())
	writeData(w, http.StatusOK, map[string]any{
		"number": number,
		"labels": applied,
	})
}
