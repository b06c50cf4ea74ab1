// Package api serves event feeds over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"eventfeed/internal/feed"
	"eventfeed/internal/model"
	"eventfeed/internal/session"
)

const maxBodySize = 64 * 1024

// Handler exposes feed sessions as JSON resources.
type Handler struct {
	sessions *session.Registry
	log      *slog.Logger
}

// NewHandler creates a Handler over the session registry.
func NewHandler(sessions *session.Registry, log *slog.Logger) *Handler {
	return &Handler{sessions: sessions, log: log}
}

type createSessionRequest struct {
	UserID string `json:"user_id"`
	Feed   string `json:"feed"`
}

type searchRequest struct {
	Query string `json:"query"`
}

// CreateSession starts a session, loads its feed and returns the first page.
// POST /api/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	kind := feed.KindHome
	if req.Feed != "" {
		k, ok := feed.ParseKind(req.Feed)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_feed", "unknown feed "+req.Feed)
			return
		}
		kind = k
	}
	if kind == feed.KindFollows && req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_required", "the follows feed needs a user_id")
		return
	}

	sess := h.sessions.Create(req.UserID)
	st := sess.SetActive(kind)
	if err := st.Refresh(r.Context()); err != nil {
		h.log.Warn("initial refresh failed", "session_id", sess.ID, "error", err)
	}
	writeJSON(w, http.StatusCreated, toPageResponse(sess.ID, st.Page()))
}

// GetSession returns the visible page of the session's feed.
// GET /api/sessions/{id}?feed=home|all|follows
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, st, ok := h.resolve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(sess.ID, st.Page()))
}

// SetCriteria replaces the feed's filter and sort criteria.
// PUT /api/sessions/{id}/criteria
func (h *Handler) SetCriteria(w http.ResponseWriter, r *http.Request) {
	sess, st, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var body criteriaBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	sort, ok := model.ParseSortMode(body.Sort)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_sort", "unknown sort "+body.Sort)
		return
	}

	c := model.DefaultCriteria()
	setIfGiven(&c.Region, body.Region)
	setIfGiven(&c.Category, body.Category)
	setIfGiven(&c.Type, strings.ToLower(body.Type))
	setIfGiven(&c.Payment, strings.ToLower(body.Payment))
	setIfGiven(&c.Document, strings.ToLower(body.Document))
	c.Query = body.Query
	c.Sort = sort

	st.SetCriteria(r.Context(), c)
	writeJSON(w, http.StatusOK, toPageResponse(sess.ID, st.Page()))
}

// SetSearch changes only the free-text query.
// PUT /api/sessions/{id}/search
func (h *Handler) SetSearch(w http.ResponseWriter, r *http.Request) {
	sess, st, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var body searchRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	st.SetSearch(r.Context(), body.Query)
	writeJSON(w, http.StatusOK, toPageResponse(sess.ID, st.Page()))
}

// LoadMore reveals the next page. A request that cannot load anything
// returns the unchanged page with 200.
// POST /api/sessions/{id}/more
func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	sess, st, ok := h.resolve(w, r)
	if !ok {
		return
	}
	st.LoadMore(r.Context())
	writeJSON(w, http.StatusOK, toPageResponse(sess.ID, st.Page()))
}

// Refresh refetches the session's feed. On failure the previous list is
// returned with a 502 status and the error message.
// POST /api/sessions/{id}/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	sess, st, ok := h.resolve(w, r)
	if !ok {
		return
	}

	status := http.StatusOK
	if err := st.Refresh(r.Context()); err != nil {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, toPageResponse(sess.ID, st.Page()))
}

// DeleteSession ends a session.
// DELETE /api/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolve looks up the session and the feed selected by the optional feed
// query parameter. A feed opened for the first time is loaded.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*session.Session, *feed.State, bool) {
	sess, ok := h.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return nil, nil, false
	}

	name := r.URL.Query().Get("feed")
	if name == "" {
		return sess, sess.Active(), true
	}
	kind, ok := feed.ParseKind(name)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_feed", "unknown feed "+name)
		return nil, nil, false
	}
	if kind == feed.KindFollows && sess.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_required", "the follows feed needs a user_id")
		return nil, nil, false
	}

	st := sess.SetActive(kind)
	if p := st.Page(); !p.Loaded && !p.Loading && p.Err == nil {
		if err := st.Refresh(r.Context()); err != nil {
			h.log.Warn("refresh on open failed", "session_id", sess.ID, "feed", kind, "error", err)
		}
	}
	return sess, st, true
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func setIfGiven(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}
