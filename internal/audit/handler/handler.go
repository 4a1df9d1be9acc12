package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"compass/internal/audit"
	"compass/internal/audit/store"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/platform/httputil"
)

// Service defines the audit operations the admin surface needs.
type Service interface {
	List(ctx context.Context, filter store.Filter) ([]*audit.Entry, error)
}

// Handler serves the admin audit listing.
type Handler struct {
	audit  Service
	logger *slog.Logger
}

// New creates a new audit Handler.
func New(audit Service, logger *slog.Logger) *Handler {
	return &Handler{audit: audit, logger: logger}
}

// Register registers the audit routes with the chi router. The caller is
// expected to have wrapped the router with admin token enforcement.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/audit", h.handleList)
}

type entryResponse struct {
	ID        string         `json:"id"`
	ActorID   *string        `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Origin    string         `json:"origin"`
	CreatedAt time.Time      `json:"created_at"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.audit.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit listing failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		resp := entryResponse{
			ID:        entry.ID.String(),
			Action:    string(entry.Action),
			Details:   entry.Details,
			Origin:    entry.Origin,
			CreatedAt: entry.CreatedAt,
		}
		if entry.ActorID != nil {
			actor := entry.ActorID.String()
			resp.ActorID = &actor
		}
		out = append(out, resp)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func filterFromQuery(r *http.Request) (store.Filter, error) {
	var filter store.Filter

	if action := r.URL.Query().Get("action"); action != "" {
		filter.Action = audit.Action(action)
	}
	if actor := r.URL.Query().Get("actor"); actor != "" {
		actorID, err := id.ParseUserID(actor)
		if err != nil {
			return store.Filter{}, dErrors.New(dErrors.CodeBadRequest, "invalid actor id")
		}
		filter.ActorID = &actorID
	}
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit <= 0 {
			return store.Filter{}, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}
