package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"compass/internal/audit"
	"compass/internal/retention"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/platform/httputil"
	"compass/pkg/requestcontext"
)

// Service defines the deletion lifecycle operations the transport needs.
type Service interface {
	RequestDeletion(ctx context.Context, userID id.UserID) (*retention.DeletionOutcome, error)
	RunDue(ctx context.Context) (*retention.BatchResult, error)
	ListPending(ctx context.Context, limit int) ([]*retention.PendingDeletion, error)
}

// AuditRecorder writes the manual-trigger entry for operator-started sweeps.
type AuditRecorder interface {
	Record(ctx context.Context, actor *id.UserID, action audit.Action, origin string, details map[string]any) error
}

// Handler serves the self-service deletion endpoint and the admin retention
// surface.
type Handler struct {
	retention Service
	audit     AuditRecorder
	logger    *slog.Logger
}

// New creates a new retention Handler.
func New(retention Service, audit AuditRecorder, logger *slog.Logger) *Handler {
	return &Handler{retention: retention, audit: audit, logger: logger}
}

// RegisterSelfService registers the end-user route. The caller is expected
// to have wrapped the router with session authentication.
func (h *Handler) RegisterSelfService(r chi.Router) {
	r.Post("/me/deletion", h.handleSelfDeletion)
}

// RegisterAdmin registers the operator routes. The caller is expected to
// have wrapped the router with admin token enforcement.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/retention/run", h.handleManualRun)
	r.Get("/admin/retention/pending", h.handleListPending)
}

type deletionResponse struct {
	Deleted      bool   `json:"deleted"`
	Immediate    bool   `json:"immediate"`
	DeletionDate string `json:"deletionDate,omitempty"`
}

func (h *Handler) handleSelfDeletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	outcome, err := h.retention.RequestDeletion(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "deletion request failed", "user_id", userID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	resp := deletionResponse{Deleted: true, Immediate: outcome.Immediate}
	if outcome.DeletionDate != nil {
		resp.DeletionDate = outcome.DeletionDate.UTC().Format(time.RFC3339)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleManualRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The trigger itself is audit-worthy even if the sweep then fails.
	_ = h.audit.Record(ctx, nil, audit.ActionManualTrigger, audit.OriginAdmin, map[string]any{
		"client_ip": requestcontext.ClientIP(ctx),
	})

	result, err := h.retention.RunDue(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual sweep failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{"deleted": result.Processed})
}

type pendingResponse struct {
	UserID       string    `json:"user_id"`
	DeletionDate time.Time `json:"deletion_date"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	rows, err := h.retention.ListPending(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "pending listing failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	out := make([]pendingResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, pendingResponse{
			UserID:       row.UserID.String(),
			DeletionDate: row.DeletionDate,
			CreatedAt:    row.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"pending": out})
}
