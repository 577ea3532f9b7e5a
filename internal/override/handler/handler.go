package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gdpgate/internal/domain"
	"gdpgate/internal/override"
	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/platform/httputil"
	"gdpgate/pkg/requestcontext"
)

// Service is the override operation surface the handler needs.
type Service interface {
	Submit(ctx context.Context, transactionID string, violations []domain.Violation, justification, requestedBy string, now time.Time) (*override.Request, error)
	Get(ctx context.Context, id override.ID) (*override.Request, error)
	Approve(ctx context.Context, id override.ID, actor domain.Actor, now time.Time) (*override.Request, error)
	Reject(ctx context.Context, id override.ID, actor domain.Actor, reason string, now time.Time) (*override.Request, error)
}

// Handler wires override decision endpoints to the state machine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts override endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/overrides", h.HandleSubmit)
	r.Get("/overrides/{id}", h.HandleGet)
	r.Post("/overrides/{id}/approve", h.HandleApprove)
	r.Post("/overrides/{id}/reject", h.HandleReject)
}

// SubmitRequest creates an override for a violating transaction explicitly,
// carrying the submitter's justification.
type SubmitRequest struct {
	TransactionID string `json:"transaction_id"`
	Justification string `json:"justification"`
	Violations    []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"violations"`
}

// DecisionRequest carries an approve/reject decision.
type DecisionRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[SubmitRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.TransactionID == "" {
		httputil.WriteError(w, r, dErrors.New(dErrors.CodeValidation, "transaction_id is required"))
		return
	}
	violations := make([]domain.Violation, 0, len(req.Violations))
	for _, v := range req.Violations {
		violations = append(violations, domain.Violation{
			Code:     domain.ViolationCode(v.Code),
			Message:  v.Message,
			Blocking: true,
		})
	}

	result, err := h.service.Submit(ctx, req.TransactionID, violations, req.Justification,
		requestcontext.ActorID(ctx), requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := override.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	result, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := override.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	result, err := h.service.Approve(ctx, id, actor, requestcontext.Now(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "override approval refused",
			"request_id", requestcontext.RequestID(ctx),
			"override_id", id.String(),
			"actor", actor.ID,
			"error", err,
		)
		httputil.WriteError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "override approval recorded",
		"request_id", requestcontext.RequestID(ctx),
		"override_id", id.String(),
		"state", string(result.State),
		"actor", actor.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := override.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	actor, err := actorFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	req, ok := httputil.Decode[DecisionRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Reject(ctx, id, actor, req.Reason, requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "override rejected",
		"request_id", requestcontext.RequestID(ctx),
		"override_id", id.String(),
		"actor", actor.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// actorFromContext builds the decision actor from the authenticated identity.
// The raw role claim is parsed into the closed role enum here, at the
// boundary.
func actorFromContext(ctx context.Context) (domain.Actor, error) {
	actorID := requestcontext.ActorID(ctx)
	if actorID == "" {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	role, err := domain.ParseApproverRole(requestcontext.ActorRole(ctx))
	if err != nil {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "actor role is not recognized")
	}
	return domain.Actor{ID: actorID, Role: role}, nil
}
