package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gdpgate/internal/domain"
	"gdpgate/internal/ruledata"
	"gdpgate/internal/validation"
	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/platform/httputil"
	"gdpgate/pkg/platform/sentinel"
	"gdpgate/pkg/requestcontext"
)

// Service is the validation operation surface the handler needs.
type Service interface {
	Validate(ctx context.Context, tx *domain.Transaction, overrideJustification string) (*validation.Verdict, error)
}

// Handler wires validation endpoints to the orchestrator.
type Handler struct {
	service  Service
	profiles ruledata.ProfileStore
	licences ruledata.LicenceStore
	logger   *slog.Logger
}

// New constructs a validation handler with its dependencies.
func New(service Service, profiles ruledata.ProfileStore, licences ruledata.LicenceStore, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		profiles: profiles,
		licences: licences,
		logger:   logger,
	}
}

// Register mounts validation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/transactions/validate", h.HandleValidate)
	r.Post("/warehouse/operations/validate", h.HandleWarehouseValidate)
	r.Get("/customers/{account}/compliance-status", h.HandleComplianceStatus)
}

// verdictResponse is the wire form of a verdict.
type verdictResponse struct {
	Status            string              `json:"status"`
	Violations        []violationResponse `json:"violations"`
	WarningBand       bool                `json:"warning_band,omitempty"`
	OverrideRequestID string              `json:"override_request_id,omitempty"`
}

type violationResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toVerdictResponse(v *validation.Verdict) verdictResponse {
	resp := verdictResponse{
		Status:            string(v.Status),
		Violations:        []violationResponse{},
		WarningBand:       v.WarningBand,
		OverrideRequestID: v.OverrideRequestID,
	}
	for _, violation := range v.Violations {
		resp.Violations = append(resp.Violations, violationResponse{
			Code:    string(violation.Code),
			Message: violation.Message,
		})
	}
	return resp
}

// HandleValidate handles POST /transactions/validate.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := httputil.Decode[ValidateRequest](w, r, h.logger)
	if !ok {
		return
	}
	tx, err := req.ToTransaction()
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	verdict, err := h.service.Validate(ctx, tx, req.OverrideJustification)
	if err != nil {
		h.logger.ErrorContext(ctx, "transaction validation failed",
			"request_id", requestcontext.RequestID(ctx),
			"transaction_id", tx.ExternalID,
			"error", err,
		)
		httputil.WriteError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "transaction validated",
		"request_id", requestcontext.RequestID(ctx),
		"transaction_id", tx.ExternalID,
		"status", string(verdict.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, verdictStatusCode(verdict.Status), toVerdictResponse(verdict))
}

// HandleWarehouseValidate handles POST /warehouse/operations/validate.
func (h *Handler) HandleWarehouseValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[WarehouseOperationRequest](w, r, h.logger)
	if !ok {
		return
	}
	tx, err := req.ToTransaction()
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	verdict, err := h.service.Validate(ctx, tx, "")
	if err != nil {
		h.logger.ErrorContext(ctx, "warehouse operation validation failed",
			"request_id", requestcontext.RequestID(ctx),
			"operation_id", tx.ExternalID,
			"error", err,
		)
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, verdictStatusCode(verdict.Status), toVerdictResponse(verdict))
}

// complianceStatusResponse summarizes a customer's compliance standing.
type complianceStatusResponse struct {
	Account            string     `json:"account"`
	DataArea           string     `json:"data_area"`
	ApprovalStatus     string     `json:"approval_status"`
	GDPStatus          string     `json:"gdp_status"`
	Suspended          bool       `json:"suspended"`
	NextReverification *time.Time `json:"next_reverification,omitempty"`
	CurrentLicences    []string   `json:"current_licences"`
}

// HandleComplianceStatus handles GET /customers/{account}/compliance-status.
// The data area defaults to the query parameter or "default".
func (h *Handler) HandleComplianceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := domain.CustomerKey{
		Account:  chi.URLParam(r, "account"),
		DataArea: r.URL.Query().Get("data_area"),
	}
	if key.DataArea == "" {
		key.DataArea = "default"
	}

	profile, err := h.profiles.FindByCustomer(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, r, dErrors.New(dErrors.CodeNotFound, "customer profile not found"))
			return
		}
		httputil.WriteError(w, r, dErrors.Wrap(err, dErrors.CodeExternalUnavailable, "customer profile lookup failed"))
		return
	}

	licences, err := h.licences.ListByHolder(ctx, key)
	if err != nil {
		httputil.WriteError(w, r, dErrors.Wrap(err, dErrors.CodeExternalUnavailable, "licence lookup failed"))
		return
	}

	resp := complianceStatusResponse{
		Account:            key.Account,
		DataArea:           key.DataArea,
		ApprovalStatus:     string(profile.ApprovalStatus),
		GDPStatus:          string(profile.GDPStatus),
		Suspended:          profile.Suspended,
		NextReverification: profile.NextReverification,
		CurrentLicences:    []string{},
	}
	now := requestcontext.Now(ctx)
	for _, l := range licences {
		if l.IsCurrent(now) {
			resp.CurrentLicences = append(resp.CurrentLicences, l.Number)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// verdictStatusCode maps verdicts to HTTP statuses: Valid and
// OverrideRequired/Approved return 200 with the body; Invalid is a policy
// rejection reported as 422.
func verdictStatusCode(status domain.ValidationStatus) int {
	if status == domain.StatusInvalid {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}
