package movements

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint/internal/ledger"
	"github.com/tillpoint/tillpoint/internal/platform/httpx"
)

// SaveMetrics counts save outcomes. Optional.
type SaveMetrics interface {
	ObserveSave(outcome string)
}

// Handler wires the movement endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  SaveMetrics
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, metrics SaveMetrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		metrics:  metrics,
	}
}

// MountRoutes registers HTTP routes for the movements module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/movements", h.handleSave)
	r.Get("/balances", h.handleBalances)
	r.Get("/balances/detailed", h.handleDetailed)
	r.Get("/duplicates", h.handleDuplicates)
}

type saveRequest struct {
	SessionID   string                     `json:"session_id" validate:"omitempty,uuid"`
	Type        string                     `json:"type" validate:"required"`
	Total       decimal.Decimal            `json:"total" validate:"required"`
	Method      string                     `json:"method"`
	Split       map[string]decimal.Decimal `json:"split"`
	Description string                     `json:"description" validate:"max=500"`
	ReferenceID string                     `json:"reference_id" validate:"omitempty,uuid"`
	OccurredAt  *time.Time                 `json:"occurred_at"`
	Force       bool                       `json:"force"`
}

type savedResponse struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	OccurredAt time.Time `json:"occurred_at"`
}

type confirmationResponse struct {
	State   string `json:"state"`
	Message string `json:"message"`
	MatchID string `json:"match_id"`
}

func (h *Handler) observe(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveSave(outcome)
	}
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := SaveInput{
		Type:         req.Type,
		Total:        req.Total,
		LegacyMethod: req.Method,
		Split:        req.Split,
		Description:  req.Description,
		Force:        req.Force,
	}
	if req.SessionID != "" {
		input.SessionID = uuid.MustParse(req.SessionID)
	}
	if req.ReferenceID != "" {
		ref := uuid.MustParse(req.ReferenceID)
		input.ReferenceID = &ref
	}
	if req.OccurredAt != nil {
		input.OccurredAt = *req.OccurredAt
	}

	outcome, err := h.service.Save(r.Context(), input)
	switch outcome.Result.State {
	case ledger.StateInvalid:
		h.observe("invalid")
		verr := outcome.Result.Err
		httpx.ProblemCode(w, http.StatusBadRequest, "Validation Failed", verr.Detail, string(verr.Code))
		return
	case ledger.StateNeedsConfirmation:
		h.observe("needs_confirmation")
		httpx.JSON(w, http.StatusConflict, confirmationResponse{
			State:   string(ledger.StateNeedsConfirmation),
			Message: outcome.Result.Warning.Message,
			MatchID: outcome.Result.Warning.Match.ID.String(),
		})
		return
	}
	if err != nil {
		h.observe("error")
		h.logger.Error("save movement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.observe("saved")
	httpx.JSON(w, http.StatusCreated, savedResponse{
		ID:         outcome.Movement.ID.String(),
		State:      string(ledger.StateSaved),
		OccurredAt: outcome.Movement.OccurredAt,
	})
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	granularity := ledger.Granularity("")
	if raw := r.URL.Query().Get("granularity"); raw != "" {
		parsed, err := ledger.ParseGranularity(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		granularity = parsed
	}

	ref := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
			return
		}
		ref = parsed
	}

	report, err := h.service.Balances(r.Context(), granularity, ref)
	if err != nil {
		h.logger.Error("balances", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleDetailed(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.service.DetailedTotals(r.Context())
	if err != nil {
		h.logger.Error("detailed totals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, breakdown)
}

func (h *Handler) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.Duplicates(r.Context())
	if err != nil {
		h.logger.Error("duplicates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reports)
}
