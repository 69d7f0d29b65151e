package till

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
)

// Handler wires the session endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers HTTP routes for the till module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sessions", h.handleOpen)
	r.Get("/sessions/{id}", h.handleGet)
	r.Post("/sessions/{id}/close", h.handleClose)
}

type openRequest struct {
	Register     int             `json:"register" validate:"min=0"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

type closeRequest struct {
	DeclaredAmount decimal.Decimal `json:"declared_amount"`
	Notes          string          `json:"notes" validate:"max=500"`
}

type sessionResponse struct {
	ID             string     `json:"id"`
	Register       int        `json:"register"`
	OpeningFloat   string     `json:"opening_float"`
	ExpectedAmount *string    `json:"expected_amount,omitempty"`
	DeclaredAmount *string    `json:"declared_amount,omitempty"`
	Deviation      *string    `json:"deviation,omitempty"`
	DeviationPct   *string    `json:"deviation_pct,omitempty"`
	DeviationClass *string    `json:"deviation_class,omitempty"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

func toResponse(s Session) sessionResponse {
	return sessionResponse{
		ID:             s.ID.String(),
		Register:       s.Register,
		OpeningFloat:   s.OpeningFloat.StringFixed(2),
		ExpectedAmount: decimalText(s.ExpectedAmount),
		DeclaredAmount: decimalText(s.DeclaredAmount),
		Deviation:      decimalText(s.Deviation),
		DeviationPct:   decimalText(s.DeviationPct),
		DeviationClass: classText(s.DeviationClass),
		Status:         string(s.Status),
		Notes:          s.Notes,
		OpenedAt:       s.OpenedAt,
		ClosedAt:       s.ClosedAt,
	}
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrRegisterBusy), errors.Is(err, ErrSessionClosed):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNegativeFloat), errors.Is(err, ErrNegativeDeclared):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("till handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	session, err := h.service.Open(r.Context(), req.Register, req.OpeningFloat)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(session))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid session id")
		return
	}
	session, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(session))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid session id")
		return
	}
	var req closeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	session, err := h.service.Close(r.Context(), id, req.DeclaredAmount, req.Notes)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(session))
}
