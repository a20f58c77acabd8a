package rentals

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rentiva/rentiva/internal/access"
	"github.com/rentiva/rentiva/internal/platform/httpx"
)

// Handler exposes rental endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the rentals handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers rental routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rentals", h.list)
	r.Get("/rentals/{rentalID}", h.get)
	r.Post("/rentals", h.create)
	r.Post("/rentals/{rentalID}/approve", h.approve)
	r.Post("/rentals/{rentalID}/cancel", h.cancel)
}

type createRentalRequest struct {
	VehicleID  string  `json:"vehicleId" validate:"required,uuid4"`
	CustomerID string  `json:"customerId" validate:"required,uuid4"`
	CompanyID  string  `json:"companyId" validate:"required,uuid4"`
	StartDate  string  `json:"startDate" validate:"required"`
	EndDate    string  `json:"endDate" validate:"required"`
	TotalPrice float64 `json:"totalPrice" validate:"gte=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id := access.IdentityFromContext(r.Context())
	rows, err := h.service.List(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "list rentals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := access.IdentityFromContext(r.Context())
	rentalID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rental, err := h.service.Get(r.Context(), id, rentalID)
	if err != nil {
		h.respondServiceError(w, "get rental", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rental)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id := access.IdentityFromContext(r.Context())

	var req createRentalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}

	rental, err := rentalFromRequest(req)
	if err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), id, rental)
	if err != nil {
		h.respondServiceError(w, "create rental", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id := access.IdentityFromContext(r.Context())
	rentalID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rental, err := h.service.Approve(r.Context(), id, rentalID)
	if err != nil {
		h.respondServiceError(w, "approve rental", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rental)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id := access.IdentityFromContext(r.Context())
	rentalID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rental, err := h.service.Cancel(r.Context(), id, rentalID)
	if err != nil {
		h.respondServiceError(w, "cancel rental", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rental)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	rentalID, err := uuid.Parse(chi.URLParam(r, "rentalID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "rentalID must be a UUID")
		return uuid.Nil, false
	}
	return rentalID, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrDenied):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidPeriod):
		httpx.ValidationProblem(w, err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func rentalFromRequest(req createRentalRequest) (Rental, error) {
	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return Rental{}, errors.New("vehicleId must be a UUID")
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return Rental{}, errors.New("customerId must be a UUID")
	}
	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		return Rental{}, errors.New("companyId must be a UUID")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return Rental{}, errors.New("startDate must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return Rental{}, errors.New("endDate must be YYYY-MM-DD")
	}
	return Rental{
		VehicleID:  vehicleID,
		CustomerID: customerID,
		CompanyID:  companyID,
		StartDate:  start,
		EndDate:    end,
		TotalPrice: req.TotalPrice,
	}, nil
}
