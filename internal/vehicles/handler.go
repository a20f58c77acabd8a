package vehicles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rentiva/rentiva/internal/access"
	"github.com/rentiva/rentiva/internal/platform/httpx"
	"github.com/rentiva/rentiva/internal/shared"
)

// Handler exposes vehicle endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the vehicles handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers vehicle routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/vehicles", h.list)
	r.Get("/vehicles/{vehicleID}", h.get)
	r.Post("/vehicles", h.create)
}

type createVehicleRequest struct {
	LicensePlate   string `json:"licensePlate" validate:"required"`
	Brand          string `json:"brand" validate:"required"`
	Model          string `json:"model" validate:"required"`
	Year           int    `json:"year" validate:"omitempty,gte=1950,lte=2100"`
	OwnerCompanyID string `json:"ownerCompanyId" validate:"required,uuid4"`
}

type listResponse struct {
	Data       []Vehicle         `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id := access.IdentityFromContext(r.Context())
	includeRemoved := r.URL.Query().Get("includeRemoved") == "true"

	rows, err := h.service.List(r.Context(), id, includeRemoved)
	if err != nil {
		h.respondServiceError(w, "list vehicles", err)
		return
	}

	page, perPage := pageParams(r)
	paging := shared.NewPagination(page, perPage, len(rows))
	start := paging.Offset()
	if start > len(rows) {
		start = len(rows)
	}
	end := start + paging.PerPage
	if end > len(rows) {
		end = len(rows)
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: rows[start:end], Pagination: paging})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := access.IdentityFromContext(r.Context())
	vehicleID, err := uuid.Parse(chi.URLParam(r, "vehicleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "vehicleID must be a UUID")
		return
	}

	vehicle, err := h.service.Get(r.Context(), id, vehicleID)
	if err != nil {
		h.respondServiceError(w, "get vehicle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicle)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id := access.IdentityFromContext(r.Context())

	var req createVehicleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}
	ownerID, err := uuid.Parse(req.OwnerCompanyID)
	if err != nil {
		httpx.ValidationProblem(w, "ownerCompanyId must be a UUID")
		return
	}

	created, err := h.service.Create(r.Context(), id, Vehicle{
		LicensePlate:   req.LicensePlate,
		Brand:          req.Brand,
		Model:          req.Model,
		Year:           req.Year,
		OwnerCompanyID: ownerID,
	})
	if err != nil {
		h.respondServiceError(w, "create vehicle", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrDenied):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pageParams(r *http.Request) (int, int) {
	page := queryInt(r, "page")
	perPage := queryInt(r, "perPage")
	return page, perPage
}

func queryInt(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
		if n > 1_000_000 {
			return 0
		}
	}
	return n
}
