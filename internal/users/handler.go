package users

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rentiva/rentiva/internal/access"
	"github.com/rentiva/rentiva/internal/platform/httpx"
)

// Handler exposes user administration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the users handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers user routes. Account creation is rate limited.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users", h.list)
	r.Get("/users/{userID}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute))
		r.Post("/users", h.create)
		r.Put("/users/{userID}/role", h.changeRole)
	})
}

type createUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Role      string `json:"role" validate:"required"`
	CompanyID string `json:"companyId" validate:"omitempty,uuid4"`
	Password  string `json:"password" validate:"required,min=8"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := access.IdentityFromContext(r.Context())
	rows, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.respondServiceError(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor := access.IdentityFromContext(r.Context())
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "userID must be a UUID")
		return
	}
	user, err := h.service.Get(r.Context(), actor, userID)
	if err != nil {
		h.respondServiceError(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor := access.IdentityFromContext(r.Context())

	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}

	var companyID *uuid.UUID
	if req.CompanyID != "" {
		parsed, err := uuid.Parse(req.CompanyID)
		if err != nil {
			httpx.ValidationProblem(w, "companyId must be a UUID")
			return
		}
		companyID = &parsed
	}

	created, err := h.service.Create(r.Context(), actor, NewUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      access.Role(req.Role),
		CompanyID: companyID,
		Password:  req.Password,
	})
	if err != nil {
		h.respondServiceError(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	actor := access.IdentityFromContext(r.Context())
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "userID must be a UUID")
		return
	}

	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}

	updated, err := h.service.ChangeRole(r.Context(), actor, userID, access.Role(req.Role))
	if err != nil {
		h.respondServiceError(w, "change user role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrDenied):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrDuplicateEmail):
		httpx.RespondError(w, httpx.ErrDuplicate)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
