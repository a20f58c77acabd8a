package access

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/rentiva/rentiva/internal/platform/httpx"
)

// GrantStore is the slice of the store the handler needs.
type GrantStore interface {
	Grants(ctx context.Context, userID uuid.UUID) ([]Grant, error)
	GrantsForCompany(ctx context.Context, companyID uuid.UUID) ([]Grant, error)
	CompanyIDs(ctx context.Context) ([]uuid.UUID, error)
	UpsertGrant(ctx context.Context, userID, companyID uuid.UUID, perms CompanyPermissions) error
	DeleteGrant(ctx context.Context, userID, companyID uuid.UUID) error
}

// Handler exposes grant administration over HTTP.
type Handler struct {
	logger   *slog.Logger
	store    GrantStore
	validate *validator.Validate
	collator *collate.Collator
}

// NewHandler constructs the grants handler.
func NewHandler(logger *slog.Logger, store GrantStore) *Handler {
	return &Handler{
		logger:   logger,
		store:    store,
		validate: validator.New(),
		collator: collate.New(language.Make("sk"), collate.IgnoreCase),
	}
}

// MountRoutes registers grant routes under the given router. Mutations are
// rate limited per caller.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users/{userID}/grants", h.listGrants)
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Put("/users/{userID}/grants/{companyID}", h.upsertGrant)
		r.Delete("/users/{userID}/grants/{companyID}", h.deleteGrant)
	})
	r.Get("/companies/{companyID}/grants", h.listCompanyGrants)
	r.Get("/companies", h.listCompanies)
}

type grantView struct {
	CompanyID   string             `json:"companyId"`
	CompanyName string             `json:"companyName,omitempty"`
	UserID      string             `json:"userId"`
	Permissions CompanyPermissions `json:"permissions"`
	GrantedAt   time.Time          `json:"grantedAt"`
}

type upsertGrantRequest struct {
	Permissions *CompanyPermissions `json:"permissions" validate:"required"`
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	actor := IdentityFromContext(r.Context())
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	// Users read their own grants and elevated actors read anyone's.
	// A company admin may look at another user, but only at the grants
	// inside their own company.
	full := IsElevated(actor.Role) || actor.UserID == userID
	companyOnly := !full && actor.Role == RoleCompanyAdmin && actor.CompanyID != uuid.Nil
	if !full && !companyOnly {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}

	grants, err := h.store.Grants(r.Context(), userID)
	if err != nil {
		h.logger.Error("list grants", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if companyOnly {
		scoped := make([]Grant, 0, 1)
		for _, g := range grants {
			if g.CompanyID == actor.CompanyID {
				scoped = append(scoped, g)
			}
		}
		grants = scoped
	}

	// Grant listings are presented ordered by company name with locale
	// rules, matching how companies appear elsewhere in the UI.
	sort.SliceStable(grants, func(i, j int) bool {
		return h.collator.CompareString(grants[i].CompanyName, grants[j].CompanyName) < 0
	})

	views := make([]grantView, 0, len(grants))
	for _, g := range grants {
		views = append(views, grantView{
			CompanyID:   g.CompanyID.String(),
			CompanyName: g.CompanyName,
			UserID:      g.UserID.String(),
			Permissions: g.Permissions,
			GrantedAt:   g.GrantedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) listCompanyGrants(w http.ResponseWriter, r *http.Request) {
	actor := IdentityFromContext(r.Context())
	companyID, ok := h.pathID(w, r, "companyID")
	if !ok {
		return
	}
	if !h.mayAdminister(actor, companyID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}

	grants, err := h.store.GrantsForCompany(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list company grants", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]grantView, 0, len(grants))
	for _, g := range grants {
		views = append(views, grantView{
			CompanyID:   g.CompanyID.String(),
			UserID:      g.UserID.String(),
			Permissions: g.Permissions,
			GrantedAt:   g.GrantedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, views)
}

// listCompanies returns every company ID. Elevated roles use it to expand
// "sees everything" into a concrete list when building grant forms.
func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	actor := IdentityFromContext(r.Context())
	if !IsElevated(actor.Role) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}

	ids, err := h.store.CompanyIDs(r.Context())
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) upsertGrant(w http.ResponseWriter, r *http.Request) {
	actor := IdentityFromContext(r.Context())
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	companyID, ok := h.pathID(w, r, "companyID")
	if !ok {
		return
	}
	if !h.mayAdminister(actor, companyID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}

	var req upsertGrantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err.Error())
		return
	}

	if err := h.store.UpsertGrant(r.Context(), userID, companyID, *req.Permissions); err != nil {
		h.logger.Error("upsert grant", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) deleteGrant(w http.ResponseWriter, r *http.Request) {
	actor := IdentityFromContext(r.Context())
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	companyID, ok := h.pathID(w, r, "companyID")
	if !ok {
		return
	}
	if !h.mayAdminister(actor, companyID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}

	if err := h.store.DeleteGrant(r.Context(), userID, companyID); err != nil {
		h.logger.Error("delete grant", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// mayAdminister limits grant administration to elevated actors and company
// admins acting inside their own company.
func (h *Handler) mayAdminister(actor Identity, companyID uuid.UUID) bool {
	if IsElevated(actor.Role) {
		return true
	}
	return actor.Role == RoleCompanyAdmin && actor.CompanyID == companyID
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", param+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
