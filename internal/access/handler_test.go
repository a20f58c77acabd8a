package access

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type stubGrantStore struct {
	grants map[uuid.UUID][]Grant
	err    error
}

func (s *stubGrantStore) Grants(ctx context.Context, userID uuid.UUID) ([]Grant, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.grants[userID], nil
}

func (s *stubGrantStore) GrantsForCompany(ctx context.Context, companyID uuid.UUID) ([]Grant, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Grant
	for _, grants := range s.grants {
		for _, g := range grants {
			if g.CompanyID == companyID {
				out = append(out, g)
			}
		}
	}
	return out, nil
}

func (s *stubGrantStore) CompanyIDs(ctx context.Context) ([]uuid.UUID, error) {
	return nil, s.err
}

func (s *stubGrantStore) UpsertGrant(ctx context.Context, userID, companyID uuid.UUID, perms CompanyPermissions) error {
	return s.err
}

func (s *stubGrantStore) DeleteGrant(ctx context.Context, userID, companyID uuid.UUID) error {
	return s.err
}

func listGrantsRequest(t *testing.T, store GrantStore, actor Identity, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	NewHandler(logger, store).MountRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/users/"+userID.String()+"/grants", nil)
	req = req.WithContext(ContextWithIdentity(req.Context(), actor))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func decodeGrantViews(t *testing.T, res *httptest.ResponseRecorder) []grantView {
	t.Helper()
	var views []grantView
	if err := json.Unmarshal(res.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return views
}

func TestListGrantsSelfSeesAllCompanies(t *testing.T) {
	userID := uuid.New()
	store := &stubGrantStore{grants: map[uuid.UUID][]Grant{
		userID: {
			{UserID: userID, CompanyID: uuid.New(), CompanyName: "Alfa", GrantedAt: time.Now()},
			{UserID: userID, CompanyID: uuid.New(), CompanyName: "Beta", GrantedAt: time.Now()},
		},
	}}
	actor := Identity{UserID: userID, Role: RoleEmployee}

	res := listGrantsRequest(t, store, actor, userID)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if views := decodeGrantViews(t, res); len(views) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(views))
	}
}

func TestListGrantsElevatedSeesAnyUser(t *testing.T) {
	userID := uuid.New()
	store := &stubGrantStore{grants: map[uuid.UUID][]Grant{
		userID: {{UserID: userID, CompanyID: uuid.New(), CompanyName: "Alfa"}},
	}}
	actor := Identity{UserID: uuid.New(), Role: RoleAdmin}

	res := listGrantsRequest(t, store, actor, userID)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if views := decodeGrantViews(t, res); len(views) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(views))
	}
}

func TestListGrantsCompanyAdminScopedToOwnCompany(t *testing.T) {
	userID := uuid.New()
	own := uuid.New()
	other := uuid.New()
	store := &stubGrantStore{grants: map[uuid.UUID][]Grant{
		userID: {
			{UserID: userID, CompanyID: own, CompanyName: "Own"},
			{UserID: userID, CompanyID: other, CompanyName: "Other"},
		},
	}}
	actor := Identity{UserID: uuid.New(), Role: RoleCompanyAdmin, CompanyID: own}

	res := listGrantsRequest(t, store, actor, userID)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	views := decodeGrantViews(t, res)
	if len(views) != 1 {
		t.Fatalf("expected only the own-company grant, got %d grants", len(views))
	}
	if views[0].CompanyID != own.String() {
		t.Fatalf("expected company %s, got %s", own, views[0].CompanyID)
	}
}

func TestListGrantsCompanyAdminWithoutBindingForbidden(t *testing.T) {
	userID := uuid.New()
	store := &stubGrantStore{grants: map[uuid.UUID][]Grant{
		userID: {{UserID: userID, CompanyID: uuid.New()}},
	}}
	actor := Identity{UserID: uuid.New(), Role: RoleCompanyAdmin}

	res := listGrantsRequest(t, store, actor, userID)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestListGrantsOtherUserForbidden(t *testing.T) {
	userID := uuid.New()
	store := &stubGrantStore{grants: map[uuid.UUID][]Grant{
		userID: {{UserID: userID, CompanyID: uuid.New()}},
	}}
	actor := Identity{UserID: uuid.New(), Role: RoleEmployee, CompanyID: uuid.New()}

	res := listGrantsRequest(t, store, actor, userID)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}
