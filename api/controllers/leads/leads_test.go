package leads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhub/eventhub-backend/api/middleware"
	internalleads "github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/pkg/auth"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
)

type stubLeads struct {
	list func(ctx context.Context, params internalleads.ListParams) (*internalleads.ListResult, error)
	get  func(ctx context.Context, vendorID, leadID uuid.UUID) (*models.Lead, error)
}

func (s *stubLeads) ListForVendor(ctx context.Context, params internalleads.ListParams) (*internalleads.ListResult, error) {
	return s.list(ctx, params)
}

func (s *stubLeads) Get(ctx context.Context, vendorID, leadID uuid.UUID) (*models.Lead, error) {
	return s.get(ctx, vendorID, leadID)
}

func serve(method, pattern, target string, actor *auth.Actor, handler http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, handler)
	req := httptest.NewRequest(method, target, nil)
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func vendorActor() auth.Actor {
	vendorID := uuid.New()
	return auth.Actor{UserID: uuid.New(), VendorID: &vendorID, Role: enums.ActorRoleVendor}
}

func TestVendorListScopesToVendor(t *testing.T) {
	actor := vendorActor()
	svc := &stubLeads{list: func(ctx context.Context, params internalleads.ListParams) (*internalleads.ListResult, error) {
		assert.Equal(t, *actor.VendorID, params.VendorID)
		assert.Equal(t, "converted", params.Status)
		assert.Equal(t, 5, params.Limit)
		return &internalleads.ListResult{Items: []internalleads.LeadDTO{{ID: uuid.New(), Name: "Asha Rao"}}, Cursor: "next"}, nil
	}}

	rec := serve(http.MethodGet, "/vendor/leads", "/vendor/leads?status=converted&limit=5", &actor, VendorList(svc, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Asha Rao")
	assert.Contains(t, rec.Body.String(), `"cursor":"next"`)
}

func TestVendorListRejectsOversizedLimit(t *testing.T) {
	actor := vendorActor()
	rec := serve(http.MethodGet, "/vendor/leads", "/vendor/leads?limit=1000", &actor, VendorList(&stubLeads{}, nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVendorListForbiddenForCustomer(t *testing.T) {
	actor := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	rec := serve(http.MethodGet, "/vendor/leads", "/vendor/leads", &actor, VendorList(&stubLeads{}, nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVendorDetail(t *testing.T) {
	actor := vendorActor()
	leadID := uuid.New()
	svc := &stubLeads{get: func(ctx context.Context, vendorID, id uuid.UUID) (*models.Lead, error) {
		assert.Equal(t, leadID, id)
		return &models.Lead{ID: id, VendorID: vendorID, Name: "Asha Rao", Status: enums.LeadStatusQuoted, Source: enums.LeadSourceOffer}, nil
	}}

	rec := serve(http.MethodGet, "/vendor/leads/{leadId}", "/vendor/leads/"+leadID.String(), &actor, VendorDetail(svc, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"quoted"`)
}

func TestVendorDetailNotFound(t *testing.T) {
	actor := vendorActor()
	svc := &stubLeads{get: func(context.Context, uuid.UUID, uuid.UUID) (*models.Lead, error) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}}

	rec := serve(http.MethodGet, "/vendor/leads/{leadId}", "/vendor/leads/"+uuid.NewString(), &actor, VendorDetail(svc, nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}
