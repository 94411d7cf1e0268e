package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/proposal-api/internal/auth"
	"github.com/straye-as/proposal-api/internal/config"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/http/handler"
	"github.com/straye-as/proposal-api/internal/metrics"
	"github.com/straye-as/proposal-api/internal/repository"
	"github.com/straye-as/proposal-api/internal/service"
	"github.com/straye-as/proposal-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	router http.Handler
}

func setupTestEnv(t *testing.T) *testEnv {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	tierRepo := repository.NewVolumeTierRepository(db)
	pricingService := service.NewPricingService(
		repository.NewProposalRepository(db),
		repository.NewLineItemRepository(db),
		tierRepo,
		repository.NewPriceAuditRepository(db),
		&config.PricingConfig{ServiceVATRate: "10", FoodVATRate: "21", RateTableVersion: "test"},
		metrics.New(),
		db,
		logger,
	)
	pricingHandler := handler.NewPricingHandler(pricingService, logger)
	tierHandler := handler.NewVolumeTierHandler(service.NewVolumeTierService(tierRepo, db, logger), logger)

	r := chi.NewRouter()
	r.Route("/proposals/{id}", func(r chi.Router) {
		r.Post("/calculate", pricingHandler.Calculate)
		r.Get("/totals", pricingHandler.GetTotals)
		r.Put("/discount", pricingHandler.ApplyDiscount)
		r.Delete("/discount", pricingHandler.RemoveDiscount)
		r.Put("/pax", pricingHandler.UpdatePax)
		r.Get("/margin-analysis", pricingHandler.MarginAnalysis)
		r.Get("/audit-log", pricingHandler.AuditLog)
	})
	r.Get("/volume-discounts", tierHandler.List)
	r.Post("/volume-discounts", tierHandler.Create)
	r.Put("/volume-discounts/{tierId}", tierHandler.Update)

	return &testEnv{db: db, router: r}
}

func (e *testEnv) do(t *testing.T, user *auth.UserContext, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(auth.WithUserContext(req.Context(), user))
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

var salesUser = &auth.UserContext{UserID: "user-1", DisplayName: "Ana", Roles: []domain.UserRole{domain.RoleSales}}

func decodeTotals(t *testing.T, rr *httptest.ResponseRecorder) domain.TotalsDTO {
	t.Helper()
	var dto domain.TotalsDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&dto))
	return dto
}

func TestPricingHandler_Calculate(t *testing.T) {
	env := setupTestEnv(t)
	proposal := testutil.CreateDualVATProposal(t, env.db, 150)

	rr := env.do(t, salesUser, http.MethodPost, "/proposals/"+proposal.ID.String()+"/calculate", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	dto := decodeTotals(t, rr)
	assert.Equal(t, 6450.0, dto.TotalBase)
	assert.Equal(t, 120.0, dto.TotalVATServices)
	assert.Equal(t, 1102.5, dto.TotalVATFood)
	assert.Equal(t, 7672.5, dto.TotalFinal)
	assert.Equal(t, 37.21, dto.MarginPercentage)
	assert.True(t, dto.Persisted)
	assert.Len(t, dto.Lines, 2)
	require.NotNil(t, dto.Formatted)
	assert.Equal(t, "7672,50\u00a0€", dto.Formatted.TotalFinal)
}

func TestPricingHandler_GetTotalsPreview(t *testing.T) {
	env := setupTestEnv(t)
	proposal := testutil.CreateDualVATProposal(t, env.db, 150)

	rr := env.do(t, salesUser, http.MethodGet, "/proposals/"+proposal.ID.String()+"/totals", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decodeTotals(t, rr).Persisted)

	audit := env.do(t, salesUser, http.MethodGet, "/proposals/"+proposal.ID.String()+"/audit-log", nil)
	require.Equal(t, http.StatusOK, audit.Code)
	var page domain.PaginatedResponse
	require.NoError(t, json.NewDecoder(audit.Body).Decode(&page))
	assert.Equal(t, int64(0), page.Total)
}

func TestPricingHandler_Errors(t *testing.T) {
	env := setupTestEnv(t)
	proposal := testutil.CreateDualVATProposal(t, env.db, 150)
	base := "/proposals/" + proposal.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"bad id", http.MethodPost, "/proposals/not-a-uuid/calculate", nil, http.StatusBadRequest},
		{"unknown proposal", http.MethodPost, "/proposals/" + uuid.New().String() + "/calculate", nil, http.StatusNotFound},
		{"discount above 100", http.MethodPut, base + "/discount", map[string]interface{}{"discountPercentage": 150, "reason": "too much"}, http.StatusBadRequest},
		{"discount just above 100", http.MethodPut, base + "/discount", map[string]interface{}{"discountPercentage": 100.004, "reason": "rounds to 100"}, http.StatusBadRequest},
		{"discount not a number", http.MethodPut, base + "/discount", map[string]interface{}{"discountPercentage": "ten", "reason": "VIP client"}, http.StatusBadRequest},
		{"discount missing", http.MethodPut, base + "/discount", map[string]interface{}{"reason": "no value"}, http.StatusBadRequest},
		{"discount without reason", http.MethodPut, base + "/discount", map[string]interface{}{"discountPercentage": 10}, http.StatusBadRequest},
		{"negative pax", http.MethodPut, base + "/pax", map[string]interface{}{"pax": -1}, http.StatusBadRequest},
		{"malformed body", http.MethodPut, base + "/pax", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, salesUser, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())

			var apiErr domain.APIError
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&apiErr))
			assert.Equal(t, tt.want, apiErr.Status)
		})
	}
}

func TestPricingHandler_ForbiddenForOtherOwner(t *testing.T) {
	env := setupTestEnv(t)
	proposal := &domain.Proposal{ClientName: "Owned", UserID: "owner-1", Pax: 10}
	require.NoError(t, env.db.Create(proposal).Error)

	rr := env.do(t, salesUser, http.MethodGet, "/proposals/"+proposal.ID.String()+"/totals", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	admin := &auth.UserContext{UserID: "admin-1", Roles: []domain.UserRole{domain.RoleAdmin}}
	rr = env.do(t, admin, http.MethodGet, "/proposals/"+proposal.ID.String()+"/totals", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPricingHandler_DiscountLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	testutil.SeedDefaultTiers(t, env.db)
	proposal := testutil.CreateDualVATProposal(t, env.db, 150)
	base := "/proposals/" + proposal.ID.String()

	rr := env.do(t, salesUser, http.MethodPut, base+"/discount", map[string]interface{}{"discountPercentage": 10, "reason": "VIP client"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	manual := decodeTotals(t, rr)
	assert.Equal(t, 645.0, manual.TotalDiscount)
	assert.False(t, manual.VolumeDiscountApplied)
	assert.Equal(t, "manual", manual.DiscountSource)

	rr = env.do(t, salesUser, http.MethodDelete, base+"/discount", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	volume := decodeTotals(t, rr)
	assert.Equal(t, 322.5, volume.TotalDiscount)
	assert.True(t, volume.VolumeDiscountApplied)

	rr = env.do(t, salesUser, http.MethodGet, base+"/audit-log?pageSize=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Data       []domain.PriceAuditEntryDTO `json:"data"`
		Total      int64                       `json:"total"`
		TotalPages int                         `json:"totalPages"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, domain.PriceChangeDiscountUpdate, page.Data[0].ChangeType)
	assert.Equal(t, "user-1", page.Data[0].ActorID)
	assert.Equal(t, domain.PriceChangeRecalculation, page.Data[1].ChangeType)
	assert.Equal(t, "7288.88", page.Data[1].NewValue)
}

func TestPricingHandler_UpdatePaxAndMargin(t *testing.T) {
	env := setupTestEnv(t)
	proposal := testutil.CreateDualVATProposal(t, env.db, 150)
	base := "/proposals/" + proposal.ID.String()

	rr := env.do(t, salesUser, http.MethodPut, base+"/pax", map[string]interface{}{"pax": 100})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 4300.0, decodeTotals(t, rr).TotalBase)

	rr = env.do(t, salesUser, http.MethodGet, base+"/margin-analysis", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var analysis domain.MarginAnalysisDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&analysis))
	require.Len(t, analysis.Services, 2)
	assert.Equal(t, "Transport", analysis.Services[0].Title)
	assert.Equal(t, 800.0, analysis.Services[0].Revenue)
	assert.Equal(t, 4300.0, analysis.Summary.TotalRevenue)
	assert.Equal(t, 1600.0, analysis.Summary.TotalMargin)
}

func TestPricingHandler_PersistenceFailureReturnsTotals(t *testing.T) {
	env := setupTestEnv(t)
	proposal := testutil.CreateDualVATProposal(t, env.db, 150)
	require.NoError(t, env.db.Migrator().DropTable(&domain.PriceAuditEntry{}))

	rr := env.do(t, salesUser, http.MethodPost, "/proposals/"+proposal.ID.String()+"/calculate", nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body handler.PersistenceErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, domain.ErrorTypePersistence, body.Type)
	assert.Equal(t, 7672.5, body.Totals.TotalFinal)
	assert.False(t, body.Totals.Persisted)
}
