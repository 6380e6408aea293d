package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/cashew/pkg/application/dto"
	"github.com/vsinha/cashew/pkg/application/services"
	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/domain/repositories"
	"github.com/vsinha/cashew/pkg/infrastructure/metrics"
	"github.com/vsinha/cashew/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/cashew/pkg/infrastructure/testing"
)

type stubSummarizer struct{}

func (stubSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	return "all good", nil
}

func newTestServer(t *testing.T, summarizer services.Summarizer) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	inventoryRepo, productionRepo := testhelpers.BuildPlantTestData()
	m := metrics.New()
	deps := services.Deps{Metrics: m, Clock: testhelpers.FixedClock(testhelpers.At(12, 0))}
	plant := services.NewPlant(inventoryRepo, productionRepo, services.InventoryConfig{}, summarizer, deps)

	handler := NewHandler(plant, nil, WithMetrics(m), WithClock(deps.Clock))
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv, m
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_Health(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body map[string]string
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/healthz", "", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_HealthReportsStorageFailure(t *testing.T) {
	inventoryRepo, productionRepo := testhelpers.BuildPlantTestData()
	plant := services.NewPlant(inventoryRepo, productionRepo, services.InventoryConfig{}, nil, services.Deps{})
	handler := NewHandler(plant, nil, WithReadiness(func(ctx context.Context) error {
		return errors.New("disk full")
	}))

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_Inventory(t *testing.T) {
	srv, m := newTestServer(t, nil)

	var items ListItemsResponse
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/inventory", "", &items))
	assert.Equal(t, 4, items.Total)

	var low ListItemsResponse
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/inventory/low-stock", "", &low))
	require.Len(t, low.Items, 1)
	assert.Equal(t, entities.VacuumBags, low.Items[0].Name)

	var adj dto.AdjustmentResult
	status := doJSON(t, http.MethodPost, srv.URL+"/api/inventory/adjust",
		`{"item_name":"vacuum bags","unit":"pcs","category":"packaging","change":"500","reason":"packaging_receipt","actor":"stores"}`, &adj)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, adj.Item.Quantity.Equal(entities.Qty(540)))
	assert.NotEmpty(t, adj.LogID)

	var logs ListInventoryLogsResponse
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/inventory/logs?item=Vacuum+Bags", "", &logs))
	assert.Equal(t, 1, logs.Total)

	var errBody errorResponse
	status = doJSON(t, http.MethodPost, srv.URL+"/api/inventory/adjust",
		`{"item_name":"Packed W240","unit":"boxes","change":-100,"reason":"dispatch"}`, &errBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, errBody.Error, "insufficient stock")

	status = doJSON(t, http.MethodPost, srv.URL+"/api/inventory/adjust", `{"item_name":"x","bogus":1}`, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)

	var item entities.InventoryItem
	status = doJSON(t, http.MethodPut, srv.URL+"/api/inventory/Raw%20Cashew%20Nuts/reorder-level", `{"reorder_level":"6000"}`, &item)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, item.IsLowStock())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET /api/inventory", "200")))
}

func TestAPI_RecordProduction(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var result dto.RecordResult
	status := doJSON(t, http.MethodPost, srv.URL+"/api/production", `{
		"stage": "intake",
		"lot_id": "lot-20",
		"operator": "meena",
		"shift": "evening",
		"input_qty": 750.5,
		"output_qty": 750.5,
		"fields": {"supplier": "Ghana Co-op", "origin": "Ghana", "bag_count": "9"}
	}`, &result)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "LOT-20", result.Log.LotID)
	require.Len(t, result.Adjustments, 1)
	assert.True(t, result.Adjustments[0].Item.Quantity.Equal(entities.Qty(5000).Add(result.Log.InputQty)))

	var got entities.ProductionLog
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/production/"+result.Log.ID, "", &got))
	assert.Equal(t, "Ghana Co-op", got.Field("supplier"))

	var list ListProductionResponse
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/production?stage=intake", "", &list))
	assert.Equal(t, 2, list.Total)

	var errBody errorResponse
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, srv.URL+"/api/production", `{"lot_id":"LOT-21"}`, &errBody))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, srv.URL+"/api/production",
		`{"stage":"drying","lot_id":"LOT-21","input_qty":10}`, &errBody))
	assert.Contains(t, errBody.Problems, "method is required")

	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/api/production/nope", "", &errBody))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, srv.URL+"/api/production?stage=roasting", "", &errBody))
}

func TestAPI_RecordProductionStockShortfall(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body recordFailure
	status := doJSON(t, http.MethodPost, srv.URL+"/api/production",
		`{"stage":"dispatch","lot_id":"LOT-1","fields":{"customer":"Bharat Foods","grade":"W240","box_count":"20"}}`, &body)
	assert.Equal(t, http.StatusConflict, status)
	assert.NotEmpty(t, body.LogID)
	require.NotNil(t, body.Result)
	assert.Equal(t, body.LogID, body.Result.Log.ID)
}

// brokenStore fails every stock update with a storage error
type brokenStore struct {
	repositories.InventoryRepository
}

func (brokenStore) UpdateItem(ctx context.Context, name string, template *entities.InventoryItem, mutate repositories.ItemMutation) (*entities.InventoryItem, error) {
	return nil, errors.New("sqlite: disk I/O error at /var/lib/cashew/cashew.db")
}

func TestAPI_RecordProductionStorageFailureHidesDetail(t *testing.T) {
	inventoryRepo, productionRepo := testhelpers.BuildPlantTestData()
	plant := services.NewPlant(brokenStore{inventoryRepo}, productionRepo, services.InventoryConfig{}, nil, services.Deps{})
	srv := httptest.NewServer(NewHandler(plant, nil).Routes())
	t.Cleanup(srv.Close)

	var body recordFailure
	status := doJSON(t, http.MethodPost, srv.URL+"/api/production",
		`{"stage":"intake","lot_id":"LOT-30","operator":"asha","input_qty":100,"fields":{"supplier":"Kollam Traders"}}`, &body)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body.Error)
	assert.NotEmpty(t, body.LogID)
	assert.NotContains(t, body.Error, "/var/lib")
}

func TestAPI_ListProductionDefaultLimitShowsNewest(t *testing.T) {
	productionRepo := memory.NewProductionRepository()
	base := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	total := defaultLimit + 5
	for i := 0; i < total; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		log, err := entities.NewProductionLog(entities.StageIntake, "LOT-1", "asha", "", at, entities.Qty(10), entities.Qty(0), at)
		require.NoError(t, err)
		require.NoError(t, productionRepo.SaveLog(context.Background(), log))
	}
	plant := services.NewPlant(memory.NewInventoryRepository(4), productionRepo, services.InventoryConfig{}, nil, services.Deps{})
	srv := httptest.NewServer(NewHandler(plant, nil).Routes())
	t.Cleanup(srv.Close)

	var list ListProductionResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/production", "", &list))
	require.Len(t, list.Logs, defaultLimit)
	assert.True(t, list.Logs[0].RecordedAt.Equal(base.Add(5*time.Minute)))
	assert.True(t, list.Logs[defaultLimit-1].RecordedAt.Equal(base.Add(time.Duration(total-1)*time.Minute)))
}

func TestAPI_ReportDaysUsePlantLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	productionRepo := memory.NewProductionRepository()
	// 02:00 on 1 March in the plant, still 28 February in UTC
	at := time.Date(2025, 2, 28, 20, 30, 0, 0, time.UTC)
	log, err := entities.NewProductionLog(entities.StageIntake, "LOT-2", "asha", "", at, entities.Qty(300), entities.Qty(0), at)
	require.NoError(t, err)
	log.Fields["supplier"] = "Kollam Traders"
	require.NoError(t, productionRepo.SaveLog(context.Background(), log))

	clock := testhelpers.FixedClock(time.Date(2025, 2, 28, 21, 0, 0, 0, time.UTC))
	plant := services.NewPlant(memory.NewInventoryRepository(4), productionRepo, services.InventoryConfig{}, nil, services.Deps{Clock: clock})
	srv := httptest.NewServer(NewHandler(plant, nil, WithClock(clock), WithLocation(ist)).Routes())
	t.Cleanup(srv.Close)

	var daily dto.DailyReport
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/reports/daily?date=2025-03-01", "", &daily))
	assert.Equal(t, 1, daily.LogCount())

	var today dto.DailyReport
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/reports/daily", "", &today))
	assert.Equal(t, 1, today.LogCount(), "today is already 1 March in the plant")

	var before dto.DailyReport
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/reports/daily?date=2025-02-28", "", &before))
	assert.Equal(t, 0, before.LogCount())
}

func TestAPI_Reports(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var daily dto.DailyReport
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/reports/daily", "", &daily))
	assert.Equal(t, 5, daily.LogCount(), "defaults to the clock's day")

	var rng dto.RangeReport
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/reports/range?from=2025-03-13&to=2025-03-15", "", &rng))
	assert.Len(t, rng.Days, 3)

	var errBody errorResponse
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, srv.URL+"/api/reports/range?from=2025-03-13", "", &errBody))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, srv.URL+"/api/reports/daily?date=14-03-2025", "", &errBody))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, srv.URL+"/api/reports/range?from=2025-03-15&to=2025-03-13", "", &errBody))

	var inv dto.InventoryReport
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/reports/inventory", "", &inv))
	assert.Equal(t, 1, inv.LowStockCount)
}

func TestAPI_Trace(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var trace dto.LotTrace
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/trace/lot-1", "", &trace))
	assert.Equal(t, "LOT-1", trace.LotID)
	assert.Len(t, trace.Steps, 4)

	var lots []dto.LotSummary
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/lots", "", &lots))
	assert.Len(t, lots, 1)

	var errBody errorResponse
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/api/trace/LOT-999", "", &errBody))
}

func TestAPI_Summaries(t *testing.T) {
	disabled, _ := newTestServer(t, nil)
	var errBody errorResponse
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, http.MethodPost, disabled.URL+"/api/summaries/daily", "", &errBody))

	srv, _ := newTestServer(t, stubSummarizer{})
	var summary dto.Summary
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/summaries/daily?date=2025-03-14", "", &summary))
	assert.Equal(t, "all good", summary.Text)

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, srv.URL+"/api/summaries/lot/LOT-1", "", &summary))
	assert.Equal(t, "lot LOT-1", summary.Subject)
}

func TestAPI_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	doJSON(t, http.MethodGet, srv.URL+"/api/inventory", "", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&entities.ValidationError{Problems: []string{"x"}}, http.StatusBadRequest},
		{entities.ErrInvalidStage, http.StatusBadRequest},
		{entities.ErrItemNotFound, http.StatusNotFound},
		{entities.ErrLotNotFound, http.StatusNotFound},
		{entities.ErrInsufficientStock, http.StatusConflict},
		{entities.ErrSummarizerDisabled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
