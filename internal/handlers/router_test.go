package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xelth-com/magebridge/internal/config"
	"github.com/xelth-com/magebridge/internal/database"
	"github.com/xelth-com/magebridge/internal/database/dbtest"
	"github.com/xelth-com/magebridge/internal/exceptions"
	"github.com/xelth-com/magebridge/internal/lock"
	"github.com/xelth-com/magebridge/internal/metrics"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/services/scheduler"
	"github.com/xelth-com/magebridge/internal/storefront"
	"github.com/xelth-com/magebridge/internal/storefront/storefronttest"
	"github.com/xelth-com/magebridge/internal/utils"
)

const testSecret = "handler-secret"

type fixture struct {
	db     *database.DB
	ch     *models.Channel
	api    *storefronttest.Fake
	router *Router
	token  string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	log := zaptest.NewLogger(t)
	api := storefronttest.NewFake()
	connect := func(*models.Channel) (storefront.API, error) { return api, nil }
	m := metrics.New()

	hash, err := utils.HashPassword("pa55word")
	require.NoError(t, err)
	op := &models.Operator{Email: "ops@example.com", Name: "Ops", PasswordHash: hash}
	require.NoError(t, db.Create(op).Error)
	token, _, err := utils.GenerateTokens(op, testSecret)
	require.NoError(t, err)

	sched := scheduler.NewService(db, connect, lock.NewLocal(), m, &config.ScheduleConfig{}, log)
	return &fixture{
		db:  db,
		ch:  dbtest.Channel(t, db),
		api: api,
		router: NewRouter(Deps{
			DB:        db,
			JWTSecret: testSecret,
			Connect:   connect,
			Scheduler: sched,
			Metrics:   m,
			Log:       log,
		}),
		token: token,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	f := setup(t)
	f.token = ""

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"version":"dev"`)

	rec = f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin(t *testing.T) {
	f := setup(t)
	f.token = ""

	rec := f.do(t, http.MethodPost, "/auth/login", LoginRequest{Email: "ops@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/login", LoginRequest{Email: "ops@example.com", Password: "pa55word"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tokens map[string]string `json:"tokens"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotEmpty(t, body.Tokens["accessToken"])

	rec = f.do(t, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: body.Tokens["accessToken"]})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "access tokens cannot refresh")
	rec = f.do(t, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: body.Tokens["refreshToken"]})
	assert.Equal(t, http.StatusOK, rec.Code)

	f.token = body.Tokens["accessToken"]
	rec = f.do(t, http.MethodGet, "/api/channels", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	f := setup(t)
	f.token = ""
	rec := f.do(t, http.MethodGet, "/api/channels", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateChannel(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/api/channels", ChannelRequest{Name: "Shop"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/channels", ChannelRequest{
		Name: "Shop", URL: "http://shop.test", APIUser: "u", APIKey: "k",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var ch models.Channel
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ch))
	assert.Equal(t, models.DefaultOrderPrefix, ch.OrderPrefix)
	assert.Empty(t, ch.APIKey, "api key is never serialized")

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/channels/%d", ch.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/channels/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChannelOperations(t *testing.T) {
	f := setup(t)
	base := fmt.Sprintf("/api/channels/%d", f.ch.ID)
	f.api.States = map[string]string{"new": "Pending"}
	f.api.WebsiteList = []storefront.Record{{"website_id": "1", "code": "base", "name": "Main"}}
	f.api.Groups[1] = []storefront.Record{{"group_id": "1", "name": "Main Store", "default_store_id": "1"}}

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/test", nil).Code)

	rec := f.do(t, http.MethodGet, base+"/websites", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Main")

	rec = f.do(t, http.MethodGet, base+"/websites/1/stores", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Main Store")

	rec = f.do(t, http.MethodPost, base+"/configure", ConfigureRequest{WebsiteID: 1, StoreID: 2})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = f.do(t, http.MethodPost, base+"/configure", ConfigureRequest{WebsiteID: 1, StoreID: 1})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/import/order-states", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"result":1`)

	rec = f.do(t, http.MethodPost, base+"/import/customers", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/catalog/export", ExportCatalogRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnectionFailure(t *testing.T) {
	f := setup(t)
	f.api.Fail("login", fmt.Errorf("denied"))

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/channels/%d/test", f.ch.ID), nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRunJob(t *testing.T) {
	f := setup(t)
	base := fmt.Sprintf("/api/channels/%d/jobs/", f.ch.ID)

	rec := f.do(t, http.MethodPost, base+config.JobExportInventory, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, base+"reindex", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), config.JobImportOrders)

	rec = f.do(t, http.MethodPost, "/api/jobs/"+config.JobExportInventory, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/jobs/reindex", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaleExceptions(t *testing.T) {
	f := setup(t)
	sale := &models.Sale{ChannelID: f.ch.ID, RemoteOrderID: 5, PartyID: 1, CurrencyID: 1, State: models.SaleQuotation, HasException: true}
	require.NoError(t, f.db.Create(sale).Error)
	line := &models.SaleLine{SaleID: sale.ID, Sequence: 1, Description: "Lost product"}
	require.NoError(t, f.db.Create(line).Error)

	sink := exceptions.NewSink(f.db.DB, zaptest.NewLogger(t))
	sink.Record(t.Context(), exceptions.SaleOrigin(sale.ID), "Product 9 does not exist")
	sink.Record(t.Context(), exceptions.LineOrigin(line.ID), "Line without product")

	base := fmt.Sprintf("/api/sales/%d", sale.ID)
	rec := f.do(t, http.MethodGet, base+"/exceptions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []models.ExceptionRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&recs))
	assert.Len(t, recs, 2)

	rec = f.do(t, http.MethodGet, "/api/exceptions?model=sale&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&recs))
	assert.Len(t, recs, 1)

	rec = f.do(t, http.MethodGet, "/api/exceptions?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/clear-exception", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"state":"confirmed"`))

	var stored models.Sale
	require.NoError(t, f.db.First(&stored, sale.ID).Error)
	assert.Equal(t, models.SaleConfirmed, stored.State)
	assert.False(t, stored.HasException)

	var count int64
	require.NoError(t, f.db.Model(&models.ExceptionRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count, "records survive clearing")
}
