package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"reseller-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDashboard_FirstRequestLoadsOnce(t *testing.T) {
	fetcher := &stubFetcher{cols: domain.Collections{
		Customers: []domain.Customer{{ID: "1"}, {ID: "2"}},
		VPS:       []domain.VpsInstance{{ID: "v"}},
	}}
	env := newTestEnv(t, fetcher, stubInspector{}, "")

	w := env.do(http.MethodGet, "/api/v1/dashboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env.do(http.MethodGet, "/api/v1/dashboard", "", nil)

	assert.EqualValues(t, 1, fetcher.calls.Load())

	data := decodeBody(t, w)["data"].(map[string]any)
	stats := data["stats"].(map[string]any)
	assert.EqualValues(t, 2, stats["totalCustomers"])
	assert.EqualValues(t, 1, stats["vpsCount"])
	assert.Len(t, data["cards"], 4)
	assert.NotNil(t, data["computedAt"])
}

func TestGetDashboard_FirstLoadSurvivesClientDisconnect(t *testing.T) {
	fetcher := &stubFetcher{cols: domain.Collections{Customers: []domain.Customer{{ID: "1"}}}}
	env := newTestEnv(t, fetcher, stubInspector{}, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, fetcher.ctxErr)
	stats := decodeBody(t, w)["data"].(map[string]any)["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["totalCustomers"])
}

func TestRefreshDashboard(t *testing.T) {
	fetcher := &stubFetcher{cols: domain.Collections{Customers: []domain.Customer{{ID: "1"}}}}
	env := newTestEnv(t, fetcher, stubInspector{}, "")

	w := env.do(http.MethodPost, "/api/v1/dashboard/refresh", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	fetcher.err = errors.New("upstream unreachable")
	w = env.do(http.MethodPost, "/api/v1/dashboard/refresh", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "upstream unreachable")
	stats := body["data"].(map[string]any)["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["totalCustomers"])
}

func TestRefreshDashboard_Busy(t *testing.T) {
	fetcher := &stubFetcher{gate: make(chan struct{}), entered: make(chan struct{})}
	env := newTestEnv(t, fetcher, stubInspector{}, "")

	done := make(chan int, 1)
	go func() {
		done <- env.do(http.MethodPost, "/api/v1/dashboard/refresh", "", nil).Code
	}()
	<-fetcher.entered

	w := env.do(http.MethodPost, "/api/v1/dashboard/refresh", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	close(fetcher.gate)
	assert.Equal(t, http.StatusOK, <-done)
}
