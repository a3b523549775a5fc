package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reseller-dashboard/internal/domain"
	"reseller-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubFetcher struct {
	calls   atomic.Int32
	cols    domain.Collections
	err     error
	gate    chan struct{} // when set, FetchAll blocks until closed
	entered chan struct{}
	ctxErr  error // ctx.Err() seen by the last call
}

func (f *stubFetcher) FetchAll(ctx context.Context) (domain.Collections, error) {
	f.calls.Add(1)
	f.ctxErr = ctx.Err()
	if f.gate != nil {
		close(f.entered)
		<-f.gate
	}
	return f.cols, f.err
}

type memoryRepo struct {
	mu       sync.Mutex
	settings domain.NotificationSettings
}

func (r *memoryRepo) GetSettings(context.Context) (*domain.NotificationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.settings
	return &s, nil
}

func (r *memoryRepo) SaveSettings(_ context.Context, s domain.NotificationSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s
	return nil
}

func (r *memoryRepo) UpdateDigestState(_ context.Context, at time.Time, fp string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.LastDigestAt = at
	r.settings.LastDigestFingerprint = fp
	return nil
}

type countingReloader struct {
	calls atomic.Int32
}

func (r *countingReloader) ReloadJobs() { r.calls.Add(1) }

type stubInspector struct {
	result service.WhoisResult
	err    error
}

func (s stubInspector) Inspect(context.Context, string) (service.WhoisResult, error) {
	return s.result, s.err
}

type testEnv struct {
	router   *gin.Engine
	fetcher  *stubFetcher
	repo     *memoryRepo
	reloader *countingReloader
}

func newTestEnv(t *testing.T, fetcher *stubFetcher, inspector DomainInspector, secret string) *testEnv {
	t.Helper()
	repo := &memoryRepo{}
	reloader := &countingReloader{}
	notifier := service.NewNotifierService(repo)
	t.Cleanup(notifier.Stop)

	session := service.NewDashboardSession(fetcher, service.NewAggregator(30, 5), time.UTC)
	router := NewRouter(Handlers{
		Dashboard: NewDashboardHandler(session),
		Settings:  NewSettingsHandler(repo, notifier, reloader),
		Tools:     NewToolHandler(inspector),
	}, secret)

	return &testEnv{router: router, fetcher: fetcher, repo: repo, reloader: reloader}
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
