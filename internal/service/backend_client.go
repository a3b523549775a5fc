package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"reseller-dashboard/internal/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	pathCustomers = "/api/customers"
	pathOrders    = "/api/orders"
	pathContracts = "/api/contracts"
	pathDomains   = "/api/domain"
	pathHosting   = "/api/hosting?purchased=all"
	pathVPS       = "/api/vps?purchased=all"

	maxBodyBytes = 32 << 20
)

// CollectionsFetcher loads one consistent cycle of backend collections.
type CollectionsFetcher interface {
	FetchAll(ctx context.Context) (domain.Collections, error)
}

// BackendClient reads the six reseller collections over REST.
type BackendClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

func NewBackendClient(baseURL, apiToken string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *BackendClient) WithHTTPClient(hc *http.Client) *BackendClient {
	c.httpClient = hc
	return c
}

// FetchAll issues all six requests concurrently and joins them.
// A non-2xx response yields an empty collection; a transport or decode
// failure on any request fails the whole cycle.
func (c *BackendClient) FetchAll(ctx context.Context) (domain.Collections, error) {
	var (
		out      domain.Collections
		mu       sync.Mutex
		degraded []string
	)
	markDegraded := func(name string, ok bool) {
		if ok {
			return
		}
		mu.Lock()
		degraded = append(degraded, name)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		var ok bool
		out.Customers, ok, err = fetchCollection[domain.Customer](gctx, c, "customers", pathCustomers)
		markDegraded("customers", ok)
		return err
	})
	g.Go(func() (err error) {
		var ok bool
		out.Orders, ok, err = fetchCollection[domain.Order](gctx, c, "orders", pathOrders)
		markDegraded("orders", ok)
		return err
	})
	g.Go(func() (err error) {
		var ok bool
		out.Contracts, ok, err = fetchCollection[domain.Contract](gctx, c, "contracts", pathContracts)
		markDegraded("contracts", ok)
		return err
	})
	g.Go(func() (err error) {
		var ok bool
		out.Domains, ok, err = fetchCollection[domain.Domain](gctx, c, "domains", pathDomains)
		markDegraded("domains", ok)
		return err
	})
	g.Go(func() (err error) {
		var ok bool
		out.Hosting, ok, err = fetchCollection[domain.HostingInstance](gctx, c, "hosting", pathHosting)
		markDegraded("hosting", ok)
		return err
	})
	g.Go(func() (err error) {
		var ok bool
		out.VPS, ok, err = fetchCollection[domain.VpsInstance](gctx, c, "vps", pathVPS)
		markDegraded("vps", ok)
		return err
	})

	if err := g.Wait(); err != nil {
		return domain.Collections{}, err
	}
	sort.Strings(degraded)
	out.Degraded = degraded
	return out, nil
}

// fetchCollection reports ok=false when the backend answered non-2xx; the
// collection is then empty and err is nil.
func fetchCollection[T any](ctx context.Context, c *BackendClient, name, path string) (items []T, ok bool, err error) {
	start := time.Now()
	defer func() {
		upstreamFetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%s: build request: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamFetchFailures.WithLabelValues(name, "transport").Inc()
		return nil, false, fmt.Errorf("%s: request: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstreamFetchFailures.WithLabelValues(name, "status").Inc()
		logrus.WithFields(logrus.Fields{
			"collection": name,
			"status":     resp.StatusCode,
		}).Warn("[Backend] non-success response, treating collection as empty")
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return []T{}, false, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		upstreamFetchFailures.WithLabelValues(name, "transport").Inc()
		return nil, false, fmt.Errorf("%s: read body: %w", name, err)
	}

	items, err = decodeCollection[T](body)
	if err != nil {
		upstreamFetchFailures.WithLabelValues(name, "decode").Inc()
		return nil, false, fmt.Errorf("%s: decode: %w", name, err)
	}
	return items, true, nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// decodeCollection accepts either {"data": [...]} or a bare array.
func decodeCollection[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, err
		}
		trimmed = bytes.TrimSpace(env.Data)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return []T{}, nil
		}
	}

	items := []T{}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	return items, nil
}
