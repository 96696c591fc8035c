package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/internal/graphql"
	"github.com/tournevent/courierhub/internal/server"
	"github.com/tournevent/courierhub/internal/telemetry"
	"github.com/tournevent/courierhub/internal/webhook"
	"github.com/tournevent/courierhub/pkg/dispatch"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/catalog"
	"github.com/tournevent/courierhub/pkg/shipper/factory"
	"github.com/tournevent/courierhub/pkg/shipper/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := otelzap.New(zap.NewNop())
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	var clients []*mock.Client
	for _, code := range shipper.KnownCodes() {
		clients = append(clients, mock.New(code))
	}
	svc := dispatch.New(dispatch.Config{
		Maker:     mock.Maker(clients...),
		Directory: catalog.NewResolver(catalog.DefaultCatalog(), nil, nil, logger),
		Rates:     shipper.OrchestratorConfig{Deadline: time.Second},
		Logger:    logger,
		Observer:  metrics,
	})
	exec, err := graphql.NewExecutor(graphql.NewResolver(svc, logger))
	require.NoError(t, err)

	srv := server.New(server.Config{
		Port:     8080,
		Executor: exec,
		Webhooks: webhook.NewHandler(webhook.Config{Lookup: factory.Webhook, Logger: logger, Observer: metrics}),
		Gatherer: reg,
		Logger:   logger,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postGraphQL(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/graphql", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_GraphQL_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/graphql")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	errs, ok := out["errors"].([]any)
	require.True(t, ok)
	assert.Len(t, errs, 1)
}

func TestServer_GraphQL_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)

	resp, out := postGraphQL(t, ts, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, out["errors"])
}

func TestServer_GraphQL_EmptyQuery(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := postGraphQL(t, ts, `{"query": ""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_GraphQL_Query(t *testing.T) {
	ts := newTestServer(t)

	resp, out := postGraphQL(t, ts, `{"query": "{ health }"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, map[string]any{"health": "ok"}, out["data"])
}

func TestServer_GraphQL_ErrorsStayOK(t *testing.T) {
	ts := newTestServer(t)

	resp, out := postGraphQL(t, ts, `{"query": "{ label(carrier: \"dtdc\", trackingNumber: \"X\") { url } }"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, out["data"])
	assert.NotEmpty(t, out["errors"])
}

func TestServer_MetricsReflectCarrierCalls(t *testing.T) {
	ts := newTestServer(t)

	_, out := postGraphQL(t, ts, `{"query": "{ trackShipment(carrier: \"delhivery\", trackingNumber: \"AWB1\") { status } }"}`)
	require.Nil(t, out["errors"])

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `courierhub_carrier_requests_total{carrier="delhivery",operation="track_shipment",outcome="success"} 1`)
}

func TestServer_WebhookRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/webhooks/dtdc", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/webhooks/delhivery")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
