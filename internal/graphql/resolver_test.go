package graphql_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/internal/graphql"
	"github.com/tournevent/courierhub/pkg/dispatch"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/catalog"
	"github.com/tournevent/courierhub/pkg/shipper/factory"
	"github.com/tournevent/courierhub/pkg/shipper/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestExecutor(t *testing.T, overrides ...catalog.Override) (*graphql.Executor, map[shipper.Code]*mock.Client) {
	t.Helper()
	logger := otelzap.New(zap.NewNop())
	resolver := catalog.NewResolver(catalog.DefaultCatalog(), catalog.NewStaticOverrides(overrides...), nil, logger)

	carriers := map[shipper.Code]*mock.Client{}
	for _, code := range shipper.KnownCodes() {
		carriers[code] = mock.New(code)
	}
	maker := shipper.MakerFunc(func(ctx context.Context, code shipper.Code) (shipper.Shipper, error) {
		cfg, err := resolver.Resolve(ctx, code)
		if err != nil {
			return nil, err
		}
		return factory.Guard(carriers[code], cfg.Restrictions), nil
	})

	svc := dispatch.New(dispatch.Config{
		Maker:     maker,
		Directory: resolver,
		Rates:     shipper.OrchestratorConfig{Deadline: 2 * time.Second, Priority: []shipper.Code{shipper.CodeEkart}},
		Logger:    logger,
	})
	exec, err := graphql.NewExecutor(graphql.NewResolver(svc, logger))
	require.NoError(t, err)
	return exec, carriers
}

// run executes req and decodes the JSON response into a generic shape.
func run(t *testing.T, exec *graphql.Executor, req graphql.Request) map[string]any {
	t.Helper()
	raw, err := json.Marshal(exec.Execute(context.Background(), req))
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// vars decodes JSON variables the way an HTTP request body delivers them.
func vars(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestExecute_Health(t *testing.T) {
	exec, _ := newTestExecutor(t)

	out := run(t, exec, graphql.Request{Query: `{ health __typename }`})
	assert.Nil(t, out["errors"])
	assert.Equal(t, map[string]any{"health": "ok", "__typename": "Query"}, out["data"])
}

func TestExecute_ShopRates(t *testing.T) {
	exec, carriers := newTestExecutor(t)
	carriers[shipper.CodeDelhivery].Charges = shipper.Charges{Base: 120, Tax: 21.6}

	out := run(t, exec, graphql.Request{
		Query: `mutation Shop($input: RateRequestInput!, $carriers: [String!]) {
			shopRates(input: $input, carriers: $carriers) {
				quotes { carrier total: totalCharge cod }
				failures { carrier }
			}
		}`,
		Variables: vars(t, `{
			"input": {
				"originPincode": "110001", "destinationPincode": "400001",
				"weight": 2.0, "length": 30, "width": 20, "height": 10,
				"paymentMode": "COD", "codAmount": 0
			},
			"carriers": ["ekart", "delhivery"]
		}`),
	})
	require.Nil(t, out["errors"])

	shop := out["data"].(map[string]any)["shopRates"].(map[string]any)
	quotes := shop["quotes"].([]any)
	require.Len(t, quotes, 2)

	first := quotes[0].(map[string]any)
	assert.Equal(t, "ekart", first["carrier"])
	assert.Equal(t, 165.0, first["total"])
	assert.Equal(t, 30.0, first["cod"])
	assert.NotContains(t, first, "serviceName")

	second := quotes[1].(map[string]any)
	assert.Equal(t, "delhivery", second["carrier"])
	assert.Equal(t, 171.6, second["total"])
	assert.Empty(t, shop["failures"])
}

func TestExecute_ValidationError(t *testing.T) {
	exec, _ := newTestExecutor(t)

	out := run(t, exec, graphql.Request{Query: `{ noSuchField }`})
	assert.Nil(t, out["data"])
	require.NotEmpty(t, out["errors"])
}

func TestExecute_MissingVariable(t *testing.T) {
	exec, _ := newTestExecutor(t)

	out := run(t, exec, graphql.Request{
		Query: `query Track($tn: String!) { trackShipment(carrier: "delhivery", trackingNumber: $tn) { status } }`,
	})
	assert.Nil(t, out["data"])
	require.NotEmpty(t, out["errors"])
}

func TestExecute_TrackUnknownShipment(t *testing.T) {
	exec, _ := newTestExecutor(t)

	out := run(t, exec, graphql.Request{
		Query: `{ trackShipment(carrier: "Xpressbees", trackingNumber: "NOPE") { trackingNumber status events { status } } }`,
	})
	require.Nil(t, out["errors"])
	tracking := out["data"].(map[string]any)["trackShipment"].(map[string]any)
	assert.Equal(t, "unknown", tracking["status"])
	assert.Empty(t, tracking["events"])
}

func TestExecute_ConfigErrorNullsData(t *testing.T) {
	off := false
	exec, _ := newTestExecutor(t, catalog.Override{Code: shipper.CodeEkart, Enabled: &off})

	out := run(t, exec, graphql.Request{
		Query: `{ label(carrier: "ekart", trackingNumber: "A1") { url } }`,
	})
	assert.Nil(t, out["data"])

	errs := out["errors"].([]any)
	require.Len(t, errs, 1)
	gerr := errs[0].(map[string]any)
	assert.Contains(t, gerr["message"], "disabled")
	assert.Equal(t, []any{"label"}, gerr["path"])
	ext := gerr["extensions"].(map[string]any)
	assert.Equal(t, "config", ext["class"])
	assert.Equal(t, "ekart", ext["carrier"])
}

func TestExecute_CreateCancelAndPickup(t *testing.T) {
	exec, _ := newTestExecutor(t)
	out := run(t, exec, graphql.Request{
		Query: `mutation Book($input: ShipmentInput!) {
			createShipment(carrier: "shiprocket", input: $input) { trackingNumber carrierReference }
		}`,
		Variables: vars(t, `{"input": {
			"orderId": "ORD-77",
			"pickup": {"name": "Asha", "phone": "9999999999", "line1": "12 MG Road", "city": "Pune", "state": "MH", "pincode": "411001"},
			"consignee": {"name": "Ravi", "phone": "8888888888", "line1": "4 FC Road", "city": "Pune", "state": "MH", "pincode": "411004"},
			"package": {
				"originPincode": "411001", "destinationPincode": "411004",
				"weight": 0.5, "length": 10, "width": 10, "height": 5, "paymentMode": "PREPAID"
			},
			"items": [{"name": "Mug", "quantity": 1, "unitPrice": 250}]
		}}`),
	})
	require.Nil(t, out["errors"])
	created := out["data"].(map[string]any)["createShipment"].(map[string]any)
	assert.Equal(t, "ORD-77", created["carrierReference"])
	awb := created["trackingNumber"].(string)
	require.NotEmpty(t, awb)

	out = run(t, exec, graphql.Request{
		Query:     `mutation Cancel($tn: String!) { cancelShipment(carrier: "shiprocket", trackingNumber: $tn) }`,
		Variables: vars(t, `{"tn": "`+awb+`"}`),
	})
	require.Nil(t, out["errors"])
	assert.Equal(t, true, out["data"].(map[string]any)["cancelShipment"])

	out = run(t, exec, graphql.Request{
		Query: `mutation { schedulePickup(carrier: "shiprocket", input: {pickupLocation: "Main", date: "2026-03-04", packageCount: 1}) { reference scheduledFor } }`,
	})
	require.Nil(t, out["errors"])
	pickup := out["data"].(map[string]any)["schedulePickup"].(map[string]any)
	assert.Equal(t, "2026-03-04T00:00:00Z", pickup["scheduledFor"])
}

func TestExecute_CarriersAndCredentials(t *testing.T) {
	exec, _ := newTestExecutor(t)

	out := run(t, exec, graphql.Request{
		Query: `query List { carriers { code configured } validateCredentials(carrier: "bigship") { carrier success } }`,
	})
	require.Nil(t, out["errors"])
	data := out["data"].(map[string]any)
	assert.Len(t, data["carriers"], len(shipper.KnownCodes()))

	checks := data["validateCredentials"].([]any)
	require.Len(t, checks, 1)
	assert.Equal(t, map[string]any{"carrier": "bigship", "success": true}, checks[0])
}

func TestExecute_OperationName(t *testing.T) {
	exec, _ := newTestExecutor(t)
	doc := `query A { health } query B { carriers { code } }`

	out := run(t, exec, graphql.Request{Query: doc, OperationName: "A"})
	assert.Equal(t, map[string]any{"health": "ok"}, out["data"])

	out = run(t, exec, graphql.Request{Query: doc, OperationName: "C"})
	assert.Nil(t, out["data"])
	assert.NotEmpty(t, out["errors"])
}
