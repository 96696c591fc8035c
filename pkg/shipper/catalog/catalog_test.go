package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/catalog"
	"github.com/tournevent/courierhub/pkg/shipper/secrets"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func newResolver(t *testing.T, overrides catalog.OverrideSource, dec secrets.Decrypter) *catalog.Resolver {
	t.Helper()
	return catalog.NewResolver(catalog.DefaultCatalog(), overrides, dec, otelzap.New(zap.NewNop()))
}

func boolPtr(b bool) *bool { return &b }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultCatalog_CoversKnownCodes(t *testing.T) {
	c := catalog.DefaultCatalog()
	assert.Equal(t, shipper.KnownCodes(), c.Codes())

	for _, code := range c.Codes() {
		e, ok := c.Entry(code)
		require.True(t, ok)
		assert.NotEmpty(t, e.DisplayName, code)
		assert.NotEmpty(t, e.CredentialSchema, code)
		assert.NotEmpty(t, e.Endpoints[shipper.ModeProduction], code)
		assert.NotEmpty(t, e.Endpoints[shipper.ModeTest], code)
		assert.True(t, e.Enabled, code)
	}
}

func TestResolve_EmptyEndpointFallsBackToCatalog(t *testing.T) {
	r := newResolver(t, catalog.NewStaticOverrides(catalog.Override{
		Code:        shipper.CodeDelhivery,
		Endpoint:    "",
		Credentials: map[string]string{"api_token": "tok"},
	}), nil)

	cfg, err := r.Resolve(context.Background(), shipper.CodeDelhivery)
	require.NoError(t, err)
	assert.Equal(t, "https://track.delhivery.com", cfg.BaseURL)
}

func TestResolve_OverrideEndpointWins(t *testing.T) {
	r := newResolver(t, catalog.NewStaticOverrides(catalog.Override{
		Code:     shipper.CodeDelhivery,
		Endpoint: "https://x",
	}), nil)

	cfg, err := r.Resolve(context.Background(), shipper.CodeDelhivery)
	require.NoError(t, err)
	assert.Equal(t, "https://x", cfg.BaseURL)
}

func TestResolve_ModeSelectsEndpoint(t *testing.T) {
	r := newResolver(t, catalog.NewStaticOverrides(catalog.Override{
		Code: shipper.CodeEkart,
		Mode: shipper.ModeTest,
	}), nil)

	cfg, err := r.Resolve(context.Background(), shipper.CodeEkart)
	require.NoError(t, err)
	assert.Equal(t, shipper.ModeTest, cfg.Mode)
	assert.Equal(t, "https://staging.ekartlogistics.com", cfg.BaseURL)
}

func TestResolve_Disabled(t *testing.T) {
	r := newResolver(t, catalog.NewStaticOverrides(catalog.Override{
		Code:    shipper.CodeBigShip,
		Enabled: boolPtr(false),
	}), nil)

	_, err := r.Resolve(context.Background(), shipper.CodeBigShip)
	assert.ErrorIs(t, err, shipper.ErrCarrierDisabled)
	assert.Equal(t, shipper.ClassConfig, shipper.Classify(err))

	cfg, err := r.Inspect(context.Background(), shipper.CodeBigShip)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
}

func TestResolve_UnknownCode(t *testing.T) {
	r := newResolver(t, nil, nil)

	_, err := r.Resolve(context.Background(), shipper.Code("dtdc"))
	assert.ErrorIs(t, err, shipper.ErrCarrierNotFound)
}

func TestResolve_CredentialsDecryptedOrRaw(t *testing.T) {
	box, err := secrets.NewBox("operator-key")
	require.NoError(t, err)
	sealed, err := box.Encrypt("s3cret")
	require.NoError(t, err)

	r := newResolver(t, catalog.NewStaticOverrides(catalog.Override{
		Code: shipper.CodeShiprocket,
		Credentials: map[string]string{
			"email":    "ops@example.com",
			"password": sealed,
			"unknown":  "ignored",
		},
	}), box)

	cfg, err := r.Resolve(context.Background(), shipper.CodeShiprocket)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", cfg.Credential("email"))
	assert.Equal(t, "s3cret", cfg.Credential("password"))
	assert.NotContains(t, cfg.Credentials, "unknown")
	assert.Empty(t, cfg.MissingCredentials())
}

func TestResolve_UndecryptableValueUsedAsIs(t *testing.T) {
	box, err := secrets.NewBox("operator-key")
	require.NoError(t, err)

	r := newResolver(t, catalog.NewStaticOverrides(catalog.Override{
		Code:        shipper.CodeXpressbees,
		Credentials: map[string]string{"email": "a@b.c", "password": secrets.Prefix + "garbage"},
	}), box)

	cfg, err := r.Resolve(context.Background(), shipper.CodeXpressbees)
	require.NoError(t, err)
	assert.Equal(t, secrets.Prefix+"garbage", cfg.Credential("password"))
}

func TestResolve_EmptyCredentialIsMissing(t *testing.T) {
	r := newResolver(t, catalog.NewStaticOverrides(catalog.Override{
		Code:        shipper.CodeEkart,
		Credentials: map[string]string{"key_id": "k", "key_secret": ""},
	}), nil)

	cfg, err := r.Resolve(context.Background(), shipper.CodeEkart)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"key_secret", "merchant_code"}, cfg.MissingCredentials())
}

func TestResolve_TokenTTL(t *testing.T) {
	r := newResolver(t, nil, nil)
	cfg, err := r.Resolve(context.Background(), shipper.CodeBigShip)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)

	r = newResolver(t, catalog.NewStaticOverrides(catalog.Override{Code: shipper.CodeBigShip, TokenTTL: 6 * time.Hour}), nil)
	cfg, err = r.Resolve(context.Background(), shipper.CodeBigShip)
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, cfg.TokenTTL)
}

func TestFileOverrides(t *testing.T) {
	path := writeFile(t, "overrides.yaml", `
carriers:
  - code: Delhivery
    endpoint: https://staging.example.test
    mode: test
    is_primary: true
    credentials:
      api_token: abc
  - code: bigship
    enabled: false
    token_ttl: 90m
`)
	src := catalog.NewFileOverrides(path)

	o, ok, err := src.Override(context.Background(), shipper.CodeDelhivery)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://staging.example.test", o.Endpoint)
	assert.Equal(t, shipper.ModeTest, o.Mode)
	assert.True(t, o.Primary)
	assert.Equal(t, "abc", o.Credentials["api_token"])

	o, ok, err = src.Override(context.Background(), shipper.CodeBigShip)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, o.Enabled)
	assert.False(t, *o.Enabled)
	assert.Equal(t, 90*time.Minute, o.TokenTTL)

	_, ok, err = src.Override(context.Background(), shipper.CodeEkart)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileOverrides_EditsApplyToNextLookup(t *testing.T) {
	path := writeFile(t, "overrides.yaml", "carriers:\n  - code: ekart\n    endpoint: https://one\n")
	src := catalog.NewFileOverrides(path)

	o, _, err := src.Override(context.Background(), shipper.CodeEkart)
	require.NoError(t, err)
	assert.Equal(t, "https://one", o.Endpoint)

	require.NoError(t, os.WriteFile(path, []byte("carriers:\n  - code: ekart\n    endpoint: https://two\n"), 0o600))
	o, _, err = src.Override(context.Background(), shipper.CodeEkart)
	require.NoError(t, err)
	assert.Equal(t, "https://two", o.Endpoint)
}

func TestFileOverrides_MissingFile(t *testing.T) {
	src := catalog.NewFileOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	_, ok, err := src.Override(context.Background(), shipper.CodeEkart)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadCatalog_LayersOverDefaults(t *testing.T) {
	path := writeFile(t, "catalog.yaml", `
carriers:
  - code: xpressbees
    display_name: XpressBees Surface
    endpoints:
      test: https://sandbox.xb.test
    restrictions:
      max_weight_kg: 20
  - code: dtdc
    display_name: DTDC
    credential_schema:
      - name: api_key
        required: true
        secret: true
`)
	c, err := catalog.LoadCatalog(path)
	require.NoError(t, err)

	xb, ok := c.Entry(shipper.CodeXpressbees)
	require.True(t, ok)
	assert.Equal(t, "XpressBees Surface", xb.DisplayName)
	assert.Equal(t, "https://sandbox.xb.test", xb.Endpoints[shipper.ModeTest])
	assert.Equal(t, "https://shipment.xpressbees.com", xb.Endpoints[shipper.ModeProduction])
	assert.Equal(t, 20.0, xb.Restrictions.MaxWeightKg)
	assert.NotEmpty(t, xb.CredentialSchema)

	dtdc, ok := c.Entry(shipper.Code("dtdc"))
	require.True(t, ok)
	assert.True(t, dtdc.Enabled)
	require.Len(t, dtdc.CredentialSchema, 1)
	assert.True(t, dtdc.CredentialSchema[0].Secret)
	assert.Len(t, c.Codes(), len(shipper.KnownCodes())+1)
}

func TestLoadCatalog_EntryWithoutCode(t *testing.T) {
	path := writeFile(t, "catalog.yaml", "carriers:\n  - display_name: nameless\n")
	_, err := catalog.LoadCatalog(path)
	assert.Error(t, err)
}

func TestCarrierSetting_Override(t *testing.T) {
	row := catalog.CarrierSetting{
		Code:        "shiprocket",
		Endpoint:    "https://sr.test",
		Mode:        "test",
		Credentials: datatypes.JSON(`{"email":"a@b.c","password":"enc:v1:xyz"}`),
		Enabled:     boolPtr(true),
		IsPrimary:   true,
		TokenTTL:    3600,
	}

	o, err := row.Override()
	require.NoError(t, err)
	assert.Equal(t, shipper.CodeShiprocket, o.Code)
	assert.Equal(t, "https://sr.test", o.Endpoint)
	assert.Equal(t, shipper.ModeTest, o.Mode)
	assert.Equal(t, map[string]string{"email": "a@b.c", "password": "enc:v1:xyz"}, o.Credentials)
	assert.True(t, o.Primary)
	assert.Equal(t, time.Hour, o.TokenTTL)
	assert.Equal(t, "carrier_settings", row.TableName())
}

func TestCarrierSetting_BadCredentials(t *testing.T) {
	row := catalog.CarrierSetting{Code: "ekart", Credentials: datatypes.JSON(`["not","an","object"]`)}
	_, err := row.Override()
	assert.Error(t, err)
}
