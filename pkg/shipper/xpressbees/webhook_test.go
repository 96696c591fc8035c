package xpressbees_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/xpressbees"
)

func TestParseWebhook(t *testing.T) {
	body := []byte(`{"awb_number": 14000000001, "status": "delivered", "status_code": "DL",
		"event_time": "2024-03-05 13:20", "location": "Chennai", "message": "Delivered to consignee"}`)

	updates, err := xpressbees.ParseWebhook(body)

	require.NoError(t, err)
	require.Len(t, updates, 1)
	u := updates[0]
	assert.Equal(t, shipper.CodeXpressbees, u.Carrier)
	assert.Equal(t, "14000000001", u.TrackingNumber)
	assert.Equal(t, shipper.StatusDelivered, u.Status)
	assert.Equal(t, "DL", u.VendorStatus)
	assert.Equal(t, "Chennai", u.Location)
	assert.Equal(t, 13, u.OccurredAt.Hour())
}

func TestParseWebhook_TextualStatusFallback(t *testing.T) {
	updates, err := xpressbees.ParseWebhook([]byte(`{"awb_number": "XB1", "status": "RTO Delivered"}`))

	require.NoError(t, err)
	assert.Equal(t, shipper.StatusRTODelivered, updates[0].Status)
	assert.Equal(t, "RTO Delivered", updates[0].VendorStatus)
}

func TestParseWebhook_UnmappedStatus(t *testing.T) {
	updates, err := xpressbees.ParseWebhook([]byte(`{"awb_number": "XB1", "status_code": "ZZ"}`))

	require.NoError(t, err)
	assert.Equal(t, shipper.StatusUnknown, updates[0].Status)
}

func TestParseWebhook_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"not json":    `{`,
		"missing awb": `{"status_code": "DL"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := xpressbees.ParseWebhook([]byte(body))
			assert.ErrorIs(t, err, shipper.ErrInvalidRequest)
		})
	}
}
