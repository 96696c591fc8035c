package delhivery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/delhivery"
)

func TestParseWebhook_Single(t *testing.T) {
	body := []byte(`{
		"Shipment": {
			"AWB": "1490811234567",
			"ReferenceNo": "ORD-1001",
			"Status": {
				"Status": "Dispatched",
				"StatusType": "UD",
				"StatusDateTime": "2024-03-06T08:12:44.000",
				"StatusLocation": "Bengaluru_Koramangala_DC",
				"Instructions": "Out for delivery"
			}
		}
	}`)

	updates, err := delhivery.ParseWebhook(body)

	require.NoError(t, err)
	require.Len(t, updates, 1)
	u := updates[0]
	assert.Equal(t, shipper.CodeDelhivery, u.Carrier)
	assert.Equal(t, "1490811234567", u.TrackingNumber)
	assert.Equal(t, shipper.StatusOutForDelivery, u.Status)
	assert.Equal(t, "Dispatched", u.VendorStatus)
	assert.Equal(t, "Bengaluru_Koramangala_DC", u.Location)
	assert.Equal(t, 8, u.OccurredAt.Hour())
}

func TestParseWebhook_Batch(t *testing.T) {
	body := []byte(`[
		{"Shipment": {"AWB": "1", "Status": {"Status": "Delivered", "StatusType": "DL"}}},
		{"Shipment": {"AWB": "2", "Status": {"Status": "Delivered", "StatusType": "RT"}}}
	]`)

	updates, err := delhivery.ParseWebhook(body)

	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, shipper.StatusDelivered, updates[0].Status)
	assert.Equal(t, shipper.StatusRTODelivered, updates[1].Status)
}

func TestParseWebhook_UnmappedStatus(t *testing.T) {
	updates, err := delhivery.ParseWebhook([]byte(`{"Shipment": {"AWB": "1", "Status": {"Status": "Seized by customs"}}}`))

	require.NoError(t, err)
	assert.Equal(t, shipper.StatusUnknown, updates[0].Status)
}

func TestParseWebhook_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":    `<xml/>`,
		"missing awb": `{"Shipment": {"Status": {"Status": "Delivered"}}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := delhivery.ParseWebhook([]byte(body))
			assert.ErrorIs(t, err, shipper.ErrInvalidRequest)
		})
	}
}
