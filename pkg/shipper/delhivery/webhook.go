package delhivery

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/status"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// ParseWebhook decodes a scan push. Delhivery sends one shipment per call,
// but batched arrays are accepted too.
func ParseWebhook(body []byte) ([]shipper.StatusUpdate, error) {
	var payloads []WebhookPayload
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &payloads); err != nil {
			return nil, fmt.Errorf("%w: decoding delhivery webhook: %v", shipper.ErrInvalidRequest, err)
		}
	} else {
		var p WebhookPayload
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, fmt.Errorf("%w: decoding delhivery webhook: %v", shipper.ErrInvalidRequest, err)
		}
		payloads = append(payloads, p)
	}

	updates := make([]shipper.StatusUpdate, 0, len(payloads))
	for _, p := range payloads {
		s := p.Shipment
		if s.AWB == "" {
			return nil, fmt.Errorf("%w: delhivery webhook without AWB", shipper.ErrInvalidRequest)
		}
		ts, _ := wire.ParseTime(s.Status.StatusDateTime, timeLayouts...)
		updates = append(updates, shipper.StatusUpdate{
			Carrier:        carrierCode,
			TrackingNumber: s.AWB,
			Status:         status.Normalize(carrierCode, status.Qualify(s.Status.StatusType, s.Status.Status)),
			VendorStatus:   s.Status.Status,
			Location:       s.Status.StatusLocation,
			Description:    s.Status.Instructions,
			OccurredAt:     ts,
		})
	}
	return updates, nil
}

var _ shipper.WebhookParser = ParseWebhook
