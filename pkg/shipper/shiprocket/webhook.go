package shiprocket

import (
	"encoding/json"
	"fmt"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// ParseWebhook decodes a Shiprocket tracking push. The textual status is
// preferred; the numeric status id is the fallback.
func ParseWebhook(body []byte) ([]shipper.StatusUpdate, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: decoding shiprocket webhook: %v", shipper.ErrInvalidRequest, err)
	}
	if p.AWB == "" {
		return nil, fmt.Errorf("%w: shiprocket webhook without awb", shipper.ErrInvalidRequest)
	}

	ts, ok := wire.ParseTime(p.CurrentTimestamp, timeLayouts...)
	if !ok && len(p.Scans) > 0 {
		ts, _ = wire.ParseTime(p.Scans[len(p.Scans)-1].Date, timeLayouts...)
	}
	var location string
	if len(p.Scans) > 0 {
		location = p.Scans[len(p.Scans)-1].Location
	}

	return []shipper.StatusUpdate{{
		Carrier:        carrierCode,
		TrackingNumber: p.AWB.String(),
		Status:         normalize(p.CurrentStatus, p.CurrentStatusID.String(), p.ShipmentStatus, p.ShipmentStatusID.String()),
		VendorStatus:   firstNonEmpty(p.CurrentStatus, p.ShipmentStatus),
		Location:       location,
		OccurredAt:     ts,
	}}, nil
}

var _ shipper.WebhookParser = ParseWebhook
