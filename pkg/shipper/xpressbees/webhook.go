package xpressbees

import (
	"encoding/json"
	"fmt"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// ParseWebhook decodes an Xpressbees status push. The short status code is
// preferred over the textual status.
func ParseWebhook(body []byte) ([]shipper.StatusUpdate, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: decoding xpressbees webhook: %v", shipper.ErrInvalidRequest, err)
	}
	if p.AWBNumber == "" {
		return nil, fmt.Errorf("%w: xpressbees webhook without awb_number", shipper.ErrInvalidRequest)
	}
	ts, _ := wire.ParseTime(p.EventTime, timeLayouts...)
	return []shipper.StatusUpdate{{
		Carrier:        carrierCode,
		TrackingNumber: p.AWBNumber.String(),
		Status:         normalize(p.StatusCode, p.Status),
		VendorStatus:   firstNonEmpty(p.StatusCode, p.Status),
		Location:       p.Location,
		Description:    p.Message,
		OccurredAt:     ts,
	}}, nil
}

var _ shipper.WebhookParser = ParseWebhook
