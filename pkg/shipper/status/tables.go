package status

import (
	"github.com/tournevent/courierhub/pkg/shipper"
)

const (
	created         = shipper.StatusCreated
	pickupScheduled = shipper.StatusPickupScheduled
	pickedUp        = shipper.StatusPickedUp
	inTransit       = shipper.StatusInTransit
	outForDelivery  = shipper.StatusOutForDelivery
	delivered       = shipper.StatusDelivered
	rtoInTransit    = shipper.StatusRTOInTransit
	rtoDelivered    = shipper.StatusRTODelivered
	cancelled       = shipper.StatusCancelled
	deliveryFailed  = shipper.StatusDeliveryFailed
	lost            = shipper.StatusLost
)

// Delhivery reports Status plus StatusType (UD forward, DL delivered, RT return,
// PP pickup pending, PU picked up, CN cancelled). The same Status string means
// different things under RT, hence the qualified keys.
var delhivery = table{
	"manifested":     created,
	"open":           created,
	"scheduled":      pickupScheduled,
	"not picked":     pickupScheduled,
	"picked up":      pickedUp,
	"in transit":     inTransit,
	"pending":        inTransit,
	"dispatched":     outForDelivery,
	"delivered":      delivered,
	"not delivered":  deliveryFailed,
	"undelivered":    deliveryFailed,
	"rto":            rtoInTransit,
	"returned":       rtoDelivered,
	"canceled":       cancelled,
	"cancelled":      cancelled,
	"lost":           lost,
	"pp|open":        pickupScheduled,
	"pp|scheduled":   pickupScheduled,
	"pp|not picked":  pickupScheduled,
	"pu|in transit":  pickedUp,
	"ud|manifested":  created,
	"ud|not picked":  pickupScheduled,
	"ud|in transit":  inTransit,
	"ud|pending":     inTransit,
	"ud|dispatched":  outForDelivery,
	"dl|delivered":   delivered,
	"dl|rto":         rtoDelivered,
	"rt|in transit":  rtoInTransit,
	"rt|pending":     rtoInTransit,
	"rt|dispatched":  rtoInTransit,
	"rt|delivered":   rtoDelivered,
	"cn|canceled":    cancelled,
	"cn|cancelled":   cancelled,
	"ud|lost":        lost,
	"ud|undelivered": deliveryFailed,
}

// Shiprocket sends upper-case labels in tracking activities and numeric
// shipment_status codes in webhooks; both are mapped.
var shiprocket = table{
	"new":                        created,
	"awb assigned":               created,
	"label generated":            created,
	"manifest generated":         created,
	"shipment booked":            created,
	"pickup scheduled":           pickupScheduled,
	"pickup generated":           pickupScheduled,
	"pickup queued":              pickupScheduled,
	"pickup rescheduled":         pickupScheduled,
	"out for pickup":             pickupScheduled,
	"pickup exception":           pickupScheduled,
	"pickup error":               pickupScheduled,
	"picked up":                  pickedUp,
	"shipped":                    inTransit,
	"in transit":                 inTransit,
	"delayed":                    inTransit,
	"reached at destination hub": inTransit,
	"out for delivery":           outForDelivery,
	"delivered":                  delivered,
	"undelivered":                deliveryFailed,
	"rto initiated":              rtoInTransit,
	"rto acknowledged":           rtoInTransit,
	"rto in transit":             rtoInTransit,
	"rto ofd":                    rtoInTransit,
	"rto delivered":              rtoDelivered,
	"canceled":                   cancelled,
	"cancelled":                  cancelled,
	"cancellation requested":     cancelled,
	"lost":                       lost,
	"damaged":                    lost,
	"destroyed":                  lost,
	"disposed off":               lost,
	"6":                          inTransit,
	"7":                          delivered,
	"8":                          cancelled,
	"9":                          rtoInTransit,
	"10":                         rtoDelivered,
	"12":                         lost,
	"13":                         pickupScheduled,
	"14":                         rtoInTransit,
	"15":                         pickupScheduled,
	"16":                         cancelled,
	"17":                         outForDelivery,
	"18":                         inTransit,
	"19":                         pickupScheduled,
	"20":                         pickupScheduled,
	"21":                         deliveryFailed,
	"22":                         inTransit,
	"38":                         inTransit,
	"42":                         pickedUp,
	"52":                         created,
}

var bigship = table{
	"manifested":              created,
	"order placed":            created,
	"pickup scheduled":        pickupScheduled,
	"out for pickup":          pickupScheduled,
	"picked up":               pickedUp,
	"in transit":              inTransit,
	"reached destination hub": inTransit,
	"out for delivery":        outForDelivery,
	"delivered":               delivered,
	"undelivered":             deliveryFailed,
	"ndr":                     deliveryFailed,
	"rto initiated":           rtoInTransit,
	"rto in transit":          rtoInTransit,
	"rto delivered":           rtoDelivered,
	"cancelled":               cancelled,
	"lost":                    lost,
	"damaged":                 lost,
}

// Xpressbees tracking history carries short status codes; the textual forms
// appear in the summary status field.
var xpressbees = table{
	"drc":              created,
	"pending pickup":   pickupScheduled,
	"pp":               pickupScheduled,
	"ofp":              pickupScheduled,
	"pu":               pickedUp,
	"picked up":        pickedUp,
	"it":               inTransit,
	"in transit":       inTransit,
	"rad":              inTransit,
	"ofd":              outForDelivery,
	"out for delivery": outForDelivery,
	"dl":               delivered,
	"delivered":        delivered,
	"ud":               deliveryFailed,
	"undelivered":      deliveryFailed,
	"rt":               rtoInTransit,
	"rt-it":            rtoInTransit,
	"rto":              rtoInTransit,
	"rt-dl":            rtoDelivered,
	"rto delivered":    rtoDelivered,
	"cn":               cancelled,
	"cancelled":        cancelled,
	"lt":               lost,
	"lost":             lost,
	"dg":               lost,
}

var ekart = table{
	"shipment_created":                     created,
	"pickup_scheduled":                     pickupScheduled,
	"out_for_pickup":                       pickupScheduled,
	"pickup_complete":                      pickedUp,
	"picked_up":                            pickedUp,
	"shipment_received_at_origin_hub":      inTransit,
	"shipment_in_transit":                  inTransit,
	"shipment_received_at_destination_hub": inTransit,
	"reached_destination_hub":              inTransit,
	"shipment_out_for_delivery":            outForDelivery,
	"shipment_delivered":                   delivered,
	"delivered":                            delivered,
	"shipment_undelivered_attempted":       deliveryFailed,
	"undelivered_attempted":                deliveryFailed,
	"return_created":                       rtoInTransit,
	"shipment_rto_created":                 rtoInTransit,
	"shipment_rto_in_transit":              rtoInTransit,
	"return_delivered":                     rtoDelivered,
	"shipment_rto_delivered":               rtoDelivered,
	"rto_completed":                        rtoDelivered,
	"shipment_cancelled":                   cancelled,
	"cancelled":                            cancelled,
	"shipment_lost":                        lost,
	"lost":                                 lost,
}

var ecomExpress = table{
	"soft data uploaded":  created,
	"pickup assigned":     pickupScheduled,
	"out for pickup":      pickupScheduled,
	"field pickup done":   pickedUp,
	"shipment picked up":  pickedUp,
	"bagging completed":   inTransit,
	"in transit":          inTransit,
	"shipment redirected": inTransit,
	"out for delivery":    outForDelivery,
	"delivered":           delivered,
	"undelivered":         deliveryFailed,
	"not delivered":       deliveryFailed,
	"rto":                 rtoInTransit,
	"rto in transit":      rtoInTransit,
	"returned":            rtoDelivered,
	"rto delivered":       rtoDelivered,
	"return delivered":    rtoDelivered,
	"shipment cancelled":  cancelled,
	"cancelled":           cancelled,
	"shipment lost":       lost,
	"lost":                lost,
}
