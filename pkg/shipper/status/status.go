// Package status maps carrier tracking vocabularies onto shipper.CanonicalStatus.
//
// Tables are partial by nature: carriers add scan codes without notice, so
// anything not listed resolves to StatusUnknown rather than failing.
package status

import (
	"strings"

	"github.com/tournevent/courierhub/pkg/shipper"
)

type table map[string]shipper.CanonicalStatus

// Qualified keys join a vendor status type and status with this separator,
// e.g. Delhivery's "RT|In Transit".
const qualifier = "|"

var tables = map[shipper.Code]table{
	shipper.CodeDelhivery:   delhivery,
	shipper.CodeShiprocket:  shiprocket,
	shipper.CodeBigShip:     bigship,
	shipper.CodeXpressbees:  xpressbees,
	shipper.CodeEkart:       ekart,
	shipper.CodeEcomExpress: ecomExpress,
}

// Normalize resolves a vendor status string for the carrier. It never fails:
// unmapped input, including empty strings and unknown carriers, yields StatusUnknown.
func Normalize(code shipper.Code, vendorStatus string) shipper.CanonicalStatus {
	t, ok := tables[code]
	if !ok {
		return shipper.StatusUnknown
	}
	key := canonicalKey(vendorStatus)
	if s, ok := t[key]; ok {
		return s
	}
	if i := strings.LastIndex(key, qualifier); i >= 0 {
		if s, ok := t[strings.TrimSpace(key[i+1:])]; ok {
			return s
		}
	}
	return shipper.StatusUnknown
}

// Qualify builds a qualified key from a status type and status.
func Qualify(statusType, vendorStatus string) string {
	if strings.TrimSpace(statusType) == "" {
		return vendorStatus
	}
	return statusType + qualifier + vendorStatus
}

// Table returns a copy of the carrier's mapping, keyed by normalized vendor status.
func Table(code shipper.Code) map[string]shipper.CanonicalStatus {
	t := tables[code]
	out := make(map[string]shipper.CanonicalStatus, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func canonicalKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, " | ", qualifier)
}
