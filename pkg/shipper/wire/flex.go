package wire

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString decodes a JSON string or number into a string. Vendors switch
// between the two for ids depending on endpoint.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		*f = FlexString(unq)
		return nil
	}
	*f = FlexString(s)
	return nil
}

// String returns f as a plain string.
func (f FlexString) String() string {
	return string(f)
}

// FlexFloat decodes a JSON number or numeric string. Empty strings decode to zero.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	v, err := flexNumber(b)
	if err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// FlexInt decodes a JSON number or numeric string, truncating fractions.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	v, err := flexNumber(b)
	if err != nil {
		return err
	}
	*f = FlexInt(int(v))
	return nil
}

func flexNumber(b []byte) (float64, error) {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return 0, nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		unq = strings.TrimSpace(unq)
		if unq == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(unq, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", unq)
		}
		return v, nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return 0, err
	}
	return v, nil
}
