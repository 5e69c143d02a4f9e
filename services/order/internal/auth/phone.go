package auth

import (
	"errors"
	"strings"

	"github.com/ttacon/libphonenumber"
)

const DefaultRegion = "IN"

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone parses a user typed number and returns it in E.164 form.
// Numbers without a country prefix are read in the given region.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}
	if region == "" {
		region = DefaultRegion
	}

	num, err := libphonenumber.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}

	return libphonenumber.Format(num, libphonenumber.E164), nil
}
