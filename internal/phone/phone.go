// Package phone normalises customer phone numbers to E.164.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const DefaultRegion = "PK"

var ErrInvalid = errors.New("invalid phone number")

// Normalize parses raw in region (PK when empty) and returns the E.164 form. Local
// numbers such as "0300 1234567" and bare country-code numbers such as "923001234567"
// are both accepted.
func Normalize(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalid)
	}
	if region == "" {
		region = DefaultRegion
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: %s", ErrInvalid, raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// WhatsApp returns the channel address Twilio expects for WhatsApp messages.
func WhatsApp(e164 string) string {
	if strings.HasPrefix(e164, "whatsapp:") {
		return e164
	}
	return "whatsapp:" + e164
}
