package sanitizer

import (
	"strings"

	"aptbook/pkg/locale"

	"github.com/nyaruka/phonenumbers"
)

// Numbers without a country prefix are tried against these regions in order.
var supportedRegions = locale.PhoneRegions()

func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	for _, region := range supportedRegions {
		parsed, err := phonenumbers.Parse(phone, region)
		if err != nil || !phonenumbers.IsPossibleNumber(parsed) {
			continue
		}
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}
	return ""
}
