package locale

import (
	"strings"
)

type Country struct {
	Code    string   // ISO 3166-1 alpha-2 country code (e.g., "GB", "US")
	Name    string   // Human-readable country name
	Aliases []string // Other spellings clients send (e.g., "UK", "England")
}

// Countries is ordered by how often listings use them. The order also decides
// which region a phone number without a country prefix is parsed against.
var Countries = []Country{
	{Code: "GB", Name: "United Kingdom", Aliases: []string{"UK", "Great Britain", "England", "Scotland", "Wales", "Northern Ireland"}},
	{Code: "US", Name: "United States", Aliases: []string{"USA", "United States of America", "America"}},
	{Code: "IL", Name: "Israel"},
	{Code: "IE", Name: "Ireland", Aliases: []string{"Eire"}},
	{Code: "FR", Name: "France"},
	{Code: "DE", Name: "Germany", Aliases: []string{"Deutschland"}},
	{Code: "ES", Name: "Spain", Aliases: []string{"España"}},
	{Code: "IT", Name: "Italy", Aliases: []string{"Italia"}},
	{Code: "PT", Name: "Portugal"},
	{Code: "NL", Name: "Netherlands", Aliases: []string{"Holland", "The Netherlands"}},
}

// Lookup finds a country by code, name or alias, ignoring case.
func Lookup(s string) *Country {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for i := range Countries {
		c := &Countries[i]
		if strings.EqualFold(s, c.Code) || strings.EqualFold(s, c.Name) {
			return c
		}
		for _, alias := range c.Aliases {
			if strings.EqualFold(s, alias) {
				return c
			}
		}
	}
	return nil
}

// CanonicalCountry returns the ISO code for a known country and the trimmed
// input otherwise.
func CanonicalCountry(s string) string {
	if c := Lookup(s); c != nil {
		return c.Code
	}
	return strings.TrimSpace(s)
}

// PhoneRegions lists the region codes national phone numbers are tried against.
func PhoneRegions() []string {
	regions := make([]string, 0, len(Countries))
	for _, c := range Countries {
		regions = append(regions, c.Code)
	}
	return regions
}
