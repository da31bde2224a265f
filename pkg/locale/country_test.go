package locale

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode string
		wantNil  bool
	}{
		{name: "code", input: "GB", wantCode: "GB"},
		{name: "lowercase code", input: "us", wantCode: "US"},
		{name: "name", input: "Israel", wantCode: "IL"},
		{name: "alias", input: "uk", wantCode: "GB"},
		{name: "alias with spaces", input: "  England ", wantCode: "GB"},
		{name: "unknown", input: "Atlantis", wantNil: true},
		{name: "empty", input: "", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lookup(tt.input)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Lookup(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil || got.Code != tt.wantCode {
				t.Errorf("Lookup(%q) = %v, want %s", tt.input, got, tt.wantCode)
			}
		})
	}
}

func TestCanonicalCountry(t *testing.T) {
	if got := CanonicalCountry("United Kingdom"); got != "GB" {
		t.Errorf("CanonicalCountry(United Kingdom) = %q", got)
	}
	if got := CanonicalCountry(" Narnia "); got != "Narnia" {
		t.Errorf("CanonicalCountry(Narnia) = %q", got)
	}
}

func TestPhoneRegions_StartWithHomeMarket(t *testing.T) {
	regions := PhoneRegions()
	if len(regions) != len(Countries) || regions[0] != "GB" {
		t.Errorf("PhoneRegions() = %v", regions)
	}
}
