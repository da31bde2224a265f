package model

import (
	"encoding/json"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "valid", input: "2025-07-10", want: NewDate(2025, time.July, 10)},
		{name: "leap day", input: "2024-02-29", want: NewDate(2024, time.February, 29)},
		{name: "not a leap year", input: "2025-02-29", wantErr: true},
		{name: "with time", input: "2025-07-10T10:00:00Z", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDate_DaysUntil(t *testing.T) {
	tests := []struct {
		name     string
		from, to Date
		want     int
	}{
		{"five nights", NewDate(2025, 7, 10), NewDate(2025, 7, 15), 5},
		{"same day", NewDate(2025, 7, 10), NewDate(2025, 7, 10), 0},
		{"backwards", NewDate(2025, 7, 15), NewDate(2025, 7, 10), -5},
		{"across month", NewDate(2025, 1, 30), NewDate(2025, 2, 2), 3},
		{"across dst change", NewDate(2025, 3, 29), NewDate(2025, 4, 1), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.DaysUntil(tt.to); got != tt.want {
				t.Errorf("DaysUntil() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDateOf_DropsTimeOfDay(t *testing.T) {
	got := DateOf(time.Date(2025, 7, 10, 23, 59, 59, 0, time.UTC))
	if !got.Equal(NewDate(2025, 7, 10)) {
		t.Errorf("DateOf() = %v", got)
	}
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		CheckIn  Date  `json:"check_in"`
		CheckOut *Date `json:"check_out"`
	}

	t.Run("marshal", func(t *testing.T) {
		out := NewDate(2025, 7, 15)
		data, err := json.Marshal(payload{CheckIn: NewDate(2025, 7, 10), CheckOut: &out})
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		want := `{"check_in":"2025-07-10","check_out":"2025-07-15"}`
		if string(data) != want {
			t.Errorf("Marshal() = %s, want %s", data, want)
		}
	})

	t.Run("zero marshals to null", func(t *testing.T) {
		data, err := json.Marshal(payload{})
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != `{"check_in":null,"check_out":null}` {
			t.Errorf("Marshal() = %s", data)
		}
	})

	t.Run("missing pointer stays nil", func(t *testing.T) {
		var p payload
		if err := json.Unmarshal([]byte(`{"check_in":"2025-07-10"}`), &p); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if p.CheckOut != nil {
			t.Errorf("CheckOut = %v, want nil", p.CheckOut)
		}
		if !p.CheckIn.Equal(NewDate(2025, 7, 10)) {
			t.Errorf("CheckIn = %v", p.CheckIn)
		}
	})

	t.Run("rejects bad format", func(t *testing.T) {
		var p payload
		if err := json.Unmarshal([]byte(`{"check_in":"10/07/2025"}`), &p); err == nil {
			t.Error("expected error for non ISO date")
		}
		if err := json.Unmarshal([]byte(`{"check_in":20250710}`), &p); err == nil {
			t.Error("expected error for numeric date")
		}
	})
}

func TestDate_BSONRoundTrip(t *testing.T) {
	type doc struct {
		Day Date `bson:"day"`
	}

	in := doc{Day: NewDate(2025, 7, 10)}
	data, err := bson.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw bson.M
	if err := bson.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() raw error = %v", err)
	}
	if _, ok := raw["day"].(interface{ Time() time.Time }); !ok {
		t.Errorf("day stored as %T, want BSON datetime", raw["day"])
	}

	var out doc
	if err := bson.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !out.Day.Equal(in.Day) {
		t.Errorf("round trip = %v, want %v", out.Day, in.Day)
	}
}

func TestBooking_Overlaps(t *testing.T) {
	existing := &Booking{CheckIn: NewDate(2025, 7, 10), CheckOut: NewDate(2025, 7, 15)}

	tests := []struct {
		name     string
		in, out  Date
		expected bool
	}{
		{"straddles checkout", NewDate(2025, 7, 14), NewDate(2025, 7, 16), true},
		{"starts on checkout day", NewDate(2025, 7, 15), NewDate(2025, 7, 18), false},
		{"ends on checkin day", NewDate(2025, 7, 5), NewDate(2025, 7, 10), false},
		{"contains", NewDate(2025, 7, 1), NewDate(2025, 7, 31), true},
		{"inside", NewDate(2025, 7, 11), NewDate(2025, 7, 12), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := existing.Overlaps(tt.in, tt.out); got != tt.expected {
				t.Errorf("Overlaps() = %v, want %v", got, tt.expected)
			}
		})
	}
}
