package pricing

import (
	bookingserrors "aptbook/internal/bookings/errors"
	"aptbook/pkg/model"

	"github.com/shopspring/decimal"
)

// Nights is the number of whole nights in [checkIn, checkOut).
func Nights(checkIn, checkOut model.Date) int {
	return checkIn.DaysUntil(checkOut)
}

// TotalPrice is price_per_night * nights + cleaning_fee + service_fee in the
// apartment's pricing currency. An apartment without pricing costs nothing.
func TotalPrice(apartment *model.Apartment, nights int) (decimal.Decimal, error) {
	if nights <= 0 {
		return decimal.Zero, bookingserrors.ErrInvalidNights
	}
	if apartment == nil || apartment.Pricing == nil {
		return decimal.Zero, nil
	}

	p := apartment.Pricing
	total := p.PricePerNight.Mul(decimal.NewFromInt(int64(nights))).
		Add(p.CleaningFee).
		Add(p.ServiceFee)
	return total, nil
}

// Currency returns the currency totals for apartment are quoted in.
func Currency(apartment *model.Apartment) string {
	if apartment == nil || apartment.Pricing == nil || apartment.Pricing.Currency == "" {
		return model.DefaultCurrency
	}
	return apartment.Pricing.Currency
}

// MinorUnits converts an amount into the currency's smallest unit for payment
// providers, e.g. 330.00 GBP becomes 33000.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
