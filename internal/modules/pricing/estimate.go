// README: Pure fare and duration estimators.
package pricing

import "math"

// MaxTripKm is half the Earth's circumference; no great-circle trip is longer.
const MaxTripKm = 20038.0

// maxAmount is the largest float64 below 2^63, so conversions to int64 never overflow.
var maxAmount = math.Nextafter(math.MaxInt64, 0)

// EstimatePrice prices a trip with the default rates.
func EstimatePrice(distanceKm float64, class VehicleClass) int64 {
	return DefaultRates.EstimatePrice(distanceKm, class)
}

// EstimatePrice returns ceil(base + perKm*distance) for the class.
// A zero, negative, NaN or infinite distance and an unknown class all yield 0 ("no estimate yet").
func (t Table) EstimatePrice(distanceKm float64, class VehicleClass) int64 {
	if !(distanceKm > 0) || math.IsInf(distanceKm, 1) {
		return 0
	}
	r, ok := t[class]
	if !ok {
		return 0
	}
	p := math.Ceil(float64(r.BaseFare) + float64(r.PerKm)*distanceKm)
	if p <= 0 {
		return 0
	}
	if p >= maxAmount {
		return math.MaxInt64
	}
	return int64(p)
}

// Currency returns the currency of the class rate, or the default one.
func (t Table) Currency(class VehicleClass) string {
	if r, ok := t[class]; ok && r.Currency != "" {
		return r.Currency
	}
	return DefaultRates[ClassStandard].Currency
}

// EstimateDurationMin assumes city traffic: two minutes per km plus five minutes of pickup overhead.
func EstimateDurationMin(distanceKm float64) int {
	if !(distanceKm > 0) || math.IsInf(distanceKm, 1) {
		return 0
	}
	m := math.Round(distanceKm*2) + 5
	if m >= float64(math.MaxInt32) {
		return math.MaxInt32
	}
	return int(m)
}

// Range returns the displayed price bracket: -10% and +15% of the estimate, rounded up.
func Range(price int64) (min, max int64) {
	if price <= 0 {
		return 0, 0
	}
	return ceilPercent(price, 90), ceilPercent(price, 115)
}

// ceilPercent computes ceil(v*pct/100) without overflowing, saturating at MaxInt64.
func ceilPercent(v, pct int64) int64 {
	q, r := v/100, v%100
	if q > (math.MaxInt64-pct)/pct {
		return math.MaxInt64
	}
	return q*pct + (r*pct+99)/100
}
