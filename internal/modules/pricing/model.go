// README: Vehicle classes and per-class fare rates.
package pricing

import "github.com/guetchou/BantuDelice-sub001/internal/types"

type VehicleClass string

const (
	ClassStandard VehicleClass = "standard"
	ClassComfort  VehicleClass = "comfort"
	ClassPremium  VehicleClass = "premium"
	ClassVan      VehicleClass = "van"
)

// Classes lists every bookable vehicle class in display order.
var Classes = []VehicleClass{ClassStandard, ClassComfort, ClassPremium, ClassVan}

func (c VehicleClass) Valid() bool {
	switch c {
	case ClassStandard, ClassComfort, ClassPremium, ClassVan:
		return true
	}
	return false
}

type Rate struct {
	Class    VehicleClass `json:"vehicle_class"`
	BaseFare int64        `json:"base_fare"`
	PerKm    int64        `json:"per_km"`
	Currency string       `json:"currency"`
}

// Table maps each vehicle class to its rate.
type Table map[VehicleClass]Rate

// DefaultRates are the city fares in whole francs, used when no rate rows are stored.
var DefaultRates = Table{
	ClassStandard: {Class: ClassStandard, BaseFare: 500, PerKm: 100, Currency: types.DefaultCurrency},
	ClassComfort:  {Class: ClassComfort, BaseFare: 800, PerKm: 150, Currency: types.DefaultCurrency},
	ClassPremium:  {Class: ClassPremium, BaseFare: 1200, PerKm: 200, Currency: types.DefaultCurrency},
	ClassVan:      {Class: ClassVan, BaseFare: 1500, PerKm: 250, Currency: types.DefaultCurrency},
}

// Quote is a priced trip estimate returned to callers.
type Quote struct {
	Class       VehicleClass `json:"vehicle_class"`
	DistanceKm  float64      `json:"distance_km"`
	DurationMin int          `json:"duration_min"`
	Price       types.Money  `json:"price"`
	MinPrice    int64        `json:"min_price"`
	MaxPrice    int64        `json:"max_price"`
}
