// Package impact converts EcoPoints into environmental impact figures using
// fixed, documented ratios. Everything here is pure so the same ledger always
// reproduces the same numbers.
package impact

import "github.com/noah-isme/ecolearn-go-api/internal/models"

// Ratios defines how many environmental units one point is worth.
type Ratios struct {
	CO2KgPerPoint     float64 `json:"co2_kg_per_point" mapstructure:"co2_kg_per_point"`
	PlasticKgPerPoint float64 `json:"plastic_kg_per_point" mapstructure:"plastic_kg_per_point"`
	WaterLPerPoint    float64 `json:"water_l_per_point" mapstructure:"water_l_per_point"`
	EnergyKwhPerPoint float64 `json:"energy_kwh_per_point" mapstructure:"energy_kwh_per_point"`
}

// Impact is an environmental impact delta or total.
type Impact struct {
	CO2Kg     float64 `json:"co2_kg"`
	PlasticKg float64 `json:"plastic_kg"`
	WaterL    float64 `json:"water_l"`
	EnergyKwh float64 `json:"energy_kwh"`
}

// Add returns the element-wise sum of two impacts.
func (i Impact) Add(other Impact) Impact {
	return Impact{
		CO2Kg:     i.CO2Kg + other.CO2Kg,
		PlasticKg: i.PlasticKg + other.PlasticKg,
		WaterL:    i.WaterL + other.WaterL,
		EnergyKwh: i.EnergyKwh + other.EnergyKwh,
	}
}

// Default per-kind conversion ratios. Learning modules anchor the scale at
// 0.1 kg CO2, 0.02 kg plastic, 0.5 L water and 0.05 kWh per point; hands-on
// kinds convert at higher rates because the underlying action is physical.
var defaultRatios = map[models.ActivityKind]Ratios{
	models.ActivityKindModule: {CO2KgPerPoint: 0.1, PlasticKgPerPoint: 0.02, WaterLPerPoint: 0.5, EnergyKwhPerPoint: 0.05},
	models.ActivityKindQuiz:   {CO2KgPerPoint: 0.05, PlasticKgPerPoint: 0.01, WaterLPerPoint: 0.25, EnergyKwhPerPoint: 0.025},
	models.ActivityKindTask:   {CO2KgPerPoint: 0.2, PlasticKgPerPoint: 0.05, WaterLPerPoint: 1.0, EnergyKwhPerPoint: 0.1},
	models.ActivityKindAction: {CO2KgPerPoint: 0.25, PlasticKgPerPoint: 0.08, WaterLPerPoint: 1.5, EnergyKwhPerPoint: 0.12},
	models.ActivityKindBonus:  {CO2KgPerPoint: 0.1, PlasticKgPerPoint: 0.02, WaterLPerPoint: 0.5, EnergyKwhPerPoint: 0.05},
}

// Constants for human-relatable comparisons.
const (
	// CO2KgPerCarTrip is the average CO2 emitted by a short urban car trip.
	CO2KgPerCarTrip = 2.3
	// PlasticKgPerBottle is the mass of a single-use PET bottle.
	PlasticKgPerBottle = 0.025
	// WaterLPerShower is the water used by an average shower.
	WaterLPerShower = 60.0
	// EnergyKwhPerPhoneCharge is the energy of one full smartphone charge.
	EnergyKwhPerPhoneCharge = 0.012
)

// Comparisons expresses an impact total in everyday equivalents.
type Comparisons struct {
	CarTripsAvoided float64 `json:"car_trips_avoided"`
	BottlesSaved    float64 `json:"bottles_saved"`
	ShowersSaved    float64 `json:"showers_saved"`
	PhoneCharges    float64 `json:"phone_charges"`
}

// DefaultRatios returns the built-in ratios for a kind. Unknown kinds get the
// module ratios, matching the conversion fallback.
func DefaultRatios(kind models.ActivityKind) Ratios {
	if r, ok := defaultRatios[kind]; ok {
		return r
	}
	return defaultRatios[models.ActivityKindModule]
}

// Converter maps (activity kind, points) to impact deltas. The zero value is
// not usable; construct with NewConverter.
type Converter struct {
	ratios map[models.ActivityKind]Ratios
}

// NewConverter builds a converter using the default ratios, with any non-zero
// overrides applied per activity kind.
func NewConverter(overrides map[models.ActivityKind]Ratios) Converter {
	ratios := make(map[models.ActivityKind]Ratios, len(defaultRatios))
	for kind, r := range defaultRatios {
		ratios[kind] = r
	}
	for kind, r := range overrides {
		if !kind.Valid() {
			continue
		}
		if r != (Ratios{}) {
			ratios[kind] = r
		}
	}
	return Converter{ratios: ratios}
}

// ImpactOf converts awarded points into an impact delta. Unknown kinds convert
// at the module rate so a new kind can never silently produce zero impact.
func (c Converter) ImpactOf(kind models.ActivityKind, points int) Impact {
	r, ok := c.ratios[kind]
	if !ok {
		r = defaultRatios[models.ActivityKindModule]
	}
	p := float64(points)
	return Impact{
		CO2Kg:     p * r.CO2KgPerPoint,
		PlasticKg: p * r.PlasticKgPerPoint,
		WaterL:    p * r.WaterLPerPoint,
		EnergyKwh: p * r.EnergyKwhPerPoint,
	}
}

// Compare expresses an impact total in everyday equivalents.
func Compare(total Impact) Comparisons {
	return Comparisons{
		CarTripsAvoided: total.CO2Kg / CO2KgPerCarTrip,
		BottlesSaved:    total.PlasticKg / PlasticKgPerBottle,
		ShowersSaved:    total.WaterL / WaterLPerShower,
		PhoneCharges:    total.EnergyKwh / EnergyKwhPerPhoneCharge,
	}
}
