package empire

import (
	"fmt"
	"slices"
)

type UnitType string

const (
	UnitSoldiers      UnitType = "soldiers"
	UnitFighters      UnitType = "fighters"
	UnitStations      UnitType = "stations"
	UnitLightCruisers UnitType = "light_cruisers"
	UnitHeavyCruisers UnitType = "heavy_cruisers"
	UnitCarriers      UnitType = "carriers"
	UnitCovertAgents  UnitType = "covert_agents"
)

// UnitTypes is the canonical iteration order for unit types.
var UnitTypes = []UnitType{
	UnitSoldiers, UnitFighters, UnitStations, UnitLightCruisers,
	UnitHeavyCruisers, UnitCarriers, UnitCovertAgents,
}

func ValidUnitType(u UnitType) bool {
	return slices.Contains(UnitTypes, u)
}

// Forces is the fixed-shape vector of unit counts an empire holds.
type Forces struct {
	Soldiers      int64 `json:"soldiers"`
	Fighters      int64 `json:"fighters"`
	Stations      int64 `json:"stations"`
	LightCruisers int64 `json:"light_cruisers"`
	HeavyCruisers int64 `json:"heavy_cruisers"`
	Carriers      int64 `json:"carriers"`
	CovertAgents  int64 `json:"covert_agents"`
}

func (f *Forces) ptr(u UnitType) *int64 {
	switch u {
	case UnitSoldiers:
		return &f.Soldiers
	case UnitFighters:
		return &f.Fighters
	case UnitStations:
		return &f.Stations
	case UnitLightCruisers:
		return &f.LightCruisers
	case UnitHeavyCruisers:
		return &f.HeavyCruisers
	case UnitCarriers:
		return &f.Carriers
	case UnitCovertAgents:
		return &f.CovertAgents
	}
	return nil
}

func (f Forces) Get(u UnitType) int64 {
	if p := f.ptr(u); p != nil {
		return *p
	}
	return 0
}

func (f *Forces) Set(u UnitType, n int64) {
	if p := f.ptr(u); p != nil {
		*p = n
	}
}

func (f *Forces) AddUnit(u UnitType, n int64) {
	if p := f.ptr(u); p != nil {
		*p += n
	}
}

func (f Forces) Plus(o Forces) Forces {
	var out Forces
	for _, u := range UnitTypes {
		out.Set(u, f.Get(u)+o.Get(u))
	}
	return out
}

// Minus subtracts o from f, flooring each count at zero.
func (f Forces) Minus(o Forces) Forces {
	var out Forces
	for _, u := range UnitTypes {
		out.Set(u, max(0, f.Get(u)-o.Get(u)))
	}
	return out
}

// Only returns the counts of the listed unit types.
func (f Forces) Only(units []UnitType) Forces {
	var out Forces
	for _, u := range units {
		out.Set(u, f.Get(u))
	}
	return out
}

func (f Forces) Total() int64 {
	var n int64
	for _, u := range UnitTypes {
		n += f.Get(u)
	}
	return n
}

// Distinct returns how many unit types have a positive count.
func (f Forces) Distinct() int {
	n := 0
	for _, u := range UnitTypes {
		if f.Get(u) > 0 {
			n++
		}
	}
	return n
}

// Covers reports whether f holds at least o of every unit type.
func (f Forces) Covers(o Forces) bool {
	for _, u := range UnitTypes {
		if f.Get(u) < o.Get(u) {
			return false
		}
	}
	return true
}

// Validate rejects negative counts.
func (f Forces) Validate() error {
	for _, u := range UnitTypes {
		if f.Get(u) < 0 {
			return fmt.Errorf("%s count must not be negative, got %d", u, f.Get(u))
		}
	}
	return nil
}

// Power returns Σ count × multiplier.
func (f Forces) Power(multipliers map[UnitType]float64) float64 {
	var p float64
	for _, u := range UnitTypes {
		p += float64(f.Get(u)) * multipliers[u]
	}
	return p
}
