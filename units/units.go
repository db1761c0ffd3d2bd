// Package units converts package and pallet measurements to the imperial
// units the fulfillment network requires, and decides which entries are
// complete enough to submit.
package units

import (
	"errors"
	"math"
	"strings"
)

const (
	CentimetersPerInch = 2.54
	PoundsPerKilogram  = 2.2046226218
)

// Length and weight unit names as sent on the wire.
const (
	UnitInches      = "IN"
	UnitCentimeters = "CM"
	UnitPounds      = "LB"
	UnitKilograms   = "KG"
)

func CentimetersToInches(cm float64) float64 { return cm / CentimetersPerInch }
func InchesToCentimeters(in float64) float64 { return in * CentimetersPerInch }
func KilogramsToPounds(kg float64) float64   { return kg * PoundsPerKilogram }
func PoundsToKilograms(lb float64) float64   { return lb / PoundsPerKilogram }

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Dimensions are a box or pallet's outer size.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

// Weight is a mass with its unit.
type Weight struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Package is one small-parcel carton.
type Package struct {
	Dimensions Dimensions `json:"dimensions"`
	Weight     Weight     `json:"weight"`
	Quantity   int        `json:"quantity"`
}

// Pallet is one freight pallet.
type Pallet struct {
	Dimensions Dimensions `json:"dimensions"`
	Weight     Weight     `json:"weight"`
	Quantity   int        `json:"quantity"`
	Stackable  bool       `json:"stackable"`
}

func (d Dimensions) complete() bool {
	return d.Length > 0 && d.Width > 0 && d.Height > 0
}

func (p Package) Complete() bool { return p.Dimensions.complete() && p.Weight.Value > 0 }
func (p Pallet) Complete() bool  { return p.Dimensions.complete() && p.Weight.Value > 0 }

// Centimeters returns the dimensions in centimeters, unconverted if already
// metric. An empty unit is read as centimeters.
func (d Dimensions) Centimeters() Dimensions {
	if isInches(d.Unit) {
		return Dimensions{
			Length: InchesToCentimeters(d.Length),
			Width:  InchesToCentimeters(d.Width),
			Height: InchesToCentimeters(d.Height),
			Unit:   UnitCentimeters,
		}
	}
	d.Unit = UnitCentimeters
	return d
}

// Inches returns the dimensions in inches without rounding.
func (d Dimensions) Inches() Dimensions {
	if isInches(d.Unit) {
		d.Unit = UnitInches
		return d
	}
	return Dimensions{
		Length: CentimetersToInches(d.Length),
		Width:  CentimetersToInches(d.Width),
		Height: CentimetersToInches(d.Height),
		Unit:   UnitInches,
	}
}

// Wire rounds each side to two decimals.
func (d Dimensions) Wire() Dimensions {
	return Dimensions{Length: Round2(d.Length), Width: Round2(d.Width), Height: Round2(d.Height), Unit: d.Unit}
}

// Longest returns the largest side.
func (d Dimensions) Longest() float64 {
	return math.Max(d.Length, math.Max(d.Width, d.Height))
}

// Kilograms returns the weight in kilograms. An empty unit is read as kilograms.
func (w Weight) Kilograms() float64 {
	if isPounds(w.Unit) {
		return PoundsToKilograms(w.Value)
	}
	return w.Value
}

// Pounds returns the weight in pounds without rounding.
func (w Weight) Pounds() Weight {
	if isPounds(w.Unit) {
		return Weight{Value: w.Value, Unit: UnitPounds}
	}
	return Weight{Value: KilogramsToPounds(w.Value), Unit: UnitPounds}
}

// Wire rounds the value to two decimals.
func (w Weight) Wire() Weight { return Weight{Value: Round2(w.Value), Unit: w.Unit} }

func isInches(u string) bool {
	switch strings.ToUpper(strings.TrimSpace(u)) {
	case "IN", "INCH", "INCHES":
		return true
	}
	return false
}

func isPounds(u string) bool {
	switch strings.ToUpper(strings.TrimSpace(u)) {
	case "LB", "LBS", "POUND", "POUNDS":
		return true
	}
	return false
}

// ErrNoCompleteEntries is returned when every package or pallet was dropped.
var ErrNoCompleteEntries = errors.New("no package or pallet has complete dimensions and weight")

// NormalizePackages drops incomplete packages, defaults quantity to one and
// converts the rest to rounded inches and pounds. dropped counts the
// discarded entries.
func NormalizePackages(in []Package) (out []Package, dropped int, err error) {
	for _, p := range in {
		if !p.Complete() {
			dropped++
			continue
		}
		if p.Quantity < 1 {
			p.Quantity = 1
		}
		out = append(out, Package{
			Dimensions: p.Dimensions.Inches().Wire(),
			Weight:     p.Weight.Pounds().Wire(),
			Quantity:   p.Quantity,
		})
	}
	if len(out) == 0 {
		return nil, dropped, ErrNoCompleteEntries
	}
	return out, dropped, nil
}

// NormalizePallets is NormalizePackages for pallets.
func NormalizePallets(in []Pallet) (out []Pallet, dropped int, err error) {
	for _, p := range in {
		if !p.Complete() {
			dropped++
			continue
		}
		if p.Quantity < 1 {
			p.Quantity = 1
		}
		out = append(out, Pallet{
			Dimensions: p.Dimensions.Inches().Wire(),
			Weight:     p.Weight.Pounds().Wire(),
			Quantity:   p.Quantity,
			Stackable:  p.Stackable,
		})
	}
	if len(out) == 0 {
		return nil, dropped, ErrNoCompleteEntries
	}
	return out, dropped, nil
}
