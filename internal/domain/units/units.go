// Package units classifies ingredient unit labels into physical dimensions
// and converts quantities between a dimension's base unit and a display unit.
package units

import (
	"math"
	"strings"
)

// Dimension is the physical quantity a unit measures
type Dimension string

const (
	DimensionMass    Dimension = "mass"
	DimensionVolume  Dimension = "volume"
	DimensionCount   Dimension = "count"
	DimensionUnknown Dimension = "unknown"
)

// Base unit labels for the convertible dimensions
const (
	BaseUnitGram       = "g"
	BaseUnitMilliliter = "ml"
)

// IsConvertible reports whether quantities of the dimension share a base unit
func (d Dimension) IsConvertible() bool {
	return d == DimensionMass || d == DimensionVolume
}

// unitDef describes one recognized unit and all of its spellings
type unitDef struct {
	names     []string
	dimension Dimension
	factor    float64 // base units per one unit
}

var massUnits = []unitDef{
	{names: []string{"g", "gram", "grams"}, dimension: DimensionMass, factor: 1},
	{names: []string{"kg", "kilogram", "kilograms"}, dimension: DimensionMass, factor: 1000},
	{names: []string{"oz", "ounce", "ounces"}, dimension: DimensionMass, factor: 28.3495},
	{names: []string{"lb", "lbs", "pound", "pounds"}, dimension: DimensionMass, factor: 453.592},
}

var volumeUnits = []unitDef{
	{names: []string{"ml", "milliliter", "milliliters", "millilitre", "millilitres"}, dimension: DimensionVolume, factor: 1},
	{names: []string{"l", "liter", "liters", "litre", "litres"}, dimension: DimensionVolume, factor: 1000},
	{names: []string{"tsp", "teaspoon", "teaspoons"}, dimension: DimensionVolume, factor: 4.92892},
	{names: []string{"tbsp", "tablespoon", "tablespoons"}, dimension: DimensionVolume, factor: 14.7868},
	{names: []string{"fl oz", "fluid ounce", "fluid ounces"}, dimension: DimensionVolume, factor: 29.5735},
	{names: []string{"cup", "cups"}, dimension: DimensionVolume, factor: 236.588},
	{names: []string{"pint", "pints"}, dimension: DimensionVolume, factor: 473.176},
	{names: []string{"quart", "quarts"}, dimension: DimensionVolume, factor: 946.353},
	{names: []string{"gallon", "gallons"}, dimension: DimensionVolume, factor: 3785.41},
}

var countUnits = []string{
	"",
	"piece", "pieces",
	"item", "items",
	"whole",
	"can", "cans",
	"package", "packages", "pkg",
	"clove", "cloves",
	"head", "heads",
	"bunch", "bunches",
	"slice", "slices",
	"stick", "sticks",
	"sprig", "sprigs",
	"leaf", "leaves",
	"ear", "ears",
	"stalk", "stalks",
	"strip", "strips",
	"fillet", "fillets",
	"breast", "breasts",
	"thigh", "thighs",
	"leg", "legs",
	"wing", "wings",
	"large", "medium", "small",
}

// displayStep is a candidate display unit with the smallest base quantity
// that still renders as at least 1 of that unit
type displayStep struct {
	unit      string
	threshold float64
}

var massDisplay = []displayStep{
	{unit: "lbs", threshold: 453.592},
	{unit: "oz", threshold: 28.3495},
}

var volumeDisplay = []displayStep{
	{unit: "cups", threshold: 236.588},
	{unit: "tbsp", threshold: 14.7868},
	{unit: "tsp", threshold: 4.92892},
}

// thresholdTolerance absorbs float error in sums such as 16 oz landing a
// hair under one pound
const thresholdTolerance = 1e-9

var (
	massTable   = indexUnits(massUnits)
	volumeTable = indexUnits(volumeUnits)
	countSet    = indexCount(countUnits)
)

func indexUnits(defs []unitDef) map[string]float64 {
	table := make(map[string]float64)
	for _, def := range defs {
		for _, name := range def.names {
			table[name] = def.factor
		}
	}
	return table
}

func indexCount(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Normalize lowercases and trims a unit label and strips one trailing period.
// An empty label is a valid "no unit" count token.
func Normalize(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimSuffix(u, ".")
	return strings.TrimSpace(u)
}

// Classify returns the dimension of a unit label. Unrecognized labels are
// DimensionUnknown, never an error.
func Classify(unit string) Dimension {
	u := Normalize(unit)
	if _, ok := massTable[u]; ok {
		return DimensionMass
	}
	if _, ok := volumeTable[u]; ok {
		return DimensionVolume
	}
	if _, ok := countSet[u]; ok {
		return DimensionCount
	}
	return DimensionUnknown
}

// ToBase converts a quantity to its dimension's base unit. Count and unknown
// quantities are returned unchanged, labelled with their normalized unit, so
// they only combine with identical labels.
func ToBase(quantity float64, unit string) (float64, string) {
	u := Normalize(unit)
	if factor, ok := massTable[u]; ok {
		return quantity * factor, BaseUnitGram
	}
	if factor, ok := volumeTable[u]; ok {
		return quantity * factor, BaseUnitMilliliter
	}
	return quantity, u
}

// ToDisplay picks the largest natural unit that keeps the displayed number at
// or above 1 and rounds to 2 decimals. Count and unknown quantities pass
// through with their normalized original unit.
func ToDisplay(baseQuantity float64, dimension Dimension, originalUnit string) (float64, string) {
	switch dimension {
	case DimensionMass:
		return pickDisplay(baseQuantity, massDisplay, BaseUnitGram)
	case DimensionVolume:
		return pickDisplay(baseQuantity, volumeDisplay, BaseUnitMilliliter)
	default:
		return baseQuantity, Normalize(originalUnit)
	}
}

func pickDisplay(base float64, steps []displayStep, baseUnit string) (float64, string) {
	for _, step := range steps {
		if base+thresholdTolerance >= step.threshold {
			return Round2(base / step.threshold), step.unit
		}
	}
	return Round2(base), baseUnit
}

// Round2 rounds half away from zero to 2 decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Key returns the identity label used when grouping quantities of this unit:
// the base unit for convertible dimensions, the normalized label otherwise.
func Key(unit string) string {
	_, label := ToBase(0, unit)
	return label
}
