package model

import "strings"

// GarmentType is the garment category a measurement request targets.
type GarmentType string

// Supported garment categories.
const (
	TShirt GarmentType = "tshirt"
	Pants  GarmentType = "pants"
	Jacket GarmentType = "jacket"
)

// DefaultGarment is used when the requested category is empty or unknown.
const DefaultGarment = TShirt

// GarmentTypes lists the supported categories in declaration order.
var GarmentTypes = []GarmentType{TShirt, Pants, Jacket}

// Known reports whether g is a supported category.
func (g GarmentType) Known() bool {
	switch g {
	case TShirt, Pants, Jacket:
		return true
	}
	return false
}

// ParseGarmentType normalizes s and falls back to DefaultGarment when s is
// empty or not a supported category.
func ParseGarmentType(s string) GarmentType {
	g := GarmentType(strings.ToLower(strings.TrimSpace(s)))
	if g.Known() {
		return g
	}
	return DefaultGarment
}

// Size is a standard garment size label.
type Size string

// Standard sizes, smallest first.
const (
	SizeXS Size = "xs"
	SizeSM Size = "sm"
	SizeMD Size = "md"
	SizeLG Size = "lg"
	SizeXL Size = "xl"
)

// DefaultSize is reported when no size can be derived.
const DefaultSize = SizeMD

// Sizes lists the standard sizes in table order.
var Sizes = []Size{SizeXS, SizeSM, SizeMD, SizeLG, SizeXL}

// Measurement names produced by the engine. Size tables use the same names.
const (
	ChestWidth   = "chest_width"
	BodyLength   = "body_length"
	SleeveLength = "sleeve_length"
	WaistWidth   = "waist_width"
	Inseam       = "inseam"
	Rise         = "rise"
)
