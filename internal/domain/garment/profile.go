// Package garment holds the static garment profiles: which landmarks each
// garment needs, how its scale is anchored and its standard size table.
package garment

import "github.com/okian/fitmeasure/internal/domain/model"

// Anchor is the landmark pair whose pixel distance is matched against a
// known reference length to derive the cm-per-pixel scale.
type Anchor struct {
	From        model.LandmarkName
	To          model.LandmarkName
	Measurement string  // measurement the reference value stands for
	ReferenceCM float64 // assumed real-world length of the anchor span
}

// SizeStandard is one row of a size table.
type SizeStandard struct {
	Size   model.Size
	Values map[string]float64 // measurement name -> cm
}

// Profile is the static configuration of one garment category.
type Profile struct {
	Garment   model.GarmentType
	Landmarks []model.LandmarkName
	Anchor    Anchor
	// Primary is the measurement used to pick the closest standard size.
	Primary string
	// Sizes is ordered smallest first; size lookups depend on that order.
	Sizes []SizeStandard
}

// clone returns a copy sharing no slices or maps with p, so callers can
// never reach the package tables.
func (p Profile) clone() Profile {
	p.Landmarks = append([]model.LandmarkName(nil), p.Landmarks...)
	sizes := make([]SizeStandard, len(p.Sizes))
	for i, row := range p.Sizes {
		values := make(map[string]float64, len(row.Values))
		for k, v := range row.Values {
			values[k] = v
		}
		sizes[i] = SizeStandard{Size: row.Size, Values: values}
	}
	p.Sizes = sizes
	return p
}

var upperBody = []model.LandmarkName{
	model.Nose, // neck approximation for body length
	model.LeftShoulder,
	model.RightShoulder,
	model.LeftElbow,
	model.RightElbow,
	model.LeftWrist,
	model.RightWrist,
	model.LeftHip,
	model.RightHip,
}

var lowerBody = []model.LandmarkName{
	model.LeftHip,
	model.RightHip,
	model.LeftKnee,
	model.RightKnee,
	model.LeftAnkle,
	model.RightAnkle,
}

var profiles = map[model.GarmentType]Profile{
	model.TShirt: {
		Garment:   model.TShirt,
		Landmarks: upperBody,
		Anchor: Anchor{
			From:        model.LeftShoulder,
			To:          model.RightShoulder,
			Measurement: model.ChestWidth,
			ReferenceCM: 50,
		},
		Primary: model.ChestWidth,
		Sizes: []SizeStandard{
			{Size: model.SizeXS, Values: map[string]float64{model.ChestWidth: 46, model.BodyLength: 66}},
			{Size: model.SizeSM, Values: map[string]float64{model.ChestWidth: 48, model.BodyLength: 68}},
			{Size: model.SizeMD, Values: map[string]float64{model.ChestWidth: 50, model.BodyLength: 70}},
			{Size: model.SizeLG, Values: map[string]float64{model.ChestWidth: 52, model.BodyLength: 72}},
			{Size: model.SizeXL, Values: map[string]float64{model.ChestWidth: 54, model.BodyLength: 74}},
		},
	},
	model.Pants: {
		Garment:   model.Pants,
		Landmarks: lowerBody,
		Anchor: Anchor{
			From:        model.LeftHip,
			To:          model.RightHip,
			Measurement: model.WaistWidth,
			ReferenceCM: 40,
		},
		Primary: model.WaistWidth,
		Sizes: []SizeStandard{
			{Size: model.SizeXS, Values: map[string]float64{model.WaistWidth: 36, model.Inseam: 76}},
			{Size: model.SizeSM, Values: map[string]float64{model.WaistWidth: 38, model.Inseam: 78}},
			{Size: model.SizeMD, Values: map[string]float64{model.WaistWidth: 40, model.Inseam: 80}},
			{Size: model.SizeLG, Values: map[string]float64{model.WaistWidth: 42, model.Inseam: 82}},
			{Size: model.SizeXL, Values: map[string]float64{model.WaistWidth: 44, model.Inseam: 84}},
		},
	},
	model.Jacket: {
		Garment:   model.Jacket,
		Landmarks: upperBody,
		Anchor: Anchor{
			From:        model.LeftShoulder,
			To:          model.RightShoulder,
			Measurement: model.ChestWidth,
			ReferenceCM: 55,
		},
		Primary: model.ChestWidth,
		Sizes: []SizeStandard{
			{Size: model.SizeXS, Values: map[string]float64{model.ChestWidth: 50, model.BodyLength: 68}},
			{Size: model.SizeSM, Values: map[string]float64{model.ChestWidth: 52, model.BodyLength: 70}},
			{Size: model.SizeMD, Values: map[string]float64{model.ChestWidth: 54, model.BodyLength: 72}},
			{Size: model.SizeLG, Values: map[string]float64{model.ChestWidth: 56, model.BodyLength: 74}},
			{Size: model.SizeXL, Values: map[string]float64{model.ChestWidth: 58, model.BodyLength: 76}},
		},
	},
}

// Lookup returns a copy of the profile for g and whether g is a known
// garment.
func Lookup(g model.GarmentType) (Profile, bool) {
	p, ok := profiles[g]
	if !ok {
		return Profile{}, false
	}
	return p.clone(), true
}

// ProfileFor returns a copy of the profile for g, falling back to the
// default garment's profile for unknown categories.
func ProfileFor(g model.GarmentType) Profile {
	if p, ok := Lookup(g); ok {
		return p
	}
	return profiles[model.DefaultGarment].clone()
}
