package imaging

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/okian/fitmeasure/internal/domain/model"
)

// Rendering defaults.
const (
	defaultMaxDimension = 1024
	// minDrawVisibility hides landmarks the model is unsure about.
	minDrawVisibility = 0.5
	circleSegments    = 16
)

var (
	defaultJointColor = color.RGBA{R: 255, A: 255}
	defaultBoneColor  = color.RGBA{R: 224, G: 224, B: 224, A: 255}
)

// Connection is a skeleton edge between two landmarks.
type Connection struct {
	From, To model.LandmarkName
}

// PoseConnections is the skeleton drawn over the preview.
var PoseConnections = []Connection{
	{model.Nose, model.LeftEyeInner}, {model.LeftEyeInner, model.LeftEye},
	{model.LeftEye, model.LeftEyeOuter}, {model.LeftEyeOuter, model.LeftEar},
	{model.Nose, model.RightEyeInner}, {model.RightEyeInner, model.RightEye},
	{model.RightEye, model.RightEyeOuter}, {model.RightEyeOuter, model.RightEar},
	{model.MouthLeft, model.MouthRight},
	{model.LeftShoulder, model.RightShoulder},
	{model.LeftShoulder, model.LeftElbow}, {model.LeftElbow, model.LeftWrist},
	{model.LeftWrist, model.LeftPinky}, {model.LeftWrist, model.LeftIndex},
	{model.LeftWrist, model.LeftThumb}, {model.LeftPinky, model.LeftIndex},
	{model.RightShoulder, model.RightElbow}, {model.RightElbow, model.RightWrist},
	{model.RightWrist, model.RightPinky}, {model.RightWrist, model.RightIndex},
	{model.RightWrist, model.RightThumb}, {model.RightPinky, model.RightIndex},
	{model.LeftShoulder, model.LeftHip}, {model.RightShoulder, model.RightHip},
	{model.LeftHip, model.RightHip},
	{model.LeftHip, model.LeftKnee}, {model.RightHip, model.RightKnee},
	{model.LeftKnee, model.LeftAnkle}, {model.RightKnee, model.RightAnkle},
	{model.LeftAnkle, model.LeftHeel}, {model.RightAnkle, model.RightHeel},
	{model.LeftHeel, model.LeftFootIndex}, {model.RightHeel, model.RightFootIndex},
	{model.LeftAnkle, model.LeftFootIndex}, {model.RightAnkle, model.RightFootIndex},
}

// Renderer draws detected skeletons over a scaled copy of the input image.
// It holds no per-image state and is safe for concurrent use.
type Renderer struct {
	maxDimension int
	jointColor   color.Color
	boneColor    color.Color
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxDimension bounds the longer side of the preview; larger inputs are
// scaled down.
func WithMaxDimension(px int) Option {
	return func(r *Renderer) {
		if px > 0 {
			r.maxDimension = px
		}
	}
}

// WithColors overrides the joint and bone colors.
func WithColors(joint, bone color.Color) Option {
	return func(r *Renderer) {
		if joint != nil {
			r.jointColor = joint
		}
		if bone != nil {
			r.boneColor = bone
		}
	}
}

// NewRenderer creates a renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		maxDimension: defaultMaxDimension,
		jointColor:   defaultJointColor,
		boneColor:    defaultBoneColor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns a copy of img, scaled to the preview bound, with the
// skeleton drawn on top. Landmark coordinates are normalized, so they map
// onto the scaled copy unchanged.
func (r *Renderer) Render(img image.Image, lms model.Landmarks) *image.RGBA {
	dst := r.canvas(img)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	short := float64(min(w, h))
	thickness := math.Max(2, short/200)
	radius := math.Max(3, short/120)

	z := vector.NewRasterizer(w, h)
	bone := image.NewUniform(r.boneColor)
	for _, c := range PoseConnections {
		a, okA := drawable(lms, c.From)
		b, okB := drawable(lms, c.To)
		if !okA || !okB {
			continue
		}
		z.Reset(w, h)
		line(z, a.X*float64(w), a.Y*float64(h), b.X*float64(w), b.Y*float64(h), thickness)
		z.Draw(dst, dst.Bounds(), bone, image.Point{})
	}

	joint := image.NewUniform(r.jointColor)
	for i := 0; i < model.LandmarkCount; i++ {
		lm, ok := drawable(lms, model.LandmarkName(i))
		if !ok {
			continue
		}
		z.Reset(w, h)
		circle(z, lm.X*float64(w), lm.Y*float64(h), radius)
		z.Draw(dst, dst.Bounds(), joint, image.Point{})
	}
	return dst
}

// Visualize renders the overlay and encodes it as a PNG data URI.
func (r *Renderer) Visualize(img image.Image, lms model.Landmarks) (string, error) {
	return PNGDataURI(r.Render(img, lms))
}

func (r *Renderer) canvas(img image.Image) *image.RGBA {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()
	if longer := max(w, h); longer > r.maxDimension {
		ratio := float64(r.maxDimension) / float64(longer)
		w = max(1, int(math.Round(float64(w)*ratio)))
		h = max(1, int(math.Round(float64(h)*ratio)))
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
		return dst
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	return dst
}

func drawable(lms model.Landmarks, name model.LandmarkName) (model.Landmark, bool) {
	lm, ok := lms[name]
	if !ok || lm.Visibility < minDrawVisibility {
		return model.Landmark{}, false
	}
	// Off-frame points are reported by the model but have nothing to annotate.
	if lm.X < 0 || lm.X > 1 || lm.Y < 0 || lm.Y > 1 {
		return model.Landmark{}, false
	}
	return lm, true
}

// line adds a filled quad of the given thickness centred on the segment.
func line(z *vector.Rasterizer, x0, y0, x1, y1, thickness float64) {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*thickness/2, dx/length*thickness/2
	z.MoveTo(float32(x0+nx), float32(y0+ny))
	z.LineTo(float32(x1+nx), float32(y1+ny))
	z.LineTo(float32(x1-nx), float32(y1-ny))
	z.LineTo(float32(x0-nx), float32(y0-ny))
	z.ClosePath()
}

// circle adds a filled polygon approximating a circle.
func circle(z *vector.Rasterizer, cx, cy, radius float64) {
	for i := 0; i <= circleSegments; i++ {
		theta := 2 * math.Pi * float64(i) / circleSegments
		x := float32(cx + radius*math.Cos(theta))
		y := float32(cy + radius*math.Sin(theta))
		if i == 0 {
			z.MoveTo(x, y)
			continue
		}
		z.LineTo(x, y)
	}
	z.ClosePath()
}
