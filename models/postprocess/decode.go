package postprocess

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-perception/images"
	"github.com/nvr-ai/go-perception/models"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrMalformedOutput is returned when the detector output cannot be decoded.
// It is distinct from an output that simply contains no objects.
var ErrMalformedOutput = errors.New("malformed detector output")

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedOutput, format, args...)
}

// DecoderOptions configures the geometry checks of a Decoder.
type DecoderOptions struct {
	// InputSize is the resolution the model was run at.
	InputSize image.Point `json:"input_size" yaml:"input_size"`
	// MinBoxSide is the side length a box must exceed on both axes.
	MinBoxSide int `json:"min_box_side" yaml:"min_box_side"`
}

// DefaultDecoderOptions returns the options for a 640x640 YOLOv8 export.
func DefaultDecoderOptions() DecoderOptions {
	return DecoderOptions{
		InputSize:  image.Pt(640, 640),
		MinBoxSide: 5,
	}
}

// Decoder converts a YOLOv8 style output tensor into candidates in frame pixels.
type Decoder struct {
	classes *models.OutputClassSet
	table   *ClassTable
	opts    DecoderOptions
}

// NewDecoder creates a Decoder. Candidates whose class does not exist in
// classes are dropped.
func NewDecoder(classes *models.OutputClassSet, table *ClassTable, opts DecoderOptions) *Decoder {
	return &Decoder{
		classes: classes,
		table:   table,
		opts:    opts,
	}
}

// Options returns the decoder options.
func (d *Decoder) Options() DecoderOptions {
	return d.opts
}

// Decode reads a float32 tensor of shape [1, 4+C, N] laid out as
// [attribute][prediction] and returns the candidates that pass the
// per-class confidence and area filters.
//
// Arguments:
//   - t: The raw detector output.
//   - frame: The size of the frame the boxes are mapped onto.
//
// Returns:
//   - The candidates in prediction order, never nil on success.
//   - An error wrapping ErrMalformedOutput if the tensor or dimensions are unusable.
func (d *Decoder) Decode(t tensor.Tensor, frame image.Point) ([]Candidate, error) {
	if t == nil {
		return nil, malformed("nil tensor")
	}
	if t.Dtype() != tensor.Float32 {
		return nil, malformed("dtype %v, want float32", t.Dtype())
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, malformed("tensor has no float32 backing")
	}
	return d.DecodeRaw(data, []int(t.Shape()), frame)
}

// DecodeRaw is Decode on a flat backing slice and an explicit shape.
func (d *Decoder) DecodeRaw(data []float32, shape []int, frame image.Point) ([]Candidate, error) {
	if len(shape) != 3 {
		return nil, malformed("rank %d, want 3", len(shape))
	}
	batch, attrs, preds := shape[0], shape[1], shape[2]
	if batch != 1 {
		return nil, malformed("batch %d, want 1", batch)
	}
	if attrs < 5 {
		return nil, malformed("%d attributes, want at least 5", attrs)
	}
	if preds <= 0 {
		return nil, malformed("no predictions")
	}
	if len(data) != attrs*preds {
		return nil, malformed("backing has %d values, shape %v needs %d", len(data), shape, attrs*preds)
	}
	if frame.X <= 0 || frame.Y <= 0 {
		return nil, malformed("frame size %v", frame)
	}
	if d.opts.InputSize.X <= 0 || d.opts.InputSize.Y <= 0 {
		return nil, malformed("model input size %v", d.opts.InputSize)
	}

	numClasses := attrs - 4
	scaleX := float32(frame.X) / float32(d.opts.InputSize.X)
	scaleY := float32(frame.Y) / float32(d.opts.InputSize.Y)
	frameArea := float32(frame.X) * float32(frame.Y)

	candidates := make([]Candidate, 0)
	for i := 0; i < preds; i++ {
		// Strictly greater than a zero start, so rows with no positive score
		// (and NaN scores) never select a class.
		var maxScore float32
		classID := -1
		for c := 0; c < numClasses; c++ {
			if score := data[(c+4)*preds+i]; score > maxScore {
				maxScore = score
				classID = c
			}
		}
		if classID < 0 || classID >= d.classes.Len() {
			continue
		}

		rule := d.table.Rule(classID)
		if !(maxScore > rule.Confidence) {
			continue
		}

		cx, cy := data[i], data[preds+i]
		w, h := data[2*preds+i], data[3*preds+i]
		if !finite(cx) || !finite(cy) || !finite(w) || !finite(h) {
			continue
		}

		cx *= scaleX
		cy *= scaleY
		w *= scaleX
		h *= scaleY

		left := max(0, int(cx-w/2))
		top := max(0, int(cy-h/2))
		width := min(int(w), frame.X-left)
		height := min(int(h), frame.Y-top)
		if width <= d.opts.MinBoxSide || height <= d.opts.MinBoxSide {
			continue
		}

		ratio := float32(width) * float32(height) / frameArea
		if ratio <= rule.MinAreaRatio || ratio >= rule.MaxAreaRatio {
			continue
		}

		candidates = append(candidates, Candidate{
			Box:   images.RectFromXYWH(left, top, width, height),
			Score: math32.Min(maxScore, 1),
			Class: classID,
		})
	}

	return candidates, nil
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
