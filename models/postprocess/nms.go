package postprocess

import (
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/nvr-ai/go-perception/images"
	"github.com/nvr-ai/go-perception/models"
)

// SuppressorOptions configures the class-independent tier of suppression.
type SuppressorOptions struct {
	// CrossClassIoU is the overlap above which a lower-scoring box is removed
	// whatever its class.
	CrossClassIoU float32 `json:"cross_class_iou" yaml:"cross_class_iou"`
}

// DefaultSuppressorOptions returns the default cross-class threshold.
func DefaultSuppressorOptions() SuppressorOptions {
	return SuppressorOptions{CrossClassIoU: DefaultCrossClassIoU}
}

// Suppressor performs greedy two-tier Non-Maximum Suppression.
type Suppressor struct {
	classes *models.OutputClassSet
	table   *ClassTable
	opts    SuppressorOptions
}

// NewSuppressor creates a Suppressor that labels its output from classes and
// reads same-class thresholds from table.
func NewSuppressor(classes *models.OutputClassSet, table *ClassTable, opts SuppressorOptions) *Suppressor {
	return &Suppressor{
		classes: classes,
		table:   table,
		opts:    opts,
	}
}

// Suppress filters overlapping candidates.
//
// Candidates are visited by descending score (ties keep input order). A kept
// candidate removes every later candidate that overlaps it by more than its
// class NMS threshold when both share a class, or by more than CrossClassIoU
// otherwise.
//
// Arguments:
//   - candidates: Decoded candidates in any order. The slice is not modified.
//
// Returns:
//   - The surviving detections by descending score, never nil.
func (s *Suppressor) Suppress(candidates []Candidate) []Detection {
	sorted := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := s.classes.Name(c.Class); ok {
			sorted = append(sorted, c)
		}
	}
	if len(sorted) == 0 {
		return []Detection{}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	// Boxes that do not intersect have an IoU of 0 and can never suppress one
	// another, so only the index hits need checking.
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(sorted))
	for _, c := range sorted {
		fb.Add(int32(c.Box.X1), int32(c.Box.Y1), int32(c.Box.X2), int32(c.Box.Y2))
	}
	fb.Finish()

	removed := make([]bool, len(sorted))
	kept := make([]Detection, 0, len(sorted))
	for i, anchor := range sorted {
		if removed[i] {
			continue
		}
		label, _ := s.classes.Name(anchor.Class)
		kept = append(kept, Detection{
			Label: label,
			Score: anchor.Score,
			Box:   anchor.Box,
		})

		sameClass := s.table.Rule(anchor.Class).NMS
		for _, j := range fb.Search(int32(anchor.Box.X1), int32(anchor.Box.Y1), int32(anchor.Box.X2), int32(anchor.Box.Y2)) {
			if j <= i || removed[j] {
				continue
			}
			iou := images.CalculateIoU(anchor.Box, sorted[j].Box)
			if sorted[j].Class == anchor.Class && iou > sameClass {
				removed[j] = true
			} else if iou > s.opts.CrossClassIoU {
				removed[j] = true
			}
		}
	}

	return kept
}
