package postprocess

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvr-ai/go-perception/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSuppressor(table *ClassTable) *Suppressor {
	return NewSuppressor(testClasses, table, DefaultSuppressorOptions())
}

func TestSuppressor_Suppress(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		want       []Detection
	}{
		{
			name:       "empty",
			candidates: nil,
			want:       []Detection{},
		},
		{
			name: "same class above threshold",
			candidates: []Candidate{
				{Box: images.Rect{X1: 50, Y1: 0, X2: 200, Y2: 100}, Score: 0.8, Class: 0},
				{Box: images.Rect{X1: 0, Y1: 0, X2: 150, Y2: 100}, Score: 0.9, Class: 0},
			},
			want: []Detection{
				{Label: "person", Score: 0.9, Box: images.Rect{X1: 0, Y1: 0, X2: 150, Y2: 100}},
			},
		},
		{
			name: "same class below threshold",
			candidates: []Candidate{
				{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9, Class: 0},
				{Box: images.Rect{X1: 50, Y1: 50, X2: 150, Y2: 150}, Score: 0.8, Class: 0},
			},
			want: []Detection{
				{Label: "person", Score: 0.9, Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}},
				{Label: "person", Score: 0.8, Box: images.Rect{X1: 50, Y1: 50, X2: 150, Y2: 150}},
			},
		},
		{
			name: "different classes moderate overlap",
			candidates: []Candidate{
				{Box: images.Rect{X1: 0, Y1: 0, X2: 150, Y2: 100}, Score: 0.9, Class: 0},
				{Box: images.Rect{X1: 50, Y1: 0, X2: 200, Y2: 100}, Score: 0.8, Class: 1},
			},
			want: []Detection{
				{Label: "person", Score: 0.9, Box: images.Rect{X1: 0, Y1: 0, X2: 150, Y2: 100}},
				{Label: "car", Score: 0.8, Box: images.Rect{X1: 50, Y1: 0, X2: 200, Y2: 100}},
			},
		},
		{
			name: "different classes heavy overlap",
			candidates: []Candidate{
				{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 110}, Score: 0.7, Class: 2},
				{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9, Class: 1},
			},
			want: []Detection{
				{Label: "car", Score: 0.9, Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}},
			},
		},
		{
			name: "suppressed boxes do not suppress",
			candidates: []Candidate{
				{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9, Class: 0},
				{Box: images.Rect{X1: 40, Y1: 0, X2: 140, Y2: 100}, Score: 0.8, Class: 0},
				{Box: images.Rect{X1: 80, Y1: 0, X2: 180, Y2: 100}, Score: 0.7, Class: 0},
			},
			want: []Detection{
				{Label: "person", Score: 0.9, Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}},
				{Label: "person", Score: 0.7, Box: images.Rect{X1: 80, Y1: 0, X2: 180, Y2: 100}},
			},
		},
		{
			name: "equal scores keep input order",
			candidates: []Candidate{
				{Box: images.Rect{X1: 300, Y1: 300, X2: 400, Y2: 400}, Score: 0.6, Class: 2},
				{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.6, Class: 1},
				{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.6, Class: 1},
			},
			want: []Detection{
				{Label: "dog", Score: 0.6, Box: images.Rect{X1: 300, Y1: 300, X2: 400, Y2: 400}},
				{Label: "car", Score: 0.6, Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}},
			},
		},
		{
			name: "unknown class dropped",
			candidates: []Candidate{
				{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9, Class: 7},
				{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.8, Class: -1},
				{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.5, Class: 1},
			},
			want: []Detection{
				{Label: "car", Score: 0.5, Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestSuppressor(flatTable()).Suppress(tt.candidates)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Suppress() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSuppressor_Suppress_PerClassThreshold(t *testing.T) {
	table := flatTable().Override(RuleOverride{NMS: f32(0.6)}, 1)
	s := newTestSuppressor(table)

	// IoU 0.5: suppressed under the default 0.4, kept under 0.6.
	a := images.Rect{X1: 0, Y1: 0, X2: 150, Y2: 100}
	b := images.Rect{X1: 50, Y1: 0, X2: 200, Y2: 100}

	people := s.Suppress([]Candidate{{Box: a, Score: 0.9, Class: 0}, {Box: b, Score: 0.8, Class: 0}})
	assert.Len(t, people, 1)

	cars := s.Suppress([]Candidate{{Box: a, Score: 0.9, Class: 1}, {Box: b, Score: 0.8, Class: 1}})
	assert.Len(t, cars, 2)
}

func TestSuppressor_Suppress_DoesNotModifyInput(t *testing.T) {
	in := []Candidate{
		{Box: images.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}, Score: 0.1, Class: 0},
		{Box: images.Rect{X1: 50, Y1: 50, X2: 60, Y2: 60}, Score: 0.9, Class: 0},
	}
	before := append([]Candidate(nil), in...)

	out := newTestSuppressor(flatTable()).Suppress(in)
	require.Len(t, out, 2)
	assert.Equal(t, float32(0.9), out[0].Score)
	assert.Equal(t, before, in)
}

// The spatial index must not change the result of a full pairwise scan.
func TestSuppressor_Suppress_MatchesPairwise(t *testing.T) {
	var candidates []Candidate
	for i := 0; i < 60; i++ {
		x := (i * 37) % 500
		y := (i * 53) % 400
		w := 20 + (i*11)%80
		h := 20 + (i*7)%90
		candidates = append(candidates, Candidate{
			Box:   images.RectFromXYWH(x, y, w, h),
			Score: float32((i*29)%100) / 100,
			Class: i % 3,
		})
	}

	s := newTestSuppressor(flatTable())
	want := pairwiseSuppress(s, candidates)
	got := s.Suppress(candidates)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Suppress() differs from pairwise scan (-want +got):\n%s", diff)
	}
}

func pairwiseSuppress(s *Suppressor, candidates []Candidate) []Detection {
	sorted := append([]Candidate(nil), candidates...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Score > sorted[j-1].Score; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	removed := make([]bool, len(sorted))
	out := []Detection{}
	for i := range sorted {
		if removed[i] {
			continue
		}
		label, _ := s.classes.Name(sorted[i].Class)
		out = append(out, Detection{Label: label, Score: sorted[i].Score, Box: sorted[i].Box})
		for j := i + 1; j < len(sorted); j++ {
			iou := images.CalculateIoU(sorted[i].Box, sorted[j].Box)
			if sorted[i].Class == sorted[j].Class && iou > s.table.Rule(sorted[i].Class).NMS {
				removed[j] = true
			} else if iou > s.opts.CrossClassIoU {
				removed[j] = true
			}
		}
	}
	return out
}
