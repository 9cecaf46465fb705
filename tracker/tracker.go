// Package tracker keeps object identities stable across frames.
//
// Tracks are associated greedily: in ascending id order, each track claims
// the unclaimed detection of the same label that overlaps it most, if that
// overlap exceeds the match threshold. Matched tracks are smoothed toward the
// detection with an exponential moving average. Tracks that go unmatched for
// too many frames are dropped and their ids are never reused.
package tracker

import (
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/chewxy/math32"
	"github.com/cyclopcam/logs"
	"github.com/nvr-ai/go-perception/images"
	"github.com/nvr-ai/go-perception/models/postprocess"
)

// Options configures association and the track lifecycle.
type Options struct {
	// MatchIoU is the overlap a detection must exceed to continue a track.
	MatchIoU float32 `json:"match_iou" yaml:"match_iou"`
	// Alpha is the weight of the new detection when smoothing, in (0, 1].
	Alpha float32 `json:"alpha" yaml:"alpha"`
	// MaxMissed is the number of consecutive unmatched frames a track survives.
	MaxMissed int `json:"max_missed" yaml:"max_missed"`
}

// DefaultOptions returns the default tracker settings.
func DefaultOptions() Options {
	return Options{
		MatchIoU:  0.3,
		Alpha:     0.3,
		MaxMissed: 5,
	}
}

// Track is one tracked object.
type Track struct {
	ID           int
	Box          images.Rect
	Label        string
	Confidence   float32
	MissedFrames int

	// Smoothed geometry. Box is the rounded view of these.
	x, y, w, h float32
}

func newTrack(id int, d postprocess.Detection) *Track {
	t := &Track{
		ID:         id,
		Label:      d.Label,
		Confidence: d.Score,
		x:          float32(d.Box.X1),
		y:          float32(d.Box.Y1),
		w:          float32(d.Box.Width()),
		h:          float32(d.Box.Height()),
	}
	t.Box = d.Box
	return t
}

// blend moves the track toward d by alpha and resets its miss count.
func (t *Track) blend(d postprocess.Detection, alpha float32) {
	keep := 1 - alpha
	t.x = keep*t.x + alpha*float32(d.Box.X1)
	t.y = keep*t.y + alpha*float32(d.Box.Y1)
	t.w = keep*t.w + alpha*float32(d.Box.Width())
	t.h = keep*t.h + alpha*float32(d.Box.Height())
	t.Box = images.RectFromXYWH(round(t.x), round(t.y), round(t.w), round(t.h))
	t.Confidence = d.Score
	t.MissedFrames = 0
}

func round(v float32) int {
	return int(math32.Floor(v + 0.5))
}

func (t *Track) detection() postprocess.Detection {
	return postprocess.Detection{
		Label: t.Label,
		Score: t.Confidence,
		Box:   t.Box,
	}
}

// Tracker associates detections across frames. It is not safe for concurrent use.
type Tracker struct {
	log    logs.Log
	opts   Options
	tracks map[int]*Track
	ids    []int // ascending
	nextID int
}

// New creates an empty tracker. log may be nil.
func New(log logs.Log, opts Options) *Tracker {
	return &Tracker{
		log:    log,
		opts:   opts,
		tracks: make(map[int]*Track),
	}
}

// Options returns the tracker settings.
func (t *Tracker) Options() Options {
	return t.opts
}

// Update advances the tracker by one frame.
//
// Arguments:
//   - detections: The suppressed detections of the frame, in any order.
//
// Returns:
//   - The smoothed boxes of the tracks that matched this frame in ascending
//     id order, followed by the new tracks' raw boxes in detection order.
func (t *Tracker) Update(detections []postprocess.Detection) []postprocess.Detection {
	for _, id := range t.ids {
		t.tracks[id].MissedFrames++
	}

	out := make([]postprocess.Detection, 0, len(detections))
	matched := make([]bool, len(detections))

	if len(detections) != 0 && len(t.ids) != 0 {
		fb := flatbush.NewFlatbush[int32]()
		fb.Reserve(len(detections))
		for _, d := range detections {
			fb.Add(int32(d.Box.X1), int32(d.Box.Y1), int32(d.Box.X2), int32(d.Box.Y2))
		}
		fb.Finish()

		var nearby []int
		for _, id := range t.ids {
			track := t.tracks[id]
			nearby = fb.SearchFast(int32(track.Box.X1), int32(track.Box.Y1), int32(track.Box.X2), int32(track.Box.Y2), nearby[:0])
			// Ties go to the earliest detection.
			sort.Ints(nearby)

			best := -1
			var bestIoU float32
			for _, i := range nearby {
				if matched[i] || detections[i].Label != track.Label {
					continue
				}
				iou := images.CalculateIoU(track.Box, detections[i].Box)
				if iou > t.opts.MatchIoU && iou > bestIoU {
					best = i
					bestIoU = iou
				}
			}
			if best < 0 {
				continue
			}

			matched[best] = true
			track.blend(detections[best], t.opts.Alpha)
			out = append(out, track.detection())
		}
	}

	t.evict()

	for i, d := range detections {
		if matched[i] {
			continue
		}
		track := newTrack(t.nextID, d)
		t.nextID++
		t.tracks[track.ID] = track
		t.ids = append(t.ids, track.ID)
		t.debugf("track %d: new %s %v", track.ID, track.Label, track.Box)
		out = append(out, d)
	}

	return out
}

func (t *Tracker) evict() {
	kept := t.ids[:0]
	for _, id := range t.ids {
		track := t.tracks[id]
		if track.MissedFrames > t.opts.MaxMissed {
			delete(t.tracks, id)
			t.debugf("track %d: lost %s after %d frames", id, track.Label, track.MissedFrames)
			continue
		}
		kept = append(kept, id)
	}
	t.ids = kept
}

func (t *Tracker) debugf(format string, args ...interface{}) {
	if t.log != nil {
		t.log.Debugf(format, args...)
	}
}

// Tracks returns a copy of the live tracks in ascending id order.
func (t *Tracker) Tracks() []Track {
	tracks := make([]Track, 0, len(t.ids))
	for _, id := range t.ids {
		tracks = append(tracks, *t.tracks[id])
	}
	return tracks
}

// Len returns the number of live tracks.
func (t *Tracker) Len() int {
	return len(t.ids)
}

// Reset drops every track. Ids keep increasing.
func (t *Tracker) Reset() {
	t.tracks = make(map[int]*Track)
	t.ids = nil
}
