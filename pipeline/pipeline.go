// Package pipeline chains decoding, suppression and tracking into one
// per-frame call.
package pipeline

import (
	"image"

	"github.com/cyclopcam/logs"
	"github.com/nvr-ai/go-perception/config"
	"github.com/nvr-ai/go-perception/models"
	"github.com/nvr-ai/go-perception/models/postprocess"
	"github.com/nvr-ai/go-perception/profiler"
	"github.com/nvr-ai/go-perception/tracker"
	"gorgonia.org/tensor"
)

// Names of the stages recorded in the profiler.
const (
	StageDecode   = "decode"
	StageSuppress = "suppress"
	StageTrack    = "track"
)

// Options assembles the stages of a pipeline.
type Options struct {
	Classes    *models.OutputClassSet
	Table      *postprocess.ClassTable
	Decoder    postprocess.DecoderOptions
	Suppressor postprocess.SuppressorOptions
	Tracker    tracker.Options
	// Profiler receives per-stage timings when not nil.
	Profiler *profiler.Profiler
}

// DefaultOptions returns the stages for a stock YOLOv8 COCO model.
func DefaultOptions() Options {
	return Options{
		Classes:    models.YOLOClasses,
		Table:      postprocess.DefaultClassTable(),
		Decoder:    postprocess.DefaultDecoderOptions(),
		Suppressor: postprocess.DefaultSuppressorOptions(),
		Tracker:    tracker.DefaultOptions(),
	}
}

// OptionsFromConfig builds the stages described by cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	table, err := cfg.ClassTable()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Classes:    cfg.Classes(),
		Table:      table,
		Decoder:    cfg.DecoderOptions(),
		Suppressor: cfg.SuppressorOptions(),
		Tracker:    cfg.TrackerOptions(),
	}, nil
}

// Result is the outcome of one frame.
type Result struct {
	// Frame is the sequence number of the frame, starting at 1.
	Frame int64
	// Candidates is the number of boxes that survived decoding.
	Candidates int
	// Suppressed is the number of detections that survived suppression.
	Suppressed int
	// Detections are the tracked boxes: continuing tracks first, then new ones.
	Detections []postprocess.Detection
}

// Stats summarizes a pipeline's lifetime.
type Stats struct {
	Frames  int64
	Dropped int64
	Tracks  int
}

// Pipeline turns raw detector output into tracked detections. It is not safe
// for concurrent use; run one pipeline per frame source.
type Pipeline struct {
	log        logs.Log
	decoder    *postprocess.Decoder
	suppressor *postprocess.Suppressor
	tracker    *tracker.Tracker
	profiler   *profiler.Profiler

	frames  int64
	dropped int64
}

// New creates a pipeline from opts. Zero-valued fields of opts fall back to
// DefaultOptions.
func New(log logs.Log, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.Classes == nil {
		opts.Classes = def.Classes
	}
	if opts.Table == nil {
		opts.Table = def.Table
	}
	if opts.Decoder == (postprocess.DecoderOptions{}) {
		opts.Decoder = def.Decoder
	}
	if opts.Suppressor == (postprocess.SuppressorOptions{}) {
		opts.Suppressor = def.Suppressor
	}
	if opts.Tracker == (tracker.Options{}) {
		opts.Tracker = def.Tracker
	}

	return &Pipeline{
		log:        log,
		decoder:    postprocess.NewDecoder(opts.Classes, opts.Table, opts.Decoder),
		suppressor: postprocess.NewSuppressor(opts.Classes, opts.Table, opts.Suppressor),
		tracker:    tracker.New(log, opts.Tracker),
		profiler:   opts.Profiler,
	}
}

func (p *Pipeline) stage(name string) func() {
	if p.profiler == nil {
		return func() {}
	}
	return p.profiler.StartOperation(name)
}

// Process runs one frame through the decoder, suppressor and tracker.
//
// Arguments:
//   - output: The raw detector output of the frame.
//   - frame: The frame size the boxes are mapped onto.
//
// Returns:
//   - Result: The tracked detections of the frame.
//   - error: A wrapped postprocess.ErrMalformedOutput if the output could not
//     be decoded. The frame is counted as dropped and the tracker is left
//     untouched.
func (p *Pipeline) Process(output tensor.Tensor, frame image.Point) (Result, error) {
	p.frames++
	res := Result{Frame: p.frames}

	done := p.stage(StageDecode)
	candidates, err := p.decoder.Decode(output, frame)
	done()
	if err != nil {
		p.dropped++
		p.log.Warnf("Frame %d dropped: %v", p.frames, err)
		return res, err
	}
	res.Candidates = len(candidates)

	done = p.stage(StageSuppress)
	detections := p.suppressor.Suppress(candidates)
	done()
	res.Suppressed = len(detections)

	done = p.stage(StageTrack)
	res.Detections = p.tracker.Update(detections)
	done()

	p.log.Debugf("Frame %d: %d candidates, %d detections, %d tracks", p.frames, res.Candidates, res.Suppressed, p.tracker.Len())
	return res, nil
}

// Tracks returns the live tracks.
func (p *Pipeline) Tracks() []tracker.Track {
	return p.tracker.Tracks()
}

// Stats returns the frame counters and the live track count.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Frames:  p.frames,
		Dropped: p.dropped,
		Tracks:  p.tracker.Len(),
	}
}

// Reset drops every track, e.g. after the frame source changes.
func (p *Pipeline) Reset() {
	p.tracker.Reset()
}
