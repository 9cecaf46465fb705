package main

import (
	"strconv"

	"github.com/nvr-ai/go-perception/util"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// frameSource yields frames into a caller-owned Mat.
type frameSource interface {
	// Read fills img with the next frame. It returns false when the source is exhausted.
	Read(img *gocv.Mat) bool
	Close() error
}

// openSource opens a camera index, a video file or a directory of frame-N images.
func openSource(input string) (frameSource, string, error) {
	if id, err := strconv.Atoi(input); err == nil {
		capture, err := gocv.OpenVideoCapture(id)
		if err != nil {
			return nil, "", errors.Wrapf(err, "error opening camera %d", id)
		}
		return capture, "camera " + input, nil
	}

	if frames, err := util.LoadFrameSequence(input); err == nil {
		return &sequenceSource{frames: frames}, "frames " + input, nil
	}

	capture, err := gocv.OpenVideoCapture(input)
	if err != nil {
		return nil, "", errors.Wrapf(err, "error opening video %s", input)
	}
	return capture, "video " + input, nil
}

// sequenceSource replays recorded frames in frame order.
type sequenceSource struct {
	frames []util.ImageFile
	next   int
}

func (s *sequenceSource) Read(img *gocv.Mat) bool {
	for s.next < len(s.frames) {
		f := s.frames[s.next]
		s.next++
		m := gocv.IMRead(f.Path, gocv.IMReadColor)
		if m.Empty() {
			m.Close()
			continue
		}
		m.CopyTo(img)
		m.Close()
		return true
	}
	return false
}

func (s *sequenceSource) Close() error {
	return nil
}
