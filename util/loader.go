// Package util - File helpers for replaying recorded frames.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FramePrefix is the file name prefix of a recorded frame, e.g. frame-12.jpg.
const FramePrefix = "frame-"

// ImageFile represents a recorded frame on disk.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the frame number parsed from the file name.
	Frame int
}

// Read returns the raw bytes of the image file.
func (f ImageFile) Read() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read frame %d", f.Frame)
	}
	return data, nil
}

// IsImage reports whether name has an image extension the frame loop can decode.
func IsImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp":
		return true
	}
	return false
}

// LoadFrameSequence lists the frame-N image files in a directory.
//
// Arguments:
// - dir: Directory path containing the recorded frames.
//
// Returns:
// - []ImageFile: The frames in ascending frame number. Other files are ignored.
// - error: Error if the directory cannot be read or holds no frames.
func LoadFrameSequence(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read frame directory %s", dir)
	}

	var frames []ImageFile
	for _, file := range files {
		if file.IsDir() || !IsImage(file.Name()) {
			continue
		}
		name := file.Name()
		if !strings.HasPrefix(name, FramePrefix) {
			continue
		}
		frame, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, FramePrefix), filepath.Ext(name)))
		if err != nil {
			continue
		}
		frames = append(frames, ImageFile{
			Path:  filepath.Join(dir, name),
			Frame: frame,
		})
	}
	if len(frames) == 0 {
		return nil, errors.Errorf("no %sN images in %s", FramePrefix, dir)
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Frame < frames[j].Frame
	})

	return frames, nil
}
