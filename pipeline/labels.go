package pipeline

import (
	"fmt"
	"strings"

	"github.com/nvr-ai/go-perception/models/postprocess"
)

// Labels returns the label of every detection, in order.
func Labels(detections []postprocess.Detection) []string {
	labels := make([]string, len(detections))
	for i, d := range detections {
		labels[i] = d.Label
	}
	return labels
}

// LabelSet returns each distinct label once, in order of first appearance.
func LabelSet(detections []postprocess.Detection) []string {
	seen := make(map[string]bool, len(detections))
	labels := make([]string, 0, len(detections))
	for _, d := range detections {
		if seen[d.Label] {
			continue
		}
		seen[d.Label] = true
		labels = append(labels, d.Label)
	}
	return labels
}

// Describe summarizes detections as "2 person, 1 car", following LabelSet order.
func Describe(detections []postprocess.Detection) string {
	counts := make(map[string]int, len(detections))
	for _, d := range detections {
		counts[d.Label]++
	}
	parts := make([]string, 0, len(counts))
	for _, label := range LabelSet(detections) {
		parts = append(parts, fmt.Sprintf("%d %s", counts[label], label))
	}
	return strings.Join(parts, ", ")
}
