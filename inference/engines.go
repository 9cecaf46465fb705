// Package inference - Runs a YOLOv8 ONNX model and hands its raw output to post-processing.
package inference

import (
	"strings"

	"github.com/pkg/errors"
)

// Backend is the ONNX Runtime execution provider a session runs on.
type Backend string

const (
	// BackendCPU uses the default CPU execution provider.
	BackendCPU Backend = "cpu"
	// BackendCoreML uses Apple CoreML for macOS acceleration.
	BackendCoreML Backend = "coreml"
	// BackendOpenVINO uses Intel OpenVINO.
	BackendOpenVINO Backend = "openvino"
)

// Backends is a list of all supported backends.
var Backends = []Backend{BackendCPU, BackendCoreML, BackendOpenVINO}

// ParseBackend returns the backend named s. The empty string selects the CPU.
func ParseBackend(s string) (Backend, error) {
	if s == "" {
		return BackendCPU, nil
	}
	for _, b := range Backends {
		if strings.EqualFold(s, string(b)) {
			return b, nil
		}
	}
	return "", errors.Errorf("unknown backend %q (valid: %v)", s, Backends)
}
