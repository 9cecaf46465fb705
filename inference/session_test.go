package inference

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_OutputShape(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 8400, cfg.Predictions())
	assert.Equal(t, []int{1, 84, 8400}, cfg.OutputShape())

	cfg.InputSize = image.Pt(320, 320)
	assert.Equal(t, 2100, cfg.Predictions())

	cfg.NumPredictions = 100
	assert.Equal(t, []int{1, 84, 100}, cfg.OutputShape())
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.ModelPath = "yolov8n.onnx"
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.InputSize = image.Pt(0, 640)
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.NumClasses = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Backend = "tpu"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.OpenVINO.Precision = "INT4"
	assert.Error(t, bad.Validate())
}

func TestNewSession_MissingLibrary(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ModelPath = filepath.Join(dir, "model.onnx")
	cfg.LibraryPath = filepath.Join(dir, "libonnxruntime.so")

	s, err := NewSession(cfg)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "onnxruntime library not found")
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendCPU, false},
		{"cpu", BackendCPU, false},
		{"CoreML", BackendCoreML, false},
		{"openvino", BackendOpenVINO, false},
		{"cuda", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenVINOOptions_ProviderOptions(t *testing.T) {
	assert.Empty(t, OpenVINOOptions{}.ProviderOptions())

	got := OpenVINOOptions{
		DeviceType:           "GPU",
		Precision:            PrecisionFP16,
		NumThreads:           4,
		DisableDynamicShapes: true,
	}.ProviderOptions()
	assert.Equal(t, map[string]string{
		"device_type":            "GPU",
		"precision":              "FP16",
		"num_of_threads":         "4",
		"disable_dynamic_shapes": "true",
	}, got)
}
