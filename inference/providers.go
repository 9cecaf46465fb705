package inference

import (
	"strconv"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Accelerator hardware, e.g. CPU, GPU or NPU. Empty uses the build default.
	DeviceType string `json:"device_type" yaml:"device_type"`
	// Empty uses the device default.
	Precision Precision `json:"precision" yaml:"precision"`
	// Overrides the accelerator thread count when positive.
	NumThreads int `json:"num_threads" yaml:"num_threads"`
	// Rewrites dynamic shaped models to static shape at runtime.
	DisableDynamicShapes bool `json:"disable_dynamic_shapes" yaml:"disable_dynamic_shapes"`
}

// ProviderOptions returns the key/value form onnxruntime expects. Unset
// fields are left out so the provider keeps its own defaults.
func (o OpenVINOOptions) ProviderOptions() map[string]string {
	opts := map[string]string{}
	if o.DeviceType != "" {
		opts["device_type"] = o.DeviceType
	}
	if o.Precision != "" {
		opts["precision"] = string(o.Precision)
	}
	if o.NumThreads > 0 {
		opts["num_of_threads"] = strconv.Itoa(o.NumThreads)
	}
	if o.DisableDynamicShapes {
		opts["disable_dynamic_shapes"] = "true"
	}
	return opts
}

// newSessionOptions creates the threading, optimization and execution
// provider settings for cfg. The caller destroys the result.
func newSessionOptions(cfg Config) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}

	// Zero lets onnxruntime pick.
	if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting graph optimization level")
	}

	switch cfg.Backend {
	case BackendCPU, "":
	case BackendCoreML:
		err = options.AppendExecutionProviderCoreML(0)
		if err != nil {
			options.Destroy()
			return nil, errors.Wrap(err, "error enabling CoreML")
		}
	case BackendOpenVINO:
		err = options.AppendExecutionProviderOpenVINO(cfg.OpenVINO.ProviderOptions())
		if err != nil {
			options.Destroy()
			return nil, errors.Wrap(err, "error enabling OpenVINO")
		}
	default:
		options.Destroy()
		return nil, errors.Errorf("unsupported backend %q", cfg.Backend)
	}

	return options, nil
}
