package inference

import (
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// Config describes a YOLOv8 style ONNX model and how to run it.
type Config struct {
	// ModelPath is the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// LibraryPath is the onnxruntime shared library. Empty uses SharedLibPath.
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// Backend selects the execution provider.
	Backend Backend `json:"backend" yaml:"backend"`
	// InputSize is the model input resolution.
	InputSize image.Point `json:"input_size" yaml:"input_size"`
	// NumClasses is the number of class scores per prediction.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
	// NumPredictions is the number of prediction columns. Zero derives it
	// from InputSize for the three standard YOLOv8 strides.
	NumPredictions int `json:"num_predictions" yaml:"num_predictions"`
	// Thread counts handed to onnxruntime. Zero lets it decide.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
	// OpenVINO holds provider options used when Backend is BackendOpenVINO.
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
	// InputName and OutputName are the graph node names.
	InputName  string `json:"input_name" yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`
}

// DefaultConfig returns the settings of a stock 640x640 COCO YOLOv8 export.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendCPU,
		InputSize:  image.Pt(640, 640),
		NumClasses: 80,
		InputName:  "images",
		OutputName: "output0",
	}
}

// Predictions returns the number of prediction columns in the model output.
func (c Config) Predictions() int {
	if c.NumPredictions > 0 {
		return c.NumPredictions
	}
	n := 0
	for _, stride := range []int{8, 16, 32} {
		n += (c.InputSize.X / stride) * (c.InputSize.Y / stride)
	}
	return n
}

// OutputShape returns the [1, 4+C, N] shape of the model output.
func (c Config) OutputShape() []int {
	return []int{1, 4 + c.NumClasses, c.Predictions()}
}

// Validate checks the settings that do not need the native library.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if c.InputSize.X <= 0 || c.InputSize.Y <= 0 {
		return errors.Errorf("invalid input size %v", c.InputSize)
	}
	if c.NumClasses <= 0 {
		return errors.Errorf("invalid class count %d", c.NumClasses)
	}
	if c.Predictions() <= 0 {
		return errors.Errorf("invalid prediction count %d", c.Predictions())
	}
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	switch c.OpenVINO.Precision {
	case "", PrecisionFP32, PrecisionFP16, PrecisionAccuracy:
	default:
		return errors.Errorf("unsupported OpenVINO precision %q", c.OpenVINO.Precision)
	}
	return nil
}

var (
	envMu          sync.Mutex
	envInitialized bool
)

// initEnvironment loads the onnxruntime library once per process.
func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envInitialized {
		return nil
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}
	envInitialized = true
	return nil
}

// Session is an onnxruntime session with preallocated input and output tensors.
// It is not safe for concurrent use.
type Session struct {
	cfg     Config
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	// output viewed as a gorgonia tensor, sharing its backing memory.
	result *tensor.Dense
}

// NewSession loads the model and binds the input and output tensors.
//
// Arguments:
//   - cfg: The model description and execution settings.
//
// Returns:
//   - *Session: A session ready for Run. Close releases its native resources.
//   - error: An error if the library, the model or a provider cannot be loaded.
func NewSession(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid session config")
	}
	if cfg.InputName == "" {
		cfg.InputName = "images"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "output0"
	}

	libPath := cfg.LibraryPath
	if libPath == "" {
		var err error
		if libPath, err = SharedLibPath(); err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(libPath); err != nil {
		return nil, errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model not found at %s", cfg.ModelPath)
	}
	if err := initEnvironment(libPath); err != nil {
		return nil, err
	}

	// [batch, channels, height, width]
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(cfg.InputSize.Y), int64(cfg.InputSize.X)))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}
	shape := cfg.OutputShape()
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(shape[0]), int64(shape[1]), int64(shape[2])))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := newSessionOptions(cfg)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "error creating ORT session for %s", cfg.ModelPath)
	}

	return &Session{
		cfg:     cfg,
		session: session,
		input:   input,
		output:  output,
		result:  tensor.New(tensor.WithShape(shape...), tensor.WithBacking(output.GetData())),
	}, nil
}

// Config returns the settings the session was created with.
func (s *Session) Config() Config {
	return s.cfg
}

// Run prepares img, executes the model and returns its raw output.
//
// The returned tensor shares memory with the session and is overwritten by
// the next call to Run.
func (s *Session) Run(img image.Image) (tensor.Tensor, error) {
	if s.session == nil {
		return nil, errors.New("session is closed")
	}
	if err := PrepareInput(img, s.cfg.InputSize, s.input.GetData()); err != nil {
		return nil, err
	}
	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "error running ORT session")
	}
	return s.result, nil
}

// Close releases the native resources of the session.
func (s *Session) Close() error {
	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	if s.output != nil {
		s.output.Destroy()
		s.output = nil
	}
	s.result = nil
	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		if err != nil {
			return errors.Wrap(err, "error destroying ORT session")
		}
	}
	return nil
}
