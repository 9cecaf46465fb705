// Package config loads the perception pipeline settings from YAML.
//
// A file only needs to name the values it changes; everything else keeps the
// defaults from Default. Per-class thresholds are keyed by label and each
// field is optional:
//
//	session:
//	  model_path: models/yolov8n.onnx
//	  backend: coreml
//	thresholds:
//	  classes:
//	    person:
//	      nms: 0.35
//	    dog:
//	      confidence: 0.4
//	tracker:
//	  max_missed: 10
package config

import (
	"os"

	"github.com/nvr-ai/go-perception/inference"
	"github.com/nvr-ai/go-perception/models"
	"github.com/nvr-ai/go-perception/models/postprocess"
	"github.com/nvr-ai/go-perception/tracker"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Thresholds configures filtering and suppression.
type Thresholds struct {
	// Builtin starts from the tuned COCO class table. When false every class
	// uses Default unless listed in Classes.
	Builtin bool `json:"builtin" yaml:"builtin"`
	// Default applies to classes without their own row.
	Default postprocess.ClassRule `json:"default" yaml:"default"`
	// CrossClassIoU is the overlap above which boxes of different classes
	// suppress one another.
	CrossClassIoU float32 `json:"cross_class_iou" yaml:"cross_class_iou"`
	// Classes overrides individual fields per label.
	Classes map[string]postprocess.RuleOverride `json:"classes" yaml:"classes"`
}

// Config holds every setting of the perception pipeline.
type Config struct {
	// Session describes the model and how to run it.
	Session inference.Config `json:"session" yaml:"session"`
	// Labels is the model's class table. Empty means the 80 COCO classes.
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	// MinBoxSide is the side length, in frame pixels, a box must exceed.
	MinBoxSide int `json:"min_box_side" yaml:"min_box_side"`
	// Thresholds configures filtering and suppression.
	Thresholds Thresholds `json:"thresholds" yaml:"thresholds"`
	// Tracker configures association and the track lifecycle.
	Tracker tracker.Options `json:"tracker" yaml:"tracker"`
}

// Default returns the settings for a stock YOLOv8 COCO model.
func Default() *Config {
	return &Config{
		Session:    inference.DefaultConfig(),
		MinBoxSide: postprocess.DefaultDecoderOptions().MinBoxSide,
		Thresholds: Thresholds{
			Builtin:       true,
			Default:       postprocess.DefaultClassTable().Default,
			CrossClassIoU: postprocess.DefaultCrossClassIoU,
			Classes:       map[string]postprocess.RuleOverride{},
		},
		Tracker: tracker.DefaultOptions(),
	}
}

// Load reads a YAML file over the defaults and validates the result.
//
// Arguments:
//   - path: The YAML file to read.
//
// Returns:
//   - *Config: The merged configuration.
//   - error: An error if the file cannot be read, parsed or is out of range.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if backend, err := inference.ParseBackend(string(cfg.Session.Backend)); err == nil {
		cfg.Session.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	return data, nil
}

func unitRange(name string, v float32) error {
	if !(v >= 0 && v <= 1) {
		return errors.Errorf("%s must be in [0, 1], got %v", name, v)
	}
	return nil
}

func validateRule(name string, rule postprocess.ClassRule) error {
	if err := unitRange(name+".confidence", rule.Confidence); err != nil {
		return err
	}
	if err := unitRange(name+".min_area_ratio", rule.MinAreaRatio); err != nil {
		return err
	}
	if err := unitRange(name+".max_area_ratio", rule.MaxAreaRatio); err != nil {
		return err
	}
	if err := unitRange(name+".nms", rule.NMS); err != nil {
		return err
	}
	if rule.MinAreaRatio >= rule.MaxAreaRatio {
		return errors.Errorf("%s: min_area_ratio %v must be below max_area_ratio %v", name, rule.MinAreaRatio, rule.MaxAreaRatio)
	}
	return nil
}

// Validate checks that every value is in range and that every class
// override names a known label.
func (c *Config) Validate() error {
	if c.Session.InputSize.X <= 0 || c.Session.InputSize.Y <= 0 {
		return errors.Errorf("session.input_size must be positive, got %v", c.Session.InputSize)
	}
	if _, err := inference.ParseBackend(string(c.Session.Backend)); err != nil {
		return errors.Wrap(err, "session.backend")
	}
	if c.MinBoxSide < 0 {
		return errors.Errorf("min_box_side must not be negative, got %d", c.MinBoxSide)
	}
	if err := validateRule("thresholds.default", c.Thresholds.Default); err != nil {
		return err
	}
	if err := unitRange("thresholds.cross_class_iou", c.Thresholds.CrossClassIoU); err != nil {
		return err
	}
	if err := unitRange("tracker.match_iou", c.Tracker.MatchIoU); err != nil {
		return err
	}
	if !(c.Tracker.Alpha > 0 && c.Tracker.Alpha <= 1) {
		return errors.Errorf("tracker.alpha must be in (0, 1], got %v", c.Tracker.Alpha)
	}
	if c.Tracker.MaxMissed < 0 {
		return errors.Errorf("tracker.max_missed must not be negative, got %d", c.Tracker.MaxMissed)
	}

	if _, err := c.ClassTable(); err != nil {
		return err
	}
	return nil
}

// Classes returns the label table.
func (c *Config) Classes() *models.OutputClassSet {
	if len(c.Labels) == 0 {
		return models.YOLOClasses
	}
	return models.NewOutputClassSet(c.Labels...)
}

// ClassTable builds the per-class rules.
func (c *Config) ClassTable() (*postprocess.ClassTable, error) {
	var table *postprocess.ClassTable
	if c.Thresholds.Builtin {
		table = postprocess.DefaultClassTable()
		table.Default = c.Thresholds.Default
	} else {
		table = postprocess.NewClassTable(c.Thresholds.Default)
	}

	classes := c.Classes()
	for label, override := range c.Thresholds.Classes {
		idx, err := classes.Index(label)
		if err != nil {
			return nil, errors.Wrap(err, "thresholds.classes")
		}
		table.Override(override, idx)
		if err := validateRule("thresholds.classes."+label, table.Rule(idx)); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// DecoderOptions returns the decoder geometry settings.
func (c *Config) DecoderOptions() postprocess.DecoderOptions {
	return postprocess.DecoderOptions{
		InputSize:  c.Session.InputSize,
		MinBoxSide: c.MinBoxSide,
	}
}

// SuppressorOptions returns the suppressor settings.
func (c *Config) SuppressorOptions() postprocess.SuppressorOptions {
	return postprocess.SuppressorOptions{CrossClassIoU: c.Thresholds.CrossClassIoU}
}

// TrackerOptions returns the tracker settings.
func (c *Config) TrackerOptions() tracker.Options {
	return c.Tracker
}

// SessionConfig returns the inference settings with the class count taken
// from the label table.
func (c *Config) SessionConfig() inference.Config {
	s := c.Session
	s.NumClasses = c.Classes().Len()
	return s
}
