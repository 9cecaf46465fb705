package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-perception/models"
)

// Defaults applied to every class without an override.
const (
	DefaultConfidence    = 0.25
	DefaultMinAreaRatio  = 0.0005
	DefaultMaxAreaRatio  = 0.95
	DefaultNMSThreshold  = 0.4
	DefaultCrossClassIoU = 0.8
)

// ClassRule holds the calibration knobs for one class.
type ClassRule struct {
	// Confidence is the score a prediction must exceed to be kept.
	Confidence float32 `json:"confidence" yaml:"confidence"`
	// MinAreaRatio and MaxAreaRatio bound box area / frame area (both exclusive).
	MinAreaRatio float32 `json:"min_area_ratio" yaml:"min_area_ratio"`
	MaxAreaRatio float32 `json:"max_area_ratio" yaml:"max_area_ratio"`
	// NMS is the same-class IoU above which a lower-scoring box is suppressed.
	NMS float32 `json:"nms" yaml:"nms"`
}

// RuleOverride changes a subset of a ClassRule. Nil fields keep the current value.
type RuleOverride struct {
	Confidence   *float32 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	MinAreaRatio *float32 `json:"min_area_ratio,omitempty" yaml:"min_area_ratio,omitempty"`
	MaxAreaRatio *float32 `json:"max_area_ratio,omitempty" yaml:"max_area_ratio,omitempty"`
	NMS          *float32 `json:"nms,omitempty" yaml:"nms,omitempty"`
}

// Apply returns rule with the non-nil fields of o substituted.
func (o RuleOverride) Apply(rule ClassRule) ClassRule {
	if o.Confidence != nil {
		rule.Confidence = *o.Confidence
	}
	if o.MinAreaRatio != nil {
		rule.MinAreaRatio = *o.MinAreaRatio
	}
	if o.MaxAreaRatio != nil {
		rule.MaxAreaRatio = *o.MaxAreaRatio
	}
	if o.NMS != nil {
		rule.NMS = *o.NMS
	}
	return rule
}

// ClassTable maps class indices to rules, falling back to a default row.
type ClassTable struct {
	Default ClassRule
	rules   map[int]ClassRule
}

// NewClassTable creates a table where every class uses def.
func NewClassTable(def ClassRule) *ClassTable {
	return &ClassTable{
		Default: def,
		rules:   make(map[int]ClassRule),
	}
}

// Rule returns the rule for class, or the default row.
func (t *ClassTable) Rule(class int) ClassRule {
	if rule, ok := t.rules[class]; ok {
		return rule
	}
	return t.Default
}

// Set replaces the whole rule for class.
func (t *ClassTable) Set(class int, rule ClassRule) *ClassTable {
	t.rules[class] = rule
	return t
}

// Override merges o onto the current rule of each class.
func (t *ClassTable) Override(o RuleOverride, classes ...int) *ClassTable {
	for _, class := range classes {
		t.rules[class] = o.Apply(t.Rule(class))
	}
	return t
}

// Classes returns the classes with an explicit row, in ascending order.
func (t *ClassTable) Classes() []int {
	classes := make([]int, 0, len(t.rules))
	for class := range t.rules {
		classes = append(classes, class)
	}
	sort.Ints(classes)
	return classes
}

// Clone returns an independent copy.
func (t *ClassTable) Clone() *ClassTable {
	c := NewClassTable(t.Default)
	for class, rule := range t.rules {
		c.rules[class] = rule
	}
	return c
}

func f32(v float32) *float32 {
	return &v
}

func classRange(from, to int) []int {
	classes := make([]int, 0, to-from+1)
	for c := from; c <= to; c++ {
		classes = append(classes, c)
	}
	return classes
}

// DefaultClassTable returns the calibration used for YOLOv8 COCO models.
//
// People are held to a stricter score, size window and NMS threshold.
// Small household objects get looser scores and a smaller minimum area,
// and furniture and electronics tolerate more same-class overlap.
func DefaultClassTable() *ClassTable {
	t := NewClassTable(ClassRule{
		Confidence:   DefaultConfidence,
		MinAreaRatio: DefaultMinAreaRatio,
		MaxAreaRatio: DefaultMaxAreaRatio,
		NMS:          DefaultNMSThreshold,
	})

	// Confidence.
	t.Override(RuleOverride{Confidence: f32(0.5)}, models.COCOPerson)
	t.Override(RuleOverride{Confidence: f32(0.3)}, classRange(models.COCOBicycle, models.COCOTrafficLight)...)
	t.Override(RuleOverride{Confidence: f32(0.3)}, classRange(models.COCOBird, models.COCOGiraffe)...)
	t.Override(RuleOverride{Confidence: f32(0.2)},
		models.COCOChair, models.COCOCouch,
		models.COCOToilet, models.COCOTV, models.COCOLaptop,
		models.COCOKeyboard,
		models.COCOBook, models.COCOClock,
	)

	// Plausible size.
	t.Override(RuleOverride{MinAreaRatio: f32(0.01), MaxAreaRatio: f32(0.8)}, models.COCOPerson)
	t.Override(RuleOverride{MinAreaRatio: f32(0.0001)}, models.COCOMouse, models.COCOKeyboard, models.COCOCellPhone)
	t.Override(RuleOverride{MinAreaRatio: f32(0.005), MaxAreaRatio: f32(0.9)},
		models.COCOChair, models.COCOCouch, models.COCOBed)

	// Same-class suppression.
	t.Override(RuleOverride{NMS: f32(0.3)}, models.COCOPerson)
	t.Override(RuleOverride{NMS: f32(0.5)}, classRange(models.COCOChair, models.COCODiningTable)...)
	t.Override(RuleOverride{NMS: f32(0.6)}, classRange(models.COCOToilet, models.COCOCellPhone)...)

	return t
}
