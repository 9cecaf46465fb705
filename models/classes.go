// Package models - Label tables for detector class indices.
package models

import "fmt"

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet is an ordered, zero-based label table.
type OutputClassSet struct {
	// Classes that are supported and mappable.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewOutputClassSet builds a zero-based set from label names.
func NewOutputClassSet(names ...string) *OutputClassSet {
	set := &OutputClassSet{
		Classes:   make([]OutputClass, len(names)),
		nameToIdx: make(map[string]int, len(names)),
	}
	for i, name := range names {
		set.Classes[i] = OutputClass{Index: i, Name: name}
		set.nameToIdx[name] = i
	}
	return set
}

// Len returns the number of classes in the set.
func (s *OutputClassSet) Len() int {
	return len(s.Classes)
}

// Name returns the label for idx. ok is false when idx is outside the table.
func (s *OutputClassSet) Name(idx int) (name string, ok bool) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", false
	}
	return s.Classes[idx].Name, true
}

// Index returns the class index for a label name.
func (s *OutputClassSet) Index(name string) (int, error) {
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, fmt.Errorf("class %q not found", name)
	}
	return idx, nil
}

// Names returns the labels in index order.
func (s *OutputClassSet) Names() []string {
	names := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		names[i] = c.Name
	}
	return names
}

// Class indices of the YOLO (zero-based COCO) label table that carry their
// own thresholds in the default class table.
const (
	COCOPerson       = 0
	COCOBicycle      = 1
	COCOBoat         = 8
	COCOTrafficLight = 9
	COCOBird         = 14
	COCOGiraffe      = 23
	COCOChair        = 56
	COCOCouch        = 57
	COCOPottedPlant  = 58
	COCOBed          = 59
	COCODiningTable  = 60
	COCOToilet       = 61
	COCOTV           = 62
	COCOLaptop       = 63
	COCOMouse        = 64
	COCORemote       = 65
	COCOKeyboard     = 66
	COCOCellPhone    = 67
	COCOMicrowave    = 68
	COCOBook         = 73
	COCOClock        = 74
)

// YOLOClasses is the 80 COCO classes, no background.
// YOLOv8 exports index directly into this zero-based list.
var YOLOClasses = NewOutputClassSet(
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
)
