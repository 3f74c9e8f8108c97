// Package models - Definitions for model output class sets.
package models

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a model family to its full list of labels.
type OutputClassSet struct {
	// Class set identifier.
	Style ModelFamily
	// Classes that are supported and mappable, ordered by Index.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewOutputClassSet builds a class set and its name index.
func NewOutputClassSet(style ModelFamily, classes []OutputClass) *OutputClassSet {
	set := &OutputClassSet{Style: style, Classes: classes}
	set.BuildNameIndexMap()
	return set
}

// BuildNameIndexMap builds or rebuilds the name->index map.
func (s *OutputClassSet) BuildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Classes))
	for _, c := range s.Classes {
		s.nameToIdx[strings.ToLower(c.Name)] = c.Index
	}
}

// Len returns the number of classes in the set.
func (s *OutputClassSet) Len() int {
	return len(s.Classes)
}

// Name returns the class name for a given index.
func (s *OutputClassSet) Name(idx int) (string, error) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", errors.Errorf("index %d out of range for style %q", idx, s.Style)
	}
	return s.Classes[idx].Name, nil
}

// Label returns the class name for idx, or "class <idx>" when the index is unknown.
func (s *OutputClassSet) Label(idx int) string {
	name, err := s.Name(idx)
	if err != nil {
		return "class " + strconv.Itoa(idx)
	}
	return name
}

// Index returns the class index for a given name. Lookups are case-insensitive.
func (s *OutputClassSet) Index(name string) (int, error) {
	if s.nameToIdx == nil {
		s.BuildNameIndexMap()
	}
	idx, ok := s.nameToIdx[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return -1, errors.Errorf("name %q not found in style %q", name, s.Style)
	}
	return idx, nil
}

// Resolve maps class names to their indices, preserving order.
//
// Arguments:
//   - names: Class names, e.g. []string{"person", "car"}.
//
// Returns:
//   - []int: The class indices. Empty when names is empty.
//   - error: The first unknown name.
func (s *OutputClassSet) Resolve(names []string) ([]int, error) {
	ids := make([]int, 0, len(names))
	for _, name := range names {
		idx, err := s.Index(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, idx)
	}
	return ids, nil
}

// YOLOClasses is the 80 COCO classes (no background).
// YOLO models index directly into this zero-based list; index 0 is "person".
var YOLOClasses = NewOutputClassSet(ModelFamilyYOLO, []OutputClass{
	{0, "person"},
	{1, "bicycle"},
	{2, "car"},
	{3, "motorcycle"},
	{4, "airplane"},
	{5, "bus"},
	{6, "train"},
	{7, "truck"},
	{8, "boat"},
	{9, "traffic light"},
	{10, "fire hydrant"},
	{11, "stop sign"},
	{12, "parking meter"},
	{13, "bench"},
	{14, "bird"},
	{15, "cat"},
	{16, "dog"},
	{17, "horse"},
	{18, "sheep"},
	{19, "cow"},
	{20, "elephant"},
	{21, "bear"},
	{22, "zebra"},
	{23, "giraffe"},
	{24, "backpack"},
	{25, "umbrella"},
	{26, "handbag"},
	{27, "tie"},
	{28, "suitcase"},
	{29, "frisbee"},
	{30, "skis"},
	{31, "snowboard"},
	{32, "sports ball"},
	{33, "kite"},
	{34, "baseball bat"},
	{35, "baseball glove"},
	{36, "skateboard"},
	{37, "surfboard"},
	{38, "tennis racket"},
	{39, "bottle"},
	{40, "wine glass"},
	{41, "cup"},
	{42, "fork"},
	{43, "knife"},
	{44, "spoon"},
	{45, "bowl"},
	{46, "banana"},
	{47, "apple"},
	{48, "sandwich"},
	{49, "orange"},
	{50, "broccoli"},
	{51, "carrot"},
	{52, "hot dog"},
	{53, "pizza"},
	{54, "donut"},
	{55, "cake"},
	{56, "chair"},
	{57, "couch"},
	{58, "potted plant"},
	{59, "bed"},
	{60, "dining table"},
	{61, "toilet"},
	{62, "tv"},
	{63, "laptop"},
	{64, "mouse"},
	{65, "remote"},
	{66, "keyboard"},
	{67, "cell phone"},
	{68, "microwave"},
	{69, "oven"},
	{70, "toaster"},
	{71, "sink"},
	{72, "refrigerator"},
	{73, "book"},
	{74, "clock"},
	{75, "vase"},
	{76, "scissors"},
	{77, "teddy bear"},
	{78, "hair drier"},
	{79, "toothbrush"},
})
