package images

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// AspectRatio represents a CCTV aspect ratio by name (e.g., "16:9").
type AspectRatio string

// Defines standard and common aspect ratios for surveillance cameras.
const (
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
	AspectRatio54  AspectRatio = "5:4"
	AspectRatio32  AspectRatio = "3:2"
)

// ResolutionType represents a common name or standard for a CCTV resolution.
type ResolutionType string

// Camera resolutions a detector is commonly fed with.
const (
	ResolutionTypeNHD      ResolutionType = "nHD"
	ResolutionTypeVGA      ResolutionType = "VGA"
	ResolutionTypeHD720p   ResolutionType = "HD 720p"
	ResolutionType1MP54    ResolutionType = "1MP (5:4)"
	ResolutionTypeFHD1080p ResolutionType = "Full HD 1080p"
	ResolutionType2MP43    ResolutionType = "2MP (4:3)"
	ResolutionTypeQHD1440p ResolutionType = "QHD 1440p"
	ResolutionType4MP169   ResolutionType = "4MP (16:9)"
	ResolutionType6MP32    ResolutionType = "6MP (3:2)"
	ResolutionType4KUHD    ResolutionType = "4K UHD"
)

// ResolutionPixels describes the exact dimensions of a resolution.
type ResolutionPixels struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Resolution describes a camera resolution standard.
type Resolution struct {
	Name        ResolutionType   `json:"name"`
	AspectRatio AspectRatio      `json:"aspectRatio"`
	Pixels      ResolutionPixels `json:"pixels"`
}

// GetMegaPixels returns the megapixel count rounded to two decimals (e.g., 2.07 for 1080p).
func (r Resolution) GetMegaPixels() float64 {
	if r.Pixels.Width <= 0 || r.Pixels.Height <= 0 {
		return 0.0
	}
	mp := float64(r.Pixels.Width*r.Pixels.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

// Scale returns the per-axis factors that map a width x height network input onto
// this resolution.
func (r Resolution) Scale(width, height int) (float32, float32) {
	return float32(r.Pixels.Width) / float32(width), float32(r.Pixels.Height) / float32(height)
}

// String returns a human-readable summary of the resolution.
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Pixels.Width, r.Pixels.Height, r.GetMegaPixels())
}

var resolutions = map[ResolutionType]Resolution{
	ResolutionTypeNHD:      {ResolutionTypeNHD, AspectRatio169, ResolutionPixels{640, 360}},
	ResolutionTypeVGA:      {ResolutionTypeVGA, AspectRatio43, ResolutionPixels{640, 480}},
	ResolutionTypeHD720p:   {ResolutionTypeHD720p, AspectRatio169, ResolutionPixels{1280, 720}},
	ResolutionType1MP54:    {ResolutionType1MP54, AspectRatio54, ResolutionPixels{1280, 1024}},
	ResolutionTypeFHD1080p: {ResolutionTypeFHD1080p, AspectRatio169, ResolutionPixels{1920, 1080}},
	ResolutionType2MP43:    {ResolutionType2MP43, AspectRatio43, ResolutionPixels{1600, 1200}},
	ResolutionTypeQHD1440p: {ResolutionTypeQHD1440p, AspectRatio169, ResolutionPixels{2560, 1440}},
	ResolutionType4MP169:   {ResolutionType4MP169, AspectRatio169, ResolutionPixels{2688, 1520}},
	ResolutionType6MP32:    {ResolutionType6MP32, AspectRatio32, ResolutionPixels{3072, 2048}},
	ResolutionType4KUHD:    {ResolutionType4KUHD, AspectRatio169, ResolutionPixels{3840, 2160}},
}

// GetAllResolutions returns every resolution ordered by pixel count, smallest first.
func GetAllResolutions() []Resolution {
	all := make([]Resolution, 0, len(resolutions))
	for _, res := range resolutions {
		all = append(all, res)
	}
	sort.Slice(all, func(i, j int) bool {
		pi := all[i].Pixels.Width * all[i].Pixels.Height
		pj := all[j].Pixels.Width * all[j].Pixels.Height
		if pi != pj {
			return pi < pj
		}
		return all[i].Name < all[j].Name
	})
	return all
}

// GetResolutionByType retrieves a specific resolution by its type.
func GetResolutionByType(t ResolutionType) (Resolution, bool) {
	res, ok := resolutions[t]
	return res, ok
}

// ParseResolution accepts a resolution name (case-insensitive) or "<width>x<height>".
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSpace(s)
	for _, res := range resolutions {
		if strings.EqualFold(string(res.Name), s) {
			return res, nil
		}
	}

	var w, h int
	if n, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &w, &h); err == nil && n == 2 && w > 0 && h > 0 {
		return Resolution{
			Name:   ResolutionType(fmt.Sprintf("%dx%d", w, h)),
			Pixels: ResolutionPixels{Width: w, Height: h},
		}, nil
	}
	return Resolution{}, errors.Errorf("unknown resolution %q", s)
}

// GetHighestResolutionUnderDimensions retrieves the highest resolution that fits within
// width x height.
//
// Arguments:
//   - width: The maximum possible width of the image.
//   - height: The maximum possible height of the image.
//
// Returns:
//   - Resolution: The highest resolution that is under the given width and height.
//   - bool: True if a resolution was found, otherwise false.
func GetHighestResolutionUnderDimensions(width, height int) (Resolution, bool) {
	var highest Resolution
	var found bool

	for _, res := range GetAllResolutions() {
		if res.Pixels.Width <= width && res.Pixels.Height <= height {
			highest = res
			found = true
		}
	}
	return highest, found
}
