package inspect

import "strings"

// Layout names the axes of an image tensor, one letter per axis:
// B batch, C channels, H height, W width.
type Layout string

const (
	LayoutUnknown Layout = ""
	LayoutCHW     Layout = "CHW"
	LayoutHWC     Layout = "HWC"
	LayoutBCHW    Layout = "BCHW"
	LayoutBHWC    Layout = "BHWC"
)

// GuessLayout infers the axis order from the shape: a leading (or, for
// batches, second) axis of 1 or 3 is taken as channels, then a trailing one.
func GuessLayout(shape []int) Layout {
	isChannels := func(d int) bool { return d == 1 || d == 3 }
	switch len(shape) {
	case 3:
		if isChannels(shape[0]) {
			return LayoutCHW
		}
		if isChannels(shape[2]) {
			return LayoutHWC
		}
	case 4:
		if isChannels(shape[1]) {
			return LayoutBCHW
		}
		if isChannels(shape[3]) {
			return LayoutBHWC
		}
	}
	return LayoutUnknown
}

// Axis is one named dimension of a shape.
type Axis struct {
	Name string `json:"name" yaml:"name"`
	Size int    `json:"size" yaml:"size"`
}

var axisNames = map[byte]string{
	'B': "batch",
	'C': "channels",
	'H': "height",
	'W': "width",
}

// Axes pairs every dimension of shape with its name. It returns nil when
// the layout does not fit the shape.
func (l Layout) Axes(shape []int) []Axis {
	if l == LayoutUnknown || len(l) != len(shape) {
		return nil
	}
	axes := make([]Axis, len(shape))
	for i := range shape {
		axes[i] = Axis{Name: axisNames[l[i]], Size: shape[i]}
	}
	return axes
}

// Notation renders the layout as (C, H, W).
func (l Layout) Notation() string {
	if l == LayoutUnknown {
		return ""
	}
	letters := strings.Split(string(l), "")
	return "(" + strings.Join(letters, ", ") + ")"
}

// Describe says where a layout usually comes from.
func (l Layout) Describe() string {
	switch l {
	case LayoutCHW:
		return "channel-first, as fed to a policy"
	case LayoutHWC:
		return "channel-last, as stored in the dataset"
	case LayoutBCHW:
		return "batched channel-first"
	case LayoutBHWC:
		return "batched channel-last"
	}
	return ""
}
