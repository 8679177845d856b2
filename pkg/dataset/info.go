// Package dataset reads LeRobot datasets: the metadata under meta/ and the
// per-episode parquet frames under data/.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Feature dtypes used in info.json.
const (
	DTypeImage = "image"
	DTypeVideo = "video"
)

// Info mirrors meta/info.json.
type Info struct {
	CodebaseVersion string            `json:"codebase_version"`
	RobotType       string            `json:"robot_type"`
	TotalEpisodes   int               `json:"total_episodes"`
	TotalFrames     int               `json:"total_frames"`
	TotalTasks      int               `json:"total_tasks"`
	TotalVideos     int               `json:"total_videos"`
	TotalChunks     int               `json:"total_chunks"`
	ChunksSize      int               `json:"chunks_size"`
	FPS             float64           `json:"fps"`
	Splits          map[string]string `json:"splits"`
	DataPath        string            `json:"data_path"`
	VideoPath       string            `json:"video_path"`
	Features        Features          `json:"features"`
}

// ParseInfo decodes the contents of info.json.
func ParseInfo(data []byte) (Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("parse info.json: %w", err)
	}
	if info.ChunksSize <= 0 {
		info.ChunksSize = DefaultChunksSize
	}
	return info, nil
}

// MajorVersion returns the major part of the codebase version ("v2.1" -> 2).
func (i Info) MajorVersion() int {
	v := strings.TrimPrefix(i.CodebaseVersion, "v")
	major, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}
	return n
}

// Feature describes one entry of the features mapping.
type Feature struct {
	DType string         `json:"dtype" yaml:"dtype"`
	Shape []int          `json:"shape" yaml:"shape"`
	Names Names          `json:"names" yaml:"names"`
	Info  map[string]any `json:"info,omitempty" yaml:"info,omitempty"`
}

// IsVisual reports whether the feature holds camera frames.
func (f Feature) IsVisual() bool {
	return f.DType == DTypeImage || f.DType == DTypeVideo
}

// Names holds the per-dimension labels of a feature. In info.json they are
// either a plain list or a mapping such as {"motors": [...]}.
type Names struct {
	Axis   string   `json:"axis,omitempty" yaml:"axis,omitempty"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// Empty reports whether no names were given.
func (n Names) Empty() bool { return len(n.Values) == 0 }

// UnmarshalJSON accepts null, a list, or a single-list mapping.
func (n *Names) UnmarshalJSON(data []byte) error {
	*n = Names{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '[':
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("names: %w", err)
		}
		n.Values = stringify(raw)
		return nil
	case '{':
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("names: %w", err)
		}
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if list, ok := raw[k].([]any); ok {
				n.Axis = k
				n.Values = stringify(list)
				return nil
			}
		}
		return nil
	default:
		return fmt.Errorf("names: unexpected JSON %s", data)
	}
}

// MarshalJSON writes names back in the info.json form.
func (n Names) MarshalJSON() ([]byte, error) {
	switch {
	case n.Values == nil:
		return []byte("null"), nil
	case n.Axis != "":
		return json.Marshal(map[string][]string{n.Axis: n.Values})
	default:
		return json.Marshal(n.Values)
	}
}

func stringify(list []any) []string {
	out := make([]string, len(list))
	for i, v := range list {
		if s, ok := v.(string); ok {
			out[i] = s
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

// Features is the features mapping of info.json with its key order kept.
type Features struct {
	keys  []string
	byKey map[string]Feature
}

// NewFeatures builds a Features mapping; keys keep the order given.
func NewFeatures(keys []string, byKey map[string]Feature) Features {
	return Features{keys: keys, byKey: byKey}
}

// Keys returns the feature keys in declaration order.
func (f Features) Keys() []string { return f.keys }

// Len returns the number of features.
func (f Features) Len() int { return len(f.keys) }

// Get returns the feature stored under key.
func (f Features) Get(key string) (Feature, bool) {
	ft, ok := f.byKey[key]
	return ft, ok
}

// Each calls fn for every feature in declaration order.
func (f Features) Each(fn func(key string, ft Feature)) {
	for _, k := range f.keys {
		fn(k, f.byKey[k])
	}
}

// UnmarshalJSON decodes the mapping token by token so the order survives.
func (f *Features) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("features: %w", err)
	}
	if tok == nil {
		*f = Features{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("features: expected object, got %v", tok)
	}

	out := Features{byKey: make(map[string]Feature)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("features: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("features: expected key, got %v", tok)
		}
		var ft Feature
		if err := dec.Decode(&ft); err != nil {
			return fmt.Errorf("features[%s]: %w", key, err)
		}
		if _, dup := out.byKey[key]; !dup {
			out.keys = append(out.keys, key)
		}
		out.byKey[key] = ft
	}
	*f = out
	return nil
}

// MarshalJSON writes the mapping in declaration order.
func (f Features) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(f.byKey[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NumElements returns the product of the shape dimensions, 1 for a scalar.
func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// FormatShape renders a shape the way the tools print it: (2,) or (96, 96, 3).
func FormatShape(shape []int) string {
	if len(shape) == 1 {
		return fmt.Sprintf("(%d,)", shape[0])
	}
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
