package dataset

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNames_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Names
	}{
		{"null", `null`, Names{}},
		{"list", `["x", "y"]`, Names{Values: []string{"x", "y"}}},
		{"axes", `{"axes": ["left_x", "left_y"]}`, Names{Axis: "axes", Values: []string{"left_x", "left_y"}}},
		{"motors", `{"motors": ["motor_0"]}`, Names{Axis: "motors", Values: []string{"motor_0"}}},
		{"numbers", `[1, 2]`, Names{Values: []string{"1", "2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Names
			if err := json.Unmarshal([]byte(tt.json), &got); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.json, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNames_UnmarshalJSONRejectsScalars(t *testing.T) {
	var n Names
	if err := json.Unmarshal([]byte(`"height"`), &n); err == nil {
		t.Error("expected an error for a bare string")
	}
}

func TestParseInfo_KeepsFeatureOrder(t *testing.T) {
	data := []byte(`{
		"codebase_version": "v2.1",
		"fps": 50,
		"features": {
			"observation.state": {"dtype": "float32", "shape": [14]},
			"action": {"dtype": "float32", "shape": [14]},
			"observation.images.top": {"dtype": "video", "shape": [480, 640, 3], "names": ["height", "width", "channel"]},
			"episode_index": {"dtype": "int64", "shape": [1], "names": null}
		}
	}`)

	info, err := ParseInfo(data)
	if err != nil {
		t.Fatalf("ParseInfo: %v", err)
	}

	want := []string{"observation.state", "action", "observation.images.top", "episode_index"}
	if diff := cmp.Diff(want, info.Features.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	if info.MajorVersion() != 2 {
		t.Errorf("MajorVersion() = %d, want 2", info.MajorVersion())
	}
	if info.ChunksSize != DefaultChunksSize {
		t.Errorf("ChunksSize = %d, want default %d", info.ChunksSize, DefaultChunksSize)
	}

	top, ok := info.Features.Get("observation.images.top")
	if !ok || !top.IsVisual() {
		t.Fatalf("observation.images.top = %+v, %v", top, ok)
	}
}

func TestFeatures_MarshalJSONRoundTripsOrder(t *testing.T) {
	in := `{"b":{"dtype":"float32","shape":[1],"names":null},"a":{"dtype":"int64","shape":[2],"names":["x","y"]}}`
	var f Features
	if err := json.Unmarshal([]byte(in), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != in {
		t.Errorf("Marshal = %s, want %s", out, in)
	}
}

func TestFormatShape(t *testing.T) {
	tests := []struct {
		shape []int
		want  string
	}{
		{[]int{2}, "(2,)"},
		{[]int{96, 96, 3}, "(96, 96, 3)"},
		{[]int{}, "()"},
	}
	for _, tt := range tests {
		if got := FormatShape(tt.shape); got != tt.want {
			t.Errorf("FormatShape(%v) = %q, want %q", tt.shape, got, tt.want)
		}
	}
}

func TestFormatPath(t *testing.T) {
	got, err := FormatPath(DefaultDataPathV2, map[string]any{"episode_chunk": 0, "episode_index": 42})
	if err != nil {
		t.Fatalf("FormatPath: %v", err)
	}
	if want := "data/chunk-000/episode_000042.parquet"; got != want {
		t.Errorf("FormatPath = %q, want %q", got, want)
	}

	got, err = FormatPath(DefaultVideoPathV3, map[string]any{"video_key": "observation.images.top", "chunk_index": 1, "file_index": 7})
	if err != nil {
		t.Fatalf("FormatPath: %v", err)
	}
	if want := "videos/observation.images.top/chunk-001/file-007.mp4"; got != want {
		t.Errorf("FormatPath = %q, want %q", got, want)
	}

	if _, err := FormatPath(DefaultDataPathV3, map[string]any{"chunk_index": 0}); err == nil {
		t.Error("expected an error for a missing placeholder value")
	}
}
