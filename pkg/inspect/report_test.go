package inspect_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/lerobot-inspect/pkg/dataset"
	"github.com/gwillem/lerobot-inspect/pkg/dataset/datasettest"
	"github.com/gwillem/lerobot-inspect/pkg/inspect"
)

func loadPushT(t *testing.T) *dataset.Metadata {
	t.Helper()
	root := t.TempDir()
	datasettest.WritePushT(t, root)
	meta, err := dataset.LoadMetadata(context.Background(), "lerobot/pusht", dataset.LocalSource{Root: root})
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	return meta
}

func loadArm(t *testing.T) *dataset.Metadata {
	t.Helper()
	root := t.TempDir()
	datasettest.WriteArm(t, root)
	meta, err := dataset.LoadMetadata(context.Background(), "user/so101_pick", dataset.LocalSource{Root: root})
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	return meta
}

func keys(p inspect.Pass) []string {
	out := []string{}
	for _, e := range p.Entries {
		out = append(out, e.Key)
	}
	return out
}

func TestBuild_Action(t *testing.T) {
	r := inspect.Build(context.Background(), inspect.Action, loadArm(t), 0)

	if r.Sample.Error != "" || r.Policy.Error != "" {
		t.Fatalf("unexpected pass errors: %q, %q", r.Sample.Error, r.Policy.Error)
	}
	for name, p := range map[string]inspect.Pass{"metadata": r.Metadata, "sample": r.Sample, "policy": r.Policy} {
		if diff := cmp.Diff([]string{"action"}, keys(p)); diff != "" {
			t.Errorf("%s keys mismatch (-want +got):\n%s", name, diff)
		}
	}

	meta := r.Metadata.Entries[0]
	if meta.Dim != 6 || meta.DType != "float32" {
		t.Errorf("metadata entry = %+v", meta)
	}
	if diff := cmp.Diff(datasettest.Motors, meta.Names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	sample := r.Sample.Entries[0]
	if diff := cmp.Diff([]float64{0, 1, 2, 3, 4, 5}, sample.Values); diff != "" {
		t.Errorf("sample values mismatch (-want +got):\n%s", diff)
	}
	if r.Policy.Entries[0].Type != dataset.FeatureAction {
		t.Errorf("policy type = %q, want ACTION", r.Policy.Entries[0].Type)
	}

	if !r.Summary.Found || r.Summary.Key != "action" {
		t.Errorf("summary = %+v", r.Summary)
	}
}

func TestBuild_ActionOtherEpisode(t *testing.T) {
	r := inspect.Build(context.Background(), inspect.Action, loadArm(t), 2)
	if r.Episode != 2 {
		t.Errorf("Episode = %d, want 2", r.Episode)
	}
	if diff := cmp.Diff([]float64{200, 201, 202, 203, 204, 205}, r.Sample.Entries[0].Values); diff != "" {
		t.Errorf("sample values mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_RewardScalar(t *testing.T) {
	r := inspect.Build(context.Background(), inspect.Reward, loadPushT(t), 0)

	if diff := cmp.Diff([]string{"next.reward"}, keys(r.Metadata)); diff != "" {
		t.Errorf("metadata keys mismatch (-want +got):\n%s", diff)
	}
	if !r.Metadata.Entries[0].Scalar {
		t.Error("metadata next.reward should be marked scalar")
	}

	sample := r.Sample.Entries[0]
	if !sample.Scalar || len(sample.Shape) != 0 {
		t.Errorf("sample entry = %+v", sample)
	}

	want := []inspect.RewardPoint{{Frame: 0, Value: 0}, {Frame: 1, Value: 1}, {Frame: 2, Value: 2}, {Frame: 3, Value: 3}}
	if diff := cmp.Diff(want, r.Rewards); diff != "" {
		t.Errorf("rewards mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"next.reward"}, keys(r.Policy)); diff != "" {
		t.Errorf("policy keys mismatch (-want +got):\n%s", diff)
	}

	if r.Summary.Found || r.Summary.AltKey != "next.reward" {
		t.Errorf("summary = %+v, want next.reward fallback", r.Summary)
	}
}

func TestBuild_RewardMissing(t *testing.T) {
	r := inspect.Build(context.Background(), inspect.Reward, loadArm(t), 0)

	if len(r.Metadata.Entries)+len(r.Sample.Entries)+len(r.Policy.Entries) != 0 {
		t.Errorf("expected no reward entries, got %+v", r)
	}
	if r.Rewards != nil {
		t.Errorf("Rewards = %v, want nil", r.Rewards)
	}
	if r.Summary.Found || r.Summary.AltKey != "" {
		t.Errorf("summary = %+v", r.Summary)
	}
}

func TestBuild_State(t *testing.T) {
	r := inspect.Build(context.Background(), inspect.State, loadArm(t), 0)

	if diff := cmp.Diff([]string{"observation.state"}, keys(r.Sample)); diff != "" {
		t.Errorf("sample keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{-1, 0, 1, 2, 3, 4}, r.Sample.Entries[0].Values); diff != "" {
		t.Errorf("state values mismatch (-want +got):\n%s", diff)
	}
	if r.Policy.Entries[0].Type != dataset.FeatureState {
		t.Errorf("policy type = %q, want STATE", r.Policy.Entries[0].Type)
	}
	if diff := cmp.Diff([]int{6}, r.Summary.Shape); diff != "" {
		t.Errorf("summary shape mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_VisualImage(t *testing.T) {
	r := inspect.Build(context.Background(), inspect.Visual, loadPushT(t), 0)

	meta := r.Metadata.Entries[0]
	if meta.Layout != inspect.LayoutHWC || meta.Elements != 96*96*3 {
		t.Errorf("metadata entry = %+v", meta)
	}

	sample := r.Sample.Entries[0]
	if sample.Key != "observation.image" || sample.Layout != inspect.LayoutCHW {
		t.Errorf("sample entry = %+v", sample)
	}
	if diff := cmp.Diff([]int{3, 96, 96}, sample.Shape); diff != "" {
		t.Errorf("sample shape mismatch (-want +got):\n%s", diff)
	}

	policy := r.Policy.Entries[0]
	if diff := cmp.Diff([]int{3, 96, 96}, policy.Shape); diff != "" {
		t.Errorf("policy shape mismatch (-want +got):\n%s", diff)
	}

	want := []inspect.VisualSize{{Key: "observation.image", Shape: []int{96, 96, 3}, Height: 96, Width: 96, Channels: 3}}
	if diff := cmp.Diff(want, r.Summary.Visuals); diff != "" {
		t.Errorf("visuals mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_VisualVideo(t *testing.T) {
	r := inspect.Build(context.Background(), inspect.Visual, loadArm(t), 0)

	sample := r.Sample.Entries[0]
	if sample.Source != "video (not decoded)" {
		t.Errorf("sample source = %q", sample.Source)
	}
	want := []inspect.Axis{{Name: "channels", Size: 3}, {Name: "height", Size: 480}, {Name: "width", Size: 640}}
	if diff := cmp.Diff(want, sample.Axes); diff != "" {
		t.Errorf("axes mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_SampleErrorIsReported(t *testing.T) {
	meta := loadPushT(t)
	r := inspect.Build(context.Background(), inspect.Action, meta, 99)

	if r.Sample.Error == "" {
		t.Error("expected the sample pass to fail for a missing episode")
	}
	if len(r.Metadata.Entries) != 1 || len(r.Policy.Entries) != 1 {
		t.Errorf("metadata and policy passes should still run: %+v", r)
	}
}

// A bimanual arm with a rank-2 action and a depth camera stored without a
// channel axis. Only info.json exists, so the sample pass fails too.
const bimanualInfo = `{"codebase_version": "v2.1", "total_episodes": 1, "fps": 30, "features": {
  "action": {"dtype": "float32", "shape": [2, 7], "names": null},
  "observation.images.depth": {"dtype": "video", "shape": [64, 64], "names": ["height", "width"]}
}}`

func loadBimanual(t *testing.T) *dataset.Metadata {
	t.Helper()
	root := t.TempDir()
	datasettest.WriteInfo(t, root, bimanualInfo)
	meta, err := dataset.LoadMetadata(context.Background(), "user/bimanual", dataset.LocalSource{Root: root})
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	return meta
}

func TestBuild_PolicyErrorIsReported(t *testing.T) {
	r := inspect.Build(context.Background(), inspect.Visual, loadBimanual(t), 0)

	if !strings.Contains(r.Policy.Error, "observation.images.depth") {
		t.Errorf("policy error = %q, want it to name the depth camera", r.Policy.Error)
	}
	if diff := cmp.Diff([]string{"observation.images.depth"}, keys(r.Metadata)); diff != "" {
		t.Errorf("metadata keys mismatch (-want +got):\n%s", diff)
	}
	if r.Metadata.Entries[0].Elements != 64*64 {
		t.Errorf("metadata entry = %+v", r.Metadata.Entries[0])
	}
	if r.Sample.Error == "" {
		t.Error("expected the sample pass to fail without data files")
	}
	want := []inspect.VisualSize{{Key: "observation.images.depth", Shape: []int{64, 64}}}
	if diff := cmp.Diff(want, r.Summary.Visuals); diff != "" {
		t.Errorf("visuals mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := inspect.Render(&buf, r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "error: feature \"observation.images.depth\"") {
		t.Errorf("rendered policy error missing:\n%s", buf.String())
	}
}

func TestRender_ActionShape(t *testing.T) {
	var buf bytes.Buffer
	if err := inspect.Render(&buf, inspect.Build(context.Background(), inspect.Action, loadBimanual(t), 0)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "action shape: (2, 7)") {
		t.Errorf("output missing the action shape:\n%s", out)
	}
	if strings.Contains(out, "action dimension") {
		t.Errorf("rank-2 action reported as a dimension:\n%s", out)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		kind inspect.Kind
		arm  bool
		want []string
	}{
		{"action", inspect.Action, true, []string{"Dataset: user/so101_pick", "[1] Metadata", "[2] Sample (episode 0, frame 0)", "[3] Policy features", "action dimension: 6", "[5] gripper.pos"}},
		{"reward fallback", inspect.Reward, false, []string{"scalar reward", "frame  3: 3", "stored as 'next.reward'"}},
		{"reward missing", inspect.Reward, true, []string{"no reward features found", "imitation-learning datasets"}},
		{"state", inspect.State, true, []string{"state dimension: 6", "values: [-1, 0, 1, 2, 3, 4]"}},
		{"visual", inspect.Visual, true, []string{"(C, H, W)", "480x640x3", "observation.images.front"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var meta *dataset.Metadata
			if tt.arm {
				meta = loadArm(t)
			} else {
				meta = loadPushT(t)
			}

			var buf bytes.Buffer
			if err := inspect.Render(&buf, inspect.Build(context.Background(), tt.kind, meta, 0)); err != nil {
				t.Fatalf("Render: %v", err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestExport(t *testing.T) {
	r := inspect.Build(context.Background(), inspect.Action, loadArm(t), 0)

	var js bytes.Buffer
	if err := inspect.Write(&js, r, inspect.FormatJSON); err != nil {
		t.Fatalf("Write json: %v", err)
	}
	var fromJSON inspect.Report
	if err := json.Unmarshal(js.Bytes(), &fromJSON); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if fromJSON.RepoID != "user/so101_pick" || fromJSON.Kind != inspect.Action {
		t.Errorf("json report = %+v", fromJSON)
	}

	var ym bytes.Buffer
	if err := inspect.Write(&ym, r, inspect.FormatYAML); err != nil {
		t.Fatalf("Write yaml: %v", err)
	}
	var fromYAML map[string]any
	if err := yaml.Unmarshal(ym.Bytes(), &fromYAML); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if fromYAML["repo_id"] != "user/so101_pick" {
		t.Errorf("yaml repo_id = %v", fromYAML["repo_id"])
	}
	if !strings.Contains(ym.String(), "  entries:") {
		t.Errorf("yaml not indented by two spaces:\n%s", ym.String())
	}
}

func TestExport_NonFinite(t *testing.T) {
	r := inspect.Report{
		RepoID: "user/sparse",
		Kind:   inspect.Reward,
		Sample: inspect.Pass{Entries: []inspect.Entry{
			{Key: "next.reward", Shape: []int{3}, Values: []float64{math.Inf(1), 0.5, math.Inf(-1)}},
		}},
		Rewards: []inspect.RewardPoint{{Frame: 0, Value: math.NaN()}, {Frame: 1, Value: 1}},
	}

	var js bytes.Buffer
	if err := inspect.Write(&js, r, inspect.FormatJSON); err != nil {
		t.Fatalf("Write json: %v", err)
	}
	var got struct {
		Sample struct {
			Entries []struct {
				Key    string `json:"key"`
				Values []any  `json:"values"`
			} `json:"entries"`
		} `json:"sample"`
		Rewards []struct {
			Frame int `json:"frame"`
			Value any `json:"value"`
		} `json:"rewards"`
	}
	if err := json.Unmarshal(js.Bytes(), &got); err != nil {
		t.Fatalf("decode json: %v\n%s", err, js.String())
	}
	if diff := cmp.Diff([]any{"+Inf", 0.5, "-Inf"}, got.Sample.Entries[0].Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if got.Sample.Entries[0].Key != "next.reward" {
		t.Errorf("entry key = %q", got.Sample.Entries[0].Key)
	}
	if got.Rewards[0].Value != "NaN" || got.Rewards[1].Value != 1.0 {
		t.Errorf("rewards = %+v", got.Rewards)
	}

	var ym bytes.Buffer
	if err := inspect.Write(&ym, r, inspect.FormatYAML); err != nil {
		t.Fatalf("Write yaml: %v", err)
	}
	if !strings.Contains(ym.String(), ".nan") {
		t.Errorf("yaml missing .nan:\n%s", ym.String())
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]inspect.Format{"": inspect.FormatText, "text": inspect.FormatText, "yml": inspect.FormatYAML, "json": inspect.FormatJSON} {
		got, err := inspect.ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := inspect.ParseFormat("csv"); err == nil {
		t.Error("expected an error for csv")
	}
}
