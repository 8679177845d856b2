package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPolicyFeatures(t *testing.T) {
	info, err := ParseInfo([]byte(`{
		"codebase_version": "v2.1",
		"features": {
			"observation.image": {"dtype": "image", "shape": [96, 96, 3], "names": ["height", "width", "channel"]},
			"observation.images.wrist": {"dtype": "video", "shape": [3, 240, 320], "names": ["channels", "height", "width"]},
			"observation.state": {"dtype": "float32", "shape": [2]},
			"observation.environment_state": {"dtype": "float32", "shape": [16]},
			"action": {"dtype": "float32", "shape": [2]},
			"next.reward": {"dtype": "float32", "shape": [1]},
			"next.done": {"dtype": "bool", "shape": [1]},
			"timestamp": {"dtype": "float32", "shape": [1]},
			"index": {"dtype": "int64", "shape": [1]}
		}
	}`))
	if err != nil {
		t.Fatalf("ParseInfo: %v", err)
	}

	got, err := PolicyFeatures(info.Features)
	if err != nil {
		t.Fatalf("PolicyFeatures: %v", err)
	}

	want := []PolicyFeature{
		{Key: "observation.image", Type: FeatureVisual, Shape: []int{3, 96, 96}},
		{Key: "observation.images.wrist", Type: FeatureVisual, Shape: []int{3, 240, 320}},
		{Key: "observation.state", Type: FeatureState, Shape: []int{2}},
		{Key: "observation.environment_state", Type: FeatureEnv, Shape: []int{16}},
		{Key: "action", Type: FeatureAction, Shape: []int{2}},
		{Key: "next.reward", Type: FeatureReward, Shape: []int{1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PolicyFeatures mismatch (-want +got):\n%s", diff)
	}
}

func TestPolicyFeatures_RejectsBadVisualRank(t *testing.T) {
	info, err := ParseInfo([]byte(`{
		"codebase_version": "v2.1",
		"features": {"observation.image": {"dtype": "image", "shape": [96, 96]}}
	}`))
	if err != nil {
		t.Fatalf("ParseInfo: %v", err)
	}
	if _, err := PolicyFeatures(info.Features); err == nil {
		t.Error("expected an error for a rank-2 image")
	}
}

func TestPolicyFeatures_DoesNotAliasShapes(t *testing.T) {
	info, err := ParseInfo([]byte(`{"codebase_version": "v2.1", "features": {"action": {"dtype": "float32", "shape": [7]}}}`))
	if err != nil {
		t.Fatalf("ParseInfo: %v", err)
	}
	pf, err := PolicyFeatures(info.Features)
	if err != nil {
		t.Fatalf("PolicyFeatures: %v", err)
	}
	pf[0].Shape[0] = 99

	ft, _ := info.Features.Get("action")
	if ft.Shape[0] != 7 {
		t.Errorf("feature shape changed to %v", ft.Shape)
	}
}
