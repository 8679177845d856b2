package dataset

import (
	"fmt"
	"strings"
)

// FeatureType is the role a feature plays for a policy.
type FeatureType string

const (
	FeatureState  FeatureType = "STATE"
	FeatureVisual FeatureType = "VISUAL"
	FeatureEnv    FeatureType = "ENV"
	FeatureAction FeatureType = "ACTION"
	FeatureReward FeatureType = "REWARD"
)

// Well-known feature keys.
const (
	KeyAction           = "action"
	KeyReward           = "reward"
	KeyNextReward       = "next.reward"
	KeyObservation      = "observation"
	KeyObservationState = "observation.state"
	KeyEnvironmentState = "observation.environment_state"
)

// PolicyFeature is the normalized view of a feature a policy consumes.
// Visual shapes are channel-first.
type PolicyFeature struct {
	Key   string      `json:"key" yaml:"key"`
	Type  FeatureType `json:"type" yaml:"type"`
	Shape []int       `json:"shape" yaml:"shape"`
}

// PolicyFeatures converts a features mapping into policy features, keeping
// declaration order. Keys that play no policy role (timestamps, indexes,
// tasks) are dropped.
func PolicyFeatures(features Features) ([]PolicyFeature, error) {
	var out []PolicyFeature
	for _, key := range features.Keys() {
		ft, _ := features.Get(key)
		shape := append([]int(nil), ft.Shape...)

		var typ FeatureType
		switch {
		case ft.IsVisual():
			typ = FeatureVisual
			if len(shape) != 3 {
				return nil, fmt.Errorf("feature %q: expected 3 visual dimensions, got %d", key, len(shape))
			}
			if n := ft.Names.Values; len(n) == 3 && (n[2] == "channel" || n[2] == "channels") {
				shape = []int{shape[2], shape[0], shape[1]}
			}
		case key == KeyEnvironmentState:
			typ = FeatureEnv
		case strings.HasPrefix(key, KeyObservation):
			typ = FeatureState
		case strings.HasPrefix(key, KeyAction):
			typ = FeatureAction
		case key == KeyNextReward || strings.HasPrefix(key, KeyReward):
			typ = FeatureReward
		default:
			continue
		}
		out = append(out, PolicyFeature{Key: key, Type: typ, Shape: shape})
	}
	return out, nil
}
