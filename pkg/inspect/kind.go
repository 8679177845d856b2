// Package inspect builds and prints the shape reports of one feature family
// (action, reward, state or visual) of a LeRobot dataset.
package inspect

import (
	"fmt"
	"strings"

	"github.com/gwillem/lerobot-inspect/pkg/dataset"
)

// Kind selects the feature family an inspection looks at.
type Kind string

const (
	Action Kind = "action"
	Reward Kind = "reward"
	State  Kind = "state"
	Visual Kind = "visual"
)

// Kinds lists every inspection kind.
func Kinds() []Kind { return []Kind{Action, Reward, State, Visual} }

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == strings.ToLower(s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown inspection %q (want action, reward, state or visual)", s)
}

// Title is the capitalized kind used in headings.
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// MatchMetadata reports whether a feature of info.json belongs to the kind.
func (k Kind) MatchMetadata(key string, ft dataset.Feature) bool {
	switch k {
	case Action:
		return strings.HasPrefix(key, dataset.KeyAction)
	case Reward:
		return strings.Contains(strings.ToLower(key), "reward")
	case State:
		return strings.HasPrefix(key, dataset.KeyObservation) && strings.Contains(key, "state")
	case Visual:
		return ft.IsVisual()
	}
	return false
}

// MatchSample reports whether a key of a materialized frame belongs to the kind.
func (k Kind) MatchSample(key string) bool {
	lower := strings.ToLower(key)
	switch k {
	case Action:
		return strings.HasPrefix(key, dataset.KeyAction)
	case Reward:
		return strings.Contains(lower, "reward")
	case State:
		return strings.Contains(lower, "state")
	case Visual:
		return strings.Contains(lower, "image") || strings.Contains(lower, "video")
	}
	return false
}

// PolicyType is the policy feature type of the kind.
func (k Kind) PolicyType() dataset.FeatureType {
	switch k {
	case Action:
		return dataset.FeatureAction
	case Reward:
		return dataset.FeatureReward
	case State:
		return dataset.FeatureState
	case Visual:
		return dataset.FeatureVisual
	}
	return ""
}

// PrimaryKey is the feature the summary is about; visual has none.
func (k Kind) PrimaryKey() string {
	switch k {
	case Action:
		return dataset.KeyAction
	case Reward:
		return dataset.KeyReward
	case State:
		return dataset.KeyObservationState
	}
	return ""
}

// showsValues reports whether small rank-1 sample tensors print their values.
func (k Kind) showsValues() bool { return k == Action || k == State }
