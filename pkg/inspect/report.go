package inspect

import (
	"context"

	"github.com/gwillem/lerobot-inspect/pkg/dataset"
)

const (
	// maxShownValues caps how many elements of a sample tensor are printed.
	maxShownValues = 20
	// rewardFrames is how many leading frames the reward series covers.
	rewardFrames = 10
)

// Entry is one matching feature as seen by one of the passes.
type Entry struct {
	Key       string              `json:"key" yaml:"key"`
	DType     string              `json:"dtype,omitempty" yaml:"dtype,omitempty"`
	Type      dataset.FeatureType `json:"type,omitempty" yaml:"type,omitempty"`
	Shape     []int               `json:"shape" yaml:"shape"`
	Dim       int                 `json:"dim,omitempty" yaml:"dim,omitempty"`
	Elements  int                 `json:"elements,omitempty" yaml:"elements,omitempty"`
	Names     []string            `json:"names,omitempty" yaml:"names,omitempty"`
	NamesAxis string              `json:"names_axis,omitempty" yaml:"names_axis,omitempty"`
	Scalar    bool                `json:"scalar,omitempty" yaml:"scalar,omitempty"`
	Values    []float64           `json:"values,omitempty" yaml:"values,omitempty"`
	Layout    Layout              `json:"layout,omitempty" yaml:"layout,omitempty"`
	Axes      []Axis              `json:"axes,omitempty" yaml:"axes,omitempty"`
	Source    string              `json:"source,omitempty" yaml:"source,omitempty"`
}

// Pass is the result of one lookup over the dataset.
type Pass struct {
	Entries []Entry `json:"entries" yaml:"entries"`
	Error   string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// RewardPoint is the reward of one frame.
type RewardPoint struct {
	Frame int     `json:"frame" yaml:"frame"`
	Value float64 `json:"value" yaml:"value"`
}

// VisualSize is a camera feature as height x width x channels.
type VisualSize struct {
	Key      string `json:"key" yaml:"key"`
	Shape    []int  `json:"shape" yaml:"shape"`
	Height   int    `json:"height,omitempty" yaml:"height,omitempty"`
	Width    int    `json:"width,omitempty" yaml:"width,omitempty"`
	Channels int    `json:"channels,omitempty" yaml:"channels,omitempty"`
}

// Summary is the closing statement about the kind's primary feature.
type Summary struct {
	Key     string       `json:"key,omitempty" yaml:"key,omitempty"`
	Found   bool         `json:"found" yaml:"found"`
	DType   string       `json:"dtype,omitempty" yaml:"dtype,omitempty"`
	Shape   []int        `json:"shape,omitempty" yaml:"shape,omitempty"`
	Names   []string     `json:"names,omitempty" yaml:"names,omitempty"`
	Scalar  bool         `json:"scalar,omitempty" yaml:"scalar,omitempty"`
	AltKey  string       `json:"alt_key,omitempty" yaml:"alt_key,omitempty"`
	Visuals []VisualSize `json:"visuals,omitempty" yaml:"visuals,omitempty"`
}

// Report is a full inspection of one kind.
type Report struct {
	RepoID   string        `json:"repo_id" yaml:"repo_id"`
	Kind     Kind          `json:"kind" yaml:"kind"`
	Episode  int           `json:"episode" yaml:"episode"`
	Metadata Pass          `json:"metadata" yaml:"metadata"`
	Sample   Pass          `json:"sample" yaml:"sample"`
	Policy   Pass          `json:"policy" yaml:"policy"`
	Rewards  []RewardPoint `json:"rewards,omitempty" yaml:"rewards,omitempty"`
	Summary  Summary       `json:"summary" yaml:"summary"`
}

// Build runs the three passes and the summary; the sample pass reads the
// first frame of the given episode. A failing sample or policy pass is
// recorded in the report instead of aborting it.
func Build(ctx context.Context, kind Kind, meta *dataset.Metadata, episode int) Report {
	r := Report{RepoID: meta.RepoID, Kind: kind, Episode: episode}
	r.Metadata = metadataPass(kind, meta.Features())
	r.Sample, r.Rewards = samplePass(ctx, kind, meta, episode)
	r.Policy = policyPass(kind, meta)
	r.Summary = summarize(kind, meta.Features())
	return r
}

func metadataPass(kind Kind, features dataset.Features) Pass {
	p := Pass{Entries: []Entry{}}
	features.Each(func(key string, ft dataset.Feature) {
		if !kind.MatchMetadata(key, ft) {
			return
		}
		e := Entry{
			Key:       key,
			DType:     ft.DType,
			Shape:     ft.Shape,
			Names:     ft.Names.Values,
			NamesAxis: ft.Names.Axis,
		}
		fillDims(&e)
		if kind == Reward && len(ft.Shape) == 1 && ft.Shape[0] == 1 {
			e.Scalar = true
		}
		if kind == Visual && len(ft.Shape) == 3 {
			// info.json stores frames channel-last.
			e.Layout = LayoutHWC
			e.Axes = e.Layout.Axes(ft.Shape)
		}
		p.Entries = append(p.Entries, e)
	})
	return p
}

func samplePass(ctx context.Context, kind Kind, meta *dataset.Metadata, episode int) (Pass, []RewardPoint) {
	ep, err := meta.LoadEpisode(ctx, episode)
	if err != nil {
		return Pass{Error: err.Error()}, nil
	}
	fr, err := ep.Frame(0)
	if err != nil {
		return Pass{Error: err.Error()}, nil
	}

	p := Pass{Entries: []Entry{}}
	var rewardKey string
	for _, key := range fr.Keys {
		if !kind.MatchSample(key) {
			continue
		}
		t, _ := fr.Get(key)
		e := Entry{Key: key, DType: t.DType, Shape: t.Shape, Source: t.Source}
		fillDims(&e)

		switch kind {
		case Reward:
			if t.NumElements() == 1 {
				e.Scalar = true
				e.Values = t.Data
			} else if len(t.Shape) == 1 {
				e.Values = t.Data
			}
			if rewardKey == "" {
				rewardKey = key
			}
		case Visual:
			e.Layout = GuessLayout(t.Shape)
			e.Axes = e.Layout.Axes(t.Shape)
			e.Elements = t.NumElements()
		default:
			if kind.showsValues() && len(t.Shape) == 1 && len(t.Data) <= maxShownValues {
				e.Values = t.Data
			}
		}
		p.Entries = append(p.Entries, e)
	}

	var rewards []RewardPoint
	if rewardKey != "" {
		for i := 0; i < ep.Len() && i < rewardFrames; i++ {
			f, err := ep.Frame(i)
			if err != nil {
				break
			}
			t, _ := f.Get(rewardKey)
			if v, ok := t.Item(); ok {
				rewards = append(rewards, RewardPoint{Frame: i, Value: v})
			}
		}
	}
	return p, rewards
}

func policyPass(kind Kind, meta *dataset.Metadata) Pass {
	features, err := meta.PolicyFeatures()
	if err != nil {
		return Pass{Error: err.Error()}
	}

	p := Pass{Entries: []Entry{}}
	for _, pf := range features {
		if pf.Type != kind.PolicyType() {
			continue
		}
		e := Entry{Key: pf.Key, Type: pf.Type, Shape: pf.Shape}
		fillDims(&e)
		if kind == Reward && len(pf.Shape) == 1 && pf.Shape[0] == 1 {
			e.Scalar = true
		}
		if kind == Visual && len(pf.Shape) == 3 {
			e.Layout = LayoutCHW
			e.Axes = e.Layout.Axes(pf.Shape)
			e.Elements = dataset.NumElements(pf.Shape)
		}
		p.Entries = append(p.Entries, e)
	}
	return p
}

func summarize(kind Kind, features dataset.Features) Summary {
	if kind == Visual {
		s := Summary{}
		features.Each(func(key string, ft dataset.Feature) {
			if !ft.IsVisual() {
				return
			}
			v := VisualSize{Key: key, Shape: ft.Shape}
			if len(ft.Shape) == 3 {
				v.Height, v.Width, v.Channels = ft.Shape[0], ft.Shape[1], ft.Shape[2]
			}
			s.Visuals = append(s.Visuals, v)
		})
		s.Found = len(s.Visuals) > 0
		return s
	}

	key := kind.PrimaryKey()
	s := Summary{Key: key}
	ft, ok := features.Get(key)
	if !ok {
		if kind == Reward {
			if _, ok := features.Get(dataset.KeyNextReward); ok {
				s.AltKey = dataset.KeyNextReward
			}
		}
		return s
	}

	s.Found = true
	s.DType = ft.DType
	s.Shape = ft.Shape
	s.Names = ft.Names.Values
	s.Scalar = len(ft.Shape) == 1 && ft.Shape[0] == 1
	return s
}

// fillDims sets Dim for rank-1 shapes and Elements for higher ranks.
func fillDims(e *Entry) {
	switch {
	case len(e.Shape) == 1:
		e.Dim = e.Shape[0]
	case len(e.Shape) > 1:
		e.Elements = dataset.NumElements(e.Shape)
	}
}
