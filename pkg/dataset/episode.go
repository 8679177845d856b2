package dataset

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"
)

// Tensor is one value of a frame as a training pipeline would see it.
type Tensor struct {
	Shape  []int     `json:"shape" yaml:"shape"`
	DType  string    `json:"dtype" yaml:"dtype"`
	Data   []float64 `json:"data,omitempty" yaml:"data,omitempty"`
	Text   string    `json:"text,omitempty" yaml:"text,omitempty"`
	Source string    `json:"source,omitempty" yaml:"source,omitempty"`
}

// NumElements returns the number of elements, 1 for a scalar.
func (t Tensor) NumElements() int { return NumElements(t.Shape) }

// Item returns the single element of a scalar or one-element tensor.
func (t Tensor) Item() (float64, bool) {
	if len(t.Data) != 1 {
		return 0, false
	}
	return t.Data[0], true
}

// Frame is one time step: the tensors keyed by feature, in column order.
type Frame struct {
	Keys   []string
	Values map[string]Tensor
}

// Get returns the tensor stored under key.
func (f Frame) Get(key string) (Tensor, bool) {
	t, ok := f.Values[key]
	return t, ok
}

func (f *Frame) set(key string, t Tensor) {
	if _, ok := f.Values[key]; !ok {
		f.Keys = append(f.Keys, key)
	}
	f.Values[key] = t
}

// Episode holds the frames of one episode.
type Episode struct {
	Index int
	meta  *Metadata
	rows  *table
}

// Len returns the number of frames.
func (e *Episode) Len() int { return e.rows.Len() }

// Columns returns the parquet column names.
func (e *Episode) Columns() []string { return e.rows.Names() }

// LoadEpisode reads the frames of one episode.
func (m *Metadata) LoadEpisode(ctx context.Context, index int) (*Episode, error) {
	if index < 0 || (m.Info.TotalEpisodes > 0 && index >= m.Info.TotalEpisodes) {
		return nil, fmt.Errorf("episode %d of %s: %w", index, m.RepoID, ErrEpisodeNotFound)
	}

	name, err := m.DataPath(index)
	if err != nil {
		return nil, err
	}
	path, err := m.source.Fetch(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("episode %d of %s: %w", index, m.RepoID, err)
	}

	var rows *table
	ep, listed := m.Episodes[index]
	switch {
	case !m.IsV3():
		rows, err = readTable(path, 0, -1)
	case listed && ep.Located:
		rows, err = m.readLocated(path, ep)
	default:
		rows, err = readEpisodeRows(path, index)
	}
	if err != nil {
		return nil, fmt.Errorf("episode %d of %s: %w", index, m.RepoID, err)
	}
	if rows.Len() == 0 {
		return nil, fmt.Errorf("episode %d of %s: no frames in %s: %w", index, m.RepoID, name, ErrEpisodeNotFound)
	}

	m.log.Debug("loaded episode",
		zap.String("repo", m.RepoID),
		zap.Int("episode", index),
		zap.String("file", name),
		zap.Int("frames", rows.Len()))
	return &Episode{Index: index, meta: m, rows: rows}, nil
}

// readLocated reads the [from, to) window of a v3 data file. The listed
// indexes are global, so the file's first global index is subtracted.
func (m *Metadata) readLocated(path string, ep EpisodeInfo) (*table, error) {
	first := ep.FromIndex
	for _, other := range m.Episodes {
		if other.Located && other.DataChunk == ep.DataChunk && other.DataFile == ep.DataFile && other.FromIndex < first {
			first = other.FromIndex
		}
	}
	return readTable(path, int64(ep.FromIndex-first), int64(ep.ToIndex-ep.FromIndex))
}

// readEpisodeRows scans a data file for the rows of one episode.
func readEpisodeRows(path string, index int) (*table, error) {
	all, err := readTable(path, 0, -1)
	if err != nil {
		return nil, err
	}
	kept := all.rows[:0:0]
	for row := 0; row < all.Len(); row++ {
		if v, ok := all.intAt(row, "episode_index"); ok && int(v) == index {
			kept = append(kept, all.rows[row])
		}
	}
	all.rows = kept
	return all, nil
}

// DataPath returns the data file of an episode relative to the dataset root.
func (m *Metadata) DataPath(index int) (string, error) {
	tmpl := m.Info.DataPath
	if !m.IsV3() {
		if tmpl == "" {
			tmpl = DefaultDataPathV2
		}
		return FormatPath(tmpl, map[string]any{
			"episode_chunk": index / m.Info.ChunksSize,
			"episode_index": index,
		})
	}

	if tmpl == "" {
		tmpl = DefaultDataPathV3
	}
	chunk, file := 0, 0
	if ep, ok := m.Episodes[index]; ok && ep.Located {
		chunk, file = ep.DataChunk, ep.DataFile
	}
	return FormatPath(tmpl, map[string]any{"chunk_index": chunk, "file_index": file})
}

// VideoPath returns the video file of a camera for an episode.
func (m *Metadata) VideoPath(index int, videoKey string) (string, error) {
	tmpl := m.Info.VideoPath
	if !m.IsV3() {
		if tmpl == "" {
			tmpl = DefaultVideoPathV2
		}
		return FormatPath(tmpl, map[string]any{
			"episode_chunk": index / m.Info.ChunksSize,
			"episode_index": index,
			"video_key":     videoKey,
		})
	}

	if tmpl == "" {
		tmpl = DefaultVideoPathV3
	}
	// v3 keeps per-camera file positions in the episode listing; without them
	// the first file is the best guess.
	return FormatPath(tmpl, map[string]any{"video_key": videoKey, "chunk_index": 0, "file_index": 0})
}

// Frame materializes frame i of the episode. Video features, which are not
// stored in parquet, are described from metadata without decoding.
func (e *Episode) Frame(i int) (Frame, error) {
	if i < 0 || i >= e.rows.Len() {
		return Frame{}, fmt.Errorf("frame %d outside episode %d (%d frames)", i, e.Index, e.rows.Len())
	}

	fr := Frame{Values: make(map[string]Tensor)}
	for _, name := range e.rows.Names() {
		col, values, _ := e.rows.cell(i, name)
		ft, _ := e.meta.Info.Features.Get(name)

		var (
			t   Tensor
			err error
		)
		if ft.DType == DTypeImage {
			t, err = imageTensor(col, values, ft)
		} else {
			t = valueTensor(col, values, ft)
		}
		if err != nil {
			return Frame{}, fmt.Errorf("frame %d, %s: %w", i, name, err)
		}
		fr.set(name, t)
	}

	for _, key := range e.meta.VideoKeys() {
		ft, _ := e.meta.Info.Features.Get(key)
		fr.set(key, Tensor{
			Shape:  channelFirst(ft),
			DType:  "float32",
			Source: "video (not decoded)",
		})
	}

	if idx, ok := e.rows.intAt(i, "task_index"); ok {
		if task, ok := e.meta.Tasks[int(idx)]; ok {
			fr.set("task", Tensor{DType: "string", Text: task})
		}
	}
	return fr, nil
}

// valueTensor turns a numeric or text column into a tensor. List columns get
// shape [n], or the metadata shape when it holds exactly n elements.
func valueTensor(col column, values [][]parquet.Value, ft Feature) Tensor {
	if len(col.leaves) == 0 {
		return Tensor{}
	}
	lf := col.leaves[0]
	vals := values[0]

	if lf.kind == parquet.ByteArray || lf.kind == parquet.FixedLenByteArray {
		t := Tensor{DType: "string"}
		if len(vals) > 0 {
			t.Text = string(vals[0].ByteArray())
		}
		return t
	}

	t := Tensor{DType: kindDType(lf.kind), Data: make([]float64, len(vals))}
	for j, v := range vals {
		t.Data[j] = numeric(v)
	}
	if lf.repeated {
		t.Shape = []int{len(vals)}
		if len(ft.Shape) > 1 && NumElements(ft.Shape) == len(vals) {
			t.Shape = append([]int(nil), ft.Shape...)
		}
	} else {
		t.Shape = []int{}
	}
	return t
}

// imageTensor decodes the embedded image header to report [C, H, W].
func imageTensor(col column, values [][]parquet.Value, ft Feature) (Tensor, error) {
	t := Tensor{DType: "float32", Source: "image"}
	var raw []byte
	for j, lf := range col.leaves {
		if len(lf.path) > 0 && lf.path[len(lf.path)-1] == "bytes" && len(values[j]) > 0 {
			raw = values[j][0].ByteArray()
		}
	}
	if len(raw) == 0 {
		t.Shape = channelFirst(ft)
		t.Source = "image (no embedded bytes)"
		return t, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Tensor{}, fmt.Errorf("decode image header: %w", err)
	}
	t.Shape = []int{channels(cfg.ColorModel), cfg.Height, cfg.Width}
	t.Source = "image/" + format
	return t, nil
}

// channels is 1 for grayscale; everything else is converted to RGB.
func channels(m color.Model) int {
	if m == color.GrayModel || m == color.Gray16Model {
		return 1
	}
	return 3
}

// channelFirst turns an (h, w, c) feature shape into (c, h, w).
func channelFirst(ft Feature) []int {
	s := ft.Shape
	if len(s) != 3 {
		return append([]int(nil), s...)
	}
	if n := ft.Names.Values; len(n) == 3 && (n[0] == "channel" || n[0] == "channels") {
		return append([]int(nil), s...)
	}
	return []int{s[2], s[0], s[1]}
}
