package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EpisodeInfo describes one episode as listed in the episodes metadata.
type EpisodeInfo struct {
	Index  int      `json:"episode_index"`
	Length int      `json:"length"`
	Tasks  []string `json:"tasks"`

	// Set for v3 datasets, where data files hold several episodes.
	DataChunk int  `json:"-"`
	DataFile  int  `json:"-"`
	FromIndex int  `json:"-"`
	ToIndex   int  `json:"-"`
	Located   bool `json:"-"`
}

// Metadata is everything under meta/ that the inspections need.
type Metadata struct {
	RepoID   string
	Info     Info
	Tasks    map[int]string
	Episodes map[int]EpisodeInfo

	source Source
	log    *zap.Logger
}

// LoadOption configures LoadMetadata.
type LoadOption func(*Metadata)

// WithLogger sets the logger used while loading metadata and episodes.
func WithLogger(log *zap.Logger) LoadOption {
	return func(m *Metadata) {
		if log != nil {
			m.log = log
		}
	}
}

// LoadMetadata reads info.json, then the task and episode listings.
// Missing listings are tolerated; a missing info.json is not.
func LoadMetadata(ctx context.Context, repoID string, src Source, opts ...LoadOption) (*Metadata, error) {
	m := &Metadata{
		RepoID:   repoID,
		Tasks:    make(map[int]string),
		Episodes: make(map[int]EpisodeInfo),
		source:   src,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	path, err := src.Fetch(ctx, InfoPath)
	if err != nil {
		return nil, fmt.Errorf("load %s metadata: %w", repoID, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s metadata: %w", repoID, err)
	}
	if m.Info, err = ParseInfo(data); err != nil {
		return nil, fmt.Errorf("load %s metadata: %w", repoID, err)
	}
	if m.Info.MajorVersion() < 2 {
		return nil, fmt.Errorf("%s is %q: %w (need v2.0 or later)", repoID, m.Info.CodebaseVersion, ErrUnsupportedVersion)
	}

	m.log.Debug("loaded info",
		zap.String("repo", repoID),
		zap.String("version", m.Info.CodebaseVersion),
		zap.Int("episodes", m.Info.TotalEpisodes),
		zap.Int("features", m.Info.Features.Len()))

	var (
		tasks    map[int]string
		episodes map[int]EpisodeInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = m.loadTasks(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		episodes, err = m.loadEpisodes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load %s metadata: %w", repoID, err)
	}
	if tasks != nil {
		m.Tasks = tasks
	}
	if episodes != nil {
		m.Episodes = episodes
	}
	return m, nil
}

// IsV3 reports whether the dataset uses the v3 multi-episode file layout.
func (m *Metadata) IsV3() bool { return m.Info.MajorVersion() >= 3 }

// Features returns the features mapping.
func (m *Metadata) Features() Features { return m.Info.Features }

// CameraKeys returns the keys of image and video features in declaration order.
func (m *Metadata) CameraKeys() []string {
	return m.keysWhere(func(f Feature) bool { return f.IsVisual() })
}

// VideoKeys returns the keys of features stored as video files.
func (m *Metadata) VideoKeys() []string {
	return m.keysWhere(func(f Feature) bool { return f.DType == DTypeVideo })
}

// ImageKeys returns the keys of features stored as images inside the parquet files.
func (m *Metadata) ImageKeys() []string {
	return m.keysWhere(func(f Feature) bool { return f.DType == DTypeImage })
}

func (m *Metadata) keysWhere(pred func(Feature) bool) []string {
	var keys []string
	m.Info.Features.Each(func(key string, ft Feature) {
		if pred(ft) {
			keys = append(keys, key)
		}
	})
	return keys
}

// AverageEpisodeLength returns total frames divided by total episodes.
func (m *Metadata) AverageEpisodeLength() float64 {
	if m.Info.TotalEpisodes == 0 {
		return 0
	}
	return float64(m.Info.TotalFrames) / float64(m.Info.TotalEpisodes)
}

// EpisodeIndexes returns the known episode indexes in ascending order.
func (m *Metadata) EpisodeIndexes() []int {
	idx := make([]int, 0, len(m.Episodes))
	for i := range m.Episodes {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// PolicyFeatures returns the policy view of the dataset features.
func (m *Metadata) PolicyFeatures() ([]PolicyFeature, error) {
	return PolicyFeatures(m.Info.Features)
}

func (m *Metadata) loadTasks(ctx context.Context) (map[int]string, error) {
	if m.IsV3() {
		return m.loadTasksParquet(ctx)
	}

	tasks := make(map[int]string)
	err := m.readJSONL(ctx, TasksPathV2, func(line []byte) error {
		var rec struct {
			Index int    `json:"task_index"`
			Task  string `json:"task"`
		}
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		tasks[rec.Index] = rec.Task
		return nil
	})
	if errors.Is(err, ErrNotExist) {
		m.log.Debug("no task listing", zap.String("file", TasksPathV2))
		return nil, nil
	}
	return tasks, err
}

func (m *Metadata) loadTasksParquet(ctx context.Context) (map[int]string, error) {
	path, err := m.source.Fetch(ctx, TasksPathV3)
	if errors.Is(err, ErrNotExist) {
		m.log.Debug("no task listing", zap.String("file", TasksPathV3))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := readTable(path, 0, -1)
	if err != nil {
		return nil, err
	}

	tasks := make(map[int]string, t.Len())
	for row := 0; row < t.Len(); row++ {
		idx, ok := t.intAt(row, "task_index")
		if !ok {
			continue
		}
		// The task text is the pandas index column unless written explicitly.
		text, ok := t.stringAt(row, "task")
		if !ok {
			text, _ = t.stringAt(row, "__index_level_0__")
		}
		tasks[int(idx)] = text
	}
	return tasks, nil
}

func (m *Metadata) loadEpisodes(ctx context.Context) (map[int]EpisodeInfo, error) {
	if m.IsV3() {
		return m.loadEpisodesParquet(ctx)
	}

	episodes := make(map[int]EpisodeInfo)
	err := m.readJSONL(ctx, EpisodesPathV2, func(line []byte) error {
		var ep EpisodeInfo
		if err := json.Unmarshal(line, &ep); err != nil {
			return err
		}
		episodes[ep.Index] = ep
		return nil
	})
	if errors.Is(err, ErrNotExist) {
		m.log.Debug("no episode listing", zap.String("file", EpisodesPathV2))
		return nil, nil
	}
	return episodes, err
}

// loadEpisodesParquet walks meta/episodes/chunk-*/file-*.parquet in order
// until a file is missing or every episode has been seen.
func (m *Metadata) loadEpisodesParquet(ctx context.Context) (map[int]EpisodeInfo, error) {
	episodes := make(map[int]EpisodeInfo)
	chunk, file := 0, 0
	for m.Info.TotalEpisodes == 0 || len(episodes) < m.Info.TotalEpisodes {
		name, err := FormatPath(EpisodesPathV3, map[string]any{"chunk_index": chunk, "file_index": file})
		if err != nil {
			return nil, err
		}
		path, err := m.source.Fetch(ctx, name)
		if errors.Is(err, ErrNotExist) {
			if len(episodes) == 0 {
				m.log.Debug("no episode listing", zap.String("file", name))
				return nil, nil
			}
			break
		}
		if err != nil {
			return nil, err
		}

		t, err := readTable(path, 0, -1)
		if err != nil {
			return nil, err
		}
		for row := 0; row < t.Len(); row++ {
			ep := episodeFromRow(t, row)
			episodes[ep.Index] = ep
		}

		file++
		if file >= m.Info.ChunksSize {
			chunk, file = chunk+1, 0
		}
	}
	return episodes, nil
}

func episodeFromRow(t *table, row int) EpisodeInfo {
	get := func(name string) int {
		v, _ := t.intAt(row, name)
		return int(v)
	}
	ep := EpisodeInfo{
		Index:     get("episode_index"),
		Length:    get("length"),
		DataChunk: get("data/chunk_index"),
		DataFile:  get("data/file_index"),
		FromIndex: get("dataset_from_index"),
		ToIndex:   get("dataset_to_index"),
	}
	_, hasFrom := t.intAt(row, "dataset_from_index")
	_, hasFile := t.intAt(row, "data/file_index")
	ep.Located = hasFrom && hasFile

	if _, values, ok := t.cell(row, "tasks"); ok {
		for _, leafValues := range values {
			for _, v := range leafValues {
				ep.Tasks = append(ep.Tasks, string(v.ByteArray()))
			}
		}
	}
	return ep
}

func (m *Metadata) readJSONL(ctx context.Context, name string, fn func([]byte) error) error {
	path, err := m.source.Fetch(ctx, name)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		if err := fn(sc.Bytes()); err != nil {
			return fmt.Errorf("%s:%d: %w", name, line, err)
		}
	}
	return sc.Err()
}
