package dataset

import (
	"fmt"
	"regexp"
	"strconv"
)

// DefaultChunksSize is the number of episodes (v2) or files (v3) per chunk
// directory when info.json does not say otherwise.
const DefaultChunksSize = 1000

// Metadata file locations relative to the dataset root.
const (
	InfoPath       = "meta/info.json"
	TasksPathV2    = "meta/tasks.jsonl"
	EpisodesPathV2 = "meta/episodes.jsonl"
	TasksPathV3    = "meta/tasks.parquet"
	EpisodesPathV3 = "meta/episodes/chunk-{chunk_index:03d}/file-{file_index:03d}.parquet"
)

// Path templates used when info.json leaves them empty.
const (
	DefaultDataPathV2  = "data/chunk-{episode_chunk:03d}/episode_{episode_index:06d}.parquet"
	DefaultVideoPathV2 = "videos/chunk-{episode_chunk:03d}/{video_key}/episode_{episode_index:06d}.mp4"
	DefaultDataPathV3  = "data/chunk-{chunk_index:03d}/file-{file_index:03d}.parquet"
	DefaultVideoPathV3 = "videos/{video_key}/chunk-{chunk_index:03d}/file-{file_index:03d}.mp4"
)

var placeholder = regexp.MustCompile(`\{(\w+)(?::0?(\d+)d)?\}`)

// FormatPath expands {name} and {name:0Nd} placeholders of a path template.
func FormatPath(template string, values map[string]any) (string, error) {
	var missing string
	out := placeholder.ReplaceAllStringFunc(template, func(m string) string {
		parts := placeholder.FindStringSubmatch(m)
		v, ok := values[parts[1]]
		if !ok {
			if missing == "" {
				missing = parts[1]
			}
			return m
		}
		if parts[2] == "" {
			return fmt.Sprint(v)
		}
		width, _ := strconv.Atoi(parts[2])
		return fmt.Sprintf("%0*d", width, v)
	})
	if missing != "" {
		return "", fmt.Errorf("path template %q: no value for %q", template, missing)
	}
	return out, nil
}
