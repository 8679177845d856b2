// Package datasettest writes small LeRobot datasets to disk for tests.
package datasettest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

// Motors are the joint names of the SO-101 arm as they appear in datasets.
var Motors = []string{
	"shoulder_pan.pos",
	"shoulder_lift.pos",
	"elbow_flex.pos",
	"wrist_flex.pos",
	"wrist_roll.pos",
	"gripper.pos",
}

// Image is the parquet layout of an embedded image feature.
type Image struct {
	Bytes []byte `parquet:"bytes"`
	Path  string `parquet:"path"`
}

// PushTFrame is one row of the v2.1 PushT-style fixture.
type PushTFrame struct {
	Image        Image     `parquet:"observation.image"`
	State        []float32 `parquet:"observation.state,list"`
	Action       []float32 `parquet:"action,list"`
	EpisodeIndex int64     `parquet:"episode_index"`
	FrameIndex   int64     `parquet:"frame_index"`
	Timestamp    float32   `parquet:"timestamp"`
	Reward       float32   `parquet:"next.reward"`
	Done         bool      `parquet:"next.done"`
	Index        int64     `parquet:"index"`
	TaskIndex    int64     `parquet:"task_index"`
}

// ArmFrame is one row of the v3.0 SO-101-style fixture.
type ArmFrame struct {
	Action       []float32 `parquet:"action,list"`
	State        []float32 `parquet:"observation.state,list"`
	Timestamp    float32   `parquet:"timestamp"`
	FrameIndex   int64     `parquet:"frame_index"`
	EpisodeIndex int64     `parquet:"episode_index"`
	Index        int64     `parquet:"index"`
	TaskIndex    int64     `parquet:"task_index"`
}

type episodeRow struct {
	EpisodeIndex int64    `parquet:"episode_index"`
	Tasks        []string `parquet:"tasks,list"`
	Length       int64    `parquet:"length"`
	DataChunk    int64    `parquet:"data/chunk_index"`
	DataFile     int64    `parquet:"data/file_index"`
	From         int64    `parquet:"dataset_from_index"`
	To           int64    `parquet:"dataset_to_index"`
}

type taskRow struct {
	TaskIndex int64  `parquet:"task_index"`
	Task      string `parquet:"__index_level_0__"`
}

// PushT layout constants.
const (
	PushTEpisodes = 2
	PushTFrames   = 4
	PushTTask     = "Push the T-shaped block onto the T-shaped target."
	ImageSize     = 96
)

// WritePushT writes a v2.1 dataset with an embedded image, a 2-D state and
// action, and a scalar reward. Episode e, frame f has reward e*10+f and
// action {f, -f}.
func WritePushT(t testing.TB, root string) {
	t.Helper()

	writeFile(t, root, "meta/info.json", fmt.Sprintf(pushTInfo, PushTEpisodes, PushTEpisodes*PushTFrames))
	writeFile(t, root, "meta/tasks.jsonl", fmt.Sprintf(`{"task_index": 0, "task": %q}`+"\n", PushTTask))

	var episodes bytes.Buffer
	for e := 0; e < PushTEpisodes; e++ {
		fmt.Fprintf(&episodes, `{"episode_index": %d, "tasks": [%q], "length": %d}`+"\n", e, PushTTask, PushTFrames)
	}
	writeFile(t, root, "meta/episodes.jsonl", episodes.String())

	img := encodePNG(t, ImageSize, ImageSize)
	for e := 0; e < PushTEpisodes; e++ {
		frames := make([]PushTFrame, PushTFrames)
		for f := range frames {
			frames[f] = PushTFrame{
				Image:        Image{Bytes: img, Path: fmt.Sprintf("frame_%06d.png", f)},
				State:        []float32{float32(f), float32(f) + 0.5},
				Action:       []float32{float32(f), -float32(f)},
				EpisodeIndex: int64(e),
				FrameIndex:   int64(f),
				Timestamp:    float32(f) / 10,
				Reward:       float32(e*10 + f),
				Done:         f == PushTFrames-1,
				Index:        int64(e*PushTFrames + f),
			}
		}
		writeParquet(t, root, fmt.Sprintf("data/chunk-000/episode_%06d.parquet", e), frames)
	}
}

// SO-101 layout constants.
const (
	ArmEpisodes = 3
	ArmFrames   = 5
	ArmTask     = "Pick up the cube."
)

// WriteArm writes a v3.0 dataset of an SO-101 arm: one data file holding
// every episode, a video camera, and no reward. Episode e, frame f has
// action[j] = e*100 + f*10 + j.
func WriteArm(t testing.TB, root string) {
	t.Helper()

	writeFile(t, root, "meta/info.json", fmt.Sprintf(armInfo, ArmEpisodes, ArmEpisodes*ArmFrames))
	writeParquet(t, root, "meta/tasks.parquet", []taskRow{{TaskIndex: 0, Task: ArmTask}})

	var (
		episodes []episodeRow
		frames   []ArmFrame
	)
	for e := 0; e < ArmEpisodes; e++ {
		episodes = append(episodes, episodeRow{
			EpisodeIndex: int64(e),
			Tasks:        []string{ArmTask},
			Length:       ArmFrames,
			From:         int64(e * ArmFrames),
			To:           int64((e + 1) * ArmFrames),
		})
		for f := 0; f < ArmFrames; f++ {
			action := make([]float32, len(Motors))
			state := make([]float32, len(Motors))
			for j := range action {
				action[j] = float32(e*100 + f*10 + j)
				state[j] = action[j] - 1
			}
			frames = append(frames, ArmFrame{
				Action:       action,
				State:        state,
				Timestamp:    float32(f) / 30,
				FrameIndex:   int64(f),
				EpisodeIndex: int64(e),
				Index:        int64(e*ArmFrames + f),
			})
		}
	}
	writeParquet(t, root, "meta/episodes/chunk-000/file-000.parquet", episodes)
	writeParquet(t, root, "data/chunk-000/file-000.parquet", frames)
}

// WriteInfo writes only meta/info.json.
func WriteInfo(t testing.TB, root, info string) {
	t.Helper()
	writeFile(t, root, "meta/info.json", info)
}

func writeFile(t testing.TB, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func writeParquet[T any](t testing.TB, root, name string, rows []T) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func encodePNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

const pushTInfo = `{
  "codebase_version": "v2.1",
  "robot_type": "unknown",
  "total_episodes": %d,
  "total_frames": %d,
  "total_tasks": 1,
  "total_videos": 0,
  "total_chunks": 1,
  "chunks_size": 1000,
  "fps": 10,
  "splits": {"train": "0:2"},
  "data_path": "data/chunk-{episode_chunk:03d}/episode_{episode_index:06d}.parquet",
  "video_path": null,
  "features": {
    "observation.image": {"dtype": "image", "shape": [96, 96, 3], "names": ["height", "width", "channel"]},
    "observation.state": {"dtype": "float32", "shape": [2], "names": {"motors": ["motor_0", "motor_1"]}},
    "action": {"dtype": "float32", "shape": [2], "names": {"motors": ["motor_0", "motor_1"]}},
    "episode_index": {"dtype": "int64", "shape": [1], "names": null},
    "frame_index": {"dtype": "int64", "shape": [1], "names": null},
    "timestamp": {"dtype": "float32", "shape": [1], "names": null},
    "next.reward": {"dtype": "float32", "shape": [1], "names": null},
    "next.done": {"dtype": "bool", "shape": [1], "names": null},
    "index": {"dtype": "int64", "shape": [1], "names": null},
    "task_index": {"dtype": "int64", "shape": [1], "names": null}
  }
}`

const armInfo = `{
  "codebase_version": "v3.0",
  "robot_type": "so101_follower",
  "total_episodes": %d,
  "total_frames": %d,
  "total_tasks": 1,
  "chunks_size": 1000,
  "data_files_size_in_mb": 100,
  "video_files_size_in_mb": 500,
  "fps": 30,
  "splits": {"train": "0:3"},
  "data_path": "data/chunk-{chunk_index:03d}/file-{file_index:03d}.parquet",
  "video_path": "videos/{video_key}/chunk-{chunk_index:03d}/file-{file_index:03d}.mp4",
  "features": {
    "action": {"dtype": "float32", "shape": [6], "names": ["shoulder_pan.pos", "shoulder_lift.pos", "elbow_flex.pos", "wrist_flex.pos", "wrist_roll.pos", "gripper.pos"]},
    "observation.state": {"dtype": "float32", "shape": [6], "names": ["shoulder_pan.pos", "shoulder_lift.pos", "elbow_flex.pos", "wrist_flex.pos", "wrist_roll.pos", "gripper.pos"]},
    "observation.images.front": {
      "dtype": "video",
      "shape": [480, 640, 3],
      "names": ["height", "width", "channels"],
      "info": {"video.height": 480, "video.width": 640, "video.codec": "av1", "video.pix_fmt": "yuv420p", "video.fps": 30, "video.channels": 3, "has_audio": false}
    },
    "timestamp": {"dtype": "float32", "shape": [1], "names": null},
    "frame_index": {"dtype": "int64", "shape": [1], "names": null},
    "episode_index": {"dtype": "int64", "shape": [1], "names": null},
    "index": {"dtype": "int64", "shape": [1], "names": null},
    "task_index": {"dtype": "int64", "shape": [1], "names": null}
  }
}`
