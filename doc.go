// Package lerobot inspects HuggingFace LeRobot datasets and replays their
// episodes on SO-101 robot arms.
//
// Datasets are read from a local dataset root or downloaded from the Hub
// into the LeRobot cache. Both the v2.x (one parquet file per episode) and
// v3.0 (many episodes per file) layouts are supported.
//
// # Installation
//
//	go install github.com/gwillem/lerobot-inspect/cmd/lerobot@latest
//
// # Usage
//
// Print the shapes of one feature family, found three ways: in info.json,
// in the first frame of an episode, and as policy features:
//
//	lerobot action lerobot/pusht
//	lerobot reward lerobot/pusht
//	lerobot state lerobot/aloha_sim_insertion_human
//	lerobot visual lerobot/pusht --output yaml
//
// Get an overview of a dataset:
//
//	lerobot quickstart --list
//
// Replay an episode on the follower arm, or plot it with --preview:
//
//	lerobot setup
//	lerobot replay user/so101_pick --episode 3
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/lerobot: CLI with the inspection, quickstart, setup and replay commands
//   - pkg/dataset: Dataset metadata, features, policy features and episode frames
//   - pkg/hub: Hugging Face Hub downloads with caching and retries
//   - pkg/inspect: The action, reward, state and visual reports
//   - pkg/robot: Arm control, calibration, and configuration
//   - pkg/replay: Episode replay controller
package lerobot
