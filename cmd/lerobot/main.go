package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Root     string `long:"root" description:"Read the dataset from this local directory instead of the Hub"`
	Revision string `long:"revision" default:"main" description:"Hub revision (branch, tag or commit) to download"`
	CacheDir string `long:"cache-dir" env:"HF_LEROBOT_HOME" description:"Download cache (default ~/.cache/huggingface/lerobot)"`
	Endpoint string `long:"endpoint" env:"HF_ENDPOINT" default:"https://huggingface.co" description:"Hugging Face Hub endpoint"`
	Token    string `long:"token" env:"HF_TOKEN" description:"Hugging Face access token for private datasets"`
	Offline  bool   `long:"offline" description:"Only use files already in the cache"`
	Verbose  bool   `short:"v" long:"verbose" description:"Log downloads and progress to stderr"`
	Output   string `short:"o" long:"output" default:"text" choice:"text" choice:"yaml" choice:"json" description:"Report format"`

	Action     ActionCommand     `command:"action" description:"Inspect the action features of a dataset"`
	Reward     RewardCommand     `command:"reward" description:"Inspect the reward features of a dataset"`
	State      StateCommand      `command:"state" description:"Inspect the state features of a dataset"`
	Visual     VisualCommand     `command:"visual" alias:"images" description:"Inspect the camera features of a dataset"`
	Quickstart QuickstartCommand `command:"quickstart" description:"Load a dataset and print an overview"`
	Datasets   DatasetsCommand   `command:"datasets" description:"List datasets published on the Hub"`
	Replay     ReplayCommand     `command:"replay" description:"Play the actions of an episode on the follower arm"`
	Setup      SetupCommand      `command:"setup" description:"Find the follower arm and save its configuration"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "LeRobot - inspect LeRobot datasets and replay them on SO-101 arms"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
