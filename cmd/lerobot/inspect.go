package main

import (
	"context"
	"os"

	"github.com/gwillem/lerobot-inspect/pkg/inspect"
)

type repoArgs struct {
	RepoID string `positional-arg-name:"repo_id" description:"Dataset repo, e.g. lerobot/pusht"`
}

type inspectOptions struct {
	Episode int      `short:"e" long:"episode" default:"0" description:"Episode to sample"`
	Args    repoArgs `positional-args:"yes" required:"yes"`
}

type (
	ActionCommand inspectOptions
	RewardCommand inspectOptions
	StateCommand  inspectOptions
	VisualCommand inspectOptions
)

func (c *ActionCommand) Execute(args []string) error {
	return runInspect(inspect.Action, inspectOptions(*c))
}

func (c *RewardCommand) Execute(args []string) error {
	return runInspect(inspect.Reward, inspectOptions(*c))
}

func (c *StateCommand) Execute(args []string) error {
	return runInspect(inspect.State, inspectOptions(*c))
}

func (c *VisualCommand) Execute(args []string) error {
	return runInspect(inspect.Visual, inspectOptions(*c))
}

func runInspect(kind inspect.Kind, o inspectOptions) error {
	format, err := inspect.ParseFormat(opts.Output)
	if err != nil {
		return err
	}

	log := newLogger()
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	meta, err := loadMetadata(ctx, o.Args.RepoID, log)
	if err != nil {
		fail("Error: %v", err)
	}

	report := inspect.Build(ctx, kind, meta, o.Episode)
	return inspect.Write(os.Stdout, report, format)
}
