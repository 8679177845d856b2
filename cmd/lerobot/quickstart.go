package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/gwillem/lerobot-inspect/pkg/dataset"
	"github.com/gwillem/lerobot-inspect/pkg/hub"
)

const (
	defaultRepoID  = "lerobot/pusht"
	defaultAuthor  = "lerobot"
	listedDatasets = 10
	shownFeatures  = 5
)

type QuickstartCommand struct {
	List bool `long:"list" description:"First list datasets published by the lerobot organization"`
	Pick bool `long:"pick" description:"Choose the dataset from the Hub listing (terminal only)"`
	Args struct {
		RepoID string `positional-arg-name:"repo_id" description:"Dataset repo (default lerobot/pusht)"`
	} `positional-args:"yes"`
}

func (c *QuickstartCommand) Execute(args []string) error {
	log := newLogger()
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	fmt.Println(headerStyle.Render("LeRobot Quick Start"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	var listed []string
	if c.List || c.Pick {
		ids, err := newHubClient(log).ListDatasets(ctx, defaultAuthor, listedDatasets)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Could not list datasets: %v", err)))
		} else {
			listed = ids
			if c.List {
				printDatasets(ids)
			}
		}
	}

	repoID := c.Args.RepoID
	if repoID == "" {
		repoID = defaultRepoID
	}
	if c.Pick && len(listed) > 0 {
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			fmt.Println(dimStyle.Render("Not a terminal, using " + repoID))
		} else {
			picked, err := pickDataset(listed, repoID)
			if err != nil {
				fmt.Println()
				os.Exit(0)
			}
			repoID = picked
		}
	}

	if err := quickstart(ctx, repoID, log); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Likely causes:")
		for _, cause := range likelyCauses(err) {
			fmt.Fprintln(os.Stderr, "  - "+cause)
		}
		os.Exit(1)
	}
	return nil
}

func printDatasets(ids []string) {
	fmt.Println(subHeaderStyle.Render(fmt.Sprintf("━━━ Datasets by %s ━━━", defaultAuthor)))
	for i, id := range ids {
		fmt.Printf("  %2d. %s\n", i+1, id)
	}
	fmt.Println()
}

func pickDataset(ids []string, current string) (string, error) {
	options := make([]huh.Option[string], 0, len(ids))
	for _, id := range ids {
		options = append(options, huh.NewOption(id, id))
	}

	choice := current
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which dataset do you want to load?").
				Description(fmt.Sprintf("First %d datasets by %s", len(ids), defaultAuthor)).
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}

func quickstart(ctx context.Context, repoID string, log *zap.Logger) error {
	fmt.Printf("Loading %s...\n\n", headerStyle.Render(repoID))

	meta, err := loadMetadata(ctx, repoID, log)
	if err != nil {
		return err
	}

	fmt.Println(subHeaderStyle.Render("━━━ Dataset ━━━"))
	fmt.Printf("  Total episodes:   %s\n", humanize.Comma(int64(meta.Info.TotalEpisodes)))
	fmt.Printf("  Total frames:     %s\n", humanize.Comma(int64(meta.Info.TotalFrames)))
	fmt.Printf("  Frames / episode: %.1f\n", meta.AverageEpisodeLength())
	fmt.Printf("  FPS:              %g\n", meta.Info.FPS)
	fmt.Printf("  Robot type:       %s\n", orNone(meta.Info.RobotType))
	fmt.Printf("  Codebase version: %s\n", meta.Info.CodebaseVersion)
	fmt.Printf("  Cameras:          %s\n", orNone(strings.Join(meta.CameraKeys(), ", ")))
	fmt.Println()

	fmt.Println(subHeaderStyle.Render(fmt.Sprintf("━━━ Features (first %d of %d) ━━━", min(shownFeatures, meta.Features().Len()), meta.Features().Len())))
	for i, key := range meta.Features().Keys() {
		if i == shownFeatures {
			break
		}
		ft, _ := meta.Features().Get(key)
		fmt.Printf("  %-28s %-8s %s\n", key, ft.DType, dataset.FormatShape(ft.Shape))
	}
	fmt.Println()

	ep, err := meta.LoadEpisode(ctx, 0)
	if err != nil {
		return err
	}
	fmt.Println(subHeaderStyle.Render("━━━ Episode 0 ━━━"))
	fmt.Printf("  Loaded episodes: 1 of %s\n", humanize.Comma(int64(meta.Info.TotalEpisodes)))
	fmt.Printf("  Loaded frames:   %s\n", humanize.Comma(int64(ep.Len())))
	fmt.Println()

	fr, err := ep.Frame(0)
	if err != nil {
		return err
	}
	fmt.Println(subHeaderStyle.Render("━━━ First frame ━━━"))
	for _, key := range fr.Keys {
		t, _ := fr.Get(key)
		if t.DType == "string" {
			fmt.Printf("  %-28s %-8s %q\n", key, t.DType, t.Text)
			continue
		}
		fmt.Printf("  %-28s %-8s %s\n", key, t.DType, dataset.FormatShape(t.Shape))
	}
	fmt.Println()
	fmt.Println(successStyle.Render("Dataset loaded."))
	return nil
}

// likelyCauses turns a load failure into hints for the user.
func likelyCauses(err error) []string {
	switch {
	case errors.Is(err, hub.ErrOffline):
		return []string{"the dataset is not cached yet; run once without --offline"}
	case errors.Is(err, dataset.ErrNotExist), errors.Is(err, hub.ErrNotFound):
		return []string{
			"the dataset id is misspelled or the dataset does not exist",
			"the dataset is private or gated; set HF_TOKEN",
		}
	case errors.Is(err, dataset.ErrUnsupportedVersion):
		return []string{"the dataset uses a LeRobot format older than v2.0"}
	}
	var httpErr *hub.HTTPError
	if errors.As(err, &httpErr) && (httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden) {
		return []string{"you are not logged in or lack access; set HF_TOKEN"}
	}
	return []string{
		"no network connection or the Hub is unreachable",
		"the dataset does not exist",
		"the dataset requires logging in; set HF_TOKEN",
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
