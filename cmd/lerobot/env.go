package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/gwillem/lerobot-inspect/pkg/dataset"
	"github.com/gwillem/lerobot-inspect/pkg/hub"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// newLogger is silent unless --verbose is set.
func newLogger() *zap.Logger {
	if !opts.Verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func newHubClient(log *zap.Logger) *hub.Client {
	hubOpts := []hub.Option{
		hub.WithEndpoint(opts.Endpoint),
		hub.WithToken(opts.Token),
		hub.WithRevision(opts.Revision),
		hub.WithCacheDir(opts.CacheDir),
		hub.WithOffline(opts.Offline),
		hub.WithLogger(log),
	}
	if opts.Verbose {
		hubOpts = append(hubOpts, hub.WithProgress(os.Stderr))
	}
	return hub.NewClient(hubOpts...)
}

// newSource reads from --root when given, otherwise from the Hub.
func newSource(repoID string, log *zap.Logger) dataset.Source {
	if opts.Root != "" {
		return dataset.LocalSource{Root: opts.Root}
	}
	return dataset.HubSource{Client: newHubClient(log), RepoID: repoID}
}

func loadMetadata(ctx context.Context, repoID string, log *zap.Logger) (*dataset.Metadata, error) {
	log.Debug("loading metadata", zap.String("repo_id", repoID), zap.String("root", opts.Root))
	meta, err := dataset.LoadMetadata(ctx, repoID, newSource(repoID, log), dataset.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", repoID, err)
	}
	return meta, nil
}

func fail(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, args...)))
	os.Exit(1)
}
