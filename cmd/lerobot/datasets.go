package main

import (
	"context"
	"fmt"
)

type DatasetsCommand struct {
	Author string `long:"author" default:"lerobot" description:"Hub user or organization"`
	Limit  int    `long:"limit" default:"10" description:"Maximum number of datasets"`
}

func (c *DatasetsCommand) Execute(args []string) error {
	log := newLogger()
	defer log.Sync() //nolint:errcheck

	ids, err := newHubClient(log).ListDatasets(context.Background(), c.Author, c.Limit)
	if err != nil {
		fail("Error: %v", err)
	}
	if len(ids) == 0 {
		fmt.Println(dimStyle.Render("No datasets found."))
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
