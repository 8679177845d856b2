package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/lerobot-inspect/pkg/robot"
)

type SetupCommand struct {
	Config string `long:"config" default:"lerobot.json" description:"Robot configuration file to write"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("LeRobot Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println()

	ports, err := robot.FindArms(context.Background())
	if err != nil {
		fail("Error: %v", err)
	}
	if len(ports) == 0 {
		fmt.Println("No SO-101 arms found.")
		fmt.Println("Make sure your arm is connected and powered on.")
		os.Exit(1)
	}
	for _, p := range ports {
		fmt.Printf("  Found SO-101 arm on %s\n", p)
	}
	fmt.Println()

	cfg := robot.Config{Follower: robot.ArmConfig{Port: ports[0]}}
	if existing, err := robot.LoadConfigFrom(c.Config); err == nil {
		cfg = *existing
		if cfg.Follower.Port == "" {
			cfg.Follower.Port = ports[0]
		}
	}

	portOptions := make([]huh.Option[string], 0, len(ports))
	for _, p := range ports {
		portOptions = append(portOptions, huh.NewOption(p, p))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port is the follower arm on?").
				Options(portOptions...).
				Value(&cfg.Follower.Port),
			huh.NewInput().
				Title("Calibration file").
				Description("Path to the follower calibration JSON written by lerobot-calibrate").
				Value(&cfg.Follower.CalibrationFile).
				Validate(func(path string) error {
					_, err := robot.LoadCalibration(path)
					return err
				}),
			huh.NewConfirm().
				Title("Are dataset joint positions in degrees?").
				Description("Datasets recorded with use_degrees=true").
				Value(&cfg.UseDegrees),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	cfg.Follower.Calibration = nil

	if err := cfg.SaveTo(c.Config); err != nil {
		fail("Error saving config: %v", err)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", c.Config)
	fmt.Println()
	fmt.Println("Replay an episode with: " + headerStyle.Render("lerobot replay <repo_id> --episode 0"))
	return nil
}
