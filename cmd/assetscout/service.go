package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"

	"github.com/HerbHall/assetscout/internal/agentsvc"
)

// runService manages the OS service. "run" is what the service manager
// itself invokes.
func runService(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing action (one of %v)", agentsvc.Actions())
	}
	action, args := args[0], args[1:]
	if !slices.Contains(agentsvc.Actions(), action) {
		return fmt.Errorf("%w %q (valid: %v)", agentsvc.ErrUnknownAction, action, agentsvc.Actions())
	}

	fs := flag.NewFlagSet("service", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	prg := agentsvc.NewProgram(func(ctx context.Context) error {
		err := runAgent(ctx, v, logger)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}, logger.Named("service"))

	svc, err := agentsvc.New(prg, *configPath)
	if err != nil {
		return err
	}

	out, err := agentsvc.Control(svc, action)
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintln(stdout, out)
	}
	return nil
}
