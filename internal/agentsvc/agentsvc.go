// Package agentsvc runs AssetScout as an operating system service
// (Windows service, systemd unit or launchd daemon).
package agentsvc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/zap"
)

// Service identity.
const (
	Name        = "AssetScout"
	DisplayName = "AssetScout Printer Discovery"
	Description = "Discovers network printers over SNMP and serves the printer inventory API."
)

// DefaultStopTimeout bounds how long Stop waits for the agent to drain.
const DefaultStopTimeout = 30 * time.Second

// Actions accepted by Control besides the service.ControlAction verbs.
const (
	ActionRun    = "run"
	ActionStatus = "status"
)

// Runner runs the agent until ctx is cancelled.
type Runner func(ctx context.Context) error

// Program adapts a Runner to service.Interface.
type Program struct {
	run         Runner
	logger      *zap.Logger
	stopTimeout time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

var _ service.Interface = (*Program)(nil)

// NewProgram wraps run for the service manager.
func NewProgram(run Runner, logger *zap.Logger) *Program {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Program{run: run, logger: logger, stopTimeout: DefaultStopTimeout}
}

// Start launches the runner without blocking, as the service manager
// requires.
func (p *Program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	p.logger.Info("service starting", zap.Bool("interactive", service.Interactive()))
	go func() {
		defer close(p.done)
		p.err = p.run(ctx)
		if p.err != nil {
			p.logger.Error("service runner exited with error", zap.Error(p.err))
		}
	}()
	return nil
}

// Stop cancels the runner and waits up to the stop timeout for it to
// return.
func (p *Program) Stop(_ service.Service) error {
	p.logger.Info("service stop requested")
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	select {
	case <-p.done:
		p.logger.Info("service stopped gracefully")
		return p.err
	case <-time.After(p.stopTimeout):
		p.logger.Warn("service stop timed out", zap.Duration("timeout", p.stopTimeout))
		return fmt.Errorf("agent did not stop within %s", p.stopTimeout)
	}
}

// WorkingDirectory returns the platform data directory for the service.
func WorkingDirectory() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), Name)
	case "darwin":
		return "/Library/Application Support/" + Name
	default:
		return "/var/lib/assetscout"
	}
}

// Config returns the service definition. configPath, when set, is passed
// back to the service run command.
func Config(configPath string) *service.Config {
	args := []string{"service", ActionRun}
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			configPath = abs
		}
		args = append(args, "-config", configPath)
	}
	return &service.Config{
		Name:             Name,
		DisplayName:      DisplayName,
		Description:      Description,
		WorkingDirectory: WorkingDirectory(),
		Arguments:        args,
		Option: service.KeyValue{
			// Windows
			"StartType":              "automatic",
			"DelayedAutoStart":       true,
			"OnFailure":              "restart",
			"OnFailureDelayDuration": "5s",
			// systemd
			"Restart":    "on-failure",
			"RestartSec": 5,
			"KillSignal": "SIGTERM",
			// launchd
			"RunAtLoad": true,
			"KeepAlive": true,
		},
	}
}

// New builds the platform service for prg.
func New(prg *Program, configPath string) (service.Service, error) {
	s, err := service.New(prg, Config(configPath))
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return s, nil
}

// ErrUnknownAction is returned by Control for unsupported verbs.
var ErrUnknownAction = errors.New("unknown service action")

// Actions lists every verb Control accepts.
func Actions() []string {
	return append(slices.Clone(service.ControlAction[:]), ActionRun, ActionStatus)
}

// Control performs action on s. "run" blocks until the service manager
// stops the program; "status" returns a description of the current state.
func Control(s service.Service, action string) (string, error) {
	switch action {
	case ActionRun:
		return "", s.Run()
	case ActionStatus:
		st, err := s.Status()
		if err != nil {
			return "", fmt.Errorf("service status: %w", err)
		}
		return statusString(st), nil
	}
	if !slices.Contains(service.ControlAction[:], action) {
		return "", fmt.Errorf("%w %q (valid: %v)", ErrUnknownAction, action, Actions())
	}
	if err := service.Control(s, action); err != nil {
		return "", fmt.Errorf("service %s: %w", action, err)
	}
	return action + " ok", nil
}

func statusString(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
