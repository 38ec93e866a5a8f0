package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/claude/routinecopy/internal/config"
	"github.com/claude/routinecopy/internal/driver"
	"github.com/claude/routinecopy/internal/driver/cdp"
	"github.com/claude/routinecopy/internal/driver/sim"
	"github.com/claude/routinecopy/internal/engine"
	"github.com/claude/routinecopy/internal/notify"
	"github.com/claude/routinecopy/internal/shelf"
	"github.com/claude/routinecopy/internal/transport"
)

type globalFlags struct {
	config  string
	verbose bool
	driver  string
	fixture string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Resolve(strings.TrimSpace(c.flags.config))
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if c.flags.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// opener picks the driver named by --driver.
func (c *commandContext) opener(log *slog.Logger) (driver.Opener, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	switch c.flags.driver {
	case "", "cdp":
		profile, err := driver.LoadProfile(cfg.Selectors.Profile)
		if err != nil {
			return nil, err
		}
		return cdp.Opener(cdp.Config{
			DebuggerURL: cfg.Browser.DebuggerURL,
			PageMatch:   cfg.Browser.PageMatch,
			Profile:     profile,
		}, log), nil
	case "sim":
		if c.flags.fixture == "" {
			return nil, fmt.Errorf("--driver sim needs --fixture")
		}
		f, err := sim.LoadFixture(c.flags.fixture)
		if err != nil {
			return nil, err
		}
		app := sim.New(*f)
		return func(context.Context) (driver.Session, error) { return app, nil }, nil
	default:
		return nil, fmt.Errorf("unknown driver %q (want cdp or sim)", c.flags.driver)
	}
}

// runtime is everything an engine-backed command needs.
type runtime struct {
	cfg    *config.Config
	log    *slog.Logger
	shelf  *shelf.Shelf
	engine *engine.Engine
	notify notify.Service
}

func (c *commandContext) openShelf(cmd *cobra.Command) (*shelf.Shelf, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return shelf.Open(cmd.Context(), cfg.Shelf.Path)
}

func (c *commandContext) open(cmd *cobra.Command) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log := c.logger(cmd)
	open, err := c.opener(log)
	if err != nil {
		return nil, err
	}
	sh, err := c.openShelf(cmd)
	if err != nil {
		return nil, err
	}
	svc := notify.NewService(cfg.Notify, log)
	eng := engine.New(driver.NewLease(open), engine.Options{
		Timings: cfg.Timings.DriverTimings(),
		Notify:  svc,
		Runs:    sh,
	}, log)
	return &runtime{cfg: cfg, log: log, shelf: sh, engine: eng, notify: svc}, nil
}

func (r *runtime) Close() {
	if err := r.engine.Close(); err != nil {
		r.log.Warn("releasing driver session", "error", err)
	}
	if err := r.shelf.Close(); err != nil {
		r.log.Warn("closing shelf", "error", err)
	}
}

// endpoint resolves a --to/--from target. "-" is bound to the command's own
// streams.
func endpoint(cmd *cobra.Command, target string, sh transport.Shelf) (transport.Endpoint, error) {
	if target == "-" {
		return transport.Stdio{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}, nil
	}
	return transport.Parse(target, sh)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
