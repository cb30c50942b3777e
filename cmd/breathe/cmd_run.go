package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"breathe/cmd/breathe/ui"
	"breathe/internal/ambient"
	"breathe/internal/config"
	"breathe/internal/logging"
	"breathe/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var autoStart bool

// runCmd runs one session without the full-screen UI
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one session, printing each phase as it starts",
	Long: `Runs a single session in the current terminal without the interactive screen.
Cues, ambient sound and recording work as usual. Ctrl-C stops the session
without recording it. Edits to the config file's ambient settings apply live.`,
	RunE: runHeadless,
}

func init() {
	rootCmd.Flags().BoolVar(&autoStart, "start", false, "start a session immediately")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runHeadless ticks the engine until the session ends, alongside a config
// watcher; a signal or the end of the session stops both. A failing watcher
// never ends the session.
func runHeadless(cmd *cobra.Command, _ []string) error {
	runCfg, err := resolveRun(cfg)
	if err != nil {
		return err
	}
	a := newApp(commandContext(cmd), cfg, appOptions{configPath: configPath, bell: cmd.ErrOrStderr()})
	defer a.close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := cmd.OutOrStdout()
	first := a.engine.Start(runCfg)
	fmt.Fprintf(out, "%s %s  ·  %d breaths\n", nameOf(runCfg), runCfg.Technique.Pattern(), first.TotalCycles)

	g, gctx := errgroup.WithContext(ctx)
	var summary *session.Summary
	g.Go(func() error {
		defer cancel()
		sum, err := a.engine.Run(gctx, cfg.TickInterval(), printFrames(out))
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "stopped, not recorded")
			return nil
		}
		summary = sum
		return err
	})
	if w := watchConfig(a.applyLive); w != nil {
		g.Go(func() error { return runWatcher(gctx, w) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if summary != nil {
		printSummary(out, summary)
	}
	return nil
}

// watchConfig returns a watcher on the config file, or nil when there is no
// file to watch.
func watchConfig(onChange func(*config.Config)) *config.Watcher {
	if _, err := os.Stat(configPath); err != nil {
		return nil
	}
	w, err := config.NewWatcher(configPath, onChange)
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("config watch unavailable", zap.Error(err))
		return nil
	}
	return w
}

// runWatcher runs w until ctx ends. A watcher that cannot start only loses live
// reload, so its error is logged rather than returned.
func runWatcher(ctx context.Context, w *config.Watcher) error {
	if err := w.Run(ctx); err != nil {
		logging.Get(logging.CategoryConfig).Warn("config watch stopped", zap.Error(err))
	}
	return nil
}

func nameOf(c session.Config) string {
	if c.Technique.Name != "" {
		return c.Technique.Name
	}
	return c.Technique.ID
}

// printFrames prints a line whenever a new phase becomes current.
func printFrames(out io.Writer) func(session.Frame) {
	lastCycle, lastIdx := -1, -1
	return func(f session.Frame) {
		if f.Status != session.Running {
			return
		}
		if f.CyclesCompleted == lastCycle && f.Step.Index == lastIdx {
			return
		}
		lastCycle, lastIdx = f.CyclesCompleted, f.Step.Index
		fmt.Fprintf(out, "  %-7s %4.1fs   breath %d/%d\n", f.Step.Label, f.Step.Duration.Seconds(), f.Breath(), f.TotalCycles)
	}
}

func printSummary(out io.Writer, s *session.Summary) {
	fmt.Fprintf(out, "done: %d breaths in %s\n", s.Cycles, s.Total.Round(100*time.Millisecond))
	if s.Recorded {
		fmt.Fprintf(out, "streak %d day(s)  ·  %d sessions  ·  %d minutes total\n",
			s.Totals.DayStreak, s.Totals.Sessions, s.Totals.TotalMinutes)
	}
}

// runInteractive opens the session screen.
func runInteractive(cmd *cobra.Command, _ []string) error {
	runCfg, err := resolveRun(cfg)
	if err != nil {
		return err
	}
	a := newApp(commandContext(cmd), cfg, appOptions{configPath: configPath, bell: os.Stdout})
	defer a.close()

	saver := ui.NewDebouncer(ui.DefaultSaveDelay)
	defer saver.Flush()

	model := ui.New(ui.Options{
		Engine: a.engine,
		Tree:   a.tree,
		Focus:  a.focus,
		Base:   runCfg,
		Totals: a.totals,
		OnVolume: func(v float64) {
			a.update(func(c *config.Config) { c.Ambient.Volume = v })
			saver.Debounce(a.saveConfig)
		},
		OnAmbient: func(choice ambient.Choice) {
			a.update(func(c *config.Config) { c.Ambient.Choice = string(choice) })
			saver.Debounce(a.saveConfig)
		},
		Tick:      cfg.TickInterval(),
		Theme:     ui.DetectTheme(cfg.UI.Theme),
		OrbWidth:  cfg.UI.OrbWidth,
		AutoStart: autoStart || cfg.Session.QuickPreset != "",
	})
	p := tea.NewProgram(model, tea.WithContext(commandContext(cmd)))

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()
	if w := watchConfig(func(c *config.Config) {
		choice, err := ambient.ParseChoice(c.Ambient.Choice)
		if err != nil {
			return
		}
		p.Send(ui.SettingsMsg{Volume: c.Ambient.Volume, Ambient: choice})
	}); w != nil {
		go func() { _ = runWatcher(ctx, w) }()
		defer func() { <-w.Done() }()
		defer cancel()
	}

	logging.Get(logging.CategoryUI).Info("interactive session screen opened")
	_, err = p.Run()
	return err
}
