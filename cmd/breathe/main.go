// Package main provides the breathe CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"breathe/internal/config"
	"breathe/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	verbose    bool
	noAudio    bool

	// Session flags, applied over the config file when set
	techniqueFlag string
	minutesFlag   float64
	cyclesFlag    int
	bpmFlag       int
	ambientFlag   string
	volumeFlag    float64
	focusFlag     bool
	quickFlag     string
	timeBoxFlag   string

	// Effective configuration, loaded before every command
	cfg *config.Config

	// Logger for one-shot commands
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "breathe",
	Short: "Guided breathing sessions in the terminal",
	Long: `breathe paces a breathing technique (box, 4-7-8, coherent, SOS) with an
animated orb, optional voice and chime cues, ambient sound and a distraction-free
focus mode. Completed sessions are kept for a running total and day streak.

Run without arguments to open the interactive session screen.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd, c)
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = c

		if err := logging.Initialize(filepath.Dir(configPath), logging.Config{
			DebugMode:  c.Logging.DebugMode,
			Level:      c.Logging.Level,
			Format:     c.Logging.Format,
			Categories: c.Logging.Categories,
		}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		// The interactive screen owns the terminal; only the file log is used there.
		if !cmd.HasParent() {
			return nil
		}
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if verbose {
			logging.SetLogger(logger)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
		logging.CloseAll()
	},
	RunE: runInteractive,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultPath(), "config file (.yaml or .toml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log to stderr at debug level")
	pf.BoolVar(&noAudio, "no-audio", false, "disable ambient sound and chimes")
	pf.StringVarP(&techniqueFlag, "technique", "t", "", "technique id (see 'breathe techniques')")
	pf.Float64VarP(&minutesFlag, "minutes", "m", 0, "target session length in minutes")
	pf.IntVar(&cyclesFlag, "cycles", 0, "fixed number of breaths, overrides --minutes")
	pf.IntVar(&bpmFlag, "bpm", 0, "breaths per minute used to size the session")
	pf.StringVarP(&ambientFlag, "ambient", "a", "", "ambient sound (none, rain, ocean, ...)")
	pf.Float64Var(&volumeFlag, "volume", 0, "ambient volume 0..1")
	pf.BoolVarP(&focusFlag, "focus", "f", false, "start in focus mode")
	pf.StringVarP(&quickFlag, "quick", "q", "", "quick preset: in,hold1,out,hold2,minutes,bpm,tts,ambient,volume,motion,focus")
	pf.StringVar(&timeBoxFlag, "time-box", "", "stop after this long regardless of breaths (e.g. 60s)")

	rootCmd.AddCommand(runCmd, techniquesCmd, statsCmd, voicesCmd, configCmd)
}

// applyFlags overlays the flags that were set on the command line.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("technique") {
		c.Session.Technique = techniqueFlag
		c.Session.Custom = nil
	}
	if f.Changed("minutes") {
		c.Session.Minutes = minutesFlag
	}
	if f.Changed("cycles") {
		c.Session.FixedCycles = cyclesFlag
	}
	if f.Changed("bpm") {
		c.Session.BreathsPerMinute = bpmFlag
	}
	if f.Changed("ambient") {
		c.Ambient.Choice = ambientFlag
	}
	if f.Changed("volume") {
		c.Ambient.Volume = volumeFlag
	}
	if f.Changed("focus") {
		c.Presentation.Focus = focusFlag
	}
	if f.Changed("quick") {
		c.Session.QuickPreset = quickFlag
	}
	if f.Changed("time-box") {
		c.Session.TimeBox = timeBoxFlag
	}
	if noAudio {
		c.Audio.Enabled = false
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
