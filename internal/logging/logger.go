// Package logging provides config-driven categorized logging for breathe.
// Logs are written to <data dir>/logs/ as one file per day.
// Logging is controlled by debug_mode in the config file - when false, nothing is written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot         Category = "boot"         // Startup and shutdown
	CategorySession      Category = "session"      // Session lifecycle: start, stop, finish
	CategoryClock        Category = "clock"        // Tick loop and phase transitions
	CategoryCoach        Category = "coach"        // Voice, chime and haptic cues
	CategoryAmbient      Category = "ambient"      // Ambient generator bank
	CategoryAudio        Category = "audio"        // Audio context and output device
	CategoryPresentation Category = "presentation" // Focus mode enter/exit
	CategoryStore        Category = "store"        // Progress store
	CategoryConfig       Category = "config"       // Config load, save and watch
	CategoryUI           Category = "ui"           // Terminal UI
)

// Config mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type Config struct {
	DebugMode  bool
	Level      string
	Format     string // json, console
	Categories map[string]bool
}

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	cfg     Config
	file    *os.File
	loggers = make(map[Category]*zap.Logger)
)

// Initialize sets up the log file under dir/logs and builds the root logger.
// With debug mode off it installs a no-op logger and touches nothing on disk.
func Initialize(dir string, c Config) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	cfg = c
	loggers = make(map[Category]*zap.Logger)

	if !c.DebugMode {
		root = zap.NewNop()
		return nil
	}
	if dir == "" {
		return fmt.Errorf("log directory required")
	}

	logsDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	name := fmt.Sprintf("%s_breathe.log", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(logsDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	file = f
	root = zap.New(zapcore.NewCore(encoder(c.Format), zapcore.AddSync(f), parseLevel(c.Level)))

	root.Named(string(CategoryBoot)).Info("logging initialized",
		zap.String("dir", logsDir),
		zap.String("level", parseLevel(c.Level).String()),
		zap.Int("category_filters", len(c.Categories)))
	return nil
}

// SetLogger replaces the root logger. The cmd layer uses it to route everything
// through the logger built from command-line flags.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
	loggers = make(map[Category]*zap.Logger)
}

func encoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(ec)
	}
	return zapcore.NewConsoleEncoder(ec)
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "warning":
		return zapcore.WarnLevel
	case "":
		return zapcore.InfoLevel
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if cfg.Categories == nil {
		return true
	}
	enabled, exists := cfg.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for a category.
// Disabled categories get a no-op logger.
func Get(category Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := zap.NewNop()
	if categoryEnabledLocked(category) {
		l = root.Named(string(category))
	}
	loggers[category] = l
	return l
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return root.Sync()
}

// CloseAll flushes and closes the log file.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	root = zap.NewNop()
	loggers = make(map[Category]*zap.Logger)
}

func closeLocked() {
	if root != nil {
		_ = root.Sync()
	}
	if file != nil {
		_ = file.Close()
		file = nil
	}
}

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("slow operation",
			zap.String("op", t.op),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
		return elapsed
	}
	Get(t.category).Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	return elapsed
}
