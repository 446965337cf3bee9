// Package logging provides categorized logging for evai on top of zap.
// Each category is a named child of one base logger, so a single level and
// encoder govern the whole process. Until Initialize or Use is called every
// category logs to a no-op core.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // CLI startup, config resolution
	CategoryAPI       Category = "api"       // Generation collaborator calls
	CategoryPlan      Category = "plan"      // Decode, assemble, validate
	CategoryChat      Category = "chat"      // Conversation turns
	CategoryAudio     Category = "audio"     // PCM decode and playback
	CategoryGrounding Category = "grounding" // Citation normalization
)

// Options configures the base logger.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	Categories map[string]bool // per-category toggles; missing means enabled
	Verbose    bool            // forces debug level
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*zap.SugaredLogger)
)

// New builds a zap logger from opts, the way the CLI root does at startup.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(opts.Format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Initialize builds the base logger from opts and installs it.
func Initialize(opts Options) error {
	logger, err := New(opts)
	if err != nil {
		return err
	}
	Use(logger, opts.Categories)
	Get(CategoryBoot).Debugw("logging initialized", "level", opts.Level, "format", opts.Format, "verbose", opts.Verbose)
	return nil
}

// Use installs an already-built logger. Tests pass a zaptest/observer core.
func Use(logger *zap.Logger, enabled map[string]bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = logger
	categories = enabled
	loggers = make(map[Category]*zap.SugaredLogger)
}

// ParseLevel maps a config level string to a zap level. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Disabled categories get a no-op logger.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	var l *zap.SugaredLogger
	if categoryEnabledLocked(category) {
		l = base.Named(string(category)).Sugar()
	} else {
		l = zap.NewNop().Sugar()
	}
	loggers[category] = l
	return l
}

// CloseAll flushes buffered entries (call at shutdown)
func CloseAll() {
	mu.RLock()
	logger := base
	mu.RUnlock()
	_ = logger.Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Infof(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debugf(format, args...)
}

// BootWarn logs a warning to the boot category
func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warnf(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Infof(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debugf(format, args...)
}

// APIWarn logs a warning to the api category
func APIWarn(format string, args ...interface{}) {
	Get(CategoryAPI).Warnf(format, args...)
}

// APIError logs an error to the api category
func APIError(format string, args ...interface{}) {
	Get(CategoryAPI).Errorf(format, args...)
}

// Plan logs to the plan category
func Plan(format string, args ...interface{}) {
	Get(CategoryPlan).Infof(format, args...)
}

// PlanDebug logs debug to the plan category
func PlanDebug(format string, args ...interface{}) {
	Get(CategoryPlan).Debugf(format, args...)
}

// PlanWarn logs a warning to the plan category
func PlanWarn(format string, args ...interface{}) {
	Get(CategoryPlan).Warnf(format, args...)
}

// PlanError logs an error to the plan category
func PlanError(format string, args ...interface{}) {
	Get(CategoryPlan).Errorf(format, args...)
}

// Chat logs to the chat category
func Chat(format string, args ...interface{}) {
	Get(CategoryChat).Infof(format, args...)
}

// ChatDebug logs debug to the chat category
func ChatDebug(format string, args ...interface{}) {
	Get(CategoryChat).Debugf(format, args...)
}

// ChatError logs an error to the chat category
func ChatError(format string, args ...interface{}) {
	Get(CategoryChat).Errorf(format, args...)
}

// Audio logs to the audio category
func Audio(format string, args ...interface{}) {
	Get(CategoryAudio).Infof(format, args...)
}

// AudioDebug logs debug to the audio category
func AudioDebug(format string, args ...interface{}) {
	Get(CategoryAudio).Debugf(format, args...)
}

// AudioError logs an error to the audio category
func AudioError(format string, args ...interface{}) {
	Get(CategoryAudio).Errorf(format, args...)
}

// GroundingDebug logs debug to the grounding category
func GroundingDebug(format string, args ...interface{}) {
	Get(CategoryGrounding).Debugf(format, args...)
}
