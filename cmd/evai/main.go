package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"evai/internal/audio"
	"evai/internal/config"
	"evai/internal/copilot"
	"evai/internal/core"
	"evai/internal/gemini"
	"evai/internal/logging"
	"evai/internal/render"
)

var (
	// Global flags
	configPath string
	verbose    bool
	backend    string
	timeout    time.Duration

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	styles = render.DefaultStyles()

	// newGenerator is swapped out in tests.
	newGenerator = gemini.New
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "evai",
	Short: "EV.AI - electric vehicle conversion copilot",
	Long: `EV.AI turns a photo of a vehicle and a goal into a structured EV
conversion plan: drivetrain, battery, bill of materials, cost, and safety
standards, grounded with web citations.

Ask follow-up questions with "evai chat" and have plans read aloud with --speak.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if backend != "" {
			loaded.LLM.Backend = strings.ToLower(backend)
		}
		if timeout > 0 {
			loaded.LLM.Timeout = timeout.String()
		}
		cfg = loaded

		if err := logging.Initialize(logging.Options{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			Categories: cfg.Logging.Categories,
			Verbose:    verbose,
		}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.BootDebug("config: path=%s backend=%s timeout=%s", configPath, cfg.LLM.Backend, cfg.LLM.Timeout)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Generation backend: rest or genai (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (overrides config)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(speakCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newService validates config and builds the copilot. The WAV player behind
// the audio output is only created on first playback.
func newService(ctx context.Context) (*copilot.Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	out := audio.NewOutput(func() (audio.Player, error) {
		return audio.NewWAVPlayer(cfg.Audio.OutputDir, cfg.Audio.Play)
	})
	return copilot.New(gen, copilot.OptionsFromConfig(cfg), out), nil
}

// printError shows the generic message for err's kind; details go to the log.
func printError(w io.Writer, err error) {
	var cerr *core.Error
	if errors.As(err, &cerr) {
		logging.BootWarn("error detail: %v", err)
		fmt.Fprintln(w, styles.Error.Render("Error: "+core.UserMessage(err)))
		return
	}
	fmt.Fprintln(w, styles.Error.Render("Error: "+err.Error()))
}
