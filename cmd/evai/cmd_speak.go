package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"evai/internal/audio"
)

var speakOut string

var speakCmd = &cobra.Command{
	Use:   "speak TEXT",
	Short: "Read text aloud with the configured voice",
	Long: `Synthesizes TEXT with the text-to-speech model. By default the audio is
written to the configured audio directory and played; with --out it is only
written to the given WAV file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpeak,
}

func init() {
	speakCmd.Flags().StringVarP(&speakOut, "out", "o", "", "Write a WAV file instead of playing")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	text := strings.Join(args, " ")
	svc, err := newService(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), styles.Muted.Render("Generating audio..."))

	if speakOut == "" {
		decoded, err := svc.Speak(ctx, text)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), styles.Success.Render(fmt.Sprintf("Played %s of audio", decoded.Duration().Round(100*time.Millisecond))))
		return nil
	}

	decoded, err := svc.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(speakOut); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := audio.WriteWAVFile(speakOut, decoded); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), styles.Success.Render("Audio written to "+speakOut))
	return nil
}
