package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"evai/internal/copilot"
	"evai/internal/logging"
	"evai/internal/plan"
	"evai/internal/render"
)

var (
	planImages      []string
	planPrompt      string
	planThink       bool
	planNoGrounding bool
	planFormat      string
	planOut         string
	planSpeak       bool
	planParallel    int
	planPlain       bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate an EV conversion plan from a vehicle photo",
	Long: `Sends the photo and goal to the model and prints a validated conversion plan.

With several --image flags the plans are generated concurrently and printed
in the order given.

Example:
  evai plan --image miata.jpg --prompt "150 mile range, keep the manual gearbox" --think`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringArrayVarP(&planImages, "image", "i", nil, "Vehicle photo (repeatable)")
	planCmd.Flags().StringVarP(&planPrompt, "prompt", "p", "", "Conversion goal")
	planCmd.Flags().BoolVar(&planThink, "think", false, "Extended reasoning (larger thinking budget, slower)")
	planCmd.Flags().BoolVar(&planNoGrounding, "no-grounding", false, "Do not ground the plan with Google Search")
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "", "Output format: markdown, json or yaml (default from --out extension, else markdown)")
	planCmd.Flags().StringVarP(&planOut, "out", "o", "", "Write the plan to a file instead of stdout")
	planCmd.Flags().BoolVar(&planSpeak, "speak", false, "Read the plan summary aloud")
	planCmd.Flags().IntVar(&planParallel, "parallel", 2, "Maximum concurrent requests with several images")
	planCmd.Flags().BoolVar(&planPlain, "plain", false, "Print raw Markdown without terminal styling")
	_ = planCmd.MarkFlagRequired("image")
	_ = planCmd.MarkFlagRequired("prompt")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	format, err := resolveFormat(planFormat, planOut)
	if err != nil {
		return err
	}
	if planOut != "" && len(planImages) > 1 {
		return fmt.Errorf("--out takes a single --image")
	}

	inputs := make([]copilot.PlanInput, 0, len(planImages))
	for _, path := range planImages {
		img, err := copilot.LoadImage(path)
		if err != nil {
			return err
		}
		inputs = append(inputs, copilot.PlanInput{Prompt: planPrompt, Image: img, ExtendedReasoning: planThink})
	}

	if planNoGrounding {
		cfg.Grounding.PlanSearch = false
	}
	svc, err := newService(ctx)
	if err != nil {
		return err
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	fmt.Fprintln(stderr, styles.Muted.Render("Analyzing vehicle and generating conversion plan... This may take a moment."))

	if len(inputs) == 1 {
		res, err := svc.GeneratePlan(ctx, inputs[0])
		if err != nil {
			return err
		}
		if err := emitPlan(stdout, stderr, res, format, planOut); err != nil {
			return err
		}
		if planSpeak && svc.IsActive(res.Slot) {
			return speakSummary(cmd, svc, res.Plan)
		}
		return nil
	}

	var failed int
	for i, r := range svc.GeneratePlans(ctx, inputs, planParallel) {
		fmt.Fprintln(stdout, styles.Title.Render(fmt.Sprintf("== %s ==", filepath.Base(planImages[i]))))
		if r.Err != nil {
			failed++
			printError(stderr, r.Err)
			continue
		}
		if err := emitPlan(stdout, stderr, r.Result, format, ""); err != nil {
			return err
		}
		if planSpeak {
			if err := speakSummary(cmd, svc, r.Result.Plan); err != nil {
				printError(stderr, err)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d plans failed", failed, len(inputs))
	}
	return nil
}

func resolveFormat(flag, out string) (plan.Format, error) {
	switch {
	case flag != "":
		return plan.ParseFormat(flag)
	case out != "":
		if ext := filepath.Ext(out); ext != "" {
			if f, err := plan.ParseFormat(ext); err == nil {
				return f, nil
			}
		}
	}
	return plan.FormatMarkdown, nil
}

// encodePlan serializes p; Markdown comes from the renderer.
func encodePlan(p *plan.ConversionPlan, format plan.Format) ([]byte, error) {
	if format == plan.FormatMarkdown {
		return []byte(render.Markdown(p)), nil
	}
	return plan.Encode(p, format)
}

// emitPlan writes the plan to out, or to w when out is empty. Warnings and
// status lines go to status.
func emitPlan(w, status io.Writer, res *copilot.PlanResult, format plan.Format, out string) error {
	for _, warning := range res.Warnings {
		fmt.Fprintln(status, styles.Warning.Render("Warning: "+warning.String()))
	}

	data, err := encodePlan(res.Plan, format)
	if err != nil {
		return err
	}

	if out != "" {
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("failed to write plan: %w", err)
		}
		logging.Plan("plan written to %s (%s)", out, format)
		fmt.Fprintln(status, styles.Success.Render("Plan written to "+out))
		return nil
	}

	if format != plan.FormatMarkdown {
		_, err := w.Write(data)
		return err
	}
	rendered, err := render.NewTerminal(100, planPlain).Render(string(data))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, rendered)
	return err
}

func speakSummary(cmd *cobra.Command, svc *copilot.Service, p *plan.ConversionPlan) error {
	if p == nil || strings.TrimSpace(p.Summary) == "" {
		return nil
	}
	ctx, cancel := signalContext()
	defer cancel()

	decoded, err := svc.Speak(ctx, p.Summary)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), styles.Muted.Render(fmt.Sprintf("Spoke summary (%s)", decoded.Duration().Round(100*time.Millisecond))))
	return nil
}
