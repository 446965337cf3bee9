package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"evai/internal/chat"
	"evai/internal/render"
)

var (
	chatNoGrounding bool
	chatPlain       bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask follow-up questions about EV conversions",
	Long: `Starts a line-based conversation with EV.AI. Answers are grounded with
Google Search and Google Maps unless --no-grounding is set.

Commands:
  /reset    clear the conversation
  /history  print every turn so far
  /exit     leave (Ctrl-D also works)`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatNoGrounding, "no-grounding", false, "Do not ground answers with search or maps")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "Print raw Markdown without terminal styling")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if chatNoGrounding {
		cfg.Grounding.ChatSearch = false
	}
	svc, err := newService(ctx)
	if err != nil {
		return err
	}

	session := svc.NewChat()
	term := render.NewTerminal(100, chatPlain)
	return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), session, term)
}

// chatLoop reads one message per line until EOF, /exit, or ctx ends.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, session *chat.Session, term *render.Terminal) error {
	fmt.Fprintln(out, styles.Title.Render("EV.AI chat")+" "+styles.Muted.Render("(/reset, /history, /exit)"))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, styles.Prompt.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			session.Reset()
			fmt.Fprintln(out, styles.Muted.Render("Conversation cleared."))
			continue
		case "/history":
			printHistory(out, session.History(), term)
			continue
		}

		fmt.Fprintln(out, styles.Muted.Render("EV.AI is thinking..."))
		reply, err := session.Send(ctx, line)
		if err != nil {
			if errors.Is(err, chat.ErrReset) {
				continue
			}
			printError(out, err)
			continue
		}
		printTurn(out, reply, term)
	}
}

func printTurn(out io.Writer, m chat.Message, term *render.Terminal) {
	rendered, err := term.Render(render.ChatMessage(m))
	if err != nil {
		rendered = render.ChatMessage(m)
	}
	fmt.Fprint(out, rendered)
}

func printHistory(out io.Writer, history []chat.Message, term *render.Terminal) {
	if len(history) == 0 {
		fmt.Fprintln(out, styles.Muted.Render("No messages yet."))
		return
	}
	for _, m := range history {
		printTurn(out, m, term)
	}
}
