// Package terminal runs the interactive console chat.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"pi-assistant/internal/models"
)

type Replier interface {
	Reply(ctx context.Context, text string) models.Exchange
}

type styles struct {
	banner lipgloss.Style
	user   lipgloss.Style
	ai     lipgloss.Style
	muted  lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		banner: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")),
		user:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3")),
		ai:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("#6b7280")),
	}
}

// REPL reads one message per line and prints the reply.
type REPL struct {
	assistant Replier
	in        io.Reader
	out       io.Writer
	styles    styles
	logger    *zap.Logger
}

func New(assistant Replier, in io.Reader, out io.Writer, logger *zap.Logger) *REPL {
	return &REPL{
		assistant: assistant,
		in:        in,
		out:       out,
		styles:    newStyles(out),
		logger:    logger,
	}
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

// Run blocks until the user quits, input ends, or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	rule := strings.Repeat("=", 50)
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.styles.muted.Render(rule))
	fmt.Fprintln(r.out, r.styles.banner.Render("AI Assistant Terminal Interface"))
	fmt.Fprintln(r.out, r.styles.muted.Render("Type 'quit' or 'exit' to stop"))
	fmt.Fprintln(r.out, r.styles.muted.Render(rule))
	fmt.Fprintln(r.out)

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.out, r.styles.user.Render("You:")+" ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out, "\nGoodbye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out, "\nGoodbye!")
				if err := <-readErr; err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if isQuit(line) {
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		}
		if line == "" {
			continue
		}

		ex := r.assistant.Reply(ctx, line)
		r.logger.Debug("terminal exchange", zap.Int64("id", ex.ID))
		fmt.Fprintf(r.out, "%s %s\n\n", r.styles.ai.Render("AI:"), ex.Response)
	}
}
