package chatbot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"EduProChat/internal/inquiry"
)

// REPL is the terminal front end for a ChatBot.
type REPL struct {
	bot      *ChatBot
	whatsApp string
	out      io.Writer
}

// NewREPL creates a REPL. whatsApp is the number used for /plan links.
func NewREPL(bot *ChatBot, whatsApp string) *REPL {
	return &REPL{bot: bot, whatsApp: whatsApp}
}

// handleCommand handles slash commands. It reports whether the loop should stop.
func (r *REPL) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/suggestions":
		for i, s := range r.bot.Suggestions() {
			fmt.Fprintf(r.out, "  [%d] %s\n", i+1, s)
		}
		return false, nil

	case "/suggest":
		if len(parts) < 2 {
			return false, errors.New("usage: /suggest <n>")
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return false, fmt.Errorf("invalid suggestion number %q", parts[1])
		}
		out := r.bot.Suggest(ctx, n-1)
		if out.Kind == KindIgnored {
			return false, fmt.Errorf("no suggestion %d, see /suggestions", n)
		}
		r.printOutcome(out)
		return false, nil

	case "/status":
		fmt.Fprintf(r.out, "Session: %s\n", r.bot.SessionID())
		fmt.Fprintf(r.out, "Health: %s\n", r.bot.Health())
		fmt.Fprintf(r.out, "Processing: %t\n", r.bot.Processing())
		fmt.Fprintf(r.out, "Context turns: %d\n", len(r.bot.Window()))
		return false, nil

	case "/probe":
		fmt.Fprintf(r.out, "Health: %s\n", r.bot.Probe(ctx))
		return false, nil

	case "/history":
		for _, m := range r.bot.Transcript() {
			fmt.Fprintf(r.out, "[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.Role, m.Content)
		}
		return false, nil

	case "/plan":
		if len(parts) < 2 {
			return false, errors.New("usage: /plan <starter|professional|enterprise>")
		}
		plan, err := inquiry.Lookup(parts[1])
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, inquiry.Message(plan))
		fmt.Fprintln(r.out, inquiry.WhatsAppURL(r.whatsApp, plan))
		return false, nil

	case "/help":
		fmt.Fprintln(r.out, "Available commands:")
		fmt.Fprintln(r.out, "  /quit, /exit        - Exit the chat")
		fmt.Fprintln(r.out, "  /suggestions        - List suggested questions")
		fmt.Fprintln(r.out, "  /suggest <n>        - Ask suggested question n")
		fmt.Fprintln(r.out, "  /status             - Show connection status")
		fmt.Fprintln(r.out, "  /probe              - Test the AI connection")
		fmt.Fprintln(r.out, "  /history            - Show the conversation so far")
		fmt.Fprintln(r.out, "  /plan <name>        - Get a WhatsApp inquiry link for a plan")
		fmt.Fprintln(r.out, "  /help               - Show this help message")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s", parts[0])
	}
}

func (r *REPL) printOutcome(out Outcome) {
	if out.Kind == KindIgnored {
		return
	}
	fmt.Fprintf(r.out, "Bot: %s\n\n", out.Reply)
}

// Run reads lines from in until EOF, /quit, or ctx is done. A read blocked
// on in does not delay the return after ctx is cancelled.
func (r *REPL) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	r.out = out
	log := r.bot.logger

	fmt.Fprintln(out, "=== Codediera EduPro Assistant ===")
	fmt.Fprintf(out, "Session: %s\n", r.bot.SessionID())
	fmt.Fprintf(out, "Status: %s\n", r.bot.Health())
	fmt.Fprintln(out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "You: ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := r.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				log.Debug("command error", "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		r.printOutcome(r.bot.Submit(ctx, input))
	}

	select {
	case err := <-readErr:
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	default:
	}

	fmt.Fprintln(out, "Goodbye!")
	return nil
}
