package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/iksnae/chatline/internal"
	"github.com/spf13/cobra"
)

var (
	chatSession  string
	chatNoStream bool
)

var promptStyle = userMessageStyle

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message, or chat interactively",
	Long: `Send a message to the assistant and print the reply as it streams in.

Without a message, chatline reads one message per line from standard input.
Type /new to start a new conversation and /quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		client := newClient()
		store := internal.NewStore()

		if chatSession != "" {
			session, err := client.GetSession(ctx, chatSession)
			if err != nil {
				return fmt.Errorf("failed to load session %s: %w", chatSession, err)
			}
			store.SetCurrentSession(internal.ConfirmedSession(session.SessionID))
			store.SetMessages(session.Messages)
			internal.LogInfo("Continuing session %s with %d message(s)", session.SessionID, len(session.Messages))
		}

		streamer := internal.NewStreamer(store, client)
		streamer.SetTimeout(cfg.StreamTimeout)

		printer := &replyPrinter{w: out}
		unsubscribe := store.Subscribe(printer.onState)
		defer unsubscribe()

		c := &chatLoop{store: store, streamer: streamer, printer: printer, noStream: chatNoStream}
		if len(args) > 0 {
			if err := c.send(ctx, strings.Join(args, " ")); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, idStyle.Render("session "+store.CurrentSession().ID))
			return nil
		}
		return c.interactive(ctx, cmd.InOrStdin(), out)
	},
}

type chatLoop struct {
	store    *internal.Store
	streamer *internal.Streamer
	printer  *replyPrinter
	noStream bool
}

func (c *chatLoop) send(ctx context.Context, text string) error {
	var err error
	if c.noStream {
		err = c.streamer.SendOnce(ctx, text)
	} else {
		err = c.streamer.Send(ctx, text)
	}
	c.printer.finish()
	if err != nil {
		return fmt.Errorf("%s: %w", c.store.ErrorMessage(), err)
	}
	return nil
}

func (c *chatLoop) interactive(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		_, _ = fmt.Fprint(out, promptStyle.Render("you ›")+" ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			c.store.ClearChat()
			_, _ = fmt.Fprintln(out, dateStyle.Render("Started a new conversation"))
			continue
		case "/session":
			ref := c.store.CurrentSession()
			if ref.IsZero() {
				_, _ = fmt.Fprintln(out, dateStyle.Render("No session yet"))
			} else {
				_, _ = fmt.Fprintln(out, dateStyle.Render(ref.String()))
			}
			continue
		}

		if err := c.send(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			internal.PrintError(err.Error())
		}
	}
}

// replyPrinter writes the growing assistant message to w as store updates
// arrive, printing only the part not yet shown.
type replyPrinter struct {
	w io.Writer

	mu    sync.Mutex
	id    string
	shown string
	open  bool
}

func (p *replyPrinter) onState(st internal.State) {
	if len(st.Messages) == 0 {
		return
	}
	last := st.Messages[len(st.Messages)-1]
	if last.Role != internal.RoleAssistant {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if last.ID != p.id {
		p.id = last.ID
		p.shown = ""
		p.open = true
		_, _ = fmt.Fprint(p.w, assistantMessageStyle.Render("assistant ›")+" ")
	}
	switch {
	case last.Content == p.shown:
	case strings.HasPrefix(last.Content, p.shown):
		_, _ = io.WriteString(p.w, last.Content[len(p.shown):])
	default:
		// Content was replaced rather than extended.
		_, _ = fmt.Fprint(p.w, "\n"+last.Content)
	}
	p.shown = last.Content
}

// finish ends the current reply line, if one was started
func (p *replyPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		_, _ = fmt.Fprintln(p.w)
		p.open = false
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "Continue an existing session")
	chatCmd.Flags().BoolVar(&chatNoStream, "no-stream", false, "Wait for the whole reply instead of streaming it")
}
