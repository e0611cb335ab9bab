package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/chatline/internal"
	"github.com/iksnae/chatline/internal/backend"
	"github.com/spf13/cobra"
)

var (
	shareEditable bool
	shareExpires  int
	shareTitle    string
	watchInterval time.Duration
	watchOnce     bool
	pdfOutput     string
	postRole      string
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Share sessions and follow shared sessions",
}

var shareCreateCmd = &cobra.Command{
	Use:   "create <session-id>",
	Short: "Create a share link for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expires := shareExpires
		if !cmd.Flags().Changed("expires-hours") {
			expires = cfg.ShareExpiresHours
		}
		client := newClient()
		info, err := client.CreateShare(cmd.Context(), internal.ShareRequest{
			SessionID:    args[0],
			Title:        shareTitle,
			AllowEditing: shareEditable,
			ExpiresHours: expires,
		})
		if err != nil {
			return fmt.Errorf("failed to share session %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Token:   %s\n", info.ShareToken)
		_, _ = fmt.Fprintf(out, "Link:    %s\n", client.ResolveURL(info.ShareURL))
		_, _ = fmt.Fprintf(out, "PDF:     %s\n", client.ResolveURL(info.PDFURL))
		_, _ = fmt.Fprintf(out, "Expires: %s\n", expiryText(info.ExpiresAt, time.Now()))
		return nil
	},
}

var shareInfoCmd = &cobra.Command{
	Use:   "info <token>",
	Short: "Show the status of a share",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := newClient().ShareInfo(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load share %s: %w", args[0], err)
		}
		now := time.Now()
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Title:       %s\n", status.Title)
		_, _ = fmt.Fprintf(out, "Active:      %t\n", status.IsActive)
		_, _ = fmt.Fprintf(out, "Editable:    %t\n", status.AllowEditing)
		_, _ = fmt.Fprintf(out, "Views:       %s\n", humanize.Comma(int64(status.AccessCount)))
		_, _ = fmt.Fprintf(out, "Created:     %s\n", relativeTime(status.CreatedAt, now))
		_, _ = fmt.Fprintf(out, "Last synced: %s\n", relativeTime(status.LastSynced, now))
		_, _ = fmt.Fprintf(out, "Expires:     %s\n", expiryText(status.ExpiresAt, now))
		return nil
	},
}

var sharePDFCmd = &cobra.Command{
	Use:   "pdf <token>",
	Short: "Download the PDF rendering of a shared session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := pdfOutput
		if path == "" {
			path = filepath.Join(cfg.ExportDir, fmt.Sprintf("chat_%s.pdf", args[0]))
		}
		body, err := newClient().SharedPDF(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to download PDF: %w", err)
		}
		defer func() { _ = body.Close() }()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return &internal.StorageError{Path: path, Op: "mkdir", Err: err}
		}
		f, err := os.Create(path)
		if err != nil {
			return &internal.StorageError{Path: path, Op: "write", Err: err}
		}
		n, err := io.Copy(f, body)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return &internal.StorageError{Path: path, Op: "write", Err: err}
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", path, humanize.Bytes(uint64(n)))
		return nil
	},
}

var shareWatchCmd = &cobra.Command{
	Use:   "watch <token>",
	Short: "Follow a shared session as it changes",
	Long: `Poll a shared session and print its transcript whenever it changes.

Type "r" and Enter to refresh right away, or "q" to stop. Stops on
interrupt too, or after the first fetch with --once.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval := watchInterval
		if interval <= 0 {
			interval = cfg.SyncInterval
		}
		ctx := cmd.Context()
		out := &lockedWriter{w: cmd.OutOrStdout()}
		client := newClient()
		store := internal.NewStore()
		syncer := internal.NewSynchronizer(store, client, interval)

		syncer.Start(ctx, args[0])
		defer syncer.Stop()

		if err := waitLoaded(ctx, syncer); err != nil {
			return err
		}
		if msg := syncer.Err(); msg != "" {
			return fmt.Errorf("%s", msg)
		}

		displayShareHeader(out, client, syncer.Snapshot(), time.Now())
		printer := &transcriptPrinter{w: out}
		unsubscribe := store.Subscribe(printer.onState)
		defer unsubscribe()
		printer.onState(store.Snapshot())

		if watchOnce {
			return nil
		}
		return watchInput(ctx, cmd.InOrStdin(), out, syncer)
	},
}

// watchInput handles viewer commands read line by line from in until "q",
// or until ctx is done. A closed input leaves the watch running.
func watchInput(ctx context.Context, in io.Reader, out io.Writer, syncer *internal.Synchronizer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			switch line {
			case "q", "quit":
				return nil
			case "r", "refresh":
				if syncer.Refreshing() {
					_, _ = fmt.Fprintln(out, dateStyle.Render("refresh already in progress"))
					continue
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := syncer.Refresh(ctx); err != nil {
						_, _ = fmt.Fprintln(out, errorStyle.Render("Refresh failed: "+syncer.Err()))
						return
					}
					displayShareStatus(out, syncer.Snapshot(), time.Now())
				}()
			}
		}
	}
}

// displayShareHeader prints what a viewer knows about a share besides its
// transcript.
func displayShareHeader(w io.Writer, client *backend.Client, snap *internal.SharedSession, now time.Time) {
	if snap == nil {
		return
	}
	title := snap.Title
	if title == "" {
		title = "Untitled"
	}
	mode := "read-only"
	if snap.IsEditable {
		mode = "editable"
	}
	_, _ = fmt.Fprintln(w, sessionHeaderStyle.Render(fmt.Sprintf("🔗 %s (%s)", title, mode)))
	displayShareStatus(w, snap, now)
	if snap.PDFURL != "" {
		_, _ = fmt.Fprintln(w, sessionMetaStyle.Render("PDF: "+client.ResolveURL(snap.PDFURL)))
	}
	_, _ = fmt.Fprintln(w)
}

func displayShareStatus(w io.Writer, snap *internal.SharedSession, now time.Time) {
	if snap == nil {
		return
	}
	_, _ = fmt.Fprintln(w, sessionMetaStyle.Render(fmt.Sprintf("Views: %s • Last synced: %s • Expires: %s",
		humanize.Comma(int64(snap.AccessCount)), relativeTime(snap.LastSynced, now), expiryText(snap.ExpiresAt, now))))
}

// lockedWriter serializes writes coming from the sync goroutine and the
// input loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

var sharePostCmd = &cobra.Command{
	Use:   "post <token> <message>",
	Short: "Add a message to an editable shared session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := internal.Role(postRole)
		if !role.Valid() {
			return fmt.Errorf("invalid role %q (expected user, assistant or system)", postRole)
		}
		ctx := cmd.Context()
		store := internal.NewStore()
		syncer := internal.NewSynchronizer(store, newClient(), cfg.SyncInterval)
		syncer.Start(ctx, args[0])
		defer syncer.Stop()

		if err := waitLoaded(ctx, syncer); err != nil {
			return err
		}
		if msg := syncer.Err(); msg != "" {
			return fmt.Errorf("%s", msg)
		}
		if err := syncer.Post(ctx, role, args[1]); err != nil {
			if msg := internal.BackendMessage(err); msg != "" {
				return fmt.Errorf("%s: %w", msg, err)
			}
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Posted; the shared session now has %d message(s)\n", len(store.Messages()))
		return nil
	},
}

// waitLoaded blocks until the synchronizer's first fetch has finished
func waitLoaded(ctx context.Context, syncer *internal.Synchronizer) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for syncer.Loading() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// transcriptPrinter prints messages that were not shown before. A transcript
// that no longer extends what was shown is printed again from the start.
type transcriptPrinter struct {
	w io.Writer

	mu    sync.Mutex
	shown []internal.Message
}

func (p *transcriptPrinter) onState(st internal.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sameMessages(p.shown, st.Messages) {
		return
	}
	start := len(p.shown)
	if start > len(st.Messages) || !sameMessages(p.shown, st.Messages[:start]) {
		start = 0
		_, _ = fmt.Fprintln(p.w, dateStyle.Render("── transcript replaced ──"))
	}
	for i := start; i < len(st.Messages); i++ {
		displayMessage(p.w, i+1, st.Messages[i], len(st.Messages))
	}
	p.shown = st.Messages
}

func sameMessages(a, b []internal.Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Content != b[i].Content {
			return false
		}
	}
	return true
}

func expiryText(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

func init() {
	rootCmd.AddCommand(shareCmd)
	shareCmd.AddCommand(shareCreateCmd, shareInfoCmd, sharePDFCmd, shareWatchCmd, sharePostCmd)

	shareCreateCmd.Flags().BoolVar(&shareEditable, "editable", false, "Allow viewers to add messages")
	shareCreateCmd.Flags().IntVar(&shareExpires, "expires-hours", 0, "Hours until the link expires, 0 for never (defaults to CHATLINE_SHARE_EXPIRES_HOURS)")
	shareCreateCmd.Flags().StringVar(&shareTitle, "title", "", "Title shown to viewers")

	shareWatchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Polling interval (defaults to CHATLINE_SYNC_INTERVAL)")
	shareWatchCmd.Flags().BoolVar(&watchOnce, "once", false, "Print the transcript once and exit")

	sharePDFCmd.Flags().StringVarP(&pdfOutput, "out", "o", "", "Where to save the PDF")

	sharePostCmd.Flags().StringVar(&postRole, "role", "user", "Role of the posted message")
}
