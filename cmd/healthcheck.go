package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that chatline can reach the backend and write exports",
	Long: `Check the health of chatline by verifying:
  • Configuration loads
  • The backend API answers
  • Uploaded files can be listed
  • The export directory is writable

This command is useful for debugging connectivity, especially in CI/CD environments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		check := func(step, ok string, err error) {
			if err != nil {
				failed++
				_, _ = fmt.Fprintln(out, errorStyle.Render("❌ "+step+":"), err)
				return
			}
			_, _ = fmt.Fprintln(out, successStyle.Render("✅ "+ok))
		}

		_, _ = fmt.Fprintln(out, sectionStyle.Render("🔍 Chatline Health Check"))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 1: Configuration"))
		_, _ = fmt.Fprintf(out, "   API: %s\n", cfg.APIURL)
		_, _ = fmt.Fprintf(out, "   Export directory: %s\n", cfg.ExportDir)
		_, _ = fmt.Fprintf(out, "   Sync interval: %s\n", cfg.SyncInterval)
		_, _ = fmt.Fprintln(out)

		client := newClient()
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 2: Backend sessions"))
		sessions, err := client.ListSessions(cmd.Context())
		check("Failed to list sessions", fmt.Sprintf("Backend reachable, %d session(s)", len(sessions)), err)
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 3: Backend files"))
		files, err := client.ListFiles(cmd.Context())
		check("Failed to list files", fmt.Sprintf("%d uploaded file(s)", len(files)), err)
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 4: Export directory"))
		check("Export directory is not writable", "Export directory writable", probeWritable(cfg.ExportDir))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		if failed > 0 {
			_, _ = fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("❌ Health check failed (%d problem(s))", failed)))
			return fmt.Errorf("health check failed")
		}
		_, _ = fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		return nil
	},
}

// probeWritable creates dir if needed and writes a scratch file into it
func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".chatline-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
