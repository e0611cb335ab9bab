package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/chatline/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so runs do not leak into
// each other through the package-level flag variables.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI runs the root command with args and stdin, returning its output
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// newCLIBackend starts a fake backend and points the configuration at a
// scratch export directory. The returned args select the backend.
func newCLIBackend(t *testing.T) (*testutil.FakeBackend, []string) {
	t.Helper()
	fb := testutil.NewFakeBackend(t)
	t.Setenv("CHATLINE_EXPORT_DIR", testutil.CreateTempDir(t))
	t.Setenv("CHATLINE_SYNC_INTERVAL", "1h")
	return fb, []string{"--api-url", fb.URL()}
}

func withAPI(api []string, args ...string) []string {
	return append(append([]string{}, args...), api...)
}
