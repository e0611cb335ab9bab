package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/chatline/testutil"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantErr: false,
		},
		{
			name:    "help flag",
			args:    []string{"--help"},
			wantErr: false,
		},
		{
			name:    "nonexistent command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, "", tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRootCommand_Version(t *testing.T) {
	out, err := runCLI(t, "", "--version")
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("--version output = %q, want it to contain %q", out, version)
	}
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	missing := filepath.Join(testutil.CreateTempDir(t), "missing.env")
	_, err := runCLI(t, "", "sessions", "--config", missing)
	if err == nil {
		t.Error("a missing --config file should fail")
	}
}

func TestRootCommand_ConfigFile(t *testing.T) {
	fb, _ := newCLIBackend(t)
	envPath := filepath.Join(testutil.CreateTempDir(t), "chatline.env")
	testutil.WriteFile(t, envPath, []byte("CHATLINE_API_URL="+fb.URL()+"\n"))
	// godotenv never overrides a variable that is already set, even to "".
	t.Setenv("CHATLINE_API_URL", "")
	_ = os.Unsetenv("CHATLINE_API_URL")

	out, err := runCLI(t, "", "sessions", "--config", envPath)
	if err != nil {
		t.Fatalf("sessions with --config failed: %v", err)
	}
	if !strings.Contains(out, "No sessions found") {
		t.Errorf("output = %q", out)
	}
}

func TestRootCommand_VerboseFlag(t *testing.T) {
	_, api := newCLIBackend(t)
	if _, err := runCLI(t, "", withAPI(api, "--verbose", "sessions")...); err != nil {
		t.Errorf("--verbose sessions failed: %v", err)
	}
}
