package cmd

import (
	"net/http"
	"strings"
	"testing"
)

func TestHealthcheckCommand(t *testing.T) {
	_, api := newCLIBackend(t)

	out, err := runCLI(t, "", withAPI(api, "healthcheck")...)
	if err != nil {
		t.Fatalf("healthcheck failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Health check passed") {
		t.Errorf("healthcheck output = %q", out)
	}
}

func TestHealthcheckCommand_BackendFailure(t *testing.T) {
	fb, api := newCLIBackend(t)
	fb.Fail("/file/", http.StatusServiceUnavailable, "parser offline")

	out, err := runCLI(t, "", withAPI(api, "healthcheck")...)
	if err == nil {
		t.Fatal("healthcheck should fail when the backend does")
	}
	if !strings.Contains(out, "1 problem(s)") {
		t.Errorf("healthcheck output = %q", out)
	}
}

func TestHealthcheckCommandExists(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "healthcheck" {
			found = true
			break
		}
	}

	if !found {
		t.Error("healthcheck command not found in root command")
	}
}
