package cmd

import (
	"path/filepath"
	"regexp"
	"testing"

	"github.com/iksnae/chatline/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesCommands(t *testing.T) {
	_, api := newCLIBackend(t)
	path := filepath.Join(testutil.CreateTempDir(t), "report.txt")
	testutil.WriteFile(t, path, []byte("revenue grew in the third quarter"))

	out, err := runCLI(t, "", withAPI(api, "files", "upload", path, "-d", "q3")...)
	require.NoError(t, err)
	m := regexp.MustCompile(`as file (\d+)`).FindStringSubmatch(out)
	require.Len(t, m, 2, "output: %s", out)
	id := m[1]

	out, err = runCLI(t, "", withAPI(api, "files", "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "report.txt")

	out, err = runCLI(t, "", withAPI(api, "files", "search", "third", "quarter")...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 file(s)")

	out, err = runCLI(t, "", withAPI(api, "files", "get", id, "--preview", "7")...)
	require.NoError(t, err)
	assert.Contains(t, out, "revenue…")
	assert.NotContains(t, out, "quarter")

	_, err = runCLI(t, "", withAPI(api, "files", "delete", id)...)
	require.NoError(t, err)
	out, err = runCLI(t, "", withAPI(api, "files", "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "No files found")
}

func TestFilesCommands_Errors(t *testing.T) {
	_, api := newCLIBackend(t)
	dir := testutil.CreateTempDir(t)
	image := filepath.Join(dir, "photo.png")
	testutil.WriteFile(t, image, []byte("png"))

	tests := []struct {
		name string
		args []string
	}{
		{name: "unsupported type", args: []string{"files", "upload", image}},
		{name: "bad id", args: []string{"files", "get", "abc"}},
		{name: "unknown file", args: []string{"files", "delete", "42"}},
		{name: "search without query", args: []string{"files", "search"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, "", withAPI(api, tt.args...)...)
			assert.Error(t, err)
		})
	}
}
