package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackfish212/remotefs/internal/devserver"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCLI(t *testing.T) (string, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/alpha/docs", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/alpha/docs/readme.md", []byte("# hello\n"), 0o644))
	srv := httptest.NewServer(devserver.New(fs, devserver.Options{Accounts: gin.Accounts{"ada": "pw"}}).Handler())
	t.Cleanup(srv.Close)

	for _, k := range []string{"REMOTEFS_URL", "REMOTEFS_USER", "REMOTEFS_PASSWORD", "REMOTEFS_PROTOCOL",
		"REMOTEFS_PROJECT", "REMOTEFS_SCOPE", "REMOTEFS_VIRTUAL_PREFIXES", "REMOTEFS_LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	t.Setenv("REMOTEFS_STATE_DIR", filepath.Join(t.TempDir(), "state"))
	t.Setenv("REMOTEFS_SECRET", "test-secret")
	t.Setenv("REMOTEFS_LOG_LEVEL", "error")
	return srv.URL, fs
}

// run executes one CLI invocation and returns its stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLISession(t *testing.T) {
	url, fs := setupCLI(t)

	out, err := run(t, "", "connect", url+"/files/alpha/", "-u", "ada", "-p", "pw")
	require.NoError(t, err, out)
	assert.Contains(t, out, "connected to ada@")
	assert.NotContains(t, out, "pw")

	out, err = run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "[alpha]")

	out, err = run(t, "", "ls", "/docs")
	require.NoError(t, err)
	assert.Equal(t, "readme.md\n", out)

	out, err = run(t, "quarterly numbers", "put", "-", "/docs/q1.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "/docs/q1.txt")
	data, err := afero.ReadFile(fs, "/alpha/docs/q1.txt")
	require.NoError(t, err)
	assert.Equal(t, "quarterly numbers", string(data))

	out, err = run(t, "", "cat", "/docs/q1.txt")
	require.NoError(t, err)
	assert.Equal(t, "quarterly numbers", out)

	_, err = run(t, "", "mkdir", "/docs/archive")
	require.NoError(t, err)
	_, err = run(t, "", "mv", "/docs/q1.txt", "/docs/q1-final.txt")
	require.NoError(t, err)
	_, err = run(t, "", "rm", "/docs/readme.md")
	require.NoError(t, err)

	out, err = run(t, "", "ls", "/docs")
	require.NoError(t, err)
	assert.Equal(t, "archive/\nq1-final.txt\n", out)

	out, err = run(t, "", "stat", "/docs/q1-final.txt")
	require.NoError(t, err)
	assert.Contains(t, out, `"source": "remote"`)

	out, err = run(t, "", "disconnect")
	require.NoError(t, err)
	assert.Contains(t, out, "disconnected")

	_, err = run(t, "", "ls")
	assert.Error(t, err)
}

func TestCLIConnectRejected(t *testing.T) {
	url, _ := setupCLI(t)
	_, err := run(t, "", "connect", url, "-u", "ada", "-p", "nope", "--project", "alpha")
	assert.Error(t, err)

	_, err = run(t, "", "ls")
	assert.Error(t, err, "nothing was stored")
}

func TestCLIVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "remotefs version")
}
