package dispatch

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qdispatch/qdispatch/internal/client"
)

// stubClient runs an arbitrary local binary in place of a real
// warehouse client
type stubClient struct {
	name string
	args []string
}

func (s *stubClient) Name() string {
	return s.name
}

func (s *stubClient) Args(inv client.Invocation) []string {
	return s.args
}

func validRequest(t *testing.T, script string) Request {
	t.Helper()
	dir := t.TempDir()

	scriptPath := filepath.Join(dir, "query.sql")
	err := ioutil.WriteFile(scriptPath, []byte(script), 0644)
	require.Nil(t, err)

	return Request{
		ProjectID:  "benchmark-project",
		DatasetID:  "tpch",
		JobID:      "job-1",
		ScriptPath: scriptPath,
		StdoutPath: filepath.Join(dir, "stdout.log"),
		StderrPath: filepath.Join(dir, "stderr.log"),
	}
}

func Test_Dispatch_HappyPath(t *testing.T) {
	ctx := context.Background()

	// cat echoes its stdin, so the stdout file must hold the exact
	// bytes of the script
	dispatcher := NewDispatcher(&stubClient{name: "cat"})
	req := validRequest(t, "SELECT 1;")

	outcome, err := dispatcher.Dispatch(ctx, req)
	require.Nil(t, err)

	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, "job-1", outcome.JobID)

	stdout, err := ioutil.ReadFile(req.StdoutPath)
	require.Nil(t, err)
	assert.Equal(t, "SELECT 1;", string(stdout))

	stderr, err := ioutil.ReadFile(req.StderrPath)
	require.Nil(t, err)
	assert.Empty(t, string(stderr))
	assert.Empty(t, outcome.StderrTail)
}

func Test_Dispatch_TruncatesOutputFiles(t *testing.T) {
	ctx := context.Background()

	dispatcher := NewDispatcher(&stubClient{name: "cat"})
	req := validRequest(t, "SELECT 2;")

	err := ioutil.WriteFile(req.StdoutPath, []byte("stale stdout from a previous run"), 0644)
	require.Nil(t, err)
	err = ioutil.WriteFile(req.StderrPath, []byte("stale stderr from a previous run"), 0644)
	require.Nil(t, err)

	_, err = dispatcher.Dispatch(ctx, req)
	require.Nil(t, err)

	stdout, err := ioutil.ReadFile(req.StdoutPath)
	require.Nil(t, err)
	assert.Equal(t, "SELECT 2;", string(stdout))

	stderr, err := ioutil.ReadFile(req.StderrPath)
	require.Nil(t, err)
	assert.Empty(t, string(stderr))
}

func Test_Dispatch_ReportsExitCode(t *testing.T) {
	ctx := context.Background()

	dispatcher := NewDispatcher(&stubClient{
		name: "sh",
		args: []string{"-c", "exit 3"},
	})

	outcome, err := dispatcher.Dispatch(ctx, validRequest(t, "SELECT 1;"))
	require.Nil(t, err)

	assert.Equal(t, 3, outcome.ExitCode)
}

func Test_Dispatch_CapturesStderrTail(t *testing.T) {
	ctx := context.Background()

	dispatcher := NewDispatcher(&stubClient{
		name: "sh",
		args: []string{"-c", "echo 'Error: table not found' >&2; exit 1"},
	})
	req := validRequest(t, "SELECT * FROM missing;")

	outcome, err := dispatcher.Dispatch(ctx, req)
	require.Nil(t, err)

	assert.Equal(t, 1, outcome.ExitCode)
	assert.Contains(t, outcome.StderrTail, "Error: table not found")

	stderr, err := ioutil.ReadFile(req.StderrPath)
	require.Nil(t, err)
	assert.Contains(t, string(stderr), "Error: table not found")
}

func Test_Dispatch_BlocksUntilClientTerminates(t *testing.T) {
	ctx := context.Background()

	dispatcher := NewDispatcher(&stubClient{
		name: "sh",
		args: []string{"-c", "sleep 0.2"},
	})

	started := time.Now()
	outcome, err := dispatcher.Dispatch(ctx, validRequest(t, "SELECT 1;"))
	require.Nil(t, err)

	assert.GreaterOrEqual(t, int64(time.Since(started)), int64(200*time.Millisecond))
	assert.GreaterOrEqual(t, int64(outcome.Elapsed), int64(200*time.Millisecond))
}

func Test_Dispatch_ScriptNotFound(t *testing.T) {
	ctx := context.Background()

	dispatcher := NewDispatcher(&stubClient{name: "cat"})
	req := validRequest(t, "SELECT 1;")
	req.ScriptPath = filepath.Join(t.TempDir(), "missing.sql")

	_, err := dispatcher.Dispatch(ctx, req)
	assert.ErrorIs(t, err, ErrScriptNotFound)
}

func Test_Dispatch_ClientNotFound(t *testing.T) {
	ctx := context.Background()

	dispatcher := NewDispatcher(&stubClient{name: "no-such-warehouse-client"})

	_, err := dispatcher.Dispatch(ctx, validRequest(t, "SELECT 1;"))
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func Test_Dispatch_MissingDestinationTable(t *testing.T) {
	ctx := context.Background()

	dispatcher := NewDispatcher(&stubClient{name: "cat"})
	req := validRequest(t, "SELECT 1;")
	req.CollectOutput = true
	req.DestinationTable = ""

	_, err := dispatcher.Dispatch(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// validation rejects the request before any file is touched
	_, err = os.Stat(req.StdoutPath)
	assert.True(t, os.IsNotExist(err))
}

func Test_Dispatch_MissingJobID(t *testing.T) {
	ctx := context.Background()

	dispatcher := NewDispatcher(&stubClient{name: "cat"})
	req := validRequest(t, "SELECT 1;")
	req.JobID = ""

	_, err := dispatcher.Dispatch(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
