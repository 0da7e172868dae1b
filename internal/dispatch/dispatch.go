package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/qdispatch/qdispatch/internal/client"
)

var (
	ErrInvalidRequest      = errors.New("invalid dispatch request")
	ErrScriptNotFound      = errors.New("script file not found")
	ErrClientNotFound      = errors.New("query client binary not found")
	ErrProcessLaunchFailed = errors.New("query client failed to launch")
)

// Request holds the parameters for one query dispatch
type Request struct {
	ProjectID        string
	DatasetID        string
	JobID            string
	ScriptPath       string
	StdoutPath       string
	StderrPath       string
	CollectOutput    bool
	DestinationTable string
}

func (r Request) validate() error {
	required := map[string]string{
		"project id":  r.ProjectID,
		"dataset id":  r.DatasetID,
		"job id":      r.JobID,
		"script path": r.ScriptPath,
		"stdout path": r.StdoutPath,
		"stderr path": r.StderrPath,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%w: %s is empty", ErrInvalidRequest, name)
		}
	}

	if r.CollectOutput && r.DestinationTable == "" {
		return fmt.Errorf(
			"%w: destination table is required when collecting output",
			ErrInvalidRequest,
		)
	}

	return nil
}

func (r Request) invocation() client.Invocation {
	return client.Invocation{
		ProjectID:        r.ProjectID,
		DatasetID:        r.DatasetID,
		JobID:            r.JobID,
		CollectOutput:    r.CollectOutput,
		DestinationTable: r.DestinationTable,
	}
}

// Outcome describes one completed dispatch. A non-zero ExitCode is
// reported here rather than as an error so callers can decide on
// retries or alerting themselves
type Outcome struct {
	JobID      string        `json:"jobId"`
	ExitCode   int           `json:"exitCode"`
	Started    time.Time     `json:"started"`
	Finished   time.Time     `json:"finished"`
	Elapsed    time.Duration `json:"elapsedNs"`
	StdoutPath string        `json:"stdoutPath"`
	StderrPath string        `json:"stderrPath"`
	StderrTail string        `json:"stderrTail,omitempty"`
}

// stderrTailLimit caps how much of the stderr file is read back
// into the outcome
const stderrTailLimit = 4 * 1024

// Dispatcher runs SQL scripts through an external query client
type Dispatcher struct {
	client client.Client
}

// NewDispatcher creates a new Dispatcher for the given query client
func NewDispatcher(queryClient client.Client) *Dispatcher {
	return &Dispatcher{
		client: queryClient,
	}
}

// Dispatch runs one SQL script through the query client. The script file
// is fed byte-for-byte to the client's standard input and the client's
// stdout and stderr streams are redirected to the requested files,
// truncating them if they exist. Dispatch blocks until the client
// terminates and reports its exit status in the returned Outcome; an
// error is only returned when the process could not be run at all
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Outcome, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	binary, err := exec.LookPath(d.client.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, d.client.Name())
	}

	script, err := os.Open(req.ScriptPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, req.ScriptPath)
		}
		return nil, err
	}
	defer script.Close()

	stdout, err := os.Create(req.StdoutPath)
	if err != nil {
		return nil, err
	}
	defer stdout.Close()

	stderr, err := os.Create(req.StderrPath)
	if err != nil {
		return nil, err
	}
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, binary, d.client.Args(req.invocation())...)
	cmd.Stdin = script
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessLaunchFailed, err)
	}

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, err
		}
		exitCode = exitErr.ExitCode()
	}
	finished := time.Now()

	// flush redirections before reading the tail back
	stdout.Close()
	stderr.Close()

	tail, err := readTail(req.StderrPath, stderrTailLimit)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		JobID:      req.JobID,
		ExitCode:   exitCode,
		Started:    started,
		Finished:   finished,
		Elapsed:    finished.Sub(started),
		StdoutPath: req.StdoutPath,
		StderrPath: req.StderrPath,
		StderrTail: tail,
	}, nil
}

// readTail returns up to limit bytes from the end of the file
func readTail(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	offset := int64(0)
	if info.Size() > limit {
		offset = info.Size() - limit
	}
	if _, err := f.Seek(offset, 0); err != nil {
		return "", err
	}

	buf, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}

	return string(buf), nil
}
