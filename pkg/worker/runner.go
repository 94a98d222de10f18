package worker

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os/exec"
	"time"

	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/optimizer"
	"github.com/menuforge/menuforge/pkg/telemetry"
	"github.com/menuforge/menuforge/pkg/worker/protocol"
)

// InProcessRunner executes the optimizer in the calling process. Used by
// the one-shot CLI and by tests; the service uses ProcessRunner so the
// event loop never blocks on CPU-bound work.
type InProcessRunner struct{}

// Run implements Runner.
func (InProcessRunner) Run(ctx context.Context, job *Job) ([]menu.MenuPlan, error) {
	seed := job.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	archive, err := optimizer.Optimize(ctx, job.Dishes, job.Constraints, job.Config, rng)
	if err != nil {
		return nil, err
	}
	return archive.Plans(), nil
}

// ProcessRunner executes each job in a fresh planworker subprocess,
// speaking the JSON-over-stdio protocol.
type ProcessRunner struct {
	binPath string
	log     *telemetry.Logger
}

// NewProcessRunner creates a runner spawning the worker binary at
// binPath.
func NewProcessRunner(binPath string, log *telemetry.Logger) *ProcessRunner {
	return &ProcessRunner{
		binPath: binPath,
		log:     log.Component("worker"),
	}
}

// Run implements Runner. The subprocess gets the job on stdin and must
// reply with exactly one RESULT or ERROR message on stdout.
func (r *ProcessRunner) Run(ctx context.Context, job *Job) ([]menu.MenuPlan, error) {
	cmd := exec.Command(r.binPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, menu.NewInternalError("open worker stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, menu.NewInternalError("open worker stdout", err)
	}
	cmd.Stderr = r.stderrWriter(job.TaskID)

	if err := cmd.Start(); err != nil {
		return nil, menu.NewInternalError("start worker process", err)
	}

	encodeErr := protocol.NewEncoder(stdin).EncodeJob(&protocol.JobMessage{
		TaskID:      job.TaskID,
		Dishes:      job.Dishes,
		Constraints: job.Constraints,
		Config:      job.Config,
		Seed:        job.Seed,
	})
	_ = stdin.Close()
	if encodeErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, menu.NewInternalError("send job to worker", encodeErr)
	}

	result, decodeErr := protocol.NewDecoder(stdout).DecodeOutcome()

	if waitErr := cmd.Wait(); waitErr != nil && decodeErr == nil && result == nil {
		return nil, menu.NewInternalError(
			fmt.Sprintf("worker exited abnormally for task %s", job.TaskID), waitErr)
	}

	if decodeErr != nil {
		return nil, decodeErr
	}
	return result.Plans, nil
}

// stderrWriter funnels the subprocess's stderr into the service log.
func (r *ProcessRunner) stderrWriter(taskID string) io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		r.log.Debug().Str("task_id", taskID).Msg(string(p))
		return len(p), nil
	})
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}
