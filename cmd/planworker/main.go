// Package main implements the planworker binary: a single-shot
// optimizer process that reads one job as JSON over stdin, runs the
// evolutionary planner, and writes the result or a classified error
// back over stdout.
//
// The process always exits 0 after writing a protocol message; the
// parent judges the outcome from the message, not the exit code.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/menuforge/menuforge/pkg/worker"
	"github.com/menuforge/menuforge/pkg/worker/protocol"
)

func main() {
	encoder := protocol.NewEncoder(os.Stdout)
	decoder := protocol.NewDecoder(os.Stdin)

	job, err := decoder.DecodeJob()
	if err != nil {
		// No job id yet, so the error message carries an empty one.
		if encErr := encoder.EncodeError(protocol.NewErrorMessage("", fmt.Errorf("decode job: %w", err))); encErr != nil {
			fmt.Fprintln(os.Stderr, "planworker:", encErr)
			os.Exit(1)
		}
		return
	}

	plans, err := worker.InProcessRunner{}.Run(context.Background(), &worker.Job{
		TaskID:      job.TaskID,
		Dishes:      job.Dishes,
		Constraints: job.Constraints,
		Config:      job.Config,
		Seed:        job.Seed,
	})
	if err != nil {
		if encErr := encoder.EncodeError(protocol.NewErrorMessage(job.TaskID, err)); encErr != nil {
			fmt.Fprintln(os.Stderr, "planworker:", encErr)
			os.Exit(1)
		}
		return
	}

	if err := encoder.EncodeResult(&protocol.ResultMessage{TaskID: job.TaskID, Plans: plans}); err != nil {
		fmt.Fprintln(os.Stderr, "planworker:", err)
		os.Exit(1)
	}
}
