package workers

import (
	"context"
	"devmatch/contract"
	"devmatch/domain"
	"log/slog"
)

// Ensure *PersistUnitWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*PersistUnitWorker)(nil)

// PersistJob is a validated send waiting for the store.
type PersistJob struct {
	Command domain.SendMessageCommand
}

// PersistResult goes back to the dispatcher loop, which owns delivery.
type PersistResult struct {
	Command domain.SendMessageCommand
	Message domain.Message
	Err     error
}

type PersistFunc func(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)

// PersistUnitWorker takes jobs off the shared queue and runs them against the store,
// so that a slow write never holds the dispatcher loop.
// With several units, two rapid sends from the same user may be stored out of
// invocation order; stored timestamps stay the reference order.
type PersistUnitWorker struct {
	jobs    <-chan PersistJob
	results chan<- PersistResult
	persist PersistFunc
	log     *slog.Logger
}

func NewPersistUnitWorker(
	jobs <-chan PersistJob,
	results chan<- PersistResult,
	persist PersistFunc,
	log *slog.Logger) *PersistUnitWorker {
	return &PersistUnitWorker{
		jobs:    jobs,
		results: results,
		persist: persist,
		log:     log,
	}
}

func (w *PersistUnitWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case job, ok := <-w.jobs:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			// The originating connection may close meanwhile: the write still happens.
			message, err := w.persist(ctx, job.Command)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case w.results <- PersistResult{Command: job.Command, Message: message, Err: err}:
			}
		}
	}
}
