package finalizer

import (
	"context"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

// Loop is anything the Supervisor can run to completion or failure.
// Both ParamsFetcher and Finalizer satisfy it via their Run methods.
type Loop interface {
	Run(ctx context.Context) error
}

// Supervisor spawns the params-fetcher and finalizer loops and
// terminates as soon as either exits, awaiting both concurrently and
// surfacing the first error observed. Implemented with errgroup.Group.
type Supervisor struct {
	paramsFetcher *ParamsFetcher
	finalizer     *Finalizer
}

// NewSupervisor constructs a Supervisor over the two loops.
func NewSupervisor(paramsFetcher *ParamsFetcher, finalizer *Finalizer) *Supervisor {
	return &Supervisor{paramsFetcher: paramsFetcher, finalizer: finalizer}
}

// Run blocks until one loop returns, cancelling the other and
// returning the first error observed. There is no in-process graceful
// shutdown path; callers are expected to exit the process on a non-nil
// return and rely on external supervision to restart it.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.paramsFetcher.Run(gctx)
		log.Error("params fetcher loop exited", "err", err)
		return err
	})
	g.Go(func() error {
		err := s.finalizer.Run(gctx)
		log.Error("finalizer loop exited", "err", err)
		return err
	})

	return g.Wait()
}
