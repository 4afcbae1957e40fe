package pipeline

import (
	"context"
)

// Pool bounds how many encoder invocations run at once so ffmpeg work
// never starves the poll loops of other concurrent jobs.
type Pool struct {
	sem chan struct{}
}

func NewPool(maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{sem: make(chan struct{}, maxWorkers)}
}

// Run executes fn once a worker slot is free.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
		return fn()
	case <-ctx.Done():
		return ctx.Err()
	}
}
