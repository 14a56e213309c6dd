package db

import (
	"context"
	"database/sql"
	"time"
)

type TxFn func(ctx context.Context, tx *sql.Tx) error

// Observer is told how long each job took and whether it failed.
type Observer func(d time.Duration, err error)

type Option func(*Worker)

// WithQueueSize sets the job buffer. Values < 1 are ignored.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(w *Worker) { w.observe = o }
}

// Worker runs every write transaction on one goroutine so sqlite never sees
// two concurrent writers.
type Worker struct {
	db        *sql.DB
	jobs      chan job
	done      chan struct{}
	queueSize int
	observe   Observer
}

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

func NewWorker(db *sql.DB, opts ...Option) *Worker {
	w := &Worker{
		db:        db,
		done:      make(chan struct{}),
		queueSize: 256,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.jobs = make(chan job, w.queueSize)
	go w.loop()
	return w
}

func (w *Worker) Close() {
	close(w.jobs)
	<-w.done
}

func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)
	j := job{ctx: ctx, fn: fn, ch: ch}

	select {
	case w.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	// If ctx ends first the transaction still completes; its result lands in
	// the buffered ch and is dropped.
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		start := time.Now()
		err := w.run(j)
		if w.observe != nil {
			w.observe(time.Since(start), err)
		}
		j.ch <- err
	}
}

func (w *Worker) run(j job) error {
	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		return err
	}
	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
