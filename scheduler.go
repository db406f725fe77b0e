package kdsplit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	kderrors "github.com/tamirms/kdsplit/errors"
	"github.com/tamirms/kdsplit/internal/cosort"
	"github.com/tamirms/kdsplit/internal/workqueue"
)

// queueCapacityMultiplier sizes the initial queue backing array per worker.
const queueCapacityMultiplier = 2

// workUnit is an exclusive handle on rows [lo, hi) of every column.
// Live units never overlap: a unit is either resolved as a leaf or consumed
// by a split that hands its rows to exactly two children.
type workUnit struct {
	lo, hi int
	dim    int // column the parent split on, NoDimension for the root
	depth  int
	poison bool
}

func (u workUnit) rows() int { return u.hi - u.lo }

// scheduler runs the recursive split on a fixed pool of workers.
//
// pending counts units that exist but are not yet resolved as leaves. It
// starts at 1 for the root, a split adds one (two children replace the
// parent) and a leaf subtracts one. The worker whose decrement reaches zero
// knows no unit remains anywhere and shuts the pool down by sending one
// poison unit to every other worker.
type scheduler struct {
	cols     [][]int32
	workers  int
	leafSize int
	policy   SplitPolicy

	queue   *workqueue.Queue[workUnit]
	pending atomic.Int64
	splits  atomic.Int64

	// leaves[i] is only written by worker i, and read after Wait.
	leaves [][]Leaf

	group    *errgroup.Group
	groupCtx context.Context
}

func newScheduler(cols [][]int32, workers int, cfg *config) *scheduler {
	return &scheduler{
		cols:     cols,
		workers:  workers,
		leafSize: cfg.leafSize,
		policy:   cfg.policy,
		queue:    workqueue.New[workUnit](workers * queueCapacityMultiplier),
		leaves:   make([][]Leaf, workers),
	}
}

// seed submits the root unit. It must be called before start.
func (s *scheduler) seed(root workUnit) error {
	s.pending.Store(1)
	return s.queue.Push(root)
}

// start launches the workers. A worker error cancels groupCtx, which
// unblocks every other worker waiting on the queue.
func (s *scheduler) start(ctx context.Context) {
	s.group, s.groupCtx = errgroup.WithContext(ctx)
	for id := range s.workers {
		s.group.Go(func() error {
			return s.runWorker(id)
		})
	}
}

// wait blocks until every worker has exited, then closes the queue.
func (s *scheduler) wait() error {
	err := s.group.Wait()
	s.queue.Close()
	return err
}

func (s *scheduler) isLeaf(rows int) bool {
	return rows < s.leafSize || rows <= 1
}

// runWorker is the worker loop: receive a unit, then either record it as a
// leaf or split it and queue both halves.
func (s *scheduler) runWorker(id int) error {
	var sorter cosort.Sorter
	view := make([][]int32, 0, len(s.cols))
	var leaves []Leaf
	defer func() { s.leaves[id] = leaves }()

	for {
		select {
		case <-s.groupCtx.Done():
			return s.groupCtx.Err()
		default:
		}

		u, err := s.queue.Pop(s.groupCtx)
		if err != nil {
			if errors.Is(err, kderrors.ErrQueueClosed) {
				return fmt.Errorf("%w: worker %d: %w", kderrors.ErrSchedulerFault, id, err)
			}
			return err
		}
		if u.poison {
			return nil
		}

		if s.isLeaf(u.rows()) {
			leaves = append(leaves, Leaf{Offset: u.lo, Rows: u.rows(), Dim: u.dim, Depth: u.depth})
			remaining := s.pending.Add(-1)
			if remaining < 0 {
				return fmt.Errorf("%w: pending counter underflow (%d)", kderrors.ErrSchedulerFault, remaining)
			}
			if remaining == 0 {
				return s.broadcastShutdown()
			}
			continue
		}

		s.pending.Add(1)
		left, right, err := s.split(&sorter, view, u)
		if err != nil {
			return err
		}
		if err := s.push(left, right); err != nil {
			return err
		}
		s.splits.Add(1)
	}
}

// split co-sorts the unit's rows on the policy's column and halves it.
func (s *scheduler) split(sorter *cosort.Sorter, view [][]int32, u workUnit) (left, right workUnit, err error) {
	view = rowView(view, s.cols, u.lo, u.hi)
	dim := s.policy.Next(view, u.dim)
	if dim < 0 || dim >= len(view) {
		return left, right, fmt.Errorf("%w: policy chose %d of %d columns", kderrors.ErrInvalidDimension, dim, len(view))
	}
	sorter.CoSort(view, dim)

	mid := u.lo + u.rows()/2
	left = workUnit{lo: u.lo, hi: mid, dim: dim, depth: u.depth + 1}
	right = workUnit{lo: mid, hi: u.hi, dim: dim, depth: u.depth + 1}
	return left, right, nil
}

func (s *scheduler) push(units ...workUnit) error {
	for _, u := range units {
		if err := s.queue.Push(u); err != nil {
			return fmt.Errorf("%w: enqueue: %w", kderrors.ErrSchedulerFault, err)
		}
	}
	return nil
}

// broadcastShutdown sends one poison unit per remaining worker. The caller
// exits without receiving, so workers-1 units reach everyone else.
func (s *scheduler) broadcastShutdown() error {
	for range s.workers - 1 {
		if err := s.push(workUnit{poison: true}); err != nil {
			return err
		}
	}
	return nil
}

// drain empties the queue after shutdown. Every worker consumed exactly one
// poison unit, so anything left over means units were lost.
func (s *scheduler) drain() error {
	leftover := 0
	for {
		u, ok, err := s.queue.TryPop()
		if !ok {
			// The queue is closed, so an empty queue reports ErrQueueClosed.
			if err != nil && !errors.Is(err, kderrors.ErrQueueClosed) {
				return fmt.Errorf("%w: drain: %w", kderrors.ErrSchedulerFault, err)
			}
			break
		}
		if !u.poison {
			leftover++
		}
	}
	if leftover > 0 {
		return fmt.Errorf("%w: %d units queued after shutdown", kderrors.ErrSchedulerFault, leftover)
	}
	return nil
}
