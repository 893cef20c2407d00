package editor

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Task is a unit of deferred work.
type Task func()

// Scheduler is a cooperative task queue. Work that would stall an interactive
// frame is posted here and run later from the host's idle hook via RunIdle.
type Scheduler struct {
	mu    sync.Mutex
	tasks []Task
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Post(t Task) {
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// RunIdle runs queued tasks in FIFO order until the queue is empty or budget is
// spent. At least one task runs when any is queued. It returns the number run.
func (s *Scheduler) RunIdle(budget time.Duration) int {
	deadline := time.Now().Add(budget)
	n := 0
	for {
		t, ok := s.pop()
		if !ok {
			return n
		}
		t()
		n++
		if !time.Now().Before(deadline) {
			return n
		}
	}
}

// Drain runs every queued task, including tasks posted while draining.
func (s *Scheduler) Drain() int {
	n := 0
	for {
		t, ok := s.pop()
		if !ok {
			return n
		}
		t()
		n++
	}
}

func (s *Scheduler) pop() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return nil, false
	}
	t := s.tasks[0]
	s.tasks[0] = nil
	s.tasks = s.tasks[1:]
	return t, true
}

// forEachChunk calls fn over [0,n) in windows of size, yielding the processor
// between windows so readers waiting on the store can run.
func forEachChunk(ctx context.Context, n, size int, fn func(lo, hi int)) error {
	for lo := 0; lo < n; lo += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(lo, min(lo+size, n))
		runtime.Gosched()
	}
	return nil
}
