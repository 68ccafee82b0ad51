package csdl

import (
	"context"
	"fmt"
	"sync"
)

// Lifecycle phases
const (
	PhaseFinalize     = "finalize"
	PhasePreFinalize  = "pre " + PhaseFinalize
	PhasePostFinalize = "post " + PhaseFinalize
)

// Task is a unit of deferred work registered against a lifecycle phase
type Task func(ctx context.Context) error

// Lifecycle is an ordered task queue per named phase
type Lifecycle struct {
	mu     sync.Mutex
	queues map[string][]Task
}

// NewLifecycle creates an empty lifecycle
func NewLifecycle() *Lifecycle {
	return &Lifecycle{queues: make(map[string][]Task)}
}

// On registers a task for a phase. Tasks may register further tasks while running.
func (l *Lifecycle) On(phase string, task Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queues[phase] = append(l.queues[phase], task)
}

// Pending returns the number of tasks waiting in a phase
func (l *Lifecycle) Pending(phase string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queues[phase])
}

// next removes the first task of a phase
func (l *Lifecycle) next(phase string) (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	queue := l.queues[phase]
	if len(queue) == 0 {
		return nil, false
	}
	task := queue[0]
	l.queues[phase] = queue[1:]
	return task, true
}

// Emit drains "pre name", "name" and "post name" in that order, each in registration
// order, and repeats until all three are empty. The first failing task stops the drain.
func (l *Lifecycle) Emit(ctx context.Context, name string) error {
	phases := []string{"pre " + name, name, "post " + name}
	for {
		ran := false
		for _, phase := range phases {
			for {
				task, ok := l.next(phase)
				if !ok {
					break
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				ran = true
				if err := runTask(ctx, task); err != nil {
					return err
				}
			}
		}
		if !ran {
			return nil
		}
	}
}

// runTask converts a panicking task into an error
func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}
