// Package locking provides keyed mutual exclusion for task and workflow operations.
package locking

import (
	"context"
	"errors"
	"sync"
)

var ErrLocked = errors.New("resource is locked")

// Release frees a lock obtained from a Locker.
type Release func(ctx context.Context) error

// Locker grants exclusive ownership of a key without waiting.
type Locker interface {
	// TryLock acquires key or returns ErrLocked when someone else holds it.
	TryLock(ctx context.Context, key string) (Release, error)
}

// MemoryLocker serialises work inside a single process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}

	l.held[key] = struct{}{}

	var once sync.Once

	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})

		return nil
	}, nil
}

// TaskKey is the lock key guarding a single task.
func TaskKey(taskID string) string {
	return "task:" + taskID
}

// EmployeeKey is the lock key guarding workflow creation for one employee and kind.
func EmployeeKey(employeeID, kind string) string {
	return "employee:" + employeeID + ":" + kind
}
