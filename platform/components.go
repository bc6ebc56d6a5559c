// Package platform holds the standard built-in components a host registers
// alongside its extensions, and the glue that exposes a running hierarchy
// over HTTP and Prometheus.
package platform

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danpasecinic/nest"
	"github.com/danpasecinic/nest/config"
)

// ServerIdentity describes this server. It lives at platform scope.
type ServerIdentity struct {
	ID       string
	HomePath string
	DataPath string
	Started  time.Time
}

// ProcessInfo describes the current process. It lives at process scope.
type ProcessInfo struct {
	Index      int
	PID        int
	TempPath   string
	SharedPath string
}

// Builtins registers ServerIdentity, ProcessInfo and TaskTracker at their
// scopes.
func Builtins() []nest.Option {
	return []nest.Option{
		nest.WithBuiltins(nest.ScopePlatform, registerIdentity),
		nest.WithBuiltins(nest.ScopeProcess, registerProcessInfo),
		nest.WithBuiltins(nest.ScopeTask, registerTaskTracker),
	}
}

func registerIdentity(c *nest.Container) error {
	props, err := nest.Resolve[config.Props](c)
	if err != nil {
		return err
	}

	id := props.Get(config.ServerID, "")
	if id == "" {
		id = uuid.NewString()
	}

	return nest.Register(c, &ServerIdentity{
		ID:       id,
		HomePath: props.Get(config.PathHome, ""),
		DataPath: props.Get(config.PathData, ""),
		Started:  time.Now(),
	})
}

func registerProcessInfo(c *nest.Container) error {
	props, err := nest.Resolve[config.Props](c)
	if err != nil {
		return err
	}

	return nest.Register(c, &ProcessInfo{
		Index:      props.Int(config.ProcessIndex, 0),
		PID:        os.Getpid(),
		TempPath:   props.Get(config.PathTemp, os.TempDir()),
		SharedPath: props.Get(config.PathShared, ""),
	})
}

func registerTaskTracker(c *nest.Container) error {
	logger := nest.ResolveOptional[*zap.Logger](c).OrElse(zap.NewNop())
	return nest.Register(c, NewTaskTracker(logger))
}

type TaskInfo struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Started time.Time `json:"started"`
}

// TaskTracker follows the units of work running against the task scope.
// Disposing it cancels whatever is still running.
type TaskTracker struct {
	logger *zap.Logger

	mu     sync.Mutex
	tasks  map[string]*trackedTask
	closed bool
}

type trackedTask struct {
	info   TaskInfo
	cancel context.CancelFunc
}

func NewTaskTracker(logger *zap.Logger) *TaskTracker {
	return &TaskTracker{
		logger: logger.Named("tasks"),
		tasks:  make(map[string]*trackedTask),
	}
}

// Begin starts tracking a task. The returned context is cancelled by end or
// by disposal of the tracker, whichever comes first.
func (t *TaskTracker) Begin(ctx context.Context, name string) (context.Context, string, func()) {
	ctx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		cancel()
		return ctx, id, func() {}
	}
	t.tasks[id] = &trackedTask{
		info:   TaskInfo{ID: id, Name: name, Started: time.Now()},
		cancel: cancel,
	}
	t.mu.Unlock()

	end := func() {
		t.mu.Lock()
		delete(t.tasks, id)
		t.mu.Unlock()
		cancel()
	}
	return ctx, id, end
}

// Active lists running tasks, oldest first.
func (t *TaskTracker) Active() []TaskInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TaskInfo, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, task.info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Started.Before(out[j].Started)
	})
	return out
}

func (t *TaskTracker) Dispose(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.tasks) > 0 {
		t.logger.Warn("cancelling running tasks", zap.Int("count", len(t.tasks)))
	}
	for id, task := range t.tasks {
		task.cancel()
		delete(t.tasks, id)
	}
	t.closed = true
	return nil
}
