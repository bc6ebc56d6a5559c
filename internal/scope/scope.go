package scope

import (
	"fmt"
	"strings"
)

// Scope is a lifetime level in the container chain. Lower values live longer.
type Scope int

const (
	Platform Scope = iota
	CoreExtension
	Process
	Task
)

// Depth is the fixed number of nested scopes.
const Depth = 4

func (s Scope) String() string {
	switch s {
	case Platform:
		return "platform"
	case CoreExtension:
		return "core-extension"
	case Process:
		return "process"
	case Task:
		return "task"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func (s Scope) Valid() bool {
	return s >= Platform && s <= Task
}

// Outer reports whether s lives at least as long as other.
func (s Scope) Outer(other Scope) bool {
	return s <= other
}

// All returns every scope, outermost first.
func All() []Scope {
	return []Scope{Platform, CoreExtension, Process, Task}
}

func Parse(name string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "platform", "level1":
		return Platform, nil
	case "core-extension", "core_extension", "coreextension", "level2":
		return CoreExtension, nil
	case "process", "level3":
		return Process, nil
	case "task", "level4":
		return Task, nil
	default:
		return 0, fmt.Errorf("unknown scope %q", name)
	}
}
