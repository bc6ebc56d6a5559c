package nest

import (
	"github.com/danpasecinic/nest/internal/scope"
)

// Scope identifies one level of the container chain.
type Scope = scope.Scope

const (
	ScopePlatform      = scope.Platform
	ScopeCoreExtension = scope.CoreExtension
	ScopeProcess       = scope.Process
	ScopeTask          = scope.Task
)

// Depth is the number of scopes a started hierarchy holds.
const Depth = scope.Depth

// Scopes returns every scope, outermost first.
func Scopes() []Scope {
	return scope.All()
}

func ParseScope(name string) (Scope, error) {
	return scope.Parse(name)
}
