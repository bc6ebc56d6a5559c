package nest

import (
	"time"
)

type RegisterHook func(s Scope, key string)

type ContributeHook func(extension string, s Scope, duration time.Duration, err error)

type DisposeHook func(s Scope, key string, err error)

type StateHook func(from, to State)
