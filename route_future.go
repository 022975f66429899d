package bpipe

// Branch identifies which of a route's services drives a [RouteFuture].
type Branch int

const (
	// BranchPrimary is the service registered for the request's method.
	BranchPrimary Branch = iota
	// BranchFallback is the service for methods that have no registration.
	BranchFallback
)

func (b Branch) String() string {
	if b == BranchFallback {
		return "fallback"
	}

	return "primary"
}

// RouteFuture is the pending result of dispatching a request to either the primary or the fallback service of
// a route. The branch is chosen before the future is created and never changes; polling only delegates.
type RouteFuture struct {
	branch Branch
	inner  Future[BoxResponse]
}

// PrimaryRoute creates a route future driven by the method-matched service.
func PrimaryRoute(f Future[BoxResponse]) *RouteFuture {
	return &RouteFuture{branch: BranchPrimary, inner: f}
}

// FallbackRoute creates a route future driven by the fallback service.
func FallbackRoute(f Future[BoxResponse]) *RouteFuture {
	return &RouteFuture{branch: BranchFallback, inner: f}
}

// Branch reports which service drives the future.
func (f *RouteFuture) Branch() Branch { return f.branch }

// Poll implements [Future].
func (f *RouteFuture) Poll() (BoxResponse, bool, error) { return f.inner.Poll() }

// Ready implements [Future].
func (f *RouteFuture) Ready() <-chan struct{} { return f.inner.Ready() }

// Drop implements [Future].
func (f *RouteFuture) Drop() { f.inner.Drop() }

var _ Future[BoxResponse] = &RouteFuture{}
