package evaluator

// DefaultMaxDepth bounds nested function calls when Budget.MaxDepth is zero.
const DefaultMaxDepth = 1024

// MaxDepthLimit is the largest accepted call depth. Deeper nesting would
// exhaust the goroutine stack before E_STACK_OVERFLOW could be reported.
const MaxDepthLimit = 100000

// Budget holds the resource limits for one Execute call.
type Budget struct {
	// MaxDepth is the deepest allowed function call nesting. Zero means
	// DefaultMaxDepth and values above MaxDepthLimit are clamped to it;
	// there is no way to disable the limit.
	MaxDepth int
	// MaxSteps caps statements plus expression evaluations. Zero disables it.
	MaxSteps int64
}

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Steps    int64
	Depth    int
	MaxDepth int
}

func (b Budget) maxDepth() int {
	if b.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return min(b.MaxDepth, MaxDepthLimit)
}
