package domain

// RouteAction is what the router did with an item.
type RouteAction string

const (
	// RouteMoved means the item's parents were replaced by the destination.
	RouteMoved RouteAction = "moved"
	// RouteAlreadyInPlace means the destination was already a parent.
	RouteAlreadyInPlace RouteAction = "noop"
	// RouteSkipped means no label could be resolved; the item is untouched.
	RouteSkipped RouteAction = "skipped"
)

// RouteOutcome describes one routing decision.
type RouteOutcome struct {
	Action        RouteAction
	Label         string
	DestinationID string
	Confidence    float64

	// Overridden is set when a filename keyword or the catch-all replaced
	// the classifier's label.
	Overridden bool
}

// DrainReport summarises one pass over the change feed.
type DrainReport struct {
	Pages    int
	Records  int
	Eligible int
	Moved    int
	NoOps    int
	Skipped  int
	Failed   int
	Cursor   string
}
