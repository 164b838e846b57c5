package viewer

import "errors"

var (
	// ErrInvalidArgument is returned when an operation is called with an argument
	// that would leave filtering undefined, such as an empty employee id.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoMorePages is returned when the paginated source has no next page.
	ErrNoMorePages = errors.New("no more pages")

	// ErrFetchInFlight is returned when a source is asked to fetch while a
	// previous fetch has not resolved.
	ErrFetchInFlight = errors.New("fetch already in flight")

	// ErrStale marks a fetch whose result was discarded because the source was
	// invalidated or the controller switched mode before it resolved.
	ErrStale = errors.New("stale fetch result discarded")

	// ErrLoadMoreUnavailable is returned by LoadMore when the affordance is disabled.
	ErrLoadMoreUnavailable = errors.New("load more unavailable")
)
