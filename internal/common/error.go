package common

import "fmt"

var (
	ErrCorruptRecord       = fmt.Errorf("corrupt overview record")
	ErrClockUnavailable    = fmt.Errorf("clock unavailable")
	ErrEndpointNotFound    = fmt.Errorf("endpoint not found")
	ErrUnknownBackend      = fmt.Errorf("unknown store backend")
	ErrCycleAlreadyRunning = fmt.Errorf("harvest cycle has already started")
	ErrInvalidResult       = fmt.Errorf("invalid harvest result")
)

// DuplicateKeyAnomaly reports an URI stored more than once. Lookups use the
// first position, the others are ignored.
type DuplicateKeyAnomaly struct {
	URI       string
	Positions []int
}

func (a DuplicateKeyAnomaly) String() string {
	return fmt.Sprintf("uri %s stored at positions %v", a.URI, a.Positions)
}
