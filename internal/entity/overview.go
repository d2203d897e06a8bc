package entity

// Overview is the harvest overview of one harvester deployment: every
// endpoint ever seen plus the cycle-wide reference date.
type Overview struct {
	Endpoints       []*EndpointState
	HarvestFromDate *Date
}

// EndpointState holds what is remembered about one OAI-PMH endpoint between
// cycles.
type EndpointState struct {
	URI         string // Lookup key
	Group       string
	Blocked     bool // Excluded from harvesting
	Retry       bool // A previous attempt failed and may be retried
	Incremental bool // Harvest only records changed since Harvested
	Scenario    string
	Attempted   *Date // Last attempt, successful or not
	Harvested   *Date // Last successful attempt
	Count       int64 // Records processed in the last attempt
	Increment   int64 // Records processed incrementally since the reference date
}

// NewEndpointState returns an endpoint state carrying the defaults of a never
// harvested endpoint.
func NewEndpointState(uri string) *EndpointState {
	return &EndpointState{
		URI:         uri,
		Blocked:     false,
		Incremental: true,
	}
}

// Clone returns a deep copy.
func (e *EndpointState) Clone() *EndpointState {
	c := *e
	if e.Attempted != nil {
		a := *e.Attempted
		c.Attempted = &a
	}
	if e.Harvested != nil {
		h := *e.Harvested
		c.Harvested = &h
	}

	return &c
}
