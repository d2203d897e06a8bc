package entity

// EndpointView is an endpoint state together with the way it will be
// harvested in the next cycle.
type EndpointView struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	Group       string `json:"group"`
	Blocked     bool   `json:"blocked"`
	Retry       bool   `json:"retry"`
	Incremental bool   `json:"incremental"`
	Scenario    string `json:"scenario"`
	Attempted   *Date  `json:"attempted,omitempty"`
	Harvested   *Date  `json:"harvested,omitempty"`
	Count       int64  `json:"count"`
	Increment   int64  `json:"increment"`
	Mode        string `json:"mode"`
	From        *Date  `json:"from,omitempty"`
}

// Completion is an attempt outcome reported by the harvest pipeline.
type Completion struct {
	URI       string `json:"uri"`
	Success   bool   `json:"success"`
	Count     int64  `json:"count"`
	Increment int64  `json:"increment"`
}
