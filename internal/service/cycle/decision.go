package cycle

import "github.com/jgivc/harvestoverview/internal/entity"

const (
	ModeSkip Mode = iota
	ModeFull
	ModeIncremental
)

type Mode int

func (m Mode) String() string {
	return [...]string{"skip", "full", "incremental"}[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Plan says how an endpoint is harvested in this cycle. From is set for
// incremental harvests only.
type Plan struct {
	Mode Mode         `json:"mode"`
	From *entity.Date `json:"from,omitempty"`
}

type PlanSource interface {
	Blocked() bool
	Incremental() bool
	Harvested() *entity.Date
}

func Decide(ep PlanSource) Plan {
	if ep.Blocked() {
		return Plan{Mode: ModeSkip}
	}

	harvested := ep.Harvested()
	if !ep.Incremental() || harvested == nil {
		return Plan{Mode: ModeFull}
	}

	return Plan{Mode: ModeIncremental, From: harvested}
}
