package cycle

import (
	"fmt"
	"sync"
	"time"

	"github.com/jgivc/harvestoverview/internal/common"
	"github.com/jgivc/harvestoverview/internal/entity"
)

type Clock interface {
	Today() (entity.Date, error)
}

// zoneClock tells the current day in a named time zone. The zone is loaded
// on first use.
type zoneClock struct {
	name string
	now  func() time.Time

	once sync.Once
	loc  *time.Location
	err  error
}

func NewClock(timezone string) *zoneClock {
	return &zoneClock{
		name: timezone,
		now:  time.Now,
	}
}

func (c *zoneClock) Today() (entity.Date, error) {
	c.once.Do(func() {
		c.loc, c.err = time.LoadLocation(c.name)
	})

	if c.err != nil {
		return entity.Date{}, fmt.Errorf("%w: cannot load time zone %q: %v", common.ErrClockUnavailable, c.name, c.err)
	}

	return entity.DateOf(c.now().In(c.loc)), nil
}
