package service

import (
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/pkg/util"
)

// RequestContext identifies the caller of an operation. Controllers fill it
// from the authenticated token; services trust it.
type RequestContext struct {
	CompanyID uint
	UserID    uint
}

// DefaultLookaheadDays is the scan window used when none is configured.
const DefaultLookaheadDays = 30

// Policy carries the calendar and scanning settings shared by the
// compliance services.
type Policy struct {
	Clock         util.Clock
	Location      *time.Location
	LookaheadDays int
}

func (p Policy) calendar() calendar {
	return newCalendar(p.Clock, p.Location)
}

func (p Policy) lookahead() int {
	if p.LookaheadDays <= 0 {
		return DefaultLookaheadDays
	}
	return p.LookaheadDays
}

// calendar resolves "today" in the configured compliance timezone.
type calendar struct {
	clock util.Clock
	loc   *time.Location
}

func newCalendar(clock util.Clock, loc *time.Location) calendar {
	if clock == nil {
		clock = util.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return calendar{clock: clock, loc: loc}
}

func (c calendar) now() time.Time {
	return c.clock.Now()
}

func (c calendar) today() model.Date {
	return model.DateOf(c.clock.Now().In(c.loc))
}
