package timewindow

import (
	"time"

	"github.com/go-playground/errors/v5"
)

// Presenter converts stored UTC window bounds to and from a local wall clock for display and
// data entry. The conversion uses the offset in effect on the reference date, so results can
// differ across daylight saving transitions. Stored values are never modified.
type Presenter struct {
	loc *time.Location
	now func() time.Time
}

// NewPresenter returns a Presenter for the named IANA location (for example "America/Chicago").
func NewPresenter(name string) (*Presenter, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "time.LoadLocation(): %q", name)
	}

	return &Presenter{loc: loc, now: time.Now}, nil
}

// NewPresenterIn returns a Presenter for loc that uses now to pick the reference date.
func NewPresenterIn(loc *time.Location, now func() time.Time) *Presenter {
	return &Presenter{loc: loc, now: now}
}

// Location returns the presentation location.
func (p *Presenter) Location() *time.Location {
	return p.loc
}

// ToLocal converts a stored UTC bound ("HH:MM", optionally ISO date prefixed) to a local HH:MM.
func (p *Presenter) ToLocal(utc string) (string, error) {
	c, err := ParseClock(utc)
	if err != nil {
		return "", errors.Wrap(err, "ParseClock()")
	}
	if !c.Valid() {
		return "", nil
	}

	ref := p.now().UTC()
	t := time.Date(ref.Year(), ref.Month(), ref.Day(), int(c)/60, int(c)%60, 0, 0, time.UTC).In(p.loc)

	return t.Format("15:04"), nil
}

// FromLocal converts a local HH:MM entered by a user to the UTC HH:MM form that is stored.
func (p *Presenter) FromLocal(local string) (string, error) {
	c, err := ParseClock(local)
	if err != nil {
		return "", errors.Wrap(err, "ParseClock()")
	}
	if !c.Valid() {
		return "", nil
	}

	ref := p.now().In(p.loc)
	t := time.Date(ref.Year(), ref.Month(), ref.Day(), int(c)/60, int(c)%60, 0, 0, p.loc).UTC()

	return MinutesOf(t).String(), nil
}
