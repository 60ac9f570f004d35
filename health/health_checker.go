// Package health grades the refresh state kept by a RefreshStore.
package health

import (
	"math"
	"time"

	"github.com/giygas/pronto-utils/interfaces"
)

// Status values reported by Check
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const (
	// StaleAfter is the age past which refreshed files count as stale.
	// Two refreshes a day leave an hour of slack.
	StaleAfter      = 25 * time.Hour
	unhealthyAfter  = 48 * time.Hour
	slowUpdateAfter = 6 * time.Hour
)

// Report describes the refresh state at a point in time
type Report struct {
	Status        string
	LastRefreshed time.Time
	LastAttempt   time.Time
	Age           time.Duration
	AgeHours      float64
	Files         int
	Updating      bool
	LastError     string
}

// Checker grades a RefreshStore
type Checker struct {
	store interfaces.RefreshStore
}

// NewChecker creates a checker reading from store
func NewChecker(store interfaces.RefreshStore) *Checker {
	return &Checker{store: store}
}

// Check returns the refresh state as seen at now
func (c *Checker) Check(now time.Time) Report {
	lastRefreshed := c.store.GetLastRefreshed()
	updating := c.store.IsUpdating()

	r := Report{
		LastRefreshed: lastRefreshed,
		LastAttempt:   c.store.GetLastAttempt(),
		Files:         len(c.store.GetLastResults()),
		Updating:      updating,
	}
	if err := c.store.GetLastError(); err != nil {
		r.LastError = err.Error()
	}

	if lastRefreshed.IsZero() {
		r.Status = StatusUnhealthy
		return r
	}

	age := now.Sub(lastRefreshed)
	r.Age = age
	r.AgeHours = math.Round(age.Hours()*10) / 10

	switch {
	case age > unhealthyAfter:
		r.Status = StatusUnhealthy
	case age > StaleAfter:
		r.Status = StatusDegraded
	case r.LastError != "":
		r.Status = StatusDegraded
	case updating && age > slowUpdateAfter:
		r.Status = StatusDegraded
	default:
		r.Status = StatusHealthy
	}

	return r
}

// Stale reports whether the last successful refresh is older than StaleAfter
func (r Report) Stale() bool {
	return r.LastRefreshed.IsZero() || r.Age > StaleAfter
}
