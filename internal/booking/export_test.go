package booking

import "time"

// SetClock replaces the service clock used to resolve timeframes.
func SetClock(s Service, now func() time.Time) {
	s.(*service).now = now
}
