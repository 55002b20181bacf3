package session

import "time"

// refreshTicker wraps time.Ticker so a non-positive interval disables periodic
// reconciliation instead of panicking. A nil channel never fires in a select.
type refreshTicker struct {
	t *time.Ticker
}

func newRefreshTicker(interval time.Duration) *refreshTicker {
	if interval <= 0 {
		return &refreshTicker{}
	}
	return &refreshTicker{t: time.NewTicker(interval)}
}

func (r *refreshTicker) C() <-chan time.Time {
	if r.t == nil {
		return nil
	}
	return r.t.C
}

func (r *refreshTicker) Stop() {
	if r.t != nil {
		r.t.Stop()
	}
}
