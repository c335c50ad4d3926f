package lobby

import "time"

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc starts a ticker firing every d. Tests substitute a manual one.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}
