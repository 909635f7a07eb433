package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/simonvc/fundcard/internal/fund"
)

// popup is the handle of one checkout window. The websocket side finishes
// it; the close only becomes visible to the handle's owner once the closed
// event has been dispatched, after every message the window sent before it.
type popup struct {
	bridge      *Bridge
	id          string
	checkoutURL string
	size        fund.PopupSize

	finished  atomic.Bool
	settled   atomic.Bool
	connected atomic.Bool
	closeReq  chan struct{}
	closeOnce sync.Once
	watchdog  *time.Timer

	mu  sync.Mutex
	err error
}

var _ fund.Handle = (*popup)(nil)

func newPopup(b *Bridge, id, checkoutURL string, size fund.PopupSize) *popup {
	return &popup{
		bridge:      b,
		id:          id,
		checkoutURL: checkoutURL,
		size:        size,
		closeReq:    make(chan struct{}),
	}
}

func (p *popup) ID() string { return p.id }

func (p *popup) Closed() bool { return p.settled.Load() }

func (p *popup) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Close asks the page to close the checkout window. The handle reports
// closed immediately.
func (p *popup) Close() error {
	p.closeOnce.Do(func() { close(p.closeReq) })
	p.settled.Store(true)
	p.end(nil)
	return nil
}

func (p *popup) attach() bool {
	if p.finished.Load() {
		return false
	}
	if !p.connected.CompareAndSwap(false, true) {
		return false
	}
	if p.watchdog != nil {
		p.watchdog.Stop()
	}
	return true
}

func (p *popup) isConnected() bool { return p.connected.Load() }

// finish records the end of the window and publishes a closed event.
func (p *popup) finish(err error) {
	if p.end(err) {
		p.bridge.publish(Event{Kind: EventClosed, PopupID: p.id, Err: err, popup: p})
	}
}

// end records the end of the window once. It reports whether this call
// ended it.
func (p *popup) end(err error) bool {
	if !p.finished.CompareAndSwap(false, true) {
		return false
	}
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	if p.watchdog != nil {
		p.watchdog.Stop()
	}
	p.bridge.remove(p.id)
	return true
}
