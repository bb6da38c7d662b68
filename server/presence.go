package server

import "sync"

// presence counts open streams per player. A player is marked inactive only
// when the last of their streams closes.
type presence struct {
	mutex sync.Mutex
	open  map[string]int
}

func newPresence() *presence {
	return &presence{open: make(map[string]int)}
}

func presenceKey(code, playerID string) string {
	return code + "/" + playerID
}

// connect registers a stream and marks the player active. mark runs under the
// lock so it cannot interleave with a disconnect of the same player.
func (p *presence) connect(code, playerID string, mark func(active bool)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.open[presenceKey(code, playerID)]++
	mark(true)
}

func (p *presence) disconnect(code, playerID string, mark func(active bool)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	key := presenceKey(code, playerID)
	if p.open[key] > 1 {
		p.open[key]--
		return
	}
	delete(p.open, key)
	mark(false)
}

func (p *presence) streams(code, playerID string) int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.open[presenceKey(code, playerID)]
}
