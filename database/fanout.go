package database

import (
	"sync"

	"github.com/bitterfly/go-chaos/kategorie/game"
)

const subscriberBuffer = 16

// fanout hands every change of a room to all of its subscribers. A full
// subscriber loses its oldest pending change rather than stalling the
// publisher, so the latest change always gets through.
type fanout struct {
	mutex       sync.Mutex
	next        int
	subscribers map[string]map[int]chan game.Change
}

func newFanout() *fanout {
	return &fanout{subscribers: make(map[string]map[int]chan game.Change)}
}

func (f *fanout) Subscribe(code string) (<-chan game.Change, func()) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	id := f.next
	f.next++
	ch := make(chan game.Change, subscriberBuffer)
	if f.subscribers[code] == nil {
		f.subscribers[code] = make(map[int]chan game.Change)
	}
	f.subscribers[code][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mutex.Lock()
			defer f.mutex.Unlock()
			delete(f.subscribers[code], id)
			if len(f.subscribers[code]) == 0 {
				delete(f.subscribers, code)
			}
			close(ch)
		})
	}
}

func (f *fanout) publish(changes ...game.Change) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for _, c := range changes {
		for _, ch := range f.subscribers[c.Room] {
			select {
			case ch <- c:
				continue
			default:
			}
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- c:
			default:
			}
		}
	}
}
