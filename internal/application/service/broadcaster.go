package service

import (
	"sync"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
	"github.com/google/uuid"
)

// broadcaster fans state snapshots out to subscribers
type broadcaster struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]func(entity.ConversionState)
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[uuid.UUID]func(entity.ConversionState))}
}

func (b *broadcaster) subscribe(fn func(entity.ConversionState)) func() {
	id := uuid.New()

	b.mu.Lock()
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *broadcaster) publish(state entity.ConversionState) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, fn := range b.subs {
		fn(state)
	}
}

func (b *broadcaster) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}

func (b *broadcaster) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = make(map[uuid.UUID]func(entity.ConversionState))
}
