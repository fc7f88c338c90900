package inmemory

import (
	"sync"
	"time"

	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

type repoManager struct {
	utxoRepository *utxoRepository

	utxoEventHandlers *handlerMap
}

func NewRepoManager() ports.RepoManager {
	utxoRepo := newUtxoRepository()

	rm := &repoManager{
		utxoRepository:    utxoRepo,
		utxoEventHandlers: newHandlerMap(),
	}

	go rm.listenToUtxoEvents()

	return rm
}

func (rm *repoManager) UtxoRepository() domain.UtxoRepository {
	return rm.utxoRepository
}

func (rm *repoManager) RegisterHandlerForUtxoEvent(
	eventType domain.UtxoEventType, handler ports.UtxoEventHandler,
) {
	rm.utxoEventHandlers.set(int(eventType), handler)
}

func (rm *repoManager) listenToUtxoEvents() {
	for event := range rm.utxoRepository.chEvents {
		time.Sleep(time.Millisecond)

		if handlers, ok := rm.utxoEventHandlers.get(int(event.EventType)); ok {
			for i := range handlers {
				handler := handlers[i]
				go handler.(ports.UtxoEventHandler)(event)
			}
		}
	}
}

func (rm *repoManager) Reset() {
	rm.utxoRepository.reset()
}

func (rm *repoManager) Close() {
	rm.utxoRepository.close()
}

// handlerMap is a util type to prevent race conditions when registering
// or retrieving handlers for events.
type handlerMap struct {
	handlersByEventType map[int][]interface{}
	lock                *sync.RWMutex
}

func newHandlerMap() *handlerMap {
	return &handlerMap{
		handlersByEventType: make(map[int][]interface{}),
		lock:                &sync.RWMutex{},
	}
}

func (m *handlerMap) set(key int, val interface{}) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.handlersByEventType[key] = append(m.handlersByEventType[key], val)
}

func (m *handlerMap) get(key int) ([]interface{}, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	val, ok := m.handlersByEventType[key]
	return val, ok
}
