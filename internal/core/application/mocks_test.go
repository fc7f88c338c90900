package application_test

import (
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/vulpemventures/coinselect/internal/core/domain"
)

// ports.SelectionEventSink
type mockEventSink struct {
	mock.Mock
}

func newMockedEventSink(err error) *mockEventSink {
	sink := &mockEventSink{}
	sink.On("PublishSelectionEvent", mock.Anything).Return(err)
	return sink
}

func (m *mockEventSink) PublishSelectionEvent(event domain.SelectionEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *mockEventSink) events() []domain.SelectionEvent {
	events := make([]domain.SelectionEvent, 0, len(m.Calls))
	for _, call := range m.Calls {
		events = append(events, call.Arguments.Get(0).(domain.SelectionEvent))
	}
	return events
}

type panickingEventSink struct{}

func (panickingEventSink) PublishSelectionEvent(domain.SelectionEvent) error {
	panic("sink is broken")
}

// countingEventSink is safe for concurrent use.
type countingEventSink struct {
	lock  sync.Mutex
	count map[domain.SelectionEventType]int
}

func newCountingEventSink() *countingEventSink {
	return &countingEventSink{count: make(map[domain.SelectionEventType]int)}
}

func (s *countingEventSink) PublishSelectionEvent(event domain.SelectionEvent) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.count[event.Type]++
	return nil
}

func (s *countingEventSink) get(eventType domain.SelectionEventType) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.count[eventType]
}

func newUtxo(i int, value uint64, confirmations uint32) domain.Utxo {
	return domain.Utxo{
		UtxoKey: domain.UtxoKey{
			TxID: fmt.Sprintf("%064x", i),
			VOut: uint32(i % 4),
		},
		Value:         value,
		Confirmations: confirmations,
		Address:       fmt.Sprintf("bc1qaddress%d", i),
	}
}

func keysOf(utxos ...domain.Utxo) []domain.UtxoKey {
	keys := make([]domain.UtxoKey, 0, len(utxos))
	for _, u := range utxos {
		keys = append(keys, u.Key())
	}
	return keys
}
