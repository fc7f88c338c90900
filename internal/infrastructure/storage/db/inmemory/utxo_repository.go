package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/vulpemventures/coinselect/internal/core/domain"
)

type utxoInmemoryStore struct {
	utxos map[string]domain.Utxo
	lock  *sync.RWMutex
}

type utxoRepository struct {
	store            *utxoInmemoryStore
	chEvents         chan domain.UtxoEvent
	externalChEvents chan domain.UtxoEvent
	chLock           *sync.Mutex
	closed           bool
}

func NewUtxoRepository() domain.UtxoRepository {
	return newUtxoRepository()
}

func newUtxoRepository() *utxoRepository {
	return &utxoRepository{
		store: &utxoInmemoryStore{
			utxos: make(map[string]domain.Utxo),
			lock:  &sync.RWMutex{},
		},
		chEvents:         make(chan domain.UtxoEvent),
		externalChEvents: make(chan domain.UtxoEvent),
		chLock:           &sync.Mutex{},
	}
}

func (r *utxoRepository) AddUtxos(
	_ context.Context, utxos []*domain.Utxo,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	return r.addUtxos(utxos)
}

func (r *utxoRepository) GetUtxosByKey(
	_ context.Context, utxoKeys []domain.UtxoKey,
) ([]*domain.Utxo, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	utxos := make([]*domain.Utxo, 0, len(utxoKeys))
	for _, key := range utxoKeys {
		u, ok := r.store.utxos[key.Hash()]
		if !ok {
			continue
		}
		utxos = append(utxos, &u)
	}

	return utxos, nil
}

func (r *utxoRepository) GetAllUtxos(_ context.Context) ([]*domain.Utxo, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getUtxos(false), nil
}

func (r *utxoRepository) GetSpendableUtxos(_ context.Context) ([]*domain.Utxo, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getUtxos(true), nil
}

func (r *utxoRepository) GetBalance(_ context.Context) (*domain.Balance, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	balance := &domain.Balance{}
	for _, u := range r.store.utxos {
		if u.IsFrozen() {
			balance.Frozen += u.Value
			continue
		}
		if u.IsConfirmed() {
			balance.Confirmed += u.Value
		} else {
			balance.Unconfirmed += u.Value
		}
	}

	return balance, nil
}

func (r *utxoRepository) ConfirmUtxos(
	_ context.Context, utxoKeys []domain.UtxoKey, confirmations uint32,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	return r.updateUtxos(utxoKeys, domain.UtxoConfirmed, func(u *domain.Utxo) bool {
		return u.Confirm(confirmations)
	})
}

func (r *utxoRepository) FreezeUtxos(
	_ context.Context, utxoKeys []domain.UtxoKey,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	return r.updateUtxos(utxoKeys, domain.UtxoFrozen, func(u *domain.Utxo) bool {
		return u.Freeze()
	})
}

func (r *utxoRepository) UnfreezeUtxos(
	_ context.Context, utxoKeys []domain.UtxoKey,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	return r.updateUtxos(utxoKeys, domain.UtxoUnfrozen, func(u *domain.Utxo) bool {
		return u.Unfreeze()
	})
}

func (r *utxoRepository) UpdateUtxos(
	_ context.Context, utxos []*domain.Utxo,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0, len(utxos))
	for _, u := range utxos {
		if _, ok := r.store.utxos[u.Key().Hash()]; !ok {
			continue
		}
		r.store.utxos[u.Key().Hash()] = *u
		utxosInfo = append(utxosInfo, u.Info())
		count++
	}

	if count > 0 {
		go r.publishEvent(domain.UtxoEvent{
			EventType: domain.UtxoUpdated,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (r *utxoRepository) DeleteUtxos(
	_ context.Context, utxoKeys []domain.UtxoKey,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0, len(utxoKeys))
	for _, key := range utxoKeys {
		u, ok := r.store.utxos[key.Hash()]
		if !ok {
			continue
		}
		delete(r.store.utxos, key.Hash())
		utxosInfo = append(utxosInfo, u.Info())
		count++
	}

	if count > 0 {
		go r.publishEvent(domain.UtxoEvent{
			EventType: domain.UtxoRemoved,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (r *utxoRepository) GetEventChannel() chan domain.UtxoEvent {
	return r.externalChEvents
}

func (r *utxoRepository) addUtxos(utxos []*domain.Utxo) (int, error) {
	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0, len(utxos))
	for _, u := range utxos {
		if _, ok := r.store.utxos[u.Key().Hash()]; ok {
			continue
		}
		r.store.utxos[u.Key().Hash()] = *u
		utxosInfo = append(utxosInfo, u.Info())
		count++
	}

	if count > 0 {
		go r.publishEvent(domain.UtxoEvent{
			EventType: domain.UtxoAdded,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (r *utxoRepository) getUtxos(spendableOnly bool) []*domain.Utxo {
	utxos := make([]*domain.Utxo, 0, len(r.store.utxos))
	for _, u := range r.store.utxos {
		u := u
		if spendableOnly && (u.IsFrozen() || !u.IsConfirmed()) {
			continue
		}
		utxos = append(utxos, &u)
	}
	sort.Slice(utxos, func(i, j int) bool {
		return utxos[i].Key().Less(utxos[j].Key())
	})
	return utxos
}

func (r *utxoRepository) updateUtxos(
	keys []domain.UtxoKey, eventType domain.UtxoEventType,
	update func(u *domain.Utxo) bool,
) (int, error) {
	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0, len(keys))
	for _, key := range keys {
		utxo, ok := r.store.utxos[key.Hash()]
		if !ok {
			continue
		}
		if !update(&utxo) {
			continue
		}

		r.store.utxos[key.Hash()] = utxo
		utxosInfo = append(utxosInfo, utxo.Info())
		count++
	}

	if count > 0 {
		go r.publishEvent(domain.UtxoEvent{
			EventType: eventType,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (r *utxoRepository) publishEvent(event domain.UtxoEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	if r.closed {
		return
	}

	r.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *utxoRepository) reset() {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.utxos = make(map[string]domain.Utxo)
}

func (r *utxoRepository) close() {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	r.closed = true
	close(r.chEvents)
	close(r.externalChEvents)
}
