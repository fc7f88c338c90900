package dbbadger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vulpemventures/coinselect/internal/core/domain"
)

type utxoRepository struct {
	store            *badgerhold.Store
	chEvents         chan domain.UtxoEvent
	externalChEvents chan domain.UtxoEvent
	lock             *sync.Mutex
	closed           bool

	log func(format string, a ...interface{})
}

func NewUtxoRepository(store *badgerhold.Store) domain.UtxoRepository {
	return newUtxoRepository(store)
}

func newUtxoRepository(store *badgerhold.Store) *utxoRepository {
	chEvents := make(chan domain.UtxoEvent)
	externalChEvents := make(chan domain.UtxoEvent)
	lock := &sync.Mutex{}
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("utxo repository: %s", format)
		log.Debugf(format, a...)
	}
	return &utxoRepository{store, chEvents, externalChEvents, lock, false, logFn}
}

func (r *utxoRepository) AddUtxos(
	ctx context.Context, utxos []*domain.Utxo,
) (int, error) {
	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0)
	for _, u := range utxos {
		done, err := r.insertUtxo(ctx, u)
		if err != nil {
			return -1, err
		}
		if done {
			count++
			utxosInfo = append(utxosInfo, u.Info())
		}
	}

	if count > 0 {
		go r.publishEvent(domain.UtxoEvent{
			EventType: domain.UtxoAdded,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (r *utxoRepository) GetUtxosByKey(
	ctx context.Context, utxoKeys []domain.UtxoKey,
) ([]*domain.Utxo, error) {
	utxos := make([]*domain.Utxo, 0, len(utxoKeys))
	for _, key := range utxoKeys {
		u, err := r.getUtxo(ctx, key)
		if err != nil {
			return nil, err
		}
		if u != nil {
			utxos = append(utxos, u)
		}
	}

	return utxos, nil
}

func (r *utxoRepository) GetAllUtxos(
	ctx context.Context,
) ([]*domain.Utxo, error) {
	return r.findUtxos(ctx, nil)
}

func (r *utxoRepository) GetSpendableUtxos(
	ctx context.Context,
) ([]*domain.Utxo, error) {
	query := badgerhold.Where("Frozen").Eq(false).
		And("Confirmations").Gt(uint32(0))

	return r.findUtxos(ctx, query)
}

func (r *utxoRepository) GetBalance(
	ctx context.Context,
) (*domain.Balance, error) {
	utxos, err := r.GetAllUtxos(ctx)
	if err != nil {
		return nil, err
	}

	balance := &domain.Balance{}
	for _, u := range utxos {
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
	ctx context.Context, utxoKeys []domain.UtxoKey, confirmations uint32,
) (int, error) {
	return r.updateUtxos(
		ctx, utxoKeys, domain.UtxoConfirmed, func(u *domain.Utxo) bool {
			return u.Confirm(confirmations)
		},
	)
}

func (r *utxoRepository) FreezeUtxos(
	ctx context.Context, utxoKeys []domain.UtxoKey,
) (int, error) {
	return r.updateUtxos(
		ctx, utxoKeys, domain.UtxoFrozen, func(u *domain.Utxo) bool {
			return u.Freeze()
		},
	)
}

func (r *utxoRepository) UnfreezeUtxos(
	ctx context.Context, utxoKeys []domain.UtxoKey,
) (int, error) {
	return r.updateUtxos(
		ctx, utxoKeys, domain.UtxoUnfrozen, func(u *domain.Utxo) bool {
			return u.Unfreeze()
		},
	)
}

func (r *utxoRepository) UpdateUtxos(
	ctx context.Context, utxos []*domain.Utxo,
) (int, error) {
	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0)
	for _, u := range utxos {
		found, err := r.getUtxo(ctx, u.Key())
		if err != nil {
			return -1, err
		}
		if found == nil {
			continue
		}
		if err := r.updateUtxo(ctx, u); err != nil {
			return -1, err
		}
		count++
		utxosInfo = append(utxosInfo, u.Info())
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
	ctx context.Context, utxoKeys []domain.UtxoKey,
) (int, error) {
	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0)
	for _, key := range utxoKeys {
		u, err := r.getUtxo(ctx, key)
		if err != nil {
			return -1, err
		}
		if u == nil {
			continue
		}
		if err := r.deleteUtxo(ctx, key); err != nil {
			return -1, err
		}
		count++
		utxosInfo = append(utxosInfo, u.Info())
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

func (r *utxoRepository) updateUtxos(
	ctx context.Context, utxoKeys []domain.UtxoKey,
	eventType domain.UtxoEventType, update func(u *domain.Utxo) bool,
) (int, error) {
	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0)
	for _, key := range utxoKeys {
		utxo, err := r.getUtxo(ctx, key)
		if err != nil {
			return -1, err
		}
		if utxo == nil || !update(utxo) {
			continue
		}
		if err := r.updateUtxo(ctx, utxo); err != nil {
			return -1, err
		}
		count++
		utxosInfo = append(utxosInfo, utxo.Info())
	}

	if count > 0 {
		go r.publishEvent(domain.UtxoEvent{
			EventType: eventType,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (r *utxoRepository) getUtxo(
	ctx context.Context, key domain.UtxoKey,
) (*domain.Utxo, error) {
	var utxo domain.Utxo
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, key.Hash(), &utxo)
	} else {
		err = r.store.Get(key.Hash(), &utxo)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &utxo, nil
}

func (r *utxoRepository) findUtxos(
	ctx context.Context, query *badgerhold.Query,
) ([]*domain.Utxo, error) {
	var list []domain.Utxo
	var err error

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &list, query)
	} else {
		err = r.store.Find(&list, query)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	utxos := make([]*domain.Utxo, 0, len(list))
	for i := range list {
		utxos = append(utxos, &list[i])
	}
	sort.Slice(utxos, func(i, j int) bool {
		return utxos[i].Key().Less(utxos[j].Key())
	})
	return utxos, nil
}

func (r *utxoRepository) insertUtxo(
	ctx context.Context, utxo *domain.Utxo,
) (bool, error) {
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxInsert(tx, utxo.Key().Hash(), *utxo)
	} else {
		err = r.store.Insert(utxo.Key().Hash(), *utxo)
	}
	if err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *utxoRepository) updateUtxo(
	ctx context.Context, utxo *domain.Utxo,
) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpdate(tx, utxo.Key().Hash(), *utxo)
	}
	return r.store.Update(utxo.Key().Hash(), *utxo)
}

func (r *utxoRepository) deleteUtxo(
	ctx context.Context, key domain.UtxoKey,
) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxDelete(tx, key.Hash(), domain.Utxo{})
	}
	return r.store.Delete(key.Hash(), domain.Utxo{})
}

func (r *utxoRepository) publishEvent(event domain.UtxoEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return
	}

	r.log("publish event %s", event.EventType)
	r.chEvents <- event

	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *utxoRepository) reset() {
	if err := r.store.Badger().DropAll(); err != nil {
		r.log("failed to reset store: %s", err)
	}
}

func (r *utxoRepository) close() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.closed = true
	r.store.Close()
	close(r.chEvents)
	close(r.externalChEvents)
}
