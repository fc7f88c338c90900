package application

import (
	"context"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

// UtxoManagerArgs holds the dependencies and defaults of an UtxoManager.
//   - RepoManager - The manager of the repository where utxos are persisted.
//   - Selector - The selector used to fulfill selection requests.
//   - DefaultStrategy - (optional) The strategy used when none is requested.
//   - DefaultFeeRate - (optional) The fee rate used when none is requested.
//   - DefaultDustAmount - (optional) The dust threshold used when none is requested.
type UtxoManagerArgs struct {
	RepoManager       ports.RepoManager
	Selector          *Selector
	DefaultStrategy   domain.Strategy
	DefaultFeeRate    domain.FeeRate
	DefaultDustAmount uint64
}

func (a UtxoManagerArgs) validate() error {
	if a.RepoManager == nil {
		return fmt.Errorf("missing repo manager")
	}
	if a.Selector == nil {
		return fmt.Errorf("missing selector")
	}
	if !a.DefaultStrategy.IsValid() {
		return fmt.Errorf("%w: %d", domain.ErrUnknownStrategy, a.DefaultStrategy)
	}
	return nil
}

// UtxoManager is responsible for keeping the wallet's utxo set and for
// fulfilling coin selection requests over it:
//   - Add, remove, freeze, unfreeze and confirm utxos.
//   - Get the list of utxos and the balance.
//   - Select utxos with one of the supported strategies.
//   - Select exactly the utxos chosen by the user (coin control).
//
// The utxo set is kept in memory and every mutation is written through to
// the repository before being applied, so that the set is restored at
// startup.
// Any number of selections and reads can run concurrently, while mutations
// are exclusive. A selection works on a snapshot of the set, taken under the
// read lock, and therefore never observes a partially applied mutation.
type UtxoManager struct {
	repoManager ports.RepoManager
	selector    *Selector

	defaultStrategy   domain.Strategy
	defaultFeeRate    domain.FeeRate
	defaultDustAmount uint64

	lock  *sync.RWMutex
	utxos map[domain.UtxoKey]domain.Utxo

	log func(format string, a ...interface{})
}

func NewUtxoManager(
	ctx context.Context, args UtxoManagerArgs,
) (*UtxoManager, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	if args.DefaultFeeRate == 0 {
		args.DefaultFeeRate = DefaultFeeRate
	}
	if args.DefaultDustAmount == 0 {
		args.DefaultDustAmount = DefaultDustAmount
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("utxo manager: %s", format)
		log.Debugf(format, a...)
	}

	utxos, err := args.RepoManager.UtxoRepository().GetAllUtxos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load utxos: %w", err)
	}
	utxosByKey := make(map[domain.UtxoKey]domain.Utxo, len(utxos))
	for _, u := range utxos {
		utxosByKey[u.Key()] = *u
	}

	m := &UtxoManager{
		repoManager:       args.RepoManager,
		selector:          args.Selector,
		defaultStrategy:   args.DefaultStrategy,
		defaultFeeRate:    args.DefaultFeeRate,
		defaultDustAmount: args.DefaultDustAmount,
		lock:              &sync.RWMutex{},
		utxos:             utxosByKey,
		log:               logFn,
	}
	m.registerHandlerForUtxoEvents()
	m.log("loaded %d utxos", len(utxosByKey))

	return m, nil
}

// AddUtxos adds the given utxos to the set. Those already in the set are
// ignored. It returns the number of utxos added.
func (m *UtxoManager) AddUtxos(
	ctx context.Context, utxos []domain.Utxo,
) (int, error) {
	for i := range utxos {
		if err := utxos[i].Validate(); err != nil {
			return -1, err
		}
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	newUtxos := make([]*domain.Utxo, 0, len(utxos))
	seen := make(map[domain.UtxoKey]struct{})
	for i := range utxos {
		u := utxos[i]
		if _, ok := m.utxos[u.Key()]; ok {
			continue
		}
		if _, ok := seen[u.Key()]; ok {
			continue
		}
		seen[u.Key()] = struct{}{}
		newUtxos = append(newUtxos, &u)
	}
	if len(newUtxos) <= 0 {
		return 0, nil
	}

	if _, err := m.repoManager.UtxoRepository().AddUtxos(ctx, newUtxos); err != nil {
		return -1, err
	}
	for _, u := range newUtxos {
		m.utxos[u.Key()] = *u
	}
	return len(newUtxos), nil
}

// RemoveUtxos removes the given utxos, either spent or evicted, from the set.
// Unknown keys are ignored. It returns the number of utxos removed.
func (m *UtxoManager) RemoveUtxos(
	ctx context.Context, keys []domain.UtxoKey,
) (int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	toRemove := make([]domain.UtxoKey, 0, len(keys))
	for _, key := range UtxoKeys(keys).unique() {
		if _, ok := m.utxos[key]; ok {
			toRemove = append(toRemove, key)
		}
	}
	if len(toRemove) <= 0 {
		return 0, nil
	}

	if _, err := m.repoManager.UtxoRepository().DeleteUtxos(ctx, toRemove); err != nil {
		return -1, err
	}
	for _, key := range toRemove {
		delete(m.utxos, key)
	}
	return len(toRemove), nil
}

// FreezeUtxos excludes the given utxos from any strategy. Frozen utxos can
// still be spent via coin control only after being unfrozen.
// It returns the number of utxos whose status changed.
func (m *UtxoManager) FreezeUtxos(
	ctx context.Context, keys []domain.UtxoKey,
) (int, error) {
	return m.updateUtxos(
		keys,
		func(u *domain.Utxo) bool { return u.Freeze() },
		func(keys []domain.UtxoKey) (int, error) {
			return m.repoManager.UtxoRepository().FreezeUtxos(ctx, keys)
		},
	)
}

// UnfreezeUtxos makes the given utxos selectable again.
// It returns the number of utxos whose status changed.
func (m *UtxoManager) UnfreezeUtxos(
	ctx context.Context, keys []domain.UtxoKey,
) (int, error) {
	return m.updateUtxos(
		keys,
		func(u *domain.Utxo) bool { return u.Unfreeze() },
		func(keys []domain.UtxoKey) (int, error) {
			return m.repoManager.UtxoRepository().UnfreezeUtxos(ctx, keys)
		},
	)
}

// ConfirmUtxos updates the number of confirmations of the given utxos.
func (m *UtxoManager) ConfirmUtxos(
	ctx context.Context, keys []domain.UtxoKey, confirmations uint32,
) (int, error) {
	return m.updateUtxos(
		keys,
		func(u *domain.Utxo) bool { return u.Confirm(confirmations) },
		func(keys []domain.UtxoKey) (int, error) {
			return m.repoManager.UtxoRepository().ConfirmUtxos(
				ctx, keys, confirmations,
			)
		},
	)
}

// SetUtxoAddress updates the address owning the given utxo.
func (m *UtxoManager) SetUtxoAddress(
	ctx context.Context, key domain.UtxoKey, address string,
) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	u, ok := m.utxos[key]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUtxoNotFound, key)
	}
	if !u.SetAddress(address) {
		return nil
	}

	if _, err := m.repoManager.UtxoRepository().UpdateUtxos(
		ctx, []*domain.Utxo{&u},
	); err != nil {
		return err
	}
	m.utxos[key] = u
	return nil
}

// GetUtxos returns the whole set, sorted by key.
func (m *UtxoManager) GetUtxos() Utxos {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.snapshot()
}

// GetUtxoInfo returns the set split into spendable and locked (frozen)
// utxos.
func (m *UtxoManager) GetUtxoInfo() UtxoInfo {
	info := UtxoInfo{Spendable: Utxos{}, Locked: Utxos{}}
	for _, u := range m.GetUtxos() {
		if u.IsFrozen() {
			info.Locked = append(info.Locked, u)
			continue
		}
		info.Spendable = append(info.Spendable, u)
	}
	return info
}

// GetUtxosByKey returns the utxos identified by the given keys, in the same
// order. Duplicated keys are collapsed.
func (m *UtxoManager) GetUtxosByKey(keys []domain.UtxoKey) (Utxos, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	utxos := make(Utxos, 0, len(keys))
	for _, key := range UtxoKeys(keys).unique() {
		u, ok := m.utxos[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUtxoNotFound, key)
		}
		utxos = append(utxos, u)
	}
	return utxos, nil
}

// GetBalance returns the confirmed, unconfirmed and frozen balances.
func (m *UtxoManager) GetBalance() BalanceInfo {
	m.lock.RLock()
	defer m.lock.RUnlock()

	balance := BalanceInfo{}
	for _, u := range m.utxos {
		switch {
		case u.IsFrozen():
			balance.Frozen += u.Value
		case u.IsConfirmed():
			balance.Confirmed += u.Value
		default:
			balance.Unconfirmed += u.Value
		}
	}
	return balance
}

// SelectUtxos runs the given strategy over a snapshot of the set.
func (m *UtxoManager) SelectUtxos(
	ctx context.Context, targetAmount uint64, strategy domain.Strategy,
	opts SelectionOpts,
) (domain.SelectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.lock.RLock()
	utxos := m.snapshot()
	m.lock.RUnlock()

	feeRate, dustAmount := m.withDefaults(opts)
	return m.selector.Select(
		utxos, strategy, targetAmount, feeRate, dustAmount, opts.EventSink,
	)
}

// SelectDefault runs the default strategy over a snapshot of the set.
func (m *UtxoManager) SelectDefault(
	ctx context.Context, targetAmount uint64, opts SelectionOpts,
) (domain.SelectionResult, error) {
	return m.SelectUtxos(ctx, targetAmount, m.defaultStrategy, opts)
}

// SelectCoinControl spends exactly the utxos identified by the given keys.
// It returns an error if any of them is unknown or frozen.
func (m *UtxoManager) SelectCoinControl(
	ctx context.Context, keys []domain.UtxoKey, targetAmount uint64,
	opts SelectionOpts,
) (domain.SelectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	utxos, err := m.GetUtxosByKey(keys)
	if err != nil {
		return nil, err
	}
	for _, u := range utxos {
		if u.IsFrozen() {
			return nil, fmt.Errorf("%w: %s", domain.ErrUtxoFrozen, u.Key())
		}
	}

	feeRate, dustAmount := m.withDefaults(opts)
	return m.selector.SelectCoinControl(
		utxos, targetAmount, feeRate, dustAmount, opts.EventSink,
	)
}

// updateUtxos applies the given update to the utxos identified by the given
// keys. The operation fails if any key is unknown. Only the utxos actually
// changed by the update are persisted.
func (m *UtxoManager) updateUtxos(
	keys []domain.UtxoKey,
	update func(u *domain.Utxo) bool,
	persist func(keys []domain.UtxoKey) (int, error),
) (int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	updated := make([]domain.Utxo, 0, len(keys))
	for _, key := range UtxoKeys(keys).unique() {
		u, ok := m.utxos[key]
		if !ok {
			return -1, fmt.Errorf("%w: %s", domain.ErrUtxoNotFound, key)
		}
		if update(&u) {
			updated = append(updated, u)
		}
	}
	if len(updated) <= 0 {
		return 0, nil
	}

	if _, err := persist(Utxos(updated).Keys()); err != nil {
		return -1, err
	}
	for _, u := range updated {
		m.utxos[u.Key()] = u
	}
	return len(updated), nil
}

func (m *UtxoManager) withDefaults(
	opts SelectionOpts,
) (domain.FeeRate, uint64) {
	feeRate, dustAmount := m.defaultFeeRate, m.defaultDustAmount
	if opts.FeeRate != nil {
		feeRate = *opts.FeeRate
	}
	if opts.DustAmount != nil {
		dustAmount = *opts.DustAmount
	}
	return feeRate, dustAmount
}

// snapshot must be called with the lock held.
func (m *UtxoManager) snapshot() Utxos {
	utxos := make(Utxos, 0, len(m.utxos))
	for _, u := range m.utxos {
		utxos = append(utxos, u)
	}
	sort.Slice(utxos, func(i, j int) bool {
		return utxos[i].Key().Less(utxos[j].Key())
	})
	return utxos
}

func (m *UtxoManager) registerHandlerForUtxoEvents() {
	handler := func(event domain.UtxoEvent) {
		m.log(
			"repository: %s %s", event.EventType,
			UtxoKeys(UtxosInfo(event.Utxos).Keys()),
		)
	}
	for _, eventType := range []domain.UtxoEventType{
		domain.UtxoAdded, domain.UtxoConfirmed, domain.UtxoFrozen,
		domain.UtxoUnfrozen, domain.UtxoUpdated, domain.UtxoRemoved,
	} {
		m.repoManager.RegisterHandlerForUtxoEvent(eventType, handler)
	}
}
