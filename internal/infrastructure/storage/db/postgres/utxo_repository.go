package postgresdb

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/vulpemventures/coinselect/internal/core/domain"
)

const (
	utxoColumns = "tx_id, vout, value, confirmations, is_change, frozen, address, script, account_name"

	insertUtxoQuery = `INSERT INTO utxo (` + utxoColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	selectUtxoByKeyQuery = `SELECT ` + utxoColumns + ` FROM utxo
WHERE tx_id = $1 AND vout = $2`
	selectAllUtxosQuery = `SELECT ` + utxoColumns + ` FROM utxo
ORDER BY tx_id, vout`
	selectSpendableUtxosQuery = `SELECT ` + utxoColumns + ` FROM utxo
WHERE frozen = FALSE AND confirmations > 0 ORDER BY tx_id, vout`
	selectBalanceQuery = `SELECT
COALESCE(SUM(value) FILTER (WHERE NOT frozen AND confirmations > 0), 0),
COALESCE(SUM(value) FILTER (WHERE NOT frozen AND confirmations = 0), 0),
COALESCE(SUM(value) FILTER (WHERE frozen), 0)
FROM utxo`
	updateUtxoQuery = `UPDATE utxo SET value = $3, confirmations = $4,
is_change = $5, frozen = $6, address = $7, script = $8, account_name = $9
WHERE tx_id = $1 AND vout = $2`
	deleteUtxoQuery = `DELETE FROM utxo WHERE tx_id = $1 AND vout = $2`
)

type utxoRepositoryPg struct {
	pgxPool          *pgxpool.Pool
	chLock           *sync.Mutex
	chEvents         chan domain.UtxoEvent
	externalChEvents chan domain.UtxoEvent
	closed           bool
}

func NewUtxoRepositoryPgImpl(pgxPool *pgxpool.Pool) domain.UtxoRepository {
	return newUtxoRepositoryPgImpl(pgxPool)
}

func newUtxoRepositoryPgImpl(pgxPool *pgxpool.Pool) *utxoRepositoryPg {
	return &utxoRepositoryPg{
		pgxPool:          pgxPool,
		chLock:           &sync.Mutex{},
		chEvents:         make(chan domain.UtxoEvent),
		externalChEvents: make(chan domain.UtxoEvent),
	}
}

func (u *utxoRepositoryPg) AddUtxos(
	ctx context.Context, utxos []*domain.Utxo,
) (int, error) {
	utxosInfo := make([]domain.UtxoInfo, 0, len(utxos))
	if err := u.withTx(ctx, func(tx pgx.Tx) error {
		for _, v := range utxos {
			// Every insertion runs in its own savepoint so that a duplicated
			// utxo doesn't abort the whole transaction.
			sp, err := tx.Begin(ctx)
			if err != nil {
				return err
			}
			if _, err := sp.Exec(ctx, insertUtxoQuery, utxoArgs(v)...); err != nil {
				sp.Rollback(ctx)
				if isUniqueViolation(err) {
					continue
				}
				return err
			}
			if err := sp.Commit(ctx); err != nil {
				return err
			}
			utxosInfo = append(utxosInfo, v.Info())
		}
		return nil
	}); err != nil {
		return -1, err
	}

	if len(utxosInfo) > 0 {
		go u.publishEvent(domain.UtxoEvent{
			EventType: domain.UtxoAdded,
			Utxos:     utxosInfo,
		})
	}

	return len(utxosInfo), nil
}

func (u *utxoRepositoryPg) GetUtxosByKey(
	ctx context.Context, utxoKeys []domain.UtxoKey,
) ([]*domain.Utxo, error) {
	utxos := make([]*domain.Utxo, 0, len(utxoKeys))
	for _, key := range utxoKeys {
		utxo, err := u.getUtxo(ctx, u.pgxPool, key)
		if err != nil {
			return nil, err
		}
		if utxo != nil {
			utxos = append(utxos, utxo)
		}
	}
	return utxos, nil
}

func (u *utxoRepositoryPg) GetAllUtxos(
	ctx context.Context,
) ([]*domain.Utxo, error) {
	return u.queryUtxos(ctx, selectAllUtxosQuery)
}

func (u *utxoRepositoryPg) GetSpendableUtxos(
	ctx context.Context,
) ([]*domain.Utxo, error) {
	return u.queryUtxos(ctx, selectSpendableUtxosQuery)
}

func (u *utxoRepositoryPg) GetBalance(
	ctx context.Context,
) (*domain.Balance, error) {
	var confirmed, unconfirmed, frozen int64
	if err := u.pgxPool.QueryRow(ctx, selectBalanceQuery).Scan(
		&confirmed, &unconfirmed, &frozen,
	); err != nil {
		return nil, err
	}
	return &domain.Balance{
		Confirmed:   uint64(confirmed),
		Unconfirmed: uint64(unconfirmed),
		Frozen:      uint64(frozen),
	}, nil
}

func (u *utxoRepositoryPg) ConfirmUtxos(
	ctx context.Context, utxoKeys []domain.UtxoKey, confirmations uint32,
) (int, error) {
	return u.updateUtxos(
		ctx, utxoKeys, domain.UtxoConfirmed, func(utxo *domain.Utxo) bool {
			return utxo.Confirm(confirmations)
		},
	)
}

func (u *utxoRepositoryPg) FreezeUtxos(
	ctx context.Context, utxoKeys []domain.UtxoKey,
) (int, error) {
	return u.updateUtxos(
		ctx, utxoKeys, domain.UtxoFrozen, func(utxo *domain.Utxo) bool {
			return utxo.Freeze()
		},
	)
}

func (u *utxoRepositoryPg) UnfreezeUtxos(
	ctx context.Context, utxoKeys []domain.UtxoKey,
) (int, error) {
	return u.updateUtxos(
		ctx, utxoKeys, domain.UtxoUnfrozen, func(utxo *domain.Utxo) bool {
			return utxo.Unfreeze()
		},
	)
}

func (u *utxoRepositoryPg) UpdateUtxos(
	ctx context.Context, utxos []*domain.Utxo,
) (int, error) {
	utxosInfo := make([]domain.UtxoInfo, 0, len(utxos))
	if err := u.withTx(ctx, func(tx pgx.Tx) error {
		for _, v := range utxos {
			tag, err := tx.Exec(ctx, updateUtxoQuery, utxoArgs(v)...)
			if err != nil {
				return err
			}
			if tag.RowsAffected() > 0 {
				utxosInfo = append(utxosInfo, v.Info())
			}
		}
		return nil
	}); err != nil {
		return -1, err
	}

	if len(utxosInfo) > 0 {
		go u.publishEvent(domain.UtxoEvent{
			EventType: domain.UtxoUpdated,
			Utxos:     utxosInfo,
		})
	}

	return len(utxosInfo), nil
}

func (u *utxoRepositoryPg) DeleteUtxos(
	ctx context.Context, utxoKeys []domain.UtxoKey,
) (int, error) {
	utxosInfo := make([]domain.UtxoInfo, 0, len(utxoKeys))
	if err := u.withTx(ctx, func(tx pgx.Tx) error {
		for _, key := range utxoKeys {
			utxo, err := u.getUtxo(ctx, tx, key)
			if err != nil {
				return err
			}
			if utxo == nil {
				continue
			}
			if _, err := tx.Exec(ctx, deleteUtxoQuery, key.TxID, int32(key.VOut)); err != nil {
				return err
			}
			utxosInfo = append(utxosInfo, utxo.Info())
		}
		return nil
	}); err != nil {
		return -1, err
	}

	if len(utxosInfo) > 0 {
		go u.publishEvent(domain.UtxoEvent{
			EventType: domain.UtxoRemoved,
			Utxos:     utxosInfo,
		})
	}

	return len(utxosInfo), nil
}

func (u *utxoRepositoryPg) GetEventChannel() chan domain.UtxoEvent {
	return u.externalChEvents
}

func (u *utxoRepositoryPg) updateUtxos(
	ctx context.Context, utxoKeys []domain.UtxoKey,
	eventType domain.UtxoEventType, update func(utxo *domain.Utxo) bool,
) (int, error) {
	utxosInfo := make([]domain.UtxoInfo, 0, len(utxoKeys))
	if err := u.withTx(ctx, func(tx pgx.Tx) error {
		for _, key := range utxoKeys {
			utxo, err := u.getUtxo(ctx, tx, key)
			if err != nil {
				return err
			}
			if utxo == nil || !update(utxo) {
				continue
			}
			if _, err := tx.Exec(ctx, updateUtxoQuery, utxoArgs(utxo)...); err != nil {
				return err
			}
			utxosInfo = append(utxosInfo, utxo.Info())
		}
		return nil
	}); err != nil {
		return -1, err
	}

	if len(utxosInfo) > 0 {
		go u.publishEvent(domain.UtxoEvent{
			EventType: eventType,
			Utxos:     utxosInfo,
		})
	}

	return len(utxosInfo), nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (u *utxoRepositoryPg) getUtxo(
	ctx context.Context, q querier, key domain.UtxoKey,
) (*domain.Utxo, error) {
	row := q.QueryRow(ctx, selectUtxoByKeyQuery, key.TxID, int32(key.VOut))
	utxo, err := scanUtxo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return utxo, nil
}

func (u *utxoRepositoryPg) queryUtxos(
	ctx context.Context, query string,
) ([]*domain.Utxo, error) {
	rows, err := u.pgxPool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	utxos := make([]*domain.Utxo, 0)
	for rows.Next() {
		utxo, err := scanUtxo(rows)
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, utxo)
	}
	return utxos, rows.Err()
}

// withTx runs the given function in a db transaction, either the one
// carried by the context or a new one committed on success.
func (u *utxoRepositoryPg) withTx(
	ctx context.Context, fn func(tx pgx.Tx) error,
) error {
	if tx, ok := ctx.Value("tx").(pgx.Tx); ok {
		return fn(tx)
	}

	tx, err := u.pgxPool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return rbErr
		}
		return err
	}
	return tx.Commit(ctx)
}

func (u *utxoRepositoryPg) publishEvent(event domain.UtxoEvent) {
	u.chLock.Lock()
	defer u.chLock.Unlock()

	if u.closed {
		return
	}

	u.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case u.externalChEvents <- event:
	default:
	}
}

func (u *utxoRepositoryPg) reset(ctx context.Context) error {
	_, err := u.pgxPool.Exec(ctx, "TRUNCATE TABLE utxo")
	return err
}

func (u *utxoRepositoryPg) close() {
	u.chLock.Lock()
	defer u.chLock.Unlock()

	u.closed = true
	close(u.chEvents)
	close(u.externalChEvents)
}

func utxoArgs(u *domain.Utxo) []interface{} {
	return []interface{}{
		u.TxID, int32(u.VOut), int64(u.Value), int32(u.Confirmations),
		u.IsChange, u.Frozen, u.Address, u.Script, u.AccountName,
	}
}

func scanUtxo(row pgx.Row) (*domain.Utxo, error) {
	var (
		txid, address, accountName string
		vout, confirmations        int32
		value                      int64
		isChange, frozen           bool
		script                     []byte
	)
	if err := row.Scan(
		&txid, &vout, &value, &confirmations, &isChange, &frozen,
		&address, &script, &accountName,
	); err != nil {
		return nil, err
	}
	return &domain.Utxo{
		UtxoKey:       domain.UtxoKey{TxID: txid, VOut: uint32(vout)},
		Value:         uint64(value),
		Confirmations: uint32(confirmations),
		IsChange:      isChange,
		Frozen:        frozen,
		Address:       address,
		Script:        script,
		AccountName:   accountName,
	}, nil
}

// isUniqueViolation returns whether the given error is caused by a
// constraint on duplicated keys.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
