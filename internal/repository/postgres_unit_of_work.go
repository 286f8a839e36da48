package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresUnitOfWorkFactory はリクエストごとにトランザクションを開始する。
type PostgresUnitOfWorkFactory struct {
	db TxBeginner
}

// NewPostgresUnitOfWorkFactory はPostgresUnitOfWorkFactoryを生成する。
func NewPostgresUnitOfWorkFactory(db TxBeginner) *PostgresUnitOfWorkFactory {
	return &PostgresUnitOfWorkFactory{db: db}
}

// Begin はトランザクションを開始し、そのトランザクションに束縛されたゲートウェイを持つUnitOfWorkを返す。
func (f *PostgresUnitOfWorkFactory) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresUnitOfWork{
		tx:        tx,
		users:     NewPostgresUserRepo(tx),
		locations: NewPostgresLocationRepo(tx),
	}, nil
}

type postgresUnitOfWork struct {
	tx        *sql.Tx
	users     *PostgresUserRepo
	locations *PostgresLocationRepo
}

func (u *postgresUnitOfWork) Users() UserGateway         { return u.users }
func (u *postgresUnitOfWork) Locations() LocationGateway { return u.locations }

func (u *postgresUnitOfWork) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (u *postgresUnitOfWork) Rollback() error {
	err := u.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return fmt.Errorf("failed to rollback transaction: %w", err)
}

// compile-time interface check
var _ UnitOfWorkFactory = (*PostgresUnitOfWorkFactory)(nil)
