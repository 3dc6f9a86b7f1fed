package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/moodrag/internal/infra/postgres"
)

// TransactionProvider はトランザクション内で使うリポジトリ群を払い出す
type TransactionProvider struct {
	pool *pgxpool.Pool
}

// NewTransactionProvider は新しいTransactionProviderを作成します
func NewTransactionProvider(pool *pgxpool.Pool) *TransactionProvider {
	return &TransactionProvider{pool: pool}
}

// Adapter はトランザクション内で使うリポジトリ
type Adapter struct {
	Index *postgres.IndexRepository
}

// Transact は fn をひとつのトランザクションで実行する
// fn がエラーを返した場合はロールバックし、そのエラーをそのまま返す
func Transact[T any](ctx context.Context, p *TransactionProvider, fn func(*Adapter) (T, error)) (T, error) {
	var result T
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		result, err = fn(&Adapter{
			Index: postgres.NewIndexRepository(tx),
		})
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
