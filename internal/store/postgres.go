package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type Store struct {
	Db *pgxpool.Pool
}

func NewStore(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool}, nil
}

func (s *Store) Close() {
	s.Db.Close()
}

// GetAccount retrieves a single account by its 11-character id.
func (s *Store) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var account Account
	err := s.Db.QueryRow(ctx,
		"SELECT account_id, current_balance, created_at, updated_at FROM accounts WHERE account_id = $1",
		accountID,
	).Scan(&account.AccountID, &account.CurrentBalance, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetTransaction retrieves a committed payment transaction by id.
func (s *Store) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	var t Transaction
	err := s.Db.QueryRow(ctx,
		`SELECT transaction_id, transaction_type_code, transaction_category_code,
		        transaction_source, transaction_description, transaction_amount,
		        card_number, merchant_id, merchant_name, merchant_city, merchant_zip,
		        origin_timestamp, process_timestamp, account_id
		   FROM transactions WHERE transaction_id = $1`,
		transactionID,
	).Scan(&t.TransactionID, &t.TransactionTypeCode, &t.TransactionCategoryCode,
		&t.TransactionSource, &t.TransactionDescription, &t.TransactionAmount,
		&t.CardNumber, &t.MerchantID, &t.MerchantName, &t.MerchantCity, &t.MerchantZip,
		&t.OriginTimestamp, &t.ProcessTimestamp, &t.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}
