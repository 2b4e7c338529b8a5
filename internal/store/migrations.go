package store

import "context"

// schema is applied at startup so a fresh database serves immediately.
// Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account_id      VARCHAR(11) PRIMARY KEY,
		current_balance NUMERIC(19,2) NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		transaction_id            VARCHAR(16) PRIMARY KEY,
		transaction_type_code     VARCHAR(2) NOT NULL,
		transaction_category_code INTEGER NOT NULL,
		transaction_source        VARCHAR(10) NOT NULL,
		transaction_description   VARCHAR(100) NOT NULL,
		transaction_amount        NUMERIC(19,2) NOT NULL,
		card_number               VARCHAR(16) NOT NULL,
		merchant_id               BIGINT NOT NULL,
		merchant_name             VARCHAR(50) NOT NULL,
		merchant_city             VARCHAR(50) NOT NULL,
		merchant_zip              VARCHAR(10) NOT NULL,
		origin_timestamp          TIMESTAMPTZ NOT NULL,
		process_timestamp         TIMESTAMPTZ NOT NULL,
		account_id                VARCHAR(11) NOT NULL REFERENCES accounts(account_id),
		created_at                TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS card_cross_reference (
		id          BIGSERIAL PRIMARY KEY,
		account_id  VARCHAR(11) NOT NULL UNIQUE REFERENCES accounts(account_id),
		card_number VARCHAR(16) NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account_id ON transactions(account_id)`,
}

// Migrate creates the bill-payment tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.Db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
