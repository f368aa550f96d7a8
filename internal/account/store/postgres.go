package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bankops/internal/account/models"
	id "bankops/pkg/domain"
	"bankops/pkg/platform/sentinel"
	"bankops/pkg/platform/tx"
)

// Postgres persists accounts in PostgreSQL. Execute serializes per-account
// mutations with SELECT ... FOR UPDATE inside a transaction.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Schema is applied by deploy tooling and by integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id               UUID PRIMARY KEY,
    account_type     TEXT NOT NULL,
    status           TEXT NOT NULL,
    account_number   TEXT,
    customer_id      TEXT,
    currency         TEXT NOT NULL,
    initial_deposit  BIGINT NOT NULL DEFAULT 0,
    full_name        TEXT NOT NULL DEFAULT '',
    gender           TEXT NOT NULL DEFAULT '',
    birth_date       TEXT NOT NULL DEFAULT '',
    address          TEXT NOT NULL DEFAULT '',
    phone_number     TEXT NOT NULL DEFAULT '',
    rejection_reason TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL,
    CONSTRAINT accounts_verified_joint CHECK (
        (account_number IS NULL) = (customer_id IS NULL)
    )
);
CREATE SEQUENCE IF NOT EXISTS account_number_seq START WITH 1001;
`

// EnsureSchema creates the accounts table and number sequence.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

const accountColumns = `id, account_type, status, account_number, customer_id, currency,
	initial_deposit, full_name, gender, birth_date, address, phone_number,
	rejection_reason, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, account *models.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := s.pool.Exec(ctx, query, insertArgs(account)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	row := s.pool.QueryRow(ctx, query, accountID.String())
	return scanAccount(row)
}

// Execute runs validate then mutate on the row locked FOR UPDATE, committing
// only if both succeed. A conflicting transition on the same account blocks
// until this transaction finishes.
func (s *Postgres) Execute(
	ctx context.Context,
	accountID id.AccountID,
	validate func(*models.Account) error,
	mutate func(*models.Account),
) (*models.Account, error) {
	var result *models.Account
	err := s.runInTx(ctx, func(txCtx context.Context, q pgx.Tx) error {
		row := q.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`,
			accountID.String())
		account, err := scanAccount(row)
		if err != nil {
			return err
		}
		if err := validate(account); err != nil {
			return err
		}
		mutate(account)
		if err := account.Validate(); err != nil {
			return err
		}
		_, err = q.Exec(ctx, `UPDATE accounts SET
			status = $2, account_number = $3, customer_id = $4,
			full_name = $5, gender = $6, birth_date = $7, address = $8, phone_number = $9,
			rejection_reason = $10, updated_at = $11
			WHERE id = $1`,
			account.ID.String(), string(account.Status),
			nullable(account.AccountNumber), nullable(account.CustomerID),
			account.Profile.FullName, account.Profile.Gender, account.Profile.BirthDate,
			account.Profile.Address, account.Profile.PhoneNumber,
			account.RejectionReason, account.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		result = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// NextAccountNumber allocates the next number in the branch sequence.
func (s *Postgres) NextAccountNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('account_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("allocate account number: %w", err)
	}
	return n, nil
}

// runInTx reuses a transaction already carried in ctx, otherwise opens one.
func (s *Postgres) runInTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	if existing, ok := tx.From(ctx); ok {
		return fn(ctx, existing)
	}
	t, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = t.Rollback(ctx) }()

	if err := fn(tx.WithTx(ctx, t), t); err != nil {
		return err
	}
	return t.Commit(ctx)
}

func insertArgs(a *models.Account) []any {
	return []any{
		a.ID.String(), string(a.Type), string(a.Status),
		nullable(a.AccountNumber), nullable(a.CustomerID),
		a.Currency, a.InitialDeposit,
		a.Profile.FullName, a.Profile.Gender, a.Profile.BirthDate,
		a.Profile.Address, a.Profile.PhoneNumber,
		a.RejectionReason, a.CreatedAt, a.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a                         models.Account
		idStr, typ, status        string
		accountNumber, customerID *string
	)
	err := row.Scan(&idStr, &typ, &status, &accountNumber, &customerID, &a.Currency,
		&a.InitialDeposit, &a.Profile.FullName, &a.Profile.Gender, &a.Profile.BirthDate,
		&a.Profile.Address, &a.Profile.PhoneNumber,
		&a.RejectionReason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	accountID, err := id.ParseAccountID(idStr)
	if err != nil {
		return nil, fmt.Errorf("scan account id: %w", err)
	}
	a.ID = accountID
	a.Type = models.AccountType(typ)
	a.Status = models.AccountStatus(status)
	if accountNumber != nil {
		a.AccountNumber = *accountNumber
	}
	if customerID != nil {
		a.CustomerID = *customerID
	}
	return &a, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
