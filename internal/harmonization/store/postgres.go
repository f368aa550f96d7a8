package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bankops/internal/harmonization/models"
	id "bankops/pkg/domain"
	"bankops/pkg/platform/sentinel"
	"bankops/pkg/platform/tx"
)

// Postgres persists harmonization requests. The partial unique index on
// account_id enforces the at-most-one in-flight rule at the database level;
// Execute serializes per-request mutations with FOR UPDATE.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Schema is applied by deploy tooling and by integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS harmonization_requests (
    id                UUID PRIMARY KEY,
    account_id        UUID NOT NULL,
    phone_number      TEXT NOT NULL,
    masked_phone      TEXT NOT NULL,
    correlation_token TEXT NOT NULL UNIQUE,
    status            TEXT NOT NULL,
    fayda_data        JSONB,
    review            JSONB,
    created_at        TIMESTAMPTZ NOT NULL,
    updated_at        TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS harmonization_one_active_per_account
    ON harmonization_requests (account_id)
    WHERE status NOT IN ('MERGED', 'REJECTED', 'CANCELLED');
`

// EnsureSchema creates the requests table and its indexes.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

const requestColumns = `id, account_id, phone_number, masked_phone, correlation_token,
	status, fayda_data, review, created_at, updated_at`

// CreateIfNoActive inserts the request; the partial unique index rejects a
// second in-flight request for the same account.
func (s *Postgres) CreateIfNoActive(ctx context.Context, request *models.Request) error {
	if err := request.Validate(); err != nil {
		return err
	}
	fayda, review, err := marshalPayloads(request)
	if err != nil {
		return err
	}
	query := `INSERT INTO harmonization_requests (` + requestColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err = s.pool.Exec(ctx, query,
		request.ID.String(), request.AccountID.String(),
		request.PhoneNumber, request.MaskedPhone, request.CorrelationToken,
		string(request.Status), fayda, review,
		request.CreatedAt, request.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			if pgErr.ConstraintName == "harmonization_one_active_per_account" {
				return sentinel.ErrAlreadyUsed
			}
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert harmonization request: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, requestID id.HarmonizationID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM harmonization_requests WHERE id = $1`
	return scanRequest(s.pool.QueryRow(ctx, query, requestID.String()))
}

func (s *Postgres) FindByToken(ctx context.Context, token string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM harmonization_requests WHERE correlation_token = $1`
	return scanRequest(s.pool.QueryRow(ctx, query, token))
}

func (s *Postgres) FindActiveByAccount(ctx context.Context, accountID id.AccountID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM harmonization_requests
		WHERE account_id = $1 AND status NOT IN ('MERGED', 'REJECTED', 'CANCELLED')`
	return scanRequest(s.pool.QueryRow(ctx, query, accountID.String()))
}

// Execute runs validate then mutate on the row locked FOR UPDATE, committing
// only if both succeed.
func (s *Postgres) Execute(
	ctx context.Context,
	requestID id.HarmonizationID,
	validate func(*models.Request) error,
	mutate func(*models.Request),
) (*models.Request, error) {
	var result *models.Request
	err := s.runInTx(ctx, func(txCtx context.Context, q pgx.Tx) error {
		row := q.QueryRow(ctx,
			`SELECT `+requestColumns+` FROM harmonization_requests WHERE id = $1 FOR UPDATE`,
			requestID.String())
		request, err := scanRequest(row)
		if err != nil {
			return err
		}
		if err := validate(request); err != nil {
			return err
		}
		mutate(request)
		if err := request.Validate(); err != nil {
			return err
		}
		fayda, review, err := marshalPayloads(request)
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, `UPDATE harmonization_requests SET
			status = $2, fayda_data = $3, review = $4, updated_at = $5
			WHERE id = $1`,
			request.ID.String(), string(request.Status), fayda, review, request.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update harmonization request: %w", err)
		}
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

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

func marshalPayloads(r *models.Request) ([]byte, []byte, error) {
	var fayda, review []byte
	var err error
	if r.Fayda != nil {
		if fayda, err = json.Marshal(r.Fayda); err != nil {
			return nil, nil, fmt.Errorf("marshal fayda payload: %w", err)
		}
	}
	if r.Review != nil {
		if review, err = json.Marshal(r.Review); err != nil {
			return nil, nil, fmt.Errorf("marshal review: %w", err)
		}
	}
	return fayda, review, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		r              models.Request
		idStr, acctStr string
		status         string
		fayda, review  []byte
	)
	err := row.Scan(&idStr, &acctStr, &r.PhoneNumber, &r.MaskedPhone, &r.CorrelationToken,
		&status, &fayda, &review, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan harmonization request: %w", err)
	}
	requestID, err := id.ParseHarmonizationID(idStr)
	if err != nil {
		return nil, fmt.Errorf("scan request id: %w", err)
	}
	accountID, err := id.ParseAccountID(acctStr)
	if err != nil {
		return nil, fmt.Errorf("scan account id: %w", err)
	}
	r.ID = requestID
	r.AccountID = accountID
	r.Status = models.Status(status)
	if len(fayda) > 0 {
		r.Fayda = &models.FaydaIdentity{}
		if err := json.Unmarshal(fayda, r.Fayda); err != nil {
			return nil, fmt.Errorf("decode fayda payload: %w", err)
		}
	}
	if len(review) > 0 {
		r.Review = &models.Review{}
		if err := json.Unmarshal(review, r.Review); err != nil {
			return nil, fmt.Errorf("decode review: %w", err)
		}
	}
	return &r, nil
}
