package correlation

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals that no correlation exists for the given key.
	ErrNotFound = errors.New("correlation: not found")
	// ErrDuplicatePackage signals a second insert for the same package id.
	ErrDuplicatePackage = errors.New("correlation: package already recorded")
)

// Repository defines the correlation store contract. All operations are
// single-statement and idempotent at the row level.
type Repository interface {
	Insert(ctx context.Context, params InsertParams) error
	LookupPackageID(ctx context.Context, designationID string) (string, error)
	LookupDesignationID(ctx context.Context, packageID string) (int64, error)
	MarkCanceled(ctx context.Context, designationID string) error
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed correlation repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert records a package/designation correlation. A designation id that
// does not parse as an integer is stored as NULL, not rejected.
func (r *PGRepository) Insert(ctx context.Context, params InsertParams) error {
	if params.PackageID == "" {
		return fmt.Errorf("correlation: empty package id")
	}

	const insertSQL = `
		INSERT INTO package_records (package_id, designation_id, signer_email, correlation_tag)
		VALUES ($1, $2, $3, $4)
	`

	var designation *int64
	if id, err := strconv.ParseInt(params.DesignationID, 10, 64); err == nil {
		designation = &id
	}

	_, err := r.pool.Exec(ctx, insertSQL, params.PackageID, designation, params.SignerEmail, params.CorrelationTag)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePackage
		}
		return fmt.Errorf("correlation: insert: %w", err)
	}

	return nil
}

// LookupPackageID returns the most recently recorded package id for the
// designation. Canceled rows are not filtered; history is preserved and the
// most recent row wins deterministically.
func (r *PGRepository) LookupPackageID(ctx context.Context, designationID string) (string, error) {
	id, err := strconv.ParseInt(designationID, 10, 64)
	if err != nil {
		return "", ErrNotFound
	}

	const selectSQL = `
		SELECT package_id
		FROM package_records
		WHERE designation_id = $1
		ORDER BY created_at DESC, package_id DESC
		LIMIT 1
	`

	var packageID string
	if err := r.pool.QueryRow(ctx, selectSQL, id).Scan(&packageID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("correlation: lookup package id: %w", err)
	}

	return packageID, nil
}

// LookupDesignationID returns the designation recorded for a package id.
// Rows stored with a NULL designation report ErrNotFound.
func (r *PGRepository) LookupDesignationID(ctx context.Context, packageID string) (int64, error) {
	const selectSQL = `
		SELECT designation_id
		FROM package_records
		WHERE package_id = $1
	`

	var designation *int64
	if err := r.pool.QueryRow(ctx, selectSQL, packageID).Scan(&designation); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("correlation: lookup designation id: %w", err)
	}
	if designation == nil {
		return 0, ErrNotFound
	}

	return *designation, nil
}

// MarkCanceled flips the canceled flag on every record for the designation.
// Re-marking an already-canceled designation is a no-op.
func (r *PGRepository) MarkCanceled(ctx context.Context, designationID string) error {
	id, err := strconv.ParseInt(designationID, 10, 64)
	if err != nil {
		return ErrNotFound
	}

	const updateSQL = `
		UPDATE package_records
		SET canceled = true
		WHERE designation_id = $1
	`

	tag, err := r.pool.Exec(ctx, updateSQL, id)
	if err != nil {
		return fmt.Errorf("correlation: mark canceled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
