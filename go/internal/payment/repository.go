package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
)

const paymentColumns = `
	id, referee_id, assignment_ids, amount, method, payer_id, payer_role,
	status, external_ref, failure_reason, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) CreatePayment(ctx context.Context, q sqlutil.Querier, p *models.RefereePayment) error {
	ids := make([]string, len(p.AssignmentIDs))
	for i, id := range p.AssignmentIDs {
		ids[i] = id.String()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO referee_payments (
			id, referee_id, assignment_ids, amount, method, payer_id, payer_role,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		p.ID, p.RefereeID, pq.Array(ids), p.Amount, p.Method, p.PayerID, p.PayerRole,
		string(p.Status), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *Repository) GetPayment(ctx context.Context, id uuid.UUID) (*models.RefereePayment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM referee_payments WHERE id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// UpdateStatusWhere moves the payment to a new status only from the given
// current status. A nil result with nil error means the precondition failed.
func (r *Repository) UpdateStatusWhere(ctx context.Context, q sqlutil.Querier, id uuid.UUID, from, to models.PaymentStatus, externalRef, failureReason *string, now time.Time) (*models.RefereePayment, error) {
	row := q.QueryRowContext(ctx, `
		UPDATE referee_payments
		SET status = $2,
		    external_ref = COALESCE($3, external_ref),
		    failure_reason = COALESCE($4, failure_reason),
		    updated_at = $5
		WHERE id = $1 AND status = $6
		RETURNING `+paymentColumns,
		id, string(to), sqlutil.ToSqlString(externalRef), sqlutil.ToSqlString(failureReason),
		now, string(from))
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	return p, nil
}

func (r *Repository) ListByReferee(ctx context.Context, refereeID uuid.UUID) ([]models.RefereePayment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM referee_payments
		WHERE referee_id = $1
		ORDER BY created_at DESC`,
		refereeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by referee: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *Repository) ListByStatus(ctx context.Context, status models.PaymentStatus, limit int32) ([]models.RefereePayment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM referee_payments
		WHERE status = $1
		ORDER BY updated_at DESC
		LIMIT CASE WHEN $2 > 0 THEN $2 ELSE NULL END`,
		string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by status: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *Repository) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.RefereePayment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM referee_payments
		WHERE $1 = ANY(assignment_ids)
		ORDER BY created_at DESC`,
		assignmentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by assignment: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.RefereePayment, error) {
	var (
		p             models.RefereePayment
		ids           pq.StringArray
		status        string
		externalRef   sql.NullString
		failureReason sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.RefereeID, &ids, &p.Amount, &p.Method, &p.PayerID, &p.PayerRole,
		&status, &externalRef, &failureReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.AssignmentIDs = make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse assignment id %q: %w", raw, err)
		}
		p.AssignmentIDs = append(p.AssignmentIDs, id)
	}
	p.Status = models.PaymentStatus(status)
	p.ExternalRef = sqlutil.FromSqlStringPtr(externalRef)
	p.FailureReason = sqlutil.FromSqlStringPtr(failureReason)

	return &p, nil
}

func collectPayments(rows *sql.Rows) ([]models.RefereePayment, error) {
	var out []models.RefereePayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
