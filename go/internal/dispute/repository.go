package dispute

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
)

const infractionColumns = `
	id, assignment_id, title, description, severity, status,
	reporter_id, reporter_role, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) CreateInfraction(ctx context.Context, q sqlutil.Querier, inf *models.Infraction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO infractions (
			id, assignment_id, title, description, severity, status,
			reporter_id, reporter_role, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		inf.ID, inf.AssignmentID, inf.Title, inf.Description, string(inf.Severity),
		string(inf.Status), inf.ReporterID, inf.ReporterRole, inf.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create infraction: %w", err)
	}
	return nil
}

func (r *Repository) GetInfraction(ctx context.Context, id uuid.UUID) (*models.Infraction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+infractionColumns+` FROM infractions WHERE id = $1`, id)
	inf, err := scanInfraction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get infraction: %w", err)
	}
	return inf, nil
}

func (r *Repository) UpdateInfractionStatus(ctx context.Context, q sqlutil.Querier, id uuid.UUID, from, to models.InfractionStatus, now time.Time) (*models.Infraction, error) {
	row := q.QueryRowContext(ctx, `
		UPDATE infractions SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+infractionColumns,
		id, string(to), now, string(from))
	inf, err := scanInfraction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update infraction status: %w", err)
	}
	return inf, nil
}

func (r *Repository) ListInfractionsByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.Infraction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+infractionColumns+`
		FROM infractions WHERE assignment_id = $1 ORDER BY created_at`,
		assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list infractions: %w", err)
	}
	defer rows.Close()

	var out []models.Infraction
	for rows.Next() {
		inf, err := scanInfraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan infraction: %w", err)
		}
		out = append(out, *inf)
	}
	return out, rows.Err()
}

func (r *Repository) CreateThread(ctx context.Context, q sqlutil.Querier, thread *models.InfractionThread) error {
	participantsBytes, err := json.Marshal(thread.Participants)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO infraction_threads (id, infraction_id, participants, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		thread.ID, thread.InfractionID, participantsBytes, string(thread.Status), thread.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

func (r *Repository) GetThread(ctx context.Context, threadID uuid.UUID) (*models.InfractionThread, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, infraction_id, participants, status, created_at, closed_at
		FROM infraction_threads WHERE id = $1`, threadID)
	return scanThread(row)
}

func (r *Repository) GetThreadByInfraction(ctx context.Context, infractionID uuid.UUID) (*models.InfractionThread, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, infraction_id, participants, status, created_at, closed_at
		FROM infraction_threads WHERE infraction_id = $1`, infractionID)
	return scanThread(row)
}

// CloseThread closes an active thread. A nil result with nil error means the
// thread was already closed.
func (r *Repository) CloseThread(ctx context.Context, q sqlutil.Querier, threadID uuid.UUID, now time.Time) (*models.InfractionThread, error) {
	row := q.QueryRowContext(ctx, `
		UPDATE infraction_threads SET status = $2, closed_at = $3
		WHERE id = $1 AND status = $4
		RETURNING id, infraction_id, participants, status, created_at, closed_at`,
		threadID, string(models.ThreadClosed), now, string(models.ThreadActive))
	thread, err := scanThread(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return thread, nil
}

// AppendMessage inserts a message only while the thread is active, in one
// statement, so a concurrent close cannot let a message slip in afterwards.
func (r *Repository) AppendMessage(ctx context.Context, q sqlutil.Querier, msg *models.InfractionMessage) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO infraction_messages (id, thread_id, sender_id, sender_name, sender_role, body, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (
			SELECT 1 FROM infraction_threads WHERE id = $2 AND status = $8
		)`,
		msg.ID, msg.ThreadID, msg.SenderID, msg.SenderName, string(msg.SenderRole),
		msg.Body, msg.CreatedAt, string(models.ThreadActive))
	if err != nil {
		return false, fmt.Errorf("failed to append message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// AppendSystemMessage records an auto-generated thread event. It skips the
// active check so closure records land in the thread they describe.
func (r *Repository) AppendSystemMessage(ctx context.Context, q sqlutil.Querier, threadID uuid.UUID, body string, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO infraction_messages (id, thread_id, sender_id, sender_name, sender_role, body, created_at)
		VALUES ($1, $2, $3, 'system', $4, $5, $6)`,
		uuid.New(), threadID, uuid.Nil, string(models.ThreadRoleSystem), body, now)
	if err != nil {
		return fmt.Errorf("failed to append system message: %w", err)
	}
	return nil
}

func (r *Repository) ListMessages(ctx context.Context, threadID uuid.UUID) ([]models.InfractionMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, thread_id, sender_id, sender_name, sender_role, body, created_at
		FROM infraction_messages
		WHERE thread_id = $1
		ORDER BY created_at, id`,
		threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []models.InfractionMessage
	for rows.Next() {
		var (
			msg  models.InfractionMessage
			role string
		)
		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.SenderID, &msg.SenderName, &role, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.SenderRole = models.ThreadRole(role)
		out = append(out, msg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfraction(row rowScanner) (*models.Infraction, error) {
	var (
		inf      models.Infraction
		severity string
		status   string
	)
	err := row.Scan(
		&inf.ID, &inf.AssignmentID, &inf.Title, &inf.Description, &severity, &status,
		&inf.ReporterID, &inf.ReporterRole, &inf.CreatedAt, &inf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inf.Severity = models.InfractionSeverity(severity)
	inf.Status = models.InfractionStatus(status)
	return &inf, nil
}

func scanThread(row rowScanner) (*models.InfractionThread, error) {
	var (
		thread            models.InfractionThread
		participantsBytes []byte
		status            string
		closedAt          sql.NullTime
	)
	err := row.Scan(&thread.ID, &thread.InfractionID, &participantsBytes, &status, &thread.CreatedAt, &closedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan thread: %w", err)
	}
	if err := json.Unmarshal(participantsBytes, &thread.Participants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
	}
	thread.Status = models.ThreadStatus(status)
	thread.ClosedAt = sqlutil.FromSqlTime(closedAt)
	return &thread, nil
}
