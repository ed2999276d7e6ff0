package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/refcrew/refcrew/go/internal/models"
)

// NotesRepository persists private referee notes. Notes are scoped to one
// (assignment, referee) pair and only ever read back by their owner.
type NotesRepository struct {
	db *sql.DB
}

func NewNotesRepository(db *sql.DB) *NotesRepository {
	return &NotesRepository{
		db: db,
	}
}

func (r *NotesRepository) CreateNote(ctx context.Context, assignmentID, refereeID uuid.UUID, body string, now time.Time) (*models.RefereeNote, error) {
	note := &models.RefereeNote{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		RefereeID:    refereeID,
		Body:         body,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO referee_notes (id, assignment_id, referee_id, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		note.ID, note.AssignmentID, note.RefereeID, note.Body, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

func (r *NotesRepository) GetNote(ctx context.Context, id uuid.UUID) (*models.RefereeNote, error) {
	var note models.RefereeNote
	err := r.db.QueryRowContext(ctx, `
		SELECT id, assignment_id, referee_id, body, created_at, updated_at
		FROM referee_notes WHERE id = $1`, id).
		Scan(&note.ID, &note.AssignmentID, &note.RefereeID, &note.Body, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return &note, nil
}

func (r *NotesRepository) UpdateNote(ctx context.Context, id uuid.UUID, body string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE referee_notes SET body = $2, updated_at = $3 WHERE id = $1`,
		id, body, now)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotesRepository) DeleteNote(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM referee_notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotesRepository) ListNotes(ctx context.Context, assignmentID, refereeID uuid.UUID) ([]models.RefereeNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, assignment_id, referee_id, body, created_at, updated_at
		FROM referee_notes
		WHERE assignment_id = $1 AND referee_id = $2
		ORDER BY created_at`,
		assignmentID, refereeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []models.RefereeNote
	for rows.Next() {
		var note models.RefereeNote
		if err := rows.Scan(&note.ID, &note.AssignmentID, &note.RefereeID, &note.Body, &note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}
