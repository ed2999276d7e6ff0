package assignment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/refcrew/refcrew/go/internal/identity"
	"github.com/refcrew/refcrew/go/internal/models"
)

// Note operations. Notes are the referee's private scratchpad for one
// assignment; no other party can ever read or modify them, so every operation
// checks ownership before touching the store.

// CreateNote adds a private note to one of the referee's own assignments.
func (a *App) CreateNote(ctx context.Context, req NoteRequest) (*models.RefereeNote, error) {
	if req.Body == "" {
		return nil, fmt.Errorf("validation failed: note body is required")
	}

	asgn, err := a.repo.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if asgn.RefereeID != req.Referee.ID {
		return nil, ErrNotNoteOwner
	}

	return a.notes.CreateNote(ctx, req.AssignmentID, req.Referee.ID, req.Body, a.clock.Now())
}

// UpdateNote replaces the body of a note owned by the referee.
func (a *App) UpdateNote(ctx context.Context, noteID uuid.UUID, body string, referee identity.Principal) error {
	if body == "" {
		return fmt.Errorf("validation failed: note body is required")
	}

	note, err := a.notes.GetNote(ctx, noteID)
	if err != nil {
		return err
	}
	if note.RefereeID != referee.ID {
		return ErrNotNoteOwner
	}

	return a.notes.UpdateNote(ctx, noteID, body, a.clock.Now())
}

// DeleteNote removes a note owned by the referee.
func (a *App) DeleteNote(ctx context.Context, noteID uuid.UUID, referee identity.Principal) error {
	note, err := a.notes.GetNote(ctx, noteID)
	if err != nil {
		return err
	}
	if note.RefereeID != referee.ID {
		return ErrNotNoteOwner
	}

	return a.notes.DeleteNote(ctx, noteID)
}

// ListNotes returns the referee's own notes for one assignment.
func (a *App) ListNotes(ctx context.Context, assignmentID uuid.UUID, referee identity.Principal) ([]models.RefereeNote, error) {
	return a.notes.ListNotes(ctx, assignmentID, referee.ID)
}
