package dispute

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/refcrew/refcrew/go/internal/events"
	"github.com/refcrew/refcrew/go/internal/identity"
	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// DisputeRepository defines what the app layer needs from the dispute repository
type DisputeRepository interface {
	CreateInfraction(ctx context.Context, q sqlutil.Querier, inf *models.Infraction) error
	GetInfraction(ctx context.Context, id uuid.UUID) (*models.Infraction, error)
	UpdateInfractionStatus(ctx context.Context, q sqlutil.Querier, id uuid.UUID, from, to models.InfractionStatus, now time.Time) (*models.Infraction, error)
	ListInfractionsByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.Infraction, error)
	CreateThread(ctx context.Context, q sqlutil.Querier, thread *models.InfractionThread) error
	GetThread(ctx context.Context, threadID uuid.UUID) (*models.InfractionThread, error)
	GetThreadByInfraction(ctx context.Context, infractionID uuid.UUID) (*models.InfractionThread, error)
	CloseThread(ctx context.Context, q sqlutil.Querier, threadID uuid.UUID, now time.Time) (*models.InfractionThread, error)
	AppendMessage(ctx context.Context, q sqlutil.Querier, msg *models.InfractionMessage) (bool, error)
	AppendSystemMessage(ctx context.Context, q sqlutil.Querier, threadID uuid.UUID, body string, now time.Time) error
	ListMessages(ctx context.Context, threadID uuid.UUID) ([]models.InfractionMessage, error)
}

// AssignmentSource defines what the dispute mediator needs from the assignment store
type AssignmentSource interface {
	GetAssignment(ctx context.Context, id uuid.UUID) (*models.RefereeAssignment, error)
}

// RefereeDirectory defines what the dispute mediator needs from the referee directory
type RefereeDirectory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.RefereeProfile, error)
}

// Outbox defines what the dispute mediator needs from the event outbox
type Outbox interface {
	Insert(ctx context.Context, q sqlutil.Querier, entityID uuid.UUID, eventType string, payload any) error
}

// allowedInfractionTransitions is the infraction review flow.
var allowedInfractionTransitions = map[models.InfractionStatus][]models.InfractionStatus{
	models.InfractionSubmitted:   {models.InfractionUnderReview},
	models.InfractionUnderReview: {models.InfractionResolved, models.InfractionDismissed},
	models.InfractionResolved:    {models.InfractionAppealed},
	models.InfractionDismissed:   {models.InfractionAppealed},
	models.InfractionAppealed:    {models.InfractionUnderReview},
}

// App mediates infraction disputes: the report itself, its review status, and
// the bounded four-role message thread attached to it.
type App struct {
	repo        DisputeRepository
	assignments AssignmentSource
	referees    RefereeDirectory
	outbox      Outbox
	db          sqlutil.Runner
	clock       clockwork.Clock
}

// NewApp creates a new dispute App
func NewApp(repo DisputeRepository, assignments AssignmentSource, referees RefereeDirectory, outbox Outbox, db sqlutil.Runner, clock clockwork.Clock) *App {
	return &App{
		repo:        repo,
		assignments: assignments,
		referees:    referees,
		outbox:      outbox,
		db:          db,
		clock:       clock,
	}
}

// ReportInfraction files an infraction and opens its dispute thread in one
// transaction. The assignment's referee is always bound as a participant; the
// league contact is mandatory, team director and head coach optional.
func (a *App) ReportInfraction(ctx context.Context, req ReportInfractionRequest) (*models.Infraction, *models.InfractionThread, error) {
	if err := a.validateReportRequest(req); err != nil {
		return nil, nil, fmt.Errorf("validation failed: %w", err)
	}

	asgn, err := a.assignments.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, nil, err
	}

	refereeName := ""
	if profile, err := a.referees.GetProfile(ctx, asgn.RefereeID); err == nil {
		refereeName = profile.DisplayName
	}

	now := a.clock.Now()
	inf := &models.Infraction{
		ID:           uuid.New(),
		AssignmentID: req.AssignmentID,
		Title:        req.Title,
		Description:  req.Description,
		Severity:     req.Severity,
		Status:       models.InfractionSubmitted,
		ReporterID:   req.Reporter.ID,
		ReporterRole: string(req.Reporter.Role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	participants := []models.ThreadParticipant{
		{UserID: req.League.ID, Name: req.League.Name, Role: models.ThreadRoleLeague},
		{UserID: asgn.RefereeID, Name: refereeName, Role: models.ThreadRoleReferee},
	}
	if req.TeamDirector != nil {
		participants = append(participants, models.ThreadParticipant{
			UserID: req.TeamDirector.ID, Name: req.TeamDirector.Name, Role: models.ThreadRoleTeam,
		})
	}
	if req.HeadCoach != nil {
		participants = append(participants, models.ThreadParticipant{
			UserID: req.HeadCoach.ID, Name: req.HeadCoach.Name, Role: models.ThreadRoleHeadCoach,
		})
	}

	thread := &models.InfractionThread{
		ID:           uuid.New(),
		InfractionID: inf.ID,
		Participants: participants,
		Status:       models.ThreadActive,
		CreatedAt:    now,
	}

	err = a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		if err := a.repo.CreateInfraction(ctx, q, inf); err != nil {
			return err
		}
		if err := a.repo.CreateThread(ctx, q, thread); err != nil {
			return err
		}
		return a.repo.AppendSystemMessage(ctx, q, thread.ID,
			fmt.Sprintf("Infraction reported: %s (severity %s)", inf.Title, inf.Severity), now)
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("infraction_id", inf.ID.String()).
		Str("thread_id", thread.ID.String()).
		Str("severity", string(inf.Severity)).
		Msg("infraction reported")
	return inf, thread, nil
}

// GetInfraction retrieves an infraction by ID
func (a *App) GetInfraction(ctx context.Context, id uuid.UUID) (*models.Infraction, error) {
	return a.repo.GetInfraction(ctx, id)
}

// ListInfractionsByAssignment retrieves the infractions filed against one
// assignment.
func (a *App) ListInfractionsByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.Infraction, error) {
	return a.repo.ListInfractionsByAssignment(ctx, assignmentID)
}

// SetInfractionStatus moves an infraction through its review flow. Only the
// thread's league participant may change it. The change is announced in the
// thread with a system message.
func (a *App) SetInfractionStatus(ctx context.Context, infractionID uuid.UUID, to models.InfractionStatus, by identity.Principal) (*models.Infraction, error) {
	inf, err := a.repo.GetInfraction(ctx, infractionID)
	if err != nil {
		return nil, err
	}
	thread, err := a.repo.GetThreadByInfraction(ctx, infractionID)
	if err != nil {
		return nil, err
	}
	if !hasRole(thread, by, models.ThreadRoleLeague) {
		return nil, ErrNotLeague
	}
	if !infractionTransitionAllowed(inf.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, inf.Status, to)
	}

	now := a.clock.Now()
	var updated *models.Infraction
	err = a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		var err error
		updated, err = a.repo.UpdateInfractionStatus(ctx, q, infractionID, inf.Status, to, now)
		if err != nil {
			return err
		}
		if updated == nil {
			// Concurrent status change won between our read and this write.
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, inf.Status, to)
		}
		return a.repo.AppendSystemMessage(ctx, q, thread.ID,
			fmt.Sprintf("Infraction status changed to %s", to), now)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("infraction_id", infractionID.String()).
		Str("status", string(to)).
		Msg("infraction status changed")
	return updated, nil
}

// GetThread returns the thread if the principal is one of its participants.
func (a *App) GetThread(ctx context.Context, threadID uuid.UUID, by identity.Principal) (*models.InfractionThread, error) {
	thread, err := a.repo.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if participantOf(thread, by) == nil {
		return nil, ErrNotAParticipant
	}
	return thread, nil
}

// Messages returns the thread's messages, creation-ordered, to participants
// only.
func (a *App) Messages(ctx context.Context, threadID uuid.UUID, by identity.Principal) ([]models.InfractionMessage, error) {
	thread, err := a.repo.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if participantOf(thread, by) == nil {
		return nil, ErrNotAParticipant
	}
	return a.repo.ListMessages(ctx, threadID)
}

// SendMessage appends one message to an active thread. The sender's role tag
// comes from their participant binding, not from the request.
func (a *App) SendMessage(ctx context.Context, req SendMessageRequest) (*models.InfractionMessage, error) {
	if req.Body == "" {
		return nil, fmt.Errorf("validation failed: message body is required")
	}

	thread, err := a.repo.GetThread(ctx, req.ThreadID)
	if err != nil {
		return nil, err
	}
	participant := participantOf(thread, req.Sender)
	if participant == nil {
		return nil, ErrNotAParticipant
	}
	if thread.Status == models.ThreadClosed {
		return nil, ErrThreadClosed
	}

	now := a.clock.Now()
	msg := &models.InfractionMessage{
		ID:         uuid.New(),
		ThreadID:   req.ThreadID,
		SenderID:   req.Sender.ID,
		SenderName: participant.Name,
		SenderRole: participant.Role,
		Body:       req.Body,
		CreatedAt:  now,
	}

	err = a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		inserted, err := a.repo.AppendMessage(ctx, q, msg)
		if err != nil {
			return err
		}
		if !inserted {
			// Thread closed between our read and the insert.
			return ErrThreadClosed
		}
		return a.outbox.Insert(ctx, q, thread.ID, events.TypeThreadMessage, events.ThreadMessagePayload{
			ThreadID:   thread.ID,
			MessageID:  msg.ID,
			SenderRole: string(msg.SenderRole),
			SentAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// CloseThread closes the conversation for good; there is no reopen path. Only
// a league participant may close. A system message records the closure.
func (a *App) CloseThread(ctx context.Context, threadID uuid.UUID, by identity.Principal) (*models.InfractionThread, error) {
	thread, err := a.repo.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if participantOf(thread, by) == nil {
		return nil, ErrNotAParticipant
	}
	if !hasRole(thread, by, models.ThreadRoleLeague) {
		return nil, ErrNotLeague
	}

	now := a.clock.Now()
	var closed *models.InfractionThread
	err = a.db.RunTx(ctx, func(q sqlutil.Querier) error {
		var err error
		closed, err = a.repo.CloseThread(ctx, q, threadID, now)
		if err != nil {
			return err
		}
		if closed == nil {
			return ErrThreadClosed
		}
		if err := a.repo.AppendSystemMessage(ctx, q, threadID,
			fmt.Sprintf("Thread closed by %s", by.Name), now); err != nil {
			return err
		}
		return a.outbox.Insert(ctx, q, threadID, events.TypeThreadClosed, events.ThreadClosedPayload{
			ThreadID: threadID,
			ClosedBy: by.ID,
			ClosedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("thread_id", threadID.String()).
		Str("closed_by", by.ID.String()).
		Msg("dispute thread closed")
	return closed, nil
}

func participantOf(thread *models.InfractionThread, p identity.Principal) *models.ThreadParticipant {
	for i := range thread.Participants {
		if thread.Participants[i].UserID == p.ID {
			return &thread.Participants[i]
		}
	}
	return nil
}

func hasRole(thread *models.InfractionThread, p identity.Principal, role models.ThreadRole) bool {
	participant := participantOf(thread, p)
	return participant != nil && participant.Role == role
}

func infractionTransitionAllowed(from, to models.InfractionStatus) bool {
	for _, allowed := range allowedInfractionTransitions[from] {
		if to == allowed {
			return true
		}
	}
	return false
}

func (a *App) validateReportRequest(req ReportInfractionRequest) error {
	if req.AssignmentID == uuid.Nil {
		return fmt.Errorf("assignment_id is required")
	}
	if req.Title == "" {
		return fmt.Errorf("title is required")
	}
	switch req.Severity {
	case models.SeverityMinor, models.SeverityModerate, models.SeverityMajor, models.SeveritySevere:
	default:
		return fmt.Errorf("invalid severity: %s", req.Severity)
	}
	if req.Reporter.ID == uuid.Nil {
		return fmt.Errorf("reporter is required")
	}
	if req.League.ID == uuid.Nil {
		return fmt.Errorf("league participant is required")
	}
	return nil
}
