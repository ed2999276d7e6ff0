package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refcrew/refcrew/go/internal/gamesource"
	"github.com/refcrew/refcrew/go/internal/identity"
	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
)

// fakeRunner satisfies sqlutil.Runner without a database. The fakes below
// ignore the Querier, so passing nil through is fine.
type fakeRunner struct{}

func (fakeRunner) RunTx(ctx context.Context, fn func(q sqlutil.Querier) error) error {
	return fn(nil)
}

type fakeAssignmentRepo struct {
	assignments map[uuid.UUID]*models.RefereeAssignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{assignments: make(map[uuid.UUID]*models.RefereeAssignment)}
}

func (r *fakeAssignmentRepo) CreateAssignment(ctx context.Context, q sqlutil.Querier, req CreateAssignmentRequest, snapshot models.GameSnapshot, now time.Time) (*models.RefereeAssignment, error) {
	for _, existing := range r.assignments {
		if existing.RefereeID == req.RefereeID &&
			existing.GameRef.GameID() == req.GameRef.GameID() &&
			existing.Status != models.AssignmentStatusDeclined &&
			existing.Status != models.AssignmentStatusCancelled {
			return nil, ErrDuplicateAssignment
		}
	}
	asgn := &models.RefereeAssignment{
		ID:            uuid.New(),
		RefereeID:     req.RefereeID,
		GameRef:       req.GameRef,
		AssignerID:    req.Assigner.ID,
		AssignerRole:  string(req.Assigner.Role),
		Position:      req.Position,
		Game:          snapshot,
		PayAmount:     req.PayAmount,
		PaymentStatus: models.PaymentSummaryUnpaid,
		Status:        models.AssignmentStatusPending,
		AssignedAt:    now,
		UpdatedAt:     now,
	}
	r.assignments[asgn.ID] = asgn
	return copyAssignment(asgn), nil
}

func (r *fakeAssignmentRepo) GetAssignment(ctx context.Context, id uuid.UUID) (*models.RefereeAssignment, error) {
	asgn, ok := r.assignments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAssignment(asgn), nil
}

func (r *fakeAssignmentRepo) UpdateStatusWhere(ctx context.Context, q sqlutil.Querier, id uuid.UUID, from []models.AssignmentStatus, to models.AssignmentStatus, respondedAt *time.Time, reason *string, now time.Time) (*models.RefereeAssignment, error) {
	asgn, ok := r.assignments[id]
	if !ok {
		return nil, nil
	}
	matches := false
	for _, s := range from {
		if asgn.Status == s {
			matches = true
		}
	}
	if !matches {
		return nil, nil
	}
	asgn.Status = to
	asgn.RespondedAt = respondedAt
	asgn.DeclineReason = reason
	asgn.UpdatedAt = now
	return copyAssignment(asgn), nil
}

func (r *fakeAssignmentRepo) SubmitScore(ctx context.Context, q sqlutil.Querier, id uuid.UUID, homeScore, awayScore int, now time.Time) (*models.RefereeAssignment, error) {
	asgn, ok := r.assignments[id]
	if !ok || asgn.Status != models.AssignmentStatusAccepted || asgn.ScoreSubmitted {
		return nil, nil
	}
	asgn.ScoreSubmitted = true
	asgn.FinalHomeScore = &homeScore
	asgn.FinalAwayScore = &awayScore
	asgn.Status = models.AssignmentStatusCompleted
	asgn.UpdatedAt = now
	return copyAssignment(asgn), nil
}

func (r *fakeAssignmentRepo) ListByReferee(ctx context.Context, refereeID uuid.UUID, filter ListFilter) ([]models.RefereeAssignment, error) {
	var out []models.RefereeAssignment
	for _, asgn := range r.assignments {
		if asgn.RefereeID == refereeID {
			out = append(out, *copyAssignment(asgn))
		}
	}
	return out, nil
}

func (r *fakeAssignmentRepo) ListByGame(ctx context.Context, kind models.GameRefKind, gameID uuid.UUID) ([]models.RefereeAssignment, error) {
	var out []models.RefereeAssignment
	for _, asgn := range r.assignments {
		if asgn.GameRef.Kind() == kind && asgn.GameRef.GameID() == gameID {
			out = append(out, *copyAssignment(asgn))
		}
	}
	return out, nil
}

func (r *fakeAssignmentRepo) ListByStatus(ctx context.Context, status models.AssignmentStatus, limit int32) ([]models.RefereeAssignment, error) {
	var out []models.RefereeAssignment
	for _, asgn := range r.assignments {
		if asgn.Status == status {
			out = append(out, *copyAssignment(asgn))
		}
	}
	return out, nil
}

func (r *fakeAssignmentRepo) SetPaymentSummary(ctx context.Context, q sqlutil.Querier, id uuid.UUID, status models.PaymentSummaryStatus, now time.Time) error {
	asgn, ok := r.assignments[id]
	if !ok {
		return ErrNotFound
	}
	asgn.PaymentStatus = status
	asgn.UpdatedAt = now
	return nil
}

func copyAssignment(asgn *models.RefereeAssignment) *models.RefereeAssignment {
	cp := *asgn
	return &cp
}

type fakeNoteRepo struct {
	notes map[uuid.UUID]*models.RefereeNote
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[uuid.UUID]*models.RefereeNote)}
}

func (r *fakeNoteRepo) CreateNote(ctx context.Context, assignmentID, refereeID uuid.UUID, body string, now time.Time) (*models.RefereeNote, error) {
	note := &models.RefereeNote{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		RefereeID:    refereeID,
		Body:         body,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.notes[note.ID] = note
	return note, nil
}

func (r *fakeNoteRepo) GetNote(ctx context.Context, id uuid.UUID) (*models.RefereeNote, error) {
	note, ok := r.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return note, nil
}

func (r *fakeNoteRepo) UpdateNote(ctx context.Context, id uuid.UUID, body string, now time.Time) error {
	note, ok := r.notes[id]
	if !ok {
		return ErrNotFound
	}
	note.Body = body
	note.UpdatedAt = now
	return nil
}

func (r *fakeNoteRepo) DeleteNote(ctx context.Context, id uuid.UUID) error {
	delete(r.notes, id)
	return nil
}

func (r *fakeNoteRepo) ListNotes(ctx context.Context, assignmentID, refereeID uuid.UUID) ([]models.RefereeNote, error) {
	var out []models.RefereeNote
	for _, note := range r.notes {
		if note.AssignmentID == assignmentID && note.RefereeID == refereeID {
			out = append(out, *note)
		}
	}
	return out, nil
}

type recordedEvent struct {
	entityID  uuid.UUID
	eventType string
}

type fakeOutbox struct {
	events []recordedEvent
}

func (o *fakeOutbox) Insert(ctx context.Context, q sqlutil.Querier, entityID uuid.UUID, eventType string, payload any) error {
	o.events = append(o.events, recordedEvent{entityID: entityID, eventType: eventType})
	return nil
}

func (o *fakeOutbox) types() []string {
	var out []string
	for _, ev := range o.events {
		out = append(out, ev.eventType)
	}
	return out
}

type assignmentFixture struct {
	app    *App
	repo   *fakeAssignmentRepo
	notes  *fakeNoteRepo
	outbox *fakeOutbox
	games  *gamesource.Static
	clock  *clockwork.FakeClock
	gameID uuid.UUID
	league identity.Principal
	ref    identity.Principal
}

func newAssignmentFixture(t *testing.T) *assignmentFixture {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2026, time.April, 11, 8, 0, 0, 0, time.UTC))
	games := gamesource.NewStatic()
	gameID := uuid.New()
	games.Put(gameID, models.GameSnapshot{
		StartsAt:     clock.Now().Add(2 * time.Hour),
		Location:     "Riverside Park Field 3",
		HomeTeamName: "Eastside Hawks",
		AwayTeamName: "North Valley United",
		Sport:        "soccer",
		AgeGroup:     "U12",
	})

	repo := newFakeAssignmentRepo()
	notes := newFakeNoteRepo()
	outbox := &fakeOutbox{}
	app := NewApp(repo, notes, outbox, games, fakeRunner{}, clock)

	return &assignmentFixture{
		app:    app,
		repo:   repo,
		notes:  notes,
		outbox: outbox,
		games:  games,
		clock:  clock,
		gameID: gameID,
		league: identity.Principal{ID: uuid.New(), Name: "Metro Youth Soccer", Role: identity.RoleLeague},
		ref:    identity.Principal{ID: uuid.New(), Name: "Sam Ortiz", Role: identity.RoleReferee},
	}
}

func (f *assignmentFixture) createPending(t *testing.T) *models.RefereeAssignment {
	t.Helper()
	asgn, err := f.app.CreateAssignment(context.Background(), CreateAssignmentRequest{
		RefereeID: f.ref.ID,
		GameRef:   models.LeagueGameRef{LeagueID: f.league.ID, Game: f.gameID},
		Position:  "center",
		PayAmount: 45,
		Assigner:  f.league,
	})
	require.NoError(t, err)
	return asgn
}

func (f *assignmentFixture) createAccepted(t *testing.T) *models.RefereeAssignment {
	t.Helper()
	asgn := f.createPending(t)
	accepted, err := f.app.Respond(context.Background(), RespondRequest{
		AssignmentID: asgn.ID,
		Accept:       true,
		Referee:      f.ref,
	})
	require.NoError(t, err)
	return accepted
}

func TestCreateAssignmentStartsPending(t *testing.T) {
	f := newAssignmentFixture(t)

	asgn := f.createPending(t)

	assert.Equal(t, models.AssignmentStatusPending, asgn.Status)
	assert.Equal(t, models.PaymentSummaryUnpaid, asgn.PaymentStatus)
	assert.Equal(t, "Eastside Hawks", asgn.Game.HomeTeamName)
	assert.Equal(t, f.clock.Now(), asgn.AssignedAt)
	assert.Equal(t, []string{"assignment.created"}, f.outbox.types())
}

func TestCreateAssignmentSnapshotSurvivesGameEdit(t *testing.T) {
	f := newAssignmentFixture(t)

	asgn := f.createPending(t)

	// Editing the source game never reaches an existing assignment.
	f.games.Put(f.gameID, models.GameSnapshot{HomeTeamName: "Renamed FC", Sport: "soccer"})

	got, err := f.app.GetAssignment(context.Background(), asgn.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eastside Hawks", got.Game.HomeTeamName)
}

func TestCreateAssignmentRejectsDuplicateLiveAssignment(t *testing.T) {
	f := newAssignmentFixture(t)
	f.createPending(t)

	_, err := f.app.CreateAssignment(context.Background(), CreateAssignmentRequest{
		RefereeID: f.ref.ID,
		GameRef:   models.LeagueGameRef{LeagueID: f.league.ID, Game: f.gameID},
		Assigner:  f.league,
	})
	assert.ErrorIs(t, err, ErrDuplicateAssignment)
}

func TestCreateAssignmentAllowedAgainAfterDecline(t *testing.T) {
	f := newAssignmentFixture(t)
	asgn := f.createPending(t)

	_, err := f.app.Respond(context.Background(), RespondRequest{
		AssignmentID: asgn.ID,
		Accept:       false,
		Referee:      f.ref,
	})
	require.NoError(t, err)

	second := f.createPending(t)
	assert.Equal(t, models.AssignmentStatusPending, second.Status)
}

func TestCreateAssignmentValidation(t *testing.T) {
	f := newAssignmentFixture(t)
	ctx := context.Background()

	_, err := f.app.CreateAssignment(ctx, CreateAssignmentRequest{
		GameRef:  models.LeagueGameRef{LeagueID: f.league.ID, Game: f.gameID},
		Assigner: f.league,
	})
	assert.Error(t, err, "missing referee")

	_, err = f.app.CreateAssignment(ctx, CreateAssignmentRequest{
		RefereeID: f.ref.ID,
		Assigner:  f.league,
	})
	assert.Error(t, err, "missing game ref")

	_, err = f.app.CreateAssignment(ctx, CreateAssignmentRequest{
		RefereeID: f.ref.ID,
		GameRef:   models.LeagueGameRef{LeagueID: f.league.ID, Game: f.gameID},
		Assigner:  f.ref,
	})
	assert.Error(t, err, "referees cannot assign referees")

	_, err = f.app.CreateAssignment(ctx, CreateAssignmentRequest{
		RefereeID: f.ref.ID,
		GameRef:   models.LeagueGameRef{LeagueID: f.league.ID, Game: f.gameID},
		PayAmount: -10,
		Assigner:  f.league,
	})
	assert.Error(t, err, "negative pay")
}

func TestCreateAssignmentUnknownGame(t *testing.T) {
	f := newAssignmentFixture(t)

	_, err := f.app.CreateAssignment(context.Background(), CreateAssignmentRequest{
		RefereeID: f.ref.ID,
		GameRef:   models.TeamGameRef{TeamID: uuid.New(), Game: uuid.New()},
		Assigner:  f.league,
	})
	assert.ErrorIs(t, err, gamesource.ErrGameNotFound)
}

func TestRespondAccept(t *testing.T) {
	f := newAssignmentFixture(t)
	asgn := f.createPending(t)

	accepted, err := f.app.Respond(context.Background(), RespondRequest{
		AssignmentID: asgn.ID,
		Accept:       true,
		Referee:      f.ref,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)
	assert.Equal(t, f.clock.Now(), *accepted.RespondedAt)
	assert.Equal(t, []string{"assignment.created", "assignment.responded"}, f.outbox.types())
}

func TestRespondDeclineKeepsReason(t *testing.T) {
	f := newAssignmentFixture(t)
	asgn := f.createPending(t)

	reason := "scheduling conflict"
	declined, err := f.app.Respond(context.Background(), RespondRequest{
		AssignmentID: asgn.ID,
		Accept:       false,
		Reason:       &reason,
		Referee:      f.ref,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusDeclined, declined.Status)
	require.NotNil(t, declined.DeclineReason)
	assert.Equal(t, reason, *declined.DeclineReason)
}

func TestRespondSecondResponseLosesRace(t *testing.T) {
	f := newAssignmentFixture(t)
	asgn := f.createAccepted(t)

	_, err := f.app.Respond(context.Background(), RespondRequest{
		AssignmentID: asgn.ID,
		Accept:       false,
		Referee:      f.ref,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := f.app.GetAssignment(context.Background(), asgn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusAccepted, got.Status)
}

func TestRespondMissingAssignment(t *testing.T) {
	f := newAssignmentFixture(t)

	_, err := f.app.Respond(context.Background(), RespondRequest{
		AssignmentID: uuid.New(),
		Accept:       true,
		Referee:      f.ref,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelFromPendingAndAccepted(t *testing.T) {
	f := newAssignmentFixture(t)

	pending := f.createPending(t)
	cancelled, err := f.app.Cancel(context.Background(), pending.ID, f.league)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusCancelled, cancelled.Status)

	accepted := f.createAccepted(t)
	cancelled, err = f.app.Cancel(context.Background(), accepted.ID, f.league)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusCancelled, cancelled.Status)
}

func TestCancelFromTerminalStatusFails(t *testing.T) {
	f := newAssignmentFixture(t)
	asgn := f.createAccepted(t)

	_, err := f.app.MarkCompleted(context.Background(), asgn.ID)
	require.NoError(t, err)

	_, err = f.app.Cancel(context.Background(), asgn.ID, f.league)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkNoShowFromAccepted(t *testing.T) {
	f := newAssignmentFixture(t)
	asgn := f.createAccepted(t)

	updated, err := f.app.MarkNoShow(context.Background(), asgn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusNoShow, updated.Status)
	assert.Contains(t, f.outbox.types(), "assignment.no_show")
}

func TestMarkNoShowFromPendingFails(t *testing.T) {
	f := newAssignmentFixture(t)
	asgn := f.createPending(t)

	_, err := f.app.MarkNoShow(context.Background(), asgn.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSyncPaymentSummary(t *testing.T) {
	f := newAssignmentFixture(t)
	asgn := f.createAccepted(t)

	require.NoError(t, f.app.SyncPaymentSummary(context.Background(), asgn.ID, models.PaymentSummaryPaid))

	got, err := f.app.GetAssignment(context.Background(), asgn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSummaryPaid, got.PaymentStatus)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.AssignmentStatus
		want     bool
	}{
		{models.AssignmentStatusPending, models.AssignmentStatusAccepted, true},
		{models.AssignmentStatusPending, models.AssignmentStatusDeclined, true},
		{models.AssignmentStatusPending, models.AssignmentStatusCancelled, true},
		{models.AssignmentStatusPending, models.AssignmentStatusCompleted, false},
		{models.AssignmentStatusAccepted, models.AssignmentStatusCompleted, true},
		{models.AssignmentStatusAccepted, models.AssignmentStatusNoShow, true},
		{models.AssignmentStatusAccepted, models.AssignmentStatusDeclined, false},
		{models.AssignmentStatusDeclined, models.AssignmentStatusPending, false},
		{models.AssignmentStatusCompleted, models.AssignmentStatusCancelled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNotesAreOwnerScoped(t *testing.T) {
	f := newAssignmentFixture(t)
	asgn := f.createAccepted(t)
	ctx := context.Background()

	note, err := f.app.CreateNote(ctx, NoteRequest{
		AssignmentID: asgn.ID,
		Body:         "coach on the home side disputes every offside call",
		Referee:      f.ref,
	})
	require.NoError(t, err)

	stranger := identity.Principal{ID: uuid.New(), Role: identity.RoleReferee}

	_, err = f.app.CreateNote(ctx, NoteRequest{
		AssignmentID: asgn.ID,
		Body:         "not my assignment",
		Referee:      stranger,
	})
	assert.ErrorIs(t, err, ErrNotNoteOwner)

	err = f.app.UpdateNote(ctx, note.ID, "rewritten", stranger)
	assert.ErrorIs(t, err, ErrNotNoteOwner)

	err = f.app.DeleteNote(ctx, note.ID, stranger)
	assert.ErrorIs(t, err, ErrNotNoteOwner)

	notes, err := f.app.ListNotes(ctx, asgn.ID, f.ref)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, note.ID, notes[0].ID)

	notes, err = f.app.ListNotes(ctx, asgn.ID, stranger)
	require.NoError(t, err)
	assert.Empty(t, notes)
}
