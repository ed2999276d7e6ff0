package rating

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refcrew/refcrew/go/internal/assignment"
	"github.com/refcrew/refcrew/go/internal/identity"
	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
)

type fakeRunner struct{}

func (fakeRunner) RunTx(ctx context.Context, fn func(q sqlutil.Querier) error) error {
	return fn(nil)
}

type fakeRatingRepo struct {
	ratings []models.RefereeRating
}

func (r *fakeRatingRepo) CreateRating(ctx context.Context, q sqlutil.Querier, rating *models.RefereeRating) error {
	r.ratings = append(r.ratings, *rating)
	return nil
}

func (r *fakeRatingRepo) ListByReferee(ctx context.Context, refereeID uuid.UUID, limit int32) ([]models.RefereeRating, error) {
	var out []models.RefereeRating
	for _, rt := range r.ratings {
		if rt.RefereeID == refereeID {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (r *fakeRatingRepo) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.RefereeRating, error) {
	var out []models.RefereeRating
	for _, rt := range r.ratings {
		if rt.AssignmentID == assignmentID {
			out = append(out, rt)
		}
	}
	return out, nil
}

type fakeAssignmentSource struct {
	assignments map[uuid.UUID]*models.RefereeAssignment
}

func (s *fakeAssignmentSource) GetAssignment(ctx context.Context, id uuid.UUID) (*models.RefereeAssignment, error) {
	asgn, ok := s.assignments[id]
	if !ok {
		return nil, assignment.ErrNotFound
	}
	return asgn, nil
}

// fakeAggregate mirrors the running-mean fold the directory applies in SQL.
type fakeAggregate struct {
	average float64
	total   int
}

func (a *fakeAggregate) ApplyRating(ctx context.Context, q sqlutil.Querier, refereeID uuid.UUID, overall int, now time.Time) error {
	a.average = (a.average*float64(a.total) + float64(overall)) / float64(a.total+1)
	a.total++
	return nil
}

type fakeOutbox struct {
	types []string
}

func (o *fakeOutbox) Insert(ctx context.Context, q sqlutil.Querier, entityID uuid.UUID, eventType string, payload any) error {
	o.types = append(o.types, eventType)
	return nil
}

type ratingFixture struct {
	app       *App
	repo      *fakeRatingRepo
	aggregate *fakeAggregate
	outbox    *fakeOutbox
	asgnID    uuid.UUID
	refereeID uuid.UUID
	coach     identity.Principal
}

func newRatingFixture(t *testing.T) *ratingFixture {
	t.Helper()

	asgnID := uuid.New()
	refereeID := uuid.New()
	source := &fakeAssignmentSource{assignments: map[uuid.UUID]*models.RefereeAssignment{
		asgnID: {
			ID:        asgnID,
			RefereeID: refereeID,
			GameRef:   models.LeagueGameRef{LeagueID: uuid.New(), Game: uuid.New()},
			Status:    models.AssignmentStatusCompleted,
		},
	}}

	repo := &fakeRatingRepo{}
	aggregate := &fakeAggregate{}
	outbox := &fakeOutbox{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.May, 3, 19, 30, 0, 0, time.UTC))
	app := NewApp(repo, source, aggregate, outbox, fakeRunner{}, clock)

	return &ratingFixture{
		app:       app,
		repo:      repo,
		aggregate: aggregate,
		outbox:    outbox,
		asgnID:    asgnID,
		refereeID: refereeID,
		coach:     identity.Principal{ID: uuid.New(), Name: "Dana Price", Role: identity.RoleHeadCoach},
	}
}

func (f *ratingFixture) submit(t *testing.T, overall int) *models.RefereeRating {
	t.Helper()
	rt, err := f.app.SubmitRating(context.Background(), SubmitRatingRequest{
		AssignmentID: f.asgnID,
		Reviewer:     f.coach,
		Scores:       models.RatingScores{Overall: overall},
	})
	require.NoError(t, err)
	return rt
}

func TestSubmitRatingRecordsAndAggregates(t *testing.T) {
	f := newRatingFixture(t)

	three := 3
	rt, err := f.app.SubmitRating(context.Background(), SubmitRatingRequest{
		AssignmentID:  f.asgnID,
		Reviewer:      f.coach,
		Scores:        models.RatingScores{Overall: 4, Mechanics: &three},
		PublicComment: "well positioned all game",
	})
	require.NoError(t, err)

	assert.Equal(t, f.refereeID, rt.RefereeID)
	assert.Equal(t, string(identity.RoleHeadCoach), rt.ReviewerRole)
	assert.Equal(t, 1, f.aggregate.total)
	assert.Equal(t, 4.0, f.aggregate.average)
	assert.Equal(t, []string{"rating.received"}, f.outbox.types)
}

func TestSubmitRatingRunningMeanIsExact(t *testing.T) {
	f := newRatingFixture(t)

	for _, overall := range []int{5, 3, 4, 4, 2} {
		f.submit(t, overall)
	}

	assert.Equal(t, 5, f.aggregate.total)
	assert.InDelta(t, 3.6, f.aggregate.average, 1e-9)
}

func TestSubmitRatingBounds(t *testing.T) {
	f := newRatingFixture(t)

	for _, overall := range []int{0, 6, -1} {
		_, err := f.app.SubmitRating(context.Background(), SubmitRatingRequest{
			AssignmentID: f.asgnID,
			Reviewer:     f.coach,
			Scores:       models.RatingScores{Overall: overall},
		})
		assert.ErrorIs(t, err, ErrInvalidRating, "overall %d", overall)
	}

	bad := 7
	_, err := f.app.SubmitRating(context.Background(), SubmitRatingRequest{
		AssignmentID: f.asgnID,
		Reviewer:     f.coach,
		Scores:       models.RatingScores{Overall: 4, Positioning: &bad},
	})
	assert.ErrorIs(t, err, ErrInvalidRating)
	assert.Zero(t, f.aggregate.total, "rejected ratings must not touch the aggregate")
}

func TestSubmitRatingUnknownAssignment(t *testing.T) {
	f := newRatingFixture(t)

	_, err := f.app.SubmitRating(context.Background(), SubmitRatingRequest{
		AssignmentID: uuid.New(),
		Reviewer:     f.coach,
		Scores:       models.RatingScores{Overall: 3},
	})
	assert.ErrorIs(t, err, assignment.ErrNotFound)
}

func TestRepeatRatingsAccumulate(t *testing.T) {
	f := newRatingFixture(t)

	f.submit(t, 2)
	f.submit(t, 5)

	ratings, err := f.app.ListByAssignment(context.Background(), f.asgnID)
	require.NoError(t, err)
	assert.Len(t, ratings, 2, "revisions accumulate as new records")
	assert.Equal(t, 2, f.aggregate.total)
}
