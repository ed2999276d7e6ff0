package assignment

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

// uniqueViolation is the Postgres error code raised by the partial unique
// index guarding one live assignment per (referee, game).
const uniqueViolation = "23505"

const assignmentColumns = `
	id, referee_id, game_kind, game_owner_id, game_id,
	assigner_id, assigner_role, position,
	game_starts_at, game_location, home_team_name, away_team_name, sport, age_group,
	pay_amount, payment_status, score_submitted, final_home_score, final_away_score,
	status, decline_reason, assigned_at, responded_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// CreateAssignment inserts a new pending assignment. The partial unique index
// on (referee_id, game_kind, game_id) over non-terminal statuses turns a
// concurrent duplicate into ErrDuplicateAssignment.
func (r *Repository) CreateAssignment(ctx context.Context, q sqlutil.Querier, req CreateAssignmentRequest, snapshot models.GameSnapshot, now time.Time) (*models.RefereeAssignment, error) {
	row := q.QueryRowContext(ctx, `
		INSERT INTO referee_assignments (
			id, referee_id, game_kind, game_owner_id, game_id,
			assigner_id, assigner_role, position,
			game_starts_at, game_location, home_team_name, away_team_name, sport, age_group,
			pay_amount, payment_status, score_submitted,
			status, assigned_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, FALSE, $17, $18, $18
		)
		RETURNING `+assignmentColumns,
		uuid.New(), req.RefereeID,
		string(req.GameRef.Kind()), req.GameRef.OwnerID(), req.GameRef.GameID(),
		req.Assigner.ID, string(req.Assigner.Role), req.Position,
		snapshot.StartsAt, snapshot.Location, snapshot.HomeTeamName, snapshot.AwayTeamName,
		snapshot.Sport, snapshot.AgeGroup,
		req.PayAmount, string(models.PaymentSummaryUnpaid),
		string(models.AssignmentStatusPending), now,
	)

	asgn, err := scanAssignment(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, ErrDuplicateAssignment
		}
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	return asgn, nil
}

func (r *Repository) GetAssignment(ctx context.Context, id uuid.UUID) (*models.RefereeAssignment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM referee_assignments WHERE id = $1`, id)

	asgn, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return asgn, nil
}

// UpdateStatusWhere moves the assignment to a new status only if its current
// status is in from. The conditional UPDATE is the serialization point: of two
// concurrent callers exactly one sees a row. A nil result with nil error means
// the precondition did not hold.
func (r *Repository) UpdateStatusWhere(ctx context.Context, q sqlutil.Querier, id uuid.UUID, from []models.AssignmentStatus, to models.AssignmentStatus, respondedAt *time.Time, reason *string, now time.Time) (*models.RefereeAssignment, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	row := q.QueryRowContext(ctx, `
		UPDATE referee_assignments
		SET status = $2,
		    responded_at = COALESCE($3, responded_at),
		    decline_reason = COALESCE($4, decline_reason),
		    updated_at = $5
		WHERE id = $1 AND status = ANY($6)
		RETURNING `+assignmentColumns,
		id, string(to), sqlutil.ToSqlTime(respondedAt), sqlutil.ToSqlString(reason), now, pq.Array(fromStrs),
	)

	asgn, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update assignment status: %w", err)
	}
	return asgn, nil
}

// SubmitScore flips score_submitted and completes the assignment in one
// statement. Exactly one concurrent caller can win the flip.
func (r *Repository) SubmitScore(ctx context.Context, q sqlutil.Querier, id uuid.UUID, homeScore, awayScore int, now time.Time) (*models.RefereeAssignment, error) {
	row := q.QueryRowContext(ctx, `
		UPDATE referee_assignments
		SET score_submitted = TRUE,
		    final_home_score = $2,
		    final_away_score = $3,
		    status = $4,
		    updated_at = $5
		WHERE id = $1 AND status = $6 AND score_submitted = FALSE
		RETURNING `+assignmentColumns,
		id, homeScore, awayScore, string(models.AssignmentStatusCompleted), now,
		string(models.AssignmentStatusAccepted),
	)

	asgn, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to submit score: %w", err)
	}
	return asgn, nil
}

// SetPaymentSummary updates the fast-path payment field on the assignment.
// The payment ledger remains the source of truth for payment history.
func (r *Repository) SetPaymentSummary(ctx context.Context, q sqlutil.Querier, id uuid.UUID, status models.PaymentSummaryStatus, now time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE referee_assignments SET payment_status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), now)
	if err != nil {
		return fmt.Errorf("failed to set payment summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListByReferee(ctx context.Context, refereeID uuid.UUID, filter ListFilter) ([]models.RefereeAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM referee_assignments
		WHERE referee_id = $1
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::text IS NULL OR sport = $3)
		ORDER BY game_starts_at DESC
		LIMIT CASE WHEN $4 > 0 THEN $4 ELSE NULL END`,
		refereeID, statusArg(filter.Status), sqlutil.ToSqlString(filter.Sport), filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments by referee: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (r *Repository) ListByGame(ctx context.Context, kind models.GameRefKind, gameID uuid.UUID) ([]models.RefereeAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM referee_assignments
		WHERE game_kind = $1 AND game_id = $2
		ORDER BY assigned_at`,
		string(kind), gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments by game: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (r *Repository) ListByStatus(ctx context.Context, status models.AssignmentStatus, limit int32) ([]models.RefereeAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM referee_assignments
		WHERE status = $1
		ORDER BY game_starts_at
		LIMIT CASE WHEN $2 > 0 THEN $2 ELSE NULL END`,
		string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments by status: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// AssignmentsOwnedBy reports which of the given assignment IDs belong to the
// referee. Used by the payment ledger's target validation.
func (r *Repository) AssignmentsOwnedBy(ctx context.Context, refereeID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM referee_assignments
		WHERE referee_id = $1 AND id = ANY($2)`,
		refereeID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to check assignment ownership: %w", err)
	}
	defer rows.Close()

	owned := make(map[uuid.UUID]bool, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan assignment id: %w", err)
		}
		owned[id] = true
	}
	return owned, rows.Err()
}

func statusArg(s *models.AssignmentStatus) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*models.RefereeAssignment, error) {
	var (
		a             models.RefereeAssignment
		gameKind      string
		gameOwnerID   uuid.UUID
		gameID        uuid.UUID
		assignerRole  string
		paymentStatus string
		status        string
		homeScore     sql.NullInt32
		awayScore     sql.NullInt32
		declineReason sql.NullString
		respondedAt   sql.NullTime
	)

	err := row.Scan(
		&a.ID, &a.RefereeID, &gameKind, &gameOwnerID, &gameID,
		&a.AssignerID, &assignerRole, &a.Position,
		&a.Game.StartsAt, &a.Game.Location, &a.Game.HomeTeamName, &a.Game.AwayTeamName,
		&a.Game.Sport, &a.Game.AgeGroup,
		&a.PayAmount, &paymentStatus, &a.ScoreSubmitted, &homeScore, &awayScore,
		&status, &declineReason, &a.AssignedAt, &respondedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch models.GameRefKind(gameKind) {
	case models.GameRefKindLeague:
		a.GameRef = models.LeagueGameRef{LeagueID: gameOwnerID, Game: gameID}
	case models.GameRefKindTeam:
		a.GameRef = models.TeamGameRef{TeamID: gameOwnerID, Game: gameID}
	default:
		return nil, fmt.Errorf("unknown game ref kind: %s", gameKind)
	}

	a.AssignerRole = assignerRole
	a.PaymentStatus = models.PaymentSummaryStatus(paymentStatus)
	a.Status = models.AssignmentStatus(status)
	a.FinalHomeScore = sqlutil.FromSqlInt32(homeScore)
	a.FinalAwayScore = sqlutil.FromSqlInt32(awayScore)
	a.DeclineReason = sqlutil.FromSqlStringPtr(declineReason)
	a.RespondedAt = sqlutil.FromSqlTime(respondedAt)

	return &a, nil
}

func collectAssignments(rows *sql.Rows) ([]models.RefereeAssignment, error) {
	var out []models.RefereeAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
