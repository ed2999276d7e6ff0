package rating

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/refcrew/refcrew/go/internal/models"
	"github.com/refcrew/refcrew/go/internal/sqlutil"
)

const ratingColumns = `
	id, assignment_id, referee_id, reviewer_id, reviewer_role,
	overall, mechanics, positioning, communication, professionalism,
	public_comment, private_comment, created_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// CreateRating inserts one immutable rating record. There is deliberately no
// update or delete; revisions accumulate as new rows.
func (r *Repository) CreateRating(ctx context.Context, q sqlutil.Querier, rating *models.RefereeRating) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO referee_ratings (
			id, assignment_id, referee_id, reviewer_id, reviewer_role,
			overall, mechanics, positioning, communication, professionalism,
			public_comment, private_comment, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rating.ID, rating.AssignmentID, rating.RefereeID, rating.ReviewerID, rating.ReviewerRole,
		rating.Scores.Overall,
		sqlutil.ToSqlInt32(rating.Scores.Mechanics),
		sqlutil.ToSqlInt32(rating.Scores.Positioning),
		sqlutil.ToSqlInt32(rating.Scores.Communication),
		sqlutil.ToSqlInt32(rating.Scores.Professionalism),
		rating.PublicComment, rating.PrivateComment, rating.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rating: %w", err)
	}
	return nil
}

func (r *Repository) ListByReferee(ctx context.Context, refereeID uuid.UUID, limit int32) ([]models.RefereeRating, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ratingColumns+`
		FROM referee_ratings
		WHERE referee_id = $1
		ORDER BY created_at DESC
		LIMIT CASE WHEN $2 > 0 THEN $2 ELSE NULL END`,
		refereeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings by referee: %w", err)
	}
	defer rows.Close()
	return collectRatings(rows)
}

func (r *Repository) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.RefereeRating, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ratingColumns+`
		FROM referee_ratings
		WHERE assignment_id = $1
		ORDER BY created_at`,
		assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings by assignment: %w", err)
	}
	defer rows.Close()
	return collectRatings(rows)
}

func collectRatings(rows *sql.Rows) ([]models.RefereeRating, error) {
	var out []models.RefereeRating
	for rows.Next() {
		var (
			rt                                               models.RefereeRating
			mechanics, positioning, communication, profscore sql.NullInt32
		)
		err := rows.Scan(
			&rt.ID, &rt.AssignmentID, &rt.RefereeID, &rt.ReviewerID, &rt.ReviewerRole,
			&rt.Scores.Overall, &mechanics, &positioning, &communication, &profscore,
			&rt.PublicComment, &rt.PrivateComment, &rt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		rt.Scores.Mechanics = sqlutil.FromSqlInt32(mechanics)
		rt.Scores.Positioning = sqlutil.FromSqlInt32(positioning)
		rt.Scores.Communication = sqlutil.FromSqlInt32(communication)
		rt.Scores.Professionalism = sqlutil.FromSqlInt32(profscore)
		out = append(out, rt)
	}
	return out, rows.Err()
}
