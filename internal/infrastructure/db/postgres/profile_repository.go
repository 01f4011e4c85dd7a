package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/core/ports"
)

var _ ports.ProfileStore = (*ProfileRepository)(nil)

// ProfileRepository implements ports.ProfileStore on PostgreSQL. The primary key on
// id is what makes approve's insert step idempotent.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

const profileColumns = `id, name, email, goal, notes, age, height_cm, weight_kg, assigned_coach_id, status, role, created_at`

func (r *ProfileRepository) Insert(ctx context.Context, rec *domain.ProfileRecord) (*domain.ProfileRecord, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + profileColumns
	row := r.pool.QueryRow(ctx, query,
		rec.ID, rec.Name, rec.Email, rec.Goal, rec.Notes, rec.Age, rec.HeightCm, rec.WeightKg,
		rec.AssignedCoachID, string(rec.Status), string(rec.Role), createdAt,
	)
	out, err := scanProfile(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrProfileExists
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return out, nil
}

// UpdateByID applies the non-nil patch fields. With ExpectStatus set the row is only
// updated while its status still matches; a miss is then told apart from an unknown
// id with a second lookup.
func (r *ProfileRepository) UpdateByID(ctx context.Context, id string, patch domain.ProfilePatch) error {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Role != nil {
		add("role", string(*patch.Role))
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Goal != nil {
		add("goal", *patch.Goal)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}

	query := "UPDATE profiles SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	if patch.ExpectStatus != nil {
		args = append(args, string(*patch.ExpectStatus))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check profile: %w", err)
	}
	if exists && patch.ExpectStatus != nil {
		return domain.ErrProfileStale
	}
	return domain.ErrProfileNotFound
}

func (r *ProfileRepository) SelectByID(ctx context.Context, id string) (*domain.ProfileRecord, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	rec, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return rec, nil
}

func (r *ProfileRepository) SelectByStatus(ctx context.Context, status domain.ProfileStatus) ([]*domain.ProfileRecord, error) {
	return r.selectWhere(ctx, "status", string(status))
}

func (r *ProfileRepository) SelectByRole(ctx context.Context, role domain.Role) ([]*domain.ProfileRecord, error) {
	return r.selectWhere(ctx, "role", string(role))
}

func (r *ProfileRepository) selectWhere(ctx context.Context, col, value string) ([]*domain.ProfileRecord, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` + col + ` = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("select profiles by %s: %w", col, err)
	}
	defer rows.Close()

	var out []*domain.ProfileRecord
	for rows.Next() {
		rec, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanProfile(row pgx.Row) (*domain.ProfileRecord, error) {
	var (
		p      domain.ProfileRecord
		status string
		role   string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Goal, &p.Notes, &p.Age, &p.HeightCm, &p.WeightKg,
		&p.AssignedCoachID, &status, &role, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.ProfileStatus(status)
	p.Role = domain.Role(role)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
