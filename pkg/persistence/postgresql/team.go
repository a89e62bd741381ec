package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
)

// TeamRepository handles teams in PostgreSQL. Members are stored as a JSONB
// document.
type TeamRepository struct {
	db *sql.DB
}

// NewTeamRepository creates a new team repository.
func NewTeamRepository(db *sql.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Save upserts the team.
func (tr *TeamRepository) Save(ctx context.Context, team *models.Team) error {
	members, err := json.Marshal(team.Members)
	if err != nil {
		return fmt.Errorf("failed to encode team members: %w", err)
	}

	query := `
		INSERT INTO teams (id, name, department, status, members, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			department = EXCLUDED.department,
			status = EXCLUDED.status,
			members = EXCLUDED.members,
			updated_at = EXCLUDED.updated_at
	`

	_, err = tr.db.ExecContext(ctx, query,
		team.ID,
		team.Name,
		nullString(team.Department),
		team.Status,
		members,
		team.CreatedAt,
		team.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save team %s: %w", team.ID, err)
	}

	return nil
}

// GetByID retrieves a team by its ID.
func (tr *TeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	query := `
		SELECT id, name, department, status, members, created_at, updated_at
		FROM teams
		WHERE id = $1
	`

	team, err := scanTeam(tr.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.NotFoundError{Entity: "team", ID: id, Err: persistence.ErrTeamNotFound}
		}

		return nil, fmt.Errorf("failed to get team %s: %w", id, err)
	}

	return team, nil
}

// GetAll returns all teams ordered by creation time.
func (tr *TeamRepository) GetAll(ctx context.Context) ([]*models.Team, error) {
	query := `
		SELECT id, name, department, status, members, created_at, updated_at
		FROM teams
		ORDER BY created_at ASC
	`

	rows, err := tr.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)

	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}

		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	return teams, nil
}

// Delete removes a team.
func (tr *TeamRepository) Delete(ctx context.Context, id string) error {
	result, err := tr.db.ExecContext(ctx, "DELETE FROM teams WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete team %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for team %s: %w", id, err)
	}

	if affected == 0 {
		return &persistence.NotFoundError{Entity: "team", ID: id, Err: persistence.ErrTeamNotFound}
	}

	return nil
}

func scanTeam(row rowScanner) (*models.Team, error) {
	var (
		team       models.Team
		department sql.NullString
		members    []byte
	)

	err := row.Scan(
		&team.ID,
		&team.Name,
		&department,
		&team.Status,
		&members,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	team.Department = department.String

	if err := json.Unmarshal(members, &team.Members); err != nil {
		return nil, fmt.Errorf("failed to decode team members: %w", err)
	}

	return &team, nil
}
