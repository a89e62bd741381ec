package file

import (
	"context"
	"errors"
	"os"
	"sort"

	"github.com/usekora/kora/pkg/models"
	"github.com/usekora/kora/pkg/persistence"
)

// TeamRepository stores teams as JSON files.
type TeamRepository struct {
	store *jsonStore[models.Team]
}

// NewTeamRepository creates a new team repository under root.
func NewTeamRepository(root string) (*TeamRepository, error) {
	store, err := newJSONStore[models.Team](root, "teams")
	if err != nil {
		return nil, err
	}

	return &TeamRepository{store: store}, nil
}

// Save writes the team, replacing any existing version.
func (tr *TeamRepository) Save(_ context.Context, team *models.Team) error {
	return tr.store.save(team.ID, team)
}

// GetByID retrieves a team by its ID.
func (tr *TeamRepository) GetByID(_ context.Context, id string) (*models.Team, error) {
	team, found, err := tr.store.get(id)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, &persistence.NotFoundError{Entity: "team", ID: id, Err: persistence.ErrTeamNotFound}
	}

	return team, nil
}

// GetAll returns all teams sorted by creation time.
func (tr *TeamRepository) GetAll(_ context.Context) ([]*models.Team, error) {
	teams, err := tr.store.list()
	if err != nil {
		return nil, err
	}

	sort.Slice(teams, func(i, j int) bool {
		return teams[i].CreatedAt.Before(teams[j].CreatedAt)
	})

	return teams, nil
}

// Delete removes a team from disk.
func (tr *TeamRepository) Delete(_ context.Context, id string) error {
	if err := tr.store.delete(id); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &persistence.NotFoundError{Entity: "team", ID: id, Err: persistence.ErrTeamNotFound}
		}

		return err
	}

	return nil
}
