package seed

import (
	"context"
	"database/sql"

	"github.com/luizasposito/sheep-management-system/internal/model"
	"github.com/luizasposito/sheep-management-system/internal/repository"
)

// SQLStore adapts the repositories to Store.
type SQLStore struct {
	identities *repository.IdentityRepo
	farmers    *repository.FarmerRepo
	vets       *repository.VeterinarianRepo
	groups     *repository.SheepGroupRepo
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		identities: repository.NewIdentityRepo(db),
		farmers:    repository.NewFarmerRepo(db),
		vets:       repository.NewVeterinarianRepo(db),
		groups:     repository.NewSheepGroupRepo(db),
	}
}

func (s *SQLStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.identities.EmailTaken(ctx, email)
}

func (s *SQLStore) CreateWithFarm(ctx context.Context, farm *model.Farm, f *model.Farmer) error {
	return s.farmers.CreateWithFarm(ctx, farm, f)
}

func (s *SQLStore) CreateVeterinarian(ctx context.Context, v *model.Veterinarian) error {
	return s.vets.Create(ctx, v)
}

func (s *SQLStore) CreateGroup(ctx context.Context, g *model.SheepGroup) error {
	return s.groups.Create(ctx, g)
}
