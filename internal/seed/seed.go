// Package seed loads farms, farmers, veterinarians and sheep groups from a
// YAML fixture file.  Accounts whose email already exists are skipped so a
// fixture can be applied repeatedly.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/luizasposito/sheep-management-system/internal/model"
	"github.com/luizasposito/sheep-management-system/internal/utils"
)

// Fixtures is the root of a fixture file.
//
//	farms:
//	  - name: Quinta do Vale
//	    location: Braga
//	    farmer: {name: Ana, email: ana@example.com, password: secret}
//	    veterinarians:
//	      - {name: Rui, email: rui@example.com, password: secret}
//	    groups:
//	      - {name: Lactating, description: ewes in milk}
type Fixtures struct {
	Farms []Farm `yaml:"farms"`
}

type Farm struct {
	Name          string   `yaml:"name"`
	Location      string   `yaml:"location"`
	Farmer        Person   `yaml:"farmer"`
	Veterinarians []Person `yaml:"veterinarians"`
	Groups        []Group  `yaml:"groups"`
}

type Person struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type Group struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Parse decodes and validates a fixture document.  Unknown keys are
// rejected.
func Parse(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixtures
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &f, f.validate()
}

func (f *Fixtures) validate() error {
	var errs []error
	seen := map[string]bool{}
	checkPerson := func(where string, p Person) {
		email := strings.ToLower(strings.TrimSpace(p.Email))
		if strings.TrimSpace(p.Name) == "" || email == "" || p.Password == "" {
			errs = append(errs, fmt.Errorf("%s: name, email and password are required", where))
			return
		}
		if seen[email] {
			errs = append(errs, fmt.Errorf("%s: duplicate email %s", where, email))
		}
		seen[email] = true
	}
	for i, farm := range f.Farms {
		where := fmt.Sprintf("farms[%d]", i)
		if strings.TrimSpace(farm.Name) == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		}
		checkPerson(where+".farmer", farm.Farmer)
		for j, v := range farm.Veterinarians {
			checkPerson(fmt.Sprintf("%s.veterinarians[%d]", where, j), v)
		}
		for j, g := range farm.Groups {
			if strings.TrimSpace(g.Name) == "" {
				errs = append(errs, fmt.Errorf("%s.groups[%d]: name is required", where, j))
			}
		}
	}
	return errors.Join(errs...)
}

// Store is the subset of the repositories the seeder writes through.
type Store interface {
	EmailTaken(ctx context.Context, email string) (bool, error)
	CreateWithFarm(ctx context.Context, farm *model.Farm, f *model.Farmer) error
	CreateVeterinarian(ctx context.Context, v *model.Veterinarian) error
	CreateGroup(ctx context.Context, g *model.SheepGroup) error
}

// Report counts what a run created and skipped.
type Report struct {
	Farms         int
	Veterinarians int
	Groups        int
	Skipped       int
}

// Seeder applies fixtures to a Store.
type Seeder struct {
	Store      Store
	BcryptCost int
}

// Run creates every farm whose farmer email is still free, then its
// veterinarians and groups.  A farm whose farmer already exists is skipped
// as a whole.
func (s *Seeder) Run(ctx context.Context, f *Fixtures) (Report, error) {
	var rep Report
	for _, farm := range f.Farms {
		taken, err := s.Store.EmailTaken(ctx, farm.Farmer.Email)
		if err != nil {
			return rep, err
		}
		if taken {
			log.Printf("seed: farmer %s exists, skipping farm %q", farm.Farmer.Email, farm.Name)
			rep.Skipped++
			continue
		}

		hash, err := utils.HashPassword(farm.Farmer.Password, s.BcryptCost)
		if err != nil {
			return rep, err
		}
		m := &model.Farm{Name: strings.TrimSpace(farm.Name)}
		if loc := strings.TrimSpace(farm.Location); loc != "" {
			m.Location = &loc
		}
		farmer := &model.Farmer{Name: strings.TrimSpace(farm.Farmer.Name), Email: farm.Farmer.Email, PasswordHash: hash}
		if err := s.Store.CreateWithFarm(ctx, m, farmer); err != nil {
			return rep, fmt.Errorf("farm %q: %w", farm.Name, err)
		}
		rep.Farms++

		for _, p := range farm.Veterinarians {
			taken, err := s.Store.EmailTaken(ctx, p.Email)
			if err != nil {
				return rep, err
			}
			if taken {
				rep.Skipped++
				continue
			}
			hash, err := utils.HashPassword(p.Password, s.BcryptCost)
			if err != nil {
				return rep, err
			}
			v := &model.Veterinarian{
				Name:         strings.TrimSpace(p.Name),
				Email:        p.Email,
				PasswordHash: hash,
				FarmID:       m.ID,
				FarmerID:     farmer.ID,
			}
			if err := s.Store.CreateVeterinarian(ctx, v); err != nil {
				return rep, fmt.Errorf("veterinarian %s: %w", p.Email, err)
			}
			rep.Veterinarians++
		}

		for _, g := range farm.Groups {
			grp := &model.SheepGroup{FarmID: m.ID, Name: strings.TrimSpace(g.Name)}
			if d := strings.TrimSpace(g.Description); d != "" {
				grp.Description = &d
			}
			if err := s.Store.CreateGroup(ctx, grp); err != nil {
				return rep, fmt.Errorf("group %q: %w", g.Name, err)
			}
			rep.Groups++
		}
	}
	return rep, nil
}
