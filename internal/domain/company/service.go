package company

import (
	"context"
	"fmt"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]*Company, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Company{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Company, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByName(ctx context.Context, name string) (*Company, error) {
	return s.repo.GetByName(ctx, name)
}

// DefaultNames seeds companies 1..8 when no list is given.
var DefaultNames = []string{
	"Company 1", "Company 2", "Company 3", "Company 4",
	"Company 5", "Company 6", "Company 7", "Company 8",
}

// Seed inserts names as companies numbered from 1 in order, skipping ids that
// already exist. It returns how many rows were created.
func (s *Service) Seed(ctx context.Context, names []string) (int, error) {
	created := 0
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return created, fmt.Errorf("company name %d is empty", i+1)
		}
		ok, err := s.repo.Create(ctx, &Company{CompanyID: int64(i + 1), Name: name})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}
