package memstore

import (
	"context"
	"sort"

	"codedepartament.ru/sbp/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CatalogRepo struct{ s *Store }

func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{s} }

func (r *CatalogRepo) ListRegions(_ context.Context) ([]entity.Region, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]entity.Region, 0, len(r.s.st.regions))
	for _, reg := range r.s.st.regions {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CatalogRepo) ListDisciplines(_ context.Context) ([]entity.Discipline, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]entity.Discipline, 0, len(r.s.st.disciplines))
	for _, d := range r.s.st.disciplines {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CatalogRepo) FindRegion(_ context.Context, id uint) (*entity.Region, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.st.regions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &reg, nil
}

func (r *CatalogRepo) FindDiscipline(_ context.Context, id uint) (*entity.Discipline, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.st.disciplines[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (r *CatalogRepo) CountRegions(_ context.Context, ids []uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.s.st.regions[id]; ok {
			n++
		}
	}
	return n, nil
}

// UserRepo covers the profile lookups other modules make.
type UserRepo struct{ s *Store }

func (s *Store) Users() *UserRepo { return &UserRepo{s} }

func (r *UserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	u.Profile = r.s.profilePtr(id)
	return &u, nil
}

func (r *UserRepo) ListModeratorIDs(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []uuid.UUID
	for id, p := range r.s.st.profiles {
		if p.Role == entity.RoleModerator && p.IsApproved {
			out = append(out, id)
		}
	}
	return out, nil
}
