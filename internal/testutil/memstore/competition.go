package memstore

import (
	"context"
	"sort"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/competition/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CompetitionRepo struct{ s *Store }

func (s *Store) Competitions() *CompetitionRepo { return &CompetitionRepo{s} }

func (r *CompetitionRepo) Create(ctx context.Context, c *entity.Competition, organizerID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("competition.Create"); err != nil {
		return err
	}
	c.ID = r.s.st.id()
	c.CreatedAt = time.Now()
	trackEntry(r.s, ctx, competitionsOf, c.ID)
	trackEntry(r.s, ctx, datesOf, c.ID)
	stored := *c
	if c.Dates != nil {
		d := *c.Dates
		d.CompetitionID = c.ID
		r.s.st.dates[c.ID] = d
		stored.Dates = nil
	}
	r.s.st.competitions[c.ID] = stored
	orgID := r.s.st.id()
	r.s.st.organizers = append(r.s.st.organizers, entity.CompetitionOrganizer{ID: orgID, UserID: organizerID, CompetitionID: c.ID})
	r.s.onRollback(ctx, func(st *state) {
		st.organizers = without(st.organizers, func(o entity.CompetitionOrganizer) bool { return o.ID == orgID })
	})
	return nil
}

func (r *CompetitionRepo) FindByID(_ context.Context, id uint) (*entity.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.s.competitionPtr(id)
	if c == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *CompetitionRepo) LockByID(ctx context.Context, id uint) (*entity.Competition, error) {
	r.s.lockRow(ctx, "competition", id)
	return r.FindByID(ctx, id)
}

func (r *CompetitionRepo) sorted(keep func(c *entity.Competition) bool) []entity.Competition {
	var out []entity.Competition
	for id := range r.s.st.competitions {
		c := r.s.competitionPtr(id)
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *CompetitionRepo) List(_ context.Context, f repository.ListFilter, offset, limit int) ([]entity.Competition, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.sorted(func(c *entity.Competition) bool {
		if f.Status != nil {
			if c.Status != *f.Status {
				return false
			}
		} else if c.Status == entity.StatusPending {
			return false
		}
		if f.DisciplineID != nil && c.DisciplineID != *f.DisciplineID {
			return false
		}
		if f.Kind != nil && c.Kind != *f.Kind {
			return false
		}
		if f.Format != nil && c.Format != *f.Format {
			return false
		}
		return true
	})
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *CompetitionRepo) ListPending(_ context.Context) ([]entity.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(c *entity.Competition) bool { return c.Status == entity.StatusPending }), nil
}

func (r *CompetitionRepo) ListForRegion(_ context.Context, regionID uint) ([]entity.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(c *entity.Competition) bool {
		return c.AllowsRegion(regionID) && c.Status != entity.StatusPending && c.Status != entity.StatusFinished
	}), nil
}

func (r *CompetitionRepo) ListForRefresh(_ context.Context) ([]entity.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(c *entity.Competition) bool { return c.Dates != nil }), nil
}

func (r *CompetitionRepo) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	trackEntry(r.s, ctx, competitionsOf, id)
	trackEntry(r.s, ctx, datesOf, id)
	delete(r.s.st.competitions, id)
	delete(r.s.st.dates, id)

	var removed []entity.CompetitionOrganizer
	for _, o := range r.s.st.organizers {
		if o.CompetitionID == id {
			removed = append(removed, o)
		}
	}
	r.s.st.organizers = without(r.s.st.organizers, func(o entity.CompetitionOrganizer) bool { return o.CompetitionID == id })
	r.s.onRollback(ctx, func(st *state) { st.organizers = append(st.organizers, removed...) })
	return nil
}

func (r *CompetitionRepo) UpdateStatusIf(ctx context.Context, id uint, from, to entity.CompetitionStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.st.competitions[id]
	if !ok || c.Status != from {
		return false, nil
	}
	trackEntry(r.s, ctx, competitionsOf, id)
	c.Status = to
	r.s.st.competitions[id] = c
	return true, nil
}

// SetStatus changes a status behind the services' back, like a concurrent writer would.
func (s *Store) SetStatus(id uint, status entity.CompetitionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.st.competitions[id]
	c.Status = status
	s.st.competitions[id] = c
}

func (r *CompetitionRepo) FindOrganizer(_ context.Context, competitionID uint, userID uuid.UUID) (*entity.CompetitionOrganizer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.st.organizers {
		if o.CompetitionID == competitionID && o.UserID == userID {
			return &o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *CompetitionRepo) ListOrganized(_ context.Context, userID uuid.UUID) ([]entity.CompetitionOrganizer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.CompetitionOrganizer
	for _, o := range r.s.st.organizers {
		if o.UserID == userID {
			o.Competition = r.s.competitionPtr(o.CompetitionID)
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *CompetitionRepo) OrganizerIDs(_ context.Context, competitionID uint) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []uuid.UUID
	for _, o := range r.s.st.organizers {
		if o.CompetitionID == competitionID {
			out = append(out, o.UserID)
		}
	}
	return out, nil
}

func (r *CompetitionRepo) IsRated(_ context.Context, competitionID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.st.organizers {
		if o.CompetitionID == competitionID && o.Rated {
			return true, nil
		}
	}
	return false, nil
}

func (r *CompetitionRepo) MarkRated(ctx context.Context, competitionID uint, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("competition.MarkRated"); err != nil {
		return err
	}
	for i, o := range r.s.st.organizers {
		if o.CompetitionID == competitionID && o.UserID == userID {
			orgID, was := o.ID, o.Rated
			r.s.onRollback(ctx, func(st *state) {
				for j := range st.organizers {
					if st.organizers[j].ID == orgID {
						st.organizers[j].Rated = was
					}
				}
			})
			r.s.st.organizers[i].Rated = true
		}
	}
	return nil
}

func (r *CompetitionRepo) ListParticipants(_ context.Context, competitionID uint) ([]entity.CompetitionParticipant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.CompetitionParticipant
	for _, p := range r.s.st.participants {
		if p.CompetitionID == competitionID {
			p.Profile = r.s.profilePtr(p.UserID)
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *CompetitionRepo) CountParticipants(_ context.Context, competitionID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.st.participants {
		if p.CompetitionID == competitionID {
			n++
		}
	}
	return n, nil
}

func (r *CompetitionRepo) IsParticipant(_ context.Context, competitionID uint, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.st.participants {
		if p.CompetitionID == competitionID && p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *CompetitionRepo) AddParticipants(ctx context.Context, competitionID uint, userIDs []uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("competition.AddParticipants"); err != nil {
		return 0, err
	}
	var added int64
	for _, id := range userIDs {
		exists := false
		for _, p := range r.s.st.participants {
			if p.CompetitionID == competitionID && p.UserID == id {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		pid := r.s.st.id()
		r.s.st.participants = append(r.s.st.participants, entity.CompetitionParticipant{
			ID: pid, CompetitionID: competitionID, UserID: id, CreatedAt: time.Now(),
		})
		r.s.onRollback(ctx, func(st *state) {
			st.participants = without(st.participants, func(p entity.CompetitionParticipant) bool { return p.ID == pid })
		})
		added++
	}
	return added, nil
}

func (r *CompetitionRepo) SetResult(ctx context.Context, competitionID uint, userID uuid.UUID, place int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("competition.SetResult"); err != nil {
		return false, err
	}
	for i, p := range r.s.st.participants {
		if p.CompetitionID == competitionID && p.UserID == userID {
			pid, was := p.ID, p.Result
			r.s.onRollback(ctx, func(st *state) {
				for j := range st.participants {
					if st.participants[j].ID == pid {
						st.participants[j].Result = was
					}
				}
			})
			r.s.st.participants[i].Result = place
			return true, nil
		}
	}
	return false, nil
}

func (r *CompetitionRepo) AddDisciplineStats(ctx context.Context, userID uuid.UUID, disciplineID uint, points float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, row := range r.s.st.stats {
		if row.UserID == userID && row.DisciplineID == disciplineID {
			sid := row.ID
			r.s.onRollback(ctx, func(st *state) {
				for j := range st.stats {
					if st.stats[j].ID == sid {
						st.stats[j].CompetitionsCount--
						st.stats[j].PointsCount -= points
					}
				}
			})
			r.s.st.stats[i].CompetitionsCount++
			r.s.st.stats[i].PointsCount += points
			return nil
		}
	}
	sid := r.s.st.id()
	r.s.st.stats = append(r.s.st.stats, entity.UserDisciplineStats{
		ID: sid, UserID: userID, DisciplineID: disciplineID, CompetitionsCount: 1, PointsCount: points,
	})
	r.s.onRollback(ctx, func(st *state) {
		st.stats = without(st.stats, func(row entity.UserDisciplineStats) bool { return row.ID == sid })
	})
	return nil
}

type ApplicationRepo struct{ s *Store }

func (s *Store) Applications() *ApplicationRepo { return &ApplicationRepo{s} }

func (r *ApplicationRepo) Create(ctx context.Context, app *entity.UserApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.st.userApps {
		if a.UserID == app.UserID && a.CompetitionID == app.CompetitionID && a.Status != entity.DecisionRejected {
			return gorm.ErrDuplicatedKey
		}
	}
	app.ID = r.s.st.id()
	app.CreatedAt = time.Now()
	trackEntry(r.s, ctx, userAppsOf, app.ID)
	r.s.st.userApps[app.ID] = *app
	return nil
}

func (r *ApplicationRepo) FindByID(_ context.Context, id uint) (*entity.UserApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.userApps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (r *ApplicationRepo) LockByID(ctx context.Context, id uint) (*entity.UserApplication, error) {
	r.s.lockRow(ctx, "user_application", id)
	return r.FindByID(ctx, id)
}

func (r *ApplicationRepo) HasLive(_ context.Context, userID uuid.UUID, competitionID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.st.userApps {
		if a.UserID == userID && a.CompetitionID == competitionID && a.Status != entity.DecisionRejected {
			return true, nil
		}
	}
	return false, nil
}

func (r *ApplicationRepo) Resolve(ctx context.Context, id uint, status entity.DecisionStatus, reason *string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.userApps[id]
	if !ok || a.Status != entity.DecisionPending {
		return false, nil
	}
	trackEntry(r.s, ctx, userAppsOf, id)
	a.Status, a.Reason = status, reason
	r.s.st.userApps[id] = a
	return true, nil
}

func (r *ApplicationRepo) list(keep func(a entity.UserApplication) bool) []entity.UserApplication {
	var out []entity.UserApplication
	for _, a := range r.s.st.userApps {
		if keep(a) {
			a.Competition = r.s.competitionPtr(a.CompetitionID)
			a.Profile = r.s.profilePtr(a.UserID)
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *ApplicationRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]entity.UserApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(a entity.UserApplication) bool { return a.UserID == userID }), nil
}

func (r *ApplicationRepo) ListPendingForOrganizer(_ context.Context, organizerID uuid.UUID) ([]entity.UserApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	organized := map[uint]bool{}
	for _, o := range r.s.st.organizers {
		if o.UserID == organizerID {
			organized[o.CompetitionID] = true
		}
	}
	return r.list(func(a entity.UserApplication) bool {
		return a.Status == entity.DecisionPending && organized[a.CompetitionID]
	}), nil
}
