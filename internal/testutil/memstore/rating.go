package memstore

import (
	"context"
	"sort"

	"codedepartament.ru/sbp/internal/modules/rating/dto"
	"codedepartament.ru/sbp/internal/modules/rating/repository"
	"github.com/google/uuid"
)

type RatingRepo struct{ s *Store }

func (s *Store) Ratings() *RatingRepo { return &RatingRepo{s} }

func (r *RatingRepo) History(_ context.Context, userID uuid.UUID) ([]dto.Participation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sizes := map[uint]int{}
	for _, p := range r.s.st.participants {
		sizes[p.CompetitionID]++
	}
	var out []dto.Participation
	for _, p := range r.s.st.participants {
		if p.UserID == userID {
			out = append(out, dto.Participation{Place: p.Result, FieldSize: sizes[p.CompetitionID]})
		}
	}
	return out, nil
}

func (r *RatingRepo) ParticipantUserIDs(_ context.Context, competitionID uint) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []uuid.UUID
	for _, p := range r.s.st.participants {
		if p.CompetitionID == competitionID {
			out = append(out, p.UserID)
		}
	}
	return out, nil
}

func (r *RatingRepo) SaveRating(ctx context.Context, userID uuid.UUID, rating float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.st.profiles[userID]; ok {
		trackEntry(r.s, ctx, profilesOf, userID)
		p.Rating = rating
		r.s.st.profiles[userID] = p
	}
	return nil
}

func (r *RatingRepo) rated(filter func(uuid.UUID) bool) []repository.RatedUser {
	var out []repository.RatedUser
	for id, p := range r.s.st.profiles {
		if filter != nil && !filter(id) {
			continue
		}
		out = append(out, repository.RatedUser{UserID: id, NickName: r.s.st.users[id].NickName, Rating: p.Rating})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].NickName < out[j].NickName
	})
	return out
}

func (r *RatingRepo) RatedUsers(_ context.Context, ids []uuid.UUID) ([]repository.RatedUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return r.rated(func(id uuid.UUID) bool { return want[id] }), nil
}

func (r *RatingRepo) AllRatedUsers(_ context.Context) ([]repository.RatedUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.rated(nil), nil
}

func (r *RatingRepo) TopByRating(_ context.Context, offset, limit int) ([]repository.RatedUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.rated(nil)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *RatingRepo) CountHigher(_ context.Context, rating float64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.st.profiles {
		if p.Rating > rating {
			n++
		}
	}
	return n, nil
}

func (r *RatingRepo) CountAll(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.st.profiles)), nil
}

