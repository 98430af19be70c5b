package memstore

import (
	"context"
	"sort"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TeamRepo struct{ s *Store }

func (s *Store) Teams() *TeamRepo { return &TeamRepo{s} }

func (r *TeamRepo) Create(ctx context.Context, t *entity.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.st.id()
	t.CreatedAt = time.Now()
	trackEntry(r.s, ctx, teamsOf, t.ID)
	stored := *t
	stored.Members, stored.Competition, stored.Captain = nil, nil, nil
	r.s.st.teams[t.ID] = stored
	if t.CaptainID != nil {
		m := entity.TeamMember{TeamID: t.ID, UserID: *t.CaptainID, JoinedAt: time.Now()}
		r.s.st.members = append(r.s.st.members, m)
		r.s.undoMember(ctx, m.TeamID, m.UserID)
		t.Members = []entity.TeamMember{m}
		t.CurrentMembers = 1
		stored.CurrentMembers = 1
		r.s.st.teams[t.ID] = stored
	}
	return nil
}

func (r *TeamRepo) FindByID(_ context.Context, id uint) (*entity.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := r.s.teamPtr(id)
	if t == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *TeamRepo) LockByID(ctx context.Context, id uint) (*entity.Team, error) {
	r.s.lockRow(ctx, "team", id)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.st.teams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *TeamRepo) CountByCompetition(_ context.Context, competitionID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.st.teams {
		if t.CompetitionID == competitionID {
			n++
		}
	}
	return n, nil
}

func (r *TeamRepo) IsMember(_ context.Context, teamID uint, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.st.members {
		if m.TeamID == teamID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *TeamRepo) IsMemberInCompetition(_ context.Context, competitionID uint, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.st.members {
		if m.UserID == userID && r.s.st.teams[m.TeamID].CompetitionID == competitionID {
			return true, nil
		}
	}
	return false, nil
}

func (r *TeamRepo) AddMember(ctx context.Context, teamID uint, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.st.members {
		if m.TeamID == teamID && m.UserID == userID {
			return gorm.ErrDuplicatedKey
		}
	}
	trackEntry(r.s, ctx, teamsOf, teamID)
	r.s.st.members = append(r.s.st.members, entity.TeamMember{TeamID: teamID, UserID: userID, JoinedAt: time.Now()})
	r.s.undoMember(ctx, teamID, userID)
	t := r.s.st.teams[teamID]
	t.CurrentMembers = len(r.s.memberIDs(teamID))
	r.s.st.teams[teamID] = t
	return nil
}

func (r *TeamRepo) MemberIDs(_ context.Context, teamID uint) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.memberIDs(teamID), nil
}

func (r *TeamRepo) list(keep func(t entity.Team) bool) []entity.Team {
	var out []entity.Team
	for id, t := range r.s.st.teams {
		if keep(t) {
			out = append(out, *r.s.teamPtr(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *TeamRepo) ListPublic(_ context.Context, competitionID *uint) ([]entity.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(t entity.Team) bool {
		if competitionID != nil && t.CompetitionID != *competitionID {
			return false
		}
		return !t.IsPrivate && !t.IsFull()
	}), nil
}

func (r *TeamRepo) ListByMember(_ context.Context, userID uuid.UUID) ([]entity.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	mine := map[uint]bool{}
	for _, m := range r.s.st.members {
		if m.UserID == userID {
			mine[m.TeamID] = true
		}
	}
	return r.list(func(t entity.Team) bool { return mine[t.ID] }), nil
}

func (r *TeamRepo) ListByCompetition(_ context.Context, competitionID uint) ([]entity.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(t entity.Team) bool { return t.CompetitionID == competitionID }), nil
}

type InvitationRepo struct{ s *Store }

func (s *Store) InvitationsRepo() *InvitationRepo { return &InvitationRepo{s} }

func (r *InvitationRepo) Create(ctx context.Context, inv *entity.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, i := range r.s.st.invitations {
		if i.TeamID == inv.TeamID && i.UserID == inv.UserID && i.Status == entity.DecisionPending {
			return gorm.ErrDuplicatedKey
		}
	}
	inv.ID = r.s.st.id()
	inv.CreatedAt = time.Now()
	trackEntry(r.s, ctx, invitationsOf, inv.ID)
	r.s.st.invitations[inv.ID] = *inv
	return nil
}

func (r *InvitationRepo) FindByID(_ context.Context, id uint) (*entity.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.st.invitations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

func (r *InvitationRepo) LockByID(ctx context.Context, id uint) (*entity.Invitation, error) {
	r.s.lockRow(ctx, "invitation", id)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.st.invitations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

func (r *InvitationRepo) HasPending(_ context.Context, teamID uint, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, i := range r.s.st.invitations {
		if i.TeamID == teamID && i.UserID == userID && i.Status == entity.DecisionPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *InvitationRepo) Resolve(ctx context.Context, id uint, status entity.DecisionStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.st.invitations[id]
	if !ok || inv.Status != entity.DecisionPending {
		return false, nil
	}
	trackEntry(r.s, ctx, invitationsOf, id)
	inv.Status = status
	r.s.st.invitations[id] = inv
	return true, nil
}

func (r *InvitationRepo) DeletePending(ctx context.Context, teamID uint) (int64, error) {
	var pending []uint
	r.s.mu.Lock()
	for id, i := range r.s.st.invitations {
		if i.TeamID == teamID && i.Status == entity.DecisionPending {
			pending = append(pending, id)
		}
	}
	r.s.mu.Unlock()
	for _, id := range pending {
		r.s.lockRow(ctx, "invitation", id)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, i := range r.s.st.invitations {
		if i.TeamID == teamID && i.Status == entity.DecisionPending {
			trackEntry(r.s, ctx, invitationsOf, id)
			delete(r.s.st.invitations, id)
			n++
		}
	}
	return n, nil
}

func (r *InvitationRepo) ListPendingForUser(_ context.Context, userID uuid.UUID) ([]entity.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Invitation
	for _, i := range r.s.st.invitations {
		if i.UserID == userID && i.Status == entity.DecisionPending {
			i.Team = r.s.teamPtr(i.TeamID)
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

type TeamApplicationRepo struct{ s *Store }

func (s *Store) TeamApplications() *TeamApplicationRepo { return &TeamApplicationRepo{s} }

func (r *TeamApplicationRepo) Create(ctx context.Context, app *entity.TeamApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("teamApplication.Create"); err != nil {
		return err
	}
	app.ID = r.s.st.id()
	app.CreatedAt = time.Now()
	trackEntry(r.s, ctx, teamAppsOf, app.ID)
	r.s.st.teamApps[app.ID] = *app
	return nil
}

func (r *TeamApplicationRepo) LockByID(ctx context.Context, id uint) (*entity.TeamApplication, error) {
	r.s.lockRow(ctx, "team_application", id)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.teamApps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (r *TeamApplicationRepo) HasLive(_ context.Context, teamID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.st.teamApps {
		if a.TeamID == teamID && a.Status != entity.DecisionRejected {
			return true, nil
		}
	}
	return false, nil
}

func (r *TeamApplicationRepo) CountAccepted(_ context.Context, competitionID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.st.teamApps {
		if a.CompetitionID == competitionID && a.Status == entity.DecisionAccepted {
			n++
		}
	}
	return n, nil
}

func (r *TeamApplicationRepo) Resolve(ctx context.Context, id uint, status entity.DecisionStatus, reason *string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.teamApps[id]
	if !ok || a.Status != entity.DecisionPending {
		return false, nil
	}
	trackEntry(r.s, ctx, teamAppsOf, id)
	a.Status, a.Reason = status, reason
	r.s.st.teamApps[id] = a
	return true, nil
}

func (r *TeamApplicationRepo) AcceptedTeamIDs(_ context.Context, teamIDs []uint) (map[uint]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := map[uint]bool{}
	for _, id := range teamIDs {
		want[id] = true
	}
	out := map[uint]bool{}
	for _, a := range r.s.st.teamApps {
		if want[a.TeamID] && a.Status == entity.DecisionAccepted {
			out[a.TeamID] = true
		}
	}
	return out, nil
}

func (r *TeamApplicationRepo) ListPendingForOrganizer(_ context.Context, organizerID uuid.UUID) ([]entity.TeamApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	organized := map[uint]bool{}
	for _, o := range r.s.st.organizers {
		if o.UserID == organizerID {
			organized[o.CompetitionID] = true
		}
	}
	var out []entity.TeamApplication
	for _, a := range r.s.st.teamApps {
		if a.Status == entity.DecisionPending && organized[a.CompetitionID] {
			a.Team = r.s.teamPtr(a.TeamID)
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TeamApplication returns a stored team application for assertions.
func (s *Store) TeamApplication(id uint) (entity.TeamApplication, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.teamApps[id]
	return a, ok
}

type VacancyRepo struct{ s *Store }

func (s *Store) Vacancies() *VacancyRepo { return &VacancyRepo{s} }

func (r *VacancyRepo) Create(ctx context.Context, resp *entity.VacancyResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	resp.ID = r.s.st.id()
	resp.CreatedAt = time.Now()
	trackEntry(r.s, ctx, vacanciesOf, resp.ID)
	r.s.st.vacancies[resp.ID] = *resp
	return nil
}

func (r *VacancyRepo) FindByID(_ context.Context, id uint) (*entity.VacancyResponse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.st.vacancies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (r *VacancyRepo) LockByID(ctx context.Context, id uint) (*entity.VacancyResponse, error) {
	r.s.lockRow(ctx, "vacancy_response", id)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.st.vacancies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (r *VacancyRepo) HasPending(_ context.Context, teamID uint, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.st.vacancies {
		if v.TeamID == teamID && v.UserID == userID && v.Status == entity.DecisionPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *VacancyRepo) Resolve(ctx context.Context, id uint, status entity.DecisionStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.st.vacancies[id]
	if !ok || v.Status != entity.DecisionPending {
		return false, nil
	}
	trackEntry(r.s, ctx, vacanciesOf, id)
	v.Status = status
	r.s.st.vacancies[id] = v
	return true, nil
}

func (r *VacancyRepo) list(keep func(v entity.VacancyResponse) bool) []entity.VacancyResponse {
	var out []entity.VacancyResponse
	for _, v := range r.s.st.vacancies {
		if keep(v) {
			v.Team = r.s.teamPtr(v.TeamID)
			v.Profile = r.s.profilePtr(v.UserID)
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *VacancyRepo) ListPendingForCaptain(_ context.Context, captainID uuid.UUID) ([]entity.VacancyResponse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(v entity.VacancyResponse) bool {
		t := r.s.st.teams[v.TeamID]
		return v.Status == entity.DecisionPending && t.IsCaptain(captainID)
	}), nil
}

func (r *VacancyRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]entity.VacancyResponse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(v entity.VacancyResponse) bool { return v.UserID == userID }), nil
}

// undoMember must be called with mu held.
func (s *Store) undoMember(ctx context.Context, teamID uint, userID uuid.UUID) {
	s.onRollback(ctx, func(st *state) {
		st.members = without(st.members, func(m entity.TeamMember) bool { return m.TeamID == teamID && m.UserID == userID })
	})
}
