// Package memstore is an in-memory stand-in for the gorm repositories, used by
// service tests. LockByID takes a per-row lock held until the transaction ends,
// and a failed transaction replays the undo steps of its writes.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"github.com/google/uuid"
)

type txKey struct{}

type state struct {
	nextID       uint
	users        map[uuid.UUID]entity.User
	profiles     map[uuid.UUID]entity.Profile
	regions      map[uint]entity.Region
	disciplines  map[uint]entity.Discipline
	competitions map[uint]entity.Competition
	dates        map[uint]entity.CompetitionDate
	organizers   []entity.CompetitionOrganizer
	participants []entity.CompetitionParticipant
	stats        []entity.UserDisciplineStats
	userApps     map[uint]entity.UserApplication
	teams        map[uint]entity.Team
	members      []entity.TeamMember
	invitations  map[uint]entity.Invitation
	teamApps     map[uint]entity.TeamApplication
	vacancies    map[uint]entity.VacancyResponse
}

func newState() *state {
	return &state{
		users:        map[uuid.UUID]entity.User{},
		profiles:     map[uuid.UUID]entity.Profile{},
		regions:      map[uint]entity.Region{},
		disciplines:  map[uint]entity.Discipline{},
		competitions: map[uint]entity.Competition{},
		dates:        map[uint]entity.CompetitionDate{},
		userApps:     map[uint]entity.UserApplication{},
		teams:        map[uint]entity.Team{},
		invitations:  map[uint]entity.Invitation{},
		teamApps:     map[uint]entity.TeamApplication{},
		vacancies:    map[uint]entity.VacancyResponse{},
	}
}

func (st *state) id() uint {
	st.nextID++
	return st.nextID
}

// tx is an open transaction: the row locks it holds and the steps that undo its writes.
type tx struct {
	held map[string]*sync.Mutex
	undo []func(st *state)
}

func txFrom(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

type Store struct {
	mu sync.Mutex
	st *state

	rowsMu sync.Mutex
	rows   map[string]*sync.Mutex

	faults map[string]error
}

func New() *Store {
	return &Store{st: newState(), rows: map[string]*sync.Mutex{}, faults: map[string]error{}}
}

// WithinTransaction runs fn as one unit of work. Rows taken with LockByID stay
// locked until fn returns; when fn fails every write it made is undone.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	t := &tx{held: map[string]*sync.Mutex{}}
	err := fn(context.WithValue(ctx, txKey{}, t))
	if err != nil {
		s.mu.Lock()
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i](s.st)
		}
		s.mu.Unlock()
	}
	for _, m := range t.held {
		m.Unlock()
	}
	return err
}

// lockRow blocks until the transaction in ctx owns the row, like SELECT ... FOR UPDATE.
// Outside a transaction it does nothing. Must be called without mu held.
func (s *Store) lockRow(ctx context.Context, table string, id uint) {
	t := txFrom(ctx)
	if t == nil {
		return
	}
	key := fmt.Sprintf("%s:%d", table, id)
	if _, ok := t.held[key]; ok {
		return
	}

	s.rowsMu.Lock()
	m, ok := s.rows[key]
	if !ok {
		m = &sync.Mutex{}
		s.rows[key] = m
	}
	s.rowsMu.Unlock()

	m.Lock()
	t.held[key] = m
}

// onRollback must be called with mu held.
func (s *Store) onRollback(ctx context.Context, fn func(st *state)) {
	if t := txFrom(ctx); t != nil {
		t.undo = append(t.undo, fn)
	}
}

// trackEntry records the current value of pick(st)[k] so a rollback restores it.
// Must be called with mu held, before the entry changes.
func trackEntry[K comparable, V any](s *Store, ctx context.Context, pick func(st *state) map[K]V, k K) {
	old, existed := pick(s.st)[k]
	s.onRollback(ctx, func(st *state) {
		if existed {
			pick(st)[k] = old
		} else {
			delete(pick(st), k)
		}
	})
}

func without[T any](xs []T, drop func(T) bool) []T {
	out := make([]T, 0, len(xs))
	for _, x := range xs {
		if !drop(x) {
			out = append(out, x)
		}
	}
	return out
}

func competitionsOf(st *state) map[uint]entity.Competition { return st.competitions }
func datesOf(st *state) map[uint]entity.CompetitionDate { return st.dates }
func profilesOf(st *state) map[uuid.UUID]entity.Profile { return st.profiles }
func userAppsOf(st *state) map[uint]entity.UserApplication { return st.userApps }
func teamsOf(st *state) map[uint]entity.Team { return st.teams }
func invitationsOf(st *state) map[uint]entity.Invitation { return st.invitations }
func teamAppsOf(st *state) map[uint]entity.TeamApplication { return st.teamApps }
func vacanciesOf(st *state) map[uint]entity.VacancyResponse { return st.vacancies }

// FailOn makes the named repository operation return err from now on.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// fault must be called with mu held.
func (s *Store) fault(op string) error {
	return s.faults[op]
}

// Seeding helpers.

func (s *Store) AddRegion(name string) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.st.id()
	s.st.regions[id] = entity.Region{ID: id, Name: name}
	return id
}

func (s *Store) AddDiscipline(name string) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.st.id()
	s.st.disciplines[id] = entity.Discipline{ID: id, Name: name}
	return id
}

// AddUser stores a user with the given profile; the profile's UserID is filled in.
func (s *Store) AddUser(nick string, p entity.Profile) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.st.users[id] = entity.User{ID: id, NickName: nick, DateJoined: time.Now()}
	p.UserID = id
	s.st.profiles[id] = p
	return id
}

// AddCompetition stores c with its dates and optional organizer.
func (s *Store) AddCompetition(c entity.Competition, organizer *uuid.UUID) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.st.id()
	if c.Dates != nil {
		d := *c.Dates
		d.CompetitionID = c.ID
		s.st.dates[c.ID] = d
		c.Dates = nil
	}
	s.st.competitions[c.ID] = c
	if organizer != nil {
		s.st.organizers = append(s.st.organizers, entity.CompetitionOrganizer{ID: s.st.id(), UserID: *organizer, CompetitionID: c.ID})
	}
	return c.ID
}

func (s *Store) AddParticipant(competitionID uint, userID uuid.UUID, result int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.participants = append(s.st.participants, entity.CompetitionParticipant{
		ID: s.st.id(), CompetitionID: competitionID, UserID: userID, Result: result,
	})
}

func (s *Store) AddUserApplication(competitionID uint, userID uuid.UUID, status entity.DecisionStatus) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.st.id()
	s.st.userApps[id] = entity.UserApplication{ID: id, CompetitionID: competitionID, UserID: userID, Status: status, CreatedAt: time.Now()}
	return id
}

// AddTeam stores a team whose members are the captain followed by others.
func (s *Store) AddTeam(competitionID uint, name string, captain uuid.UUID, others ...uuid.UUID) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.st.competitions[competitionID]
	id := s.st.id()
	capID := captain
	s.st.teams[id] = entity.Team{
		ID:             id,
		CompetitionID:  competitionID,
		Name:           name,
		CaptainID:      &capID,
		MaxMembers:     c.MaxParticipantsInTeam,
		CurrentMembers: 1 + len(others),
		CreatedAt:      time.Now(),
	}
	for _, uid := range append([]uuid.UUID{captain}, others...) {
		s.st.members = append(s.st.members, entity.TeamMember{TeamID: id, UserID: uid, JoinedAt: time.Now()})
	}
	return id
}

func (s *Store) AddInvitation(teamID uint, userID uuid.UUID, status entity.DecisionStatus) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.st.id()
	s.st.invitations[id] = entity.Invitation{ID: id, TeamID: teamID, UserID: userID, Status: status, CreatedAt: time.Now()}
	return id
}

// Inspection helpers.

func (s *Store) Competition(id uint) (entity.Competition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.competitions[id]
	return c, ok
}

func (s *Store) Participants(competitionID uint) []entity.CompetitionParticipant {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.CompetitionParticipant
	for _, p := range s.st.participants {
		if p.CompetitionID == competitionID {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) Organizers(competitionID uint) []entity.CompetitionOrganizer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.CompetitionOrganizer
	for _, o := range s.st.organizers {
		if o.CompetitionID == competitionID {
			out = append(out, o)
		}
	}
	return out
}

func (s *Store) Profile(userID uuid.UUID) entity.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.profiles[userID]
}

func (s *Store) Stats(userID uuid.UUID) []entity.UserDisciplineStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.UserDisciplineStats
	for _, st := range s.st.stats {
		if st.UserID == userID {
			out = append(out, st)
		}
	}
	return out
}

func (s *Store) UserApplication(id uint) (entity.UserApplication, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.userApps[id]
	return a, ok
}

func (s *Store) Team(id uint) (entity.Team, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.st.teams[id]
	return t, ok
}

func (s *Store) TeamMemberIDs(teamID uint) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberIDs(teamID)
}

func (s *Store) Invitations(teamID uint) []entity.Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Invitation
	for _, inv := range s.st.invitations {
		if inv.TeamID == teamID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) memberIDs(teamID uint) []uuid.UUID {
	var out []uuid.UUID
	for _, m := range s.st.members {
		if m.TeamID == teamID {
			out = append(out, m.UserID)
		}
	}
	return out
}

func (s *Store) profilePtr(userID uuid.UUID) *entity.Profile {
	p, ok := s.st.profiles[userID]
	if !ok {
		return nil
	}
	if r, ok := s.st.regions[p.RegionID]; ok {
		p.Region = &r
	}
	return &p
}

func (s *Store) competitionPtr(id uint) *entity.Competition {
	c, ok := s.st.competitions[id]
	if !ok {
		return nil
	}
	if d, ok := s.st.dates[id]; ok {
		c.Dates = &d
	}
	if d, ok := s.st.disciplines[c.DisciplineID]; ok {
		c.Discipline = &d
	}
	return &c
}

func (s *Store) teamPtr(id uint) *entity.Team {
	t, ok := s.st.teams[id]
	if !ok {
		return nil
	}
	t.Competition = s.competitionPtr(t.CompetitionID)
	if t.CaptainID != nil {
		t.Captain = s.profilePtr(*t.CaptainID)
	}
	t.Members = nil
	for _, m := range s.st.members {
		if m.TeamID == id {
			m.Profile = s.profilePtr(m.UserID)
			t.Members = append(t.Members, m)
		}
	}
	return &t
}
