package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/team/dto"
	"codedepartament.ru/sbp/internal/testutil/memstore"
	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store      *memstore.Store
	svc        TeamService
	region     uint
	discipline uint
	organizer  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	f := &fixture{
		store:      st,
		region:     st.AddRegion("Kazan"),
		discipline: st.AddDiscipline("CTF"),
	}
	f.organizer = st.AddUser("organizer", entity.Profile{RegionID: f.region, Role: entity.RoleRegionalRep, IsApproved: true})
	f.svc = NewTeamService(Deps{
		Teams:           st.Teams(),
		Invitations:     st.InvitationsRepo(),
		Applications:    st.TeamApplications(),
		Vacancies:       st.Vacancies(),
		Competitions:    st.Competitions(),
		Users:           st.Users(),
		Tx:              st,
		FullRegionCount: 3,
	})
	return f
}

func (f *fixture) competition(maxTeams, teamSize int, permissions ...uint) uint {
	if permissions == nil {
		permissions = []uint{}
	}
	return f.store.AddCompetition(entity.Competition{
		Name:                  "Team Cup",
		DisciplineID:          f.discipline,
		Kind:                  entity.KindTeam,
		Format:                entity.FormatOnline,
		MaxParticipants:       maxTeams,
		MaxParticipantsInTeam: teamSize,
		MaxAge:                100,
		Permissions:           permissions,
		Status:                entity.StatusRegistration,
		Dates: &entity.CompetitionDate{
			RegistrationStart: now.Add(-24 * time.Hour),
			RegistrationEnd:   now.Add(24 * time.Hour),
			StartDate:         now.Add(48 * time.Hour),
			EndDate:           now.Add(72 * time.Hour),
		},
	}, &f.organizer)
}

func (f *fixture) athlete(nick string) uuid.UUID {
	b := time.Date(2001, 3, 3, 0, 0, 0, 0, time.UTC)
	return f.store.AddUser(nick, entity.Profile{Surname: nick, Name: "Test", RegionID: f.region, Role: entity.RoleOrdinary, IsApproved: true, Birthday: &b})
}

func TestCreateTeamWithEmptyPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	compID := f.competition(4, 3)
	captain := f.athlete("captain")

	_, err := f.svc.CreateTeam(ctx, captain, dto.CreateTeamRequest{CompetitionID: compID, Name: "Owls"}, now)
	var el *apperror.EligibilityError
	require.ErrorAs(t, err, &el)
	assert.Equal(t, "region", el.Reason)

	moderator := f.store.AddUser("mod", entity.Profile{RegionID: f.region, Role: entity.RoleModerator, IsApproved: true})
	captainID := captain.String()
	team, err := f.svc.CreateTeam(ctx, moderator, dto.CreateTeamRequest{CompetitionID: compID, Name: "Owls", CaptainID: &captainID}, now)
	require.NoError(t, err)
	require.NotNil(t, team.CaptainID)
	assert.Equal(t, captainID, *team.CaptainID)
	assert.Equal(t, 3, team.MaxMembers)
	assert.Equal(t, []uuid.UUID{captain}, f.store.TeamMemberIDs(team.ID))
}

func TestModeratorMustNameCaptain(t *testing.T) {
	f := newFixture(t)
	compID := f.competition(4, 3)
	moderator := f.store.AddUser("mod", entity.Profile{RegionID: f.region, Role: entity.RoleModerator, IsApproved: true})

	_, err := f.svc.CreateTeam(context.Background(), moderator, dto.CreateTeamRequest{CompetitionID: compID, Name: "Nobody"}, now)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestOrdinaryUserCannotAppointCaptain(t *testing.T) {
	f := newFixture(t)
	compID := f.competition(4, 3, f.region)
	other := f.athlete("other").String()

	_, err := f.svc.CreateTeam(context.Background(), f.athlete("me"), dto.CreateTeamRequest{CompetitionID: compID, Name: "Mine", CaptainID: &other}, now)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestCaptainCannotLeadTwoTeams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	compID := f.competition(4, 3, f.region)
	captain := f.athlete("captain")

	_, err := f.svc.CreateTeam(ctx, captain, dto.CreateTeamRequest{CompetitionID: compID, Name: "First"}, now)
	require.NoError(t, err)

	_, err = f.svc.CreateTeam(ctx, captain, dto.CreateTeamRequest{CompetitionID: compID, Name: "Second"}, now)
	var el *apperror.EligibilityError
	require.ErrorAs(t, err, &el)
	assert.Equal(t, "duplicate", el.Reason)
}

func TestTeamApplicationDropsPendingInvitations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	compID := f.competition(4, 3, f.region)
	captain := f.athlete("captain")
	teamID := f.store.AddTeam(compID, "Owls", captain)
	f.store.AddInvitation(teamID, f.athlete("a"), entity.DecisionPending)
	f.store.AddInvitation(teamID, f.athlete("b"), entity.DecisionPending)
	declined := f.store.AddInvitation(teamID, f.athlete("c"), entity.DecisionRejected)

	app, err := f.svc.SubmitTeamApplication(ctx, captain, teamID)
	require.NoError(t, err)
	assert.Equal(t, entity.DecisionPending, app.Status)

	left := f.store.Invitations(teamID)
	require.Len(t, left, 1)
	assert.Equal(t, declined, left[0].ID)

	_, err = f.svc.Invite(ctx, captain, teamID, f.athlete("late"), now)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestTeamApplicationFailureKeepsInvitations(t *testing.T) {
	f := newFixture(t)
	compID := f.competition(4, 3, f.region)
	captain := f.athlete("captain")
	teamID := f.store.AddTeam(compID, "Owls", captain)
	f.store.AddInvitation(teamID, f.athlete("a"), entity.DecisionPending)
	f.store.FailOn("teamApplication.Create", assert.AnError)

	_, err := f.svc.SubmitTeamApplication(context.Background(), captain, teamID)
	require.ErrorIs(t, err, assert.AnError)
	assert.Len(t, f.store.Invitations(teamID), 1)
}

func TestOnlyMembersSubmitApplications(t *testing.T) {
	f := newFixture(t)
	compID := f.competition(4, 3, f.region)
	teamID := f.store.AddTeam(compID, "Owls", f.athlete("captain"))

	_, err := f.svc.SubmitTeamApplication(context.Background(), f.athlete("outsider"), teamID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestInvitationCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	compID := f.competition(4, 2, f.region)
	captain := f.athlete("captain")
	teamID := f.store.AddTeam(compID, "Pair", captain)
	a, b := f.athlete("a"), f.athlete("b")

	invA, err := f.svc.Invite(ctx, captain, teamID, a, now)
	require.NoError(t, err)
	invB, err := f.svc.Invite(ctx, captain, teamID, b, now)
	require.NoError(t, err)

	_, err = f.svc.Invite(ctx, captain, teamID, a, now)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.svc.RespondToInvitation(ctx, b, invA.ID, true, now)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	accepted, err := f.svc.RespondToInvitation(ctx, a, invA.ID, true, now)
	require.NoError(t, err)
	assert.Equal(t, entity.DecisionAccepted, accepted.Status)

	_, err = f.svc.RespondToInvitation(ctx, b, invB.ID, true, now)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	team, _ := f.store.Team(teamID)
	assert.Equal(t, 2, team.CurrentMembers)
	assert.ElementsMatch(t, []uuid.UUID{captain, a}, f.store.TeamMemberIDs(teamID))

	_, err = f.svc.RespondToInvitation(ctx, a, invA.ID, false, now)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestDecideTeamApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	compID := f.competition(1, 3, f.region)
	c1, m1 := f.athlete("c1"), f.athlete("m1")
	first := f.store.AddTeam(compID, "First", c1, m1)
	second := f.store.AddTeam(compID, "Second", f.athlete("c2"))

	app1, err := f.svc.SubmitTeamApplication(ctx, m1, first)
	require.NoError(t, err)
	app2, err := f.svc.SubmitTeamApplication(ctx, f.store.TeamMemberIDs(second)[0], second)
	require.NoError(t, err)

	_, err = f.svc.DecideTeamApplication(ctx, c1, app1.ID, true, nil)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	decided, err := f.svc.DecideTeamApplication(ctx, f.organizer, app1.ID, true, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.DecisionAccepted, decided.Status)

	var enrolled []uuid.UUID
	for _, p := range f.store.Participants(compID) {
		enrolled = append(enrolled, p.UserID)
	}
	assert.ElementsMatch(t, []uuid.UUID{c1, m1}, enrolled)

	_, err = f.svc.DecideTeamApplication(ctx, f.organizer, app2.ID, true, nil)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.svc.DecideTeamApplication(ctx, f.organizer, app2.ID, false, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	reason := "no places left"
	rejected, err := f.svc.DecideTeamApplication(ctx, f.organizer, app2.ID, false, &reason)
	require.NoError(t, err)
	assert.Equal(t, entity.DecisionRejected, rejected.Status)

	stored, _ := f.store.TeamApplication(app2.ID)
	require.NotNil(t, stored.Reason)
	assert.Equal(t, reason, *stored.Reason)
}

func TestVacancyFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	compID := f.competition(4, 3, f.region)
	captain := f.athlete("captain")
	teamID := f.store.AddTeam(compID, "Open", captain)
	seeker := f.athlete("seeker")

	_, err := f.svc.RespondToPublicVacancy(ctx, seeker, teamID, "  ", now)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	resp, err := f.svc.RespondToPublicVacancy(ctx, seeker, teamID, "I write exploits", now)
	require.NoError(t, err)

	_, err = f.svc.RespondToPublicVacancy(ctx, seeker, teamID, "again", now)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	pending, err := f.svc.ListCaptainVacancyResponses(ctx, captain)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, resp.ID, pending[0].ID)

	_, err = f.svc.DecideVacancyResponse(ctx, seeker, resp.ID, true, now)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	decided, err := f.svc.DecideVacancyResponse(ctx, captain, resp.ID, true, now)
	require.NoError(t, err)
	assert.Equal(t, entity.DecisionAccepted, decided.Status)
	assert.ElementsMatch(t, []uuid.UUID{captain, seeker}, f.store.TeamMemberIDs(teamID))

	teams, err := f.svc.ListUserTeams(ctx, seeker)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	require.NotNil(t, teams[0].IsRegistered)
	assert.False(t, *teams[0].IsRegistered)
}

func TestPrivateTeamRejectsVacancyResponses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	compID := f.competition(4, 3, f.region)
	captain := f.athlete("captain")

	team, err := f.svc.CreateTeam(ctx, captain, dto.CreateTeamRequest{CompetitionID: compID, Name: "Closed", IsPrivate: true}, now)
	require.NoError(t, err)

	_, err = f.svc.RespondToPublicVacancy(ctx, f.athlete("seeker"), team.ID, "let me in", now)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	public, err := f.svc.ListPublicTeams(ctx, &compID)
	require.NoError(t, err)
	assert.Empty(t, public)
}

// race runs the calls at the same moment and returns their errors in call order.
func race(calls ...func() error) []error {
	errs := make([]error, len(calls))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call func() error) {
			defer wg.Done()
			<-start
			errs[i] = call()
		}(i, call)
	}
	close(start)
	wg.Wait()
	return errs
}

func TestConcurrentInvitationAcceptsTakeTheLastSeat(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newFixture(t)
		ctx := context.Background()
		compID := f.competition(4, 2, f.region)
		captain := f.athlete("captain")
		teamID := f.store.AddTeam(compID, "Pair", captain)
		a, b := f.athlete("a"), f.athlete("b")
		invA := f.store.AddInvitation(teamID, a, entity.DecisionPending)
		invB := f.store.AddInvitation(teamID, b, entity.DecisionPending)

		errs := race(
			func() error { _, err := f.svc.RespondToInvitation(ctx, a, invA, true, now); return err },
			func() error { _, err := f.svc.RespondToInvitation(ctx, b, invB, true, now); return err },
		)

		var joined int
		for _, err := range errs {
			if err == nil {
				joined++
				continue
			}
			assert.ErrorIs(t, err, apperror.ErrConflict)
		}
		assert.Equal(t, 1, joined)
		team, _ := f.store.Team(teamID)
		assert.Equal(t, 2, team.CurrentMembers)
		assert.Len(t, f.store.TeamMemberIDs(teamID), 2)
	}
}

func TestConcurrentJoinsKeepOneTeamPerCompetition(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newFixture(t)
		ctx := context.Background()
		compID := f.competition(4, 3, f.region)
		firstCaptain, secondCaptain := f.athlete("c1"), f.athlete("c2")
		first := f.store.AddTeam(compID, "First", firstCaptain)
		second := f.store.AddTeam(compID, "Second", secondCaptain)
		player := f.athlete("player")

		inv := f.store.AddInvitation(first, player, entity.DecisionPending)
		resp, err := f.svc.RespondToPublicVacancy(ctx, player, second, "any role", now)
		require.NoError(t, err)

		errs := race(
			func() error { _, err := f.svc.RespondToInvitation(ctx, player, inv, true, now); return err },
			func() error { _, err := f.svc.DecideVacancyResponse(ctx, secondCaptain, resp.ID, true, now); return err },
		)

		var joined int
		for _, err := range errs {
			if err == nil {
				joined++
				continue
			}
			assert.ErrorIs(t, err, apperror.ErrConflict)
		}
		assert.Equal(t, 1, joined)

		var teams int
		for _, id := range []uint{first, second} {
			for _, m := range f.store.TeamMemberIDs(id) {
				if m == player {
					teams++
				}
			}
		}
		assert.Equal(t, 1, teams)
	}
}

func TestTeamApplicationRacesInvitationAccept(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newFixture(t)
		ctx := context.Background()
		compID := f.competition(4, 3, f.region)
		captain := f.athlete("captain")
		teamID := f.store.AddTeam(compID, "Owls", captain)
		invitee := f.athlete("invitee")
		inv := f.store.AddInvitation(teamID, invitee, entity.DecisionPending)

		done := make(chan []error, 1)
		go func() {
			done <- race(
				func() error { _, err := f.svc.SubmitTeamApplication(ctx, captain, teamID); return err },
				func() error { _, err := f.svc.RespondToInvitation(ctx, invitee, inv, true, now); return err },
			)
		}()

		var errs []error
		select {
		case errs = <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("team application and invitation accept blocked each other")
		}

		require.NoError(t, errs[0])
		if errs[1] != nil {
			assert.ErrorIs(t, errs[1], apperror.ErrNotFound)
			assert.Equal(t, []uuid.UUID{captain}, f.store.TeamMemberIDs(teamID))
		} else {
			assert.ElementsMatch(t, []uuid.UUID{captain, invitee}, f.store.TeamMemberIDs(teamID))
		}
		for _, i := range f.store.Invitations(teamID) {
			assert.NotEqual(t, entity.DecisionPending, i.Status)
		}
	}
}
