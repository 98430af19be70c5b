package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	catalog "codedepartament.ru/sbp/internal/modules/catalog/service"
	"codedepartament.ru/sbp/internal/modules/competition/dto"
	"codedepartament.ru/sbp/internal/modules/competition/repository"
	ratingSvc "codedepartament.ru/sbp/internal/modules/rating/service"
	"codedepartament.ru/sbp/internal/testutil/memstore"
	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store      *memstore.Store
	svc        CompetitionService
	region     uint
	discipline uint
	organizer  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	f := &fixture{
		store:      st,
		region:     st.AddRegion("Moscow"),
		discipline: st.AddDiscipline("Algorithms"),
	}
	f.organizer = st.AddUser("organizer", entity.Profile{Surname: "Org", Name: "Anna", RegionID: f.region, Role: entity.RoleRegionalRep, IsApproved: true})
	f.svc = f.service(st.Competitions())
	return f
}

func (f *fixture) service(competitions repository.CompetitionRepository) CompetitionService {
	return NewCompetitionService(Deps{
		Competitions:    competitions,
		Applications:    f.store.Applications(),
		Users:           f.store.Users(),
		Catalog:         catalog.NewCatalogService(f.store.Catalog()),
		Ratings:         ratingSvc.NewRatingService(f.store.Ratings(), nil),
		Tx:              f.store,
		FullRegionCount: 3,
	})
}

// openWindow puts now inside the registration window.
func openWindow() *entity.CompetitionDate {
	return &entity.CompetitionDate{
		RegistrationStart: now.Add(-48 * time.Hour),
		RegistrationEnd:   now.Add(48 * time.Hour),
		StartDate:         now.Add(72 * time.Hour),
		EndDate:           now.Add(96 * time.Hour),
	}
}

func (f *fixture) competition(status entity.CompetitionStatus, maxParticipants int) uint {
	return f.store.AddCompetition(entity.Competition{
		Name:                  "Spring Cup",
		DisciplineID:          f.discipline,
		Kind:                  entity.KindIndividual,
		Format:                entity.FormatOnline,
		MaxParticipants:       maxParticipants,
		MaxParticipantsInTeam: 1,
		MaxAge:                100,
		Permissions:           []uint{},
		Status:                status,
		Dates:                 openWindow(),
	}, &f.organizer)
}

func (f *fixture) athlete(nick string) uuid.UUID {
	b := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	return f.store.AddUser(nick, entity.Profile{Surname: nick, Name: "Test", RegionID: f.region, Role: entity.RoleOrdinary, IsApproved: true, Birthday: &b})
}

func TestNextStatus(t *testing.T) {
	d := *openWindow()
	tests := []struct {
		name string
		at   time.Time
		want entity.CompetitionStatus
	}{
		{"before registration", d.RegistrationStart.Add(-time.Second), entity.StatusWaiting},
		{"registration opens", d.RegistrationStart, entity.StatusRegistration},
		{"registration closes", d.RegistrationEnd, entity.StatusRegistration},
		{"gap before start", d.RegistrationEnd.Add(time.Hour), entity.StatusWaiting},
		{"start", d.StartDate, entity.StatusRunning},
		{"end", d.EndDate, entity.StatusRunning},
		{"after end", d.EndDate.Add(time.Second), entity.StatusFinished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStatus(d, tt.at))
		})
	}
}

func TestRefreshStatusesIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	upcoming := f.competition(entity.StatusUpcoming, 10)
	pending := f.competition(entity.StatusPending, 10)
	completed := f.competition(entity.StatusCompleted, 10)

	first, err := f.svc.RefreshStatuses(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.CompetitionsUpdated)
	require.Len(t, first.Competitions, 3)

	byID := map[uint]dto.StatusChange{}
	for _, c := range first.Competitions {
		byID[c.ID] = c
	}
	assert.True(t, byID[upcoming].StatusChanged)
	assert.Equal(t, entity.StatusRegistration, byID[upcoming].NewStatus)
	assert.False(t, byID[pending].StatusChanged)
	assert.False(t, byID[completed].StatusChanged)

	second, err := f.svc.RefreshStatuses(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, second.CompetitionsUpdated)
	for _, c := range second.Competitions {
		assert.False(t, c.StatusChanged, "competition %d", c.ID)
	}

	c, _ := f.store.Competition(pending)
	assert.Equal(t, entity.StatusPending, c.Status)
}

// racingRepo completes a competition right after the refresh has read it.
type racingRepo struct {
	*memstore.CompetitionRepo
	store *memstore.Store
	id    uint
}

func (r racingRepo) ListForRefresh(ctx context.Context) ([]entity.Competition, error) {
	list, err := r.CompetitionRepo.ListForRefresh(ctx)
	r.store.SetStatus(r.id, entity.StatusCompleted)
	return list, err
}

func TestRefreshDoesNotOverwriteConcurrentChange(t *testing.T) {
	f := newFixture(t)
	id := f.competition(entity.StatusUpcoming, 10)
	svc := f.service(racingRepo{CompetitionRepo: f.store.Competitions(), store: f.store, id: id})

	report, err := svc.RefreshStatuses(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, report.CompetitionsUpdated)

	c, _ := f.store.Competition(id)
	assert.Equal(t, entity.StatusCompleted, c.Status)
}

func TestConcurrentAcceptsRespectCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.competition(entity.StatusRegistration, 2)
	f.store.AddParticipant(id, f.athlete("first"), 0)

	apps := []uint{
		f.store.AddUserApplication(id, f.athlete("second"), entity.DecisionPending),
		f.store.AddUserApplication(id, f.athlete("third"), entity.DecisionPending),
	}

	errs := make([]error, len(apps))
	var wg sync.WaitGroup
	for i, appID := range apps {
		wg.Add(1)
		go func(i int, appID uint) {
			defer wg.Done()
			_, errs[i] = f.svc.DecideApplication(ctx, f.organizer, appID, true, nil)
		}(i, appID)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperror.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, f.store.Participants(id), 2)
}

func TestAcceptThenRejectIsInvalidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.competition(entity.StatusRegistration, 5)
	appID := f.store.AddUserApplication(id, f.athlete("solo"), entity.DecisionPending)

	app, err := f.svc.DecideApplication(ctx, f.organizer, appID, true, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.DecisionAccepted, app.Status)

	reason := "changed my mind"
	_, err = f.svc.DecideApplication(ctx, f.organizer, appID, false, &reason)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	stored, _ := f.store.UserApplication(appID)
	assert.Equal(t, entity.DecisionAccepted, stored.Status)
	assert.Len(t, f.store.Participants(id), 1)
}

func TestDecideApplicationRequiresOrganizer(t *testing.T) {
	f := newFixture(t)
	id := f.competition(entity.StatusRegistration, 5)
	appID := f.store.AddUserApplication(id, f.athlete("solo"), entity.DecisionPending)

	_, err := f.svc.DecideApplication(context.Background(), f.athlete("stranger"), appID, true, nil)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestRejectNeedsReason(t *testing.T) {
	f := newFixture(t)
	id := f.competition(entity.StatusRegistration, 5)
	appID := f.store.AddUserApplication(id, f.athlete("solo"), entity.DecisionPending)

	_, err := f.svc.DecideApplication(context.Background(), f.organizer, appID, false, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestSubmitApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.competition(entity.StatusRegistration, 5)
	user := f.athlete("runner")

	app, err := f.svc.SubmitApplication(ctx, user, id, now)
	require.NoError(t, err)
	assert.Equal(t, entity.DecisionPending, app.Status)

	_, err = f.svc.SubmitApplication(ctx, user, id, now)
	var el *apperror.EligibilityError
	require.ErrorAs(t, err, &el)
	assert.Equal(t, "duplicate", el.Reason)
}

func TestSubmitApplicationToPendingCompetition(t *testing.T) {
	f := newFixture(t)
	id := f.competition(entity.StatusPending, 5)

	_, err := f.svc.SubmitApplication(context.Background(), f.athlete("early"), id, now)
	var el *apperror.EligibilityError
	require.ErrorAs(t, err, &el)
	assert.Equal(t, "not-open", el.Reason)
}

func TestDistributeResultsRequiresCompletedCompetition(t *testing.T) {
	f := newFixture(t)
	id := f.competition(entity.StatusUpcoming, 5)
	a, b := f.athlete("a"), f.athlete("b")
	f.store.AddParticipant(id, a, 0)
	f.store.AddParticipant(id, b, 0)

	err := f.svc.DistributeResults(context.Background(), f.organizer, id, []dto.ResultEntry{
		{UserID: a.String(), Place: 1},
		{UserID: b.String(), Place: 2},
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	for _, p := range f.store.Participants(id) {
		assert.Zero(t, p.Result)
	}
	assert.Empty(t, f.store.Stats(a))
	for _, o := range f.store.Organizers(id) {
		assert.False(t, o.Rated)
	}
}

func TestDistributeResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.competition(entity.StatusCompleted, 5)
	a, b := f.athlete("a"), f.athlete("b")
	f.store.AddParticipant(id, a, 0)
	f.store.AddParticipant(id, b, 0)

	results := []dto.ResultEntry{
		{UserID: a.String(), Place: 1},
		{UserID: b.String(), Place: 2},
	}
	require.NoError(t, f.svc.DistributeResults(ctx, f.organizer, id, results))

	places := map[uuid.UUID]int{}
	for _, p := range f.store.Participants(id) {
		places[p.UserID] = p.Result
	}
	assert.Equal(t, map[uuid.UUID]int{a: 1, b: 2}, places)

	require.Len(t, f.store.Stats(a), 1)
	assert.Equal(t, 1, f.store.Stats(a)[0].CompetitionsCount)
	assert.Greater(t, f.store.Stats(a)[0].PointsCount, f.store.Stats(b)[0].PointsCount)
	assert.Greater(t, f.store.Profile(a).Rating, f.store.Profile(b).Rating)
	assert.True(t, f.store.Organizers(id)[0].Rated)

	err := f.svc.DistributeResults(ctx, f.organizer, id, results)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.Equal(t, 1, f.store.Stats(a)[0].CompetitionsCount)
}

func TestDistributeResultsRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	id := f.competition(entity.StatusCompleted, 5)
	a, b := f.athlete("a"), f.athlete("b")
	f.store.AddParticipant(id, a, 0)
	f.store.AddParticipant(id, b, 0)
	f.store.FailOn("competition.MarkRated", errors.New("connection reset"))

	err := f.svc.DistributeResults(context.Background(), f.organizer, id, []dto.ResultEntry{
		{UserID: a.String(), Place: 1},
		{UserID: b.String(), Place: 2},
	})
	require.Error(t, err)

	for _, p := range f.store.Participants(id) {
		assert.Zero(t, p.Result)
	}
	assert.Empty(t, f.store.Stats(a))
	assert.Empty(t, f.store.Stats(b))
}

func TestDistributeResultsRejectsStrangers(t *testing.T) {
	f := newFixture(t)
	id := f.competition(entity.StatusCompleted, 5)
	a := f.athlete("a")
	f.store.AddParticipant(id, a, 0)

	err := f.svc.DistributeResults(context.Background(), f.organizer, id, []dto.ResultEntry{
		{UserID: uuid.NewString(), Place: 1},
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Zero(t, f.store.Participants(id)[0].Result)
}

func TestCreateCompetitionRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := openWindow()
	req := dto.CreateCompetitionRequest{
		Name:            "Autumn Open",
		Description:     `<p>Bring a laptop</p><script>alert(1)</script>`,
		DisciplineID:    f.discipline,
		Kind:            string(entity.KindIndividual),
		Format:          string(entity.FormatOffline),
		MaxParticipants: 20,
		Permissions:     dto.Permissions{f.region},
		Dates: dto.DatesRequest{
			RegistrationStart: d.RegistrationStart,
			RegistrationEnd:   d.RegistrationEnd,
			StartDate:         d.StartDate,
			EndDate:           d.EndDate,
		},
	}

	_, err := f.svc.Create(ctx, f.athlete("ordinary"), req)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	waiting := f.store.AddUser("waiting", entity.Profile{RegionID: f.region, Role: entity.RoleRegionalRep})
	_, err = f.svc.Create(ctx, waiting, req)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	created, err := f.svc.Create(ctx, f.organizer, req)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, created.Status)
	assert.Equal(t, 1, created.MaxParticipantsInTeam)
	assert.Equal(t, 100, created.MaxAge)
	assert.Equal(t, 1, created.PermissionsStatus)
	assert.NotContains(t, created.Description, "<script>")
	require.Len(t, f.store.Organizers(created.ID), 1)
	assert.Equal(t, f.organizer, f.store.Organizers(created.ID)[0].UserID)
}

func TestCreateCompetitionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := openWindow()
	base := dto.CreateCompetitionRequest{
		Name:            "Broken",
		DisciplineID:    f.discipline,
		Kind:            string(entity.KindTeam),
		Format:          string(entity.FormatOnline),
		MaxParticipants: 4,
		Dates: dto.DatesRequest{
			RegistrationStart: d.RegistrationStart,
			RegistrationEnd:   d.RegistrationEnd,
			StartDate:         d.StartDate,
			EndDate:           d.EndDate,
		},
	}

	_, err := f.svc.Create(ctx, f.organizer, base)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput, "team without team size")

	bad := base
	bad.MaxParticipantsInTeam = 3
	bad.Dates.EndDate = bad.Dates.StartDate
	_, err = f.svc.Create(ctx, f.organizer, bad)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput, "empty running window")

	bad = base
	bad.MaxParticipantsInTeam = 3
	bad.MinAge, bad.MaxAge = 30, 20
	_, err = f.svc.Create(ctx, f.organizer, bad)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput, "inverted age range")
}

func TestDecideCompetition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	moderator := f.store.AddUser("mod", entity.Profile{RegionID: f.region, Role: entity.RoleModerator, IsApproved: true})
	accepted := f.competition(entity.StatusPending, 5)
	rejected := f.competition(entity.StatusPending, 5)

	assert.ErrorIs(t, f.svc.Decide(ctx, f.organizer, accepted, true), apperror.ErrForbidden)

	require.NoError(t, f.svc.Decide(ctx, moderator, accepted, true))
	c, _ := f.store.Competition(accepted)
	assert.Equal(t, entity.StatusUpcoming, c.Status)
	assert.ErrorIs(t, f.svc.Decide(ctx, moderator, accepted, false), apperror.ErrInvalidState)

	require.NoError(t, f.svc.Decide(ctx, moderator, rejected, false))
	_, ok := f.store.Competition(rejected)
	assert.False(t, ok)
	assert.Empty(t, f.store.Organizers(rejected))
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	running := f.competition(entity.StatusRunning, 5)
	finished := f.competition(entity.StatusFinished, 5)

	assert.ErrorIs(t, f.svc.Complete(ctx, f.organizer, running), apperror.ErrInvalidState)
	assert.ErrorIs(t, f.svc.Complete(ctx, f.athlete("x"), finished), apperror.ErrForbidden)
	require.NoError(t, f.svc.Complete(ctx, f.organizer, finished))

	c, _ := f.store.Competition(finished)
	assert.Equal(t, entity.StatusCompleted, c.Status)
}
