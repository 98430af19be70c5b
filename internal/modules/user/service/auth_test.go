package service

import (
	"context"
	"strings"
	"testing"

	"codedepartament.ru/sbp/internal/entity"
	catalog "codedepartament.ru/sbp/internal/modules/catalog/service"
	"codedepartament.ru/sbp/internal/modules/user/dto"
	"codedepartament.ru/sbp/internal/modules/user/repository"
	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUsers struct {
	repository.UserRepository
	users      []*entity.User
	moderators []uuid.UUID
}

func (f *fakeUsers) Create(_ context.Context, u *entity.User, p *entity.Profile) error {
	u.ID = uuid.New()
	p.UserID = u.ID
	u.Profile = p
	f.users = append(f.users, u)
	return nil
}

func (f *fakeUsers) FindByLogin(_ context.Context, login string) (*entity.User, error) {
	for _, u := range f.users {
		if u.NickName == login || (u.Email != nil && *u.Email == strings.ToLower(login)) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) ExistsNickName(_ context.Context, nick string) (bool, error) {
	for _, u := range f.users {
		if u.NickName == nick {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) ExistsEmail(_ context.Context, email string) (bool, error) {
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) ListModeratorIDs(context.Context) ([]uuid.UUID, error) {
	return f.moderators, nil
}

type fakeCatalog struct {
	catalog.CatalogService
}

func (fakeCatalog) RequireRegion(_ context.Context, id uint) (*entity.Region, error) {
	if id != 1 {
		return nil, apperror.Wrap(apperror.ErrNotFound, "region %d not found", id)
	}
	return &entity.Region{ID: 1, Name: "Москва"}, nil
}

type recordingNotifier struct {
	to []uuid.UUID
}

func (r *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, _, _ string, _ *uint) {
	r.to = append(r.to, userID)
}

const testSecret = "secret"

func newAuth(users *fakeUsers, n *recordingNotifier) AuthService {
	return NewAuthService(users, fakeCatalog{}, n, testSecret, 0)
}

func register(nick string, role entity.Role) dto.RegisterRequest {
	email := strings.ToUpper(nick) + "@Example.org"
	return dto.RegisterRequest{
		NickName: nick,
		Email:    &email,
		Password: "password123",
		Surname:  "Иванов",
		Name:     "Иван",
		RegionID: 1,
		Role:     int(role),
		Birthday: "2008-05-01",
	}
}

func TestRegisterOrdinaryUserGetsToken(t *testing.T) {
	users := &fakeUsers{}
	auth := newAuth(users, &recordingNotifier{})

	resp, err := auth.Register(context.Background(), register("ivan", entity.RoleOrdinary))
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	assert.True(t, resp.User.Profile.IsApproved)
	assert.Equal(t, "ivan@example.org", *resp.User.Email)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), claims.Subject)
}

func TestRegisterPrivilegedWaitsForApproval(t *testing.T) {
	mod := uuid.New()
	users := &fakeUsers{moderators: []uuid.UUID{mod}}
	notifier := &recordingNotifier{}
	auth := newAuth(users, notifier)

	resp, err := auth.Register(context.Background(), register("rep", entity.RoleRegionalRep))
	require.NoError(t, err)
	assert.Empty(t, resp.AccessToken)
	assert.False(t, resp.User.Profile.IsApproved)
	assert.Equal(t, []uuid.UUID{mod}, notifier.to)

	_, err = auth.Login(context.Background(), dto.LoginRequest{Login: "rep", Password: "password123"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestRegisterRejectsDuplicatesAndUnknownRegion(t *testing.T) {
	users := &fakeUsers{}
	auth := newAuth(users, &recordingNotifier{})
	ctx := context.Background()

	_, err := auth.Register(ctx, register("ivan", entity.RoleOrdinary))
	require.NoError(t, err)

	_, err = auth.Register(ctx, register("ivan", entity.RoleOrdinary))
	assert.ErrorIs(t, err, apperror.ErrConflict)

	req := register("petr", entity.RoleOrdinary)
	req.RegionID = 7
	_, err = auth.Register(ctx, req)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	req = register("olga", entity.RoleOrdinary)
	req.Role = 5
	_, err = auth.Register(ctx, req)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestLoginByNickOrEmail(t *testing.T) {
	users := &fakeUsers{}
	auth := newAuth(users, &recordingNotifier{})
	ctx := context.Background()

	_, err := auth.Register(ctx, register("ivan", entity.RoleOrdinary))
	require.NoError(t, err)

	resp, err := auth.Login(ctx, dto.LoginRequest{Login: "ivan", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)

	_, err = auth.Login(ctx, dto.LoginRequest{Login: "IVAN@example.org", Password: "password123"})
	require.NoError(t, err)

	_, err = auth.Login(ctx, dto.LoginRequest{Login: "ivan", Password: "wrong-password"})
	assert.ErrorIs(t, err, errInvalidCredentials)

	_, err = auth.Login(ctx, dto.LoginRequest{Login: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, errInvalidCredentials)
}
