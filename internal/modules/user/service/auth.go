package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	catalog "codedepartament.ru/sbp/internal/modules/catalog/service"
	notifService "codedepartament.ru/sbp/internal/modules/notification/service"
	"codedepartament.ru/sbp/internal/modules/user/dto"
	"codedepartament.ru/sbp/internal/modules/user/repository"
	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid credentials", nil)

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)
}

type authService struct {
	repo     repository.UserRepository
	catalog  catalog.CatalogService
	notifier notifService.Notifier
	secret   string
	tokenTTL time.Duration
}

func NewAuthService(repo repository.UserRepository, catalog catalog.CatalogService, notifier notifService.Notifier, secret string, tokenTTL time.Duration) AuthService {
	if secret == "" {
		secret = "change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	role := entity.Role(req.Role)
	if !role.Valid() {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "unknown role %d", req.Role)
	}

	if _, err := s.catalog.RequireRegion(ctx, req.RegionID); err != nil {
		return nil, err
	}

	nick := strings.TrimSpace(req.NickName)
	exists, err := s.repo.ExistsNickName(ctx, nick)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.Wrap(apperror.ErrConflict, "nick name %q is already taken", nick)
	}

	var email *string
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		e := strings.ToLower(strings.TrimSpace(*req.Email))
		exists, err := s.repo.ExistsEmail(ctx, e)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperror.Wrap(apperror.ErrConflict, "email is already registered")
		}
		email = &e
	}

	var birthday *time.Time
	if req.Birthday != "" {
		b, err := time.Parse(dto.DateLayout, req.Birthday)
		if err != nil {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "birthday must be YYYY-MM-DD")
		}
		birthday = &b
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		NickName:     nick,
		Email:        email,
		PasswordHash: string(hash),
	}
	profile := &entity.Profile{
		Surname:    strings.TrimSpace(req.Surname),
		Name:       strings.TrimSpace(req.Name),
		Patronymic: req.Patronymic,
		RegionID:   req.RegionID,
		Role:       role,
		Birthday:   birthday,
		TgUsername: normalizeTg(req.TgUsername),
		IsApproved: !role.NeedsApproval(),
	}

	if err := s.repo.Create(ctx, user, profile); err != nil {
		return nil, err
	}

	log.Printf("✅ Registered user %s (role %s)", user.NickName, role)

	if !profile.IsApproved {
		s.notifyModerators(ctx, user)
		return &dto.AuthResponse{
			User:    user,
			Message: "registration received, waiting for moderator approval",
		}, nil
	}

	return s.buildAuthResponse(user)
}

func (s *authService) notifyModerators(ctx context.Context, user *entity.User) {
	if s.notifier == nil {
		return
	}
	ids, err := s.repo.ListModeratorIDs(ctx)
	if err != nil {
		log.Printf("⚠️ Failed to load moderators: %v", err)
		return
	}
	msg := fmt.Sprintf("New %s account %s is waiting for approval", user.Profile.Role, user.NickName)
	for _, id := range ids {
		s.notifier.Notify(ctx, id, entity.NotificationModeration, msg, nil)
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByLogin(ctx, strings.TrimSpace(req.Login))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	if user.Profile == nil {
		return nil, apperror.Wrap(apperror.ErrForbidden, "profile is missing")
	}
	if !user.Profile.IsApproved {
		return nil, apperror.Wrap(apperror.ErrForbidden, "account is waiting for moderator approval")
	}

	return s.buildAuthResponse(user)
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
	}, nil
}

func (s *authService) generateToken(user *entity.User) (string, int64, error) {
	expiresAt := time.Now().Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}

func normalizeTg(username *string) *string {
	if username == nil {
		return nil
	}
	n := entity.NormalizeTelegramUsername(*username)
	if n == "" {
		return nil
	}
	return &n
}
