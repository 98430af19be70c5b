package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/eligibility"
	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *competitionService) SubmitApplication(ctx context.Context, userID uuid.UUID, competitionID uint, now time.Time) (*entity.UserApplication, error) {
	applicant, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var app *entity.UserApplication
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.LockByID(ctx, competitionID)
		if err != nil {
			return notFound(err, "competition")
		}

		participants, err := s.repo.CountParticipants(ctx, competitionID)
		if err != nil {
			return err
		}
		live, err := s.apps.HasLive(ctx, userID, competitionID)
		if err != nil {
			return err
		}
		joined, err := s.repo.IsParticipant(ctx, competitionID, userID)
		if err != nil {
			return err
		}

		decision := eligibility.Check(eligibility.Request{
			Path:            eligibility.PathIndividual,
			Now:             now,
			Applicant:       eligibility.Applicant{RegionID: applicant.RegionID, Role: applicant.Role, Birthday: applicant.Birthday},
			Competition:     c,
			Counts:          eligibility.Counts{Participants: int(participants)},
			HasDuplicate:    live || joined,
			FullRegionCount: s.fullRegionCount,
		})
		if err := decision.Err(); err != nil {
			return err
		}

		app = &entity.UserApplication{
			UserID:        userID,
			CompetitionID: competitionID,
			Status:        entity.DecisionPending,
		}
		if err := s.apps.Create(ctx, app); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Wrap(apperror.ErrConflict, "you already applied to this competition")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Application %d submitted to competition %d", app.ID, competitionID)
	if organizers, err := s.repo.OrganizerIDs(ctx, competitionID); err == nil {
		msg := fmt.Sprintf("New application from %s", applicant.FullName())
		for _, id := range organizers {
			s.notify(ctx, id, entity.NotificationUserApplication, msg, app.ID)
		}
	}
	return app, nil
}

// DecideApplication accepts or rejects a pending application exactly once.
// Acceptance re-checks capacity with the competition row locked.
func (s *competitionService) DecideApplication(ctx context.Context, organizerID uuid.UUID, applicationID uint, accept bool, reason *string) (*entity.UserApplication, error) {
	if !accept && (reason == nil || strings.TrimSpace(*reason) == "") {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "a reason is required to reject an application")
	}

	var app *entity.UserApplication
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		a, err := s.apps.LockByID(ctx, applicationID)
		if err != nil {
			return notFound(err, "application")
		}
		if err := s.requireOrganizer(ctx, a.CompetitionID, organizerID); err != nil {
			return err
		}
		if a.Status.Terminal() {
			return apperror.Wrap(apperror.ErrInvalidState, "application was already %s", a.Status)
		}

		status := entity.DecisionRejected
		if accept {
			c, err := s.repo.LockByID(ctx, a.CompetitionID)
			if err != nil {
				return notFound(err, "competition")
			}
			count, err := s.repo.CountParticipants(ctx, c.ID)
			if err != nil {
				return err
			}
			if int(count) >= c.MaxParticipants {
				return apperror.Wrap(apperror.ErrConflict, "competition is full")
			}
			if _, err := s.repo.AddParticipants(ctx, c.ID, []uuid.UUID{a.UserID}); err != nil {
				return err
			}
			status = entity.DecisionAccepted
			reason = nil
		}

		ok, err := s.apps.Resolve(ctx, a.ID, status, reason)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Wrap(apperror.ErrInvalidState, "application was already decided")
		}
		a.Status = status
		a.Reason = reason
		app = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := "Your application was rejected: " + derefReason(reason)
	if accept {
		log.Printf("✅ Application %d accepted", app.ID)
		s.recompute(ctx, app.CompetitionID)
		msg = "Your application was accepted"
	}
	s.notify(ctx, app.UserID, entity.NotificationUserApplication, msg, app.CompetitionID)
	return app, nil
}

func derefReason(r *string) string {
	if r == nil {
		return ""
	}
	return *r
}

func (s *competitionService) ListMyApplications(ctx context.Context, userID uuid.UUID) ([]entity.UserApplication, error) {
	return s.apps.ListByUser(ctx, userID)
}

func (s *competitionService) ListOrganizerApplications(ctx context.Context, organizerID uuid.UUID) ([]entity.UserApplication, error) {
	apps, err := s.apps.ListPendingForOrganizer(ctx, organizerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return apps, nil
}
