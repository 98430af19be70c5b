package service

import (
	"context"
	"log"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/competition/dto"
)

// NextStatus is the time-driven status for an approved competition.
// Window bounds are inclusive.
func NextStatus(d entity.CompetitionDate, t time.Time) entity.CompetitionStatus {
	switch {
	case !t.Before(d.RegistrationStart) && !t.After(d.RegistrationEnd):
		return entity.StatusRegistration
	case !t.Before(d.StartDate) && !t.After(d.EndDate):
		return entity.StatusRunning
	case t.After(d.EndDate):
		return entity.StatusFinished
	default:
		return entity.StatusWaiting
	}
}

// timeDriven reports whether refresh may move a competition out of status.
func timeDriven(status entity.CompetitionStatus) bool {
	return status != entity.StatusPending && status != entity.StatusCompleted
}

// RefreshStatuses recomputes every competition's status at t. It only ever
// writes the status column, and only if nobody changed it since it was read.
func (s *competitionService) RefreshStatuses(ctx context.Context, t time.Time) (*dto.StatusReport, error) {
	list, err := s.repo.ListForRefresh(ctx)
	if err != nil {
		return nil, err
	}

	report := &dto.StatusReport{
		ClientTime:   t,
		Competitions: make([]dto.StatusChange, 0, len(list)),
	}
	for _, c := range list {
		change := dto.StatusChange{
			ID:             c.ID,
			Name:           c.Name,
			OriginalStatus: c.Status,
			NewStatus:      c.Status,
		}

		if timeDriven(c.Status) && c.Dates != nil {
			next := NextStatus(*c.Dates, t)
			if next != c.Status {
				ok, err := s.repo.UpdateStatusIf(ctx, c.ID, c.Status, next)
				if err != nil {
					return nil, err
				}
				if ok {
					change.NewStatus = next
					change.StatusChanged = true
					report.CompetitionsUpdated++
				}
			}
		}
		report.Competitions = append(report.Competitions, change)
	}

	if report.CompetitionsUpdated > 0 {
		log.Printf("📅 Status refresh at %s moved %d competitions", t.Format(time.RFC3339), report.CompetitionsUpdated)
	}
	return report, nil
}
