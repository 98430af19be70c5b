// Package eligibility decides whether a user or a team may enter a competition.
// It performs no I/O: callers load the counts and the duplicate flag first.
package eligibility

import (
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/pkg/apperror"
)

type Path int

const (
	PathIndividual Path = iota
	PathTeamCreate
	PathTeamJoin
)

type Reason string

const (
	ReasonNotOpen      Reason = "not-open"
	ReasonFull         Reason = "full"
	ReasonAge          Reason = "age"
	ReasonRegion       Reason = "region"
	ReasonKindMismatch Reason = "kind-mismatch"
	ReasonDuplicate    Reason = "duplicate"
)

var messages = map[Reason]string{
	ReasonNotOpen:      "competition is not open yet",
	ReasonFull:         "no free places left",
	ReasonAge:          "age does not fit the competition limits",
	ReasonRegion:       "your region is not allowed to take part",
	ReasonKindMismatch: "competition kind does not match this kind of entry",
	ReasonDuplicate:    "you already applied or joined a team in this competition",
}

type Applicant struct {
	RegionID uint
	Role     entity.Role
	Birthday *time.Time
}

type Counts struct {
	// Participants is the accepted individual participant count.
	Participants int
	Teams        int
	TeamMembers  int
	TeamCap      int
}

type Request struct {
	Path            Path
	Now             time.Time
	Applicant       Applicant
	Competition     *entity.Competition
	Counts          Counts
	HasDuplicate    bool
	FullRegionCount int
}

type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision { return Decision{Allowed: true} }

func deny(r Reason) Decision { return Decision{Reason: r} }

// Err returns nil for an allowed decision.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &apperror.EligibilityError{Reason: string(d.Reason), Message: messages[d.Reason]}
}

// Check applies the rules in order and stops at the first failure.
func Check(req Request) Decision {
	c := req.Competition

	if c == nil || c.Status == entity.StatusPending {
		return deny(ReasonNotOpen)
	}

	if !hasCapacity(req) {
		return deny(ReasonFull)
	}

	if req.Path != PathTeamCreate {
		if req.Applicant.Birthday == nil {
			return deny(ReasonAge)
		}
		age := Age(*req.Applicant.Birthday, req.Now)
		if age < c.MinAge || age > c.MaxAge {
			return deny(ReasonAge)
		}
	}

	if !regionAllowed(req) {
		return deny(ReasonRegion)
	}

	want := entity.KindTeam
	if req.Path == PathIndividual {
		want = entity.KindIndividual
	}
	if c.Kind != want {
		return deny(ReasonKindMismatch)
	}

	if req.HasDuplicate {
		return deny(ReasonDuplicate)
	}

	return allow()
}

func hasCapacity(req Request) bool {
	switch req.Path {
	case PathIndividual:
		return req.Counts.Participants < req.Competition.MaxParticipants
	case PathTeamCreate:
		return req.Counts.Teams < req.Competition.MaxParticipants
	default:
		return req.Counts.TeamMembers < req.Counts.TeamCap
	}
}

func regionAllowed(req Request) bool {
	c := req.Competition
	full := req.FullRegionCount > 0 && len(c.Permissions) >= req.FullRegionCount

	if req.Path == PathTeamCreate {
		// an empty list is reserved for moderator-created teams
		if len(c.Permissions) == 0 {
			return req.Applicant.Role == entity.RoleModerator
		}
		return full || c.AllowsRegion(req.Applicant.RegionID)
	}

	if len(c.Permissions) == 0 || full {
		return true
	}
	return c.AllowsRegion(req.Applicant.RegionID)
}

// Age is the number of full years between birth and now.
func Age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}
