package eligibility

import (
	"errors"
	"testing"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var now = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func birthday(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func competition(kind entity.CompetitionKind, permissions ...uint) *entity.Competition {
	return &entity.Competition{
		Kind:                  kind,
		Status:                entity.StatusRegistration,
		MaxParticipants:       10,
		MaxParticipantsInTeam: 3,
		MinAge:                10,
		MaxAge:                18,
		Permissions:           datatypes.JSONSlice[uint](permissions),
	}
}

func individual(c *entity.Competition) Request {
	return Request{
		Path:            PathIndividual,
		Now:             now,
		Applicant:       Applicant{RegionID: 7, Birthday: birthday(2010, time.January, 1)},
		Competition:     c,
		FullRegionCount: 89,
	}
}

func TestAge(t *testing.T) {
	tests := []struct {
		name  string
		birth time.Time
		want  int
	}{
		{"birthday already passed", *birthday(2000, time.January, 10), 25},
		{"birthday today", *birthday(2000, time.March, 15), 25},
		{"birthday tomorrow", *birthday(2000, time.March, 16), 24},
		{"later month", *birthday(2000, time.December, 1), 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Age(tt.birth, now))
		})
	}
}

func TestAgeBoundaryIsInclusive(t *testing.T) {
	c := competition(entity.KindIndividual)

	nine := individual(c)
	nine.Applicant.Birthday = birthday(2015, time.March, 16)
	d := Check(nine)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonAge, d.Reason)

	ten := individual(c)
	ten.Applicant.Birthday = birthday(2015, time.March, 15)
	assert.True(t, Check(ten).Allowed)
}

func TestUnknownBirthdayIsDeniedAsAge(t *testing.T) {
	req := individual(competition(entity.KindIndividual))
	req.Applicant.Birthday = nil
	assert.Equal(t, ReasonAge, Check(req).Reason)
}

func TestRuleOrder(t *testing.T) {
	pending := competition(entity.KindTeam, 1)
	pending.Status = entity.StatusPending

	// every rule fails here, the first one wins
	req := individual(pending)
	req.Counts.Participants = 10
	req.Applicant.Birthday = nil
	req.HasDuplicate = true
	assert.Equal(t, ReasonNotOpen, Check(req).Reason)

	pending.Status = entity.StatusRegistration
	assert.Equal(t, ReasonFull, Check(req).Reason)

	req.Counts.Participants = 0
	assert.Equal(t, ReasonAge, Check(req).Reason)

	req.Applicant.Birthday = birthday(2010, time.January, 1)
	assert.Equal(t, ReasonRegion, Check(req).Reason)

	pending.Permissions = nil
	assert.Equal(t, ReasonKindMismatch, Check(req).Reason)

	pending.Kind = entity.KindIndividual
	assert.Equal(t, ReasonDuplicate, Check(req).Reason)

	req.HasDuplicate = false
	assert.True(t, Check(req).Allowed)
}

func TestRegionRules(t *testing.T) {
	full := make([]uint, 89)
	for i := range full {
		full[i] = uint(i + 100)
	}

	tests := []struct {
		name        string
		permissions []uint
		allowed     bool
	}{
		{"empty list is unrestricted", nil, true},
		{"full-length list is unrestricted", full, true},
		{"listed region", []uint{3, 7}, true},
		{"unlisted region", []uint{3, 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Check(individual(competition(entity.KindIndividual, tt.permissions...)))
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, ReasonRegion, d.Reason)
			}
		})
	}
}

func TestTeamCreationWithEmptyPermissions(t *testing.T) {
	c := competition(entity.KindTeam)
	req := Request{
		Path:            PathTeamCreate,
		Now:             now,
		Applicant:       Applicant{RegionID: 7, Role: entity.RoleOrdinary},
		Competition:     c,
		FullRegionCount: 89,
	}

	d := Check(req)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRegion, d.Reason)

	req.Applicant.Role = entity.RoleModerator
	assert.True(t, Check(req).Allowed)
}

func TestTeamCreationSkipsAgeAndChecksTeamCount(t *testing.T) {
	c := competition(entity.KindTeam, 7)
	req := Request{
		Path:            PathTeamCreate,
		Now:             now,
		Applicant:       Applicant{RegionID: 7},
		Competition:     c,
		FullRegionCount: 89,
	}
	assert.True(t, Check(req).Allowed)

	req.Counts.Teams = c.MaxParticipants
	assert.Equal(t, ReasonFull, Check(req).Reason)
}

func TestModeratorTeamCreationHonoursAllowList(t *testing.T) {
	req := Request{
		Path:            PathTeamCreate,
		Now:             now,
		Applicant:       Applicant{RegionID: 50, Role: entity.RoleModerator},
		Competition:     competition(entity.KindTeam, 1, 2),
		FullRegionCount: 89,
	}
	d := Check(req)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRegion, d.Reason)

	req.Applicant.RegionID = 2
	assert.True(t, Check(req).Allowed)

	req.Applicant.Role = entity.RoleRegionalRep
	req.Applicant.RegionID = 50
	assert.Equal(t, ReasonRegion, Check(req).Reason)
}

func TestTeamJoinCapacity(t *testing.T) {
	req := Request{
		Path:            PathTeamJoin,
		Now:             now,
		Applicant:       Applicant{RegionID: 7, Birthday: birthday(2010, time.January, 1)},
		Competition:     competition(entity.KindTeam),
		Counts:          Counts{TeamMembers: 2, TeamCap: 3},
		FullRegionCount: 89,
	}
	assert.True(t, Check(req).Allowed)

	req.Counts.TeamMembers = 3
	assert.Equal(t, ReasonFull, Check(req).Reason)
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())

	err := deny(ReasonRegion).Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotEligible))

	var el *apperror.EligibilityError
	require.ErrorAs(t, err, &el)
	assert.Equal(t, "region", el.Reason)
}
