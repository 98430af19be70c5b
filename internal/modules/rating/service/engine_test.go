package service

import (
	"testing"

	"codedepartament.ru/sbp/internal/modules/rating/dto"
	"github.com/stretchr/testify/assert"
)

func TestCalculateRating(t *testing.T) {
	tests := []struct {
		name    string
		history []dto.Participation
		want    float64
	}{
		{"no participations", nil, 0},
		{"only unplaced rows", []dto.Participation{{Place: 0, FieldSize: 3}}, 0},
		{"sole participant wins", []dto.Participation{{Place: 1, FieldSize: 1}}, 50},
		{"winner of three", []dto.Participation{{Place: 1, FieldSize: 3}}, 100},
		{"win and second place", []dto.Participation{{Place: 1, FieldSize: 3}, {Place: 2, FieldSize: 3}}, 149.07},
		// unplaced rows still dampen the total
		{"win plus unplaced", []dto.Participation{{Place: 1, FieldSize: 3}, {Place: 0, FieldSize: 3}}, 89.44},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateRating(tt.history), 1e-9)
		})
	}
}

func TestRatingIsMonotoneInPlace(t *testing.T) {
	const field = 10
	prev := CalculateRating([]dto.Participation{{Place: 1, FieldSize: field}})
	for place := 2; place <= field; place++ {
		cur := CalculateRating([]dto.Participation{{Place: place, FieldSize: field}})
		assert.Less(t, cur, prev, "place %d", place)
		prev = cur
	}
}

func TestRatingGrowsWithFieldSize(t *testing.T) {
	small := CalculateRating([]dto.Participation{{Place: 1, FieldSize: 2}})
	large := CalculateRating([]dto.Participation{{Place: 1, FieldSize: 20}})
	assert.Greater(t, large, small)
}

func TestRatingIsNeverNegative(t *testing.T) {
	histories := [][]dto.Participation{
		{{Place: 5, FieldSize: 3}},
		{{Place: -1, FieldSize: 4}},
		{{Place: 1, FieldSize: 0}},
		{{Place: 3, FieldSize: 3}, {Place: 0, FieldSize: 0}},
	}
	for _, h := range histories {
		assert.GreaterOrEqual(t, CalculateRating(h), 0.0)
	}
}

func TestPlacePoints(t *testing.T) {
	assert.InDelta(t, 200.0, PlacePoints(dto.Participation{Place: 1, FieldSize: 3}), 1e-9)
	assert.Zero(t, PlacePoints(dto.Participation{Place: 0, FieldSize: 3}))
}

func TestPlaceBeyondFieldScoresLikeUnplaced(t *testing.T) {
	assert.Zero(t, PlacePoints(dto.Participation{Place: 5, FieldSize: 3}))
	assert.Zero(t, PlacePoints(dto.Participation{Place: 1, FieldSize: 0}))

	beyond := CalculateRating([]dto.Participation{{Place: 1, FieldSize: 3}, {Place: 5, FieldSize: 3}})
	unplaced := CalculateRating([]dto.Participation{{Place: 1, FieldSize: 3}, {Place: 0, FieldSize: 3}})
	assert.InDelta(t, unplaced, beyond, 1e-9)
}
