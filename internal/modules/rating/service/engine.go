package service

import (
	"math"

	"codedepartament.ru/sbp/internal/modules/rating/dto"
)

// smoothing keeps ratings of users with few participations from jumping around.
const smoothing = 3

// CalculateRating scores a participation history.
// Unplaced rows (place 0) count towards the total but add no points.
func CalculateRating(history []dto.Participation) float64 {
	if len(history) == 0 {
		return 0
	}

	var total float64
	for _, p := range history {
		total += contribution(p)
	}

	rating := total / math.Sqrt(float64(len(history))+smoothing) * 100
	return round2(rating)
}

// PlacePoints is what one placement adds to per-discipline stats.
func PlacePoints(p dto.Participation) float64 {
	return round2(contribution(p) * 100)
}

// contribution scores one placement. A place outside 1..FieldSize, or an empty
// field, scores 0: such a row is unranked, not last.
func contribution(p dto.Participation) float64 {
	if p.FieldSize <= 0 || p.Place <= 0 || p.Place > p.FieldSize {
		return 0
	}
	n := float64(p.FieldSize)
	placeScore := (n - float64(p.Place) + 1) / n
	sizeFactor := math.Log2(n + 1)
	return placeScore * sizeFactor
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
