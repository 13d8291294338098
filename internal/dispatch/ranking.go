package dispatch

import (
	"math"
	"sort"
	"time"

	"github.com/hatidph/hatid-backend/pkg/config"
	"github.com/hatidph/hatid-backend/pkg/db/models"
)

const earthRadiusMeters = 6371000

// Candidate is a rider scored against one pickup point.
type Candidate struct {
	Rider          models.Rider
	DistanceMeters float64
	Score          float64
}

// HaversineMeters returns the great-circle distance between two coordinates.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RankCandidates filters riders to the dispatch radius and orders them best
// first. The score rewards rating and penalizes distance and current load;
// ties go to the rider idle the longest.
func RankCandidates(riders []models.Rider, pickupLat, pickupLng float64, cfg config.DispatchConfig) []Candidate {
	candidates := make([]Candidate, 0, len(riders))
	for _, rider := range riders {
		distance := HaversineMeters(pickupLat, pickupLng, rider.Lat, rider.Lng)
		if cfg.RadiusMeters > 0 && distance > cfg.RadiusMeters {
			continue
		}
		score := cfg.RatingWeight*rider.Rating -
			cfg.DistanceWeight*(distance/1000) -
			cfg.LoadWeight*float64(rider.ActiveOrderCount)
		candidates = append(candidates, Candidate{
			Rider:          rider,
			DistanceMeters: distance,
			Score:          score,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return lastSeen(candidates[i].Rider).Before(lastSeen(candidates[j].Rider))
	})
	return candidates
}

func lastSeen(rider models.Rider) time.Time {
	if rider.LastSeenAt == nil {
		return time.Time{}
	}
	return *rider.LastSeenAt
}
