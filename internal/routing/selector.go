package routing

import (
	"errors"
	"sort"
	"time"

	"github.com/nassert93-sketch/PharmaConnect/internal/models"
)

// ErrNoCandidate means no online pharmacy remains eligible for an order.
// At creation time the order is not written; at reassignment time the
// order is cancelled.
var ErrNoCandidate = errors.New("no eligible pharmacy available")

// EligibleRanked returns the online pharmacies not present in refused,
// ranked ascending by distance. The sort is stable so that directory order
// breaks ties deterministically.
func EligibleRanked(pharmacies []models.Pharmacy, refused []string) []models.Pharmacy {
	refusedSet := make(map[string]struct{}, len(refused))
	for _, id := range refused {
		refusedSet[id] = struct{}{}
	}

	eligible := make([]models.Pharmacy, 0, len(pharmacies))
	for _, p := range pharmacies {
		if !p.Online {
			continue
		}
		if _, ok := refusedSet[p.PharmacyID]; ok {
			continue
		}
		eligible = append(eligible, p)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Distance < eligible[j].Distance
	})
	return eligible
}

// SelectInitialTargets computes the target set and response deadline for a
// brand-new order. Round-robin targets the single nearest online pharmacy;
// broadcast targets the min(fanout, eligible) nearest ones.
func SelectInitialTargets(pharmacies []models.Pharmacy, mode models.RoutingMode, fanout int, now time.Time, window time.Duration) ([]string, time.Time, error) {
	eligible := EligibleRanked(pharmacies, nil)
	if len(eligible) == 0 {
		return nil, time.Time{}, ErrNoCandidate
	}

	count := 1
	if mode == models.ModeBroadcast {
		count = fanout
		if count < 1 {
			count = 1
		}
		if count > len(eligible) {
			count = len(eligible)
		}
	}

	targets := make([]string, 0, count)
	for _, p := range eligible[:count] {
		targets = append(targets, p.PharmacyID)
	}
	return targets, now.Add(window), nil
}

// NextTarget picks the reassignment candidate: the nearest online pharmacy
// that has not refused the order.
func NextTarget(pharmacies []models.Pharmacy, refused []string) (models.Pharmacy, bool) {
	eligible := EligibleRanked(pharmacies, refused)
	if len(eligible) == 0 {
		return models.Pharmacy{}, false
	}
	return eligible[0], true
}
