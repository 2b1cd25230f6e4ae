package policy

import "github.com/acrivain/guardpost/pkg/core/model"

const (
	// Base score every candidate starts from.
	basePriority = 100

	// Seniority: each year of service lowers the score, capped.
	seniorityCredit    = 5
	seniorityCreditCap = 25

	// Recent service: each completed assignment in the last 90 days lowers
	// the score, capped.
	serviceCredit    = 2
	serviceCreditCap = 20

	// Each declined offer in the last 30 days raises the score.
	declinePenalty = 10

	// PriorityMin and PriorityMax bound the score domain. Lower scores are
	// served first.
	PriorityMin = 1
	PriorityMax = 200
)

// Score computes a candidate's queue priority from their history.
// Lower is more urgent.
func Score(h model.MemberHistory) int {
	score := basePriority
	score -= min(seniorityCredit*h.YearsActive, seniorityCreditCap)
	score -= min(serviceCredit*h.CompletedLast90Days, serviceCreditCap)
	score += declinePenalty * h.DeclinedLast30Days

	if score < PriorityMin {
		return PriorityMin
	}
	if score > PriorityMax {
		return PriorityMax
	}
	return score
}
