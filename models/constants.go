package models

import "time"

// KnotStatus is the lifecycle state of a match conversation.
type KnotStatus string

// ✅ Knot statuses
const (
	KnotStatusChatting           KnotStatus = "chatting"
	KnotStatusKnotRequested      KnotStatus = "knot_requested"
	KnotStatusKnotted            KnotStatus = "knotted"
	KnotStatusPermanentlyKnotted KnotStatus = "permanently_knotted"
	KnotStatusArchived           KnotStatus = "archived"
)

// IsTerminal reports whether no further transition can leave the status.
func (s KnotStatus) IsTerminal() bool {
	return s == KnotStatusPermanentlyKnotted || s == KnotStatusArchived
}

// DateStatus is the state of a scheduled date.
type DateStatus string

// ✅ Date statuses
const (
	DateStatusPending   DateStatus = "pending"
	DateStatusConfirmed DateStatus = "confirmed"
	DateStatusCompleted DateStatus = "completed"
	DateStatusNoShow    DateStatus = "no_show"
	DateStatusCancelled DateStatus = "cancelled"
)

// IsActive reports whether the date still blocks a new suggestion.
func (s DateStatus) IsActive() bool {
	return s == DateStatusPending || s == DateStatusConfirmed
}

// FeedbackOutcome is what a participant reports after a date.
type FeedbackOutcome string

// ✅ Feedback outcomes
const (
	OutcomePlanningAnother FeedbackOutcome = "planning_another"
	OutcomeTiePermanently  FeedbackOutcome = "tie_permanently"
	OutcomeNotInterested   FeedbackOutcome = "not_interested"
	OutcomeNoShowReported  FeedbackOutcome = "no_show_reported"
)

// Valid reports whether the outcome is one of the known values.
func (o FeedbackOutcome) Valid() bool {
	switch o {
	case OutcomePlanningAnother, OutcomeTiePermanently, OutcomeNotInterested, OutcomeNoShowReported:
		return true
	}
	return false
}

// ArchiveReason records why a match left the active lifecycle.
type ArchiveReason string

// ✅ Archive reasons
const (
	ArchiveReasonChatExpired ArchiveReason = "chat_expired"
	ArchiveReasonKnotRefused ArchiveReason = "knot_refused"
)

// Defaults applied to every newly registered user.
const (
	DefaultStarRating         = 5.0
	MaxStarRating             = 5.0
	MinStarRating             = 0.0
	DefaultFidelityPoints     = 100
	DefaultDailyTugs          = 10
	MinUserAge                = 18
	DefaultRadarMinStarRating = 4.5
)

// Fixed durations of the connection lifecycle.
const (
	ChatWindow       = 72 * time.Hour
	TugResetInterval = 24 * time.Hour
	RadarBoostWindow = time.Hour
)

// Economy and lifecycle tuning.
const (
	KnotRoundThreshold = 5
	MaxMessageLength   = 2000

	RadarScanCost = 50
	TugRefillCost = 20

	PositiveRatingRaterReward = 5
	PositiveRatingRatedReward = 10

	KnotRewardStars    = 0.1
	KnotRewardFP       = 50
	KnotRefusalPenalty = 0.2
	ChatExpiryStars    = 0.1
	ChatExpiryFP       = 20
	NoShowPenaltyStars = 0.3
	NoShowPenaltyFP    = 50
)
