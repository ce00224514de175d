package models

import "time"

// Match is created once per mutual tug pair and carries the knot lifecycle of the conversation.
// User1ID is always the lexicographically smaller id of the pair.
type Match struct {
	ID                   string         `dynamodbav:"id" json:"id" gorm:"primaryKey"`                                                    // ✅ Unique matchId
	User1ID              string         `dynamodbav:"user1Id" json:"user1Id" gorm:"column:user1_id;uniqueIndex:idx_match_pair;not null"` // Canonical first slot
	User2ID              string         `dynamodbav:"user2Id" json:"user2Id" gorm:"column:user2_id;uniqueIndex:idx_match_pair;not null"` // Canonical second slot
	MatchedAt            time.Time      `dynamodbav:"matchedAt" json:"matchedAt"`                                                        // Timestamp of creation
	IsTied               bool           `dynamodbav:"isTied" json:"isTied"`                                                              // Set once the knot is tied
	User1Rated           bool           `dynamodbav:"user1Rated" json:"user1Rated"`                                                      // user1 rated user2
	User2Rated           bool           `dynamodbav:"user2Rated" json:"user2Rated"`                                                      // user2 rated user1
	KnotStatus           KnotStatus     `dynamodbav:"knotStatus" json:"knotStatus" gorm:"index;not null"`                                // chatting, knot_requested, knotted, permanently_knotted, archived
	User1MessageCount    int            `dynamodbav:"user1MessageCount" json:"user1MessageCount"`                                        // Raw messages sent by user1
	User2MessageCount    int            `dynamodbav:"user2MessageCount" json:"user2MessageCount"`                                        // Raw messages sent by user2
	User1Rounds          int            `dynamodbav:"user1Rounds" json:"user1Rounds"`                                                    // Turns taken by user1
	User2Rounds          int            `dynamodbav:"user2Rounds" json:"user2Rounds"`                                                    // Turns taken by user2
	LastSenderID         string         `dynamodbav:"lastSenderId,omitempty" json:"lastSenderId,omitempty"`                              // Sender of the latest message
	KnotRequestedBy      string         `dynamodbav:"knotRequestedBy,omitempty" json:"knotRequestedBy,omitempty"`                        // Pending knot requester
	KnotRequestedAt      *time.Time     `dynamodbav:"knotRequestedAt,omitempty" json:"knotRequestedAt,omitempty"`                        // When the knot was requested
	KnottedAt            *time.Time     `dynamodbav:"knottedAt,omitempty" json:"knottedAt,omitempty"`                                    // When the knot was tied
	PermanentlyKnottedAt *time.Time     `dynamodbav:"permanentlyKnottedAt,omitempty" json:"permanentlyKnottedAt,omitempty"`              // When the knot became permanent
	ArchivedAt           *time.Time     `dynamodbav:"archivedAt,omitempty" json:"archivedAt,omitempty"`                                  // When the match was archived
	ArchiveReason        ArchiveReason  `dynamodbav:"archiveReason,omitempty" json:"archiveReason,omitempty"`                            // chat_expired, knot_refused
	ChatExpiresAt        time.Time      `dynamodbav:"chatExpiresAt" json:"chatExpiresAt" gorm:"index"`                                   // Only enforced while chatting or knot_requested
	ScheduledDate        *ScheduledDate `dynamodbav:"scheduledDate,omitempty" json:"scheduledDate,omitempty" gorm:"serializer:json"`     // Current or last date
	Version              int64          `dynamodbav:"version" json:"-" gorm:"not null"`                                                  // Optimistic concurrency token
}

// MatchesTable is the table name for matches
const MatchesTable = "matches"

// TableName binds the gorm model to MatchesTable.
func (Match) TableName() string { return MatchesTable }

// CanonicalPair orders two user ids into (user1, user2) slots.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// NewMatch builds a freshly matched conversation for the pair.
func NewMatch(id, a, b string, now time.Time) *Match {
	u1, u2 := CanonicalPair(a, b)
	return &Match{
		ID:            id,
		User1ID:       u1,
		User2ID:       u2,
		MatchedAt:     now,
		KnotStatus:    KnotStatusChatting,
		ChatExpiresAt: now.Add(ChatWindow),
	}
}

// HasUser reports whether userID is one of the two participants.
func (m *Match) HasUser(userID string) bool {
	return userID != "" && (m.User1ID == userID || m.User2ID == userID)
}

// IsUser1 reports whether userID occupies the first slot.
func (m *Match) IsUser1(userID string) bool {
	return m.User1ID == userID
}

// Partner returns the other participant, or "" when userID is not in the match.
func (m *Match) Partner(userID string) string {
	switch userID {
	case m.User1ID:
		return m.User2ID
	case m.User2ID:
		return m.User1ID
	}
	return ""
}

// RecordMessage bumps the sender's raw count and credits a new round when the turn changes.
func (m *Match) RecordMessage(senderID string) {
	newTurn := senderID != m.LastSenderID
	if m.IsUser1(senderID) {
		m.User1MessageCount++
		if newTurn {
			m.User1Rounds++
		}
	} else {
		m.User2MessageCount++
		if newTurn {
			m.User2Rounds++
		}
	}
	m.LastSenderID = senderID
}

// MessageTotal is the number of messages in the thread.
func (m *Match) MessageTotal() int {
	return m.User1MessageCount + m.User2MessageCount
}

// CanRequestKnot reports whether the chat has reached the round threshold on both sides.
func (m *Match) CanRequestKnot() bool {
	return m.KnotStatus == KnotStatusChatting &&
		m.User1Rounds >= KnotRoundThreshold &&
		m.User2Rounds >= KnotRoundThreshold
}

// ChatExpired reports whether the chat window elapsed while the knot was not yet tied.
func (m *Match) ChatExpired(now time.Time) bool {
	if m.KnotStatus != KnotStatusChatting && m.KnotStatus != KnotStatusKnotRequested {
		return false
	}
	return !now.Before(m.ChatExpiresAt)
}

// MarkRated flags the rater's slot as having rated the partner.
func (m *Match) MarkRated(raterID string) {
	if m.IsUser1(raterID) {
		m.User1Rated = true
	} else if m.User2ID == raterID {
		m.User2Rated = true
	}
}

// DateSpot is a snapshot of the venue chosen for a date.
type DateSpot struct {
	ID         string  `dynamodbav:"id" json:"id"`
	Name       string  `dynamodbav:"name" json:"name"`
	Address    string  `dynamodbav:"address,omitempty" json:"address,omitempty"`
	Category   string  `dynamodbav:"category,omitempty" json:"category,omitempty"`
	PriceLevel int     `dynamodbav:"priceLevel,omitempty" json:"priceLevel,omitempty"`
	Rating     float64 `dynamodbav:"rating,omitempty" json:"rating,omitempty"`
}

// DateFeedback is one participant's report after a date.
type DateFeedback struct {
	Attended        bool            `dynamodbav:"attended" json:"attended"`
	PartnerAttended bool            `dynamodbav:"partnerAttended" json:"partnerAttended"`
	Outcome         FeedbackOutcome `dynamodbav:"outcome" json:"outcome"`
	Comments        string          `dynamodbav:"comments,omitempty" json:"comments,omitempty"`
	SubmittedAt     time.Time       `dynamodbav:"submittedAt" json:"submittedAt"`
}

// ScheduledDate is the single date attached to a match.
type ScheduledDate struct {
	ID             string        `dynamodbav:"id" json:"id"`
	Spot           DateSpot      `dynamodbav:"spot" json:"spot"`
	ScheduledFor   time.Time     `dynamodbav:"scheduledFor" json:"scheduledFor"`
	ProposedBy     string        `dynamodbav:"proposedBy" json:"proposedBy"`
	User1Confirmed bool          `dynamodbav:"user1Confirmed" json:"user1Confirmed"`
	User2Confirmed bool          `dynamodbav:"user2Confirmed" json:"user2Confirmed"`
	Status         DateStatus    `dynamodbav:"status" json:"status"`
	User1Attended  *bool         `dynamodbav:"user1Attended,omitempty" json:"user1Attended"`
	User2Attended  *bool         `dynamodbav:"user2Attended,omitempty" json:"user2Attended"`
	User1Feedback  *DateFeedback `dynamodbav:"user1Feedback,omitempty" json:"user1Feedback,omitempty"`
	User2Feedback  *DateFeedback `dynamodbav:"user2Feedback,omitempty" json:"user2Feedback,omitempty"`
	User1Penalized bool          `dynamodbav:"user1Penalized" json:"user1Penalized"`
	User2Penalized bool          `dynamodbav:"user2Penalized" json:"user2Penalized"`
	CreatedAt      time.Time     `dynamodbav:"createdAt" json:"createdAt"`
}

// FeedbackFor returns the feedback already submitted by the participant in the given slot.
func (d *ScheduledDate) FeedbackFor(user1 bool) *DateFeedback {
	if user1 {
		return d.User1Feedback
	}
	return d.User2Feedback
}

// BothAttended reports whether both sides are known to have shown up.
func (d *ScheduledDate) BothAttended() bool {
	return d.User1Attended != nil && *d.User1Attended && d.User2Attended != nil && *d.User2Attended
}

// Clone returns a deep copy so a staged match never aliases committed state.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.KnotRequestedAt = cloneTime(m.KnotRequestedAt)
	c.KnottedAt = cloneTime(m.KnottedAt)
	c.PermanentlyKnottedAt = cloneTime(m.PermanentlyKnottedAt)
	c.ArchivedAt = cloneTime(m.ArchivedAt)
	if m.ScheduledDate != nil {
		d := *m.ScheduledDate
		d.User1Attended = cloneBool(d.User1Attended)
		d.User2Attended = cloneBool(d.User2Attended)
		if d.User1Feedback != nil {
			f := *d.User1Feedback
			d.User1Feedback = &f
		}
		if d.User2Feedback != nil {
			f := *d.User2Feedback
			d.User2Feedback = &f
		}
		c.ScheduledDate = &d
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
