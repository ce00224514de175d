package models

import "time"

// User holds identity, profile and the reputation/economy ledgers of a member.
type User struct {
	ID                   string    `dynamodbav:"id" json:"id" gorm:"primaryKey"`                               // ✅ Partition Key
	Username             string    `dynamodbav:"username" json:"username" gorm:"uniqueIndex;not null"`         // Unique login handle
	PasswordHash         string    `dynamodbav:"passwordHash" json:"-" gorm:"not null"`                        // bcrypt hash, never serialized
	Name                 string    `dynamodbav:"name" json:"name" gorm:"not null"`                             // Display name
	Age                  int       `dynamodbav:"age" json:"age"`                                               // Age in years
	Bio                  string    `dynamodbav:"bio,omitempty" json:"bio,omitempty"`                           // Short biography
	Avatar               string    `dynamodbav:"avatar,omitempty" json:"avatar,omitempty"`                     // Avatar URL
	Location             string    `dynamodbav:"location,omitempty" json:"location,omitempty"`                 // Free-form location label
	Distance             int       `dynamodbav:"distance" json:"distance"`                                     // Distance shown on cards
	IsVerified           bool      `dynamodbav:"isVerified" json:"isVerified"`                                 // Verified badge
	StarRating           float64   `dynamodbav:"starRating" json:"starRating" gorm:"not null"`                 // Reputation in [0,5]
	FidelityPoints       int       `dynamodbav:"fidelityPoints" json:"fidelityPoints" gorm:"not null"`         // FP balance, never negative
	DailyTugsRemaining   int       `dynamodbav:"dailyTugsRemaining" json:"dailyTugsRemaining" gorm:"not null"` // Tugs left in the current window
	LastTugReset         time.Time `dynamodbav:"lastTugReset" json:"lastTugReset"`                             // Start of the current tug window
	TotalRatingsReceived int       `dynamodbav:"totalRatingsReceived" json:"totalRatingsReceived"`             // Ratings received
	PositiveRatings      int       `dynamodbav:"positiveRatings" json:"positiveRatings"`                       // Positive ratings received
	CreatedAt            time.Time `dynamodbav:"createdAt" json:"createdAt"`                                   // Registration time
	Version              int64     `dynamodbav:"version" json:"-" gorm:"not null"`                             // Optimistic concurrency token
}

// UsersTable is the table name for users
const UsersTable = "users"

// TableName binds the gorm model to UsersTable.
func (User) TableName() string { return UsersTable }

// RecomputeStarRating derives the star rating from the rating counters.
func (u *User) RecomputeStarRating() {
	if u.TotalRatingsReceived <= 0 {
		u.StarRating = DefaultStarRating
		return
	}
	u.StarRating = float64(u.PositiveRatings) / float64(u.TotalRatingsReceived) * MaxStarRating
}

// AdjustStarRating adds delta and clamps the result to [0,5].
func (u *User) AdjustStarRating(delta float64) {
	r := u.StarRating + delta
	if r > MaxStarRating {
		r = MaxStarRating
	}
	if r < MinStarRating {
		r = MinStarRating
	}
	u.StarRating = r
}

// AdjustFidelityPoints adds delta and floors the balance at zero.
func (u *User) AdjustFidelityPoints(delta int) {
	fp := u.FidelityPoints + delta
	if fp < 0 {
		fp = 0
	}
	u.FidelityPoints = fp
}
