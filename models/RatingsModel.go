package models

import "time"

// Rating is an immutable post-connection judgement of one user by another.
type Rating struct {
	ID          string    `dynamodbav:"id" json:"id" gorm:"primaryKey"`
	RaterUserID string    `dynamodbav:"raterUserId" json:"raterUserId" gorm:"uniqueIndex:idx_rating_key;not null"`
	RatedUserID string    `dynamodbav:"ratedUserId" json:"ratedUserId" gorm:"uniqueIndex:idx_rating_key;index;not null"`
	MatchID     string    `dynamodbav:"matchId,omitempty" json:"matchId,omitempty" gorm:"uniqueIndex:idx_rating_key"`
	IsPositive  bool      `dynamodbav:"isPositive" json:"isPositive"`
	Reason      string    `dynamodbav:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt   time.Time `dynamodbav:"createdAt" json:"createdAt"`
}

// RatingsTable is the table name for ratings
const RatingsTable = "ratings"

// TableName binds the gorm model to RatingsTable.
func (Rating) TableName() string { return RatingsTable }

// Key identifies the (rater, rated, match) triple a rating is unique on.
func (r *Rating) Key() string {
	return r.RaterUserID + "#" + r.RatedUserID + "#" + r.MatchID
}
