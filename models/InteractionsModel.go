package models

import "time"

// Tug is a one-way expression of interest. Tugs are append-only.
type Tug struct {
	ID         string    `dynamodbav:"id" json:"id" gorm:"primaryKey"`                         // ✅ Unique tug id
	FromUserID string    `dynamodbav:"fromUserId" json:"fromUserId" gorm:"index:idx_tug_pair"` // Who tugged
	ToUserID   string    `dynamodbav:"toUserId" json:"toUserId" gorm:"index:idx_tug_pair"`     // Who was tugged
	CreatedAt  time.Time `dynamodbav:"createdAt" json:"createdAt"`                             // Timestamp of creation
}

// TugsTable is the table name for tugs
const TugsTable = "tugs"

// TableName binds the gorm model to TugsTable.
func (Tug) TableName() string { return TugsTable }
