package models

import "time"

// Message is a single chat line inside a match.
type Message struct {
	ID        string    `dynamodbav:"id" json:"id" gorm:"primaryKey"`
	MatchID   string    `dynamodbav:"matchId" json:"matchId" gorm:"index;not null"`
	SenderID  string    `dynamodbav:"senderId" json:"senderId" gorm:"not null"`
	Content   string    `dynamodbav:"content" json:"content" gorm:"not null"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt" gorm:"index"`
	Seq       int       `dynamodbav:"seq" json:"seq"` // Position in the thread, starting at 1
}

// MessagesTable is the table name for chat messages
const MessagesTable = "messages"

// TableName binds the gorm model to MessagesTable.
func (Message) TableName() string { return MessagesTable }

// CountRounds returns the number of turns each participant took in the thread.
// A turn starts whenever the sender differs from the previous message's sender.
func CountRounds(messages []*Message) map[string]int {
	rounds := map[string]int{}
	last := ""
	for _, m := range messages {
		if m.SenderID != last {
			rounds[m.SenderID]++
			last = m.SenderID
		}
	}
	return rounds
}
