package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"string_server/models"
	"string_server/store"
)

// ConnectionService drives a match conversation: messages and the knot lifecycle.
type ConnectionService struct {
	Store    store.Store
	Clock    Clock
	Log      zerolog.Logger
	Notifier Notifier
}

// SendMessage appends a message to a match and credits the sender's counters.
func (s *ConnectionService) SendMessage(ctx context.Context, matchID, fromUserID, content string) (*models.Message, error) {
	matchID = strings.TrimSpace(matchID)
	fromUserID = strings.TrimSpace(fromUserID)
	content = strings.TrimSpace(content)
	if matchID == "" || fromUserID == "" {
		return nil, models.NewValidationError("matchId and senderId are required")
	}
	if content == "" {
		return nil, models.NewValidationError("Message content cannot be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, models.NewValidationError("Message content is limited to %d characters", models.MaxMessageLength)
	}

	now := s.Clock.Now()
	if _, err := expireIfDue(ctx, s.Store, s.Log, matchID, now); err != nil {
		return nil, err
	}

	var (
		msg     *models.Message
		partner string
	)
	err := s.Store.WithTransaction(ctx, func(tx store.Tx) error {
		msg = nil
		m, err := loadActiveMatch(tx, matchID, now)
		if err != nil {
			return err
		}
		if !m.HasUser(fromUserID) {
			return models.NewValidationError("User %q is not part of match %q", fromUserID, matchID)
		}
		m.RecordMessage(fromUserID)
		out := &models.Message{
			ID:        uuid.NewString(),
			MatchID:   m.ID,
			SenderID:  fromUserID,
			Content:   content,
			CreatedAt: now,
			Seq:       m.MessageTotal(),
		}
		if err := tx.AddMessage(out); err != nil {
			return err
		}
		if err := tx.PutMatch(m); err != nil {
			return err
		}
		msg = out
		partner = m.Partner(fromUserID)
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	s.Log.Debug().Str("match_id", matchID).Str("sender_id", fromUserID).Int("seq", msg.Seq).Msg("📩 message sent")
	notifyAll(s.Notifier, EventMessage, msg, partner)
	return msg, nil
}

// ListMessages returns the thread of a match in send order.
func (s *ConnectionService) ListMessages(ctx context.Context, matchID string) ([]*models.Message, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, models.NewValidationError("matchId is required")
	}
	var messages []*models.Message
	err := s.Store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetMatch(matchID); err != nil {
			return lookupErr(err, "match", matchID)
		}
		var err error
		messages, err = tx.ListMessages(matchID)
		return err
	})
	if err != nil {
		return nil, txErr(err)
	}
	return messages, nil
}
