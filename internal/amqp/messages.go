package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExpenseSyncMessage asks the worker to copy one stored expense to the
// user's sheet. The worker loads the row itself; the message carries only
// the row id and the owner.
type ExpenseSyncMessage struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseSyncMessage(id int64, userID string) *ExpenseSyncMessage {
	return &ExpenseSyncMessage{
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseSyncMessageFromJSON(data []byte) (*ExpenseSyncMessage, error) {
	var msg ExpenseSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid expense id %d", msg.ID)
	}
	return &msg, nil
}
