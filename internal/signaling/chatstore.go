package signaling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a persisted in-meeting chat message.
type ChatMessage struct {
	ID        string
	MeetingID string
	UserID    string
	Content   string
	CreatedAt time.Time
}

// ChatStore is the persistence collaborator the chat-message handler
// uses to durably store messages before broadcasting them.
type ChatStore interface {
	CreateMessage(ctx context.Context, meetingID, userID, content string) (ChatMessage, error)
}

// MemoryChatStore keeps chat messages in process memory, bounded per
// meeting. The durable chat history lives in the platform backend;
// this buffer only has to outlive the broadcast and serve late-join
// catch-up within one gateway instance.
type MemoryChatStore struct {
	mu       sync.Mutex
	messages map[string][]ChatMessage
}

const memoryChatMaxPerMeeting = 500

func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{messages: make(map[string][]ChatMessage)}
}

func (s *MemoryChatStore) CreateMessage(ctx context.Context, meetingID, userID, content string) (ChatMessage, error) {
	msg := ChatMessage{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	list := append(s.messages[meetingID], msg)
	if len(list) > memoryChatMaxPerMeeting {
		list = list[len(list)-memoryChatMaxPerMeeting:]
	}
	s.messages[meetingID] = list
	s.mu.Unlock()
	return msg, nil
}

// Recent returns up to limit most recent messages for a meeting,
// oldest first.
func (s *MemoryChatStore) Recent(meetingID string, limit int) []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.messages[meetingID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]ChatMessage, len(list))
	copy(out, list)
	return out
}
