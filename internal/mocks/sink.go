package mocks

import (
	"sync"
)

// SentMessage is one message captured by a RecordingSink.
type SentMessage struct {
	Type string
	Data any
}

// RecordingSink records every message sent through it. It satisfies the
// command sinks of the page components and the page publisher.
type RecordingSink struct {
	mu       sync.Mutex
	messages []SentMessage
	Err      error
	// Reject fails sends of the listed message types only.
	Reject map[string]error
}

func (s *RecordingSink) Send(msgType string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if err, ok := s.Reject[msgType]; ok {
		return err
	}
	s.messages = append(s.messages, SentMessage{Type: msgType, Data: data})
	return nil
}

// Messages returns a copy of everything sent so far.
func (s *RecordingSink) Messages() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.messages...)
}

// OfType returns the messages of one type.
func (s *RecordingSink) OfType(msgType string) []SentMessage {
	var out []SentMessage
	for _, m := range s.Messages() {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// Types returns the message types in send order.
func (s *RecordingSink) Types() []string {
	var out []string
	for _, m := range s.Messages() {
		out = append(out, m.Type)
	}
	return out
}

// Last returns the most recent message of msgType.
func (s *RecordingSink) Last(msgType string) (SentMessage, bool) {
	msgs := s.OfType(msgType)
	if len(msgs) == 0 {
		return SentMessage{}, false
	}
	return msgs[len(msgs)-1], true
}

// Reset forgets recorded messages.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
