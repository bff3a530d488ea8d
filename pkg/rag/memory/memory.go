package memory

import (
	"sync"
	"time"
)

// Turn is one completed question/answer exchange. Seq increases
// monotonically per conversation.
type Turn struct {
	Seq       int
	Question  string
	Answer    string
	CreatedAt time.Time
}

// Conversation is an append-only ordered record of Turns for one session.
// It is written only by successful completions of the query pipeline; a
// failed generation never appends.
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// Append records a completed turn and returns it with its sequence number
// and timestamp assigned.
func (c *Conversation) Append(question, answer string) Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn := Turn{
		Seq:       len(c.turns) + 1,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
	c.turns = append(c.turns, turn)
	return turn
}

// History returns the most recent maxTurns turns in chronological order
// (oldest first), bounding the prompt window. maxTurns <= 0 returns all.
func (c *Conversation) History(maxTurns int) []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := 0
	if maxTurns > 0 && len(c.turns) > maxTurns {
		start = len(c.turns) - maxTurns
	}
	out := make([]Turn, len(c.turns)-start)
	copy(out, c.turns[start:])
	return out
}

// All returns the full transcript, unbounded. Used for the user-facing
// history endpoint rather than prompt assembly.
func (c *Conversation) All() []Turn {
	return c.History(0)
}

// Len reports the number of recorded turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}
