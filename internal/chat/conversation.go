package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/clinicai/gateway/internal/webhook"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Greeting seeds every new conversation.
const Greeting = "Hello! 👋 I'm YarnGPT. How can I help you today?"

// Message is one immutable entry in a conversation log.
type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the ordered message log for one chat surface (widget or
// full page). Messages are append-only and never mutated.
type Conversation struct {
	id string

	// inFlight is the single-flight guard: a second send while one is
	// outstanding is rejected without touching the log.
	inFlight atomic.Bool

	mu         sync.Mutex
	messages   []Message
	lastActive time.Time
}

func newConversation(id string, now time.Time) *Conversation {
	return &Conversation{
		id: id,
		messages: []Message{
			{Role: RoleAssistant, Text: Greeting, Timestamp: now},
		},
		lastActive: now,
	}
}

func (c *Conversation) append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	c.lastActive = msg.Timestamp
}

// window returns the trailing n messages as webhook conversation turns,
// bounding the forwarded payload size.
func (c *Conversation) window(n int) []webhook.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := c.messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}

	turns := make([]webhook.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, webhook.Turn{Role: m.Role, Content: m.Text})
	}
	return turns
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}
