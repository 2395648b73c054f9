package units

import (
	"context"
	"fmt"
	"sync"

	"github.com/najoast/unitrt/config"
	"github.com/najoast/unitrt/core"
)

var (
	// AttrReceivedCount is the number of messages received.
	AttrReceivedCount = core.Attribute[int]("receivedCount")
	// AttrLastMessage is the most recent message.
	AttrLastMessage = core.Attribute[string]("lastMessage")
	// AttrMessages is a copy of the retained messages.
	AttrMessages = core.Attribute[[]string]("messages")
)

const defaultRetain = 100

// StringConsumer records the string messages it receives. It runs on the work
// lane as a critical-section unit.
type StringConsumer struct {
	mu       sync.Mutex
	count    int
	messages []string
	retain   int
}

// NewStringConsumer creates a consumer.
func NewStringConsumer() *StringConsumer {
	return &StringConsumer{retain: defaultRetain}
}

// Traits implements core.PolicyProvider.
func (c *StringConsumer) Traits() []core.Trait {
	return []core.Trait{core.TraitWork, core.TraitCriticalSection}
}

// OnInitialize reads "retain", the number of messages kept for inspection.
func (c *StringConsumer) OnInitialize(settings config.Section) error {
	c.retain = settings.Int("retain", defaultRetain)
	if c.retain < 0 {
		return fmt.Errorf("negative retain %d", c.retain)
	}
	return nil
}

// OnMessage records msg.
func (c *StringConsumer) OnMessage(ctx context.Context, msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.count++
	c.messages = append(c.messages, msg)
	if over := len(c.messages) - c.retain; over > 0 {
		c.messages = c.messages[over:]
	}
	return nil
}

// KnownAttributes implements core.AttributeSource.
func (c *StringConsumer) KnownAttributes() []core.AttributeDescriptor {
	return []core.AttributeDescriptor{AttrReceivedCount, AttrLastMessage, AttrMessages}
}

// OnGetAttribute implements core.AttributeSource.
func (c *StringConsumer) OnGetAttribute(d core.AttributeDescriptor) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch d {
	case AttrReceivedCount:
		return c.count, true
	case AttrLastMessage:
		if len(c.messages) == 0 {
			return nil, false
		}
		return c.messages[len(c.messages)-1], true
	case AttrMessages:
		return append([]string(nil), c.messages...), true
	}
	return nil, false
}
