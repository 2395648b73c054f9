package units

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/najoast/unitrt/config"
	"github.com/najoast/unitrt/core"
	"github.com/najoast/unitrt/logging"
)

// Directory resolves unit ids to references. *core.Context implements it.
type Directory interface {
	Reference(id string) (*core.Reference, bool)
	Scheduler() core.Scheduler
	Logger() logging.Logger
}

// Producer commands.
const (
	// CommandSend forwards the text after the separator, e.g. "send::ping".
	CommandSend = "send"
	// CommandSendRandom forwards a random token.
	CommandSendRandom = "sendRandomMessage"

	commandSeparator = "::"
)

var (
	// AttrSentMessages is the number of messages forwarded to the target.
	AttrSentMessages = core.Attribute[int]("sentMessages")
	// AttrReceivedCommands is the number of commands received.
	AttrReceivedCommands = core.Attribute[int]("receivedCommands")
)

// StringProducer forwards string messages to the unit named by its "target"
// setting. With an "interval" setting it also sends a random message
// periodically while started.
type StringProducer struct {
	dir      Directory
	target   string
	interval time.Duration

	received atomic.Int64
	sent     atomic.Int64

	mu       sync.Mutex
	periodic *core.ScheduledTask
}

// NewStringProducer creates a producer resolving its target through dir.
func NewStringProducer(dir Directory) *StringProducer {
	return &StringProducer{dir: dir}
}

// OnInitialize reads "target" (required) and "interval" (optional).
func (p *StringProducer) OnInitialize(settings config.Section) error {
	p.target = settings.String("target", "")
	if p.target == "" {
		return fmt.Errorf("missing setting %q", "target")
	}
	p.interval = settings.Duration("interval", 0)
	return nil
}

// OnStart schedules the periodic send when an interval is configured.
func (p *StringProducer) OnStart(ctx context.Context) error {
	if p.interval <= 0 {
		return nil
	}
	logger := p.dir.Logger().With("target", p.target)
	task, err := p.dir.Scheduler().ScheduleAtFixedRate(p.interval, p.interval, func() {
		if err := p.forward(uuid.NewString()[:10]); err != nil {
			logger.Debug("periodic send failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.periodic = task
	p.mu.Unlock()
	return nil
}

// OnStop cancels the periodic send.
func (p *StringProducer) OnStop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.periodic != nil {
		p.periodic.Cancel()
		p.periodic = nil
	}
	return nil
}

// OnMessage handles "send::<text>" and "sendRandomMessage".
func (p *StringProducer) OnMessage(ctx context.Context, msg string) error {
	p.received.Add(1)

	command, payload, _ := strings.Cut(msg, commandSeparator)
	switch command {
	case CommandSend:
		return p.forward(payload)
	case CommandSendRandom:
		return p.forward(uuid.NewString()[:10])
	default:
		return fmt.Errorf("unknown command %q", msg)
	}
}

func (p *StringProducer) forward(text string) error {
	ref, ok := p.dir.Reference(p.target)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnitNotFound, p.target)
	}
	if ref.Send(text) {
		p.sent.Add(1)
	}
	return nil
}

// KnownAttributes implements core.AttributeSource.
func (p *StringProducer) KnownAttributes() []core.AttributeDescriptor {
	return []core.AttributeDescriptor{AttrSentMessages, AttrReceivedCommands}
}

// OnGetAttribute implements core.AttributeSource.
func (p *StringProducer) OnGetAttribute(d core.AttributeDescriptor) (any, bool) {
	switch d {
	case AttrSentMessages:
		return int(p.sent.Load()), true
	case AttrReceivedCommands:
		return int(p.received.Load()), true
	}
	return nil, false
}
