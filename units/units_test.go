package units

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najoast/unitrt/config"
	"github.com/najoast/unitrt/core"
	"github.com/najoast/unitrt/logging"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newRuntime(t *testing.T) *core.Context {
	t.Helper()
	rt := core.NewContext(core.DefaultOptions())
	t.Cleanup(func() { _ = rt.Shutdown(context.Background()) })
	return rt
}

func producerAndConsumer(t *testing.T, rt *core.Context, producerSettings config.Section) (*core.Reference, *core.Reference) {
	t.Helper()
	producer, err := New(KindStringProducer, "producer", rt)
	require.NoError(t, err)
	consumer, err := New(KindStringConsumer, "consumer", rt)
	require.NoError(t, err)

	require.NoError(t, producer.Initialize(producerSettings))
	require.NoError(t, consumer.Initialize(nil))
	require.NoError(t, rt.AddUnits(producer, consumer))
	require.NoError(t, rt.Start(context.Background()))

	p, ok := rt.Reference("producer")
	require.True(t, ok)
	c, ok := rt.Reference("consumer")
	require.True(t, ok)
	return p, c
}

// receivedCount returns -1 when the attribute cannot be read.
func receivedCount(consumer *core.Reference) int {
	n, ok, err := core.QueryAs[int](context.Background(), consumer, AttrReceivedCount)
	if err != nil || !ok {
		return -1
	}
	return n
}

func TestProducerForwardsToConsumer(t *testing.T) {
	rt := newRuntime(t)
	producer, consumer := producerAndConsumer(t, rt, config.Section{"target": "consumer"})

	for i := 0; i < 3; i++ {
		require.True(t, producer.Send("send::ping"))
	}

	assert.Eventually(t, func() bool { return receivedCount(consumer) == 3 }, waitFor, tick)

	last, ok, err := core.QueryAs[string](context.Background(), consumer, AttrLastMessage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ping", last)

	sent, ok, err := core.QueryAs[int](context.Background(), producer, AttrSentMessages)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, sent)
}

func TestConsumerPolicy(t *testing.T) {
	rt := newRuntime(t)
	_, consumer := producerAndConsumer(t, rt, config.Section{"target": "consumer"})

	assert.Equal(t, core.Policy{Delivery: core.DeliveryWork, Threading: core.ThreadingCritical}, consumer.Policy())
}

func TestConsumerHasNoLastMessageBeforeDelivery(t *testing.T) {
	rt := newRuntime(t)
	_, consumer := producerAndConsumer(t, rt, config.Section{"target": "consumer"})

	_, ok, err := consumer.Query(AttrLastMessage).Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, receivedCount(consumer))
}

func TestProducerRandomMessage(t *testing.T) {
	rt := newRuntime(t)
	producer, consumer := producerAndConsumer(t, rt, config.Section{"target": "consumer"})

	require.True(t, producer.Send(CommandSendRandom))

	assert.Eventually(t, func() bool { return receivedCount(consumer) == 1 }, waitFor, tick)
	last, _, err := core.QueryAs[string](context.Background(), consumer, AttrLastMessage)
	require.NoError(t, err)
	assert.Len(t, last, 10)
}

func TestProducerRejectsUnknownCommand(t *testing.T) {
	rt := newRuntime(t)
	producer, consumer := producerAndConsumer(t, rt, config.Section{"target": "consumer"})

	require.True(t, producer.Send("shout::ping"))

	assert.Eventually(t, func() bool {
		for _, s := range rt.Stats().Units {
			if s.ID == "producer" && s.Failed == 1 {
				return true
			}
		}
		return false
	}, waitFor, tick)
	assert.Equal(t, 0, receivedCount(consumer))
}

func TestProducerMissingTarget(t *testing.T) {
	rt := newRuntime(t)
	producer, _ := producerAndConsumer(t, rt, config.Section{"target": "nobody"})

	require.True(t, producer.Send("send::ping"))

	assert.Eventually(t, func() bool {
		n, ok, err := core.QueryAs[int](context.Background(), producer, AttrReceivedCommands)
		return err == nil && ok && n == 1
	}, waitFor, tick)
	sent, _, err := core.QueryAs[int](context.Background(), producer, AttrSentMessages)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestProducerRequiresTarget(t *testing.T) {
	u, err := New(KindStringProducer, "producer", newRuntime(t))
	require.NoError(t, err)

	var lerr *core.LifecycleError
	assert.ErrorAs(t, u.Initialize(config.Section{}), &lerr)
}

func TestProducerPeriodicSend(t *testing.T) {
	rt := newRuntime(t)
	_, consumer := producerAndConsumer(t, rt, config.Section{"target": "consumer", "interval": "10ms"})

	require.Eventually(t, func() bool { return receivedCount(consumer) >= 2 }, waitFor, tick)

	require.NoError(t, rt.Stop(context.Background()))
	time.Sleep(30 * time.Millisecond)
	settled := receivedCount(consumer)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, receivedCount(consumer))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProducerPeriodicSendLogsUnknownTarget(t *testing.T) {
	var out syncBuffer
	opts := core.DefaultOptions()
	opts.Logger = logging.NewWriterLogger(&out, logging.Config{Level: logging.LevelDebug})
	rt := core.NewContext(opts)
	t.Cleanup(func() { _ = rt.Shutdown(context.Background()) })

	producer, _ := producerAndConsumer(t, rt, config.Section{"target": "nobody", "interval": "10ms"})

	assert.Eventually(t, func() bool {
		logs := out.String()
		return strings.Contains(logs, "periodic send failed") && strings.Contains(logs, "target=nobody")
	}, waitFor, tick)
	sent, _, err := core.QueryAs[int](context.Background(), producer, AttrSentMessages)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestConsumerRetain(t *testing.T) {
	c := NewStringConsumer()
	require.NoError(t, c.OnInitialize(config.Section{"retain": 2}))

	for _, m := range []string{"a", "b", "c"} {
		require.NoError(t, c.OnMessage(context.Background(), m))
	}

	msgs, ok := c.OnGetAttribute(AttrMessages)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, msgs)
	count, _ := c.OnGetAttribute(AttrReceivedCount)
	assert.Equal(t, 3, count)

	assert.Error(t, NewStringConsumer().OnInitialize(config.Section{"retain": -1}))
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New("nope", "x", newRuntime(t))
	assert.Error(t, err)
	assert.Len(t, Factories(), 2)
}
