package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connectErr   error
	publishTok   *fakeToken
	connected    bool
	disconnected chan struct{}
	published    []published
	subs         map[string]mqtt.MessageHandler
	subQoS       map[string]byte
	unsubscribed []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		publishTok:   &fakeToken{},
		disconnected: make(chan struct{}),
		subs:         map[string]mqtt.MessageHandler{},
		subQoS:       map[string]byte{},
	}
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
func (c *fakeClient) IsConnectionOpen() bool { return c.IsConnected() }
func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr == nil {
		c.connected = true
	}
	return &fakeToken{err: c.connectErr}
}
func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		c.connected = false
		close(c.disconnected)
	}
}
func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.publishTok
}
func (c *fakeClient) Subscribe(topic string, qos byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[topic] = cb
	c.subQoS[topic] = qos
	return &fakeToken{}
}
func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}
func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	return &fakeToken{}
}
func (c *fakeClient) AddRoute(string, mqtt.MessageHandler) {}

func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func (c *fakeClient) handler(topic string) mqtt.MessageHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[topic]
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestConnect_RetriesThenDisconnectsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := 0
	var last *fakeClient
	cfg := &RabbitMQConfig{Host: "broker", Port: 1883, ClientID: "t", MaxRetries: 3}
	client, err := connect(ctx, cfg, func(*mqtt.ClientOptions) mqtt.Client {
		attempts++
		last = newFakeClient()
		if attempts < 2 {
			last.connectErr = errors.New("refused")
		}
		return last
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.True(t, client.IsConnected())

	cancel()
	select {
	case <-last.disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("client not disconnected after cancel")
	}
}

func TestConnect_GivesUp(t *testing.T) {
	attempts := 0
	cfg := &RabbitMQConfig{Host: "broker", Port: 1883, MaxRetries: 2, MaxElapsed: 5 * time.Second}
	_, err := connect(context.Background(), cfg, func(*mqtt.ClientOptions) mqtt.Client {
		attempts++
		c := newFakeClient()
		c.connectErr = errors.New("refused")
		return c
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "tcp://broker:1883", cfg.BrokerURL())
}

func TestPublisher(t *testing.T) {
	c := newFakeClient()
	p := NewPublisher(c)

	require.NoError(t, p.PublishMessage("greenhouse/0/readings", []byte("a")))
	require.NoError(t, p.PublishMessage("greenhouse/0/command", []byte("b")))
	assert.Equal(t, []published{
		{topic: "greenhouse/0/readings", qos: 0, payload: []byte("a")},
		{topic: "greenhouse/0/command", qos: 1, payload: []byte("b")},
	}, c.published)

	c.publishTok = &fakeToken{timeout: true}
	assert.ErrorIs(t, p.PublishMessage("x", nil), ErrPublishTimeout)

	boom := errors.New("boom")
	c.publishTok = &fakeToken{err: boom}
	assert.ErrorIs(t, p.PublishMessage("x", nil), boom)
}

func TestConsumer(t *testing.T) {
	c := newFakeClient()
	var mu sync.Mutex
	var got []string
	cons := NewConsumer(c, "greenhouse/+/command", nil)
	require.Error(t, cons.ConsumeMessage(context.Background()))

	cons.SetHandler(func(topic string, m mqtt.Message) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, topic+"="+string(m.Payload()))
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cons.ConsumeMessage(ctx) }()

	require.Eventually(t, func() bool { return c.handler("greenhouse/+/command") != nil }, time.Second, 5*time.Millisecond)
	c.handler("greenhouse/+/command")(c, fakeMessage{topic: "greenhouse/3/command", payload: []byte("x")})
	assert.Equal(t, byte(1), c.subQoS["greenhouse/+/command"])

	cancel()
	require.NoError(t, <-done)
	mu.Lock()
	assert.Equal(t, []string{"greenhouse/3/command=x"}, got)
	mu.Unlock()
	assert.Equal(t, []string{"greenhouse/+/command"}, c.unsubscribed)
}
