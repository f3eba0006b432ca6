package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"powerstats-server/internal/config"
	"powerstats-server/internal/modules/electricity/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrStopped      = errors.New("publisher stopped")
)

const publishTimeout = 5 * time.Second

// Publisher sends dashboard selection events to the broker. Publishing never
// blocks the caller; delivery results are only logged.
type Publisher struct {
	client    mqtt.Client
	topic     string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
	inflight sync.WaitGroup
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	p := &Publisher{
		topic:  cfg.MQTTTopic,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort, "topic", cfg.MQTTTopic)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect waits for the first connection. With connect retry enabled paho
// keeps trying in the background, so the wait ends only on success, ctx or
// Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}
	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return ErrStopped
		default:
		}
	}
}

// PublishSelection queues ev on the selection topic with QoS 1.
func (p *Publisher) PublishSelection(ev types.SelectionEvent) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, data)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if !token.WaitTimeout(publishTimeout) {
			p.logger.Warn("publish selection timed out", "topic", p.topic, "country", ev.Country)
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Error("failed to publish selection", "topic", p.topic, "error", err)
			return
		}
		p.logger.Debug("published selection", "topic", p.topic, "session_id", ev.SessionID, "country", ev.Country)
	}()
	return nil
}

// Hook adapts PublishSelection to the session store's selection callback.
func (p *Publisher) Hook() func(types.SelectionEvent) {
	return func(ev types.SelectionEvent) {
		if err := p.PublishSelection(ev); err != nil {
			p.logger.Debug("selection not published", "country", ev.Country, "error", err)
		}
	}
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect waits for queued publishes and closes the connection. Safe to
// call more than once.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.inflight.Wait()
	if p.client != nil {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
	p.logger.Info("mqtt publisher disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
