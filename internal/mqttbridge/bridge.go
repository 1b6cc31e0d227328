package mqttbridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jengzang/proximity-backend-go/internal/apperr"
	"github.com/jengzang/proximity-backend-go/internal/ingest"
	"github.com/jengzang/proximity-backend-go/internal/service"
)

// Ingester applies a decoded batch
type Ingester interface {
	Ingest(ctx context.Context, batch ingest.Batch) (*service.IngestResult, error)
}

// Config holds the broker settings
type Config struct {
	Broker   string
	Topic    string
	ClientID string
}

// Bridge subscribes to a sensor topic and feeds every payload through the
// same decoder and ingest service as the HTTP endpoint.
type Bridge struct {
	cfg      Config
	client   mqtt.Client
	decoder  *ingest.Decoder
	ingester Ingester
	log      *slog.Logger
	timeout  time.Duration
}

// New creates a bridge; call Start to connect
func New(cfg Config, decoder *ingest.Decoder, ingester Ingester, log *slog.Logger) *Bridge {
	b := &Bridge{
		cfg:      cfg,
		decoder:  decoder,
		ingester: ingester,
		log:      log,
		timeout:  10 * time.Second,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(b.subscribe).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("mqtt connection lost", "err", err)
		})
	b.client = mqtt.NewClient(opts)
	return b
}

// Start connects to the broker; the subscription is renewed on every reconnect
func (b *Bridge) Start() error {
	token := b.client.Connect()
	if !token.WaitTimeout(b.timeout) {
		b.log.Warn("mqtt broker not reachable yet, retrying in background", "broker", b.cfg.Broker)
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", b.cfg.Broker, err)
	}
	return nil
}

// Stop disconnects from the broker
func (b *Bridge) Stop() {
	b.client.Disconnect(250)
}

func (b *Bridge) subscribe(c mqtt.Client) {
	token := c.Subscribe(b.cfg.Topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		b.handle(msg.Topic(), msg.Payload())
	})
	if token.WaitTimeout(b.timeout) && token.Error() != nil {
		b.log.Error("mqtt subscribe failed", "topic", b.cfg.Topic, "err", token.Error())
		return
	}
	b.log.Info("mqtt ingest subscribed", "broker", b.cfg.Broker, "topic", b.cfg.Topic, "shape", b.decoder.Shape())
}

// handle processes one message; errors are logged since MQTT has no reply channel
func (b *Bridge) handle(topic string, payload []byte) {
	batch, err := b.decoder.Decode(payload)
	if err != nil {
		b.log.Warn("mqtt payload rejected", "topic", topic, "err", apperr.Message(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	result, err := b.ingester.Ingest(ctx, batch)
	if err != nil {
		b.log.Error("mqtt ingest failed", "topic", topic, "err", err)
		return
	}
	b.log.Debug("mqtt batch ingested", "topic", topic, "records", batch.Len(), "readings", len(result.Readings), "positions", len(result.Positions))
}
