package widget

import (
	"context"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultRedisKey = "salahstreak:widget"

// ErrNoSnapshot is returned when nothing has been published yet.
var ErrNoSnapshot = errors.New("no widget snapshot published")

type Publisher interface {
	Publish(ctx context.Context, s Snapshot) error
}

// Reader returns the most recently published snapshot.
type Reader interface {
	Latest(ctx context.Context) (Snapshot, error)
}

// RedisPublisher keeps the latest snapshot under a single key.
type RedisPublisher struct {
	rdb *redis.Client
	key string
}

func NewRedisPublisher(addr, username, password string) *RedisPublisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       0,
	})
	return &RedisPublisher{rdb: rdb, key: DefaultRedisKey}
}

func (p *RedisPublisher) Publish(ctx context.Context, s Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := p.rdb.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store widget snapshot in redis: %w", err)
	}
	return nil
}

var _ Reader = (*RedisPublisher)(nil)

func (p *RedisPublisher) Latest(ctx context.Context) (Snapshot, error) {
	data, err := p.rdb.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read widget snapshot from redis: %w", err)
	}
	return Decode(data)
}

func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// MQTTPublisher publishes each snapshot as a retained message so a widget
// that subscribes late still receives the current state.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

func NewMQTTPublisher(brokerURL, clientID, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(c mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTPublisher{client: client, topic: topic}, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, s Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	token := p.client.Publish(p.topic, 1, true, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish widget snapshot to %s: %w", p.topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// MultiPublisher fans a snapshot out to every publisher and joins their
// errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, s Snapshot) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
