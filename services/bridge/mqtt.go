package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"airspeed-go/types"
)

const (
	defaultKeepAlive = 30 * time.Second
	dialTimeout      = 10 * time.Second
)

// mqttTransport dials an MQTT v5 broker over TCP.
type mqttTransport struct {
	broker    string
	clientID  string
	keepAlive time.Duration
	willTopic string
}

func newMQTTTransport(cfg types.BridgeConfig) (Transport, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt transport requires a broker address")
	}
	id := cfg.ClientID
	if id == "" {
		id = "airspeedd-" + uuid.NewString()
	}
	ka := cfg.KeepAlive
	if ka <= 0 {
		ka = defaultKeepAlive
	}
	return &mqttTransport{
		broker:    cfg.Broker,
		clientID:  id,
		keepAlive: ka,
		willTopic: cfg.TopicPrefix + "/bridge/status",
	}, nil
}

func (t *mqttTransport) String() string { return "mqtt://" + t.broker }

func (t *mqttTransport) Open(ctx context.Context) (Link, error) {
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dctx, "tcp", t.broker)
	if err != nil {
		return nil, err
	}

	l := &mqttLink{errs: make(chan error, 1)}
	l.client = paho.NewClient(paho.ClientConfig{
		ClientID:      t.clientID,
		Conn:          conn,
		OnClientError: l.fail,
		OnServerDisconnect: func(d *paho.Disconnect) {
			l.fail(fmt.Errorf("server disconnect, reason 0x%02x", d.ReasonCode))
		},
	})

	ca, err := l.client.Connect(dctx, &paho.Connect{
		ClientID:   t.clientID,
		KeepAlive:  uint16(t.keepAlive.Seconds()),
		CleanStart: true,
		WillMessage: &paho.WillMessage{
			Retain:  true,
			QoS:     1,
			Topic:   t.willTopic,
			Payload: []byte("offline"),
		},
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if ca.ReasonCode != 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("connack reason 0x%02x", ca.ReasonCode)
	}

	if err := l.Publish(ctx, t.willTopic, []byte("online"), 1, true); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

type mqttLink struct {
	client *paho.Client
	once   sync.Once
	errs   chan error
}

func (l *mqttLink) fail(err error) {
	l.once.Do(func() { l.errs <- err })
}

func (l *mqttLink) Errors() <-chan error { return l.errs }

func (l *mqttLink) Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error {
	_, err := l.client.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     qos,
		Retain:  retain,
		Payload: payload,
	})
	return err
}

func (l *mqttLink) Close() error {
	return l.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
