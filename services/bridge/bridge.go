// Package bridge forwards selected bus topics to a remote broker. The link
// is supervised with capped exponential backoff and reports its state on
// bridge/state.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"airspeed-go/bus"
	"airspeed-go/types"
)

// DefaultForward is used when the config names no filters.
var DefaultForward = []string{"sensor/#", "airspeed/#"}

const (
	DefaultTransport = "mqtt"
	DefaultPrefix    = "airspeedd"
)

var (
	topicConfig = bus.T("config", "bridge")
	topicState  = bus.T("bridge", "state")
)

// Start runs the bridge service until ctx is cancelled. It listens for a
// types.BridgeConfig on config/bridge and (re)configures the link.
func Start(ctx context.Context, conn *bus.Connection, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{conn: conn, log: log}
	s.run(ctx)
}

type Service struct {
	conn *bus.Connection
	log  *slog.Logger

	mu     sync.Mutex
	curRun context.CancelFunc
	wg     sync.WaitGroup
}

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig)
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			s.wg.Wait()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg types.BridgeConfig) {
	s.stopCurrent()
	s.wg.Wait()

	if !cfg.Enabled {
		s.publishState("idle", "disabled", nil)
		return
	}
	if cfg.Transport == "" {
		cfg.Transport = DefaultTransport
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultPrefix
	}
	if len(cfg.Forward) == 0 {
		cfg.Forward = DefaultForward
	}
	if cfg.QoS > 1 {
		s.publishState("error", "config_invalid", fmt.Errorf("qos %d not supported", cfg.QoS))
		return
	}

	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.curRun = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLink(ctx, cfg)
	}()
}

// -----------------------------------------------------------------------------
// Link supervision
// -----------------------------------------------------------------------------

func (s *Service) runLink(ctx context.Context, cfg types.BridgeConfig) {
	tr, err := newTransport(cfg)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 30*time.Second)
	for {
		if ctx.Err() != nil {
			return
		}

		link, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		s.log.Info("bridge link up", "transport", tr.String())
		err = s.handleLink(ctx, cfg, link)
		_ = link.Close()
		if err == nil {
			s.publishState("stopped", "link_closed", nil)
			return
		}
		delay := backoff()
		s.log.Warn("bridge link lost", "err", err, "retry", delay)
		s.publishState("degraded", "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
		if !sleep(ctx, delay) {
			return
		}
	}
}

// handleLink forwards matching bus traffic until ctx ends (nil) or the
// link fails (error).
func (s *Service) handleLink(ctx context.Context, cfg types.BridgeConfig, link Link) error {
	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var subs []*bus.Subscription
	defer func() {
		for _, sub := range subs {
			s.conn.Unsubscribe(sub)
		}
	}()

	// Fan every filter into one channel.
	in := make(chan *bus.Message, 64)
	for _, f := range cfg.Forward {
		sub := s.conn.Subscribe(ParseFilter(f))
		subs = append(subs, sub)
		go func(ch <-chan *bus.Message) {
			for m := range ch {
				select {
				case in <- m:
				case <-fanCtx.Done():
				}
			}
		}(sub.Channel())
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-link.Errors():
			if err == nil {
				err = errors.New("link closed by peer")
			}
			return err
		case m := <-in:
			payload, err := json.Marshal(m.Payload)
			if err != nil {
				s.log.Debug("bridge drop", "topic", m.Topic.String(), "err", err)
				continue
			}
			topic := cfg.TopicPrefix + "/" + m.Topic.String()
			if err := link.Publish(ctx, topic, payload, cfg.QoS, m.Retained); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// ParseFilter turns "sensor/differential_pressure/0" into a bus topic.
// Numeric levels become ints, as instance numbers are on the bus.
func ParseFilter(s string) bus.Topic {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	t := make(bus.Topic, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(p); err == nil {
			t = append(t, n)
		} else {
			t = append(t, p)
		}
	}
	return t
}

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Link is one established uplink session.
type Link interface {
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error
	// Errors delivers at most one value when the link fails.
	Errors() <-chan error
	Close() error
}

// Transport opens links.
type Transport interface {
	Open(ctx context.Context) (Link, error)
	String() string
}

type TransportFactory func(types.BridgeConfig) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]TransportFactory{}
)

// RegisterTransport adds a transport (e.g. for tests or other protocols).
func RegisterTransport(name string, f TransportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg types.BridgeConfig) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Transport]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Transport {
	case DefaultTransport:
		return newMQTTTransport(cfg)
	default:
		return nil, fmt.Errorf("unknown transport type: %q", cfg.Transport)
	}
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func decodeConfig(p any) (types.BridgeConfig, error) {
	var cfg types.BridgeConfig
	switch v := p.(type) {
	case types.BridgeConfig:
		return v, nil
	case []byte:
		err := json.Unmarshal(v, &cfg)
		return cfg, err
	case string:
		err := json.Unmarshal([]byte(v), &cfg)
		return cfg, err
	default:
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
}

func (s *Service) publishState(level, status string, err error) {
	st := types.ServiceState{Level: level, Status: status, TS: time.Now().UnixMilli()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicState, st, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
