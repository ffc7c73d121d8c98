package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos"
	"github.com/nerrad567/febos-bridge/internal/infrastructure/mqtt"
)

// Broker is the MQTT surface the publisher needs. *mqtt.Client satisfies it.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Topics() mqtt.Topics
}

// Cycles runs coordinator cycles on command. *febos.Coordinator satisfies it.
type Cycles interface {
	Refresh(ctx context.Context) ([]febos.Change, error)
	Discover(ctx context.Context) (*febos.Model, error)
}

var (
	_ Broker = (*mqtt.Client)(nil)
	_ Cycles = (*febos.Coordinator)(nil)
)

// Publisher mirrors coordinator results onto MQTT.
//
// Thread Safety:
//   - Observer callbacks and command handlers may run concurrently.
type Publisher struct {
	broker Broker
	topics mqtt.Topics
	qos    byte
	logger febos.Logger

	// stateCache holds the last published value per key.
	stateCache   map[string]any
	stateCacheMu sync.Mutex

	commands sync.WaitGroup
}

var _ febos.Observer = (*Publisher)(nil)

// New creates a publisher. qos applies to every message.
func New(broker Broker, qos byte, logger febos.Logger) *Publisher {
	return &Publisher{
		broker:     broker,
		topics:     broker.Topics(),
		qos:        qos,
		logger:     logger,
		stateCache: make(map[string]any),
	}
}

// Discovered publishes a configuration document for every resource, then
// the current value of those that have one. Cached state for keys that no
// longer exist is dropped.
func (p *Publisher) Discovered(_ context.Context, report febos.DiscoveryReport) {
	if report.Err != nil || report.Model == nil {
		return
	}

	all := report.Model.All()
	valid := make(map[string]struct{}, len(all))
	var failed int
	for _, e := range all {
		valid[e.Resource.Key] = struct{}{}
		topic := p.topics.EntityConfig(component(e.Resource.Kind), e.Resource.Key)
		if err := p.publishJSON(topic, entityConfig(p.topics, e)); err != nil {
			failed++
			p.logger.Warn("publishing entity config failed", "key", e.Resource.Key, "error", err)
		}
	}
	p.pruneStateCache(valid)

	for _, e := range all {
		if v, ok := e.Resource.Value(); ok {
			p.publishState(e.Resource.Key, v, e.Resource.UpdatedAt())
		}
	}

	p.logger.Info("published entity configs", "count", len(all)-failed, "failed", failed)
}

// Refreshed publishes the changed values.
func (p *Publisher) Refreshed(_ context.Context, changes []febos.Change) {
	for _, c := range changes {
		p.publishState(c.Entity.Resource.Key, c.Value, c.Timestamp)
	}
}

func (p *Publisher) publishState(key string, value any, ts time.Time) {
	if p.stateUnchanged(key, value) {
		return
	}
	if err := p.publishJSON(p.topics.EntityState(key), stateMessage(key, value, ts)); err != nil {
		p.forget(key)
		p.logger.Warn("publishing state failed", "key", key, "error", err)
	}
}

// SubscribeCommands listens for refresh and discover commands. Each command
// runs its cycle on a new goroutine bound to ctx; a command arriving while a
// cycle runs is dropped.
func (p *Publisher) SubscribeCommands(ctx context.Context, cycles Cycles) error {
	handlers := map[string]func(context.Context) error{
		p.topics.RefreshCommand(): func(ctx context.Context) error {
			_, err := cycles.Refresh(ctx)
			return err
		},
		p.topics.DiscoverCommand(): func(ctx context.Context) error {
			_, err := cycles.Discover(ctx)
			return err
		},
	}

	for topic, run := range handlers {
		if err := p.broker.Subscribe(topic, p.qos, p.commandHandler(ctx, run)); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	return nil
}

func (p *Publisher) commandHandler(ctx context.Context, run func(context.Context) error) mqtt.MessageHandler {
	return func(topic string, _ []byte) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.commands.Add(1)
		go func() {
			defer p.commands.Done()
			err := run(ctx)
			switch {
			case err == nil:
				p.logger.Info("command completed", "topic", topic)
			case errors.Is(err, febos.ErrCycleInProgress):
				p.logger.Info("command ignored, cycle already running", "topic", topic)
			default:
				p.logger.Warn("command failed", "topic", topic, "error", err)
			}
		}()
		return nil
	}
}

// Wait blocks until every running command has finished.
func (p *Publisher) Wait() {
	p.commands.Wait()
}

func (p *Publisher) publishJSON(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", topic, err)
	}
	return p.broker.Publish(topic, data, p.qos, true)
}

// stateUnchanged reports whether value matches the last published value,
// recording it when it does not.
func (p *Publisher) stateUnchanged(key string, value any) bool {
	p.stateCacheMu.Lock()
	defer p.stateCacheMu.Unlock()

	if cached, ok := p.stateCache[key]; ok && cached == value {
		return true
	}
	p.stateCache[key] = value
	return false
}

func (p *Publisher) forget(key string) {
	p.stateCacheMu.Lock()
	delete(p.stateCache, key)
	p.stateCacheMu.Unlock()
}

// pruneStateCache drops cache entries for keys not in valid.
func (p *Publisher) pruneStateCache(valid map[string]struct{}) {
	p.stateCacheMu.Lock()
	defer p.stateCacheMu.Unlock()

	for key := range p.stateCache {
		if _, ok := valid[key]; !ok {
			delete(p.stateCache, key)
		}
	}
}
