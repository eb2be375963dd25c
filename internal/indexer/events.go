package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const SubjectAdChanged = "ads.changed"

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// AdChanged is published by whoever writes advertisements.
type AdChanged struct {
	ID     uuid.UUID `json:"id"`
	Action Action    `json:"action"`
}

// headerCarrier adapts nats.Msg headers for the OTel propagator.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publish sends v as JSON with the trace context of ctx in the headers.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return nc.PublishMsg(msg)
}

// Subscribe decodes JSON messages into T and hands them over with the
// propagated trace context. Malformed messages are dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, v)
	})
}

type OneIndexer interface {
	IndexOne(ctx context.Context, id uuid.UUID) (bool, error)
}

type Triggerer interface {
	Trigger()
}

// Events applies ad change notifications to the index: new or edited ads
// are inserted directly, anything else schedules a full rebuild.
type Events struct {
	nc      *nats.Conn
	indexer OneIndexer
	worker  Triggerer
	timeout time.Duration
	log     *zap.Logger

	sub *nats.Subscription
}

func NewEvents(nc *nats.Conn, indexer OneIndexer, worker Triggerer, log *zap.Logger) *Events {
	if log == nil {
		log = zap.NewNop()
	}
	return &Events{
		nc:      nc,
		indexer: indexer,
		worker:  worker,
		timeout: 30 * time.Second,
		log:     log.Named("events"),
	}
}

func (e *Events) Start() error {
	sub, err := Subscribe(e.nc, SubjectAdChanged, e.handle)
	if err != nil {
		return fmt.Errorf("indexer: subscribe %s: %w", SubjectAdChanged, err)
	}
	e.sub = sub
	return nil
}

func (e *Events) Stop() error {
	if e.sub == nil {
		return nil
	}
	return e.sub.Drain()
}

func (e *Events) handle(ctx context.Context, ev AdChanged) {
	ctx, span := otel.Tracer("petfinder/indexer").Start(ctx, "ads.changed "+string(ev.Action))
	defer span.End()

	log := e.log.With(zap.Stringer("record_id", ev.ID), zap.String("action", string(ev.Action)))
	switch ev.Action {
	case ActionCreated, ActionUpdated:
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		ok, err := e.indexer.IndexOne(ctx, ev.ID)
		if err != nil {
			log.Warn("incremental index failed, scheduling rebuild", zap.Error(err))
			e.worker.Trigger()
			return
		}
		if !ok {
			e.worker.Trigger()
			return
		}
		log.Debug("record indexed")
	case ActionDeleted:
		e.worker.Trigger()
	default:
		log.Warn("unknown action")
	}
}

func PublishAdChanged(ctx context.Context, nc *nats.Conn, ev AdChanged) error {
	return Publish(ctx, nc, SubjectAdChanged, ev)
}
