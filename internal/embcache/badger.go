package embcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"petfinder/internal/encoder"
)

const keyPrefix = "emb:"

type entry struct {
	RecordID  string    `msgpack:"r"`
	Vector    []float32 `msgpack:"v"`
	UpdatedAt int64     `msgpack:"t"`
}

// Badger is a local on-disk cache for single-node deployments.
type Badger struct {
	db *badger.DB
}

type BadgerOptions struct {
	Dir      string
	InMemory bool
	Logger   *zap.Logger
}

func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("embcache: badger dir is required")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{log.Named("badger").Sugar()})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("embcache: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Get(_ context.Context, key string) (encoder.Vector, bool, error) {
	var raw []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var e entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		return nil, false, fmt.Errorf("embcache: decode %s: %w", key, err)
	}
	if len(e.Vector) == 0 {
		return nil, false, nil
	}
	return encoder.Vector(e.Vector), true, nil
}

func (b *Badger) Put(_ context.Context, key string, recordID uuid.UUID, vec encoder.Vector) error {
	raw, err := msgpack.Marshal(entry{
		RecordID:  recordID.String(),
		Vector:    []float32(vec),
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("embcache: encode %s: %w", key, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), raw)
	})
}

func (b *Badger) Close() error { return b.db.Close() }

type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, args ...interface{})   { l.s.Errorf(f, args...) }
func (l badgerLogger) Warningf(f string, args ...interface{}) { l.s.Warnf(f, args...) }
func (l badgerLogger) Infof(f string, args ...interface{})    { l.s.Debugf(f, args...) }
func (l badgerLogger) Debugf(f string, args ...interface{})   { l.s.Debugf(f, args...) }
