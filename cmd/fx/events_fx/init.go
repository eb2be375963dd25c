package events_fx

import (
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"petfinder/internal/config"
	"petfinder/internal/indexer"
	"petfinder/internal/infra"
)

var Module = fx.Options(
	fx.Provide(provideConn),
	fx.Invoke(subscribe),
)

func provideConn(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*nats.Conn, error) {
	nc, err := infra.ConnectNATS(cfg.NATS.URL, log)
	if err != nil || nc == nil {
		return nil, err
	}
	lc.Append(fx.StopHook(nc.Close))
	return nc, nil
}

func subscribe(lc fx.Lifecycle, nc *nats.Conn, ix *indexer.Indexer, w *indexer.Worker, log *zap.Logger) {
	if nc == nil {
		return
	}
	events := indexer.NewEvents(nc, ix, w, log)
	lc.Append(fx.StartStopHook(events.Start, events.Stop))
}
