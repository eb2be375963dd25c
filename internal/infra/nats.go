package infra

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ConnectNATS dials the broker with unlimited reconnects. An empty url
// returns a nil connection, which disables change events.
func ConnectNATS(url string, log *zap.Logger) (*nats.Conn, error) {
	if url == "" {
		log.Info("NATS_URL not set, ad change events disabled")
		return nil, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("petfinder"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("infra: connect nats: %w", err)
	}
	return nc, nil
}
