package postgres

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/swiftcab/ride-backend/pkg/logger"
)

// Redis keys shared by the stores. Record changes are fanned out over
// pub/sub so in-process watchers see writes made by any instance; driver
// positions are additionally indexed in a GEO set.
const (
	driverEventsChannel = "driver-events"
	tripEventsChannel   = "trip-events"
	driverGeoKey        = "drivers:locations"
)

// subscribe attaches to a Redis pub/sub channel and returns raw payloads.
// The returned channel closes when ctx is cancelled or unsubscribe is
// called; unsubscribe is safe to call more than once. A slow consumer
// drops events rather than blocking the fan-out.
func subscribe(ctx context.Context, rdb *redis.Client, channel string, log *logger.Logger) (<-chan []byte, func(), error) {
	pubsub := rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 32)
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					log.Warn("Dropping event for slow subscriber",
						logger.String("channel", channel),
					)
				}
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			pubsub.Close()
		})
	}
	return out, unsubscribe, nil
}
