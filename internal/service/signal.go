package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/pixelfall/pixelfall"
	"github.com/pixelfall/pixelfall/internal/domain"
)

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, event pixelfall.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, domain.AlbumChannel(event.AlbumID), jsonstr).Err()
	if err != nil {
		return err

	}

	return nil
}

// Realtime bridges redis pub/sub to one websocket session. The request
// channel carries album id lists; each list replaces the session's
// subscription set. Decoded events flow out until ctx is done.
func (s *SignalService) Realtime(ctx context.Context, request <-chan []string, output chan<- pixelfall.Event) {
	pubsub := s.rdb.Subscribe(ctx)
	defer pubsub.Close()

	messages := pubsub.Channel()
	var current []string

	for {
		select {
		case <-ctx.Done():
			return

		case albumIDs, ok := <-request:
			if !ok {
				return
			}

			if len(current) > 0 {
				if err := pubsub.Unsubscribe(ctx, current...); err != nil {
					slog.ErrorContext(
						ctx, "failed to unsubscribe",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
				}
			}

			channels := make([]string, 0, len(albumIDs))
			for _, id := range albumIDs {
				channels = append(channels, domain.AlbumChannel(id))
			}

			if len(channels) > 0 {
				if err := pubsub.Subscribe(ctx, channels...); err != nil {
					slog.ErrorContext(
						ctx, "failed to subscribe",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
				}
			}
			current = channels

		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event pixelfall.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.WarnContext(
					ctx, "failed to decode event",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}

			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
