package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeatEventsPubSub broadcasts seat-state changes so seat-map views can
// refresh without polling. Fire and forget: delivery is advisory, the
// reservation store stays the source of truth.
type SeatEventsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewSeatEventsPubSub(rdb *redis.Client) *SeatEventsPubSub {
	return &SeatEventsPubSub{
		rdb:     rdb,
		channel: ChannelSeatsChanged(),
	}
}

type seatsChangedMsg struct {
	Type    string   `json:"type"`
	ShowID  int64    `json:"show_id"`
	SeatIDs []string `json:"seat_ids,omitempty"`
	TsUnix  int64    `json:"ts_unix"`
}

func (p *SeatEventsPubSub) PublishSeatsChanged(ctx context.Context, showID int64, seatIDs []string) error {
	msg := seatsChangedMsg{
		Type:    "seats_changed",
		ShowID:  showID,
		SeatIDs: seatIDs,
		TsUnix:  time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *SeatEventsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, showID int64, seatIDs []string)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev seatsChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil && ev.ShowID != 0 {
				handler(ctx, ev.ShowID, ev.SeatIDs)
			}
		}
	}
}
