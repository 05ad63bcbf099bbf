package ws

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// leaderboardChannel carries "something changed" events between instances.
const leaderboardChannel = "leaderboard_events"

// SnapshotFunc renders the current leaderboard message.
type SnapshotFunc func(ctx context.Context) ([]byte, error)

// Feed pushes leaderboard snapshots to websocket viewers. With a redis
// client, change events are published so every instance refreshes its own
// viewers; without one, changes are broadcast locally.
type Feed struct {
	hub      *Hub
	rdb      *redis.Client
	snapshot SnapshotFunc
}

func NewFeed(hub *Hub, rdb *redis.Client, snapshot SnapshotFunc) *Feed {
	return &Feed{hub: hub, rdb: rdb, snapshot: snapshot}
}

// LeaderboardChanged announces that a claim succeeded.
func (f *Feed) LeaderboardChanged(ctx context.Context) {
	if f.rdb == nil {
		f.broadcast(ctx)
		return
	}

	if err := f.rdb.Publish(ctx, leaderboardChannel, "claimed").Err(); err != nil {
		log.Printf("[WS] publish failed, broadcasting locally: %v", err)
		f.broadcast(ctx)
	}
}

// StartSubscriber relays leaderboard events from redis to local viewers
// until ctx is done.
func (f *Feed) StartSubscriber(ctx context.Context) {
	if f.rdb == nil {
		log.Println("[WS] Redis client not set; leaderboard subscriber not started")
		return
	}

	pubsub := f.rdb.Subscribe(ctx, leaderboardChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Println("[WS] leaderboard_events subscriber started")
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				f.broadcast(ctx)
			}
		}
	}()
}

func (f *Feed) broadcast(ctx context.Context) {
	if f.hub.Len() == 0 {
		return
	}

	data, err := f.snapshot(ctx)
	if err != nil {
		log.Printf("[WS] leaderboard snapshot failed: %v", err)
		return
	}
	f.hub.Broadcast(data)
}
