package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/media"
	"github.com/Skotchmaster/videohub/internal/search"
	"github.com/Skotchmaster/videohub/pkg/logging"
)

type MediaStore interface {
	Upload(ctx context.Context, localPath string) (*media.Asset, error)
	Delete(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type ChannelIndexer interface {
	Index(ctx context.Context, doc search.ChannelDoc) error
	Search(ctx context.Context, query string, from, size int) (int64, []search.ChannelDoc, error)
}

const sideEffectTimeout = 5 * time.Second

// publish never fails the caller; a broker outage only costs the event.
func publish(ctx context.Context, pub EventPublisher, ev events.UserEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := pub.PublishEvent(ctx, events.TopicUserEvents, ev.UserID, ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", ev.Type, "error", err)
	}
}

func index(ctx context.Context, idx ChannelIndexer, doc search.ChannelDoc) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := idx.Index(ctx, doc); err != nil {
		logging.FromContext(ctx).Warn("channel_index_failed", "user_id", doc.ID, "error", err)
	}
}
