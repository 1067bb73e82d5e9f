package main

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// publisherCache opens one publisher per topic and stops them all on
// shutdown so buffered messages are flushed.
type publisherCache struct {
	open    func(topic string) publisher
	byTopic map[string]publisher
}

func (c *publisherCache) get(topic string) publisher {
	if pub, ok := c.byTopic[topic]; ok {
		return pub
	}
	pub := c.open(topic)
	if pub != nil {
		c.byTopic[topic] = pub
	}
	return pub
}

func (c *publisherCache) stopAll() {
	for topic, pub := range c.byTopic {
		if s, ok := pub.(interface{ Stop() }); ok {
			s.Stop()
		}
		delete(c.byTopic, topic)
	}
}

// orderedPublisher publishes with message ordering on. Pub/Sub pauses an
// ordering key after a failed publish; the key is resumed so the next
// attempt of the same row can go out.
type orderedPublisher struct {
	topic *gcppubsub.Publisher
}

func newOrderedPublisher(topic *gcppubsub.Publisher) publisher {
	if topic == nil {
		return nil
	}
	topic.EnableMessageOrdering = true
	return orderedPublisher{topic: topic}
}

func (p orderedPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return orderedResult{result: p.topic.Publish(ctx, msg), topic: p.topic, key: msg.OrderingKey}
}

func (p orderedPublisher) Stop() { p.topic.Stop() }

type orderedResult struct {
	result *gcppubsub.PublishResult
	topic  *gcppubsub.Publisher
	key    string
}

func (r orderedResult) Get(ctx context.Context) (string, error) {
	id, err := r.result.Get(ctx)
	if err != nil {
		r.topic.ResumePublish(r.key)
	}
	return id, err
}
