package kafka_client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/redditmcp/internal/formatter"
	"github.com/spacesedan/redditmcp/internal/models"
)

// Publisher emits fetched search results as RawContent records. Produce is
// asynchronous; delivery failures are logged by a background reader.
type Publisher struct {
	producer *kafka.Producer
	topic    string
	done     chan struct{}
}

func NewPublisher(cfg KafkaConfig) (*Publisher, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...", slog.String("broker", cfg.Broker))

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "reddit-mcp"
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Broker,
		"client.id":          clientID,
		"enable.idempotence": true,
		"acks":               "all",
		"message.timeout.ms": int(DELIVERY_TIMEOUT.Milliseconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	pub := &Publisher{producer: p, topic: cfg.topic(), done: make(chan struct{})}
	go pub.watchDeliveries()

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return pub, nil
}

func (p *Publisher) watchDeliveries() {
	defer close(p.done)
	for ev := range p.producer.Events() {
		switch e := ev.(type) {
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				slog.Warn("[KafkaClient] Delivery failed",
					slog.String("key", string(e.Key)),
					slog.String("error", e.TopicPartition.Error.Error()))
			}
		case kafka.Error:
			slog.Warn("[KafkaClient] Producer error", slog.String("error", e.Error()))
		}
	}
}

func (p *Publisher) Close() {
	slog.Info("[KafkaClient] Flushing Kafka producer before shutdown...")
	if remaining := p.producer.Flush(int(FLUSH_TIMEOUT.Milliseconds())); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	p.producer.Close()
	<-p.done
	slog.Info("[KafkaClient] Kafka producer shut down")
}

// PublishSearch enqueues one message per post. It fails only when the local
// queue rejects a message.
func (p *Publisher) PublishSearch(ctx context.Context, query string, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs, err := BuildMessages(p.topic, query, posts)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if err := p.producer.Produce(msg, nil); err != nil {
			return fmt.Errorf("[KafkaClient] failed to produce message: %w", err)
		}
	}

	slog.Debug("[KafkaClient] Queued search results",
		slog.String("topic", p.topic),
		slog.String("query", query),
		slog.Int("count", len(msgs)))
	return nil
}

// BuildMessages keys each message by post id.
func BuildMessages(topic, query string, posts []models.Post) ([]*kafka.Message, error) {
	msgs := make([]*kafka.Message, 0, len(posts))
	for _, post := range posts {
		value, err := json.Marshal(RedditPostToRaw(query, post))
		if err != nil {
			return nil, fmt.Errorf("[KafkaClient] failed to marshal post %s: %w", post.ID, err)
		}
		msgs = append(msgs, &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
			Key:            []byte(post.ID),
			Value:          value,
		})
	}
	return msgs, nil
}

func RedditPostToRaw(query string, post models.Post) models.RawContent {
	ts, err := time.Parse(time.RFC3339Nano, post.CreatedAt)
	if err != nil {
		ts = time.Time{}
	}
	return models.RawContent{
		ContentID: GenerateContentID(query, SOURCE_REDDIT, post.ID),
		Source:    SOURCE_REDDIT,
		Query:     query,
		Title:     post.Title,
		Text:      post.Text,
		Metadata: models.ContentMetadata{
			Timestamp: ts.UTC(),
			Author:    post.Author,
			Subreddit: post.Subreddit,
			PostID:    post.ID,
			URL:       formatter.RedditURL(post),
			Score:     post.Metrics.Score,
			Comments:  post.Metrics.Comments,
		},
	}
}

func GenerateContentID(query, source, postID string) string {
	raw := fmt.Sprintf("%s:%s:%s", query, source, postID)
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}
