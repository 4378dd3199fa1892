package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"go.uber.org/zap"
)

const (
	importStream = "photo-imports"
	dataField    = "data"

	// Pending messages older than this are considered abandoned by a dead
	// consumer and get reclaimed on startup.
	reclaimMinIdle = 5 * time.Minute
)

// importQueue hands accepted photos to the upstream photo store through a
// redis stream. The hand-off is asynchronous: the import worker delivers
// the record upstream and the photo appears via the next source refresh.
type importQueue struct {
	client *redis.Client
	group  string
	logger *zap.Logger
}

func NewImportQueue(client *redis.Client, group string, logger *zap.Logger) (repository.PhotoImportQueue, error) {
	q := &importQueue{
		client: client,
		group:  group,
		logger: logger,
	}

	// MKSTREAM creates the stream when it does not exist yet; BUSYGROUP
	// just means another process created the group first.
	err := client.XGroupCreateMkStream(context.Background(), importStream, group, "$").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return q, nil
}

func (q *importQueue) Publish(ctx context.Context, imp domain.PhotoImport) error {
	payload, err := json.Marshal(imp)
	if err != nil {
		return fmt.Errorf("failed to marshal photo import: %w", err)
	}

	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: importStream,
		Values: map[string]interface{}{dataField: payload},
	}).Err()
	if err != nil {
		q.logger.Error("Failed to publish photo import",
			zap.String("station", imp.Country+":"+imp.StationID),
			zap.Error(err))
		return fmt.Errorf("failed to publish photo import: %w", err)
	}

	q.logger.Info("Photo import queued",
		zap.String("country", imp.Country),
		zap.String("station_id", imp.StationID))
	return nil
}

func (q *importQueue) Consume(ctx context.Context, consumer string) (<-chan domain.PhotoImportMessage, error) {
	msgChan := make(chan domain.PhotoImportMessage, 10)

	go func() {
		defer close(msgChan)

		// Pick up messages a crashed consumer read but never acked.
		if !q.reclaim(ctx, consumer, msgChan) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				q.logger.Info("Import consumer stopped", zap.String("consumer", consumer))
				return
			default:
				result, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
					Group:    q.group,
					Consumer: consumer,
					Streams:  []string{importStream, ">"},
					Count:    10,
					Block:    1 * time.Second,
				}).Result()

				if err != nil {
					if err == redis.Nil {
						continue
					}
					if ctx.Err() != nil {
						return
					}
					q.logger.Error("Failed to read import stream", zap.Error(err))
					time.Sleep(time.Second)
					continue
				}

				for _, stream := range result {
					if !q.deliver(ctx, stream.Messages, msgChan) {
						return
					}
				}
			}
		}
	}()

	return msgChan, nil
}

// reclaim transfers idle pending messages from the group to this consumer
// and feeds them through the normal delivery path. XReadGroup with ">"
// never sees them again on its own, so without this pass an import stuck
// behind a crashed consumer would wait for manual intervention. Returns
// false when the context ended mid-delivery.
func (q *importQueue) reclaim(ctx context.Context, consumer string, msgChan chan<- domain.PhotoImportMessage) bool {
	start := "0-0"
	for {
		messages, next, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   importStream,
			Group:    q.group,
			Consumer: consumer,
			MinIdle:  reclaimMinIdle,
			Start:    start,
			Count:    10,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			q.logger.Error("Failed to reclaim pending imports", zap.Error(err))
			return true
		}

		if len(messages) > 0 {
			q.logger.Info("Reclaimed abandoned imports",
				zap.String("consumer", consumer),
				zap.Int("count", len(messages)))
		}
		if !q.deliver(ctx, messages, msgChan) {
			return false
		}

		if next == "0-0" {
			return true
		}
		start = next
	}
}

// deliver decodes raw stream messages and sends them downstream. Returns
// false when the context ended mid-send.
func (q *importQueue) deliver(ctx context.Context, messages []redis.XMessage, msgChan chan<- domain.PhotoImportMessage) bool {
	for _, msg := range messages {
		imp, err := decodeImport(msg)
		if err != nil {
			q.logger.Error("Dropping undecodable import message",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}

		select {
		case msgChan <- domain.PhotoImportMessage{MessageID: msg.ID, Import: imp}:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func decodeImport(msg redis.XMessage) (domain.PhotoImport, error) {
	payload, ok := msg.Values[dataField].(string)
	if !ok {
		return domain.PhotoImport{}, fmt.Errorf("import message %s has no %s field", msg.ID, dataField)
	}

	var imp domain.PhotoImport
	if err := json.Unmarshal([]byte(payload), &imp); err != nil {
		return domain.PhotoImport{}, fmt.Errorf("malformed import message %s: %w", msg.ID, err)
	}
	return imp, nil
}

func (q *importQueue) Ack(ctx context.Context, messageID string) error {
	if err := q.client.XAck(ctx, importStream, q.group, messageID).Err(); err != nil {
		return fmt.Errorf("failed to ack import message %s: %w", messageID, err)
	}
	return nil
}
