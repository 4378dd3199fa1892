package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stationhub/internal/domain"
)

func TestDecodeImport(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		created := time.Date(2018, 4, 6, 10, 0, 0, 0, time.UTC)
		msg := redis.XMessage{
			ID: "1-0",
			Values: map[string]interface{}{
				dataField: `{"country":"de","stationId":"41","urlPath":"/de/5.jpg",` +
					`"license":"CC0","photographer":"anna","createdAt":"2018-04-06T10:00:00Z","flag":"0"}`,
			},
		}

		imp, err := decodeImport(msg)
		require.NoError(t, err)
		assert.Equal(t, "de", imp.Country)
		assert.Equal(t, "41", imp.StationID)
		assert.Equal(t, "/de/5.jpg", imp.URLPath)
		assert.Equal(t, "anna", imp.Photographer)
		assert.True(t, created.Equal(imp.CreatedAt))
	})

	t.Run("missing data field", func(t *testing.T) {
		_, err := decodeImport(redis.XMessage{ID: "1-0", Values: map[string]interface{}{}})
		assert.Error(t, err)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := decodeImport(redis.XMessage{
			ID:     "1-0",
			Values: map[string]interface{}{dataField: "not json"},
		})
		assert.Error(t, err)
	})
}

func TestImportQueueDeliver(t *testing.T) {
	q := &importQueue{logger: zap.NewNop()}

	t.Run("skips undecodable messages", func(t *testing.T) {
		msgChan := make(chan domain.PhotoImportMessage, 2)
		messages := []redis.XMessage{
			{ID: "1-0", Values: map[string]interface{}{dataField: "not json"}},
			{ID: "2-0", Values: map[string]interface{}{dataField: `{"country":"de","stationId":"41"}`}},
		}

		ok := q.deliver(context.Background(), messages, msgChan)
		require.True(t, ok)
		require.Len(t, msgChan, 1)

		got := <-msgChan
		assert.Equal(t, "2-0", got.MessageID)
		assert.Equal(t, "de", got.Import.Country)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// unbuffered channel with no reader, only the context can unblock
		msgChan := make(chan domain.PhotoImportMessage)
		messages := []redis.XMessage{
			{ID: "1-0", Values: map[string]interface{}{dataField: `{"country":"de","stationId":"41"}`}},
		}

		ok := q.deliver(ctx, messages, msgChan)
		assert.False(t, ok)
	})
}
