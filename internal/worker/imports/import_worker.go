package imports

import (
	"context"
	"fmt"
	"time"

	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"github.com/stationhub/internal/infrastructure/provider"
	"github.com/stationhub/internal/worker"
	"go.uber.org/zap"
)

const retryBackoff = 5 * time.Second

// ImportWorker delivers accepted photos to the upstream photo store. The
// upstream picks them up into its listings, so the photo becomes visible
// through the next source refresh.
type ImportWorker struct {
	*worker.BaseWorker
	queue      repository.PhotoImportQueue
	client     *provider.Client
	monitor    repository.Monitor
	importURL  string
	maxRetries int
	consumer   string
}

func NewImportWorker(
	queue repository.PhotoImportQueue,
	client *provider.Client,
	monitor repository.Monitor,
	importURL string,
	maxRetries int,
	consumer string,
	logger *zap.Logger,
) *ImportWorker {
	return &ImportWorker{
		BaseWorker: worker.NewBaseWorker("photo-importer", logger),
		queue:      queue,
		client:     client,
		monitor:    monitor,
		importURL:  importURL,
		maxRetries: maxRetries,
		consumer:   consumer,
	}
}

func (w *ImportWorker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-w.StopChan()
		cancel()
	}()

	messages, err := w.queue.Consume(ctx, w.consumer)
	if err != nil {
		return fmt.Errorf("failed to start import consumer: %w", err)
	}

	for msg := range messages {
		w.deliver(ctx, msg)
	}

	return nil
}

func (w *ImportWorker) deliver(ctx context.Context, msg domain.PhotoImportMessage) {
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		err := w.client.PostJSON(ctx, w.importURL, msg.Import)
		if err == nil {
			if err := w.queue.Ack(ctx, msg.MessageID); err != nil {
				w.Logger().Warn("Failed to ack delivered import",
					zap.String("message_id", msg.MessageID),
					zap.Error(err))
			}
			w.Logger().Info("Photo import delivered",
				zap.String("country", msg.Import.Country),
				zap.String("station_id", msg.Import.StationID))
			return
		}

		w.Logger().Error("Photo import delivery failed",
			zap.String("message_id", msg.MessageID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryBackoff):
		}
	}

	// left unacked for manual replay
	w.monitor.Notify(fmt.Sprintf("photo import for %s:%s failed after %d attempts",
		msg.Import.Country, msg.Import.StationID, w.maxRetries))
}
