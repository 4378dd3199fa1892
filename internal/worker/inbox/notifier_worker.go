package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"github.com/stationhub/internal/worker"
	"go.uber.org/zap"
)

// NotifierWorker tells submitters the outcome of their entries. It polls
// the done-and-not-notified queue and marks entries notified only after a
// successful send, so delivery is at-least-once: a crash between decision
// and notification delays the mail instead of losing the decision.
type NotifierWorker struct {
	*worker.BaseWorker
	inbox    repository.InboxRepository
	mailer   repository.Mailer
	monitor  repository.Monitor
	interval time.Duration
}

func NewNotifierWorker(
	inbox repository.InboxRepository,
	mailer repository.Mailer,
	monitor repository.Monitor,
	interval time.Duration,
	logger *zap.Logger,
) *NotifierWorker {
	return &NotifierWorker{
		BaseWorker: worker.NewBaseWorker("inbox-notifier", logger),
		inbox:      inbox,
		mailer:     mailer,
		monitor:    monitor,
		interval:   interval,
	}
}

func (w *NotifierWorker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.StopChan():
			return nil
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *NotifierWorker) run(ctx context.Context) {
	entries, err := w.inbox.FindEntriesToNotify(ctx)
	if err != nil {
		w.Logger().Error("Failed to load entries to notify", zap.Error(err))
		return
	}
	if len(entries) == 0 {
		return
	}

	var notified []int64
	for _, entry := range entries {
		if entry.UserEmail == "" {
			// nothing to deliver, but the entry must leave the queue
			notified = append(notified, entry.ID)
			continue
		}

		if err := w.mailer.Send(entry.UserEmail, subject(entry), body(entry)); err != nil {
			w.Logger().Error("Failed to notify submitter",
				zap.Int64("id", entry.ID),
				zap.Error(err))
			w.monitor.Notify(fmt.Sprintf("failed to notify inbox entry %d: %v", entry.ID, err))
			continue
		}
		notified = append(notified, entry.ID)
	}

	if len(notified) == 0 {
		return
	}

	if err := w.inbox.MarkNotified(ctx, notified); err != nil {
		// entries stay queued and the mails may repeat; acceptable for
		// at-least-once delivery
		w.Logger().Error("Failed to mark entries notified", zap.Error(err))
		return
	}

	w.Logger().Info("Submitters notified", zap.Int("count", len(notified)))
}

func subject(entry domain.InboxEntry) string {
	if entry.RejectReason != nil {
		return "Your photo upload was rejected"
	}
	return "Your photo upload was accepted"
}

func body(entry domain.InboxEntry) string {
	if entry.RejectReason != nil {
		return fmt.Sprintf(
			"Hello %s,\n\nyour upload %d (%s) was rejected: %s\n\nYou are welcome to submit a corrected photo.\n",
			entry.UserNickname, entry.ID, entry.Title, *entry.RejectReason,
		)
	}
	return fmt.Sprintf(
		"Hello %s,\n\nyour upload %d (%s) was accepted and will appear with the next data refresh. Thank you!\n",
		entry.UserNickname, entry.ID, entry.Title,
	)
}
