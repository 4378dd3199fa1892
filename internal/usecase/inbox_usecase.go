package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"github.com/stationhub/internal/pkg/errors"
	"github.com/stationhub/internal/usecase/dto"
	"go.uber.org/zap"
)

const fallbackLicense = "CC0 1.0 Universell (CC0 1.0)"

// InboxUseCase is the moderation engine. An entry moves
// pending -> done (accepted or rejected) -> notified; there is no way
// back, corrections need a new entry.
type InboxUseCase struct {
	inbox     repository.InboxRepository
	stations  repository.StationRepository
	directory repository.PhotographerDirectory
	queue     repository.PhotoImportQueue
	monitor   repository.Monitor
	logger    *zap.Logger
}

func NewInboxUseCase(
	inbox repository.InboxRepository,
	stations repository.StationRepository,
	directory repository.PhotographerDirectory,
	queue repository.PhotoImportQueue,
	monitor repository.Monitor,
	logger *zap.Logger,
) *InboxUseCase {
	return &InboxUseCase{
		inbox:     inbox,
		stations:  stations,
		directory: directory,
		queue:     queue,
		monitor:   monitor,
		logger:    logger,
	}
}

// Submit validates and persists a new submission, then computes the
// advisory conflict and duplicate flags. Neither flag blocks the entry:
// both are surfaced for manual review.
func (uc *InboxUseCase) Submit(ctx context.Context, req dto.InboxSubmitRequest) (*dto.InboxSubmitResult, error) {
	entry := domain.InboxEntry{
		Title:        req.Title,
		Lat:          req.Lat,
		Lon:          req.Lon,
		UserID:       req.UserID,
		UserNickname: req.UserNickname,
		UserEmail:    req.UserEmail,
		Extension:    req.Extension,
		Comment:      req.Comment,
		Active:       req.Active,
		CreatedAt:    time.Now(),
	}

	var station *domain.Station
	if req.Country != "" || req.StationID != "" {
		if req.Country == "" || req.StationID == "" {
			return nil, errors.ErrInvalidRequest
		}
		found, err := uc.ByKeyStation(ctx, domain.StationKey{Country: req.Country, ID: req.StationID})
		if err != nil {
			return nil, err
		}
		station = found
		entry.Country = &req.Country
		entry.StationID = &req.StationID
	} else {
		// new-station proposal: needs a name and a usable position
		coords, ok := entry.Coords()
		if req.Title == "" || !ok || !coords.IsValid() {
			return nil, errors.ErrInvalidRequest
		}
	}

	id, err := uc.inbox.Insert(ctx, &entry)
	if err != nil {
		return nil, err
	}
	entry.ID = id

	conflict, duplicate, err := uc.evaluate(ctx, entry, station)
	if err != nil {
		return nil, err
	}

	uc.monitor.Notify(fmt.Sprintf("new inbox entry %d for %s by %s (conflict=%t, duplicate=%t)",
		id, describeTarget(entry), entry.UserNickname, conflict, duplicate))

	return &dto.InboxSubmitResult{
		ID:        id,
		Filename:  entry.Filename(),
		Duplicate: duplicate,
		Conflict:  conflict,
	}, nil
}

// evaluate computes the derived flags for one entry, always excluding the
// entry itself from the counts.
func (uc *InboxUseCase) evaluate(ctx context.Context, entry domain.InboxEntry, station *domain.Station) (conflict, duplicate bool, err error) {
	var samePending int
	if key, ok := entry.Key(); ok {
		samePending, err = uc.inbox.CountPendingForStation(ctx, key.Country, key.ID, entry.ID)
		if err != nil {
			return false, false, err
		}
	}

	var nearby int
	if coords, ok := entry.Coords(); ok && coords.IsValid() {
		nearby, err = uc.inbox.CountPendingNearby(ctx, coords, entry.ID)
		if err != nil {
			return false, false, err
		}
	}

	conflict = samePending > 0 || nearby > 0
	duplicate = (station != nil && station.HasPhoto()) || samePending > 0
	return conflict, duplicate, nil
}

// PendingEntries returns the moderator view of all not-done entries.
func (uc *InboxUseCase) PendingEntries(ctx context.Context) ([]dto.InboxEntryView, error) {
	entries, err := uc.inbox.FindPendingEntries(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]dto.InboxEntryView, 0, len(entries))
	for _, entry := range entries {
		var station *domain.Station
		if key, ok := entry.Key(); ok {
			if found, ok, err := uc.stations.FindByKey(ctx, key); err == nil && ok {
				station = &found
			}
		}
		views = append(views, dto.NewInboxEntryView(entry, station))
	}

	return views, nil
}

// Accept marks a pending entry done and queues the photo for the upstream
// store. The queue hand-off is eventually consistent: the photo appears
// with the next source refresh.
func (uc *InboxUseCase) Accept(ctx context.Context, id int64) error {
	entry, err := uc.inbox.FindByID(ctx, id)
	if err != nil {
		return err
	}

	key, ok := entry.Key()
	if !ok {
		// new-station proposals need the station created upstream first
		return errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"reason": "entry has no station key; create the station upstream and resubmit",
		})
	}

	if err := uc.inbox.MarkAccepted(ctx, id); err != nil {
		return err
	}

	imp := domain.PhotoImport{
		Country:      key.Country,
		StationID:    key.ID,
		URLPath:      fmt.Sprintf("/%s/%s", key.Country, entry.Filename()),
		License:      uc.licenseFor(ctx, entry.UserNickname),
		Photographer: entry.UserNickname,
		CreatedAt:    entry.CreatedAt,
		Flag:         "0",
	}

	if err := uc.queue.Publish(ctx, imp); err != nil {
		// acceptance is committed; the import has to be replayed by hand
		uc.logger.Error("Failed to queue accepted photo",
			zap.Int64("id", id),
			zap.Error(err))
		uc.monitor.Notify(fmt.Sprintf("accepted inbox entry %d but failed to queue import: %v", id, err))
		return nil
	}

	uc.monitor.Notify(fmt.Sprintf("inbox entry %d accepted for %s", id, key))
	return nil
}

// Reject marks a pending entry done with a reason. Rejecting an already
// processed entry fails so the recorded reason is never overwritten.
func (uc *InboxUseCase) Reject(ctx context.Context, id int64, reason string) error {
	if err := uc.inbox.MarkRejected(ctx, id, reason); err != nil {
		return err
	}

	uc.monitor.Notify(fmt.Sprintf("inbox entry %d rejected: %s", id, reason))
	return nil
}

// UpdateChecksum attaches a content checksum and reports other entries
// with identical content, so resubmissions are recognized without
// re-downloading the image.
func (uc *InboxUseCase) UpdateChecksum(ctx context.Context, id int64, crc32 uint32) (*dto.InboxChecksumResult, error) {
	if err := uc.inbox.UpdateCrc32(ctx, id, crc32); err != nil {
		return nil, err
	}

	result := &dto.InboxChecksumResult{ID: id, Crc32: crc32}

	same, err := uc.inbox.FindByCrc32(ctx, crc32)
	if err != nil {
		return nil, err
	}
	for _, entry := range same {
		if entry.ID != id {
			result.SameChecksum = append(result.SameChecksum, entry.ID)
		}
	}

	return result, nil
}

// EntriesToNotify lists processed entries whose submitter has not been
// told the outcome yet.
func (uc *InboxUseCase) EntriesToNotify(ctx context.Context) ([]domain.InboxEntry, error) {
	return uc.inbox.FindEntriesToNotify(ctx)
}

// MarkNotified flags entries as notified. Kept separate from
// accept/reject so a crash in between only delays the notification.
func (uc *InboxUseCase) MarkNotified(ctx context.Context, ids []int64) error {
	return uc.inbox.MarkNotified(ctx, ids)
}

// ByKeyStation resolves a station, mapping absence to a not-found error.
func (uc *InboxUseCase) ByKeyStation(ctx context.Context, key domain.StationKey) (*domain.Station, error) {
	station, ok, err := uc.stations.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrStationNotFound
	}
	return &station, nil
}

func (uc *InboxUseCase) licenseFor(ctx context.Context, nickname string) string {
	if p, ok := uc.directory.Lookup(ctx, nickname); ok && p.License != "" {
		return p.License
	}
	return fallbackLicense
}

func describeTarget(entry domain.InboxEntry) string {
	if key, ok := entry.Key(); ok {
		return key.String()
	}
	return fmt.Sprintf("new station %q", entry.Title)
}
