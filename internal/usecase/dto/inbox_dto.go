package dto

import (
	"time"

	"github.com/stationhub/internal/domain"
)

// InboxSubmitRequest is a new photo submission. Country and StationID are
// both empty for a new-station proposal, in which case Title, Lat and Lon
// are required.
type InboxSubmitRequest struct {
	Country      string   `json:"country"`
	StationID    string   `json:"stationId"`
	Title        string   `json:"title"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	UserID       int64    `json:"userId" validate:"required"`
	UserNickname string   `json:"userNickname" validate:"required"`
	UserEmail    string   `json:"userEmail" validate:"omitempty,email"`
	Extension    string   `json:"extension" validate:"required"`
	Comment      string   `json:"comment"`
	Active       *bool    `json:"active"`
}

// InboxSubmitResult reports the stored entry id plus the advisory flags.
// Duplicate and Conflict do not block the submission; the entry is kept
// for manual review either way.
type InboxSubmitResult struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	Duplicate bool   `json:"duplicate"`
	Conflict  bool   `json:"conflict"`
}

// InboxRejectRequest carries the mandatory rejection reason.
type InboxRejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// InboxChecksumRequest attaches a content checksum to an entry.
type InboxChecksumRequest struct {
	Crc32 uint32 `json:"crc32" validate:"required"`
}

// InboxChecksumResult lists other entries with the same checksum.
type InboxChecksumResult struct {
	ID           int64   `json:"id"`
	Crc32        uint32  `json:"crc32"`
	SameChecksum []int64 `json:"sameChecksum,omitempty"`
}

// InboxEntryView is the moderator's row: the stored entry plus display
// title/coordinates (falling back to the matched station when the upload
// left them blank or invalid) and the derived flags. The stored values are
// never overwritten by the fallback.
type InboxEntryView struct {
	ID            int64     `json:"id"`
	Country       string    `json:"country,omitempty"`
	StationID     string    `json:"stationId,omitempty"`
	Title         string    `json:"title"`
	Lat           *float64  `json:"lat,omitempty"`
	Lon           *float64  `json:"lon,omitempty"`
	UserNickname  string    `json:"userNickname"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Filename      string    `json:"filename,omitempty"`
	ProblemReport string    `json:"problemReport,omitempty"`
	Crc32         *uint32   `json:"crc32,omitempty"`
	HasConflict   bool      `json:"hasConflict"`
	HasPhoto      bool      `json:"hasPhoto"`
	NewStation    bool      `json:"newStation"`
}

// NewInboxEntryView resolves the display fallback against the matched
// station (nil for new-station proposals).
func NewInboxEntryView(entry domain.InboxEntry, station *domain.Station) InboxEntryView {
	view := InboxEntryView{
		ID:           entry.ID,
		Title:        entry.Title,
		Lat:          entry.Lat,
		Lon:          entry.Lon,
		UserNickname: entry.UserNickname,
		Comment:      entry.Comment,
		CreatedAt:    entry.CreatedAt,
		Filename:     entry.Filename(),
		Crc32:        entry.Crc32,
		HasConflict:  entry.HasConflict,
		NewStation:   station == nil,
	}

	if entry.Country != nil {
		view.Country = *entry.Country
	}
	if entry.StationID != nil {
		view.StationID = *entry.StationID
	}
	if entry.ProblemReport != nil {
		view.ProblemReport = *entry.ProblemReport
	}

	if station != nil {
		view.HasPhoto = station.HasPhoto()
		if view.Title == "" {
			view.Title = station.Title
		}
		coords, ok := entry.Coords()
		if !ok || !coords.IsValid() {
			lat, lon := station.Coordinates.Lat, station.Coordinates.Lon
			view.Lat, view.Lon = &lat, &lon
		}
	}

	return view
}
