package domain

import (
	"fmt"
	"time"
)

// InboxEntry is one crowdsourced photo submission. Entries are created in
// the pending state (Done=false), flipped to done by accept/reject and are
// never deleted: processed entries stay as an audit trail.
type InboxEntry struct {
	ID            int64      `json:"id" db:"id"`
	Country       *string    `json:"country,omitempty" db:"country"`
	StationID     *string    `json:"stationId,omitempty" db:"station_id"`
	Title         string     `json:"title" db:"title"`
	Lat           *float64   `json:"lat,omitempty" db:"lat"`
	Lon           *float64   `json:"lon,omitempty" db:"lon"`
	UserID        int64      `json:"userId" db:"user_id"`
	UserNickname  string     `json:"userNickname" db:"user_nickname"`
	UserEmail     string     `json:"-" db:"user_email"`
	Extension     string     `json:"extension" db:"extension"`
	Comment       string     `json:"comment,omitempty" db:"comment"`
	RejectReason  *string    `json:"rejectReason,omitempty" db:"reject_reason"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	Done          bool       `json:"done" db:"done"`
	ProblemReport *string    `json:"problemReport,omitempty" db:"problem_report"`
	Active        *bool      `json:"active,omitempty" db:"active"`
	Crc32         *uint32    `json:"crc32,omitempty" db:"crc32"`
	Notified      bool       `json:"-" db:"notified"`
	NotifiedAt    *time.Time `json:"-" db:"notified_at"`

	// Derived at query time, never stored.
	HasConflict bool `json:"hasConflict" db:"-"`
	HasPhoto    bool `json:"hasPhoto" db:"-"`
}

// Key returns the station key when the submission targets an existing
// station. New-station proposals have no key.
func (e InboxEntry) Key() (StationKey, bool) {
	if e.Country == nil || e.StationID == nil {
		return StationKey{}, false
	}
	return StationKey{Country: *e.Country, ID: *e.StationID}, true
}

// Coords returns the submitted coordinates, valid or not.
func (e InboxEntry) Coords() (Coordinates, bool) {
	if e.Lat == nil || e.Lon == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *e.Lat, Lon: *e.Lon}, true
}

// Filename is the stored object name for the upload.
func (e InboxEntry) Filename() string {
	if e.Extension == "" {
		return ""
	}
	return fmt.Sprintf("%d.%s", e.ID, e.Extension)
}

// PhotoImport is the normalized record handed to the upstream photo store
// when an entry is accepted. It is picked up by the next source refresh,
// not written into the station cache directly.
// PhotoImportMessage wraps a queued import with its queue message id so
// consumers can acknowledge delivery.
type PhotoImportMessage struct {
	MessageID string      `json:"messageId"`
	Import    PhotoImport `json:"import"`
}

type PhotoImport struct {
	Country      string    `json:"country"`
	StationID    string    `json:"stationId"`
	URLPath      string    `json:"urlPath"`
	License      string    `json:"license"`
	Photographer string    `json:"photographer"`
	CreatedAt    time.Time `json:"createdAt"`
	Flag         string    `json:"flag"`
}
