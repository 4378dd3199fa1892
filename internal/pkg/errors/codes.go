package errors

import "net/http"

var (
	ErrUnknownCountry = New(
		"UNKNOWN_COUNTRY",
		"No data source registered for this country",
		http.StatusNotFound,
	)

	ErrStationNotFound = New(
		"STATION_NOT_FOUND",
		"Station not found",
		http.StatusNotFound,
	)

	ErrInboxEntryNotFound = New(
		"INBOX_ENTRY_NOT_FOUND",
		"Inbox entry not found",
		http.StatusNotFound,
	)

	ErrInboxEntryDone = New(
		"INBOX_ENTRY_DONE",
		"Inbox entry has already been processed",
		http.StatusConflict,
	)

	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidMaxDistance = New(
		"INVALID_MAX_DISTANCE",
		"Invalid max distance value",
		http.StatusBadRequest,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
