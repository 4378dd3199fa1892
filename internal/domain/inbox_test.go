package domain_test

import (
	"testing"

	"github.com/stationhub/internal/domain"
	"github.com/stretchr/testify/assert"
)

func ptrString(s string) *string    { return &s }
func ptrFloat64(f float64) *float64 { return &f }

func TestInboxEntryKey(t *testing.T) {
	t.Run("entry targeting an existing station", func(t *testing.T) {
		entry := domain.InboxEntry{
			Country:   ptrString("de"),
			StationID: ptrString("41"),
		}

		key, ok := entry.Key()
		assert.True(t, ok)
		assert.Equal(t, domain.StationKey{Country: "de", ID: "41"}, key)
	})

	t.Run("new-station proposal has no key", func(t *testing.T) {
		entry := domain.InboxEntry{Title: "Neuer Haltepunkt"}

		_, ok := entry.Key()
		assert.False(t, ok)
	})

	t.Run("partial key is no key", func(t *testing.T) {
		entry := domain.InboxEntry{Country: ptrString("de")}

		_, ok := entry.Key()
		assert.False(t, ok)
	})
}

func TestInboxEntryCoords(t *testing.T) {
	t.Run("both coordinates present", func(t *testing.T) {
		entry := domain.InboxEntry{Lat: ptrFloat64(50.55), Lon: ptrFloat64(9.68)}

		coords, ok := entry.Coords()
		assert.True(t, ok)
		assert.Equal(t, domain.Coordinates{Lat: 50.55, Lon: 9.68}, coords)
	})

	t.Run("missing coordinate", func(t *testing.T) {
		entry := domain.InboxEntry{Lat: ptrFloat64(50.55)}

		_, ok := entry.Coords()
		assert.False(t, ok)
	})
}

func TestInboxEntryFilename(t *testing.T) {
	t.Run("id and extension", func(t *testing.T) {
		entry := domain.InboxEntry{ID: 4711, Extension: "jpg"}
		assert.Equal(t, "4711.jpg", entry.Filename())
	})

	t.Run("no extension yields no filename", func(t *testing.T) {
		entry := domain.InboxEntry{ID: 4711}
		assert.Equal(t, "", entry.Filename())
	})
}
