package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"github.com/stationhub/internal/pkg/errors"
	"github.com/stationhub/internal/repository/postgres/testhelpers"
)

// InboxRepositorySuite tests the inbox repository with real database
type InboxRepositorySuite struct {
	suite.Suite
	testDB *testhelpers.TestDB
	repo   repository.InboxRepository
	ctx    context.Context
}

// SetupSuite runs once before all tests
func (s *InboxRepositorySuite) SetupSuite() {
	s.testDB = testhelpers.SetupTestDB(s.T())

	err := testhelpers.ApplySchema(s.testDB.DB.DB, "../../../scripts/schema.sql")
	s.NoError(err, "Failed to apply schema")

	s.repo = testhelpers.NewInboxRepositoryForTest(s.testDB.DB, s.testDB.Logger)
}

// TearDownSuite runs once after all tests
func (s *InboxRepositorySuite) TearDownSuite() {
	if s.testDB != nil {
		s.testDB.Close()
	}
}

// SetupTest runs before each test
func (s *InboxRepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.NoError(s.testDB.Cleanup(s.ctx))
}

func (s *InboxRepositorySuite) insert(entry *domain.InboxEntry) int64 {
	id, err := s.repo.Insert(s.ctx, entry)
	s.Require().NoError(err)
	return id
}

// pendingEntry builds a submission targeting an existing station.
func pendingEntry(country, stationID string, lat, lon float64) *domain.InboxEntry {
	return &domain.InboxEntry{
		Country:      ptrString(country),
		StationID:    ptrString(stationID),
		Title:        "Fulda",
		Lat:          ptrFloat64(lat),
		Lon:          ptrFloat64(lon),
		UserID:       12,
		UserNickname: "anna",
		UserEmail:    "anna@example.com",
		Extension:    "jpg",
		Comment:      "platform view",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func (s *InboxRepositorySuite) TestInsertAndFindByID() {
	entry := pendingEntry("de", "41", 50.5545, 9.6838)
	id := s.insert(entry)
	s.Greater(id, int64(0))

	got, err := s.repo.FindByID(s.ctx, id)
	s.NoError(err)
	s.Equal(id, got.ID)
	s.Equal("de", *got.Country)
	s.Equal("41", *got.StationID)
	s.Equal("Fulda", got.Title)
	s.InDelta(50.5545, *got.Lat, 1e-9)
	s.Equal("anna", got.UserNickname)
	s.False(got.Done)
	s.False(got.Notified)
	s.Nil(got.RejectReason)
	s.Nil(got.Crc32)
}

func (s *InboxRepositorySuite) TestFindByID_NotFound() {
	_, err := s.repo.FindByID(s.ctx, 9999)
	s.ErrorIs(err, errors.ErrInboxEntryNotFound)
}

func (s *InboxRepositorySuite) TestFindPendingEntries_DerivesConflict() {
	first := s.insert(pendingEntry("de", "41", 50.5545, 9.6838))
	second := s.insert(pendingEntry("de", "41", 50.5546, 9.6839))
	other := s.insert(pendingEntry("de", "7066", 50.0495, 9.7012))
	finished := s.insert(pendingEntry("fr", "8700", 48.8810, 2.3553))
	s.NoError(s.repo.MarkAccepted(s.ctx, finished))

	entries, err := s.repo.FindPendingEntries(s.ctx)
	s.NoError(err)
	s.Len(entries, 3)

	// oldest first, done entries excluded
	s.Equal(first, entries[0].ID)
	s.Equal(second, entries[1].ID)
	s.Equal(other, entries[2].ID)

	// two pending entries for the same station flag each other
	s.True(entries[0].HasConflict)
	s.True(entries[1].HasConflict)
	s.False(entries[2].HasConflict)
}

func (s *InboxRepositorySuite) TestCountPendingForStation_ExcludesSelf() {
	first := s.insert(pendingEntry("de", "41", 50.5545, 9.6838))
	second := s.insert(pendingEntry("de", "41", 50.5546, 9.6839))

	count, err := s.repo.CountPendingForStation(s.ctx, "de", "41", first)
	s.NoError(err)
	s.Equal(1, count)

	count, err = s.repo.CountPendingForStation(s.ctx, "de", "41", second)
	s.NoError(err)
	s.Equal(1, count)

	// an entry alone for its station has no pending sibling
	count, err = s.repo.CountPendingForStation(s.ctx, "de", "99", 0)
	s.NoError(err)
	s.Equal(0, count)
}

func (s *InboxRepositorySuite) TestCountPendingNearby_Threshold() {
	self := s.insert(pendingEntry("de", "41", 50.0, 9.0))
	// ~0.33 km away, inside the 0.5 km radius
	near := s.insert(pendingEntry("de", "42", 50.003, 9.0))
	// ~2.2 km away, outside
	s.insert(pendingEntry("de", "43", 50.02, 9.0))

	coords := domain.Coordinates{Lat: 50.0, Lon: 9.0}

	count, err := s.repo.CountPendingNearby(s.ctx, coords, self)
	s.NoError(err)
	s.Equal(1, count)

	// without exclusion the origin entry itself counts too
	count, err = s.repo.CountPendingNearby(s.ctx, coords, 0)
	s.NoError(err)
	s.Equal(2, count)

	// entries without coordinates never match
	noCoords := pendingEntry("de", "44", 0, 0)
	noCoords.Lat = nil
	noCoords.Lon = nil
	s.insert(noCoords)

	count, err = s.repo.CountPendingNearby(s.ctx, coords, near)
	s.NoError(err)
	s.Equal(1, count)
}

func (s *InboxRepositorySuite) TestCrc32RoundtripAndLookup() {
	first := s.insert(pendingEntry("de", "41", 50.5545, 9.6838))
	second := s.insert(pendingEntry("de", "7066", 50.0495, 9.7012))

	s.NoError(s.repo.UpdateCrc32(s.ctx, first, 0xDEADBEEF))
	s.NoError(s.repo.UpdateCrc32(s.ctx, second, 0xDEADBEEF))

	got, err := s.repo.FindByID(s.ctx, first)
	s.NoError(err)
	s.NotNil(got.Crc32)
	s.Equal(uint32(0xDEADBEEF), *got.Crc32)

	matches, err := s.repo.FindByCrc32(s.ctx, 0xDEADBEEF)
	s.NoError(err)
	s.Len(matches, 2)
	s.Equal(first, matches[0].ID)
	s.Equal(second, matches[1].ID)

	matches, err = s.repo.FindByCrc32(s.ctx, 1)
	s.NoError(err)
	s.Empty(matches)
}

func (s *InboxRepositorySuite) TestUpdateCrc32_NotFound() {
	err := s.repo.UpdateCrc32(s.ctx, 9999, 1)
	s.ErrorIs(err, errors.ErrInboxEntryNotFound)
}

func (s *InboxRepositorySuite) TestMarkRejected_SecondDecisionKeepsReason() {
	id := s.insert(pendingEntry("de", "41", 50.5545, 9.6838))

	s.NoError(s.repo.MarkRejected(s.ctx, id, "blurry"))

	err := s.repo.MarkRejected(s.ctx, id, "too dark")
	s.ErrorIs(err, errors.ErrInboxEntryDone)

	err = s.repo.MarkAccepted(s.ctx, id)
	s.ErrorIs(err, errors.ErrInboxEntryDone)

	got, err := s.repo.FindByID(s.ctx, id)
	s.NoError(err)
	s.True(got.Done)
	s.NotNil(got.RejectReason)
	s.Equal("blurry", *got.RejectReason)
}

func (s *InboxRepositorySuite) TestMarkAccepted_NotFound() {
	err := s.repo.MarkAccepted(s.ctx, 9999)
	s.ErrorIs(err, errors.ErrInboxEntryNotFound)
}

func (s *InboxRepositorySuite) TestConcurrentDecisionsOnSameEntry() {
	id := s.insert(pendingEntry("de", "41", 50.5545, 9.6838))

	results := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		results <- s.repo.MarkAccepted(s.ctx, id)
	}()
	go func() {
		defer wg.Done()
		results <- s.repo.MarkRejected(s.ctx, id, "duplicate")
	}()
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, errors.ErrInboxEntryDone)
			conflicted++
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, conflicted)
}

func (s *InboxRepositorySuite) TestConcurrentDecisionsOnSameStation() {
	// Two moderators finishing different entries for the same station
	// serialize on the station lock instead of interleaving.
	first := s.insert(pendingEntry("de", "41", 50.5545, 9.6838))
	second := s.insert(pendingEntry("de", "41", 50.5546, 9.6839))

	results := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		results <- s.repo.MarkAccepted(s.ctx, first)
	}()
	go func() {
		defer wg.Done()
		results <- s.repo.MarkRejected(s.ctx, second, "other upload chosen")
	}()
	wg.Wait()
	close(results)

	for err := range results {
		s.NoError(err)
	}

	entries, err := s.repo.FindPendingEntries(s.ctx)
	s.NoError(err)
	s.Empty(entries)
}

func (s *InboxRepositorySuite) TestFindEntriesToNotifyAndMarkNotified() {
	pending := s.insert(pendingEntry("de", "41", 50.5545, 9.6838))
	accepted := s.insert(pendingEntry("de", "7066", 50.0495, 9.7012))
	rejected := s.insert(pendingEntry("fr", "8700", 48.8810, 2.3553))

	s.NoError(s.repo.MarkAccepted(s.ctx, accepted))
	s.NoError(s.repo.MarkRejected(s.ctx, rejected, "blurry"))

	entries, err := s.repo.FindEntriesToNotify(s.ctx)
	s.NoError(err)
	s.Len(entries, 2)
	s.Equal(accepted, entries[0].ID)
	s.Equal(rejected, entries[1].ID)

	s.NoError(s.repo.MarkNotified(s.ctx, []int64{accepted, rejected}))

	entries, err = s.repo.FindEntriesToNotify(s.ctx)
	s.NoError(err)
	s.Empty(entries)

	got, err := s.repo.FindByID(s.ctx, accepted)
	s.NoError(err)
	s.True(got.Notified)
	s.NotNil(got.NotifiedAt)

	// the still-pending entry is untouched
	got, err = s.repo.FindByID(s.ctx, pending)
	s.NoError(err)
	s.False(got.Done)
	s.False(got.Notified)
}

func (s *InboxRepositorySuite) TestMarkNotified_EmptyIsNoop() {
	s.NoError(s.repo.MarkNotified(s.ctx, nil))
}

func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// Run the test suite
func TestInboxRepository(t *testing.T) {
	suite.Run(t, new(InboxRepositorySuite))
}
