package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/pkg/errors"
	"github.com/stationhub/internal/usecase"
	"github.com/stationhub/internal/usecase/dto"
)

func ptrString(s string) *string    { return &s }
func ptrFloat64(f float64) *float64 { return &f }
func ptrBool(b bool) *bool          { return &b }

// MockStationRepository is a mock of repository.StationRepository
type MockStationRepository struct {
	mock.Mock
}

func (m *MockStationRepository) Get(ctx context.Context, country string) (map[domain.StationKey]domain.Station, error) {
	args := m.Called(ctx, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.StationKey]domain.Station), args.Error(1)
}

func (m *MockStationRepository) GetAll(ctx context.Context) (map[domain.StationKey]domain.Station, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.StationKey]domain.Station), args.Error(1)
}

func (m *MockStationRepository) FindByKey(ctx context.Context, key domain.StationKey) (domain.Station, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.Station), args.Bool(1), args.Error(2)
}

func (m *MockStationRepository) FindByName(ctx context.Context, query string) ([]domain.Station, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Station), args.Error(1)
}

func (m *MockStationRepository) Refresh(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockStationRepository) Countries() []domain.Country {
	args := m.Called()
	return args.Get(0).([]domain.Country)
}

// MockInboxRepository is a mock of repository.InboxRepository
type MockInboxRepository struct {
	mock.Mock
}

func (m *MockInboxRepository) Insert(ctx context.Context, entry *domain.InboxEntry) (int64, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInboxRepository) FindByID(ctx context.Context, id int64) (*domain.InboxEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InboxEntry), args.Error(1)
}

func (m *MockInboxRepository) FindPendingEntries(ctx context.Context) ([]domain.InboxEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InboxEntry), args.Error(1)
}

func (m *MockInboxRepository) CountPendingForStation(ctx context.Context, country, stationID string, excludeID int64) (int, error) {
	args := m.Called(ctx, country, stationID, excludeID)
	return args.Int(0), args.Error(1)
}

func (m *MockInboxRepository) CountPendingNearby(ctx context.Context, coords domain.Coordinates, excludeID int64) (int, error) {
	args := m.Called(ctx, coords, excludeID)
	return args.Int(0), args.Error(1)
}

func (m *MockInboxRepository) FindByCrc32(ctx context.Context, crc32 uint32) ([]domain.InboxEntry, error) {
	args := m.Called(ctx, crc32)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InboxEntry), args.Error(1)
}

func (m *MockInboxRepository) UpdateCrc32(ctx context.Context, id int64, crc32 uint32) error {
	args := m.Called(ctx, id, crc32)
	return args.Error(0)
}

func (m *MockInboxRepository) MarkAccepted(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInboxRepository) MarkRejected(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockInboxRepository) FindEntriesToNotify(ctx context.Context) ([]domain.InboxEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InboxEntry), args.Error(1)
}

func (m *MockInboxRepository) MarkNotified(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

// MockPhotographerDirectory is a mock of repository.PhotographerDirectory
type MockPhotographerDirectory struct {
	mock.Mock
}

func (m *MockPhotographerDirectory) Lookup(ctx context.Context, nickname string) (domain.Photographer, bool) {
	args := m.Called(ctx, nickname)
	return args.Get(0).(domain.Photographer), args.Bool(1)
}

func (m *MockPhotographerDirectory) Invalidate() {
	m.Called()
}

// MockImportQueue is a mock of repository.PhotoImportQueue
type MockImportQueue struct {
	mock.Mock
}

func (m *MockImportQueue) Publish(ctx context.Context, imp domain.PhotoImport) error {
	args := m.Called(ctx, imp)
	return args.Error(0)
}

func (m *MockImportQueue) Consume(ctx context.Context, consumer string) (<-chan domain.PhotoImportMessage, error) {
	args := m.Called(ctx, consumer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan domain.PhotoImportMessage), args.Error(1)
}

func (m *MockImportQueue) Ack(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// MockMonitor is a mock of repository.Monitor
type MockMonitor struct {
	mock.Mock
}

func (m *MockMonitor) Notify(message string) {
	m.Called(message)
}

func (m *MockMonitor) NotifyWithFile(message, path string) {
	m.Called(message, path)
}

type inboxFixture struct {
	inbox     *MockInboxRepository
	stations  *MockStationRepository
	directory *MockPhotographerDirectory
	queue     *MockImportQueue
	monitor   *MockMonitor
	uc        *usecase.InboxUseCase
}

func newInboxFixture() *inboxFixture {
	f := &inboxFixture{
		inbox:     &MockInboxRepository{},
		stations:  &MockStationRepository{},
		directory: &MockPhotographerDirectory{},
		queue:     &MockImportQueue{},
		monitor:   &MockMonitor{},
	}
	f.uc = usecase.NewInboxUseCase(f.inbox, f.stations, f.directory, f.queue, f.monitor, zap.NewNop())
	return f
}

func submitRequest() dto.InboxSubmitRequest {
	return dto.InboxSubmitRequest{
		Country:      "de",
		StationID:    "41",
		UserID:       7,
		UserNickname: "anna",
		UserEmail:    "anna@example.com",
		Extension:    "jpg",
	}
}

func TestInboxUseCase_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("clean submission for an existing station", func(t *testing.T) {
		f := newInboxFixture()
		station := domain.Station{Key: domain.StationKey{Country: "de", ID: "41"}, Title: "Fulda"}

		f.stations.On("FindByKey", ctx, station.Key).Return(station, true, nil)
		f.inbox.On("Insert", ctx, mock.AnythingOfType("*domain.InboxEntry")).Return(int64(12), nil)
		f.inbox.On("CountPendingForStation", ctx, "de", "41", int64(12)).Return(0, nil)
		f.monitor.On("Notify", mock.AnythingOfType("string")).Return()

		result, err := f.uc.Submit(ctx, submitRequest())
		require.NoError(t, err)
		assert.Equal(t, int64(12), result.ID)
		assert.Equal(t, "12.jpg", result.Filename)
		assert.False(t, result.Conflict)
		assert.False(t, result.Duplicate)
		f.inbox.AssertExpectations(t)
	})

	t.Run("duplicate when the station already has a photo", func(t *testing.T) {
		f := newInboxFixture()
		station := domain.Station{
			Key:   domain.StationKey{Country: "de", ID: "41"},
			Photo: &domain.Photo{Key: domain.StationKey{Country: "de", ID: "41"}},
		}

		f.stations.On("FindByKey", ctx, station.Key).Return(station, true, nil)
		f.inbox.On("Insert", ctx, mock.Anything).Return(int64(13), nil)
		f.inbox.On("CountPendingForStation", ctx, "de", "41", int64(13)).Return(0, nil)
		f.monitor.On("Notify", mock.Anything).Return()

		result, err := f.uc.Submit(ctx, submitRequest())
		require.NoError(t, err)
		assert.True(t, result.Duplicate)
		assert.False(t, result.Conflict)
	})

	t.Run("conflict and duplicate when another pending entry targets the same station", func(t *testing.T) {
		f := newInboxFixture()
		station := domain.Station{Key: domain.StationKey{Country: "de", ID: "41"}}

		f.stations.On("FindByKey", ctx, station.Key).Return(station, true, nil)
		f.inbox.On("Insert", ctx, mock.Anything).Return(int64(14), nil)
		f.inbox.On("CountPendingForStation", ctx, "de", "41", int64(14)).Return(1, nil)
		f.monitor.On("Notify", mock.Anything).Return()

		result, err := f.uc.Submit(ctx, submitRequest())
		require.NoError(t, err)
		assert.True(t, result.Conflict)
		assert.True(t, result.Duplicate)
	})

	t.Run("conflict when another pending upload is nearby", func(t *testing.T) {
		f := newInboxFixture()
		station := domain.Station{Key: domain.StationKey{Country: "de", ID: "41"}}
		req := submitRequest()
		req.Lat = ptrFloat64(50.5545)
		req.Lon = ptrFloat64(9.6838)

		f.stations.On("FindByKey", ctx, station.Key).Return(station, true, nil)
		f.inbox.On("Insert", ctx, mock.Anything).Return(int64(15), nil)
		f.inbox.On("CountPendingForStation", ctx, "de", "41", int64(15)).Return(0, nil)
		f.inbox.On("CountPendingNearby", ctx, domain.Coordinates{Lat: 50.5545, Lon: 9.6838}, int64(15)).Return(1, nil)
		f.monitor.On("Notify", mock.Anything).Return()

		result, err := f.uc.Submit(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.Conflict)
		assert.False(t, result.Duplicate)
	})

	t.Run("unknown station", func(t *testing.T) {
		f := newInboxFixture()
		f.stations.On("FindByKey", ctx, mock.Anything).Return(domain.Station{}, false, nil)

		_, err := f.uc.Submit(ctx, submitRequest())
		assert.ErrorIs(t, err, errors.ErrStationNotFound)
		f.inbox.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("half a station key is rejected", func(t *testing.T) {
		f := newInboxFixture()
		req := submitRequest()
		req.StationID = ""

		_, err := f.uc.Submit(ctx, req)
		assert.ErrorIs(t, err, errors.ErrInvalidRequest)
	})

	t.Run("new-station proposal needs a title and usable coordinates", func(t *testing.T) {
		f := newInboxFixture()
		req := submitRequest()
		req.Country = ""
		req.StationID = ""

		_, err := f.uc.Submit(ctx, req)
		assert.ErrorIs(t, err, errors.ErrInvalidRequest)
	})

	t.Run("valid new-station proposal", func(t *testing.T) {
		f := newInboxFixture()
		req := submitRequest()
		req.Country = ""
		req.StationID = ""
		req.Title = "Neuer Haltepunkt"
		req.Lat = ptrFloat64(50.1)
		req.Lon = ptrFloat64(9.2)
		req.Active = ptrBool(true)

		f.inbox.On("Insert", ctx, mock.Anything).Return(int64(16), nil)
		f.inbox.On("CountPendingNearby", ctx, domain.Coordinates{Lat: 50.1, Lon: 9.2}, int64(16)).Return(0, nil)
		f.monitor.On("Notify", mock.Anything).Return()

		result, err := f.uc.Submit(ctx, req)
		require.NoError(t, err)
		assert.False(t, result.Conflict)
		f.inbox.AssertNotCalled(t, "CountPendingForStation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestInboxUseCase_Accept(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	entry := func() *domain.InboxEntry {
		return &domain.InboxEntry{
			ID:           5,
			Country:      ptrString("de"),
			StationID:    ptrString("41"),
			UserNickname: "anna",
			Extension:    "jpg",
			CreatedAt:    created,
		}
	}

	t.Run("accept queues the import", func(t *testing.T) {
		f := newInboxFixture()
		f.inbox.On("FindByID", ctx, int64(5)).Return(entry(), nil)
		f.inbox.On("MarkAccepted", ctx, int64(5)).Return(nil)
		f.directory.On("Lookup", ctx, "anna").Return(domain.Photographer{Name: "anna", License: "CC BY-SA 4.0"}, true)
		f.queue.On("Publish", ctx, domain.PhotoImport{
			Country:      "de",
			StationID:    "41",
			URLPath:      "/de/5.jpg",
			License:      "CC BY-SA 4.0",
			Photographer: "anna",
			CreatedAt:    created,
			Flag:         "0",
		}).Return(nil)
		f.monitor.On("Notify", mock.Anything).Return()

		err := f.uc.Accept(ctx, 5)
		require.NoError(t, err)
		f.queue.AssertExpectations(t)
	})

	t.Run("unknown photographer falls back to the default license", func(t *testing.T) {
		f := newInboxFixture()
		f.inbox.On("FindByID", ctx, int64(5)).Return(entry(), nil)
		f.inbox.On("MarkAccepted", ctx, int64(5)).Return(nil)
		f.directory.On("Lookup", ctx, "anna").Return(domain.Photographer{}, false)
		f.queue.On("Publish", ctx, mock.MatchedBy(func(imp domain.PhotoImport) bool {
			return imp.License == "CC0 1.0 Universell (CC0 1.0)"
		})).Return(nil)
		f.monitor.On("Notify", mock.Anything).Return()

		require.NoError(t, f.uc.Accept(ctx, 5))
	})

	t.Run("second accept fails", func(t *testing.T) {
		f := newInboxFixture()
		f.inbox.On("FindByID", ctx, int64(5)).Return(entry(), nil)
		f.inbox.On("MarkAccepted", ctx, int64(5)).Return(errors.ErrInboxEntryDone)

		err := f.uc.Accept(ctx, 5)
		assert.ErrorIs(t, err, errors.ErrInboxEntryDone)
		f.queue.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("new-station proposal cannot be accepted directly", func(t *testing.T) {
		f := newInboxFixture()
		proposal := entry()
		proposal.Country = nil
		proposal.StationID = nil
		f.inbox.On("FindByID", ctx, int64(5)).Return(proposal, nil)

		err := f.uc.Accept(ctx, 5)
		assert.ErrorIs(t, err, errors.ErrInvalidRequest)
		f.inbox.AssertNotCalled(t, "MarkAccepted", mock.Anything, mock.Anything)
	})

	t.Run("queue failure does not undo the acceptance", func(t *testing.T) {
		f := newInboxFixture()
		f.inbox.On("FindByID", ctx, int64(5)).Return(entry(), nil)
		f.inbox.On("MarkAccepted", ctx, int64(5)).Return(nil)
		f.directory.On("Lookup", ctx, "anna").Return(domain.Photographer{}, false)
		f.queue.On("Publish", ctx, mock.Anything).Return(fmt.Errorf("redis down"))
		f.monitor.On("Notify", mock.Anything).Return()

		err := f.uc.Accept(ctx, 5)
		assert.NoError(t, err)
	})
}

func TestInboxUseCase_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("reject records the reason", func(t *testing.T) {
		f := newInboxFixture()
		f.inbox.On("MarkRejected", ctx, int64(8), "blurry").Return(nil)
		f.monitor.On("Notify", mock.Anything).Return()

		require.NoError(t, f.uc.Reject(ctx, 8, "blurry"))
		f.inbox.AssertExpectations(t)
	})

	t.Run("second reject fails and keeps the first reason", func(t *testing.T) {
		f := newInboxFixture()
		f.inbox.On("MarkRejected", ctx, int64(8), "too dark").Return(errors.ErrInboxEntryDone)

		err := f.uc.Reject(ctx, 8, "too dark")
		assert.ErrorIs(t, err, errors.ErrInboxEntryDone)
	})
}

func TestInboxUseCase_UpdateChecksum(t *testing.T) {
	ctx := context.Background()

	t.Run("reports other entries with the same checksum", func(t *testing.T) {
		f := newInboxFixture()
		f.inbox.On("UpdateCrc32", ctx, int64(5), uint32(0xCAFE)).Return(nil)
		f.inbox.On("FindByCrc32", ctx, uint32(0xCAFE)).Return([]domain.InboxEntry{
			{ID: 5},
			{ID: 9},
		}, nil)

		result, err := f.uc.UpdateChecksum(ctx, 5, 0xCAFE)
		require.NoError(t, err)
		assert.Equal(t, []int64{9}, result.SameChecksum)
	})

	t.Run("missing entry", func(t *testing.T) {
		f := newInboxFixture()
		f.inbox.On("UpdateCrc32", ctx, int64(404), uint32(1)).Return(errors.ErrInboxEntryNotFound)

		_, err := f.uc.UpdateChecksum(ctx, 404, 1)
		assert.ErrorIs(t, err, errors.ErrInboxEntryNotFound)
	})
}

func TestInboxUseCase_PendingEntries(t *testing.T) {
	ctx := context.Background()

	t.Run("station fallback fills blank title and coordinates", func(t *testing.T) {
		f := newInboxFixture()
		key := domain.StationKey{Country: "de", ID: "41"}
		entries := []domain.InboxEntry{
			{ID: 1, Country: ptrString("de"), StationID: ptrString("41"), UserNickname: "anna", Extension: "jpg"},
			{ID: 2, Title: "Neuer Haltepunkt", Lat: ptrFloat64(50.1), Lon: ptrFloat64(9.2), UserNickname: "bert"},
		}
		station := domain.Station{
			Key:         key,
			Title:       "Fulda",
			Coordinates: domain.Coordinates{Lat: 50.5545, Lon: 9.6838},
			Photo:       &domain.Photo{Key: key},
		}

		f.inbox.On("FindPendingEntries", ctx).Return(entries, nil)
		f.stations.On("FindByKey", ctx, key).Return(station, true, nil)

		views, err := f.uc.PendingEntries(ctx)
		require.NoError(t, err)
		require.Len(t, views, 2)

		assert.Equal(t, "Fulda", views[0].Title)
		require.NotNil(t, views[0].Lat)
		assert.Equal(t, 50.5545, *views[0].Lat)
		assert.True(t, views[0].HasPhoto)
		assert.False(t, views[0].NewStation)

		assert.Equal(t, "Neuer Haltepunkt", views[1].Title)
		assert.True(t, views[1].NewStation)
		assert.False(t, views[1].HasPhoto)
	})
}
