package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:outbox_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	events := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	dlq := `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(events).Error)
	require.NoError(t, db.Exec(dlq).Error)
	return db
}

func TestEmitWritesEnvelopeRow(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	orderID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventScanRecorded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         &ActorRef{Station: "ST-04", Role: "picker"},
		Data:          map[string]string{"item_code": "STK-778"},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, event)
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, enums.EventScanRecorded, row.EventType)
	assert.Equal(t, enums.AggregateOrder, row.AggregateType)
	assert.Equal(t, orderID, row.AggregateID)
	assert.Nil(t, row.PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, SchemaVersion, envelope.Version)
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		t.Fatalf("event id %q is not a uuid: %v", envelope.EventID, err)
	}
	assert.False(t, envelope.OccurredAt.IsZero())
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "ST-04", envelope.Actor.Station)
	assert.Equal(t, "picker", envelope.Actor.Role)

	var data map[string]string
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "STK-778", data["item_code"])
}

func TestEmitPreservesExplicitVersion(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventTripClosed,
			AggregateType: enums.AggregateShipment,
			AggregateID:   uuid.New(),
			Data:          map[string]string{},
			Version:       3,
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, 3, envelope.Version)
}

func TestEmitRequiresTransaction(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	err := svc.Emit(context.Background(), nil, DomainEvent{
		EventType:     enums.EventScanRecorded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	})
	require.Error(t, err)
}

func TestEmitIfNotExistsSkipsDuplicate(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	shipmentID := uuid.New()
	emit := func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, DomainEvent{
				EventType:     enums.EventTripClosed,
				AggregateType: enums.AggregateShipment,
				AggregateID:   shipmentID,
				Data:          map[string]string{"order_no": "SO-1001"},
			})
		})
	}
	require.NoError(t, emit())
	require.NoError(t, emit())

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFetchUnpublishedForPublishOrdersAndCapsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	base := time.Now().UTC().Add(-time.Hour)
	first := insertOutboxRow(t, db, base, 3)
	second := insertOutboxRow(t, db, base.Add(time.Minute), 0)
	insertOutboxRow(t, db, base.Add(2*time.Minute), 10)

	var fetched []models.OutboxEvent
	err := db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 50, 10)
		fetched = rows
		return err
	})
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, first, fetched[0].ID)
	assert.Equal(t, second, fetched[1].ID)
}

func TestMarkFailedAndTerminalLifecycle(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	id := insertOutboxRow(t, db, time.Now().UTC(), 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkFailedTx(tx, id, errors.New("publish timeout"))
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.Where("id = ?", id).First(&row).Error)
	assert.Equal(t, 1, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "publish timeout", *row.LastError)

	err = db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkTerminalTx(tx, id, errors.New("unsupported event"), 10)
	})
	require.NoError(t, err)
	require.NoError(t, db.Where("id = ?", id).First(&row).Error)
	assert.Equal(t, 10, row.AttemptCount)

	var publishable []models.OutboxEvent
	err = db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 50, 10)
		publishable = rows
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, publishable)
}

func TestMarkPublishedExcludesRow(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	id := insertOutboxRow(t, db, time.Now().UTC(), 0)
	require.NoError(t, repo.MarkPublished(id))

	rows, err := repo.FetchUnpublished(50)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeletePublishedBefore(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	old := insertOutboxRow(t, db, time.Now().UTC().Add(-72*time.Hour), 0)
	recent := insertOutboxRow(t, db, time.Now().UTC(), 0)
	pending := insertOutboxRow(t, db, time.Now().UTC().Add(-72*time.Hour), 0)
	dead := insertOutboxRow(t, db, time.Now().UTC().Add(-72*time.Hour), 10)

	oldPublished := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("id = ?", old).Update("published_at", oldPublished).Error)
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("id = ?", recent).Update("published_at", time.Now().UTC()).Error)

	var deleted int64
	err := db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.DeletePublishedBefore(context.Background(), tx, time.Now().UTC().Add(-24*time.Hour), 5)
		deleted = rows
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	ids := map[uuid.UUID]bool{remaining[0].ID: true, remaining[1].ID: true}
	assert.True(t, ids[recent])
	assert.True(t, ids[pending])
	assert.False(t, ids[dead])
}

func TestDLQInsertTruncatesErrorMessage(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewDLQRepository(db)

	eventID := uuid.New()
	longErr := strings.Repeat("x", 1500)
	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.InsertTx(tx, models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventScanRecorded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &longErr,
			AttemptCount:  10,
			FailedAt:      time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	found, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.ErrorMessage)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)

	missing, err := repo.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func insertOutboxRow(t *testing.T, db *gorm.DB, createdAt time.Time, attempts int) uuid.UUID {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventScanRecorded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
		CreatedAt:     createdAt,
		AttemptCount:  attempts,
	}
	require.NoError(t, db.Create(&row).Error)
	return row.ID
}
