package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/internal/testdb"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
)

type orderPayload struct {
	OrderNumber string `json:"order_number"`
}

func TestEmitStoresEnvelopeInTransaction(t *testing.T) {
	conn := testdb.Open(t)
	svc := NewService(NewRepository(conn), nil)
	orderID := uuid.New()
	vendorID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: uuid.New(), VendorID: &vendorID, Role: enums.ActorRoleVendor},
			Data:          orderPayload{OrderNumber: "EVT-2026-000001"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, enums.ActorRoleVendor, envelope.Actor.Role)

	var data orderPayload
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "EVT-2026-000001", data.OrderNumber)
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	conn := testdb.Open(t)
	svc := NewService(NewRepository(conn), nil)

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]string{"to_status": "cancelled"},
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitValidatesInput(t *testing.T) {
	conn := testdb.Open(t)
	svc := NewService(NewRepository(conn), nil)

	err := svc.Emit(context.Background(), nil, DomainEvent{AggregateID: uuid.New()})
	assert.Error(t, err)

	err = svc.Emit(context.Background(), conn, DomainEvent{EventType: enums.EventOrderCreated})
	assert.Error(t, err)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)

	first := mustInsertEvent(t, conn, repo, time.Now().Add(-2*time.Minute))
	second := mustInsertEvent(t, conn, repo, time.Now().Add(-time.Minute))
	parked := mustInsertEvent(t, conn, repo, time.Now())

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkFailedTx(tx, second.ID, errors.New("pubsub unavailable")); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, parked.ID, errors.New("bad payload"), 3)
	}))

	var batch []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		batch, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, batch, 2)
	assert.Equal(t, first.ID, batch[0].ID)
	assert.Equal(t, second.ID, batch[1].ID)
	assert.Equal(t, 1, batch[1].AttemptCount)
	require.NotNil(t, batch[1].LastError)
	assert.Equal(t, "pubsub unavailable", *batch[1].LastError)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return repo.MarkPublishedTx(tx, first.ID)
	}))

	var stored models.OutboxEvent
	require.NoError(t, conn.First(&stored, "id = ?", first.ID).Error)
	require.NotNil(t, stored.PublishedAt)
}

func TestDeletePublishedBefore(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)

	old := mustInsertEvent(t, conn, repo, time.Now().Add(-60*24*time.Hour))
	fresh := mustInsertEvent(t, conn, repo, time.Now())
	pending := mustInsertEvent(t, conn, repo, time.Now().Add(-60*24*time.Hour))

	oldPublished := time.Now().UTC().Add(-45 * 24 * time.Hour)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", old.ID).Update("published_at", oldPublished).Error)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", fresh.ID).Update("published_at", time.Now().UTC()).Error)

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Order("created_at ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	ids := []uuid.UUID{remaining[0].ID, remaining[1].ID}
	assert.Contains(t, ids, fresh.ID)
	assert.Contains(t, ids, pending.ID)
}

func TestDLQInsertTruncatesMessage(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewDLQRepository(conn)
	eventID := uuid.New()
	long := make([]byte, maxDLQErrorLen+200)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return repo.InsertTx(tx, models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventPaymentCompleted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &msg,
			AttemptCount:  10,
		})
	}))

	stored, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, maxDLQErrorLen)

	missing, err := repo.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func mustInsertEvent(t *testing.T, conn *gorm.DB, repo *Repository, createdAt time.Time) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
		CreatedAt:     createdAt.UTC(),
	}
	require.NoError(t, repo.Insert(conn, row))
	return row
}
