package common

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"ticketflow/src/db"
	"ticketflow/src/models"
	"ticketflow/src/types"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDbSeq atomic.Int64

// newTestDB swaps the store singleton for a fresh in-memory database.
// One open connection keeps concurrent writers serialized the way a
// single postgres row lock would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:test%d?mode=memory&cache=shared", testDbSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&models.Event{}, &models.Sale{}, &models.Ticket{}))
	db.NewDB(conn)
	t.Cleanup(func() {
		db.NewDB(nil)
		sqlDB.Close()
	})
	return conn
}

func fastBackoff(t *testing.T) {
	t.Helper()
	prev := codeRetryBackoff
	codeRetryBackoff = time.Millisecond
	t.Cleanup(func() { codeRetryBackoff = prev })
}

func seedEvent(t *testing.T, status types.EventStatus) *models.Event {
	t.Helper()
	event := &models.Event{
		Name:        "Noite Teste",
		Location:    "Galpao 7",
		Date:        time.Now().AddDate(0, 0, 7),
		StartTime:   "21:00",
		TicketPrice: 50,
		ImageKey:    "events/noite-teste.jpg",
		Status:      status,
	}
	require.NoError(t, db.GetDb().Create(event).Error)
	return event
}

func seedSale(t *testing.T, eventID uint, participants ...string) *models.Sale {
	t.Helper()
	sale, err := RegisterSale(context.Background(), &types.RegisterSaleRequestBody{
		EventID:      eventID,
		Participants: participants,
	})
	require.NoError(t, err)
	return sale
}
