package common

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"ticketflow/src/db"
	"ticketflow/src/models"
	"ticketflow/src/types"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSale(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)

	sale := seedSale(t, event.ID, "ana silva", "Bruno Reis", "CLARA LUZ")

	assert.Equal(t, types.SALE_PENDING, sale.PaymentStatus)
	assert.EqualValues(t, 3, sale.NumberOfTickets)
	assert.Equal(t, float64(150), sale.TotalAmount)
	assert.Regexp(t, `^BUY-`, sale.SaleCode)
	require.Len(t, sale.Tickets, 3)
	for _, ticket := range sale.Tickets {
		assert.Equal(t, types.TICKET_INACTIVE, ticket.Status)
		assert.Equal(t, types.TICKET_SOLD, ticket.Kind)
		assert.Regexp(t, `^TICKET-`, ticket.TicketCode)
	}
	assert.Equal(t, "Ana Silva", sale.Tickets[0].ParticipantName)
}

func TestRegisterSaleDuplicateParticipant(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	seedSale(t, event.ID, "Ana Silva")

	_, err := RegisterSale(context.Background(), &types.RegisterSaleRequestBody{
		EventID:      event.ID,
		Participants: []string{"ana   silva"},
	})
	assert.True(t, types.IsKind(err, types.ErrDuplicate))

	var tickets int64
	require.NoError(t, db.GetDb().Model(&models.Ticket{}).Count(&tickets).Error)
	assert.EqualValues(t, 1, tickets)
}

func TestRegisterSaleDuplicateWithinBatch(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)

	_, err := RegisterSale(context.Background(), &types.RegisterSaleRequestBody{
		EventID:      event.ID,
		Participants: []string{"Ana Silva", "ana   silva"},
	})
	assert.True(t, types.IsKind(err, types.ErrDuplicate))

	var tickets int64
	require.NoError(t, db.GetDb().Model(&models.Ticket{}).Count(&tickets).Error)
	assert.Zero(t, tickets)
}

func TestRegisterSaleClosedEvent(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_FINISHED)

	_, err := RegisterSale(context.Background(), &types.RegisterSaleRequestBody{
		EventID:      event.ID,
		Participants: []string{"Ana Silva"},
	})
	assert.True(t, types.IsKind(err, types.ErrState))
}

func TestRegisterSaleDisabled(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	t.Setenv("SALES_ENABLED", "false")
	event := seedEvent(t, types.EVENT_PUBLISHED)

	_, err := RegisterSale(context.Background(), &types.RegisterSaleRequestBody{
		EventID:      event.ID,
		Participants: []string{"Ana Silva"},
	})
	assert.True(t, types.IsKind(err, types.ErrState))
}

func TestConfirmPaymentActivatesTickets(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	sale := seedSale(t, event.ID, "Ana Silva", "Bruno Reis", "Clara Luz")

	paid, err := ConfirmPayment(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SALE_PAID, paid.PaymentStatus)
	require.Len(t, paid.Tickets, 3)
	for _, ticket := range paid.Tickets {
		assert.Equal(t, types.TICKET_ACTIVE, ticket.Status)
	}

	// Paid is terminal.
	_, err = ConfirmPayment(context.Background(), sale.ID)
	assert.True(t, types.IsKind(err, types.ErrState))
	_, err = ExpirePayment(context.Background(), sale.ID)
	assert.True(t, types.IsKind(err, types.ErrState))
}

func TestExpirePaymentLeavesTicketsInactive(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	sale := seedSale(t, event.ID, "Ana Silva")

	expired, err := ExpirePayment(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SALE_EXPIRED, expired.PaymentStatus)
	require.Len(t, expired.Tickets, 1)
	assert.Equal(t, types.TICKET_INACTIVE, expired.Tickets[0].Status)

	_, err = ConfirmPayment(context.Background(), sale.ID)
	assert.True(t, types.IsKind(err, types.ErrState))
}

func TestPaymentRaceSettlesConsistently(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)

	// Whoever wins the pending row decides the sale; the loser gets a
	// state error and the tickets always match the outcome.
	for i := 0; i < 10; i++ {
		sale := seedSale(t, event.ID, fmt.Sprintf("Convidado %d", i))

		var wg sync.WaitGroup
		var settled atomic.Int64
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := ConfirmPayment(context.Background(), sale.ID); err == nil {
				settled.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := ExpirePayment(context.Background(), sale.ID); err == nil {
				settled.Add(1)
			}
		}()
		wg.Wait()

		assert.EqualValues(t, 1, settled.Load())
		final, err := GetSale(context.Background(), sale.ID)
		require.NoError(t, err)
		require.Len(t, final.Tickets, 1)
		switch final.PaymentStatus {
		case types.SALE_PAID:
			assert.Equal(t, types.TICKET_ACTIVE, final.Tickets[0].Status)
		case types.SALE_EXPIRED:
			assert.Equal(t, types.TICKET_INACTIVE, final.Tickets[0].Status)
		default:
			t.Fatalf("sale %d settled as %s", sale.ID, final.PaymentStatus)
		}
	}
}

func TestRegisterSaleRetriesOnCodeCollision(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	first := seedSale(t, event.ID, "Ana Silva")
	taken := first.Tickets[0].TicketCode

	// Hand out a code already on file once, forcing the insert to trip
	// the code index and the batch to be reissued.
	var calls atomic.Int64
	prev := generateCode
	generateCode = func(ctx context.Context, kind CodeKind) (string, error) {
		if kind == CodeKindTicket && calls.Add(1) == 1 {
			return taken, nil
		}
		return prev(ctx, kind)
	}
	t.Cleanup(func() { generateCode = prev })

	sale, err := RegisterSale(context.Background(), &types.RegisterSaleRequestBody{
		EventID:      event.ID,
		Participants: []string{"Bruno Reis"},
	})
	require.NoError(t, err)
	require.Len(t, sale.Tickets, 1)
	assert.NotEqual(t, taken, sale.Tickets[0].TicketCode)

	var tickets int64
	require.NoError(t, db.GetDb().Model(&models.Ticket{}).Count(&tickets).Error)
	assert.EqualValues(t, 2, tickets)
}

func TestClassifyDuplicatedKey(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	seedSale(t, event.ID, "Ana Silva")

	err := classifyDuplicatedKey(context.Background(), event.ID, []string{"ana silva"})
	assert.True(t, types.IsKind(err, types.ErrDuplicate))

	// No roster conflict means the violated index was the ticket code.
	assert.NoError(t, classifyDuplicatedKey(context.Background(), event.ID, []string{"Bruno Reis"}))
}

func TestRegisterComplimentary(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)

	tickets, err := RegisterComplimentary(context.Background(), &types.RegisterComplimentaryRequestBody{
		EventID:      event.ID,
		Participants: []string{"Dani Prado"},
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, types.TICKET_COMPLIMENTARY, tickets[0].Kind)
	assert.Equal(t, types.TICKET_VALID, tickets[0].Status)
	assert.Nil(t, tickets[0].SaleID)
}

func TestComplimentaryCollidesWithSold(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	seedSale(t, event.ID, "Ana Silva")

	_, err := RegisterComplimentary(context.Background(), &types.RegisterComplimentaryRequestBody{
		EventID:      event.ID,
		Participants: []string{"Âna Sílva"},
	})
	assert.True(t, types.IsKind(err, types.ErrDuplicate))
}

func TestEditParticipant(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	sale := seedSale(t, event.ID, "Ana Silva", "Bruno Reis")
	ticket := sale.Tickets[0]

	// Renaming to yourself with different casing is not a duplicate.
	renamed, err := EditParticipant(context.Background(), ticket.ID, "ANA  SILVA")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, renamed.ID)

	_, err = EditParticipant(context.Background(), ticket.ID, "bruno reis")
	assert.True(t, types.IsKind(err, types.ErrDuplicate))

	renamed, err = EditParticipant(context.Background(), ticket.ID, "clara luz")
	require.NoError(t, err)
	var reloaded models.Ticket
	require.NoError(t, db.GetDb().First(&reloaded, renamed.ID).Error)
	assert.Equal(t, "Clara Luz", reloaded.ParticipantName)
	assert.Equal(t, "CLARA LUZ", reloaded.ParticipantKey)
}

func TestDeleteSaleRemovesTickets(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	sale := seedSale(t, event.ID, "Ana Silva", "Bruno Reis")

	require.NoError(t, DeleteSale(context.Background(), sale.ID))

	var tickets int64
	require.NoError(t, db.GetDb().Unscoped().Model(&models.Ticket{}).Count(&tickets).Error)
	assert.Zero(t, tickets)

	// Roster slots free up once the sale is gone.
	_, err := RegisterSale(context.Background(), &types.RegisterSaleRequestBody{
		EventID:      event.ID,
		Participants: []string{"Ana Silva"},
	})
	assert.NoError(t, err)
}

func TestExpireStaleSales(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	stale := seedSale(t, event.ID, "Ana Silva")
	fresh := seedSale(t, event.ID, "Bruno Reis")

	// Age the first sale past the cutoff.
	require.NoError(t, db.GetDb().Model(&models.Sale{}).Where("id = ?", stale.ID).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	n, err := ExpireStaleSales(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	reloaded, err := GetSale(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SALE_EXPIRED, reloaded.PaymentStatus)

	reloaded, err = GetSale(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SALE_PENDING, reloaded.PaymentStatus)
}
