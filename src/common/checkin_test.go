package common

import (
	"context"
	"sync"
	"testing"
	"ticketflow/src/db"
	"ticketflow/src/models"
	"ticketflow/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCourtesy(t *testing.T, eventID uint, name string) models.Ticket {
	t.Helper()
	tickets, err := RegisterComplimentary(context.Background(), &types.RegisterComplimentaryRequestBody{
		EventID:      eventID,
		Participants: []string{name},
	})
	require.NoError(t, err)
	return tickets[0]
}

func TestValidateTicketGranted(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	ticket := seedCourtesy(t, event.ID, "Ana Silva")

	result, err := ValidateTicket(context.Background(), &types.CheckInRequestBody{
		Code:     ticket.TicketCode,
		EventID:  event.ID,
		Operator: "porta-1",
	})
	require.NoError(t, err)
	assert.Equal(t, CHECKIN_GRANTED, result.Outcome)
	assert.Contains(t, result.Message, "Ana Silva")

	var reloaded models.Ticket
	require.NoError(t, db.GetDb().First(&reloaded, ticket.ID).Error)
	assert.Equal(t, types.TICKET_USED, reloaded.Status)
	assert.NotNil(t, reloaded.CheckedInAt)
	assert.Equal(t, "porta-1", reloaded.CheckedInBy)
}

func TestValidateTicketAlreadyUsed(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	ticket := seedCourtesy(t, event.ID, "Ana Silva")
	body := &types.CheckInRequestBody{Code: ticket.TicketCode, Operator: "porta-1"}

	first, err := ValidateTicket(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, CHECKIN_GRANTED, first.Outcome)

	second, err := ValidateTicket(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, CHECKIN_ALREADY_USED, second.Outcome)
	assert.Contains(t, second.Message, "already used")
}

func TestValidateTicketNotEligible(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	sale := seedSale(t, event.ID, "Ana Silva")

	// Pending payment, ticket still inactive.
	result, err := ValidateTicket(context.Background(), &types.CheckInRequestBody{
		Code: sale.Tickets[0].TicketCode,
	})
	require.NoError(t, err)
	assert.Equal(t, CHECKIN_NOT_ELIGIBLE, result.Outcome)

	var reloaded models.Ticket
	require.NoError(t, db.GetDb().First(&reloaded, sale.Tickets[0].ID).Error)
	assert.Equal(t, types.TICKET_INACTIVE, reloaded.Status)
}

func TestValidateTicketUnknownCode(t *testing.T) {
	newTestDB(t)

	result, err := ValidateTicket(context.Background(), &types.CheckInRequestBody{
		Code: "TICKET-20260101-000000-XYZ",
	})
	require.NoError(t, err)
	assert.Equal(t, CHECKIN_UNKNOWN_CODE, result.Outcome)
	assert.Nil(t, result.Ticket)
}

func TestValidateTicketWrongEvent(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_FINISHED)
	other := seedEvent(t, types.EVENT_PUBLISHED)
	ticket := seedCourtesy(t, other.ID, "Ana Silva")

	result, err := ValidateTicket(context.Background(), &types.CheckInRequestBody{
		Code:    ticket.TicketCode,
		EventID: event.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, CHECKIN_WRONG_EVENT, result.Outcome)

	// The scan must not consume the ticket.
	var reloaded models.Ticket
	require.NoError(t, db.GetDb().First(&reloaded, ticket.ID).Error)
	assert.Equal(t, types.TICKET_VALID, reloaded.Status)
}

func TestValidateTicketPaidSale(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	sale := seedSale(t, event.ID, "Ana Silva")
	_, err := ConfirmPayment(context.Background(), sale.ID)
	require.NoError(t, err)

	result, err := ValidateTicket(context.Background(), &types.CheckInRequestBody{
		Code: sale.Tickets[0].TicketCode,
	})
	require.NoError(t, err)
	assert.Equal(t, CHECKIN_GRANTED, result.Outcome)
}

// Fifty scanners fire the same code at once. Exactly one wins.
func TestValidateTicketConcurrent(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	event := seedEvent(t, types.EVENT_PUBLISHED)
	ticket := seedCourtesy(t, event.ID, "Ana Silva")

	const scanners = 50
	outcomes := make([]CheckInOutcome, scanners)
	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := ValidateTicket(context.Background(), &types.CheckInRequestBody{
				Code:     ticket.TicketCode,
				Operator: "porta-1",
			})
			if err != nil {
				return
			}
			outcomes[i] = result.Outcome
		}(i)
	}
	wg.Wait()

	granted := 0
	for _, outcome := range outcomes {
		if outcome == CHECKIN_GRANTED {
			granted++
		}
	}
	assert.Equal(t, 1, granted)

	var reloaded models.Ticket
	require.NoError(t, db.GetDb().First(&reloaded, ticket.ID).Error)
	assert.Equal(t, types.TICKET_USED, reloaded.Status)
}

func TestUndoCheckIn(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	ctx := context.Background()
	event := seedEvent(t, types.EVENT_PUBLISHED)

	courtesy := seedCourtesy(t, event.ID, "Ana Silva")
	sale := seedSale(t, event.ID, "Bruno Reis")
	_, err := ConfirmPayment(ctx, sale.ID)
	require.NoError(t, err)
	sold := sale.Tickets[0]

	for _, code := range []string{courtesy.TicketCode, sold.TicketCode} {
		result, err := ValidateTicket(ctx, &types.CheckInRequestBody{Code: code, Operator: "porta-1"})
		require.NoError(t, err)
		require.Equal(t, CHECKIN_GRANTED, result.Outcome)
	}

	undone, err := UndoCheckIn(ctx, courtesy.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TICKET_VALID, undone.Status)
	assert.Nil(t, undone.CheckedInAt)
	assert.Empty(t, undone.CheckedInBy)

	undone, err = UndoCheckIn(ctx, sold.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TICKET_ACTIVE, undone.Status)

	// Nothing left to undo.
	_, err = UndoCheckIn(ctx, sold.ID)
	assert.True(t, types.IsKind(err, types.ErrState))

	// The undone ticket scans again.
	result, err := ValidateTicket(ctx, &types.CheckInRequestBody{Code: courtesy.TicketCode})
	require.NoError(t, err)
	assert.Equal(t, CHECKIN_GRANTED, result.Outcome)
}

func TestRecentCheckIns(t *testing.T) {
	newTestDB(t)
	fastBackoff(t)
	ctx := context.Background()
	event := seedEvent(t, types.EVENT_PUBLISHED)

	names := []string{"Ana Silva", "Bruno Reis", "Clara Luz"}
	for _, name := range names {
		ticket := seedCourtesy(t, event.ID, name)
		result, err := ValidateTicket(ctx, &types.CheckInRequestBody{Code: ticket.TicketCode})
		require.NoError(t, err)
		require.Equal(t, CHECKIN_GRANTED, result.Outcome)
	}

	recent, err := RecentCheckIns(ctx, event.ID, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	all, err := RecentCheckIns(ctx, event.ID, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
