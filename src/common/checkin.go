package common

import (
	"context"
	"errors"
	"fmt"
	"ticketflow/src/db"
	"ticketflow/src/models"
	"ticketflow/src/monitoring"
	"ticketflow/src/types"
	"time"

	"gorm.io/gorm"
)

type CheckInOutcome string

const (
	CHECKIN_GRANTED      CheckInOutcome = "granted"
	CHECKIN_ALREADY_USED CheckInOutcome = "already_used"
	CHECKIN_NOT_ELIGIBLE CheckInOutcome = "not_eligible"
	CHECKIN_UNKNOWN_CODE CheckInOutcome = "unknown_code"
	CHECKIN_WRONG_EVENT  CheckInOutcome = "wrong_event"
)

type CheckInResult struct {
	Outcome CheckInOutcome `json:"outcome"`
	Ticket  *models.Ticket `json:"ticket,omitempty"`
	Message string         `json:"message"`
}

// ValidateTicket admits a ticket by code. The decision is a single
// conditional update keyed on the eligible statuses; whichever scanner
// wins the update gets Granted, every concurrent loser re-reads the row
// and reports what actually happened. No lock is taken and no
// read-then-write gap exists.
func ValidateTicket(ctx context.Context, body *types.CheckInRequestBody) (*CheckInResult, error) {
	const op = "validateTicket"
	conn := db.GetDb().WithContext(ctx)
	now := time.Now()
	admit := conn.Model(&models.Ticket{}).
		Where("ticket_code = ? AND status IN ?", body.Code, types.CheckInEligibleStatuses)
	if body.EventID > 0 {
		admit = admit.Where("event_id = ?", body.EventID)
	}
	result := admit.Updates(map[string]any{
		"status":        types.TICKET_USED,
		"checked_in_at": &now,
		"checked_in_by": body.Operator,
	})
	if result.Error != nil {
		return nil, types.NewDependencyError(op, result.Error)
	}
	var ticket models.Ticket
	err := conn.Where("ticket_code = ?", body.Code).First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		monitoring.TrackCheckIn(string(CHECKIN_UNKNOWN_CODE))
		return &CheckInResult{
			Outcome: CHECKIN_UNKNOWN_CODE,
			Message: fmt.Sprintf("no ticket with code %s", body.Code),
		}, nil
	}
	if err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	if result.RowsAffected == 0 {
		outcome := CHECKIN_NOT_ELIGIBLE
		message := fmt.Sprintf("ticket %s is %s and cannot be admitted", ticket.TicketCode, ticket.Status)
		switch {
		case body.EventID > 0 && ticket.EventID != body.EventID:
			outcome = CHECKIN_WRONG_EVENT
			message = fmt.Sprintf("ticket %s belongs to event %d", ticket.TicketCode, ticket.EventID)
		case ticket.Status == types.TICKET_USED:
			outcome = CHECKIN_ALREADY_USED
			message = fmt.Sprintf("ticket %s was already used", ticket.TicketCode)
			if ticket.CheckedInAt != nil {
				message = fmt.Sprintf("ticket %s was already used at %s", ticket.TicketCode, ticket.CheckedInAt.Format(time.RFC3339))
			}
		}
		monitoring.TrackCheckIn(string(outcome))
		return &CheckInResult{Outcome: outcome, Ticket: &ticket, Message: message}, nil
	}
	monitoring.TrackCheckIn(string(CHECKIN_GRANTED))
	go models.TicketCheckedInProducer(ticket.ID, map[string]any{
		"ticket_id":   ticket.ID,
		"ticket_code": ticket.TicketCode,
		"event_id":    ticket.EventID,
		"operator":    body.Operator,
	})
	return &CheckInResult{
		Outcome: CHECKIN_GRANTED,
		Ticket:  &ticket,
		Message: fmt.Sprintf("welcome, %s", ticket.ParticipantName),
	}, nil
}

// UndoCheckIn reverses an admission. Sold tickets return to active,
// courtesies to valid, and the audit columns are cleared.
func UndoCheckIn(ctx context.Context, ticketID uint) (*models.Ticket, error) {
	const op = "undoCheckIn"
	conn := db.GetDb().WithContext(ctx)
	var ticket models.Ticket
	err := conn.First(&ticket, ticketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFoundError(op, fmt.Sprintf("ticket %d not found", ticketID))
	}
	if err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	if ticket.Status != types.TICKET_USED {
		return nil, types.NewStateError(op, fmt.Sprintf("ticket %d is %s, nothing to undo", ticketID, ticket.Status))
	}
	restore := types.TICKET_ACTIVE
	if ticket.Kind == types.TICKET_COMPLIMENTARY {
		restore = types.TICKET_VALID
	}
	err = conn.Model(&ticket).Updates(map[string]any{
		"status":        restore,
		"checked_in_at": nil,
		"checked_in_by": "",
	}).Error
	if err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	ticket.Status = restore
	ticket.CheckedInAt = nil
	ticket.CheckedInBy = ""
	return &ticket, nil
}

// RecentCheckIns lists the latest admissions, newest first.
func RecentCheckIns(ctx context.Context, eventID uint, limit int) ([]models.Ticket, error) {
	const op = "recentCheckIns"
	if limit <= 0 {
		limit = 20
	}
	query := db.GetDb().WithContext(ctx).
		Where("status = ?", types.TICKET_USED).
		Order("checked_in_at DESC").
		Limit(limit)
	if eventID > 0 {
		query = query.Where("event_id = ?", eventID)
	}
	var tickets []models.Ticket
	if err := query.Find(&tickets).Error; err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	return tickets, nil
}
