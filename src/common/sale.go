package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"ticketflow/src/config"
	"ticketflow/src/db"
	"ticketflow/src/models"
	"ticketflow/src/monitoring"
	"ticketflow/src/types"
	"time"

	"gorm.io/gorm"
)

func openEventForIssue(ctx context.Context, op string, eventID uint) (*models.Event, error) {
	event, err := GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Status.IsOpen() {
		return nil, types.NewStateError(op, fmt.Sprintf("event %d is %s and does not accept tickets", eventID, event.Status))
	}
	return event, nil
}

// generateCode is swapped out in tests to force code collisions.
var generateCode = GenerateCode

// maxIssueAttempts bounds the reissue loop when a ticket code collides
// at insert time despite the advisory existence check.
const maxIssueAttempts = 3

// classifyDuplicatedKey decides which unique index an insert tripped.
// Tickets carry two: the participant roster key and the ticket code. A
// roster conflict belongs to the caller; nil means the collision was on
// a code and the batch is worth reissuing.
func classifyDuplicatedKey(ctx context.Context, eventID uint, names []string) error {
	existing, err := ExistingParticipantsForEvent(ctx, eventID, 0)
	if err != nil {
		return err
	}
	return CheckDuplicateParticipants(names, existing)
}

func translateInsertError(ctx context.Context, op string, err error, eventID uint, names []string) (retry bool, _ error) {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		if derr := classifyDuplicatedKey(ctx, eventID, names); derr != nil {
			return false, derr
		}
		return true, nil
	}
	var de *types.DomainError
	if errors.As(err, &de) {
		return false, de
	}
	return false, types.NewDependencyError(op, err)
}

// RegisterSale opens a pending sale and issues one inactive ticket per
// participant. Tickets only become scannable after the payment is
// confirmed.
func RegisterSale(ctx context.Context, body *types.RegisterSaleRequestBody) (*models.Sale, error) {
	const op = "registerSale"
	if !config.SalesEnabled() {
		return nil, types.NewStateError(op, "ticket sales are currently disabled")
	}
	event, err := openEventForIssue(ctx, op, body.EventID)
	if err != nil {
		return nil, err
	}
	existing, err := ExistingParticipantsForEvent(ctx, event.ID, 0)
	if err != nil {
		return nil, err
	}
	if err := CheckDuplicateParticipants(body.Participants, existing); err != nil {
		return nil, err
	}
	conn := db.GetDb().WithContext(ctx)
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		saleCode, err := generateCode(ctx, CodeKindSale)
		if err != nil {
			return nil, err
		}
		codes := make([]string, 0, len(body.Participants))
		for range body.Participants {
			code, err := generateCode(ctx, CodeKindTicket)
			if err != nil {
				return nil, err
			}
			codes = append(codes, code)
		}
		// Rebuilt every attempt: a rolled back insert leaves IDs behind
		// on the structs.
		sale := &models.Sale{
			EventID:         event.ID,
			SaleCode:        saleCode,
			NumberOfTickets: uint(len(body.Participants)),
			TotalAmount:     event.TicketPrice * float64(len(body.Participants)),
			PaymentStatus:   types.SALE_PENDING,
		}
		err = conn.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(sale).Error; err != nil {
				return err
			}
			for i, name := range body.Participants {
				ticket := models.Ticket{
					EventID:         event.ID,
					SaleID:          &sale.ID,
					TicketCode:      codes[i],
					ParticipantName: CapitalizeWords(name),
					ParticipantKey:  NormalizeName(name),
					Kind:            types.TICKET_SOLD,
					Status:          types.TICKET_INACTIVE,
				}
				if err := tx.Create(&ticket).Error; err != nil {
					return err
				}
				sale.Tickets = append(sale.Tickets, ticket)
			}
			return nil
		})
		if err == nil {
			monitoring.TrackSaleRegistered(len(sale.Tickets), string(types.TICKET_SOLD))
			return sale, nil
		}
		retry, derr := translateInsertError(ctx, op, err, event.ID, body.Participants)
		if !retry {
			return nil, derr
		}
		log.Printf("Ticket code collided on insert, reissuing batch (%d/%d)\n", attempt+1, maxIssueAttempts)
	}
	return nil, types.NewDependencyError(op, errors.New("could not issue unique codes"))
}

// RegisterComplimentary issues courtesy tickets. They carry no sale and
// are scannable immediately.
func RegisterComplimentary(ctx context.Context, body *types.RegisterComplimentaryRequestBody) ([]models.Ticket, error) {
	const op = "registerComplimentary"
	event, err := openEventForIssue(ctx, op, body.EventID)
	if err != nil {
		return nil, err
	}
	existing, err := ExistingParticipantsForEvent(ctx, event.ID, 0)
	if err != nil {
		return nil, err
	}
	if err := CheckDuplicateParticipants(body.Participants, existing); err != nil {
		return nil, err
	}
	conn := db.GetDb().WithContext(ctx)
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		codes := make([]string, 0, len(body.Participants))
		for range body.Participants {
			code, err := generateCode(ctx, CodeKindTicket)
			if err != nil {
				return nil, err
			}
			codes = append(codes, code)
		}
		var tickets []models.Ticket
		err = conn.Transaction(func(tx *gorm.DB) error {
			for i, name := range body.Participants {
				ticket := models.Ticket{
					EventID:         event.ID,
					TicketCode:      codes[i],
					ParticipantName: CapitalizeWords(name),
					ParticipantKey:  NormalizeName(name),
					Kind:            types.TICKET_COMPLIMENTARY,
					Status:          types.TICKET_VALID,
				}
				if err := tx.Create(&ticket).Error; err != nil {
					return err
				}
				tickets = append(tickets, ticket)
			}
			return nil
		})
		if err == nil {
			monitoring.TrackTicketsIssued(len(tickets), string(types.TICKET_COMPLIMENTARY))
			return tickets, nil
		}
		retry, derr := translateInsertError(ctx, op, err, event.ID, body.Participants)
		if !retry {
			return nil, derr
		}
		log.Printf("Ticket code collided on insert, reissuing batch (%d/%d)\n", attempt+1, maxIssueAttempts)
	}
	return nil, types.NewDependencyError(op, errors.New("could not issue unique codes"))
}

func GetSale(ctx context.Context, id uint) (*models.Sale, error) {
	const op = "getSale"
	var sale models.Sale
	err := db.GetDb().WithContext(ctx).Preload("Tickets").First(&sale, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFoundError(op, fmt.Sprintf("sale %d not found", id))
	}
	if err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	return &sale, nil
}

func GetTicket(ctx context.Context, id uint) (*models.Ticket, error) {
	const op = "getTicket"
	var ticket models.Ticket
	err := db.GetDb().WithContext(ctx).First(&ticket, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFoundError(op, fmt.Sprintf("ticket %d not found", id))
	}
	if err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	return &ticket, nil
}

func ListSalesForEvent(ctx context.Context, eventID uint) ([]models.Sale, error) {
	const op = "listSales"
	var sales []models.Sale
	err := db.GetDb().WithContext(ctx).
		Preload("Tickets").
		Where("event_id = ?", eventID).
		Order("id DESC").
		Find(&sales).Error
	if err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	return sales, nil
}

// ConfirmPayment moves a pending sale to paid and activates its tickets
// in the same transaction, so a crash can never leave a paid sale with
// dead tickets.
func ConfirmPayment(ctx context.Context, id uint) (*models.Sale, error) {
	const op = "confirmPayment"
	sale, err := GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	conn := db.GetDb().WithContext(ctx)
	err = conn.Transaction(func(tx *gorm.DB) error {
		// The pending check rides in the predicate, so a racing expire
		// and confirm can never both win the sale.
		result := tx.Model(&models.Sale{}).
			Where("id = ? AND payment_status = ?", id, types.SALE_PENDING).
			Update("payment_status", types.SALE_PAID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var fresh models.Sale
			if err := tx.First(&fresh, id).Error; err != nil {
				return err
			}
			return types.NewStateError(op, fmt.Sprintf("sale %d is %s and cannot be paid", id, fresh.PaymentStatus))
		}
		return tx.Model(&models.Ticket{}).
			Where("sale_id = ? AND status = ?", id, types.TICKET_INACTIVE).
			Update("status", types.TICKET_ACTIVE).Error
	})
	if err != nil {
		var de *types.DomainError
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, types.NewDependencyError(op, err)
	}
	monitoring.TrackPaymentTransition(string(types.SALE_PAID))
	go models.SalePaidProducer(sale.ID, map[string]any{"sale_id": sale.ID, "sale_code": sale.SaleCode})
	return GetSale(ctx, id)
}

// ExpirePayment abandons a pending sale. Its tickets stay inactive and
// can never be scanned.
func ExpirePayment(ctx context.Context, id uint) (*models.Sale, error) {
	const op = "expirePayment"
	sale, err := GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	result := db.GetDb().WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND payment_status = ?", id, types.SALE_PENDING).
		Update("payment_status", types.SALE_EXPIRED)
	if result.Error != nil {
		return nil, types.NewDependencyError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		fresh, err := GetSale(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, types.NewStateError(op, fmt.Sprintf("sale %d is %s and cannot expire", id, fresh.PaymentStatus))
	}
	monitoring.TrackPaymentTransition(string(types.SALE_EXPIRED))
	go models.SaleExpiredProducer(sale.ID, map[string]any{"sale_id": sale.ID, "sale_code": sale.SaleCode})
	return GetSale(ctx, id)
}

// EditParticipant renames the holder of a ticket, re-checking the event
// roster so the rename cannot create a duplicate.
func EditParticipant(ctx context.Context, ticketID uint, name string) (*models.Ticket, error) {
	const op = "editParticipant"
	var ticket models.Ticket
	err := db.GetDb().WithContext(ctx).First(&ticket, ticketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFoundError(op, fmt.Sprintf("ticket %d not found", ticketID))
	}
	if err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	existing, err := ExistingParticipantsForEvent(ctx, ticket.EventID, ticket.ID)
	if err != nil {
		return nil, err
	}
	if err := CheckDuplicateParticipants([]string{name}, existing); err != nil {
		return nil, err
	}
	updates := map[string]any{
		"participant_name": CapitalizeWords(name),
		"participant_key":  NormalizeName(name),
	}
	if err := db.GetDb().WithContext(ctx).Model(&ticket).Updates(updates).Error; err != nil {
		// A rename never touches the ticket code, so a unique violation
		// here can only be the roster key.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, types.NewDuplicateError(op, fmt.Sprintf("%s is already registered for this event", CapitalizeWords(name)))
		}
		return nil, types.NewDependencyError(op, err)
	}
	return &ticket, nil
}

// DeleteSale hard deletes a sale and its tickets.
func DeleteSale(ctx context.Context, id uint) error {
	const op = "deleteSale"
	if _, err := GetSale(ctx, id); err != nil {
		return err
	}
	conn := db.GetDb().WithContext(ctx)
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("sale_id = ?", id).Delete(&models.Ticket{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Sale{}, id).Error
	})
	if err != nil {
		return types.NewDependencyError(op, err)
	}
	return nil
}

// ExpireStaleSales is the background sweep behind the scheduler. Pending
// sales older than age move to expired in bulk.
func ExpireStaleSales(ctx context.Context, age time.Duration) (int64, error) {
	const op = "expireStaleSales"
	if age <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-age)
	result := db.GetDb().WithContext(ctx).Model(&models.Sale{}).
		Where("payment_status = ? AND created_at < ?", types.SALE_PENDING, cutoff).
		Update("payment_status", types.SALE_EXPIRED)
	if result.Error != nil {
		return 0, types.NewDependencyError(op, result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("Expired %d stale pending sale(s)\n", result.RowsAffected)
		for i := int64(0); i < result.RowsAffected; i++ {
			monitoring.TrackPaymentTransition(string(types.SALE_EXPIRED))
		}
	}
	return result.RowsAffected, nil
}
