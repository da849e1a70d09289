package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"ticketflow/src/config"
	"ticketflow/src/db"
	"ticketflow/src/models"
	"ticketflow/src/types"
	"time"

	"gorm.io/gorm"
)

// startOfToday is midnight UTC, the same zone parsed event dates carry,
// so "today" stays acceptable until the calendar day ends.
func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// CreateDraftEvent opens a new draft. Any event still open is force
// finished in the same transaction, so at most one event accepts
// operations at a time.
func CreateDraftEvent(ctx context.Context, body *types.CreateEventRequestBody) (*models.Event, error) {
	const op = "createDraftEvent"
	date, err := time.Parse(config.DATE_PARSE_FORMAT, body.Date)
	if err != nil {
		return nil, types.NewValidationError(op, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", body.Date))
	}
	if date.Before(startOfToday()) {
		return nil, types.NewValidationError(op, fmt.Sprintf("event date %s is in the past", body.Date))
	}
	if body.TicketPrice <= 0 {
		return nil, types.NewValidationError(op, "ticket price must be greater than zero")
	}
	event := &models.Event{
		Name:        body.Name,
		Location:    body.Location,
		Date:        date,
		StartTime:   body.Time,
		TicketPrice: body.TicketPrice,
		ImageKey:    body.ImageKey,
		Status:      types.EVENT_DRAFT,
	}
	conn := db.GetDb().WithContext(ctx)
	err = conn.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		forced := tx.Model(&models.Event{}).
			Where("status IN ?", types.OpenEventStatuses).
			Updates(map[string]any{"status": types.EVENT_FINISHED, "closed_at": &now})
		if forced.Error != nil {
			return forced.Error
		}
		if forced.RowsAffected > 0 {
			log.Printf("Force finished %d open event(s) before creating %q\n", forced.RowsAffected, body.Name)
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	return event, nil
}

func GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	const op = "getEvent"
	var event models.Event
	err := db.GetDb().WithContext(ctx).First(&event, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFoundError(op, fmt.Sprintf("event %d not found", id))
	}
	if err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	return &event, nil
}

// CurrentOpenEvent returns the single event accepting operations, or a
// not found error when none is open.
func CurrentOpenEvent(ctx context.Context) (*models.Event, error) {
	const op = "currentOpenEvent"
	var event models.Event
	err := db.GetDb().WithContext(ctx).
		Where("status IN ?", types.OpenEventStatuses).
		Order("id DESC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFoundError(op, "no open event")
	}
	if err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	return &event, nil
}

func ListEvents(ctx context.Context) ([]models.Event, error) {
	const op = "listEvents"
	var events []models.Event
	if err := db.GetDb().WithContext(ctx).Order("date DESC").Find(&events).Error; err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	return events, nil
}

// transitionEvent guards the source status in the update predicate
// itself; a concurrent transition cannot slip between check and write.
func transitionEvent(ctx context.Context, op string, id uint, to types.EventStatus, extra map[string]any) (*models.Event, error) {
	if _, err := GetEvent(ctx, id); err != nil {
		return nil, err
	}
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	result := db.GetDb().WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND status IN ?", id, types.EventTransitionSources(to)).
		Updates(updates)
	if result.Error != nil {
		return nil, types.NewDependencyError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		fresh, err := GetEvent(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, types.NewStateError(op, fmt.Sprintf("event %d cannot go from %s to %s", id, fresh.Status, to))
	}
	return GetEvent(ctx, id)
}

func PublishEvent(ctx context.Context, id uint) (*models.Event, error) {
	const op = "publishEvent"
	event, err := transitionEvent(ctx, op, id, types.EVENT_PUBLISHED, nil)
	if err != nil {
		return nil, err
	}
	go models.EventPublishedProducer(event.ID, map[string]any{"event_id": event.ID, "name": event.Name})
	return event, nil
}

// FinalizeEvent closes an event. Used tickets stay used; everything else
// is the history of a finished night and is left untouched.
func FinalizeEvent(ctx context.Context, id uint) (*models.Event, error) {
	const op = "finalizeEvent"
	now := time.Now()
	event, err := transitionEvent(ctx, op, id, types.EVENT_FINISHED, map[string]any{"closed_at": &now})
	if err != nil {
		return nil, err
	}
	go models.EventFinalizedProducer(event.ID, map[string]any{"event_id": event.ID, "name": event.Name})
	return event, nil
}

// RecoverEvent reopens a finished event, typically after an accidental
// finalize. The no-other-open check rides in the update predicate, so
// two racing recovers can never both reopen.
func RecoverEvent(ctx context.Context, id uint) (*models.Event, error) {
	const op = "recoverEvent"
	if _, err := GetEvent(ctx, id); err != nil {
		return nil, err
	}
	result := db.GetDb().WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND status = ?", id, types.EVENT_FINISHED).
		Where("NOT EXISTS (SELECT 1 FROM events WHERE status IN ? AND deleted_at IS NULL)", types.OpenEventStatuses).
		Updates(map[string]any{"status": types.EVENT_RECOVERED, "closed_at": nil})
	if result.Error != nil {
		return nil, types.NewDependencyError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		if open, err := CurrentOpenEvent(ctx); err == nil && open.ID != id {
			return nil, types.NewConflictError(op, fmt.Sprintf("event %d is still open, finalize it first", open.ID))
		}
		fresh, err := GetEvent(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, types.NewStateError(op, fmt.Sprintf("event %d is %s and cannot be recovered", id, fresh.Status))
	}
	return GetEvent(ctx, id)
}

func SetTicketPrice(ctx context.Context, id uint, price float64) (*models.Event, error) {
	const op = "setTicketPrice"
	if price <= 0 {
		return nil, types.NewValidationError(op, "ticket price must be greater than zero")
	}
	if _, err := GetEvent(ctx, id); err != nil {
		return nil, err
	}
	result := db.GetDb().WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND status IN ?", id, types.OpenEventStatuses).
		Update("ticket_price", price)
	if result.Error != nil {
		return nil, types.NewDependencyError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		fresh, err := GetEvent(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, types.NewStateError(op, fmt.Sprintf("event %d is %s, price is frozen", id, fresh.Status))
	}
	return GetEvent(ctx, id)
}

// DeleteEvent removes an event and everything under it. Deletion is hard;
// there is no undo for an event wipe.
func DeleteEvent(ctx context.Context, id uint) error {
	const op = "deleteEvent"
	if _, err := GetEvent(ctx, id); err != nil {
		return err
	}
	conn := db.GetDb().WithContext(ctx)
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("event_id = ?", id).Delete(&models.Ticket{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("event_id = ?", id).Delete(&models.Sale{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Event{}, id).Error
	})
	if err != nil {
		return types.NewDependencyError(op, err)
	}
	return nil
}
