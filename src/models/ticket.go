package models

import (
	"log"
	"ticketflow/src/lib"
	"ticketflow/src/types"
	"time"
)

type Ticket struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	EventID         uint   `gorm:"uniqueIndex:idx_event_participant_key" json:"event_id,omitempty"`
	SaleID          *uint  `json:"sale_id,omitempty"`
	TicketCode      string `gorm:"uniqueIndex" json:"ticket_code,omitempty"`
	ParticipantName string `json:"participant_name,omitempty"`
	// ParticipantKey is the normalized form of ParticipantName; the
	// composite unique index with EventID is the authoritative duplicate
	// guard. The in-memory pre-check only produces friendlier messages.
	ParticipantKey string             `gorm:"uniqueIndex:idx_event_participant_key" json:"-"`
	Kind           types.TicketKind   `gorm:"default:'sold'" json:"kind,omitempty"`
	Status         types.TicketStatus `gorm:"default:'inactive'" json:"status,omitempty"`
	CheckedInAt    *time.Time         `json:"checked_in_at,omitempty"`
	CheckedInBy    string             `json:"checked_in_by,omitempty"`

	Event Event `json:"-"`
	Sale  *Sale `json:"-"`

	types.Timestamps
}

func TicketCheckedInProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("tickets_checked_in_producer", "tickets-checked-in", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}
