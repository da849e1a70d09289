package models

import (
	"log"
	"ticketflow/src/lib"
	"ticketflow/src/types"
)

type Sale struct {
	ID              uint             `gorm:"primarykey" json:"id"`
	EventID         uint             `json:"event_id,omitempty"`
	SaleCode        string           `gorm:"uniqueIndex" json:"sale_code,omitempty"`
	NumberOfTickets uint             `json:"number_of_tickets,omitempty"`
	TotalAmount     float64          `json:"total_amount"`
	PaymentStatus   types.SaleStatus `gorm:"default:'pending'" json:"payment_status,omitempty"`

	Event   Event    `json:"-"`
	Tickets []Ticket `gorm:"constraint:OnDelete:CASCADE" json:"tickets,omitempty"`

	types.Timestamps
}

func SalePaidProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("sales_paid_producer", "sales-paid", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}

func SaleExpiredProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("sales_expired_producer", "sales-expired", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}
