package models

import (
	"log"
	"ticketflow/src/lib"
	"ticketflow/src/types"
	"time"
)

type Event struct {
	ID          uint              `gorm:"primarykey" json:"id"`
	Name        string            `json:"name,omitempty"`
	Location    string            `json:"location,omitempty"`
	Date        time.Time         `json:"date,omitempty"`
	StartTime   string            `json:"time,omitempty"`
	TicketPrice float64           `json:"ticket_price,omitempty"`
	ImageKey    string            `json:"image_key,omitempty"`
	Status      types.EventStatus `gorm:"default:'draft'" json:"status,omitempty"`
	ClosedAt    *time.Time        `json:"closed_at,omitempty"`

	// Financial report fields, operator-entered on the dashboard. Revenue
	// and audience figures are deliberately independent of Ticket rows.
	QtyBoxOffice  int `json:"qty_box_office"`
	QtyOnline     int `json:"qty_online"`
	QtyCourtesies int `json:"qty_courtesies"`

	BoxOfficeSales float64 `json:"box_office_sales"`
	OnlineSales    float64 `json:"online_sales"`

	CostRental         float64 `json:"cost_rental"`
	CostSound          float64 `json:"cost_sound"`
	CostStructure      float64 `json:"cost_structure"`
	CostMarketing      float64 `json:"cost_marketing"`
	CostSecurity       float64 `json:"cost_security"`
	StaffCost          float64 `json:"staff_cost"`
	EventOtherExpenses float64 `json:"event_other_expenses"`

	Attractions types.JSONBArray `gorm:"type:jsonb" json:"attractions,omitempty"`

	BarSales           float64 `json:"bar_sales"`
	BarCostBeverages   float64 `json:"bar_cost_beverages"`
	BarCostIce         float64 `json:"bar_cost_ice"`
	BarCostDisposables float64 `json:"bar_cost_disposables"`
	BarOtherExpenses   float64 `json:"bar_other_expenses"`

	Observations string `json:"observations,omitempty"`

	Sales   []Sale   `gorm:"constraint:OnDelete:CASCADE" json:"sales,omitempty"`
	Tickets []Ticket `gorm:"constraint:OnDelete:CASCADE" json:"tickets,omitempty"`

	types.Timestamps
}

func EventPublishedProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("events_published_producer", "events-published", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}

func EventFinalizedProducer(id uint, payload map[string]any) error {
	err := lib.KafkaProduceMessage("events_finalized_producer", "events-finalized", payload)
	if err != nil {
		log.Printf("Error on producing message: %s\n", err.Error())
		return err
	}
	return nil
}
