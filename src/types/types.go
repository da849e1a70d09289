package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any
type JSONBArray []any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

func (a JSONBArray) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONBArray) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

// SessionContext identifies the calling station and the event it operates
// on. Core operations take it explicitly instead of reading shared state.
type SessionContext struct {
	EventID uint   `json:"event_id"`
	Caller  string `json:"caller,omitempty"`
}

type EventStatus string

const (
	EVENT_DRAFT     EventStatus = "draft"
	EVENT_PUBLISHED EventStatus = "published"
	EVENT_FINISHED  EventStatus = "finished"
	// EVENT_RECOVERED marks a finished event brought back to the floor.
	EVENT_RECOVERED EventStatus = "active"
)

// OpenEventStatuses are the states in which an event accepts sales,
// courtesies and check-ins. At most one event may hold any of them.
var OpenEventStatuses = []EventStatus{EVENT_DRAFT, EVENT_PUBLISHED, EVENT_RECOVERED}

func (s EventStatus) IsOpen() bool {
	for _, open := range OpenEventStatuses {
		if s == open {
			return true
		}
	}
	return false
}

var eventTransitions = map[EventStatus][]EventStatus{
	EVENT_DRAFT:     {EVENT_PUBLISHED, EVENT_FINISHED},
	EVENT_PUBLISHED: {EVENT_FINISHED},
	EVENT_FINISHED:  {EVENT_RECOVERED},
	EVENT_RECOVERED: {EVENT_FINISHED},
}

func (s EventStatus) CanTransition(to EventStatus) bool {
	for _, next := range eventTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// EventTransitionSources lists the statuses allowed to move to target,
// for use as the predicate of a conditional status update.
func EventTransitionSources(to EventStatus) []EventStatus {
	var sources []EventStatus
	for from, nexts := range eventTransitions {
		for _, next := range nexts {
			if next == to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

type SaleStatus string

const (
	SALE_PENDING SaleStatus = "pending"
	SALE_PAID    SaleStatus = "paid"
	SALE_EXPIRED SaleStatus = "expired"
)

var saleTransitions = map[SaleStatus][]SaleStatus{
	SALE_PENDING: {SALE_PAID, SALE_EXPIRED},
	SALE_PAID:    {},
	SALE_EXPIRED: {},
}

func (s SaleStatus) CanTransition(to SaleStatus) bool {
	for _, next := range saleTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type TicketStatus string

const (
	TICKET_INACTIVE TicketStatus = "inactive"
	TICKET_VALID    TicketStatus = "valid"
	TICKET_ACTIVE   TicketStatus = "active"
	TICKET_USED     TicketStatus = "used"
)

// CheckInEligibleStatuses are the ticket states a scanner may admit.
var CheckInEligibleStatuses = []TicketStatus{TICKET_VALID, TICKET_ACTIVE}

func (s TicketStatus) IsCheckInEligible() bool {
	return s == TICKET_VALID || s == TICKET_ACTIVE
}

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TICKET_INACTIVE: {TICKET_ACTIVE},
	TICKET_VALID:    {TICKET_USED},
	TICKET_ACTIVE:   {TICKET_USED, TICKET_INACTIVE},
	TICKET_USED:     {TICKET_VALID, TICKET_ACTIVE},
}

func (s TicketStatus) CanTransition(to TicketStatus) bool {
	for _, next := range ticketTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type TicketKind string

const (
	TICKET_SOLD          TicketKind = "sold"
	TICKET_COMPLIMENTARY TicketKind = "complimentary"
)

type CreateEventRequestBody struct {
	Name        string  `json:"name" binding:"required"`
	Location    string  `json:"location" binding:"required"`
	Date        string  `json:"date" binding:"required,eventdate"`
	Time        string  `json:"time" binding:"required"`
	TicketPrice float64 `json:"ticket_price" binding:"required"`
	ImageKey    string  `json:"image_key" binding:"required"`
}

type UpdatePriceRequestBody struct {
	Price float64 `json:"price" binding:"required"`
}

type RegisterSaleRequestBody struct {
	EventID      uint     `json:"event_id" binding:"required"`
	Participants []string `json:"participants" binding:"required,min=1"`
	Caller       string   `json:"caller,omitempty"`
}

type RegisterComplimentaryRequestBody struct {
	EventID      uint     `json:"event_id" binding:"required"`
	Participants []string `json:"participants" binding:"required,min=1"`
	Caller       string   `json:"caller,omitempty"`
}

type EditParticipantRequestBody struct {
	Name string `json:"name" binding:"required"`
}

type CheckInRequestBody struct {
	Code     string `json:"code" binding:"required"`
	EventID  uint   `json:"event_id,omitempty"`
	Operator string `json:"operator,omitempty"`
}

type FinancialReportRequestBody struct {
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

	Attractions []float64 `json:"attractions,omitempty"`

	BarSales           float64 `json:"bar_sales"`
	BarCostBeverages   float64 `json:"bar_cost_beverages"`
	BarCostIce         float64 `json:"bar_cost_ice"`
	BarCostDisposables float64 `json:"bar_cost_disposables"`
	BarOtherExpenses   float64 `json:"bar_other_expenses"`

	Observations string `json:"observations,omitempty"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}
