package common

import (
	"context"
	"ticketflow/src/db"
	"ticketflow/src/models"
	"ticketflow/src/types"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FinancialSummary is the derived view of an event's operator-entered
// figures. Every amount is computed with exact decimal arithmetic and
// rounded to cents once, at the end.
type FinancialSummary struct {
	EventID   uint   `json:"event_id"`
	EventName string `json:"event_name"`

	AudienceCount int `json:"audience_count"`

	TotalRevenue    float64 `json:"total_revenue"`
	TotalEventCosts float64 `json:"total_event_costs"`
	NetResult       float64 `json:"net_result"`

	BarCosts float64 `json:"bar_costs"`
	BarNet   float64 `json:"bar_net"`

	OverallResult float64 `json:"overall_result"`
	TicketAverage float64 `json:"ticket_average"`
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func cents(v decimal.Decimal) float64 {
	f, _ := v.Round(2).Float64()
	return f
}

// ComputeSummary derives the reconciliation figures from an event row.
// Attractions fees count as event costs; bar costs do not. The per-head
// average folds bar revenue in because the bar is part of the night's
// take.
func ComputeSummary(event *models.Event) *FinancialSummary {
	revenue := dec(event.BoxOfficeSales).Add(dec(event.OnlineSales))

	eventCosts := dec(event.CostRental).
		Add(dec(event.CostSound)).
		Add(dec(event.CostStructure)).
		Add(dec(event.CostMarketing)).
		Add(dec(event.CostSecurity)).
		Add(dec(event.StaffCost)).
		Add(dec(event.EventOtherExpenses))
	for _, fee := range event.Attractions {
		if f, ok := fee.(float64); ok {
			eventCosts = eventCosts.Add(dec(f))
		}
	}

	barCosts := dec(event.BarCostBeverages).
		Add(dec(event.BarCostIce)).
		Add(dec(event.BarCostDisposables)).
		Add(dec(event.BarOtherExpenses))
	barNet := dec(event.BarSales).Sub(barCosts)

	netResult := revenue.Sub(eventCosts)
	overall := netResult.Add(barNet)

	audience := event.QtyBoxOffice + event.QtyOnline + event.QtyCourtesies
	average := decimal.Zero
	if audience > 0 {
		average = revenue.Add(dec(event.BarSales)).Div(decimal.NewFromInt(int64(audience)))
	}

	return &FinancialSummary{
		EventID:         event.ID,
		EventName:       event.Name,
		AudienceCount:   audience,
		TotalRevenue:    cents(revenue),
		TotalEventCosts: cents(eventCosts),
		NetResult:       cents(netResult),
		BarCosts:        cents(barCosts),
		BarNet:          cents(barNet),
		OverallResult:   cents(overall),
		TicketAverage:   cents(average),
	}
}

func validateReport(op string, body *types.FinancialReportRequestBody) error {
	if body.QtyBoxOffice < 0 || body.QtyOnline < 0 || body.QtyCourtesies < 0 {
		return types.NewValidationError(op, "attendance quantities must not be negative")
	}
	amounts := []float64{
		body.BoxOfficeSales, body.OnlineSales,
		body.CostRental, body.CostSound, body.CostStructure,
		body.CostMarketing, body.CostSecurity, body.StaffCost,
		body.EventOtherExpenses,
		body.BarSales, body.BarCostBeverages, body.BarCostIce,
		body.BarCostDisposables, body.BarOtherExpenses,
	}
	for _, a := range amounts {
		if a < 0 {
			return types.NewValidationError(op, "amounts must not be negative")
		}
	}
	for _, fee := range body.Attractions {
		if fee < 0 {
			return types.NewValidationError(op, "attraction fees must not be negative")
		}
	}
	return nil
}

// SaveFinancialReport stores the operator-entered figures on the event
// and returns the recomputed summary.
func SaveFinancialReport(ctx context.Context, id uint, body *types.FinancialReportRequestBody) (*FinancialSummary, error) {
	const op = "saveFinancialReport"
	if err := validateReport(op, body); err != nil {
		return nil, err
	}
	event, err := GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	attractions := make(types.JSONBArray, 0, len(body.Attractions))
	for _, fee := range body.Attractions {
		attractions = append(attractions, fee)
	}
	updates := map[string]any{
		"qty_box_office":       body.QtyBoxOffice,
		"qty_online":           body.QtyOnline,
		"qty_courtesies":       body.QtyCourtesies,
		"box_office_sales":     body.BoxOfficeSales,
		"online_sales":         body.OnlineSales,
		"cost_rental":          body.CostRental,
		"cost_sound":           body.CostSound,
		"cost_structure":       body.CostStructure,
		"cost_marketing":       body.CostMarketing,
		"cost_security":        body.CostSecurity,
		"staff_cost":           body.StaffCost,
		"event_other_expenses": body.EventOtherExpenses,
		"attractions":          attractions,
		"bar_sales":            body.BarSales,
		"bar_cost_beverages":   body.BarCostBeverages,
		"bar_cost_ice":         body.BarCostIce,
		"bar_cost_disposables": body.BarCostDisposables,
		"bar_other_expenses":   body.BarOtherExpenses,
		"observations":         body.Observations,
	}
	if err := db.GetDb().WithContext(ctx).Model(event).Updates(updates).Error; err != nil {
		return nil, types.NewDependencyError(op, err)
	}
	fresh, err := GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return ComputeSummary(fresh), nil
}

// TicketCounts are the live tallies from the ticket and sale rows, shown
// next to the operator-entered report so discrepancies stand out.
type TicketCounts struct {
	Sold          int64 `json:"sold"`
	Complimentary int64 `json:"complimentary"`
	CheckedIn     int64 `json:"checked_in"`
	PendingSales  int64 `json:"pending_sales"`
}

func LiveTicketCounts(ctx context.Context, eventID uint) (*TicketCounts, error) {
	const op = "liveTicketCounts"
	conn := db.GetDb().WithContext(ctx)
	counts := &TicketCounts{}
	steps := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&counts.Sold, conn.Model(&models.Ticket{}).Where("event_id = ? AND kind = ?", eventID, types.TICKET_SOLD)},
		{&counts.Complimentary, conn.Model(&models.Ticket{}).Where("event_id = ? AND kind = ?", eventID, types.TICKET_COMPLIMENTARY)},
		{&counts.CheckedIn, conn.Model(&models.Ticket{}).Where("event_id = ? AND status = ?", eventID, types.TICKET_USED)},
		{&counts.PendingSales, conn.Model(&models.Sale{}).Where("event_id = ? AND payment_status = ?", eventID, types.SALE_PENDING)},
	}
	for _, s := range steps {
		if err := s.query.Count(s.dest).Error; err != nil {
			return nil, types.NewDependencyError(op, err)
		}
	}
	return counts, nil
}
