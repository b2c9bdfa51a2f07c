package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"juni-core/internal/service"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// PayoutStatementHeader payouts sheet columns
var PayoutStatementHeader = []string{
	"Payout ID",
	"Period Start",
	"Period End",
	"Visits",
	"Hours",
	"Hourly Rate",
	"Gross",
	"Platform Fee",
	"Net",
	"Status",
	"Transfer Ref",
	"Paid At",
}

// PayoutVisitsHeader visits sheet columns
var PayoutVisitsHeader = []string{
	"Payout ID",
	"Visit ID",
	"Scheduled At",
	"Planned Minutes",
	"Actual Minutes",
	"Billed Hours",
}

const (
	payoutsSheet = "Payouts"
	visitsSheet  = "Visits"
)

// GeneratePayoutStatement renders a companion's payouts and their visits as xlsx
func GeneratePayoutStatement(st *service.PayoutStatement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(payoutsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(visitsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := writeHeader(f, payoutsSheet, PayoutStatementHeader, headerStyle); err != nil {
		return nil, err
	}
	if err := writeHeader(f, visitsSheet, PayoutVisitsHeader, headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(payoutsSheet, "A", "A", 38); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(visitsSheet, "A", "B", 38); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	visitRow := 2
	for i, p := range st.Payouts {
		paidAt := ""
		if p.PaidAt != nil {
			paidAt = p.PaidAt.Format(time.RFC3339)
		}
		hours, _ := p.TotalHours.Float64()
		row := []any{
			p.PayoutID,
			p.PeriodStart.Format("2006-01-02"),
			p.PeriodEnd.Format("2006-01-02"),
			p.VisitCount,
			hours,
			cents(p.HourlyRateCents),
			cents(p.GrossAmountCents),
			cents(p.PlatformFeeCents),
			cents(p.NetAmountCents),
			string(p.Status),
			p.TransferRef,
			paidAt,
		}
		if err := writeRow(f, payoutsSheet, i+2, row); err != nil {
			return nil, err
		}

		for _, v := range st.Visits[p.PayoutID] {
			var actual any
			if v.ActualMinutes != nil {
				actual = *v.ActualMinutes
			}
			var billed any
			if v.BilledHours.Valid {
				billed, _ = v.BilledHours.Decimal.Float64()
			}
			if err := writeRow(f, visitsSheet, visitRow, []any{
				p.PayoutID,
				v.VisitID,
				v.ScheduledAt.Format(time.RFC3339),
				v.DurationMin,
				actual,
				billed,
			}); err != nil {
				return nil, err
			}
			visitRow++
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// cents to a currency amount for display
func cents(c int64) float64 {
	f, _ := decimal.New(c, -2).Float64()
	return f
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		if v == nil || v == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}
