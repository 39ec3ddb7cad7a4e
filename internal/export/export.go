// Package export renders booking ledgers as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"staybook/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var headers = []string{"Booking ID", "Guest", "Check-in", "Check-out", "Nights", "Total", "Status", "Created"}

// Stay status relative to the export day.
const (
	StatusUpcoming = "upcoming"
	StatusCurrent  = "current"
	StatusPast     = "past"
)

var statusFill = map[string]string{
	StatusUpcoming: "#FFFFFF",
	StatusCurrent:  "#C6EFCE",
	StatusPast:     "#EDEDED",
}

// StayStatus classifies a booking against today using half-open stays.
func StayStatus(b *models.Booking, today models.Date) string {
	switch {
	case !b.EndDate.After(today):
		return StatusPast
	case !b.StartDate.After(today):
		return StatusCurrent
	default:
		return StatusUpcoming
	}
}

// SpotBookingsWorkbook builds a workbook listing every booking of spot.
// The caller owns the returned file and must Close it.
func SpotBookingsWorkbook(spot *models.Spot, bookings []*models.Booking, today models.Date) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s (%s, %s), as of %s", spot.Name, spot.City, spot.Country, today))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		_ = f.SetCellStyle(sheetName, "A2", lastCol+"2", headerStyle)
	}

	styles := make(map[string]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{Vertical: "top"},
		})
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("error creating style: %w", err)
		}
		styles[status] = id
	}

	for i, b := range bookings {
		row := i + 3
		status := StayStatus(b, today)
		values := []interface{}{
			b.ID,
			guestName(b),
			b.StartDate.String(),
			b.EndDate.String(),
			b.Nights(),
			float64(b.Nights()) * spot.Price,
			status,
			b.CreatedAt.Format("2006-01-02 15:04"),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("error writing row %d: %w", row, err)
		}
		end, _ := excelize.CoordinatesToCellName(len(headers), row)
		_ = f.SetCellStyle(sheetName, start, end, styles[status])
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "B", 25)
	_ = f.SetColWidth(sheetName, "C", lastCol, 14)

	return f, nil
}

// WriteSpotBookings streams the workbook to w.
func WriteSpotBookings(w io.Writer, spot *models.Spot, bookings []*models.Booking, today models.Date) error {
	f, err := SpotBookingsWorkbook(spot, bookings, today)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveSpotBookings stores the workbook under dir and returns its path.
func SaveSpotBookings(dir string, spot *models.Spot, bookings []*models.Booking, today models.Date) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := SpotBookingsWorkbook(spot, bookings, today)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(dir, FileName(spot, time.Now()))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}

// FileName is the download name for a spot's ledger.
func FileName(spot *models.Spot, at time.Time) string {
	return fmt.Sprintf("spot_%d_bookings_%s.xlsx", spot.ID, at.Format("2006-01-02_15-04-05"))
}

func guestName(b *models.Booking) string {
	if b.User == nil {
		return fmt.Sprintf("user #%d", b.UserID)
	}
	if b.User.LastName == "" {
		return b.User.FirstName
	}
	return b.User.FirstName + " " + b.User.LastName
}
