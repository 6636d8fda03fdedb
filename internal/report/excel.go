package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"wuauser/internal/model"
	"wuauser/internal/slots"
)

// DaySheet renders a day's slot grid and bookings into an Excel workbook.
type DaySheet struct {
	file       *excelize.File
	currentRow int
	sheet      string
}

// NewDaySheet creates an empty workbook.
func NewDaySheet() *DaySheet {
	return &DaySheet{file: excelize.NewFile()}
}

func (d *DaySheet) addSheet(name string) error {
	// Excel caps sheet names at 31 chars
	if len(name) > 31 {
		name = name[:31]
	}

	if d.sheet == "" {
		d.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := d.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	d.sheet = name
	d.currentRow = 1
	return nil
}

func (d *DaySheet) writeHeader(columns []string) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, d.currentRow)
		if err != nil {
			return err
		}
		if err := d.file.SetCellValue(d.sheet, cell, col); err != nil {
			return err
		}
	}

	style, err := d.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, d.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), d.currentRow)
		_ = d.file.SetCellStyle(d.sheet, startCell, endCell, style)
	}

	d.currentRow++
	return nil
}

func (d *DaySheet) writeRow(row []interface{}) error {
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, d.currentRow)
		if err != nil {
			return err
		}
		if err := d.file.SetCellValue(d.sheet, cell, val); err != nil {
			return err
		}
	}

	d.currentRow++
	return nil
}

// Fill populates the workbook with a slots sheet and a bookings sheet for
// the given day.
func (d *DaySheet) Fill(date time.Time, evaluations []slots.Evaluation, bookings []model.Booking) error {
	dateStr := date.Format("2006-01-02")

	if err := d.addSheet("Slots " + dateStr); err != nil {
		return err
	}
	if err := d.writeHeader([]string{"Time", "Available", "Reason", "Detail"}); err != nil {
		return err
	}
	for _, ev := range evaluations {
		status := "free"
		if !ev.Available {
			status = "taken"
		}
		if err := d.writeRow([]interface{}{ev.Time, status, ev.Reason, ev.Detail}); err != nil {
			return err
		}
	}

	if err := d.addSheet("Bookings " + dateStr); err != nil {
		return err
	}
	if err := d.writeHeader([]string{"Start", "End", "Minutes", "Pet", "Client", "Phone", "Reference"}); err != nil {
		return err
	}
	for i := range bookings {
		b := &bookings[i]
		row := []interface{}{
			b.StartTime.Format("15:04"),
			b.EndTime().Format("15:04"),
			b.DurationMinutes,
			b.PetName,
			b.ClientName,
			b.ClientPhone,
			b.Reference,
		}
		if err := d.writeRow(row); err != nil {
			return err
		}
	}

	return nil
}

// Save writes the workbook to the writer.
func (d *DaySheet) Save(w io.Writer) error {
	return d.file.Write(w)
}

// Close releases workbook resources.
func (d *DaySheet) Close() error {
	return d.file.Close()
}
