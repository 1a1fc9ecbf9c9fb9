package report

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/tadbeer/visaflow/internal/application/port"
	"github.com/tadbeer/visaflow/internal/domain/residence"
)

// SheetName is the sheet the case register is written to.
const SheetName = "Case Register"

// batchSize caps how many cases one export round-trip loads.
const batchSize = 500

// RegisterExporter writes the case register as an Excel workbook: one row
// per case with the stage completion matrix and custody status.
type RegisterExporter struct {
	repo   port.CaseRepository
	logger *zap.Logger
}

// NewRegisterExporter creates a new exporter.
func NewRegisterExporter(repo port.CaseRepository, logger *zap.Logger) *RegisterExporter {
	return &RegisterExporter{repo: repo, logger: logger}
}

// Export builds the workbook and returns its bytes.
func (e *RegisterExporter) Export(ctx context.Context) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := []string{"ID", "Name", "Passport", "Nationality", "Progress", "Complete %"}
	for _, st := range residence.AllStages() {
		headers = append(headers, fmt.Sprintf("S%d %s", st.Number, st.Title))
	}
	headers = append(headers, "Custody", "Cancelled", "On Hold")
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, err
		}
	}

	row := 2
	for offset := 0; ; offset += batchSize {
		cases, err := e.repo.List(ctx, batchSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to load cases: %w", err)
		}
		if len(cases) == 0 {
			break
		}
		for _, c := range cases {
			if err := e.writeCase(f, row, c); err != nil {
				return nil, err
			}
			row++
		}
		if len(cases) < batchSize {
			break
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	e.logger.Info("Case register exported",
		zap.Int("cases", row-2),
		zap.Time("at", time.Now().UTC()))
	return buf.Bytes(), nil
}

func (e *RegisterExporter) writeCase(f *excelize.File, row int, c *residence.Case) error {
	values := []any{
		c.ID, c.Name, c.PassportNumber, c.Nationality,
		c.Progress, c.CompletionPercent(),
	}
	for n := residence.StageOfferLetter; n <= residence.StageIDDelivery; n++ {
		mark := ""
		if c.StageCompleted(n) {
			mark = "done"
		} else if rec := c.RecordIfExists(n); rec != nil && len(rec.Values) > 0 {
			mark = "in progress"
		}
		values = append(values, mark)
	}
	values = append(values, c.CustodyStatus().String(), c.Cancelled, c.OnHold)

	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, v); err != nil {
			return err
		}
	}
	return nil
}
