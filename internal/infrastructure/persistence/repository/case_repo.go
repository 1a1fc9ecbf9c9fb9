package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/tadbeer/visaflow/internal/application/port"
	"github.com/tadbeer/visaflow/internal/domain/residence"
	"github.com/tadbeer/visaflow/pkg/database"
)

// CaseRepository implements port.CaseRepository over SQLite. Stage field
// values are stored as one JSON object per stage record.
type CaseRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewCaseRepository creates a new case repository.
func NewCaseRepository(db *database.DB, logger *zap.Logger) port.CaseRepository {
	return &CaseRepository{db: db, logger: logger}
}

const caseColumns = `id, name, passport_number, date_of_birth, gender, nationality,
	sale_price, currency, progress, cancelled, on_hold,
	cancellation_charge, cancellation_remarks, created_at, updated_at`

// Create inserts a new case and assigns its ID.
func (r *CaseRepository) Create(ctx context.Context, c *residence.Case) error {
	query := `
		INSERT INTO cases (
			name, passport_number, date_of_birth, gender, nationality,
			sale_price, currency, progress, cancelled, on_hold,
			cancellation_charge, cancellation_remarks, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		c.Name, c.PassportNumber, c.DateOfBirth, c.Gender, c.Nationality,
		c.SalePrice, c.Currency, c.Progress, c.Cancelled, c.OnHold,
		c.CancellationCharge, c.CancellationRemarks, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create case", zap.Error(err))
		return fmt.Errorf("failed to create case: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	return nil
}

// GetByID returns the full case snapshot, or (nil, nil) when absent.
func (r *CaseRepository) GetByID(ctx context.Context, id int64) (*residence.Case, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = ?`, id)

	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get case", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	if err := r.loadStageRecords(ctx, c); err != nil {
		return nil, err
	}
	if err := r.loadCustody(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Save persists the full case state within one transaction.
func (r *CaseRepository) Save(ctx context.Context, c *residence.Case) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			UPDATE cases SET
				name = ?, passport_number = ?, date_of_birth = ?, gender = ?,
				nationality = ?, sale_price = ?, currency = ?, progress = ?,
				cancelled = ?, on_hold = ?, cancellation_charge = ?,
				cancellation_remarks = ?, updated_at = ?
			WHERE id = ?`,
			c.Name, c.PassportNumber, c.DateOfBirth, c.Gender,
			c.Nationality, c.SalePrice, c.Currency, c.Progress,
			c.Cancelled, c.OnHold, c.CancellationCharge,
			c.CancellationRemarks, c.UpdatedAt, c.ID,
		); err != nil {
			return fmt.Errorf("failed to update case: %w", err)
		}

		for _, rec := range c.Stages {
			values, err := json.Marshal(rec.Values)
			if err != nil {
				return fmt.Errorf("failed to encode stage values: %w", err)
			}

			var chargeOption, chargedEntityID sql.NullInt64
			if rec.Charge != nil {
				chargeOption = sql.NullInt64{Int64: int64(rec.Charge.Option()), Valid: true}
				chargedEntityID = sql.NullInt64{Int64: rec.Charge.EntityID(), Valid: true}
			}

			if _, err := tx.Exec(`
				INSERT INTO stage_records (
					case_id, stage_no, field_values, charge_option,
					charged_entity_id, attachment_ref, completed, completed_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(case_id, stage_no) DO UPDATE SET
					field_values = excluded.field_values,
					charge_option = excluded.charge_option,
					charged_entity_id = excluded.charged_entity_id,
					attachment_ref = excluded.attachment_ref,
					completed = excluded.completed,
					completed_at = excluded.completed_at`,
				c.ID, int(rec.Stage), string(values), chargeOption,
				chargedEntityID, rec.AttachmentRef, rec.Completed, rec.CompletedAt,
			); err != nil {
				return fmt.Errorf("failed to save stage record %d: %w", rec.Stage, err)
			}
		}

		if c.Custody != nil {
			if _, err := tx.Exec(`
				INSERT INTO custody_records (
					case_id, status, card_number, card_expiry, holder_name,
					date_of_birth, recipient, delivered_at,
					front_image_ref, back_image_ref
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(case_id) DO UPDATE SET
					status = excluded.status,
					card_number = excluded.card_number,
					card_expiry = excluded.card_expiry,
					holder_name = excluded.holder_name,
					date_of_birth = excluded.date_of_birth,
					recipient = excluded.recipient,
					delivered_at = excluded.delivered_at,
					front_image_ref = excluded.front_image_ref,
					back_image_ref = excluded.back_image_ref`,
				c.ID, c.Custody.Status.String(), c.Custody.CardNumber,
				c.Custody.CardExpiry, c.Custody.HolderName, c.Custody.DateOfBirth,
				c.Custody.Recipient, c.Custody.DeliveredAt,
				c.Custody.FrontImageRef, c.Custody.BackImageRef,
			); err != nil {
				return fmt.Errorf("failed to save custody record: %w", err)
			}
		}

		return nil
	})
}

// List returns cases ordered by id.
func (r *CaseRepository) List(ctx context.Context, limit, offset int) ([]*residence.Case, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+caseColumns+` FROM cases ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list cases", zap.Error(err))
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	return r.collectCases(ctx, rows)
}

// ListByCustodyStatus returns custody-eligible cases with the given status.
// Cases whose custody record has never been touched count as Pending.
func (r *CaseRepository) ListByCustodyStatus(ctx context.Context, status residence.CustodyStatus) ([]*residence.Case, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixedCaseColumns("c")+`
		FROM cases c
		LEFT JOIN custody_records cr ON cr.case_id = c.id
		WHERE COALESCE(cr.status, 'PENDING') = ?
		  AND c.progress >= ?
		  AND c.cancelled = 0
		ORDER BY c.id`,
		status.String(), int(residence.StageEmiratesID))
	if err != nil {
		r.logger.Error("Failed to list custody tasks",
			zap.String("status", status.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list custody tasks: %w", err)
	}
	defer rows.Close()

	return r.collectCases(ctx, rows)
}

func (r *CaseRepository) collectCases(ctx context.Context, rows *sql.Rows) ([]*residence.Case, error) {
	var cases []*residence.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range cases {
		if err := r.loadStageRecords(ctx, c); err != nil {
			return nil, err
		}
		if err := r.loadCustody(ctx, c); err != nil {
			return nil, err
		}
	}
	return cases, nil
}

func (r *CaseRepository) loadStageRecords(ctx context.Context, c *residence.Case) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT stage_no, field_values, charge_option, charged_entity_id,
			attachment_ref, completed, completed_at
		FROM stage_records WHERE case_id = ? ORDER BY stage_no`, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load stage records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stageNo         int
			rawValues       string
			chargeOption    sql.NullInt64
			chargedEntityID sql.NullInt64
			attachmentRef   string
			completed       bool
			completedAt     sql.NullTime
		)
		if err := rows.Scan(&stageNo, &rawValues, &chargeOption, &chargedEntityID,
			&attachmentRef, &completed, &completedAt); err != nil {
			return fmt.Errorf("failed to scan stage record: %w", err)
		}

		rec := c.Record(residence.StageNumber(stageNo))
		if err := json.Unmarshal([]byte(rawValues), &rec.Values); err != nil {
			return fmt.Errorf("failed to decode stage values: %w", err)
		}
		if chargeOption.Valid && chargedEntityID.Valid {
			ref, err := residence.NewChargeRef(
				residence.ChargeOption(chargeOption.Int64), chargedEntityID.Int64)
			if err != nil {
				return fmt.Errorf("corrupt charge reference for stage %d: %w", stageNo, err)
			}
			rec.Charge = &ref
		}
		rec.AttachmentRef = attachmentRef
		rec.Completed = completed
		if completedAt.Valid {
			t := completedAt.Time
			rec.CompletedAt = &t
		}
	}
	return rows.Err()
}

func (r *CaseRepository) loadCustody(ctx context.Context, c *residence.Case) error {
	row := r.db.QueryRowContext(ctx, `
		SELECT status, card_number, card_expiry, holder_name, date_of_birth,
			recipient, delivered_at, front_image_ref, back_image_ref
		FROM custody_records WHERE case_id = ?`, c.ID)

	var (
		rec         residence.CustodyRecord
		status      string
		deliveredAt sql.NullTime
	)
	err := row.Scan(&status, &rec.CardNumber, &rec.CardExpiry, &rec.HolderName,
		&rec.DateOfBirth, &rec.Recipient, &deliveredAt,
		&rec.FrontImageRef, &rec.BackImageRef)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load custody record: %w", err)
	}

	rec.Status = residence.CustodyStatus(status)
	if deliveredAt.Valid {
		t := deliveredAt.Time
		rec.DeliveredAt = &t
	}
	c.Custody = &rec
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*residence.Case, error) {
	var c residence.Case
	err := row.Scan(
		&c.ID, &c.Name, &c.PassportNumber, &c.DateOfBirth, &c.Gender,
		&c.Nationality, &c.SalePrice, &c.Currency, &c.Progress,
		&c.Cancelled, &c.OnHold, &c.CancellationCharge,
		&c.CancellationRemarks, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func prefixedCaseColumns(alias string) string {
	return alias + `.id, ` + alias + `.name, ` + alias + `.passport_number, ` +
		alias + `.date_of_birth, ` + alias + `.gender, ` + alias + `.nationality, ` +
		alias + `.sale_price, ` + alias + `.currency, ` + alias + `.progress, ` +
		alias + `.cancelled, ` + alias + `.on_hold, ` + alias + `.cancellation_charge, ` +
		alias + `.cancellation_remarks, ` + alias + `.created_at, ` + alias + `.updated_at`
}
