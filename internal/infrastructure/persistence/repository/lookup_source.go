package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tadbeer/visaflow/internal/application/port"
	"github.com/tadbeer/visaflow/internal/domain/residence"
	"github.com/tadbeer/visaflow/pkg/database"
)

// LookupSource implements port.LookupSource over the seeded reference tables.
// Accounts and suppliers live in separate tables, so their ids share no
// namespace; credit accounts are the accounts rows flagged is_credit.
type LookupSource struct {
	db     *database.DB
	logger *zap.Logger
}

// NewLookupSource creates a new SQLite lookup source.
func NewLookupSource(db *database.DB, logger *zap.Logger) port.LookupSource {
	return &LookupSource{db: db, logger: logger}
}

// Load reads a full reference-data snapshot.
func (s *LookupSource) Load(ctx context.Context) (*residence.LookupSet, error) {
	set := &residence.LookupSet{LoadedAt: time.Now().UTC()}

	currencies, err := s.loadCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	set.Currencies = currencies

	accounts, credit, err := s.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	set.Accounts = accounts
	set.CreditAccounts = credit

	suppliers, err := s.loadEntities(ctx, `SELECT id, name FROM suppliers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load suppliers: %w", err)
	}
	set.Suppliers = suppliers

	if err := s.loadPairs(ctx, `SELECT id, name FROM companies ORDER BY id`, func(id int64, name string) {
		set.Companies = append(set.Companies, residence.Company{ID: id, Name: name})
	}); err != nil {
		return nil, fmt.Errorf("failed to load companies: %w", err)
	}

	if err := s.loadPairs(ctx, `SELECT id, title FROM positions ORDER BY id`, func(id int64, title string) {
		set.Positions = append(set.Positions, residence.Position{ID: id, Title: title})
	}); err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	if err := s.loadPairs(ctx, `SELECT id, name FROM nationalities ORDER BY id`, func(id int64, name string) {
		set.Nationalities = append(set.Nationalities, residence.Nationality{ID: id, Name: name})
	}); err != nil {
		return nil, fmt.Errorf("failed to load nationalities: %w", err)
	}

	return set, nil
}

func (s *LookupSource) loadCurrencies(ctx context.Context) ([]residence.Currency, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name FROM currencies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load currencies: %w", err)
	}
	defer rows.Close()

	var out []residence.Currency
	for rows.Next() {
		var c residence.Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *LookupSource) loadAccounts(ctx context.Context) (all, credit []residence.ChargeEntity, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, is_credit FROM charge_accounts ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e        residence.ChargeEntity
			isCredit bool
		)
		if err := rows.Scan(&e.ID, &e.Name, &isCredit); err != nil {
			return nil, nil, err
		}
		all = append(all, e)
		if isCredit {
			credit = append(credit, e)
		}
	}
	return all, credit, rows.Err()
}

func (s *LookupSource) loadEntities(ctx context.Context, query string) ([]residence.ChargeEntity, error) {
	var out []residence.ChargeEntity
	err := s.loadPairs(ctx, query, func(id int64, name string) {
		out = append(out, residence.ChargeEntity{ID: id, Name: name})
	})
	return out, err
}

func (s *LookupSource) loadPairs(ctx context.Context, query string, add func(int64, string)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		add(id, name)
	}
	return rows.Err()
}
