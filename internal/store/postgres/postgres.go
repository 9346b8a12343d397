// Package postgres stores transactions and monthly savings in PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	pool   *pgxpool.Pool
	now    func() time.Time
	logger *log.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to url, runs migrations and returns a ready store.
func Open(ctx context.Context, url string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{pool: pool, now: time.Now, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func runMigrations(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("create pgx driver: %w", err)
	}
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", d, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return core.Persistence("ping", s.pool.Ping(ctx))
}

func (s *Store) FetchAll(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, name, amount_cents, type, tag, date, client_id, created_at
		FROM transactions WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, core.Persistence("list transactions", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			id     int64
			amount *int64
			date   *time.Time
			typ    string
			tx     core.Transaction
		)
		if err := rows.Scan(&id, &tx.OwnerID, &tx.Name, &amount, &typ, &tx.Tag, &date, &tx.ClientID, &tx.CreatedAt); err != nil {
			return nil, core.Persistence("scan transaction", err)
		}
		tx.ID = strconv.FormatInt(id, 10)
		tx.Type = core.TxType(typ)
		if amount != nil {
			tx.Amount = core.Money{Cents: *amount}
		}
		if date != nil {
			tx.Date = core.DateOf(*date)
		} else {
			tx.Date = core.DateOf(s.now())
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistence("list transactions", err)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx.CreatedAt = s.now().UTC()
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO transactions (owner_id, name, amount_cents, type, tag, date, client_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		tx.OwnerID, tx.Name, tx.Amount.Cents, string(tx.Type), tx.Tag, tx.Date.Time, tx.ClientID, tx.CreatedAt,
	).Scan(&id)
	if err != nil {
		return core.Transaction{}, core.Persistence("insert transaction", err)
	}
	tx.ID = strconv.FormatInt(id, 10)
	return tx, nil
}

func (s *Store) Update(ctx context.Context, ownerID, id string, tx core.Transaction) (core.Transaction, error) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return core.Transaction{}, core.ErrNotFound
	}
	tx.OwnerID = ownerID
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	err = s.pool.QueryRow(ctx, `
		UPDATE transactions SET name = $1, amount_cents = $2, type = $3, tag = $4, date = $5
		WHERE id = $6 AND owner_id = $7
		RETURNING client_id, created_at`,
		tx.Name, tx.Amount.Cents, string(tx.Type), tx.Tag, tx.Date.Time, rowID, ownerID,
	).Scan(&tx.ClientID, &tx.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, core.Persistence("update transaction", err)
	}
	tx.ID = id
	return tx, nil
}

func (s *Store) Remove(ctx context.Context, ownerID, id string) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return core.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND owner_id = $2`, rowID, ownerID)
	if err != nil {
		return core.Persistence("delete transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) Owners(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT owner_id FROM transactions ORDER BY owner_id`)
	if err != nil {
		return nil, core.Persistence("list owners", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, core.Persistence("list owners", err)
	}
	return owners, nil
}

const savingsColumns = `id, owner_id, year, month, total_income_cents, total_expenses_cents, savings_cents,
	transaction_count, income_count, expense_count, income_by_category, expenses_by_category, created_at`

func scanSavings(row pgx.Row) (core.MonthlySavings, error) {
	var (
		r                  core.MonthlySavings
		id                 int64
		incomeJSON         []byte
		expensesJSON       []byte
		income, exp, saved int64
	)
	if err := row.Scan(&id, &r.OwnerID, &r.Year, &r.Month, &income, &exp, &saved,
		&r.TransactionCount, &r.IncomeCount, &r.ExpenseCount, &incomeJSON, &expensesJSON, &r.CreatedAt); err != nil {
		return core.MonthlySavings{}, err
	}
	r.ID = strconv.FormatInt(id, 10)
	r.TotalIncome = core.Money{Cents: income}
	r.TotalExpenses = core.Money{Cents: exp}
	r.Savings = core.Money{Cents: saved}
	r.IncomeByCategory = decodeCategories(incomeJSON)
	r.ExpensesByCategory = decodeCategories(expensesJSON)
	return r, nil
}

func decodeCategories(b []byte) []core.CategoryAmount {
	out := []core.CategoryAmount{}
	if len(b) == 0 {
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil || out == nil {
		return []core.CategoryAmount{}
	}
	return out
}

func savingsArgs(rec core.MonthlySavings) ([]any, error) {
	enc := func(c []core.CategoryAmount) (string, error) {
		if c == nil {
			c = []core.CategoryAmount{}
		}
		b, err := json.Marshal(c)
		return string(b), err
	}
	inc, err := enc(rec.IncomeByCategory)
	if err != nil {
		return nil, err
	}
	exp, err := enc(rec.ExpensesByCategory)
	if err != nil {
		return nil, err
	}
	return []any{
		rec.OwnerID, rec.Year, rec.Month,
		rec.TotalIncome.Cents, rec.TotalExpenses.Cents, rec.Savings.Cents,
		rec.TransactionCount, rec.IncomeCount, rec.ExpenseCount,
		inc, exp, rec.CreatedAt,
	}, nil
}

const insertSavings = `INSERT INTO monthly_savings (owner_id, year, month, total_income_cents, total_expenses_cents,
	savings_cents, transaction_count, income_count, expense_count, income_by_category, expenses_by_category, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11::jsonb, $12)`

func (s *Store) ListMonthly(ctx context.Context, ownerID string) ([]core.MonthlySavings, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+savingsColumns+`
		FROM monthly_savings WHERE owner_id = $1 ORDER BY year DESC, month DESC`, ownerID)
	if err != nil {
		return nil, core.Persistence("list monthly savings", err)
	}
	defer rows.Close()
	out := []core.MonthlySavings{}
	for rows.Next() {
		r, err := scanSavings(rows)
		if err != nil {
			return nil, core.Persistence("scan monthly savings", err)
		}
		out = append(out, r)
	}
	return out, core.Persistence("list monthly savings", rows.Err())
}

func (s *Store) GetMonthly(ctx context.Context, ownerID string, year, month int) (core.MonthlySavings, error) {
	r, err := scanSavings(s.pool.QueryRow(ctx, `SELECT `+savingsColumns+`
		FROM monthly_savings WHERE owner_id = $1 AND year = $2 AND month = $3`, ownerID, year, month))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.MonthlySavings{}, core.ErrNotFound
	}
	if err != nil {
		return core.MonthlySavings{}, core.Persistence("get monthly savings", err)
	}
	return r, nil
}

func (s *Store) UpsertMonthly(ctx context.Context, rec core.MonthlySavings) (core.MonthlySavings, error) {
	if err := rec.Validate(); err != nil {
		return core.MonthlySavings{}, err
	}
	rec.CreatedAt = s.now().UTC()
	args, err := savingsArgs(rec)
	if err != nil {
		return core.MonthlySavings{}, fmt.Errorf("encode categories: %w", err)
	}
	var id int64
	err = s.pool.QueryRow(ctx, insertSavings+`
		ON CONFLICT (owner_id, year, month) DO UPDATE SET
			total_income_cents = EXCLUDED.total_income_cents,
			total_expenses_cents = EXCLUDED.total_expenses_cents,
			savings_cents = EXCLUDED.savings_cents,
			transaction_count = EXCLUDED.transaction_count,
			income_count = EXCLUDED.income_count,
			expense_count = EXCLUDED.expense_count,
			income_by_category = EXCLUDED.income_by_category,
			expenses_by_category = EXCLUDED.expenses_by_category,
			created_at = EXCLUDED.created_at
		RETURNING id`, args...).Scan(&id)
	if err != nil {
		return core.MonthlySavings{}, core.Persistence("upsert monthly savings", err)
	}
	rec.ID = strconv.FormatInt(id, 10)
	return rec, nil
}

func (s *Store) InsertMonthlyIfAbsent(ctx context.Context, rec core.MonthlySavings) (core.MonthlySavings, bool, error) {
	if err := rec.Validate(); err != nil {
		return core.MonthlySavings{}, false, err
	}
	rec.CreatedAt = s.now().UTC()
	args, err := savingsArgs(rec)
	if err != nil {
		return core.MonthlySavings{}, false, fmt.Errorf("encode categories: %w", err)
	}
	var id int64
	err = s.pool.QueryRow(ctx, insertSavings+`
		ON CONFLICT (owner_id, year, month) DO NOTHING RETURNING id`, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := s.GetMonthly(ctx, rec.OwnerID, rec.Year, rec.Month)
		return existing, false, err
	}
	if err != nil {
		return core.MonthlySavings{}, false, core.Persistence("insert monthly savings", err)
	}
	rec.ID = strconv.FormatInt(id, 10)
	return rec, true, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc core.Account) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
		acc.ID, acc.Email, acc.Name, acc.PasswordHash, acc.CreatedAt.UTC())
	if err != nil {
		return core.Persistence("create account", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrAlreadyExists
	}
	return nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (core.Account, error) {
	var acc core.Account
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at FROM accounts WHERE email = $1`, email,
	).Scan(&acc.ID, &acc.Email, &acc.Name, &acc.PasswordHash, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, core.Persistence("get account", err)
	}
	acc.CreatedAt = acc.CreatedAt.UTC()
	return acc, nil
}
