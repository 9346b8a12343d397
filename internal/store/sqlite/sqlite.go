// Package sqlite stores transactions and monthly savings in a local SQLite
// file through the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

const timeLayout = time.RFC3339Nano

type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *log.Logger
}

var _ store.Store = (*Store)(nil)

// Open creates the database directory if needed, runs migrations and
// returns a ready store.
func Open(dbPath string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:     db,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

// WithClock replaces the clock used for CreatedAt and date fallbacks.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return core.Persistence("ping", s.db.PingContext(ctx))
}

func (s *Store) FetchAll(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, amount_cents, type, tag, date, client_id, created_at
		FROM transactions WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, core.Persistence("list transactions", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			id        int64
			amount    sql.NullInt64
			date      sql.NullString
			createdAt string
			typ       string
			tx        core.Transaction
		)
		if err := rows.Scan(&id, &tx.OwnerID, &tx.Name, &amount, &typ, &tx.Tag, &date, &tx.ClientID, &createdAt); err != nil {
			return nil, core.Persistence("scan transaction", err)
		}
		tx.ID = strconv.FormatInt(id, 10)
		tx.Type = core.TxType(typ)
		tx.Amount = core.Money{Cents: amount.Int64}
		tx.Date = s.normalizeDate(date)
		tx.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistence("list transactions", err)
	}
	return out, nil
}

// normalizeDate maps missing or malformed stored dates to today.
func (s *Store) normalizeDate(v sql.NullString) core.Date {
	if v.Valid {
		if d, err := core.ParseDate(v.String); err == nil {
			return d
		}
	}
	return core.DateOf(s.now())
}

func (s *Store) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx.CreatedAt = s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (owner_id, name, amount_cents, type, tag, date, client_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.OwnerID, tx.Name, tx.Amount.Cents, string(tx.Type), tx.Tag, tx.Date.String(), tx.ClientID,
		tx.CreatedAt.Format(timeLayout))
	if err != nil {
		return core.Transaction{}, core.Persistence("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, core.Persistence("insert transaction", err)
	}
	tx.ID = strconv.FormatInt(id, 10)

	s.logger.DebugContext(ctx, "Transaction stored",
		log.FieldOwnerID, tx.OwnerID,
		log.FieldTransactionID, tx.ID)
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
	var createdAt string
	err = s.db.QueryRowContext(ctx, `
		UPDATE transactions SET name = ?, amount_cents = ?, type = ?, tag = ?, date = ?
		WHERE id = ? AND owner_id = ?
		RETURNING client_id, created_at`,
		tx.Name, tx.Amount.Cents, string(tx.Type), tx.Tag, tx.Date.String(), rowID, ownerID,
	).Scan(&tx.ClientID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, core.Persistence("update transaction", err)
	}
	tx.ID = id
	tx.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return tx, nil
}

func (s *Store) Remove(ctx context.Context, ownerID, id string) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return core.ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND owner_id = ?`, rowID, ownerID)
	if err != nil {
		return core.Persistence("delete transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Persistence("delete transaction", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) Owners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM transactions ORDER BY owner_id`)
	if err != nil {
		return nil, core.Persistence("list owners", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, core.Persistence("scan owner", err)
		}
		out = append(out, owner)
	}
	return out, core.Persistence("list owners", rows.Err())
}

const savingsColumns = `id, owner_id, year, month, total_income_cents, total_expenses_cents, savings_cents,
	transaction_count, income_count, expense_count, income_by_category, expenses_by_category, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSavings(row scanner) (core.MonthlySavings, error) {
	var (
		r                  core.MonthlySavings
		id                 int64
		incomeJSON         string
		expensesJSON       string
		createdAt          string
		income, exp, saved int64
	)
	if err := row.Scan(&id, &r.OwnerID, &r.Year, &r.Month, &income, &exp, &saved,
		&r.TransactionCount, &r.IncomeCount, &r.ExpenseCount, &incomeJSON, &expensesJSON, &createdAt); err != nil {
		return core.MonthlySavings{}, err
	}
	r.ID = strconv.FormatInt(id, 10)
	r.TotalIncome = core.Money{Cents: income}
	r.TotalExpenses = core.Money{Cents: exp}
	r.Savings = core.Money{Cents: saved}
	r.IncomeByCategory = decodeCategories(incomeJSON)
	r.ExpensesByCategory = decodeCategories(expensesJSON)
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return r, nil
}

func decodeCategories(s string) []core.CategoryAmount {
	out := []core.CategoryAmount{}
	if s == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []core.CategoryAmount{}
	}
	return out
}

func encodeCategories(c []core.CategoryAmount) (string, error) {
	if c == nil {
		c = []core.CategoryAmount{}
	}
	b, err := json.Marshal(c)
	return string(b), err
}

func (s *Store) ListMonthly(ctx context.Context, ownerID string) ([]core.MonthlySavings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+savingsColumns+`
		FROM monthly_savings WHERE owner_id = ? ORDER BY year DESC, month DESC`, ownerID)
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
	r, err := scanSavings(s.db.QueryRowContext(ctx, `SELECT `+savingsColumns+`
		FROM monthly_savings WHERE owner_id = ? AND year = ? AND month = ?`, ownerID, year, month))
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlySavings{}, core.ErrNotFound
	}
	if err != nil {
		return core.MonthlySavings{}, core.Persistence("get monthly savings", err)
	}
	return r, nil
}

func (s *Store) savingsArgs(rec core.MonthlySavings) ([]any, error) {
	inc, err := encodeCategories(rec.IncomeByCategory)
	if err != nil {
		return nil, err
	}
	exp, err := encodeCategories(rec.ExpensesByCategory)
	if err != nil {
		return nil, err
	}
	return []any{
		rec.OwnerID, rec.Year, rec.Month,
		rec.TotalIncome.Cents, rec.TotalExpenses.Cents, rec.Savings.Cents,
		rec.TransactionCount, rec.IncomeCount, rec.ExpenseCount,
		inc, exp, rec.CreatedAt.Format(timeLayout),
	}, nil
}

const insertSavings = `INSERT INTO monthly_savings (owner_id, year, month, total_income_cents, total_expenses_cents,
	savings_cents, transaction_count, income_count, expense_count, income_by_category, expenses_by_category, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *Store) UpsertMonthly(ctx context.Context, rec core.MonthlySavings) (core.MonthlySavings, error) {
	if err := rec.Validate(); err != nil {
		return core.MonthlySavings{}, err
	}
	rec.CreatedAt = s.now().UTC()
	args, err := s.savingsArgs(rec)
	if err != nil {
		return core.MonthlySavings{}, fmt.Errorf("encode categories: %w", err)
	}
	var id int64
	err = s.db.QueryRowContext(ctx, insertSavings+`
		ON CONFLICT (owner_id, year, month) DO UPDATE SET
			total_income_cents = excluded.total_income_cents,
			total_expenses_cents = excluded.total_expenses_cents,
			savings_cents = excluded.savings_cents,
			transaction_count = excluded.transaction_count,
			income_count = excluded.income_count,
			expense_count = excluded.expense_count,
			income_by_category = excluded.income_by_category,
			expenses_by_category = excluded.expenses_by_category,
			created_at = excluded.created_at
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
	args, err := s.savingsArgs(rec)
	if err != nil {
		return core.MonthlySavings{}, false, fmt.Errorf("encode categories: %w", err)
	}
	res, err := s.db.ExecContext(ctx, insertSavings+` ON CONFLICT (owner_id, year, month) DO NOTHING`, args...)
	if err != nil {
		return core.MonthlySavings{}, false, core.Persistence("insert monthly savings", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.MonthlySavings{}, false, core.Persistence("insert monthly savings", err)
	}
	if n == 0 {
		existing, err := s.GetMonthly(ctx, rec.OwnerID, rec.Year, rec.Month)
		return existing, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.MonthlySavings{}, false, core.Persistence("insert monthly savings", err)
	}
	rec.ID = strconv.FormatInt(id, 10)
	return rec, true, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc core.Account) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		acc.ID, acc.Email, acc.Name, acc.PasswordHash, acc.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return core.Persistence("create account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Persistence("create account", err)
	}
	if n == 0 {
		return core.ErrAlreadyExists
	}
	return nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (core.Account, error) {
	var (
		acc       core.Account
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at FROM accounts WHERE email = ?`, email,
	).Scan(&acc.ID, &acc.Email, &acc.Name, &acc.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, core.Persistence("get account", err)
	}
	acc.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return acc, nil
}
