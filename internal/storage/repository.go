package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"spendlens/internal/core"
)

// SQLRepository persists users and expenses in SQLite or PostgreSQL.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	schema  uint
	now     func() time.Time
}

var _ Store = (*SQLRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, sqliteDSN(dbPath))
}

// NewPostgresRepository connects to databaseURL and applies migrations.
func NewPostgresRepository(databaseURL string) (*SQLRepository, error) {
	return open(DialectPostgres, databaseURL)
}

func sqliteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func open(dialect Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	schema, err := Migrate(dialect, dsn)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLRepository{db: db, dialect: dialect, schema: schema, now: time.Now}, nil
}

func (r *SQLRepository) Dialect() Dialect {
	return r.dialect
}

// SchemaVersion is the migration version applied when the repository opened.
func (r *SQLRepository) SchemaVersion() uint {
	return r.schema
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.dialect.rebind(query), args...)
}

func (r *SQLRepository) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.dialect.rebind(query), args...)
}

const expenseColumns = `id, owner_id, amount, category, description, occurred_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                          core.Expense
		category                   string
		occurred, created, updated dbTime
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Amount, &category, &e.Description, &occurred, &created, &updated); err != nil {
		return core.Expense{}, err
	}
	e.Category = core.Category(category)
	e.Date = occurred.Time
	e.CreatedAt = created.Time
	e.UpdatedAt = updated.Time
	return e, nil
}

// CreateExpense stores e; ID, CreatedAt and UpdatedAt must already be set.
func (r *SQLRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	_, err := r.exec(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Amount, string(e.Category), e.Description,
		r.dialect.timeValue(e.Date), r.dialect.timeValue(e.CreatedAt), r.dialect.timeValue(e.UpdatedAt))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"backend", string(r.dialect),
		"id", e.ID,
		"owner_id", e.OwnerID,
		"amount", e.Amount.String(),
		"category", string(e.Category))

	return e, nil
}

func (r *SQLRepository) GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	if !r.dialect.acceptsIDs(ownerID, id) {
		return core.Expense{}, fmt.Errorf("%w: %s", core.ErrExpenseNotFound, id)
	}
	e, err := scanExpense(r.queryRow(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("%w: %s", core.ErrExpenseNotFound, id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

func (r *SQLRepository) ListExpenses(ctx context.Context, ownerID string, f core.ExpenseFilter) ([]core.Expense, error) {
	var (
		where = []string{"owner_id = ?"}
		args  = []any{ownerID}
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if !f.From.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, r.dialect.timeValue(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "occurred_at <= ?")
		args = append(args, r.dialect.timeValue(f.To))
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY occurred_at DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// UpdateExpense replaces the mutable fields of an owner's expense.
func (r *SQLRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if !r.dialect.acceptsIDs(e.OwnerID, e.ID) {
		return core.Expense{}, fmt.Errorf("%w: %s", core.ErrExpenseNotFound, e.ID)
	}
	res, err := r.exec(ctx,
		`UPDATE expenses SET amount = ?, category = ?, description = ?, occurred_at = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		e.Amount, string(e.Category), e.Description,
		r.dialect.timeValue(e.Date), r.dialect.timeValue(e.UpdatedAt),
		e.ID, e.OwnerID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", e.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Expense{}, fmt.Errorf("%w: %s", core.ErrExpenseNotFound, e.ID)
	}
	return r.GetExpense(ctx, e.OwnerID, e.ID)
}

func (r *SQLRepository) DeleteExpense(ctx context.Context, ownerID, id string) error {
	if !r.dialect.acceptsIDs(ownerID, id) {
		return fmt.Errorf("%w: %s", core.ErrExpenseNotFound, id)
	}
	res, err := r.exec(ctx, `DELETE FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrExpenseNotFound, id)
	}

	slog.InfoContext(ctx, "Expense deleted",
		"backend", string(r.dialect),
		"id", id,
		"owner_id", ownerID)
	return nil
}

const userColumns = `id, email, name, password_hash, totp_secret, totp_enabled, created_at`

func scanUser(row rowScanner) (core.User, error) {
	var (
		u       core.User
		created dbTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.TOTPSecret, &u.TOTPEnabled, &created); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = created.Time
	return u, nil
}

func (r *SQLRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now().UTC()
	}
	_, err := r.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.TOTPSecret, u.TOTPEnabled, r.dialect.timeValue(u.CreatedAt))
	if isUniqueViolation(err) {
		return core.User{}, fmt.Errorf("create user %s: %w", u.Email, core.ErrEmailTaken)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	if !r.dialect.acceptsIDs(id) {
		return core.User{}, core.ErrUserNotFound
	}
	return r.getUser(ctx, "id", id)
}

func (r *SQLRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, "email", email)
}

func (r *SQLRepository) getUser(ctx context.Context, column, value string) (core.User, error) {
	u, err := scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by %s: %w", column, err)
	}
	return u, nil
}

func (r *SQLRepository) UpdateUserTOTP(ctx context.Context, id, secret string, enabled bool) error {
	if !r.dialect.acceptsIDs(id) {
		return fmt.Errorf("%w: %s", core.ErrUserNotFound, id)
	}
	res, err := r.exec(ctx, `UPDATE users SET totp_secret = ?, totp_enabled = ? WHERE id = ?`, secret, enabled, id)
	if err != nil {
		return fmt.Errorf("update totp for user %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", core.ErrUserNotFound, id)
	}
	return nil
}
