package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/core"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createUser(t *testing.T, repo *SQLRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Test",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func newExpense(owner, amount string, category core.Category, date time.Time) core.Expense {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	return core.Expense{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Amount:      decimal.RequireFromString(amount),
		Category:    category,
		Description: "desc " + amount,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestSQLRepository_ExpenseRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	owner := createUser(t, repo, "a@example.com")

	date := time.Date(2025, 3, 10, 8, 30, 15, 123456789, time.UTC)
	in := newExpense(owner.ID, "12.34", core.CategoryFood, date)
	_, err := repo.CreateExpense(ctx, in)
	require.NoError(t, err)

	got, err := repo.GetExpense(ctx, owner.ID, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, owner.ID, got.OwnerID)
	assert.True(t, got.Amount.Equal(in.Amount), "amount %s", got.Amount)
	assert.Equal(t, core.CategoryFood, got.Category)
	assert.Equal(t, "desc 12.34", got.Description)
	assert.True(t, got.Date.Equal(date), "date %s", got.Date)
}

func TestSQLRepository_OwnerScoping(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := createUser(t, repo, "alice@example.com")
	bob := createUser(t, repo, "bob@example.com")

	e := newExpense(alice.ID, "5", core.CategoryOther, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	_, err := repo.CreateExpense(ctx, e)
	require.NoError(t, err)

	_, err = repo.GetExpense(ctx, bob.ID, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	list, err := repo.ListExpenses(ctx, bob.ID, core.ExpenseFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	err = repo.DeleteExpense(ctx, bob.ID, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	stolen := e
	stolen.OwnerID = bob.ID
	_, err = repo.UpdateExpense(ctx, stolen)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLRepository_ListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	owner := createUser(t, repo, "a@example.com")

	dates := []time.Time{
		time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	for i, d := range dates {
		cat := core.CategoryFood
		if i == 1 {
			cat = core.CategoryHousing
		}
		_, err := repo.CreateExpense(ctx, newExpense(owner.ID, "1", cat, d))
		require.NoError(t, err)
	}

	all, err := repo.ListExpenses(ctx, owner.ID, core.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Date.Equal(dates[1]))
	assert.True(t, all[1].Date.Equal(dates[2]))
	assert.True(t, all[2].Date.Equal(dates[0]))

	food, err := repo.ListExpenses(ctx, owner.ID, core.ExpenseFilter{Category: core.CategoryFood})
	require.NoError(t, err)
	assert.Len(t, food, 2)

	ranged, err := repo.ListExpenses(ctx, owner.ID, core.ExpenseFilter{
		From: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
}

func TestSQLRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	owner := createUser(t, repo, "a@example.com")

	e := newExpense(owner.ID, "10", core.CategoryFood, time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC))
	_, err := repo.CreateExpense(ctx, e)
	require.NoError(t, err)

	e.Amount = decimal.RequireFromString("99.90")
	e.Category = core.CategoryShopping
	e.Description = "changed"
	e.Date = time.Date(2025, 2, 6, 10, 0, 0, 0, time.UTC)
	e.UpdatedAt = e.UpdatedAt.Add(time.Hour)
	updated, err := repo.UpdateExpense(ctx, e)
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(e.Amount))
	assert.Equal(t, core.CategoryShopping, updated.Category)
	assert.Equal(t, "changed", updated.Description)
	assert.True(t, updated.Date.Equal(e.Date))

	require.NoError(t, repo.DeleteExpense(ctx, owner.ID, e.ID))
	_, err = repo.GetExpense(ctx, owner.ID, e.ID)
	assert.ErrorIs(t, err, core.ErrExpenseNotFound)
}

func TestSQLRepository_Users(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := createUser(t, repo, "a@example.com")

	_, err := repo.CreateUser(ctx, core.User{ID: uuid.NewString(), Email: "a@example.com", Name: "Dup", PasswordHash: "x"})
	assert.ErrorIs(t, err, core.ErrEmailTaken)

	byEmail, err := repo.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.False(t, byEmail.TOTPEnabled)

	require.NoError(t, repo.UpdateUserTOTP(ctx, u.ID, "SECRET", true))
	byID, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "SECRET", byID.TOTPSecret)
	assert.True(t, byID.TOTPEnabled)

	_, err = repo.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateUserTOTP(ctx, uuid.NewString(), "", false), core.ErrNotFound)
}

func TestSQLRepository_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "again.db")
	first, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.SchemaVersion())
	require.NoError(t, first.Close())

	second, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, second.Ping(context.Background()))
	assert.Equal(t, uint(1), second.SchemaVersion())
	require.NoError(t, second.Close())
}

func TestSQLRepository_PostgresRejectsNonUUIDsAsNotFound(t *testing.T) {
	// no connection: malformed ids must be answered before any query runs
	repo := &SQLRepository{dialect: DialectPostgres, now: time.Now}
	ctx := context.Background()
	owner := uuid.NewString()

	_, err := repo.GetExpense(ctx, owner, "abc")
	assert.ErrorIs(t, err, core.ErrExpenseNotFound)
	_, err = repo.UpdateExpense(ctx, core.Expense{ID: "abc", OwnerID: owner})
	assert.ErrorIs(t, err, core.ErrExpenseNotFound)
	assert.ErrorIs(t, repo.DeleteExpense(ctx, owner, "abc"), core.ErrExpenseNotFound)
	_, err = repo.GetUserByID(ctx, "abc")
	assert.ErrorIs(t, err, core.ErrUserNotFound)
	assert.ErrorIs(t, repo.UpdateUserTOTP(ctx, "abc", "", false), core.ErrUserNotFound)
}

func TestDialect_AcceptsIDs(t *testing.T) {
	id := uuid.NewString()
	assert.True(t, DialectSQLite.acceptsIDs("abc", id))
	assert.True(t, DialectPostgres.acceptsIDs(id, id))
	assert.False(t, DialectPostgres.acceptsIDs(id, "abc"))
	assert.False(t, DialectPostgres.acceptsIDs(""))
}

func TestDialect_Rebind(t *testing.T) {
	q := `SELECT * FROM t WHERE a = ? AND b = ?`
	assert.Equal(t, q, DialectSQLite.rebind(q))
	assert.Equal(t, `SELECT * FROM t WHERE a = $1 AND b = $2`, DialectPostgres.rebind(q))
}

func TestDBTime_Scan(t *testing.T) {
	want := time.Date(2025, 3, 14, 18, 0, 0, 5, time.UTC)

	var fromText dbTime
	require.NoError(t, fromText.Scan(DialectSQLite.timeValue(want)))
	assert.True(t, fromText.Equal(want))

	var fromBytes dbTime
	require.NoError(t, fromBytes.Scan([]byte("2025-03-14T19:00:00.000000005+01:00")))
	assert.True(t, fromBytes.Equal(want))

	var native dbTime
	require.NoError(t, native.Scan(want))
	assert.True(t, native.Equal(want))

	var bad dbTime
	assert.Error(t, bad.Scan(42))
}
