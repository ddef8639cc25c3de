package expenses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spendloop/spendloop/internal/apperror"
	"github.com/spendloop/spendloop/internal/fieldcrypt"
)

// Filter narrows a list or count query. Zero values mean "no constraint".
type Filter struct {
	Category  Category
	StartDate string
	EndDate   string
}

// Repository defines the data access contract for expenses. All queries are
// scoped by user id; there is no way to read another user's rows.
type Repository interface {
	Create(ctx context.Context, expense *Expense) error
	FindByID(ctx context.Context, userID, id string) (*Expense, error)
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string, f Filter, offset, limit int) ([]Expense, error)
	Count(ctx context.Context, userID string, f Filter) (int, error)
	MonthlySummary(ctx context.Context, userID, startDate, endDate string) ([]MonthlyTotal, error)
	CategorySummary(ctx context.Context, userID string) ([]CategoryTotal, error)
}

// repository implements Repository with hand-written MariaDB queries.
// Descriptions pass through the field codec on the way in and out, so the
// database only ever sees ciphertext.
type repository struct {
	db    *sql.DB
	codec *fieldcrypt.Codec
}

// NewRepository creates an expense repository backed by the given DB pool
// and field codec.
func NewRepository(db *sql.DB, codec *fieldcrypt.Codec) Repository {
	return &repository{db: db, codec: codec}
}

// Create inserts the expense with an encrypted description.
func (r *repository) Create(ctx context.Context, expense *Expense) error {
	ciphertext, err := r.codec.Encrypt(expense.Description)
	if err != nil {
		return fmt.Errorf("encrypting description: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, amount, category, description, expense_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		expense.UserID,
		expense.Amount,
		expense.Category,
		ciphertext,
		expense.Date,
		expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting expense: %w", err)
	}
	return nil
}

// expenseColumns is the SELECT list shared by the row queries. The date is
// formatted in SQL so scanning stays string-typed regardless of the
// driver's parseTime setting.
const expenseColumns = `id, user_id, amount, category, description,
	       DATE_FORMAT(expense_date, '%Y-%m-%d'), created_at`

// scanExpense reads one row and decrypts its description.
func (r *repository) scanExpense(scan func(...any) error) (*Expense, error) {
	var e Expense
	var ciphertext string
	if err := scan(
		&e.ID,
		&e.UserID,
		&e.Amount,
		&e.Category,
		&ciphertext,
		&e.Date,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}

	plaintext, err := r.codec.Decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypting description: %w", err)
	}
	e.Description = plaintext
	return &e, nil
}

// FindByID retrieves one expense owned by the user.
func (r *repository) FindByID(ctx context.Context, userID, id string) (*Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	expense, err := r.scanExpense(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("expense not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying expense: %w", err)
	}
	return expense, nil
}

// Delete removes one expense owned by the user.
func (r *repository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("expense not found")
	}
	return nil
}

// filterClause builds the WHERE tail and args for a filter, always starting
// from the user scope.
func filterClause(userID string, f Filter) (string, []any) {
	var sb strings.Builder
	sb.WriteString("user_id = ?")
	args := []any{userID}

	if f.Category != "" {
		sb.WriteString(" AND category = ?")
		args = append(args, f.Category)
	}
	if f.StartDate != "" && f.EndDate != "" {
		sb.WriteString(" AND expense_date BETWEEN ? AND ?")
		args = append(args, f.StartDate, f.EndDate)
	}
	return sb.String(), args
}

// List returns one page of the user's expenses, newest expense date first.
func (r *repository) List(ctx context.Context, userID string, f Filter, offset, limit int) ([]Expense, error) {
	where, args := filterClause(userID, f)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE `+where+`
		 ORDER BY expense_date DESC, created_at DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	defer rows.Close()

	expenses := []Expense{}
	for rows.Next() {
		expense, err := r.scanExpense(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}
		expenses = append(expenses, *expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expenses: %w", err)
	}
	return expenses, nil
}

// Count returns the total row count for a filter, for pagination metadata.
func (r *repository) Count(ctx context.Context, userID string, f Filter) (int, error) {
	where, args := filterClause(userID, f)

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE `+where,
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting expenses: %w", err)
	}
	return count, nil
}

// MonthlySummary aggregates total spend per calendar month in the range.
func (r *repository) MonthlySummary(ctx context.Context, userID, startDate, endDate string) ([]MonthlyTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT YEAR(expense_date), MONTH(expense_date), SUM(amount)
		 FROM expenses
		 WHERE user_id = ? AND expense_date BETWEEN ? AND ?
		 GROUP BY YEAR(expense_date), MONTH(expense_date)
		 ORDER BY YEAR(expense_date), MONTH(expense_date)`,
		userID, startDate, endDate,
	)
	if err != nil {
		return nil, fmt.Errorf("querying monthly summary: %w", err)
	}
	defer rows.Close()

	totals := []MonthlyTotal{}
	for rows.Next() {
		var t MonthlyTotal
		if err := rows.Scan(&t.Year, &t.Month, &t.Total); err != nil {
			return nil, fmt.Errorf("scanning monthly summary: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating monthly summary: %w", err)
	}
	return totals, nil
}

// CategorySummary aggregates total spend per category over all time.
func (r *repository) CategorySummary(ctx context.Context, userID string) ([]CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount)
		 FROM expenses
		 WHERE user_id = ?
		 GROUP BY category
		 ORDER BY category`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying category summary: %w", err)
	}
	defer rows.Close()

	totals := []CategoryTotal{}
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.Category, &t.Total); err != nil {
			return nil, fmt.Errorf("scanning category summary: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category summary: %w", err)
	}
	return totals, nil
}
