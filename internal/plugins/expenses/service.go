package expenses

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spendloop/spendloop/internal/apperror"
	"github.com/spendloop/spendloop/internal/sanitize"
)

// Pagination bounds. Size is clamped rather than rejected.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// maxDescriptionLen bounds the stored description length (plaintext).
const maxDescriptionLen = 255

// Service is the business logic for expense records. Every operation takes
// the authenticated username and resolves it to the owning local user, so a
// request can never touch another user's rows.
type Service interface {
	List(ctx context.Context, username string, q ListQuery) (*Page, error)
	Create(ctx context.Context, username string, input CreateInput) (*Expense, error)
	Get(ctx context.Context, username, id string) (*Expense, error)
	Delete(ctx context.Context, username, id string) error
	MonthlySummary(ctx context.Context, username, startDate, endDate string) ([]MonthlyTotal, error)
	CategorySummary(ctx context.Context, username string) ([]CategoryTotal, error)
}

type service struct {
	repo  Repository
	users UserFinder
}

// NewService creates the expense service.
func NewService(repo Repository, users UserFinder) Service {
	return &service{repo: repo, users: users}
}

// List returns one page of the user's expenses, applying the optional
// category and date-range filters.
func (s *service) List(ctx context.Context, username string, q ListQuery) (*Page, error) {
	userID, err := s.users.FindIDByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	filter, err := buildFilter(q)
	if err != nil {
		return nil, err
	}

	page := q.Page
	if page < 0 {
		page = 0
	}
	size := q.Size
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	total, err := s.repo.Count(ctx, userID, filter)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	content, err := s.repo.List(ctx, userID, filter, page*size, size)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + size - 1) / size
	}

	return &Page{
		Content:       content,
		Number:        page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
	}, nil
}

// Create validates and persists a new expense for the user.
func (s *service) Create(ctx context.Context, username string, input CreateInput) (*Expense, error) {
	userID, err := s.users.FindIDByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if input.Amount <= 0 {
		return nil, apperror.NewInvalidInput("amount must be positive")
	}
	if !ValidCategory(input.Category) {
		return nil, apperror.NewInvalidInput("unknown expense category")
	}
	if _, err := time.Parse(dateLayout, input.Date); err != nil {
		return nil, apperror.NewInvalidInput("date must be in YYYY-MM-DD format")
	}

	description := sanitize.Text(input.Description)
	if description == "" {
		return nil, apperror.NewInvalidInput("description is required")
	}
	if len(description) > maxDescriptionLen {
		return nil, apperror.NewInvalidInput("description must be at most 255 characters")
	}

	expense := &Expense{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      input.Amount,
		Category:    Category(input.Category),
		Description: description,
		Date:        input.Date,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating expense: %w", err))
	}
	return expense, nil
}

// Get returns one of the user's expenses by id.
func (s *service) Get(ctx context.Context, username, id string) (*Expense, error) {
	userID, err := s.users.FindIDByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, userID, id)
}

// Delete removes one of the user's expenses by id.
func (s *service) Delete(ctx context.Context, username, id string) error {
	userID, err := s.users.FindIDByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID, id)
}

// MonthlySummary aggregates the user's spend per month over a required
// date range.
func (s *service) MonthlySummary(ctx context.Context, username, startDate, endDate string) ([]MonthlyTotal, error) {
	userID, err := s.users.FindIDByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := validateRange(startDate, endDate, true); err != nil {
		return nil, err
	}

	totals, err := s.repo.MonthlySummary(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return totals, nil
}

// CategorySummary aggregates the user's spend per category over all time.
func (s *service) CategorySummary(ctx context.Context, username string) ([]CategoryTotal, error) {
	userID, err := s.users.FindIDByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	totals, err := s.repo.CategorySummary(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return totals, nil
}

// buildFilter validates the list filters and converts them to a repository
// filter. The date pair only applies when both ends are present.
func buildFilter(q ListQuery) (Filter, error) {
	var f Filter

	if q.Category != "" {
		if !ValidCategory(q.Category) {
			return f, apperror.NewInvalidInput("unknown expense category")
		}
		f.Category = Category(q.Category)
	}

	if q.StartDate != "" && q.EndDate != "" {
		if err := validateRange(q.StartDate, q.EndDate, false); err != nil {
			return f, err
		}
		f.StartDate = q.StartDate
		f.EndDate = q.EndDate
	}

	return f, nil
}

// validateRange checks a date range: both ends parse and start is not after
// end. When required is set, missing ends are an error too.
func validateRange(startDate, endDate string, required bool) error {
	if startDate == "" || endDate == "" {
		if required {
			return apperror.NewInvalidInput("startDate and endDate are required")
		}
		return nil
	}

	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return apperror.NewInvalidInput("startDate must be in YYYY-MM-DD format")
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return apperror.NewInvalidInput("endDate must be in YYYY-MM-DD format")
	}
	if start.After(end) {
		return apperror.NewInvalidInput("startDate cannot be after endDate")
	}
	return nil
}
