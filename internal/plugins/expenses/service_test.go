package expenses

import (
	"context"
	"errors"
	"testing"

	"github.com/spendloop/spendloop/internal/apperror"
)

// --- Mock Repository ---

// mockRepo implements Repository for testing.
type mockRepo struct {
	createFn          func(ctx context.Context, expense *Expense) error
	findByIDFn        func(ctx context.Context, userID, id string) (*Expense, error)
	deleteFn          func(ctx context.Context, userID, id string) error
	listFn            func(ctx context.Context, userID string, f Filter, offset, limit int) ([]Expense, error)
	countFn           func(ctx context.Context, userID string, f Filter) (int, error)
	monthlySummaryFn  func(ctx context.Context, userID, startDate, endDate string) ([]MonthlyTotal, error)
	categorySummaryFn func(ctx context.Context, userID string) ([]CategoryTotal, error)
}

func (m *mockRepo) Create(ctx context.Context, expense *Expense) error {
	if m.createFn != nil {
		return m.createFn(ctx, expense)
	}
	return nil
}

func (m *mockRepo) FindByID(ctx context.Context, userID, id string) (*Expense, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, userID, id)
	}
	return nil, apperror.NewNotFound("expense not found")
}

func (m *mockRepo) Delete(ctx context.Context, userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockRepo) List(ctx context.Context, userID string, f Filter, offset, limit int) ([]Expense, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, f, offset, limit)
	}
	return []Expense{}, nil
}

func (m *mockRepo) Count(ctx context.Context, userID string, f Filter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, userID, f)
	}
	return 0, nil
}

func (m *mockRepo) MonthlySummary(ctx context.Context, userID, startDate, endDate string) ([]MonthlyTotal, error) {
	if m.monthlySummaryFn != nil {
		return m.monthlySummaryFn(ctx, userID, startDate, endDate)
	}
	return []MonthlyTotal{}, nil
}

func (m *mockRepo) CategorySummary(ctx context.Context, userID string) ([]CategoryTotal, error) {
	if m.categorySummaryFn != nil {
		return m.categorySummaryFn(ctx, userID)
	}
	return []CategoryTotal{}, nil
}

// --- Mock UserFinder ---

// mockUserFinder implements UserFinder for testing.
type mockUserFinder struct {
	findIDFn func(ctx context.Context, username string) (string, error)
}

func (m *mockUserFinder) FindIDByUsername(ctx context.Context, username string) (string, error) {
	if m.findIDFn != nil {
		return m.findIDFn(ctx, username)
	}
	return "user-1", nil
}

// --- Test Helpers ---

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func validCreateInput() CreateInput {
	return CreateInput{
		Amount:      42.50,
		Category:    "FOOD",
		Description: "Groceries",
		Date:        "2026-08-15",
	}
}

// --- Create Tests ---

func TestCreate_Success(t *testing.T) {
	var created *Expense
	repo := &mockRepo{
		createFn: func(ctx context.Context, expense *Expense) error {
			created = expense
			return nil
		},
	}

	svc := NewService(repo, &mockUserFinder{})
	expense, err := svc.Create(context.Background(), "alice", validCreateInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("expected Create to be called")
	}
	if expense.ID == "" {
		t.Error("expected a generated expense ID")
	}
	if expense.UserID != "user-1" {
		t.Errorf("expected ownership by user-1, got %s", expense.UserID)
	}
	if expense.Category != CategoryFood {
		t.Errorf("expected category FOOD, got %s", expense.Category)
	}
	if expense.CreatedAt.IsZero() {
		t.Error("expected creation timestamp set")
	}
}

func TestCreate_SanitizesDescription(t *testing.T) {
	var created *Expense
	repo := &mockRepo{
		createFn: func(ctx context.Context, expense *Expense) error {
			created = expense
			return nil
		},
	}

	svc := NewService(repo, &mockUserFinder{})
	input := validCreateInput()
	input.Description = "<b>Dinner</b> out "
	if _, err := svc.Create(context.Background(), "alice", input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Description != "Dinner out" {
		t.Errorf("expected markup stripped, got %q", created.Description)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(&mockRepo{}, &mockUserFinder{})

	cases := map[string]func(*CreateInput){
		"zero amount":       func(i *CreateInput) { i.Amount = 0 },
		"negative amount":   func(i *CreateInput) { i.Amount = -5 },
		"unknown category":  func(i *CreateInput) { i.Category = "GAMBLING" },
		"bad date":          func(i *CreateInput) { i.Date = "15/08/2026" },
		"empty description": func(i *CreateInput) { i.Description = "" },
		"markup-only":       func(i *CreateInput) { i.Description = "<script></script>" },
	}
	for name, mutate := range cases {
		input := validCreateInput()
		mutate(&input)
		if _, err := svc.Create(context.Background(), "alice", input); err == nil {
			t.Errorf("%s: expected validation failure", name)
		}
	}
}

func TestCreate_UnknownUser(t *testing.T) {
	finder := &mockUserFinder{
		findIDFn: func(ctx context.Context, username string) (string, error) {
			return "", apperror.NewNotFound("user not found")
		},
	}

	svc := NewService(&mockRepo{}, finder)
	_, err := svc.Create(context.Background(), "ghost", validCreateInput())
	assertAppError(t, err, 404)
}

// --- List Tests ---

func TestList_Pagination(t *testing.T) {
	var gotOffset, gotLimit int
	repo := &mockRepo{
		countFn: func(ctx context.Context, userID string, f Filter) (int, error) {
			return 45, nil
		},
		listFn: func(ctx context.Context, userID string, f Filter, offset, limit int) ([]Expense, error) {
			gotOffset, gotLimit = offset, limit
			return []Expense{{ID: "e1"}}, nil
		},
	}

	svc := NewService(repo, &mockUserFinder{})
	page, err := svc.List(context.Background(), "alice", ListQuery{Page: 2, Size: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotOffset != 20 || gotLimit != 10 {
		t.Errorf("expected offset 20 limit 10, got %d/%d", gotOffset, gotLimit)
	}
	if page.TotalElements != 45 || page.TotalPages != 5 {
		t.Errorf("unexpected pagination metadata: %+v", page)
	}
	if page.Number != 2 || page.Size != 10 {
		t.Errorf("unexpected page echo: %+v", page)
	}
}

func TestList_DefaultsAndClamping(t *testing.T) {
	var gotLimit int
	repo := &mockRepo{
		listFn: func(ctx context.Context, userID string, f Filter, offset, limit int) ([]Expense, error) {
			gotLimit = limit
			return []Expense{}, nil
		},
	}

	svc := NewService(repo, &mockUserFinder{})
	if _, err := svc.List(context.Background(), "alice", ListQuery{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != defaultPageSize {
		t.Errorf("expected default page size, got %d", gotLimit)
	}

	if _, err := svc.List(context.Background(), "alice", ListQuery{Size: 10_000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != maxPageSize {
		t.Errorf("expected clamped page size, got %d", gotLimit)
	}
}

func TestList_Filters(t *testing.T) {
	var gotFilter Filter
	repo := &mockRepo{
		listFn: func(ctx context.Context, userID string, f Filter, offset, limit int) ([]Expense, error) {
			gotFilter = f
			return []Expense{}, nil
		},
	}

	svc := NewService(repo, &mockUserFinder{})
	_, err := svc.List(context.Background(), "alice", ListQuery{
		Category:  "BILLS",
		StartDate: "2026-01-01",
		EndDate:   "2026-06-30",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFilter.Category != CategoryBills {
		t.Errorf("expected category filter, got %+v", gotFilter)
	}
	if gotFilter.StartDate != "2026-01-01" || gotFilter.EndDate != "2026-06-30" {
		t.Errorf("expected date filter, got %+v", gotFilter)
	}
}

func TestList_RejectsBadFilters(t *testing.T) {
	svc := NewService(&mockRepo{}, &mockUserFinder{})

	_, err := svc.List(context.Background(), "alice", ListQuery{Category: "NOPE"})
	assertAppError(t, err, 400)

	_, err = svc.List(context.Background(), "alice", ListQuery{
		StartDate: "2026-06-30",
		EndDate:   "2026-01-01",
	})
	assertAppError(t, err, 400)
}

// --- Get / Delete Tests ---

func TestGet_ScopedToOwner(t *testing.T) {
	repo := &mockRepo{
		findByIDFn: func(ctx context.Context, userID, id string) (*Expense, error) {
			if userID != "user-1" {
				t.Errorf("expected lookup scoped to user-1, got %s", userID)
			}
			if id != "e1" {
				t.Errorf("expected id e1, got %s", id)
			}
			return &Expense{ID: "e1", UserID: userID}, nil
		},
	}

	svc := NewService(repo, &mockUserFinder{})
	expense, err := svc.Get(context.Background(), "alice", "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expense.ID != "e1" {
		t.Errorf("unexpected expense: %+v", expense)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo := &mockRepo{
		deleteFn: func(ctx context.Context, userID, id string) error {
			return apperror.NewNotFound("expense not found")
		},
	}

	svc := NewService(repo, &mockUserFinder{})
	err := svc.Delete(context.Background(), "alice", "missing")
	assertAppError(t, err, 404)
}

// --- Summary Tests ---

func TestMonthlySummary_RequiresRange(t *testing.T) {
	svc := NewService(&mockRepo{}, &mockUserFinder{})

	_, err := svc.MonthlySummary(context.Background(), "alice", "", "")
	assertAppError(t, err, 400)

	_, err = svc.MonthlySummary(context.Background(), "alice", "2026-06-30", "2026-01-01")
	assertAppError(t, err, 400)
}

func TestMonthlySummary_Success(t *testing.T) {
	repo := &mockRepo{
		monthlySummaryFn: func(ctx context.Context, userID, startDate, endDate string) ([]MonthlyTotal, error) {
			return []MonthlyTotal{{Year: 2026, Month: 3, Total: 120.50}}, nil
		},
	}

	svc := NewService(repo, &mockUserFinder{})
	totals, err := svc.MonthlySummary(context.Background(), "alice", "2026-01-01", "2026-06-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(totals) != 1 || totals[0].Total != 120.50 {
		t.Errorf("unexpected totals: %+v", totals)
	}
}

func TestCategorySummary_Success(t *testing.T) {
	repo := &mockRepo{
		categorySummaryFn: func(ctx context.Context, userID string) ([]CategoryTotal, error) {
			return []CategoryTotal{
				{Category: CategoryFood, Total: 200},
				{Category: CategoryBills, Total: 550.25},
			}, nil
		},
	}

	svc := NewService(repo, &mockUserFinder{})
	totals, err := svc.CategorySummary(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(totals) != 2 {
		t.Errorf("unexpected totals: %+v", totals)
	}
}
