package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	Users    map[string]*domain.User
	ByID     map[uuid.UUID]*domain.User
	CreateFn func(authID, email string, name *string) (*domain.User, error)
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*domain.User),
		ByID:  make(map[uuid.UUID]*domain.User),
	}
}

// GetByID retrieves a user by ID
func (m *MockUserRepository) GetByID(id uuid.UUID) (*domain.User, error) {
	if user, ok := m.ByID[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetByAuthID retrieves a user by auth provider ID
func (m *MockUserRepository) GetByAuthID(authID string) (*domain.User, error) {
	if user, ok := m.Users[authID]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// CreateOrGetByAuthID creates or retrieves a user by auth provider ID
func (m *MockUserRepository) CreateOrGetByAuthID(authID, email string, name *string) (*domain.User, error) {
	if m.CreateFn != nil {
		return m.CreateFn(authID, email, name)
	}
	if user, ok := m.Users[authID]; ok {
		return user, nil
	}
	user := &domain.User{
		ID:       uuid.New(),
		AuthID:   authID,
		Email:    email,
		Name:     name,
		Currency: "USD",
	}
	m.Users[authID] = user
	m.ByID[user.ID] = user
	return user, nil
}

// AddUser adds a user to the mock repository (helper for tests)
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.Users[user.AuthID] = user
	m.ByID[user.ID] = user
}

// MockCategoryRepository is a mock implementation of domain.CategoryRepository
type MockCategoryRepository struct {
	Categories map[int32]*domain.Category
}

// NewMockCategoryRepository creates a new MockCategoryRepository
func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{
		Categories: make(map[int32]*domain.Category),
	}
}

// GetByID retrieves a category by ID scoped to its owner
func (m *MockCategoryRepository) GetByID(userID uuid.UUID, id int32) (*domain.Category, error) {
	if category, ok := m.Categories[id]; ok && category.UserID == userID {
		return category, nil
	}
	return nil, domain.ErrCategoryNotFound
}

// GetAllByUser retrieves all categories for a user
func (m *MockCategoryRepository) GetAllByUser(userID uuid.UUID) ([]*domain.Category, error) {
	var categories []*domain.Category
	for _, category := range m.Categories {
		if category.UserID == userID {
			categories = append(categories, category)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

// AddCategory adds a category to the mock repository (helper for tests)
func (m *MockCategoryRepository) AddCategory(category *domain.Category) {
	m.Categories[category.ID] = category
}

// MockTransactionRepository is a mock implementation of domain.TransactionRepository
type MockTransactionRepository struct {
	Transactions map[int32]*domain.Transaction
	NextID       int32
	SumFn        func(userID uuid.UUID, categoryID int32, startDate, endDate time.Time) (decimal.Decimal, error)
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		Transactions: make(map[int32]*domain.Transaction),
		NextID:       1,
	}
}

// GetByID retrieves a transaction by ID
func (m *MockTransactionRepository) GetByID(userID uuid.UUID, id int32) (*domain.Transaction, error) {
	if t, ok := m.Transactions[id]; ok && t.UserID == userID {
		return t, nil
	}
	return nil, domain.ErrTransactionNotFound
}

// GetByUser retrieves transactions for a user with filters and pagination
func (m *MockTransactionRepository) GetByUser(userID uuid.UUID, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	var matched []*domain.Transaction
	for _, t := range m.Transactions {
		if t.UserID != userID {
			continue
		}
		if filters.CategoryID != nil && t.CategoryID != *filters.CategoryID {
			continue
		}
		if filters.AccountType != nil && t.AccountType != *filters.AccountType {
			continue
		}
		if filters.StartDate != nil && t.TransactionDate.Before(*filters.StartDate) {
			continue
		}
		if filters.EndDate != nil && t.TransactionDate.After(*filters.EndDate) {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].TransactionDate.Equal(matched[j].TransactionDate) {
			return matched[i].TransactionDate.After(matched[j].TransactionDate)
		}
		return matched[i].ID > matched[j].ID
	})

	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}

	totalItems := int64(len(matched))
	totalPages := int32((totalItems + int64(pageSize) - 1) / int64(pageSize))

	start := (page - 1) * pageSize
	if int(start) > len(matched) {
		start = int32(len(matched))
	}
	end := start + pageSize
	if int(end) > len(matched) {
		end = int32(len(matched))
	}

	return &domain.PaginatedTransactions{
		Data:       matched[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}, nil
}

// SumExpensesByCategoryAndRange sums transaction amounts for a category
// inside the inclusive date range
func (m *MockTransactionRepository) SumExpensesByCategoryAndRange(userID uuid.UUID, categoryID int32, startDate, endDate time.Time) (decimal.Decimal, error) {
	if m.SumFn != nil {
		return m.SumFn(userID, categoryID, startDate, endDate)
	}
	sum := decimal.Zero
	for _, t := range m.Transactions {
		if t.UserID != userID || t.CategoryID != categoryID {
			continue
		}
		if t.TransactionDate.Before(startDate) || t.TransactionDate.After(endDate) {
			continue
		}
		sum = sum.Add(t.Amount)
	}
	return sum, nil
}

// SetReceiptKey sets or clears the receipt object key on a transaction
func (m *MockTransactionRepository) SetReceiptKey(userID uuid.UUID, id int32, key *string) (*domain.Transaction, error) {
	t, ok := m.Transactions[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrTransactionNotFound
	}
	t.ReceiptKey = key
	return t, nil
}

// AddTransaction adds a transaction to the mock repository (helper for tests)
func (m *MockTransactionRepository) AddTransaction(t *domain.Transaction) {
	if t.ID == 0 {
		t.ID = m.NextID
		m.NextID++
	} else if t.ID >= m.NextID {
		m.NextID = t.ID + 1
	}
	m.Transactions[t.ID] = t
}

// MockBudgetRepository is a mock implementation of domain.BudgetRepository
type MockBudgetRepository struct {
	Budgets map[int32]*domain.Budget
	NextID  int32
}

// NewMockBudgetRepository creates a new MockBudgetRepository
func NewMockBudgetRepository() *MockBudgetRepository {
	return &MockBudgetRepository{
		Budgets: make(map[int32]*domain.Budget),
		NextID:  1,
	}
}

// Create creates a new budget
func (m *MockBudgetRepository) Create(budget *domain.Budget) (*domain.Budget, error) {
	budget.ID = m.NextID
	m.NextID++
	budget.CreatedAt = time.Now()
	budget.UpdatedAt = budget.CreatedAt
	m.Budgets[budget.ID] = budget
	return budget, nil
}

// GetByID retrieves a budget by ID
func (m *MockBudgetRepository) GetByID(userID uuid.UUID, id int32) (*domain.Budget, error) {
	if b, ok := m.Budgets[id]; ok && b.UserID == userID {
		return b, nil
	}
	return nil, domain.ErrBudgetNotFound
}

// GetAllByUser retrieves all budgets for a user
func (m *MockBudgetRepository) GetAllByUser(userID uuid.UUID) ([]*domain.Budget, error) {
	var budgets []*domain.Budget
	for _, b := range m.Budgets {
		if b.UserID == userID {
			budgets = append(budgets, b)
		}
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].ID < budgets[j].ID })
	return budgets, nil
}

// Update updates a budget's limit and alert threshold
func (m *MockBudgetRepository) Update(userID uuid.UUID, id int32, data *domain.UpdateBudgetData) (*domain.Budget, error) {
	b, ok := m.Budgets[id]
	if !ok || b.UserID != userID {
		return nil, domain.ErrBudgetNotFound
	}
	b.LimitAmount = data.LimitAmount
	b.AlertThreshold = data.AlertThreshold
	b.UpdatedAt = time.Now()
	return b, nil
}

// Delete removes a budget
func (m *MockBudgetRepository) Delete(userID uuid.UUID, id int32) error {
	b, ok := m.Budgets[id]
	if !ok || b.UserID != userID {
		return domain.ErrBudgetNotFound
	}
	delete(m.Budgets, id)
	return nil
}

// FindOverlapping finds a budget of the same period granularity whose window
// intersects the given one
func (m *MockBudgetRepository) FindOverlapping(userID uuid.UUID, categoryID int32, period domain.BudgetPeriod, startDate, endDate time.Time) (*domain.Budget, error) {
	for _, b := range m.Budgets {
		if b.UserID != userID || b.CategoryID != categoryID || b.Period != period {
			continue
		}
		if !startDate.After(b.EndDate) && !b.StartDate.After(endDate) {
			return b, nil
		}
	}
	return nil, domain.ErrBudgetNotFound
}

// SetSpent overwrites a budget's running spent total
func (m *MockBudgetRepository) SetSpent(userID uuid.UUID, id int32, spent decimal.Decimal) (*domain.Budget, error) {
	b, ok := m.Budgets[id]
	if !ok || b.UserID != userID {
		return nil, domain.ErrBudgetNotFound
	}
	b.Spent = spent
	b.UpdatedAt = time.Now()
	return b, nil
}

// AddBudget adds a budget to the mock repository (helper for tests)
func (m *MockBudgetRepository) AddBudget(budget *domain.Budget) {
	if budget.ID == 0 {
		budget.ID = m.NextID
		m.NextID++
	} else if budget.ID >= m.NextID {
		m.NextID = budget.ID + 1
	}
	m.Budgets[budget.ID] = budget
}

// SentNotification records one dispatched notification
type SentNotification struct {
	UserID       uuid.UUID
	Notification domain.Notification
}

// MockDispatcher is a mock implementation of domain.Dispatcher that records
// every notification it is asked to deliver
type MockDispatcher struct {
	Sent      []SentNotification
	NotifyErr error
}

// NewMockDispatcher creates a new MockDispatcher
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

// Notify records the notification and returns the configured error, if any
func (m *MockDispatcher) Notify(userID uuid.UUID, n domain.Notification) error {
	m.Sent = append(m.Sent, SentNotification{UserID: userID, Notification: n})
	return m.NotifyErr
}

// MemoryLedgerStore is an in-memory implementation of domain.LedgerStore.
// WithTransaction snapshots all state before running fn and restores the
// snapshot when fn fails, mimicking a database rollback. The per-method Err
// fields inject failures mid-transaction.
type MemoryLedgerStore struct {
	Transactions map[int32]*domain.Transaction
	Budgets      map[int32]*domain.Budget
	Balances     map[uuid.UUID]map[domain.BalanceField]decimal.Decimal
	NextID       int32

	InsertErr               error
	UpdateErr               error
	DeleteErr               error
	IncrementBalanceErr     error
	IncrementBudgetSpentErr error
	SetAlertFlagErr         error

	// BeforeBudgetIncrement runs just before a budget increment, after the
	// covering budgets were read. It lets tests interleave a concurrent
	// commit between the read and the locked update.
	BeforeBudgetIncrement func(budgetID int32)
}

// NewMemoryLedgerStore creates a new MemoryLedgerStore
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		Transactions: make(map[int32]*domain.Transaction),
		Budgets:      make(map[int32]*domain.Budget),
		Balances:     make(map[uuid.UUID]map[domain.BalanceField]decimal.Decimal),
		NextID:       1,
	}
}

// WithTransaction runs fn atomically against the in-memory state
func (m *MemoryLedgerStore) WithTransaction(ctx context.Context, fn func(domain.LedgerStore) error) error {
	transactions := make(map[int32]*domain.Transaction, len(m.Transactions))
	for id, t := range m.Transactions {
		c := *t
		transactions[id] = &c
	}
	budgets := make(map[int32]*domain.Budget, len(m.Budgets))
	for id, b := range m.Budgets {
		budgets[id] = copyBudget(b)
	}
	balances := make(map[uuid.UUID]map[domain.BalanceField]decimal.Decimal, len(m.Balances))
	for userID, fields := range m.Balances {
		c := make(map[domain.BalanceField]decimal.Decimal, len(fields))
		for field, v := range fields {
			c[field] = v
		}
		balances[userID] = c
	}
	nextID := m.NextID

	if err := fn(m); err != nil {
		m.Transactions = transactions
		m.Budgets = budgets
		m.Balances = balances
		m.NextID = nextID
		return err
	}
	return nil
}

// InsertTransaction inserts a new transaction row
func (m *MemoryLedgerStore) InsertTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	row := *t
	row.ID = m.NextID
	m.NextID++
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	m.Transactions[row.ID] = &row
	c := row
	return &c, nil
}

// GetTransactionForUpdate retrieves a transaction row with a row lock
func (m *MemoryLedgerStore) GetTransactionForUpdate(ctx context.Context, userID uuid.UUID, id int32) (*domain.Transaction, error) {
	t, ok := m.Transactions[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrTransactionNotFound
	}
	c := *t
	return &c, nil
}

// UpdateTransactionRow replaces an existing transaction row
func (m *MemoryLedgerStore) UpdateTransactionRow(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	existing, ok := m.Transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return nil, domain.ErrTransactionNotFound
	}
	row := *t
	row.CreatedAt = existing.CreatedAt
	row.UpdatedAt = time.Now()
	m.Transactions[row.ID] = &row
	c := row
	return &c, nil
}

// DeleteTransactionRow removes a transaction row
func (m *MemoryLedgerStore) DeleteTransactionRow(ctx context.Context, userID uuid.UUID, id int32) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	t, ok := m.Transactions[id]
	if !ok || t.UserID != userID {
		return domain.ErrTransactionNotFound
	}
	delete(m.Transactions, id)
	return nil
}

// IncrementBalance adds delta to one of the user's balance columns
func (m *MemoryLedgerStore) IncrementBalance(ctx context.Context, userID uuid.UUID, field domain.BalanceField, delta decimal.Decimal) error {
	if m.IncrementBalanceErr != nil {
		return m.IncrementBalanceErr
	}
	fields, ok := m.Balances[userID]
	if !ok {
		fields = make(map[domain.BalanceField]decimal.Decimal)
		m.Balances[userID] = fields
	}
	fields[field] = fields[field].Add(delta)
	return nil
}

// FindCoveringBudgets returns the budgets for the category whose window
// covers the given date
func (m *MemoryLedgerStore) FindCoveringBudgets(ctx context.Context, userID uuid.UUID, categoryID int32, date time.Time) ([]*domain.Budget, error) {
	var covering []*domain.Budget
	for _, b := range m.Budgets {
		if b.UserID == userID && b.CategoryID == categoryID && b.Covers(date) {
			covering = append(covering, copyBudget(b))
		}
	}
	sort.Slice(covering, func(i, j int) bool { return covering[i].ID < covering[j].ID })
	return covering, nil
}

// IncrementBudgetSpent adds delta to a budget's spent total and returns the
// updated row
func (m *MemoryLedgerStore) IncrementBudgetSpent(ctx context.Context, budgetID int32, delta decimal.Decimal) (*domain.Budget, error) {
	if m.IncrementBudgetSpentErr != nil {
		return nil, m.IncrementBudgetSpentErr
	}
	if m.BeforeBudgetIncrement != nil {
		m.BeforeBudgetIncrement(budgetID)
	}
	b, ok := m.Budgets[budgetID]
	if !ok {
		return nil, domain.ErrBudgetNotFound
	}
	b.Spent = b.Spent.Add(delta)
	return copyBudget(b), nil
}

// SetAlertFlag latches an alert timestamp; an already-set flag is left alone
func (m *MemoryLedgerStore) SetAlertFlag(ctx context.Context, budgetID int32, kind domain.AlertKind, at time.Time) error {
	if m.SetAlertFlagErr != nil {
		return m.SetAlertFlagErr
	}
	b, ok := m.Budgets[budgetID]
	if !ok {
		return domain.ErrBudgetNotFound
	}
	switch kind {
	case domain.AlertKindExceeded:
		if b.ExceededAlertSentAt == nil {
			b.ExceededAlertSentAt = &at
		}
	default:
		if b.WarningAlertSentAt == nil {
			b.WarningAlertSentAt = &at
		}
	}
	return nil
}

// AddBudget adds a budget to the store (helper for tests)
func (m *MemoryLedgerStore) AddBudget(budget *domain.Budget) {
	if budget.ID == 0 {
		budget.ID = m.NextID
		m.NextID++
	} else if budget.ID >= m.NextID {
		m.NextID = budget.ID + 1
	}
	m.Budgets[budget.ID] = budget
}

// Balance returns the current value of one balance column (helper for tests)
func (m *MemoryLedgerStore) Balance(userID uuid.UUID, field domain.BalanceField) decimal.Decimal {
	if fields, ok := m.Balances[userID]; ok {
		return fields[field]
	}
	return decimal.Zero
}

func copyBudget(b *domain.Budget) *domain.Budget {
	c := *b
	if b.WarningAlertSentAt != nil {
		at := *b.WarningAlertSentAt
		c.WarningAlertSentAt = &at
	}
	if b.ExceededAlertSentAt != nil {
		at := *b.ExceededAlertSentAt
		c.ExceededAlertSentAt = &at
	}
	return &c
}
