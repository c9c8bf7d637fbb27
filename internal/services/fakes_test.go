package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/internal/repositories"
)

// memStore is an in-memory stand-in for every repository plus the transactor.
// WithinTx serializes units of work and restores a snapshot when fn fails,
// which mirrors a database transaction closely enough for service tests.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID    int64
	users     map[int64]models.User
	items     map[int64]models.InventoryItem
	customers map[int64]models.Customer
	bills     map[int64]models.Bill
	billItems map[int64][]models.BillLineItem
	movements []models.InventoryMovement
	plans     map[int64]models.SubscriptionPlan
	subs      map[int64]models.UserSubscription

	failCreateBill error
	planLookups    int

	// afterItemRead runs after an unlocked GetItemByID returns.
	afterItemRead func(itemID int64)
}

type memSnapshot struct {
	nextID    int64
	users     map[int64]models.User
	items     map[int64]models.InventoryItem
	customers map[int64]models.Customer
	bills     map[int64]models.Bill
	billItems map[int64][]models.BillLineItem
	movements []models.InventoryMovement
	plans     map[int64]models.SubscriptionPlan
	subs      map[int64]models.UserSubscription
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]models.User{},
		items:     map[int64]models.InventoryItem{},
		customers: map[int64]models.Customer{},
		bills:     map[int64]models.Bill{},
		billItems: map[int64][]models.BillLineItem{},
		plans:     map[int64]models.SubscriptionPlan{},
		subs:      map[int64]models.UserSubscription{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memSnapshot{
		nextID:    m.nextID,
		users:     copyMap(m.users),
		items:     copyMap(m.items),
		customers: copyMap(m.customers),
		bills:     copyMap(m.bills),
		billItems: copyMap(m.billItems),
		movements: append([]models.InventoryMovement(nil), m.movements...),
		plans:     copyMap(m.plans),
		subs:      copyMap(m.subs),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = s.nextID
	m.users, m.items, m.customers = s.users, s.items, s.customers
	m.bills, m.billItems, m.movements = s.bills, s.billItems, s.movements
	m.plans, m.subs = s.plans, s.subs
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx repositories.SQLExecutor) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snap := m.snapshot()
	if err := fn(nil); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

// --- seeding helpers ---

func (m *memStore) addUser(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	}
	u.IsActive = true
	m.users[u.ID] = u
	return u
}

func (m *memStore) addItem(ownerID int64, name string, price string, stock int) models.InventoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := models.InventoryItem{
		ID: m.id(), OwnerID: ownerID, Name: name, Batch: "B-" + strings.ToUpper(name[:1]),
		Expiry: time.Now().AddDate(1, 0, 0), Price: mustDecimal(price), Stock: stock,
	}
	m.items[item.ID] = item
	return item
}

func (m *memStore) addCustomer(ownerID int64, name string) models.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.Customer{ID: m.id(), OwnerID: ownerID, Name: name}
	m.customers[c.ID] = c
	return c
}

func (m *memStore) addPlan(p models.SubscriptionPlan) models.SubscriptionPlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.plans[p.ID] = p
	return p
}

func (m *memStore) addSub(s models.UserSubscription) models.UserSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	m.subs[s.ID] = s
	return s
}

func (m *memStore) stockOf(itemID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[itemID].Stock
}

func (m *memStore) movementsOfType(kind string) []models.InventoryMovement {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.InventoryMovement
	for _, mv := range m.movements {
		if mv.MovementType == kind {
			out = append(out, mv)
		}
	}
	return out
}

func (m *memStore) billCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bills)
}

// --- AuthRepository ---

func (m *memStore) CreateUser(ctx context.Context, _ repositories.SQLExecutor, user *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return 0, repositories.ErrDuplicateKey
		}
	}
	user.ID = m.id()
	user.IsActive = true
	m.users[user.ID] = *user
	return user.ID, nil
}

func (m *memStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memStore) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) ListUsersWithSubscriptions(ctx context.Context) ([]models.UserWithSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UserWithSubscription{}
	for _, u := range m.users {
		row := models.UserWithSubscription{User: u}
		for _, s := range m.subs {
			if s.UserID == u.ID {
				s := s
				row.Subscription = &s
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *memStore) CountTenantUsers(ctx context.Context, ownerID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.ID == ownerID || (u.OwnerID != nil && *u.OwnerID == ownerID) {
			n++
		}
	}
	return n, nil
}

// --- InventoryRepository ---

func (m *memStore) CreateItem(ctx context.Context, _ repositories.SQLExecutor, item *models.InventoryItem) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = m.id()
	m.items[item.ID] = *item
	return item.ID, nil
}

func (m *memStore) GetItemByID(ctx context.Context, ownerID, itemID int64) (*models.InventoryItem, error) {
	m.mu.Lock()
	item, ok := m.items[itemID]
	hook := m.afterItemRead
	m.mu.Unlock()
	if !ok || item.OwnerID != ownerID {
		return nil, repositories.ErrNotFound
	}
	if hook != nil {
		hook(itemID)
	}
	return &item, nil
}

// LockItem relies on WithinTx holding txMu for the row lock.
func (m *memStore) LockItem(ctx context.Context, _ repositories.SQLExecutor, ownerID, itemID int64) (*models.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.OwnerID != ownerID {
		return nil, repositories.ErrNotFound
	}
	return &item, nil
}

func (m *memStore) GetItemsByIDs(ctx context.Context, ownerID int64, itemIDs []int64) (map[int64]models.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]models.InventoryItem{}
	for _, id := range itemIDs {
		if item, ok := m.items[id]; ok && item.OwnerID == ownerID {
			out[id] = item
		}
	}
	return out, nil
}

func (m *memStore) GetItems(ctx context.Context, ownerID int64, filters models.InventoryFilters) ([]models.InventoryItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.InventoryItem{}
	for _, item := range m.items {
		if item.OwnerID == ownerID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memStore) GetExpiringItems(ctx context.Context, ownerID int64, before time.Time) ([]models.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.InventoryItem{}
	for _, item := range m.items {
		if item.OwnerID == ownerID && item.Stock > 0 && !item.Expiry.After(before) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Expiry.Before(out[j].Expiry) })
	return out, nil
}

func (m *memStore) UpdateItem(ctx context.Context, _ repositories.SQLExecutor, item *models.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[item.ID]
	if !ok || existing.OwnerID != item.OwnerID {
		return repositories.ErrNotFound
	}
	item.Stock = existing.Stock
	m.items[item.ID] = *item
	return nil
}

func (m *memStore) DeleteItem(ctx context.Context, _ repositories.SQLExecutor, ownerID, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *memStore) DecrementStock(ctx context.Context, _ repositories.SQLExecutor, ownerID, itemID int64, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.OwnerID != ownerID {
		return 0, repositories.ErrNotFound
	}
	if item.Stock < quantity {
		return 0, repositories.ErrInsufficientStock
	}
	item.Stock -= quantity
	m.items[itemID] = item
	return item.Stock, nil
}

func (m *memStore) IncrementStock(ctx context.Context, _ repositories.SQLExecutor, ownerID, itemID int64, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.OwnerID != ownerID {
		return 0, repositories.ErrNotFound
	}
	item.Stock += quantity
	m.items[itemID] = item
	return item.Stock, nil
}

func (m *memStore) AdjustStock(ctx context.Context, _ repositories.SQLExecutor, ownerID, itemID int64, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.OwnerID != ownerID || item.Stock+delta < 0 {
		return 0, repositories.ErrInsufficientStock
	}
	item.Stock += delta
	m.items[itemID] = item
	return item.Stock, nil
}

func (m *memStore) CountItems(ctx context.Context, ownerID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, item := range m.items {
		if item.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

// --- InventoryMovementRepository ---

func (m *memStore) CreateMovement(ctx context.Context, _ repositories.SQLExecutor, movement *models.InventoryMovement) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	movement.ID = m.id()
	m.movements = append(m.movements, *movement)
	return movement.ID, nil
}

func (m *memStore) GetMovements(ctx context.Context, ownerID int64, itemID *int64, limit int) ([]models.InventoryMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.InventoryMovement{}
	for i := len(m.movements) - 1; i >= 0; i-- {
		mv := m.movements[i]
		if mv.OwnerID == ownerID && (itemID == nil || mv.InventoryItemID == *itemID) {
			out = append(out, mv)
		}
	}
	return out, nil
}

// --- CustomerRepository ---

func (m *memStore) CreateCustomer(ctx context.Context, _ repositories.SQLExecutor, c *models.Customer) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.customers[c.ID] = *c
	return c.ID, nil
}

func (m *memStore) GetCustomerByID(ctx context.Context, ownerID, customerID int64) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok || c.OwnerID != ownerID {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) GetCustomers(ctx context.Context, ownerID int64, page, pageSize int, search *string) ([]models.Customer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Customer{}
	for _, c := range m.customers {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (m *memStore) UpdateCustomer(ctx context.Context, _ repositories.SQLExecutor, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.customers[c.ID]; !ok || existing.OwnerID != c.OwnerID {
		return repositories.ErrNotFound
	}
	m.customers[c.ID] = *c
	return nil
}

func (m *memStore) DeleteCustomer(ctx context.Context, _ repositories.SQLExecutor, ownerID, customerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok || c.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	for _, b := range m.bills {
		if b.CustomerID == customerID {
			return repositories.ErrReferenced
		}
	}
	delete(m.customers, customerID)
	return nil
}

func (m *memStore) CountCustomers(ctx context.Context, ownerID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.customers {
		if c.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

// --- BillRepository ---

func (m *memStore) CreateBill(ctx context.Context, _ repositories.SQLExecutor, bill *models.Bill) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateBill != nil {
		return 0, m.failCreateBill
	}
	bill.ID = m.id()
	stored := *bill
	stored.Items = nil
	m.bills[bill.ID] = stored
	return bill.ID, nil
}

func (m *memStore) CreateBillItem(ctx context.Context, _ repositories.SQLExecutor, item *models.BillLineItem) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = m.id()
	m.billItems[item.BillID] = append(append([]models.BillLineItem(nil), m.billItems[item.BillID]...), *item)
	return item.ID, nil
}

func (m *memStore) GetBillByID(ctx context.Context, _ repositories.SQLExecutor, ownerID, billID int64) (*models.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[billID]
	if !ok || b.OwnerID != ownerID {
		return nil, repositories.ErrNotFound
	}
	return &b, nil
}

func (m *memStore) GetBillItems(ctx context.Context, _ repositories.SQLExecutor, billID int64) ([]models.BillLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := append([]models.BillLineItem{}, m.billItems[billID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (m *memStore) GetBills(ctx context.Context, ownerID int64, filters models.BillFilters) ([]models.Bill, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Bill{}
	for _, b := range m.bills {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BillDate.Equal(out[j].BillDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].BillDate.After(out[j].BillDate)
	})
	return out, len(out), nil
}

func (m *memStore) DeleteBill(ctx context.Context, _ repositories.SQLExecutor, ownerID, billID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[billID]
	if !ok || b.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	delete(m.bills, billID)
	delete(m.billItems, billID)
	return nil
}

// --- SubscriptionRepository ---

func (m *memStore) CreatePlan(ctx context.Context, p *models.SubscriptionPlan) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.plans[p.ID] = *p
	return p.ID, nil
}

func (m *memStore) GetPlanByID(ctx context.Context, planID int64) (*models.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planLookups++
	p, ok := m.plans[planID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) GetPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SubscriptionPlan{}
	for _, p := range m.plans {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) UpdatePlan(ctx context.Context, p *models.SubscriptionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[p.ID]; !ok {
		return repositories.ErrNotFound
	}
	m.plans[p.ID] = *p
	return nil
}

func (m *memStore) DeletePlan(ctx context.Context, planID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[planID]; !ok {
		return repositories.ErrNotFound
	}
	for _, s := range m.subs {
		if s.PlanID == planID {
			return repositories.ErrReferenced
		}
	}
	delete(m.plans, planID)
	return nil
}

func (m *memStore) UpsertUserSubscription(ctx context.Context, sub *models.UserSubscription) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.subs {
		if existing.UserID == sub.UserID {
			sub.ID = id
			sub.CreatedAt = existing.CreatedAt
			m.subs[id] = *sub
			return id, nil
		}
	}
	sub.ID = m.id()
	m.subs[sub.ID] = *sub
	return sub.ID, nil
}

func (m *memStore) GetSubscriptionByID(ctx context.Context, subscriptionID int64) (*models.UserSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[subscriptionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (m *memStore) GetSubscriptionByUserID(ctx context.Context, userID int64) (*models.UserSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.UserID == userID {
			return &s, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memStore) UpdateSubscriptionStatus(ctx context.Context, subscriptionID int64, status models.SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[subscriptionID]
	if !ok {
		return repositories.ErrNotFound
	}
	s.Status = status
	m.subs[subscriptionID] = s
	return nil
}

func (m *memStore) RenewSubscription(ctx context.Context, subscriptionID int64, start, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[subscriptionID]
	if !ok {
		return repositories.ErrNotFound
	}
	s.Status, s.StartDate, s.EndDate = models.SubscriptionActive, start, end
	m.subs[subscriptionID] = s
	return nil
}

func (m *memStore) ExpireDue(ctx context.Context, now time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []int64{}
	for id, s := range m.subs {
		if s.Status == models.SubscriptionActive && s.EndDate.Before(now) {
			s.Status = models.SubscriptionExpired
			m.subs[id] = s
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

var (
	_ repositories.AuthRepository              = (*memStore)(nil)
	_ repositories.InventoryRepository         = (*memStore)(nil)
	_ repositories.InventoryMovementRepository = (*memStore)(nil)
	_ repositories.CustomerRepository          = (*memStore)(nil)
	_ repositories.BillRepository              = (*memStore)(nil)
	_ repositories.SubscriptionRepository      = (*memStore)(nil)
	_ repositories.Transactor                  = (*memStore)(nil)
)

// allowAll is a UsageGuard that never objects.
type allowAll struct{}

func (allowAll) CheckLimit(context.Context, int64, models.UsageResource) error { return nil }
