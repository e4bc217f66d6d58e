package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chavepixclub/backend/internal/domain"
	"github.com/chavepixclub/backend/internal/repository"
	"github.com/chavepixclub/backend/pkg/payment"
)

// memOrders is an in-memory OrderStore with the same transition rule as Postgres.
type memOrders struct {
	mu     sync.Mutex
	orders map[string]*domain.Order

	createErr     error
	attachErr     error
	transitionErr error
	listErr       error
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[string]*domain.Order)}
}

func (m *memOrders) Create(ctx context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) AttachSession(ctx context.Context, id, userID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attachErr != nil {
		return m.attachErr
	}
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return repository.ErrDuplicate
	}
	o.GatewaySessionID = &sessionID
	return nil
}

func (m *memOrders) Transition(ctx context.Context, id, userID string, to domain.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transitionErr != nil {
		return false, m.transitionErr
	}
	o, ok := m.orders[id]
	if !ok || o.UserID != userID || o.Status != domain.OrderPending {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *memOrders) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []*domain.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memOrders) CompletedByPlan(ctx context.Context, userID string) (map[domain.PlanType]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.completedLocked(userID), nil
}

func (m *memOrders) completedLocked(userID string) map[domain.PlanType]int {
	counts := make(map[domain.PlanType]int)
	for _, o := range m.orders {
		if o.UserID == userID && o.Status == domain.OrderCompleted {
			counts[o.PlanType]++
		}
	}
	return counts
}

func (m *memOrders) FailAbandoned(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.orders {
		if o.Status == domain.OrderPending && o.GatewaySessionID == nil && o.CreatedAt.Before(olderThan) {
			o.Status = domain.OrderFailed
			n++
		}
	}
	return n, nil
}

func (m *memOrders) FindByID(ctx context.Context, id, userID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) get(id string) *domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp
	}
	return nil
}

func (m *memOrders) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// seed stores an order for userID in the given state.
func (m *memOrders) seed(userID string, planType domain.PlanType, status domain.OrderStatus) *domain.Order {
	plan, _ := domain.LookupPlan(planType)
	o := domain.NewOrder(userID, plan, time.Now())
	o.Status = status
	m.mu.Lock()
	m.orders[o.ID] = o
	m.mu.Unlock()
	return o
}

// memKeys is an in-memory KeyStore that checks entitlement against memOrders.
type memKeys struct {
	mu      sync.Mutex
	orders  *memOrders
	keys    map[string]*domain.PixKey
	handles map[string]bool

	err error
}

func newMemKeys(orders *memOrders) *memKeys {
	return &memKeys{orders: orders, keys: make(map[string]*domain.PixKey), handles: make(map[string]bool)}
}

func (m *memKeys) CreateWithinEntitlement(ctx context.Context, k *domain.PixKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.handles[k.LocalHandle] {
		return repository.ErrDuplicate
	}
	m.orders.mu.Lock()
	completed := m.orders.completedLocked(k.UserID)
	m.orders.mu.Unlock()
	if domain.Available(domain.Entitled(completed), m.countLocked(k.UserID)) <= 0 {
		return repository.ErrEntitlementExhausted
	}
	cp := *k
	m.keys[k.ID] = &cp
	m.handles[k.LocalHandle] = true
	return nil
}

func (m *memKeys) ListByUser(ctx context.Context, userID string) ([]*domain.PixKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.PixKey{}
	for _, k := range m.keys {
		if k.UserID == userID {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memKeys) CountByUser(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.countLocked(userID), nil
}

func (m *memKeys) countLocked(userID string) int {
	n := 0
	for _, k := range m.keys {
		if k.UserID == userID {
			n++
		}
	}
	return n
}

func (m *memKeys) SetStatus(ctx context.Context, id string, status domain.KeyStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	k, ok := m.keys[id]
	if !ok {
		return false, nil
	}
	k.Status = status
	return true, nil
}

func (m *memKeys) FindByID(ctx context.Context, id string) (*domain.PixKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	k, ok := m.keys[id]
	if !ok {
		return nil, nil
	}
	cp := *k
	return &cp, nil
}

// seedKey stores a key directly, bypassing entitlement.
func (m *memKeys) seedKey(userID, handle string) *domain.PixKey {
	k := domain.NewPixKey(userID, handle, time.Now())
	m.mu.Lock()
	m.keys[k.ID] = k
	m.handles[handle] = true
	m.mu.Unlock()
	return k
}

type memEvents struct {
	mu        sync.Mutex
	seen      map[string]string
	existsErr error
	markErr   error
}

func newMemEvents() *memEvents {
	return &memEvents{seen: make(map[string]string)}
}

func (m *memEvents) Exists(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.seen[eventID]
	return ok, nil
}

func (m *memEvents) MarkProcessed(ctx context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.seen[eventID] = eventType
	return nil
}

type memProfiles struct {
	profiles map[string]*domain.Profile
	err      error
}

func (m *memProfiles) Upsert(ctx context.Context, p *domain.Profile) error {
	if m.err != nil {
		return m.err
	}
	if m.profiles == nil {
		m.profiles = make(map[string]*domain.Profile)
	}
	if prev, ok := m.profiles[p.ID]; ok {
		if p.FullName == nil {
			p.FullName = prev.FullName
		}
		if p.AvatarURL == nil {
			p.AvatarURL = prev.AvatarURL
		}
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

// MockGateway is a payment.Gateway whose behavior is set per test.
type MockGateway struct {
	CreateCheckoutSessionFunc func(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
	ParseEventFunc            func(payload []byte, signature string) (*payment.Event, error)

	mu       sync.Mutex
	requests []payment.SessionRequest
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, req)
	}
	return &payment.Session{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (m *MockGateway) ParseEvent(payload []byte, signature string) (*payment.Event, error) {
	if m.ParseEventFunc != nil {
		return m.ParseEventFunc(payload, signature)
	}
	return nil, payment.ErrInvalidSignature
}

func (m *MockGateway) calls() []payment.SessionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]payment.SessionRequest(nil), m.requests...)
}

var testUser = &domain.Identity{ID: "user-1", Email: "joao@example.com"}
