package api_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cpa03/basefly-sub001/internal/billing"
	"github.com/cpa03/basefly-sub001/internal/store"
	"github.com/cpa03/basefly-sub001/pkg/types"
)

// fakeBackend is an in-memory stand-in for the pgx store. calls counts
// every store method invocation.
type fakeBackend struct {
	mu        sync.Mutex
	nextID    int64
	clusters  map[int64]*types.Cluster
	customers map[string]*types.Customer
	users     map[string]*types.User
	events    []*types.AuditEvent
	calls     int
	pingErr   error
	listErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		clusters:  map[int64]*types.Cluster{},
		customers: map[string]*types.Customer{},
		users:     map[string]*types.User{},
	}
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeBackend) auditEvents() []*types.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.AuditEvent(nil), f.events...)
}

type fakeClusters struct{ *fakeBackend }

func (f fakeClusters) ListByOwner(ctx context.Context, authUserID string) ([]*types.Cluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	out := []*types.Cluster{}
	for _, c := range f.clusters {
		if c.AuthUserID == authUserID && !c.Delete {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeClusters) ListAll(ctx context.Context, filters store.ListFilters) ([]*types.Cluster, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.listErr != nil {
		return nil, 0, f.listErr
	}

	out := []*types.Cluster{}
	for _, c := range f.clusters {
		if c.Delete && !filters.IncludeDeleted {
			continue
		}
		if filters.AuthUserID != nil && c.AuthUserID != *filters.AuthUserID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	total := len(out)
	if filters.Offset >= len(out) {
		return []*types.Cluster{}, total, nil
	}
	out = out[filters.Offset:]
	if len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, total, nil
}

func (f fakeClusters) GetByID(ctx context.Context, id int64, authUserID string) (*types.Cluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	c, ok := f.clusters[id]
	if !ok || c.AuthUserID != authUserID || c.Delete {
		return nil, store.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (f fakeClusters) countActive(authUserID string) int {
	n := 0
	for _, c := range f.clusters {
		if c.AuthUserID == authUserID && !c.Delete {
			n++
		}
	}
	return n
}

func (f fakeClusters) CountActive(ctx context.Context, authUserID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	return f.countActive(authUserID), nil
}

// CreateWithinLimit holds the backend mutex across count and insert
func (f fakeClusters) CreateWithinLimit(ctx context.Context, cluster *types.Cluster, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	active := f.countActive(cluster.AuthUserID)
	if active >= limit {
		return active, store.ErrQuotaExceeded
	}

	f.nextID++
	cluster.ID = f.nextID
	cluster.CreatedAt = time.Now()
	cluster.UpdatedAt = cluster.CreatedAt
	stored := *cluster
	f.clusters[cluster.ID] = &stored
	return active, nil
}

func (f fakeClusters) Update(ctx context.Context, id int64, authUserID string, update store.ClusterUpdate) (*types.Cluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	c, ok := f.clusters[id]
	if !ok || c.AuthUserID != authUserID || c.Delete {
		return nil, store.ErrNotFound
	}
	if update.Name != nil {
		c.Name = *update.Name
	}
	if update.Location != nil {
		c.Location = *update.Location
	}
	out := *c
	return &out, nil
}

func (f fakeClusters) SoftDelete(ctx context.Context, id int64, authUserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	c, ok := f.clusters[id]
	if !ok || c.AuthUserID != authUserID || c.Delete {
		return store.ErrNotFound
	}
	c.Delete = true
	c.Status = types.ClusterStatusDeleted
	return nil
}

type fakeCustomers struct{ *fakeBackend }

func (f fakeCustomers) GetByUserID(ctx context.Context, authUserID string) (*types.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	c, ok := f.customers[authUserID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (f fakeCustomers) Create(ctx context.Context, authUserID string) (*types.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if _, exists := f.customers[authUserID]; exists {
		return nil, store.ErrConflict
	}
	c := &types.Customer{ID: int64(len(f.customers) + 1), AuthUserID: authUserID, Plan: types.PlanFree}
	f.customers[authUserID] = c
	out := *c
	return &out, nil
}

type fakeUsers struct{ *fakeBackend }

func (f fakeUsers) GetByID(ctx context.Context, id string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (f fakeUsers) UpdateName(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Name = &name
	return nil
}

type fakeAudit struct{ *fakeBackend }

func (f fakeAudit) Log(ctx context.Context, event *types.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	f.events = append(f.events, event)
	return nil
}

func (f fakeAudit) ListByActor(ctx context.Context, actor string, limit int) ([]*types.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	out := []*types.AuditEvent{}
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.events[i].Actor == actor {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

type fakeDB struct{ *fakeBackend }

func (f fakeDB) Ping(ctx context.Context) error {
	return f.pingErr
}

// fakeCheckout records the sessions it was asked to create
type fakeCheckout struct {
	mu        sync.Mutex
	checkouts []billing.CheckoutRequest
	portals   []string
	err       error
}

func (f *fakeCheckout) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.checkouts = append(f.checkouts, req)
	return "https://checkout.stripe.test/" + req.PriceID, nil
}

func (f *fakeCheckout) CreatePortalSession(ctx context.Context, stripeCustomerID, returnURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.portals = append(f.portals, stripeCustomerID)
	return "https://billing.stripe.test/" + stripeCustomerID, nil
}

var errProviderDown = errors.New("provider down")
