package api_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cpa03/basefly-sub001/internal/api"
	"github.com/cpa03/basefly-sub001/internal/auth"
	"github.com/cpa03/basefly-sub001/internal/billing"
	"github.com/cpa03/basefly-sub001/internal/csp"
	"github.com/cpa03/basefly-sub001/internal/metrics"
	"github.com/cpa03/basefly-sub001/internal/plan"
	"github.com/cpa03/basefly-sub001/internal/policy"
	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testSecret = "test-secret-that-is-at-least-32-chars"
	aliceID    = "7f8c2a4e-3b1d-4c6e-9a2f-1e5d8b7c6a90"
	bobID      = "0d4f6b1a-9c2e-4e7b-8a3d-5f1c2b6e9d47"
	adminID    = "b3e1c7d2-6a4f-4d8e-9b1c-2f7a5e3d8c61"
)

type adminList []string

func (a adminList) IsAdmin(email string) bool {
	for _, e := range a {
		if e == email {
			return true
		}
	}
	return false
}

type testEnv struct {
	server   *api.Server
	backend  *fakeBackend
	checkout *fakeCheckout
	metrics  *metrics.Collector
	plans    *plan.Registry
	auth     *auth.Auth
	logs     *observer.ObservedLogs
}

func newTestEnv(t *testing.T, withBilling bool) *testEnv {
	t.Helper()

	registry, err := plan.NewRegistry(plan.NewLoader("../plan/definitions/plans.yaml"))
	require.NoError(t, err)

	fb := newFakeBackend()
	fb.users[aliceID] = &types.User{ID: aliceID, Email: "alice@example.com"}
	fb.users[bobID] = &types.User{ID: bobID, Email: "bob@example.com"}
	fb.users[adminID] = &types.User{ID: adminID, Email: "admin@example.com"}

	core, logs := observer.New(zapcore.InfoLevel)

	env := &testEnv{
		logs:    logs,
		backend: fb,
		metrics: metrics.NewCollector(nil),
		plans:   registry,
		auth:    auth.NewAuth(testSecret, "basefly", time.Hour),
	}

	cfg := api.DefaultServerConfig()
	cfg.CSPHeader = csp.BuildHeader(nil)
	cfg.Admins = adminList{"admin@example.com"}

	deps := api.Dependencies{
		Backend: api.Backend{
			Clusters:  fakeClusters{fb},
			Customers: fakeCustomers{fb},
			Users:     fakeUsers{fb},
			Audit:     fakeAudit{fb},
			DB:        fakeDB{fb},
		},
		Plans:   registry,
		Policy:  policy.NewEngine(registry),
		Auth:    env.auth,
		Metrics: env.metrics,
		Logger:  zap.New(core),
	}
	if withBilling {
		env.checkout = &fakeCheckout{}
		deps.Billing = env.checkout
	}

	env.server, err = api.NewServer(cfg, deps)
	require.NoError(t, err)

	return env
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.auth.GenerateToken(e.backend.users[userID])
	require.NoError(t, err)
	return token
}

// call invokes a procedure as userID ("" for anonymous)
func (e *testEnv) call(t *testing.T, method, procedure, userID, input string) *httptest.ResponseRecorder {
	t.Helper()

	target := "/api/trpc/" + procedure
	var body *strings.Reader
	if method == http.MethodGet {
		if input != "" {
			target += "?input=" + url.QueryEscape(input)
		}
		body = strings.NewReader("")
	} else {
		body = strings.NewReader(input)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}

	rec := httptest.NewRecorder()
	e.server.Echo().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestServer_ValidationGate(t *testing.T) {
	env := newTestEnv(t, true)

	procedures := []struct {
		name   string
		method string
		input  string
	}{
		{"k8s.createCluster", http.MethodPost, `{"name":"bad name","location":"eu"}`},
		{"k8s.updateCluster", http.MethodPost, `{"id":5}`},
		{"k8s.getCluster", http.MethodGet, `{"id":0}`},
		{"k8s.deleteCluster", http.MethodPost, `{"id":-1}`},
		{"stripe.createSession", http.MethodPost, `{"planId":"abc"}`},
		{"customer.updateUserName", http.MethodPost, `{"name":"Ann","userId":"not-a-uuid"}`},
		{"customer.insertCustomer", http.MethodPost, `{"userId":"` + aliceID + `","admin":true}`},
		{"customer.queryCustomer", http.MethodPost, `{}`},
	}

	for _, p := range procedures {
		t.Run(p.name, func(t *testing.T) {
			before := env.backend.callCount()

			rec := env.call(t, p.method, p.name, aliceID, p.input)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decode[api.ErrorResponse](t, rec)
			assert.Equal(t, "validation_failed", resp.Error)
			assert.NotEmpty(t, resp.Details)
			for _, d := range resp.Details {
				assert.Contains(t, d, "field")
				assert.Contains(t, d, "rule")
				assert.Contains(t, d, "message")
			}

			assert.Equal(t, before, env.backend.callCount(), "store must not be touched")
		})
	}

	assert.Equal(t, 8.0, validationFailures(t, env.metrics))
}

func validationFailures(t *testing.T, c *metrics.Collector) float64 {
	t.Helper()

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	total := 0.0
	for _, mf := range families {
		if mf.GetName() != "basefly_validation_failures_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestServer_ValidationReportsEveryViolation(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.call(t, http.MethodPost, "k8s.createCluster", aliceID, `{"name":"","extra":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[api.ErrorResponse](t, rec)
	fields := []string{}
	for _, d := range resp.Details {
		fields = append(fields, fmt.Sprint(d["field"]))
	}
	assert.Equal(t, []string{"extra", "location", "name"}, fields)
}

func TestServer_ClusterLifecycle(t *testing.T) {
	env := newTestEnv(t, false)
	end := time.Now().Add(24 * time.Hour)
	env.backend.customers[aliceID] = &types.Customer{AuthUserID: aliceID, Plan: types.PlanPro, StripeCurrentPeriodEnd: &end}

	var created types.ClusterCreated

	t.Run("create", func(t *testing.T) {
		rec := env.call(t, http.MethodPost, "k8s.createCluster", aliceID, `{"name":"prod-1","location":"eu-central"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		created = decode[types.ClusterCreated](t, rec)
		assert.True(t, created.Success)
		assert.Equal(t, "prod-1", created.ClusterName)
		assert.Equal(t, "eu-central", created.Location)
		assert.Positive(t, created.ID)

		stored := env.backend.clusters[created.ID]
		assert.Equal(t, types.PlanPro, stored.Plan)
		assert.Equal(t, types.ClusterStatusPending, stored.Status)
	})

	t.Run("list only returns own clusters", func(t *testing.T) {
		rec := env.call(t, http.MethodGet, "k8s.getClusters", aliceID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]types.Cluster](t, rec), 1)

		rec = env.call(t, http.MethodGet, "k8s.getClusters", bobID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[[]types.Cluster](t, rec))
	})

	t.Run("update", func(t *testing.T) {
		rec := env.call(t, http.MethodPost, "k8s.updateCluster", aliceID, fmt.Sprintf(`{"id":%d,"location":"us-west"}`, created.ID))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[api.ClusterUpdated](t, rec)
		assert.True(t, resp.Success)
		assert.Equal(t, "prod-1", resp.Cluster.Name)
		assert.Equal(t, "us-west", resp.Cluster.Location)
	})

	t.Run("get is owner scoped", func(t *testing.T) {
		input := fmt.Sprintf(`{"id":%d}`, created.ID)

		rec := env.call(t, http.MethodGet, "k8s.getCluster", aliceID, input)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "prod-1", decode[types.Cluster](t, rec).Name)

		rec = env.call(t, http.MethodGet, "k8s.getCluster", bobID, input)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update is owner scoped", func(t *testing.T) {
		rec := env.call(t, http.MethodPost, "k8s.updateCluster", bobID, fmt.Sprintf(`{"id":%d,"name":"mine"}`, created.ID))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.call(t, http.MethodPost, "k8s.deleteCluster", aliceID, fmt.Sprintf(`{"id":%d}`, created.ID))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.backend.clusters[created.ID].Delete)

		rec = env.call(t, http.MethodPost, "k8s.deleteCluster", aliceID, fmt.Sprintf(`{"id":%d}`, created.ID))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.call(t, http.MethodGet, "k8s.getCluster", aliceID, fmt.Sprintf(`{"id":%d}`, created.ID))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("mutations are audited", func(t *testing.T) {
		actions := []string{}
		for _, e := range env.backend.auditEvents() {
			actions = append(actions, e.Action)
			assert.Equal(t, aliceID, e.Actor)
			assert.NotEmpty(t, e.RequestID)
		}
		assert.Equal(t, []string{"k8s.createCluster", "k8s.updateCluster", "k8s.deleteCluster"}, actions)
	})
}

func TestServer_ClusterQuota(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.call(t, http.MethodPost, "k8s.createCluster", bobID, `{"name":"one","location":"eu"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Free plan allows one cluster
	rec = env.call(t, http.MethodPost, "k8s.createCluster", bobID, `{"name":"two","location":"eu"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	resp := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "quota_exceeded", resp.Error)
	assert.Len(t, env.backend.clusters, 1)

	events := env.backend.auditEvents()
	require.Len(t, events, 2)
	assert.Equal(t, types.AuditEventStatusDenied, events[1].Status)
}

func TestServer_ClusterQuotaConcurrent(t *testing.T) {
	env := newTestEnv(t, false)
	end := time.Now().Add(24 * time.Hour)
	env.backend.customers[aliceID] = &types.Customer{AuthUserID: aliceID, Plan: types.PlanPro, StripeCurrentPeriodEnd: &end}

	const attempts = 12
	codes := make([]int, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := fmt.Sprintf(`{"name":"c-%d","location":"eu"}`, i)
			codes[i] = env.call(t, http.MethodPost, "k8s.createCluster", aliceID, input).Code
		}(i)
	}
	wg.Wait()

	counts := map[int]int{}
	for _, code := range codes {
		counts[code]++
	}

	// Pro allows three clusters
	assert.Equal(t, 3, counts[http.StatusOK])
	assert.Equal(t, attempts-3, counts[http.StatusForbidden])
	assert.Len(t, env.backend.clusters, 3)
}

func TestServer_CreateSession(t *testing.T) {
	proPrice := ""
	registry, err := plan.NewRegistry(plan.NewLoader("../plan/definitions/plans.yaml"))
	require.NoError(t, err)
	proPrice = registry.Info(types.PlanPro).Stripe.MonthlyPriceID

	t.Run("rejects unknown prices", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec := env.call(t, http.MethodPost, "stripe.createSession", aliceID, `{"planId":"price_unknown"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", decode[api.ErrorResponse](t, rec).Error)
	})

	t.Run("unavailable without a billing provider", func(t *testing.T) {
		env := newTestEnv(t, false)
		rec := env.call(t, http.MethodPost, "stripe.createSession", aliceID, `{"planId":"`+proPrice+`"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("checkout for new subscribers", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec := env.call(t, http.MethodPost, "stripe.createSession", aliceID, `{"planId":"`+proPrice+`"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[types.SessionResponse](t, rec)
		assert.True(t, resp.Success)
		assert.Equal(t, "https://checkout.stripe.test/"+proPrice, resp.URL)

		require.Len(t, env.checkout.checkouts, 1)
		req := env.checkout.checkouts[0]
		assert.Equal(t, "alice@example.com", req.Email)
		assert.Equal(t, "http://localhost:3000"+billing.BillingPath, req.SuccessURL)
		assert.Equal(t, "http://localhost:3000"+billing.PricingPath, req.CancelURL)
	})

	t.Run("portal for active subscribers", func(t *testing.T) {
		env := newTestEnv(t, true)
		stripeID := "cus_123"
		end := time.Now().Add(24 * time.Hour)
		env.backend.customers[aliceID] = &types.Customer{
			AuthUserID:             aliceID,
			Plan:                   types.PlanPro,
			StripeCustomerID:       &stripeID,
			StripeCurrentPeriodEnd: &end,
		}

		rec := env.call(t, http.MethodPost, "stripe.createSession", aliceID, `{"planId":"`+proPrice+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://billing.stripe.test/cus_123", decode[types.SessionResponse](t, rec).URL)
		assert.Empty(t, env.checkout.checkouts)
	})

	t.Run("provider failure", func(t *testing.T) {
		env := newTestEnv(t, true)
		env.checkout.err = errProviderDown
		rec := env.call(t, http.MethodPost, "stripe.createSession", aliceID, `{"planId":"`+proPrice+`"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestServer_MySubscription(t *testing.T) {
	env := newTestEnv(t, false)

	t.Run("no customer is free", func(t *testing.T) {
		rec := env.call(t, http.MethodGet, "auth.mySubscription", aliceID, "")
		require.Equal(t, http.StatusOK, rec.Code)

		info := decode[types.SubscriptionInfo](t, rec)
		assert.Equal(t, types.PlanFree, info.Plan)
		assert.False(t, info.IsPaid)
		assert.Equal(t, 1, info.MaxClusters)
		assert.Zero(t, info.ActiveClusters)
	})

	t.Run("lapsed subscription is free", func(t *testing.T) {
		ended := time.Now().Add(-time.Hour)
		env.backend.customers[aliceID] = &types.Customer{AuthUserID: aliceID, Plan: types.PlanBusiness, StripeCurrentPeriodEnd: &ended}

		info := decode[types.SubscriptionInfo](t, env.call(t, http.MethodGet, "auth.mySubscription", aliceID, ""))
		assert.Equal(t, types.PlanFree, info.Plan)
	})

	t.Run("active subscription", func(t *testing.T) {
		end := time.Now().Add(time.Hour)
		env.backend.customers[aliceID] = &types.Customer{AuthUserID: aliceID, Plan: types.PlanBusiness, StripeCurrentPeriodEnd: &end}

		info := decode[types.SubscriptionInfo](t, env.call(t, http.MethodGet, "auth.mySubscription", aliceID, ""))
		assert.Equal(t, types.PlanBusiness, info.Plan)
		assert.True(t, info.IsPaid)
		assert.Equal(t, 10, info.MaxClusters)
		require.NotNil(t, info.StripeCurrentPeriodEnd)
	})

	t.Run("reports active clusters", func(t *testing.T) {
		rec := env.call(t, http.MethodPost, "k8s.createCluster", aliceID, `{"name":"one","location":"eu"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		info := decode[types.SubscriptionInfo](t, env.call(t, http.MethodGet, "auth.mySubscription", aliceID, ""))
		assert.Equal(t, 1, info.ActiveClusters)
	})
}

func TestServer_MyActivity(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.call(t, http.MethodPost, "k8s.createCluster", aliceID, `{"name":"one","location":"eu"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.call(t, http.MethodPost, "k8s.createCluster", aliceID, `{"name":"two","location":"eu"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.call(t, http.MethodPost, "k8s.createCluster", bobID, `{"name":"bobs","location":"eu"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.call(t, http.MethodGet, "auth.myActivity", aliceID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	events := decode[[]types.AuditEvent](t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, types.AuditEventStatusDenied, events[0].Status)
	assert.Equal(t, types.AuditEventStatusSuccess, events[1].Status)
	for _, e := range events {
		assert.Equal(t, aliceID, e.Actor)
	}
}

func TestServer_Customer(t *testing.T) {
	env := newTestEnv(t, false)

	t.Run("users rename only themselves", func(t *testing.T) {
		rec := env.call(t, http.MethodPost, "customer.updateUserName", aliceID, `{"name":"Bobby","userId":"`+bobID+`"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.call(t, http.MethodPost, "customer.updateUserName", aliceID, `{"name":"Alice","userId":"`+aliceID+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Alice", *env.backend.users[aliceID].Name)
	})

	t.Run("insert once", func(t *testing.T) {
		rec := env.call(t, http.MethodPost, "customer.insertCustomer", aliceID, `{"userId":"`+aliceID+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, types.PlanFree, decode[types.Customer](t, rec).Plan)

		rec = env.call(t, http.MethodPost, "customer.insertCustomer", aliceID, `{"userId":"`+aliceID+`"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("user ids match in any case", func(t *testing.T) {
		upper := strings.ToUpper(aliceID)

		rec := env.call(t, http.MethodPost, "customer.updateUserName", aliceID, `{"name":"Alicia","userId":"`+upper+`"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Alicia", *env.backend.users[aliceID].Name)

		rec = env.call(t, http.MethodGet, "customer.queryCustomer", aliceID, `{"userId":"`+upper+`"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, aliceID, decode[types.Customer](t, rec).AuthUserID)
	})

	t.Run("query via GET input", func(t *testing.T) {
		rec := env.call(t, http.MethodGet, "customer.queryCustomer", aliceID, `{"userId":"`+aliceID+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, aliceID, decode[types.Customer](t, rec).AuthUserID)
	})

	t.Run("query of another user needs admin", func(t *testing.T) {
		rec := env.call(t, http.MethodGet, "customer.queryCustomer", bobID, `{"userId":"`+aliceID+`"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.call(t, http.MethodPost, "customer.queryCustomer", adminID, `{"userId":"`+aliceID+`"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = env.call(t, http.MethodPost, "customer.queryCustomer", adminID, `{"userId":"`+bobID+`"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_AdminClusters(t *testing.T) {
	env := newTestEnv(t, false)
	env.call(t, http.MethodPost, "k8s.createCluster", aliceID, `{"name":"a","location":"eu"}`)
	env.call(t, http.MethodPost, "k8s.createCluster", bobID, `{"name":"b","location":"eu"}`)

	rec := env.call(t, http.MethodGet, "admin.clusters", aliceID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decode[api.ErrorResponse](t, rec).Error)

	rec = env.call(t, http.MethodGet, "admin.clusters", adminID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.PaginatedResponse](t, rec)
	assert.Equal(t, 2, resp.Pagination.Total)
	assert.Equal(t, 1, resp.Pagination.TotalPages)

	t.Run("store failures are logged", func(t *testing.T) {
		env.backend.listErr = errors.New("connection reset")

		rec := env.call(t, http.MethodGet, "admin.clusters", adminID, "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		entries := env.logs.FilterMessage("list all clusters").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "connection reset", fields["error"])
		assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), fields["request_id"])
	})
}

func TestServer_Auth(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.call(t, http.MethodGet, "k8s.getClusters", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[api.ErrorResponse](t, rec).Error)
}

func TestServer_Headers(t *testing.T) {
	env := newTestEnv(t, false)

	t.Run("CSP and security headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, csp.BuildHeader(nil), rec.Header().Get(csp.HeaderName))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	})

	t.Run("request id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		env.server.Echo().ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("request id is generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}

func TestServer_Ready(t *testing.T) {
	env := newTestEnv(t, false)

	rec := httptest.NewRecorder()
	env.server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	env.backend.pingErr = errors.New("connection refused")
	rec = httptest.NewRecorder()
	env.server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	env := newTestEnv(t, false)
	env.call(t, http.MethodGet, "health.health", "", "")

	rec := httptest.NewRecorder()
	env.server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `basefly_http_requests_total{method="GET",route="/api/trpc/health.health",status="200"} 1`)
}

func TestServer_RateLimit(t *testing.T) {
	registry, err := plan.NewRegistry(plan.NewLoader("../plan/definitions/plans.yaml"))
	require.NoError(t, err)

	cfg := api.DefaultServerConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitDuration = time.Hour

	server, err := api.NewServer(cfg, api.Dependencies{
		Plans:  registry,
		Policy: policy.NewEngine(registry),
		Auth:   auth.NewAuth(testSecret, "basefly", time.Hour),
	})
	require.NoError(t, err)

	codes := []int{}
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestNewServer_RequiresCollaborators(t *testing.T) {
	_, err := api.NewServer(api.DefaultServerConfig(), api.Dependencies{})
	assert.Error(t, err)
}
