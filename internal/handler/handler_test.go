package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chavepixclub/backend/internal/contextkeys"
	"github.com/chavepixclub/backend/internal/domain"
	"github.com/chavepixclub/backend/internal/service"
	"github.com/chavepixclub/backend/pkg/payment"
	"github.com/go-chi/chi/v5"
)

var testUser = &domain.Identity{ID: "user-1", Email: "joao@example.com"}

func withUser(r *http.Request, id *domain.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), contextkeys.Identity, id)
	ctx = context.WithValue(ctx, contextkeys.UserID, id.ID)
	return r.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

type MockCheckout struct {
	StartCheckoutFunc func(ctx context.Context, user *domain.Identity, planType domain.PlanType, returnBase string) (*domain.CheckoutResponse, error)
	ListOrdersFunc    func(ctx context.Context, userID string) ([]*domain.Order, error)
	GetOrderFunc      func(ctx context.Context, userID, id string) (*domain.Order, error)
}

func (m *MockCheckout) StartCheckout(ctx context.Context, user *domain.Identity, planType domain.PlanType, returnBase string) (*domain.CheckoutResponse, error) {
	return m.StartCheckoutFunc(ctx, user, planType, returnBase)
}

func (m *MockCheckout) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return m.ListOrdersFunc(ctx, userID)
}

func (m *MockCheckout) GetOrder(ctx context.Context, userID, id string) (*domain.Order, error) {
	return m.GetOrderFunc(ctx, userID, id)
}

func TestCheckoutCreate(t *testing.T) {
	var gotBase string
	var gotPlan domain.PlanType
	svc := &MockCheckout{
		StartCheckoutFunc: func(ctx context.Context, user *domain.Identity, planType domain.PlanType, returnBase string) (*domain.CheckoutResponse, error) {
			gotBase, gotPlan = returnBase, planType
			return &domain.CheckoutResponse{OrderID: "o-1", RedirectURL: "https://checkout.example/cs_1"}, nil
		},
	}

	tests := []struct {
		name      string
		publicURL string
		origin    string
		body      string
		user      *domain.Identity
		wantCode  int
		wantBase  string
	}{
		{"configured base", "https://chavepix.club", "https://evil.example", `{"planType":"single"}`, testUser, http.StatusOK, "https://chavepix.club"},
		{"origin fallback", "", "http://localhost:5173", `{"planType":"five_pack"}`, testUser, http.StatusOK, "http://localhost:5173"},
		{"unknown plan", "https://chavepix.club", "", `{"planType":"ten_pack"}`, testUser, http.StatusUnprocessableEntity, ""},
		{"bad json", "https://chavepix.club", "", `{`, testUser, http.StatusBadRequest, ""},
		{"anonymous", "https://chavepix.club", "", `{"planType":"single"}`, nil, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBase = ""
			h := NewCheckoutHandler(svc, tt.publicURL)
			req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(tt.body))
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.user != nil {
				req = withUser(req, tt.user)
			}
			rec := httptest.NewRecorder()

			h.Create(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				if gotBase != tt.wantBase {
					t.Errorf("returnBase = %q, want %q", gotBase, tt.wantBase)
				}
				if gotPlan == "" {
					t.Error("plan not forwarded")
				}
				if body := decodeBody(t, rec); body["url"] != "https://checkout.example/cs_1" {
					t.Errorf("body = %v", body)
				}
			}
		})
	}
}

func TestCheckoutCreateDependencyError(t *testing.T) {
	svc := &MockCheckout{
		StartCheckoutFunc: func(ctx context.Context, user *domain.Identity, planType domain.PlanType, returnBase string) (*domain.CheckoutResponse, error) {
			return nil, domain.ErrDependency("failed to create checkout session", errors.New("timeout"))
		},
	}
	h := NewCheckoutHandler(svc, "https://chavepix.club")
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"planType":"single"}`)), testUser)
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["kind"] != "dependency" || strings.Contains(rec.Body.String(), "timeout") {
		t.Errorf("body = %v", body)
	}
}

func TestGetOrder(t *testing.T) {
	svc := &MockCheckout{
		GetOrderFunc: func(ctx context.Context, userID, id string) (*domain.Order, error) {
			if id != "o-1" || userID != testUser.ID {
				return nil, domain.ErrNotFound("order not found")
			}
			return &domain.Order{ID: id, UserID: userID, PlanType: domain.PlanSingle, Status: domain.OrderCompleted}, nil
		},
	}
	r := chi.NewRouter()
	r.Get("/api/orders/{id}", NewCheckoutHandler(svc, "").GetOrder)

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/api/orders/o-1", http.StatusOK},
		{"/api/orders/o-2", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, tt.path, nil), testUser))
		if rec.Code != tt.wantCode {
			t.Errorf("%s: status = %d, want %d", tt.path, rec.Code, tt.wantCode)
		}
		if tt.wantCode == http.StatusOK {
			if body := decodeBody(t, rec); body["status"] != "completed" {
				t.Errorf("body = %v", body)
			}
		}
	}
}

type MockKeys struct {
	CreateKeyFunc func(ctx context.Context, user *domain.Identity, handle string) (*domain.PixKey, error)
	ListFunc      func(ctx context.Context, userID string) ([]*domain.PixKey, error)
	SetStatusFunc func(ctx context.Context, id string, status domain.KeyStatus) (*domain.PixKey, error)
}

func (m *MockKeys) CreateKey(ctx context.Context, user *domain.Identity, handle string) (*domain.PixKey, error) {
	return m.CreateKeyFunc(ctx, user, handle)
}

func (m *MockKeys) List(ctx context.Context, userID string) ([]*domain.PixKey, error) {
	return m.ListFunc(ctx, userID)
}

func (m *MockKeys) SetStatus(ctx context.Context, id string, status domain.KeyStatus) (*domain.PixKey, error) {
	return m.SetStatusFunc(ctx, id, status)
}

func TestKeyCreate(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"created", nil, http.StatusCreated, ""},
		{"taken", domain.ErrConflict("this key already exists"), http.StatusConflict, "conflict"},
		{"invalid", domain.ErrValidation("key handle must not contain '@'"), http.StatusUnprocessableEntity, "validation"},
		{"no entitlement", domain.ErrNoEntitlement("no keys available"), http.StatusForbidden, "entitlement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockKeys{
				CreateKeyFunc: func(ctx context.Context, user *domain.Identity, handle string) (*domain.PixKey, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &domain.PixKey{ID: "k-1", UserID: user.ID, LocalHandle: handle, Email: domain.FullKey(handle), Status: domain.KeyActive}, nil
				},
			}
			h := NewKeyHandler(svc)
			req := withUser(httptest.NewRequest(http.MethodPost, "/api/keys", strings.NewReader(`{"localHandle":"joao.silva"}`)), testUser)
			rec := httptest.NewRecorder()

			h.Create(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			body := decodeBody(t, rec)
			if tt.wantKind != "" && body["kind"] != tt.wantKind {
				t.Errorf("kind = %v, want %s", body["kind"], tt.wantKind)
			}
			if tt.err == nil && body["email"] != "joao.silva@chavepix.club" {
				t.Errorf("email = %v", body["email"])
			}
		})
	}
}

func TestKeySetStatusUsesURLParam(t *testing.T) {
	var gotID string
	svc := &MockKeys{
		SetStatusFunc: func(ctx context.Context, id string, status domain.KeyStatus) (*domain.PixKey, error) {
			gotID = id
			return &domain.PixKey{ID: id, LocalHandle: "loja", Email: "loja@chavepix.club", Status: status}, nil
		},
	}
	r := chi.NewRouter()
	r.Patch("/api/admin/keys/{id}", NewKeyHandler(svc).SetStatus)

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/keys/k-42", strings.NewReader(`{"status":"inactive"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || gotID != "k-42" {
		t.Fatalf("status = %d id = %q", rec.Code, gotID)
	}
	if body := decodeBody(t, rec); body["status"] != "inactive" || body["email"] != "loja@chavepix.club" {
		t.Errorf("body = %v", body)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/admin/keys/k-42", strings.NewReader(`{"status":"deleted"}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid status accepted: %d", rec.Code)
	}
}

type MockEvents struct {
	HandleEventFunc func(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error)
}

func (m *MockEvents) HandleEvent(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error) {
	return m.HandleEventFunc(ctx, payload, signature)
}

func TestPaymentWebhook(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		body      string
		err       error
		wantCode  int
	}{
		{"processed", "t=1,v1=abc", `{"id":"evt_1"}`, nil, http.StatusOK},
		{"missing signature", "", `{"id":"evt_1"}`, nil, http.StatusBadRequest},
		{"bad signature", "t=1,v1=bad", `{"id":"evt_1"}`, domain.ErrSignature("invalid webhook signature", nil), http.StatusBadRequest},
		{"storage failure", "t=1,v1=abc", `{"id":"evt_1"}`, domain.ErrInternal("failed to update order", errors.New("db")), http.StatusInternalServerError},
		{"too large", "t=1,v1=abc", strings.Repeat("x", 2048), nil, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPayload []byte
			svc := &MockEvents{
				HandleEventFunc: func(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error) {
					gotPayload = payload
					if tt.err != nil {
						return nil, tt.err
					}
					return &service.WebhookResult{EventID: "evt_1", EventType: "checkout.session.completed", Applied: true}, nil
				},
			}
			h := NewPaymentWebhookHandler(svc, "Stripe-Signature", 1024)
			req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewBufferString(tt.body))
			if tt.signature != "" {
				req.Header.Set("Stripe-Signature", tt.signature)
			}
			rec := httptest.NewRecorder()

			h.Handle(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK && string(gotPayload) != tt.body {
				t.Errorf("payload not passed through verbatim: %q", gotPayload)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("down") }

	tests := []struct {
		name     string
		checks   map[string]Check
		wantCode int
	}{
		{"all ok", map[string]Check{"database": ok, "redis": ok}, http.StatusOK},
		{"redis down", map[string]Check{"database": ok, "redis": down}, http.StatusServiceUnavailable},
		{"nil check skipped", map[string]Check{"database": ok, "redis": nil}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.checks).Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestPlansList(t *testing.T) {
	rec := httptest.NewRecorder()
	NewPlansHandler().List(rec, httptest.NewRequest(http.MethodGet, "/api/plans", nil))

	var body struct {
		Plans     []domain.Plan `json:"plans"`
		KeyDomain string        `json:"keyDomain"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Plans) != 2 || body.KeyDomain != "chavepix.club" {
		t.Errorf("body = %+v", body)
	}
}

type MockProfiles struct {
	SyncFunc func(ctx context.Context, user *domain.Identity) (*domain.Profile, error)
}

func (m *MockProfiles) Sync(ctx context.Context, user *domain.Identity) (*domain.Profile, error) {
	return m.SyncFunc(ctx, user)
}

func TestSessionSync(t *testing.T) {
	h := NewSessionHandler(&MockProfiles{
		SyncFunc: func(ctx context.Context, user *domain.Identity) (*domain.Profile, error) {
			return &domain.Profile{ID: user.ID, Email: user.Email}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Sync(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/session", nil), testUser))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["id"] != "user-1" {
		t.Errorf("body = %v", body)
	}

	rec = httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous Me status = %d", rec.Code)
	}
}

type MockDashboard struct {
	GetFunc func(ctx context.Context, userID string) (*domain.Dashboard, error)
}

func (m *MockDashboard) Get(ctx context.Context, userID string) (*domain.Dashboard, error) {
	return m.GetFunc(ctx, userID)
}

func TestDashboardGet(t *testing.T) {
	h := NewDashboardHandler(&MockDashboard{
		GetFunc: func(ctx context.Context, userID string) (*domain.Dashboard, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q", userID)
			}
			return &domain.Dashboard{AvailableKeys: 3, KeyDomain: domain.KeyDomain}, nil
		},
	})
	rec := httptest.NewRecorder()
	h.Get(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), testUser))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["availableKeys"] != float64(3) {
		t.Errorf("body = %v", body)
	}
}

type MockSettler struct {
	SettleFunc func(sessionID string, paid bool) (*payment.Settlement, error)
}

func (m *MockSettler) Settle(sessionID string, paid bool) (*payment.Settlement, error) {
	return m.SettleFunc(sessionID, paid)
}

func TestDevPay(t *testing.T) {
	settler := &MockSettler{
		SettleFunc: func(sessionID string, paid bool) (*payment.Settlement, error) {
			if sessionID != "mock_cs_1" {
				return nil, payment.ErrUnknownSession
			}
			ret := "https://chavepix.club/?canceled=true"
			if paid {
				ret = "https://chavepix.club/dashboard?success=true"
			}
			return &payment.Settlement{Payload: []byte(`{"id":"evt"}`), Signature: "sha256=ok", ReturnURL: ret}, nil
		},
	}

	tests := []struct {
		name         string
		query        string
		wantCode     int
		wantLocation string
		wantDelivery bool
	}{
		{"paid by default", "?session_id=mock_cs_1", http.StatusSeeOther, "https://chavepix.club/dashboard?success=true", true},
		{"cancel", "?session_id=mock_cs_1&outcome=cancel", http.StatusSeeOther, "https://chavepix.club/?canceled=true", true},
		{"unknown session", "?session_id=nope", http.StatusNotFound, "", false},
		{"missing session", "", http.StatusBadRequest, "", false},
		{"bad outcome", "?session_id=mock_cs_1&outcome=refund", http.StatusUnprocessableEntity, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSig string
			events := &MockEvents{
				HandleEventFunc: func(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error) {
					gotSig = signature
					return &service.WebhookResult{Applied: true}, nil
				},
			}
			rec := httptest.NewRecorder()
			NewDevPayHandler(settler, events).Pay(rec, httptest.NewRequest(http.MethodGet, "/dev/pay"+tt.query, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := rec.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
			if (gotSig == "sha256=ok") != tt.wantDelivery {
				t.Errorf("webhook delivered = %v, want %v", gotSig != "", tt.wantDelivery)
			}
		})
	}
}
