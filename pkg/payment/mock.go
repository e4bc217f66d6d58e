package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownSession is returned when settling a session the mock never issued
// or already settled.
var ErrUnknownSession = errors.New("unknown checkout session")

// MockGateway is a local stand-in for development. Sessions point at the
// dev pay page under baseURL and webhooks are signed with
// "sha256=<hex hmac>" over the body.
type MockGateway struct {
	baseURL string
	secret  string

	mu       sync.Mutex
	sessions map[string]SessionRequest
}

func NewMockGateway(baseURL, secret string) *MockGateway {
	return &MockGateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		secret:   secret,
		sessions: make(map[string]SessionRequest),
	}
}

func (g *MockGateway) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	id := "mock_cs_" + uuid.New().String()
	g.mu.Lock()
	g.sessions[id] = req
	g.mu.Unlock()

	q := url.Values{}
	q.Set("session_id", id)
	q.Set(MetaOrderID, req.Metadata[MetaOrderID])
	return &Session{ID: id, URL: g.baseURL + "/dev/pay?" + q.Encode()}, nil
}

// Settlement is the signed webhook a settled mock session produces, plus the
// URL the customer returns to.
type Settlement struct {
	Payload   []byte
	Signature string
	ReturnURL string
}

// Settle closes an open session as paid or expired and builds the webhook the
// real gateway would send for it.
func (g *MockGateway) Settle(sessionID string, paid bool) (*Settlement, error) {
	g.mu.Lock()
	req, ok := g.sessions[sessionID]
	delete(g.sessions, sessionID)
	g.mu.Unlock()
	if !ok {
		return nil, ErrUnknownSession
	}

	ev := mockEvent{
		ID:       "mock_evt_" + uuid.New().String(),
		Type:     "checkout.session.expired",
		ObjectID: sessionID,
		Metadata: req.Metadata,
	}
	returnURL := req.CancelURL
	if paid {
		ev.Type = "checkout.session.completed"
		returnURL = req.SuccessURL
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("mock: encode event: %w", err)
	}
	return &Settlement{Payload: payload, Signature: g.Sign(payload), ReturnURL: returnURL}, nil
}

// mockEvent is the JSON body accepted by the mock webhook.
type mockEvent struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	ObjectID string            `json:"object_id"`
	Metadata map[string]string `json:"metadata"`
}

func (g *MockGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	if !verifySignature(signature, payload, g.secret) {
		return nil, ErrInvalidSignature
	}
	var ev mockEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: malformed body: %v", ErrInvalidSignature, err)
	}
	return &Event{
		ID:       ev.ID,
		Type:     ev.Type,
		Kind:     KindOf(ev.Type),
		ObjectID: ev.ObjectID,
		Metadata: ev.Metadata,
	}, nil
}

// Sign produces the signature header value the mock expects.
func (g *MockGateway) Sign(payload []byte) string {
	return "sha256=" + hexHMAC(payload, g.secret)
}

func verifySignature(signature string, payload []byte, secret string) bool {
	parts := strings.SplitN(signature, "=", 2)
	if len(parts) != 2 || parts[0] != "sha256" {
		return false
	}
	return hmac.Equal([]byte(parts[1]), []byte(hexHMAC(payload, secret)))
}

func hexHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
