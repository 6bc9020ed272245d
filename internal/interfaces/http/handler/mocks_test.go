package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/catalog"
	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/partner"
	"github.com/erp/portal/internal/domain/trade"
	"github.com/erp/portal/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockProfileService implements ProfileService for testing
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) GetProfile(ctx context.Context, p *identity.Principal) (*partner.Customer, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockProfileService) UpsertProfile(ctx context.Context, p *identity.Principal, in partner.ProfileInput) (*partner.Customer, error) {
	args := m.Called(ctx, p, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

// MockQuoteService implements QuoteService for testing
type MockQuoteService struct {
	mock.Mock
}

func (m *MockQuoteService) CreateQuote(ctx context.Context, p *identity.Principal, lines []trade.QuoteLineInput) (*trade.Quote, error) {
	args := m.Called(ctx, p, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Quote), args.Error(1)
}

func (m *MockQuoteService) ListQuotes(ctx context.Context, p *identity.Principal) ([]*trade.Quote, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trade.Quote), args.Error(1)
}

func (m *MockQuoteService) Approve(ctx context.Context, p *identity.Principal, quoteID string) (*trade.Quote, error) {
	args := m.Called(ctx, p, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Quote), args.Error(1)
}

func (m *MockQuoteService) Reject(ctx context.Context, p *identity.Principal, quoteID string) (*trade.Quote, error) {
	args := m.Called(ctx, p, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Quote), args.Error(1)
}

func (m *MockQuoteService) AdminScrap(ctx context.Context, quoteID string) (*trade.Quote, error) {
	args := m.Called(ctx, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Quote), args.Error(1)
}

// MockInvoiceService implements InvoiceService for testing
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) ListInvoices(ctx context.Context, p *identity.Principal) ([]*trade.Invoice, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trade.Invoice), args.Error(1)
}

func (m *MockInvoiceService) GetInvoice(ctx context.Context, p *identity.Principal, invoiceID string) (*trade.Invoice, error) {
	args := m.Called(ctx, p, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Invoice), args.Error(1)
}

func (m *MockInvoiceService) ListReceipts(ctx context.Context, p *identity.Principal) ([]*trade.PaymentReceived, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trade.PaymentReceived), args.Error(1)
}

// MockPaymentService implements PaymentService for testing
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) RecordPayment(ctx context.Context, p *identity.Principal, in portal.RecordPaymentInput) (*portal.RecordPaymentResult, error) {
	args := m.Called(ctx, p, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portal.RecordPaymentResult), args.Error(1)
}

// MockItemRequestService implements ItemRequestService for testing
type MockItemRequestService struct {
	mock.Mock
}

func (m *MockItemRequestService) CreateItemRequest(ctx context.Context, p *identity.Principal, in catalog.ItemRequestInput) (*catalog.ItemRequest, error) {
	args := m.Called(ctx, p, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ItemRequest), args.Error(1)
}

func (m *MockItemRequestService) ListItemRequests(ctx context.Context, status string) ([]*catalog.ItemRequest, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*catalog.ItemRequest), args.Error(1)
}

func (m *MockItemRequestService) ListMyItemRequests(ctx context.Context, p *identity.Principal) ([]*catalog.ItemRequest, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*catalog.ItemRequest), args.Error(1)
}

func (m *MockItemRequestService) UpdateItemRequestStatus(ctx context.Context, in portal.UpdateItemRequestStatusInput) (*portal.UpdateItemRequestStatusResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portal.UpdateItemRequestStatusResult), args.Error(1)
}

var testPrincipal = &identity.Principal{ID: "u-1", Email: "asha@example.com", Name: "Asha"}

// withPrincipal stands in for the JWT middleware
func withPrincipal(p *identity.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			c.Set(middleware.JWTPrincipalKey, p)
		}
		c.Next()
	}
}

func newTestEngine(p *identity.Principal) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), withPrincipal(p))
	return r
}

func performRequest(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// envelope is the decoded response body
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// jsonField returns the raw JSON of a top-level field of obj
func jsonField(t *testing.T, obj json.RawMessage, field string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(obj, &m))
	raw, ok := m[field]
	require.True(t, ok, "field %q missing in %s", field, obj)
	return string(raw)
}
