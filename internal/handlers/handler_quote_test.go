package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/SscSPs/insurance_platform/internal/handlers"
	"github.com/SscSPs/insurance_platform/internal/middleware"
	"github.com/SscSPs/insurance_platform/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock QuoteService ---
type MockQuoteService struct {
	mock.Mock
}

func (m *MockQuoteService) view(args mock.Arguments) (*portssvc.QuoteView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.QuoteView), args.Error(1)
}

func (m *MockQuoteService) GetQuote(ctx context.Context, tenantID, quoteID, userID string) (*portssvc.QuoteView, error) {
	return m.view(m.Called(ctx, tenantID, quoteID, userID))
}
func (m *MockQuoteService) ListQuotes(ctx context.Context, tenantID, userID string, params dto.ListQuotesParams) ([]domain.QuoteReadModel, *string, error) {
	args := m.Called(ctx, tenantID, userID, params)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.QuoteReadModel), args.Get(1).(*string), args.Error(2)
}
func (m *MockQuoteService) GetQuoteHistory(ctx context.Context, tenantID, quoteID, userID string) ([]domain.EventEnvelope, error) {
	args := m.Called(ctx, tenantID, quoteID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EventEnvelope), args.Error(1)
}
func (m *MockQuoteService) CreateQuote(ctx context.Context, tenantID, userID string, req dto.CreateQuoteRequest) (*portssvc.QuoteView, error) {
	return m.view(m.Called(ctx, tenantID, userID, req))
}
func (m *MockQuoteService) UpdateFormData(ctx context.Context, tenantID, quoteID, userID string, req dto.UpdateFormDataRequest) (*portssvc.QuoteView, error) {
	return m.view(m.Called(ctx, tenantID, quoteID, userID, req))
}
func (m *MockQuoteService) RecordCalculation(ctx context.Context, tenantID, quoteID, userID string, req dto.RecordCalculationRequest) (*portssvc.QuoteView, error) {
	return m.view(m.Called(ctx, tenantID, quoteID, userID, req))
}
func (m *MockQuoteService) PerformWorkflowAction(ctx context.Context, tenantID, quoteID, userID string, action domain.QuoteAction) (*portssvc.QuoteView, error) {
	return m.view(m.Called(ctx, tenantID, quoteID, userID, action))
}
func (m *MockQuoteService) CreateQuoteVersion(ctx context.Context, tenantID, quoteID, userID string) (*domain.QuoteVersion, error) {
	args := m.Called(ctx, tenantID, quoteID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuoteVersion), args.Error(1)
}

var _ portssvc.QuoteSvcFacade = (*MockQuoteService)(nil)

// --- Mock PaymentService ---
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) PreviewMerchantFees(ctx context.Context, tenantID, quoteID, userID string) (*dto.MerchantFeeQuoteResponse, error) {
	args := m.Called(ctx, tenantID, quoteID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.MerchantFeeQuoteResponse), args.Error(1)
}
func (m *MockPaymentService) PayQuote(ctx context.Context, tenantID, quoteID, userID string, req dto.PayQuoteRequest) (*domain.Payment, domain.PaymentOutcome, error) {
	args := m.Called(ctx, tenantID, quoteID, userID, req)
	if args.Get(0) == nil {
		return nil, domain.PaymentOutcome{}, args.Error(2)
	}
	return args.Get(0).(*domain.Payment), args.Get(1).(domain.PaymentOutcome), args.Error(2)
}

var _ portssvc.PaymentSvcFacade = (*MockPaymentService)(nil)

// --- Mock APITokenService ---
type MockAPITokenService struct {
	mock.Mock
}

func (m *MockAPITokenService) CreateToken(ctx context.Context, userID, name string, tenantID *string, expiresIn *time.Duration) (string, *domain.APIToken, error) {
	args := m.Called(ctx, userID, name, tenantID, expiresIn)
	if args.Get(1) == nil {
		return "", nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*domain.APIToken), args.Error(2)
}
func (m *MockAPITokenService) ListTokens(ctx context.Context, userID string) ([]domain.APIToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.APIToken), args.Error(1)
}
func (m *MockAPITokenService) RevokeToken(ctx context.Context, userID, tokenID string) error {
	return m.Called(ctx, userID, tokenID).Error(0)
}
func (m *MockAPITokenService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockAPITokenService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, *domain.APIToken, error) {
	args := m.Called(ctx, tokenString)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.User), args.Get(1).(*domain.APIToken), args.Error(2)
}

var _ portssvc.APITokenSvc = (*MockAPITokenService)(nil)

// --- Test Suite ---
type QuoteHandlerTestSuite struct {
	suite.Suite
	router             *gin.Engine
	mockQuoteService   *MockQuoteService
	mockPaymentService *MockPaymentService
	mockTokenService   *MockAPITokenService
	jwtSecret          string
	issuer             string
	userID             string
	tenantID           string
}

func (suite *QuoteHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.issuer = "insurance-test"
	suite.userID = uuid.NewString()
	suite.tenantID = uuid.NewString()
	suite.Require().NoError(handlers.RegisterValidators())

	suite.mockQuoteService = new(MockQuoteService)
	suite.mockPaymentService = new(MockPaymentService)
	suite.mockTokenService = new(MockAPITokenService)

	v1 := suite.router.Group("/api/v1",
		middleware.APITokenAuth(suite.mockTokenService),
		middleware.AuthMiddleware(suite.jwtSecret, suite.issuer),
	)
	tenantScoped := v1.Group("/tenants/:tenant_id", middleware.RequireTenantScope())
	handlers.RegisterQuoteRoutes(tenantScoped, suite.mockQuoteService)
	handlers.RegisterPaymentRoutes(tenantScoped, suite.mockPaymentService)
}

func (suite *QuoteHandlerTestSuite) request(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, fmt.Sprintf("/api/v1/tenants/%s%s", suite.tenantID, path), &buf)
	token, err := utils.GenerateJWT(suite.userID, suite.jwtSecret, time.Hour, suite.issuer)
	suite.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *QuoteHandlerTestSuite) nascentQuote() *portssvc.QuoteView {
	at := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	agg, err := domain.StartNewBusinessQuote(domain.NewBusinessQuoteParams{
		TenantID: suite.tenantID, AggregateID: "agg-1", QuoteID: "q-1", ProductID: "motor",
		FormData:      domain.FormData{FormDataID: "fd-1", Data: json.RawMessage(`{}`), CreatedAt: at},
		InceptionDate: at.AddDate(0, 0, 12), ExpiryDate: at.AddDate(1, 0, 12),
	}, suite.userID, at)
	suite.Require().NoError(err)
	q, err := agg.FindQuote("q-1")
	suite.Require().NoError(err)
	return &portssvc.QuoteView{Aggregate: agg, Quote: q, Workflow: domain.DefaultQuoteWorkflow()}
}

// --- Test Cases ---

func (suite *QuoteHandlerTestSuite) TestCreateQuote_Success() {
	view := suite.nascentQuote()
	suite.mockQuoteService.On("CreateQuote", mock.Anything, suite.tenantID, suite.userID,
		mock.MatchedBy(func(r dto.CreateQuoteRequest) bool { return r.ProductID == "motor" }),
	).Return(view, nil).Once()

	w := suite.request(http.MethodPost, "/quotes", map[string]any{
		"productID":     "motor",
		"formData":      map[string]any{"vehicle": map[string]any{"make": "Ford"}},
		"inceptionDate": "2026-01-01T00:00:00Z",
		"expiryDate":    "2027-01-01T00:00:00Z",
	})

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.QuoteResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("q-1", resp.QuoteID)
	suite.Equal(domain.StateNascent, resp.WorkflowState)
	suite.Contains(resp.AvailableActions, domain.ActionActualise)
	suite.mockQuoteService.AssertExpectations(suite.T())
}

func (suite *QuoteHandlerTestSuite) TestCreateQuote_ExpiryBeforeInception() {
	w := suite.request(http.MethodPost, "/quotes", map[string]any{
		"productID":     "motor",
		"inceptionDate": "2026-01-01T00:00:00Z",
		"expiryDate":    "2025-01-01T00:00:00Z",
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockQuoteService.AssertNotCalled(suite.T(), "CreateQuote")
}

func (suite *QuoteHandlerTestSuite) TestPerformAction() {
	notPermitted := apperrors.NewDomainError(apperrors.ErrConflict, domain.ErrCodeWorkflowActionNotPermitted,
		"action ReviewApproval is not permitted in state Incomplete", map[string]any{"state": "Incomplete"})

	tests := []struct {
		name       string
		action     string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{name: "unknown action", action: "Teleport", wantStatus: http.StatusBadRequest},
		{name: "data operation is not a workflow action", action: "FormUpdate", wantStatus: http.StatusBadRequest},
		{name: "not permitted in state", action: "ReviewApproval", serviceErr: notPermitted, wantStatus: http.StatusConflict, wantCode: domain.ErrCodeWorkflowActionNotPermitted},
		{name: "role too low", action: "Decline", serviceErr: apperrors.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "aggregate busy", action: "Return", serviceErr: apperrors.ErrLockNotAcquired, wantStatus: http.StatusServiceUnavailable},
		{name: "actualised", action: "Actualise", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.SetupTest()
			if tt.wantStatus != http.StatusBadRequest {
				var view *portssvc.QuoteView
				if tt.serviceErr == nil {
					view = suite.nascentQuote()
					view.Quote.WorkflowState = domain.StateIncomplete
				}
				suite.mockQuoteService.On("PerformWorkflowAction", mock.Anything, suite.tenantID, "q-1", suite.userID, domain.QuoteAction(tt.action)).
					Return(view, tt.serviceErr).Once()
			}

			w := suite.request(http.MethodPost, "/quotes/q-1/actions", map[string]string{"action": tt.action})

			suite.Equal(tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode != "" {
				var resp handlers.ErrorResponse
				suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
				suite.Equal(tt.wantCode, resp.Code)
				suite.Equal("Incomplete", resp.Data["state"])
			}
			if tt.wantStatus == http.StatusOK {
				var resp dto.WorkflowActionResponse
				suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
				suite.Equal(domain.StateIncomplete, resp.WorkflowState)
			}
			suite.mockQuoteService.AssertExpectations(suite.T())
		})
	}
}

func (suite *QuoteHandlerTestSuite) TestListQuotes_Pagination() {
	next := "opaque-token"
	suite.mockQuoteService.On("ListQuotes", mock.Anything, suite.tenantID, suite.userID,
		mock.MatchedBy(func(p dto.ListQuotesParams) bool {
			return p.Limit == 20 && p.WorkflowState == "Approved" && p.NextToken == nil
		}),
	).Return([]domain.QuoteReadModel{{QuoteID: "q-1", WorkflowState: domain.StateApproved}}, &next, nil).Once()

	w := suite.request(http.MethodGet, "/quotes?state=Approved", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListQuotesResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Quotes, 1)
	suite.Require().NotNil(resp.NextToken)
	suite.Equal(next, *resp.NextToken)
}

func (suite *QuoteHandlerTestSuite) TestListQuotes_InvalidParams() {
	for _, query := range []string{"limit=500", "state=Limbo", "quoteType=Refund"} {
		w := suite.request(http.MethodGet, "/quotes?"+query, nil)
		suite.Equal(http.StatusBadRequest, w.Code, query)
	}
	suite.mockQuoteService.AssertNotCalled(suite.T(), "ListQuotes")
}

func (suite *QuoteHandlerTestSuite) TestGetQuote_NotFound() {
	suite.mockQuoteService.On("GetQuote", mock.Anything, suite.tenantID, "missing", suite.userID).
		Return(nil, fmt.Errorf("quote missing: %w", apperrors.ErrNotFound)).Once()

	w := suite.request(http.MethodGet, "/quotes/missing", nil)

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *QuoteHandlerTestSuite) TestMissingBearerToken() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/tenants/"+suite.tenantID+"/quotes", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *QuoteHandlerTestSuite) TestAPIKeyScopedToTenant() {
	other := uuid.NewString()
	user := &domain.User{UserID: suite.userID}
	token := &domain.APIToken{ID: uuid.NewString(), UserID: suite.userID, TenantID: &other}
	suite.mockTokenService.On("ValidateToken", mock.Anything, "ipk_key").Return(user, token, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/tenants/"+suite.tenantID+"/quotes/q-1", nil)
	req.Header.Set(middleware.APIKeyHeader, "ipk_key")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusForbidden, w.Code)

	suite.mockQuoteService.On("GetQuote", mock.Anything, other, "q-1", suite.userID).Return(suite.nascentQuote(), nil).Once()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/tenants/"+other+"/quotes/q-1", nil)
	req.Header.Set(middleware.APIKeyHeader, "ipk_key")
	w = httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *QuoteHandlerTestSuite) TestInvalidAPIKey() {
	suite.mockTokenService.On("ValidateToken", mock.Anything, "ipk_bad").Return(nil, nil, apperrors.ErrUnauthorized)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/tenants/"+suite.tenantID+"/quotes", nil)
	req.Header.Set(middleware.APIKeyHeader, "ipk_bad")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *QuoteHandlerTestSuite) TestPayQuote() {
	payment := &domain.Payment{PaymentID: "pay-1", QuoteID: "q-1", Amount: decimal.RequireFromString("1016.50"), CurrencyCode: "AUD"}
	body := map[string]any{"paymentMethod": "card", "cardToken": "tok", "payerEmail": "payer@example.com"}

	suite.Run("approved", func() {
		suite.SetupTest()
		suite.mockPaymentService.On("PayQuote", mock.Anything, suite.tenantID, "q-1", suite.userID, mock.Anything).
			Return(payment, domain.PaymentOutcome{Approved: true, Status: "approved", GatewayReference: "mp-1"}, nil).Once()

		w := suite.request(http.MethodPost, "/quotes/q-1/payments", body)

		suite.Equal(http.StatusCreated, w.Code)
		var resp dto.PaymentResponse
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		suite.True(resp.Approved)
		suite.Equal("mp-1", resp.GatewayReference)
	})

	suite.Run("declined", func() {
		suite.SetupTest()
		suite.mockPaymentService.On("PayQuote", mock.Anything, suite.tenantID, "q-1", suite.userID, mock.Anything).
			Return(payment, domain.PaymentOutcome{Status: "rejected", StatusDetail: "cc_rejected_insufficient_amount"}, nil).Once()

		w := suite.request(http.MethodPost, "/quotes/q-1/payments", body)

		suite.Equal(http.StatusPaymentRequired, w.Code)
		var resp handlers.ErrorResponse
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		suite.Equal(domain.ErrCodePaymentDeclined, resp.Code)
	})

	suite.Run("bad payment method", func() {
		suite.SetupTest()
		w := suite.request(http.MethodPost, "/quotes/q-1/payments", map[string]any{"paymentMethod": "cash", "payerEmail": "payer@example.com"})
		suite.Equal(http.StatusBadRequest, w.Code)
		suite.mockPaymentService.AssertNotCalled(suite.T(), "PayQuote")
	})
}

// --- Run Test Suite ---
func TestQuoteHandler(t *testing.T) {
	suite.Run(t, new(QuoteHandlerTestSuite))
}
