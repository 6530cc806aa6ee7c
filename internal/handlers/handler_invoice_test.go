package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/dto"
	"github.com/SscSPs/invoice_review_app/internal/handlers"
	"github.com/SscSPs/invoice_review_app/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	testSecret = "test-secret-key-that-is-long-enough"
	testIssuer = "invoice-review-test"
)

// signToken creates a JWT the auth middleware accepts.
func signToken(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	claims := middleware.ActorClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return signed
}

// --- Test Suite ---
type InvoiceHandlerTestSuite struct {
	suite.Suite
	router             *gin.Engine
	mockInvoiceService *MockInvoiceService
	reviewer           domain.Actor
}

func (suite *InvoiceHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.mockInvoiceService = new(MockInvoiceService)
	suite.reviewer = domain.Actor{ID: uuid.NewString(), Role: domain.RoleReviewer}

	v1 := suite.router.Group("/api/v1", middleware.AuthMiddleware(testSecret, testIssuer))
	handlers.RegisterInvoiceRoutes(v1, suite.mockInvoiceService)
}

func (suite *InvoiceHandlerTestSuite) do(method, url, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *InvoiceHandlerTestSuite) claimedInvoice(invoiceID string) *domain.Invoice {
	now := time.Now().UTC()
	amount := decimal.RequireFromString("250.00")
	return &domain.Invoice{
		InvoiceID:         invoiceID,
		Status:            domain.InvoiceInReview,
		SubmitterID:       uuid.NewString(),
		Amount:            &amount,
		StorageKey:        "invoices/" + invoiceID + ".jpg",
		EditHistory:       []domain.EditRecord{},
		CurrentReviewerID: &suite.reviewer.ID,
		ReviewClaimedAt:   &now,
		LastReviewPing:    &now,
		AuditFields:       domain.NewAuditFields(suite.reviewer.ID, now),
	}
}

// --- Test Cases ---

func (suite *InvoiceHandlerTestSuite) TestClaimInvoice_Success() {
	invoiceID := uuid.NewString()
	suite.mockInvoiceService.On("ClaimInvoice", mock.Anything, suite.reviewer, invoiceID).
		Return(suite.claimedInvoice(invoiceID), nil).Once()

	w := suite.do(http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/claim", invoiceID), signToken(suite.T(), suite.reviewer.ID, suite.reviewer.Role), nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("30", w.Header().Get("X-Review-Ping-Interval"))
	var resp dto.InvoiceResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(domain.InvoiceInReview, resp.Status)
	suite.Equal("250.00", resp.Amount)
	suite.Require().NotNil(resp.CurrentReviewerID)
	suite.Equal(suite.reviewer.ID, *resp.CurrentReviewerID)
	suite.mockInvoiceService.AssertExpectations(suite.T())
}

func (suite *InvoiceHandlerTestSuite) TestClaimInvoice_LostRaceIsConflict() {
	invoiceID := uuid.NewString()
	suite.mockInvoiceService.On("ClaimInvoice", mock.Anything, suite.reviewer, invoiceID).
		Return(nil, fmt.Errorf("%w: invoice is already being reviewed", apperrors.ErrConflict)).Once()

	w := suite.do(http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/claim", invoiceID), signToken(suite.T(), suite.reviewer.ID, suite.reviewer.Role), nil)

	suite.Equal(http.StatusConflict, w.Code)
	var resp dto.ErrorResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Contains(resp.Error, "already being reviewed")
}

func (suite *InvoiceHandlerTestSuite) TestDecideInvoice_PassesOutcomeAndAmount() {
	invoiceID := uuid.NewString()
	accepted := suite.claimedInvoice(invoiceID)
	accepted.Status = domain.InvoiceAccepted
	accepted.CurrentReviewerID, accepted.ReviewClaimedAt, accepted.LastReviewPing = nil, nil, nil

	suite.mockInvoiceService.On("DecideInvoice", mock.Anything, suite.reviewer, invoiceID, domain.InvoiceAccepted,
		mock.MatchedBy(func(p domain.DecisionPayload) bool {
			return p.Amount != nil && p.Amount.Equal(decimal.RequireFromString("199.99"))
		}),
	).Return(accepted, nil).Once()

	body := map[string]any{"outcome": "accepted", "amount": "199.99"}
	w := suite.do(http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/decision", invoiceID), signToken(suite.T(), suite.reviewer.ID, suite.reviewer.Role), body)

	suite.Equal(http.StatusOK, w.Code)
	suite.mockInvoiceService.AssertExpectations(suite.T())
}

func (suite *InvoiceHandlerTestSuite) TestDecideInvoice_UnknownOutcomeRejected() {
	body := map[string]any{"outcome": "settled"}
	w := suite.do(http.MethodPost, "/api/v1/invoices/abc/decision", signToken(suite.T(), suite.reviewer.ID, suite.reviewer.Role), body)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockInvoiceService.AssertNotCalled(suite.T(), "DecideInvoice")
}

func (suite *InvoiceHandlerTestSuite) TestPingReview_LostClaim() {
	invoiceID := uuid.NewString()
	suite.mockInvoiceService.On("PingReview", mock.Anything, suite.reviewer, invoiceID).
		Return(nil, apperrors.ErrNotOwner).Once()

	w := suite.do(http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/ping", invoiceID), signToken(suite.T(), suite.reviewer.ID, suite.reviewer.Role), nil)

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *InvoiceHandlerTestSuite) TestListInvoices_BindsFilter() {
	suite.mockInvoiceService.On("ListInvoices", mock.Anything, suite.reviewer,
		domain.InvoiceFilter{Status: domain.InvoicePending, Limit: 5, Offset: 10},
	).Return([]domain.Invoice{}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/invoices?status=pending&limit=5&offset=10", signToken(suite.T(), suite.reviewer.ID, suite.reviewer.Role), nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.mockInvoiceService.AssertExpectations(suite.T())
}

func (suite *InvoiceHandlerTestSuite) TestListInvoices_LimitTooLarge() {
	w := suite.do(http.MethodGet, "/api/v1/invoices?limit=1000", signToken(suite.T(), suite.reviewer.ID, suite.reviewer.Role), nil)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockInvoiceService.AssertNotCalled(suite.T(), "ListInvoices")
}

func (suite *InvoiceHandlerTestSuite) TestServerErrorsAreNotLeaked() {
	invoiceID := uuid.NewString()
	suite.mockInvoiceService.On("GetInvoice", mock.Anything, suite.reviewer, invoiceID).
		Return(nil, fmt.Errorf("connection reset by peer")).Once()

	w := suite.do(http.MethodGet, "/api/v1/invoices/"+invoiceID, signToken(suite.T(), suite.reviewer.ID, suite.reviewer.Role), nil)

	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.NotContains(w.Body.String(), "connection reset")
}

func (suite *InvoiceHandlerTestSuite) TestMissingTokenIsUnauthorized() {
	w := suite.do(http.MethodGet, "/api/v1/invoices", "", nil)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockInvoiceService.AssertNotCalled(suite.T(), "ListInvoices")
}

// --- Run Test Suite ---
func TestInvoiceHandler(t *testing.T) {
	suite.Run(t, new(InvoiceHandlerTestSuite))
}
