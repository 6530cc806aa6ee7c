package handlers_test

import (
	"bytes"
	"encoding/json"
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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type BalanceHandlerTestSuite struct {
	suite.Suite
	router             *gin.Engine
	mockBalanceService *MockBalanceService
}

func (suite *BalanceHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.mockBalanceService = new(MockBalanceService)

	v1 := suite.router.Group("/api/v1", middleware.AuthMiddleware(testSecret, testIssuer))
	handlers.RegisterBalanceRoutes(v1, suite.mockBalanceService)
}

func (suite *BalanceHandlerTestSuite) serve(method, url string, actor domain.Actor, body []byte) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signToken(suite.T(), actor.ID, actor.Role))
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *BalanceHandlerTestSuite) TestGetBalance_MeResolvesToCaller() {
	actor := domain.Actor{ID: "sub-1", Role: domain.RoleSubmitter}
	suite.mockBalanceService.On("GetBalance", mock.Anything, actor, "sub-1").
		Return(&domain.AccountBalance{AccountID: "sub-1", Balance: decimal.RequireFromString("750.5"), LastUpdatedAt: time.Now()}, nil).Once()

	w := suite.serve(http.MethodGet, "/api/v1/balances/me", actor, nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.BalanceResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("750.50", resp.Balance)
	suite.mockBalanceService.AssertExpectations(suite.T())
}

func (suite *BalanceHandlerTestSuite) TestGetBalance_OtherAccountForbidden() {
	actor := domain.Actor{ID: "sub-1", Role: domain.RoleSubmitter}
	suite.mockBalanceService.On("GetBalance", mock.Anything, actor, "sub-2").
		Return(nil, apperrors.ErrForbidden).Once()

	w := suite.serve(http.MethodGet, "/api/v1/balances/sub-2", actor, nil)

	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *BalanceHandlerTestSuite) TestVerifyChain_AdminOnly() {
	w := suite.serve(http.MethodGet, "/api/v1/balances/sub-1/verify", domain.Actor{ID: "rev-1", Role: domain.RoleReviewer}, nil)

	suite.Equal(http.StatusForbidden, w.Code)
	suite.mockBalanceService.AssertNotCalled(suite.T(), "VerifyChain")
}

func (suite *BalanceHandlerTestSuite) TestVerifyChain_ReportsMismatch() {
	suite.mockBalanceService.On("VerifyChain", mock.Anything, "sub-1").Return(&domain.ChainReport{
		AccountID:       "sub-1",
		EntryCount:      3,
		ReplayedBalance: decimal.NewFromInt(100),
		CachedBalance:   decimal.NewFromInt(90),
	}, nil).Once()

	w := suite.serve(http.MethodGet, "/api/v1/balances/sub-1/verify", domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}, nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ChainReportResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.False(resp.Consistent)
}

func (suite *BalanceHandlerTestSuite) TestAdjustBalance_Admin() {
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	amount := decimal.RequireFromString("-20.00")
	suite.mockBalanceService.On("AdjustBalance", mock.Anything, admin, "sub-1",
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(amount) }), "duplicate payment").
		Return(&domain.LedgerEntry{
			EntryID:         "e-1",
			AccountID:       "sub-1",
			Amount:          amount,
			BalanceBefore:   decimal.NewFromInt(100),
			BalanceAfter:    decimal.NewFromInt(80),
			TransactionType: domain.TxnAdjustment,
			CreatedBy:       admin.ID,
			CreatedAt:       time.Now(),
		}, nil).Once()

	w := suite.serve(http.MethodPost, "/api/v1/balances/sub-1/adjustments", admin,
		[]byte(`{"amount":"-20.00","notes":"duplicate payment"}`))

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.LedgerEntryResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("80.00", resp.BalanceAfter)
	suite.mockBalanceService.AssertExpectations(suite.T())
}

func (suite *BalanceHandlerTestSuite) TestAdjustBalance_NotesRequired() {
	w := suite.serve(http.MethodPost, "/api/v1/balances/sub-1/adjustments", domain.Actor{ID: "admin-1", Role: domain.RoleAdmin},
		[]byte(`{"amount":"5"}`))

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockBalanceService.AssertNotCalled(suite.T(), "AdjustBalance")
}

func TestBalanceHandler(t *testing.T) {
	suite.Run(t, new(BalanceHandlerTestSuite))
}
