package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/core/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	testTenantID    = "tenant-1"
	testAgentID     = "agent-1"
	testUWID        = "underwriter-1"
	testAdminID     = "admin-1"
	testOutsiderID  = "outsider-1"
	testProductID   = "motor"
	testInitialForm = `{"vehicle":{"make":"Ford","year":2020}}`
)

type QuoteServiceTestSuite struct {
	suite.Suite
	repo    *memoryQuoteRepo
	clock   *fixedClock
	numbers *sequenceNumbers
	service portssvc.QuoteSvcFacade
	ctx     context.Context
}

func (s *QuoteServiceTestSuite) SetupTest() {
	s.repo = newMemoryQuoteRepo()
	s.clock = &fixedClock{now: date(2026, 1, 10)}
	s.numbers = &sequenceNumbers{}
	s.ctx = context.Background()
	s.service = services.NewQuoteService(s.repo, staticWorkflows{}, s.numbers,
		services.WithTenantAuthorizer(roleAuthorizer{
			testAgentID: domain.RoleAgent,
			testUWID:    domain.RoleUnderwriter,
			testAdminID: domain.RoleAdmin,
		}),
		services.WithClock(s.clock.Now))
}

func TestQuoteServiceTestSuite(t *testing.T) {
	suite.Run(t, new(QuoteServiceTestSuite))
}

func (s *QuoteServiceTestSuite) createQuote() *portssvc.QuoteView {
	view, err := s.service.CreateQuote(s.ctx, testTenantID, testAgentID, dto.CreateQuoteRequest{
		ProductID:     testProductID,
		FormData:      json.RawMessage(testInitialForm),
		InceptionDate: date(2026, 2, 1),
		ExpiryDate:    date(2027, 2, 1),
	})
	s.Require().NoError(err)
	return view
}

func (s *QuoteServiceTestSuite) TestCreateQuote_AssignsNumberAndStartsNascent() {
	view := s.createQuote()

	s.Equal(domain.QuoteTypeNewBusiness, view.Quote.Type)
	s.Equal(domain.StateNascent, view.Quote.WorkflowState)
	s.Require().NotNil(view.Quote.QuoteNumber)
	s.Equal("Q-0001", *view.Quote.QuoteNumber)
	s.Require().NotNil(view.Quote.LatestFormData)
	s.JSONEq(testInitialForm, string(view.Quote.LatestFormData.Data))
	s.Equal(date(2026, 1, 10), view.Quote.CreatedAt)
	s.Equal(1, s.repo.saves)
	s.Zero(len(view.Aggregate.UnsavedEvents()))
}

func (s *QuoteServiceTestSuite) TestCreateQuote_Errors() {
	testCases := []struct {
		name    string
		userID  string
		req     dto.CreateQuoteRequest
		wantErr error
	}{
		{
			name:    "Outsider is forbidden",
			userID:  testOutsiderID,
			req:     dto.CreateQuoteRequest{ProductID: testProductID, InceptionDate: date(2026, 2, 1), ExpiryDate: date(2027, 2, 1)},
			wantErr: apperrors.ErrForbidden,
		},
		{
			name:    "Expiry before inception",
			userID:  testAgentID,
			req:     dto.CreateQuoteRequest{ProductID: testProductID, InceptionDate: date(2027, 2, 1), ExpiryDate: date(2026, 2, 1)},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "Malformed form data",
			userID:  testAgentID,
			req:     dto.CreateQuoteRequest{ProductID: testProductID, FormData: json.RawMessage(`{"a":`), InceptionDate: date(2026, 2, 1), ExpiryDate: date(2027, 2, 1)},
			wantErr: apperrors.ErrValidation,
		},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			view, err := s.service.CreateQuote(s.ctx, testTenantID, tc.userID, tc.req)
			s.Nil(view)
			s.ErrorIs(err, tc.wantErr)
		})
	}
	s.Zero(s.repo.saves)
}

func (s *QuoteServiceTestSuite) TestUpdateFormData_ActualisesNascentQuote() {
	created := s.createQuote()

	view, err := s.service.UpdateFormData(s.ctx, testTenantID, created.Quote.QuoteID, testAgentID,
		dto.UpdateFormDataRequest{FormData: json.RawMessage(`{"vehicle":{"make":"Mazda"}}`)})
	s.Require().NoError(err)

	s.Equal(domain.StateIncomplete, view.Quote.WorkflowState)
	s.NotEqual(created.Quote.LatestFormData.FormDataID, view.Quote.LatestFormData.FormDataID)
	s.JSONEq(`{"vehicle":{"make":"Mazda"}}`, string(view.Quote.LatestFormData.Data))
}

func (s *QuoteServiceTestSuite) TestRecordCalculation_AutoProgressApprovesCleanResult() {
	created := s.createQuote()

	view, err := s.service.RecordCalculation(s.ctx, testTenantID, created.Quote.QuoteID, testAgentID, dto.RecordCalculationRequest{
		FormDataID:   created.Quote.LatestFormData.FormDataID,
		Calculation:  bindingCalculation("1000"),
		AutoProgress: true,
	})
	s.Require().NoError(err)

	s.Equal(domain.StateApproved, view.Quote.WorkflowState)
	s.True(view.Quote.HasBindableCalculation())
	s.Equal("1000", view.Quote.LatestCalculationResult.PriceBreakdown.TotalPayable.String())
}

func (s *QuoteServiceTestSuite) TestRecordCalculation_AutoProgressRefersTriggers() {
	created := s.createQuote()
	calc := `{"state":"bindingQuote","triggers":[{"type":"review","name":"HighValue","message":"needs a look"}],
		"payment":{"total":{"totalPayable":"$1,250.00"}}}`

	view, err := s.service.RecordCalculation(s.ctx, testTenantID, created.Quote.QuoteID, testAgentID, dto.RecordCalculationRequest{
		FormDataID:   created.Quote.LatestFormData.FormDataID,
		Calculation:  json.RawMessage(calc),
		AutoProgress: true,
	})
	s.Require().NoError(err)
	s.Equal(domain.StateReview, view.Quote.WorkflowState)
	s.Equal("1250", view.Quote.LatestCalculationResult.PriceBreakdown.TotalPayable.String())
}

func (s *QuoteServiceTestSuite) TestRecordCalculation_WithoutAutoProgressKeepsState() {
	created := s.createQuote()

	view, err := s.service.RecordCalculation(s.ctx, testTenantID, created.Quote.QuoteID, testAgentID, dto.RecordCalculationRequest{
		FormDataID:  created.Quote.LatestFormData.FormDataID,
		Calculation: bindingCalculation("1000"),
	})
	s.Require().NoError(err)
	s.Equal(domain.StateIncomplete, view.Quote.WorkflowState)
}

func (s *QuoteServiceTestSuite) TestRecordCalculation_StaleFormDataIsRejected() {
	created := s.createQuote()
	_, err := s.service.UpdateFormData(s.ctx, testTenantID, created.Quote.QuoteID, testAgentID,
		dto.UpdateFormDataRequest{FormData: json.RawMessage(`{}`)})
	s.Require().NoError(err)

	_, err = s.service.RecordCalculation(s.ctx, testTenantID, created.Quote.QuoteID, testAgentID, dto.RecordCalculationRequest{
		FormDataID:  created.Quote.LatestFormData.FormDataID,
		Calculation: bindingCalculation("1000"),
	})
	s.ErrorIs(err, apperrors.ErrConflict)
	s.True(apperrors.HasCode(err, domain.ErrCodeCalculationResultStale))
}

func (s *QuoteServiceTestSuite) TestPerformWorkflowAction_RequiresUnderwriterForApproval() {
	created := s.createQuote()
	quoteID := created.Quote.QuoteID
	_, err := s.service.RecordCalculation(s.ctx, testTenantID, quoteID, testAgentID, dto.RecordCalculationRequest{
		FormDataID:  created.Quote.LatestFormData.FormDataID,
		Calculation: bindingCalculation("1000"),
	})
	s.Require().NoError(err)

	view, err := s.service.PerformWorkflowAction(s.ctx, testTenantID, quoteID, testAgentID, domain.ActionReviewReferral)
	s.Require().NoError(err)
	s.Equal(domain.StateReview, view.Quote.WorkflowState)

	_, err = s.service.PerformWorkflowAction(s.ctx, testTenantID, quoteID, testAgentID, domain.ActionReviewApproval)
	s.ErrorIs(err, apperrors.ErrForbidden)

	view, err = s.service.PerformWorkflowAction(s.ctx, testTenantID, quoteID, testUWID, domain.ActionReviewApproval)
	s.Require().NoError(err)
	s.Equal(domain.StateApproved, view.Quote.WorkflowState)
}

func (s *QuoteServiceTestSuite) TestPerformWorkflowAction_Errors() {
	created := s.createQuote()
	quoteID := created.Quote.QuoteID

	testCases := []struct {
		name     string
		quoteID  string
		action   domain.QuoteAction
		wantKind error
		wantCode string
	}{
		{"Unknown quote", "missing", domain.ActionAutoApproval, apperrors.ErrNotFound, domain.ErrCodeQuoteNotFound},
		{"Undefined action", quoteID, domain.QuoteAction("Teleport"), apperrors.ErrValidation, domain.ErrCodeWorkflowActionNotDefined},
		{"Not permitted from Nascent", quoteID, domain.ActionAutoApproval, apperrors.ErrConflict, domain.ErrCodeWorkflowActionNotPermitted},
		{"Policy action needs a transaction", quoteID, domain.ActionPolicy, apperrors.ErrValidation, domain.ErrCodeWorkflowUsePolicyCommand},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.service.PerformWorkflowAction(s.ctx, testTenantID, tc.quoteID, testAgentID, tc.action)
			s.ErrorIs(err, tc.wantKind)
			s.True(apperrors.HasCode(err, tc.wantCode), "got %v", err)
		})
	}
}

func (s *QuoteServiceTestSuite) TestCreateQuoteVersion_SnapshotsData() {
	created := s.createQuote()

	v1, err := s.service.CreateQuoteVersion(s.ctx, testTenantID, created.Quote.QuoteID, testAgentID)
	s.Require().NoError(err)
	v2, err := s.service.CreateQuoteVersion(s.ctx, testTenantID, created.Quote.QuoteID, testAgentID)
	s.Require().NoError(err)

	s.Equal(1, v1.VersionNumber)
	s.Equal(2, v2.VersionNumber)
	s.JSONEq(testInitialForm, string(v2.FormData.Data))
}

func (s *QuoteServiceTestSuite) TestListQuotesAndHistory() {
	created := s.createQuote()
	s.createQuote()

	quotes, _, err := s.service.ListQuotes(s.ctx, testTenantID, testAgentID, dto.ListQuotesParams{WorkflowState: string(domain.StateNascent)})
	s.Require().NoError(err)
	s.Len(quotes, 2)

	_, _, err = s.service.ListQuotes(s.ctx, testTenantID, testAgentID, dto.ListQuotesParams{WorkflowState: "Limbo"})
	s.ErrorIs(err, apperrors.ErrValidation)

	events, err := s.service.GetQuoteHistory(s.ctx, testTenantID, created.Quote.QuoteID, testAgentID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("QuoteInitialized", events[0].EventType())
	s.Equal("QuoteNumberAssigned", events[1].EventType())

	_, err = s.service.GetQuote(s.ctx, testTenantID, created.Quote.QuoteID, testOutsiderID)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func TestQuoteService_LocksAndMirrorsWrites(t *testing.T) {
	repo := newMemoryQuoteRepo()
	locker := new(MockLocker)
	mirror := new(MockMirror)
	svc := services.NewQuoteService(repo, staticWorkflows{}, &sequenceNumbers{},
		services.WithAggregateLocker(locker),
		services.WithReadModelMirror(mirror))
	ctx := context.Background()

	mirror.On("MirrorQuotes", mock.Anything, mock.AnythingOfType("[]domain.QuoteReadModel")).Return(errors.New("dynamo unavailable"))
	view, err := svc.CreateQuote(ctx, testTenantID, testAgentID, dto.CreateQuoteRequest{
		ProductID: testProductID, FormData: json.RawMessage(testInitialForm),
		InceptionDate: date(2026, 2, 1), ExpiryDate: date(2027, 2, 1),
	})
	require.NoError(t, err, "a failing mirror must not fail the command")

	key := "quote-aggregate:" + testTenantID + ":" + view.Aggregate.AggregateID
	locker.On("Acquire", mock.Anything, key).Return(nil).Once()
	locker.On("Acquire", mock.Anything, mock.MatchedBy(func(k string) bool { return strings.HasPrefix(k, "quote-aggregate:") })).
		Return(apperrors.ErrLockNotAcquired)

	_, err = svc.UpdateFormData(ctx, testTenantID, view.Quote.QuoteID, testAgentID, dto.UpdateFormDataRequest{FormData: json.RawMessage(`{}`)})
	require.NoError(t, err)

	_, err = svc.UpdateFormData(ctx, testTenantID, view.Quote.QuoteID, testAgentID, dto.UpdateFormDataRequest{FormData: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, apperrors.ErrLockNotAcquired)

	locker.AssertNumberOfCalls(t, "Acquire", 2)
	assert.Equal(t, []string{key}, locker.Released())
	mirror.AssertNumberOfCalls(t, "MirrorQuotes", 2)
}
