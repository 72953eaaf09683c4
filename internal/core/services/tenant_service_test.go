package services_test

import (
	"context"
	"testing"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/core/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock TenantRepository ---
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	args := m.Called(ctx, tenantID)
	var t *domain.Tenant
	if args.Get(0) != nil {
		t = args.Get(0).(*domain.Tenant)
	}
	return t, args.Error(1)
}

func (m *MockTenantRepository) ListTenantsByUserID(ctx context.Context, userID string, includeInactive bool) ([]domain.Tenant, error) {
	args := m.Called(ctx, userID, includeInactive)
	var ts []domain.Tenant
	if args.Get(0) != nil {
		ts = args.Get(0).([]domain.Tenant)
	}
	return ts, args.Error(1)
}

func (m *MockTenantRepository) SaveTenant(ctx context.Context, tenant domain.Tenant, admin domain.TenantMembership) error {
	args := m.Called(ctx, tenant, admin)
	return args.Error(0)
}

func (m *MockTenantRepository) UpdateTenantStatus(ctx context.Context, tenantID string, isActive bool, updatedBy string) error {
	args := m.Called(ctx, tenantID, isActive, updatedBy)
	return args.Error(0)
}

func (m *MockTenantRepository) UpsertMembership(ctx context.Context, membership domain.TenantMembership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockTenantRepository) FindMembership(ctx context.Context, userID, tenantID string) (*domain.TenantMembership, error) {
	args := m.Called(ctx, userID, tenantID)
	var tm *domain.TenantMembership
	if args.Get(0) != nil {
		tm = args.Get(0).(*domain.TenantMembership)
	}
	return tm, args.Error(1)
}

func (m *MockTenantRepository) ListMemberships(ctx context.Context, tenantID string) ([]domain.TenantMembership, error) {
	args := m.Called(ctx, tenantID)
	var ms []domain.TenantMembership
	if args.Get(0) != nil {
		ms = args.Get(0).([]domain.TenantMembership)
	}
	return ms, args.Error(1)
}

type TenantServiceTestSuite struct {
	suite.Suite
	repo    *MockTenantRepository
	service portssvc.TenantSvcFacade
	ctx     context.Context
}

func (s *TenantServiceTestSuite) SetupTest() {
	s.repo = new(MockTenantRepository)
	s.service = services.NewTenantService(s.repo)
	s.ctx = context.Background()
}

func TestTenantServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TenantServiceTestSuite))
}

func (s *TenantServiceTestSuite) member(userID string, role domain.TenantRole) {
	s.repo.On("FindMembership", s.ctx, userID, testTenantID).
		Return(&domain.TenantMembership{UserID: userID, TenantID: testTenantID, Role: role}, nil)
}

func (s *TenantServiceTestSuite) activeTenant(active bool) {
	s.repo.On("FindTenantByID", s.ctx, testTenantID).
		Return(&domain.Tenant{TenantID: testTenantID, IsActive: active}, nil)
}

func (s *TenantServiceTestSuite) TestCreateTenant_CreatorBecomesAdmin() {
	req := dto.CreateTenantRequest{Alias: "acme", Name: "Acme Insurance", CurrencyCode: "AUD"}
	s.repo.On("SaveTenant", s.ctx,
		mock.MatchedBy(func(t domain.Tenant) bool { return t.Alias == "acme" && t.IsActive && t.CreatedBy == testAdminID }),
		mock.MatchedBy(func(m domain.TenantMembership) bool { return m.UserID == testAdminID && m.Role == domain.RoleAdmin }),
	).Return(nil).Once()

	tenant, err := s.service.CreateTenant(s.ctx, req, testAdminID)

	s.Require().NoError(err)
	s.NotEmpty(tenant.TenantID)
	s.Equal("AUD", tenant.CurrencyCode)
	s.repo.AssertExpectations(s.T())
}

func (s *TenantServiceTestSuite) TestAuthorizeUserAction() {
	s.member(testAgentID, domain.RoleAgent)
	s.member(testOutsiderID, domain.RoleRemoved)
	s.repo.On("FindMembership", s.ctx, "stranger", testTenantID).Return(nil, apperrors.ErrNotFound)
	s.activeTenant(true)

	testCases := []struct {
		name    string
		userID  string
		role    domain.TenantRole
		wantErr error
	}{
		{"Agent may quote", testAgentID, domain.RoleAgent, nil},
		{"Agent may read", testAgentID, domain.RoleReadOnly, nil},
		{"Agent may not approve referrals", testAgentID, domain.RoleUnderwriter, apperrors.ErrForbidden},
		{"Removed member has no access", testOutsiderID, domain.RoleReadOnly, apperrors.ErrForbidden},
		{"Non member has no access", "stranger", domain.RoleReadOnly, apperrors.ErrForbidden},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := s.service.AuthorizeUserAction(s.ctx, tc.userID, testTenantID, tc.role)
			if tc.wantErr == nil {
				s.NoError(err)
				return
			}
			s.ErrorIs(err, tc.wantErr)
		})
	}
}

func (s *TenantServiceTestSuite) TestAuthorizeUserAction_InactiveTenant() {
	s.member(testAdminID, domain.RoleAdmin)
	s.activeTenant(false)

	err := s.service.AuthorizeUserAction(s.ctx, testAdminID, testTenantID, domain.RoleReadOnly)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *TenantServiceTestSuite) TestAddUserToTenant() {
	s.member(testAdminID, domain.RoleAdmin)
	s.member(testAgentID, domain.RoleAgent)
	s.activeTenant(true)
	s.repo.On("UpsertMembership", s.ctx, mock.MatchedBy(func(m domain.TenantMembership) bool {
		return m.UserID == testUWID && m.Role == domain.RoleUnderwriter
	})).Return(nil).Once()

	s.Require().NoError(s.service.AddUserToTenant(s.ctx, testAdminID, testUWID, testTenantID, domain.RoleUnderwriter))
	s.ErrorIs(s.service.AddUserToTenant(s.ctx, testAgentID, testUWID, testTenantID, domain.RoleAgent), apperrors.ErrForbidden)
	s.ErrorIs(s.service.AddUserToTenant(s.ctx, testAdminID, testUWID, testTenantID, domain.RoleRemoved), apperrors.ErrValidation)
	s.ErrorIs(s.service.AddUserToTenant(s.ctx, testAdminID, testUWID, testTenantID, "OWNER"), apperrors.ErrValidation)
	s.repo.AssertExpectations(s.T())
}

func (s *TenantServiceTestSuite) TestRemoveAndRoleChanges() {
	s.member(testAdminID, domain.RoleAdmin)
	s.member(testAgentID, domain.RoleAgent)
	s.activeTenant(true)
	s.repo.On("UpsertMembership", s.ctx, mock.MatchedBy(func(m domain.TenantMembership) bool {
		return m.UserID == testAgentID && m.Role == domain.RoleRemoved
	})).Return(nil).Once()
	s.repo.On("UpsertMembership", s.ctx, mock.MatchedBy(func(m domain.TenantMembership) bool {
		return m.UserID == testAgentID && m.Role == domain.RoleUnderwriter
	})).Return(nil).Once()

	s.ErrorIs(s.service.RemoveUserFromTenant(s.ctx, testAdminID, testAdminID, testTenantID), apperrors.ErrValidation)
	s.ErrorIs(s.service.UpdateUserTenantRole(s.ctx, testAdminID, testAdminID, testTenantID, domain.RoleAgent), apperrors.ErrValidation)
	s.Require().NoError(s.service.UpdateUserTenantRole(s.ctx, testAdminID, testAgentID, testTenantID, domain.RoleUnderwriter))
	s.Require().NoError(s.service.RemoveUserFromTenant(s.ctx, testAdminID, testAgentID, testTenantID))
	s.repo.AssertExpectations(s.T())
}

func (s *TenantServiceTestSuite) TestDeactivateTenant_RequiresAdmin() {
	s.member(testAdminID, domain.RoleAdmin)
	s.member(testAgentID, domain.RoleAgent)
	s.repo.On("UpdateTenantStatus", s.ctx, testTenantID, false, testAdminID).Return(nil).Once()

	s.ErrorIs(s.service.DeactivateTenant(s.ctx, testTenantID, testAgentID), apperrors.ErrForbidden)
	s.Require().NoError(s.service.DeactivateTenant(s.ctx, testTenantID, testAdminID))
	s.repo.AssertExpectations(s.T())
}
