package domain_test

import (
	"testing"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteWorkflow_Transitions(t *testing.T) {
	wf := domain.DefaultQuoteWorkflow()
	tests := []struct {
		name      string
		action    domain.QuoteAction
		from      domain.QuoteState
		permitted bool
		to        domain.QuoteState
	}{
		{"actualise nascent quote", domain.ActionActualise, domain.StateNascent, true, domain.StateIncomplete},
		{"auto approve incomplete quote", domain.ActionAutoApproval, domain.StateIncomplete, true, domain.StateApproved},
		{"refer incomplete quote for review", domain.ActionReviewReferral, domain.StateIncomplete, true, domain.StateReview},
		{"approve quote under review", domain.ActionReviewApproval, domain.StateReview, true, domain.StateApproved},
		{"cannot approve review of incomplete quote", domain.ActionReviewApproval, domain.StateIncomplete, false, domain.StateIncomplete},
		{"endorse quote under review", domain.ActionEndorsementReferral, domain.StateReview, true, domain.StateEndorsement},
		{"return approved quote", domain.ActionReturn, domain.StateApproved, true, domain.StateIncomplete},
		{"decline endorsement", domain.ActionDecline, domain.StateEndorsement, true, domain.StateDeclined},
		{"cannot decline approved quote", domain.ActionDecline, domain.StateApproved, false, domain.StateApproved},
		{"bind approved quote", domain.ActionPolicy, domain.StateApproved, true, domain.StateComplete},
		{"complete quote permits any operation", domain.ActionReviewReferral, domain.StateComplete, true, domain.StateComplete},
		{"calculation keeps state", domain.ActionCalculation, domain.StateReview, true, domain.StateReview},
		{"no calculation once declined", domain.ActionCalculation, domain.StateDeclined, false, domain.StateDeclined},
		{"no form update once complete", domain.ActionFormUpdate, domain.StateComplete, false, domain.StateComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			permitted, err := wf.IsActionPermittedByState(tt.action, tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.permitted, permitted)
			if permitted {
				assert.Equal(t, tt.to, wf.GetResultingState(tt.action, tt.from))
			}
		})
	}
}

func TestQuoteWorkflow_UndefinedAction(t *testing.T) {
	wf := &domain.QuoteWorkflow{Operations: []domain.WorkflowOperation{
		{Action: domain.ActionPolicy, RequiredStates: []domain.QuoteState{domain.StateApproved}, ResultingState: domain.StateComplete},
		{Action: domain.ActionActualise, RequiredStates: []domain.QuoteState{domain.StateNascent}, ResultingState: domain.StateIncomplete},
	}}

	_, err := wf.IsActionPermittedByState(domain.ActionAutoApproval, domain.StateIncomplete)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeWorkflowActionNotDefined, de.Code)
	assert.Equal(t, []string{"Actualise", "Policy"}, de.Data["definedActions"])
}

func TestParseQuoteWorkflow(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid table",
			yaml: "operations:\n  - action: Actualise\n    requiredStates: [Nascent]\n    resultingState: Incomplete\n  - action: Calculation\n",
		},
		{name: "empty table", yaml: "operations: []", wantErr: true},
		{name: "duplicate action", yaml: "operations: [{action: Decline}, {action: Decline}]", wantErr: true},
		{name: "unknown state", yaml: "operations: [{action: Decline, requiredStates: [Limbo]}]", wantErr: true},
		{name: "not yaml", yaml: "operations: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := domain.ParseQuoteWorkflow([]byte(tt.yaml))
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Len(t, wf.Operations, 2)
		})
	}
}

func TestRequiredRoleForAction(t *testing.T) {
	assert.Equal(t, domain.RoleUnderwriter, domain.RequiredRoleForAction(domain.ActionReviewApproval))
	assert.Equal(t, domain.RoleUnderwriter, domain.RequiredRoleForAction(domain.ActionEndorsementApproval))
	assert.Equal(t, domain.RoleUnderwriter, domain.RequiredRoleForAction(domain.ActionDecline))
	assert.Equal(t, domain.RoleAgent, domain.RequiredRoleForAction(domain.ActionAutoApproval))
	assert.True(t, domain.RoleAdmin.Satisfies(domain.RoleUnderwriter))
	assert.False(t, domain.RoleRemoved.Satisfies(domain.RoleReadOnly))
}

func TestQuoteWorkflow_GetResultingStateWithoutTransition(t *testing.T) {
	wf := domain.DefaultQuoteWorkflow()
	sparse := &domain.QuoteWorkflow{Operations: []domain.WorkflowOperation{
		{Action: domain.ActionActualise, RequiredStates: []domain.QuoteState{domain.StateNascent}, ResultingState: domain.StateIncomplete},
	}}
	tests := []struct {
		name    string
		wf      *domain.QuoteWorkflow
		action  domain.QuoteAction
		current domain.QuoteState
	}{
		{"required state does not match", wf, domain.ActionReviewApproval, domain.StateIncomplete},
		{"declined quote cannot be returned", wf, domain.ActionReturn, domain.StateDeclined},
		{"action without a resulting state", wf, domain.ActionCalculation, domain.StateApproved},
		{"action missing from the table", sparse, domain.ActionAutoApproval, domain.StateIncomplete},
		{"unknown action", wf, domain.QuoteAction("Teleport"), domain.StateReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.current, tt.wf.GetResultingState(tt.action, tt.current))
		})
	}
}
