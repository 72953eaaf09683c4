package domain

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"gopkg.in/yaml.v3"
)

// QuoteState is the workflow state of a quote.
type QuoteState string

const (
	StateNascent     QuoteState = "Nascent"
	StateIncomplete  QuoteState = "Incomplete"
	StateReview      QuoteState = "Review"
	StateEndorsement QuoteState = "Endorsement"
	StateApproved    QuoteState = "Approved"
	StateDeclined    QuoteState = "Declined"
	StateComplete    QuoteState = "Complete"
)

// QuoteAction names an operation that may move a quote between workflow states.
type QuoteAction string

const (
	ActionActualise           QuoteAction = "Actualise"
	ActionCalculation         QuoteAction = "Calculation"
	ActionFormUpdate          QuoteAction = "FormUpdate"
	ActionVersion             QuoteAction = "Version"
	ActionAutoApproval        QuoteAction = "AutoApproval"
	ActionReviewReferral      QuoteAction = "ReviewReferral"
	ActionReviewApproval      QuoteAction = "ReviewApproval"
	ActionEndorsementReferral QuoteAction = "EndorsementReferral"
	ActionEndorsementApproval QuoteAction = "EndorsementApproval"
	ActionReturn              QuoteAction = "Return"
	ActionDecline             QuoteAction = "Decline"
	ActionPolicy              QuoteAction = "Policy"
)

// WorkflowOperation is one row of the transition table.
type WorkflowOperation struct {
	Action         QuoteAction  `json:"action" yaml:"action"`
	RequiredStates []QuoteState `json:"requiredStates" yaml:"requiredStates"`
	ResultingState QuoteState   `json:"resultingState" yaml:"resultingState"`
}

// dataOperationBlockedStates are the states in which calculation, form updates and
// versioning are no longer allowed.
var dataOperationBlockedStates = []QuoteState{StateComplete, StateDeclined}

// QuoteWorkflow is a table driven state machine for the quote lifecycle.
type QuoteWorkflow struct {
	Operations []WorkflowOperation `json:"operations" yaml:"operations"`
}

// DefaultQuoteWorkflow returns the transition table used when a product does not define its own.
func DefaultQuoteWorkflow() *QuoteWorkflow {
	return &QuoteWorkflow{
		Operations: []WorkflowOperation{
			{Action: ActionActualise, RequiredStates: []QuoteState{StateNascent}, ResultingState: StateIncomplete},
			{Action: ActionCalculation},
			{Action: ActionFormUpdate},
			{Action: ActionVersion},
			{Action: ActionAutoApproval, RequiredStates: []QuoteState{StateIncomplete}, ResultingState: StateApproved},
			{Action: ActionReviewReferral, RequiredStates: []QuoteState{StateIncomplete}, ResultingState: StateReview},
			{Action: ActionReviewApproval, RequiredStates: []QuoteState{StateReview}, ResultingState: StateApproved},
			{Action: ActionEndorsementReferral, RequiredStates: []QuoteState{StateIncomplete, StateReview}, ResultingState: StateEndorsement},
			{Action: ActionEndorsementApproval, RequiredStates: []QuoteState{StateEndorsement}, ResultingState: StateApproved},
			{Action: ActionReturn, RequiredStates: []QuoteState{StateReview, StateEndorsement, StateApproved}, ResultingState: StateIncomplete},
			{Action: ActionDecline, RequiredStates: []QuoteState{StateIncomplete, StateReview, StateEndorsement}, ResultingState: StateDeclined},
			{Action: ActionPolicy, RequiredStates: []QuoteState{StateApproved}, ResultingState: StateComplete},
		},
	}
}

// LoadQuoteWorkflowFile reads a YAML transition table.
func LoadQuoteWorkflowFile(path string) (*QuoteWorkflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}
	return ParseQuoteWorkflow(raw)
}

// ParseQuoteWorkflow decodes and validates a YAML transition table.
func ParseQuoteWorkflow(raw []byte) (*QuoteWorkflow, error) {
	var wf QuoteWorkflow
	if err := yaml.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("%w: invalid workflow definition: %v", apperrors.ErrValidation, err)
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

// Validate checks that the table has no duplicate actions and only known states.
func (w *QuoteWorkflow) Validate() error {
	if len(w.Operations) == 0 {
		return fmt.Errorf("%w: workflow defines no operations", apperrors.ErrValidation)
	}
	seen := make(map[QuoteAction]bool, len(w.Operations))
	for _, op := range w.Operations {
		if op.Action == "" {
			return fmt.Errorf("%w: workflow operation without action", apperrors.ErrValidation)
		}
		if seen[op.Action] {
			return fmt.Errorf("%w: workflow action %s defined more than once", apperrors.ErrValidation, op.Action)
		}
		seen[op.Action] = true
		for _, s := range op.RequiredStates {
			if !s.IsKnown() {
				return fmt.Errorf("%w: workflow action %s requires unknown state %q", apperrors.ErrValidation, op.Action, s)
			}
		}
		if op.ResultingState != "" && !op.ResultingState.IsKnown() {
			return fmt.Errorf("%w: workflow action %s results in unknown state %q", apperrors.ErrValidation, op.Action, op.ResultingState)
		}
	}
	return nil
}

// IsKnown reports whether s is one of the defined quote states.
func (s QuoteState) IsKnown() bool {
	switch s {
	case StateNascent, StateIncomplete, StateReview, StateEndorsement, StateApproved, StateDeclined, StateComplete:
		return true
	}
	return false
}

// IsTerminal reports whether no further data changes are allowed in this state.
func (s QuoteState) IsTerminal() bool {
	return slices.Contains(dataOperationBlockedStates, s)
}

// IsKnown reports whether a is one of the defined quote actions.
func (a QuoteAction) IsKnown() bool {
	switch a {
	case ActionActualise, ActionCalculation, ActionFormUpdate, ActionVersion, ActionAutoApproval,
		ActionReviewReferral, ActionReviewApproval, ActionEndorsementReferral, ActionEndorsementApproval,
		ActionReturn, ActionDecline, ActionPolicy:
		return true
	}
	return false
}

// IsDataOperation reports whether the action only changes quote data, not the workflow step.
func (a QuoteAction) IsDataOperation() bool {
	return a == ActionCalculation || a == ActionFormUpdate || a == ActionVersion
}

// GetOperation returns the operation for the action, or a domain error naming the defined actions.
func (w *QuoteWorkflow) GetOperation(action QuoteAction) (WorkflowOperation, error) {
	for _, op := range w.Operations {
		if op.Action == action {
			return op, nil
		}
	}
	defined := w.DefinedActions()
	return WorkflowOperation{}, apperrors.NewDomainError(
		apperrors.ErrValidation,
		ErrCodeWorkflowActionNotDefined,
		fmt.Sprintf("the quote workflow action %q is not defined; defined actions are: %s", action, strings.Join(defined, ", ")),
		map[string]any{"action": string(action), "definedActions": defined},
	)
}

// DefinedActions lists the action names in the table, sorted.
func (w *QuoteWorkflow) DefinedActions() []string {
	names := make([]string, 0, len(w.Operations))
	for _, op := range w.Operations {
		names = append(names, string(op.Action))
	}
	sort.Strings(names)
	return names
}

// IsActionPermittedByState reports whether the action may be performed from the current state.
func (w *QuoteWorkflow) IsActionPermittedByState(action QuoteAction, current QuoteState) (bool, error) {
	if action.IsDataOperation() {
		return !current.IsTerminal(), nil
	}
	op, err := w.GetOperation(action)
	if err != nil {
		return false, err
	}
	if len(op.RequiredStates) == 0 || current == StateComplete {
		return true, nil
	}
	return slices.Contains(op.RequiredStates, current), nil
}

// GetResultingState returns the state after performing action from current.
// The current state is returned unchanged when no transition matches.
func (w *QuoteWorkflow) GetResultingState(action QuoteAction, current QuoteState) QuoteState {
	for _, op := range w.Operations {
		if op.Action != action {
			continue
		}
		if op.ResultingState == "" {
			return current
		}
		if len(op.RequiredStates) == 0 || slices.Contains(op.RequiredStates, current) {
			return op.ResultingState
		}
		return current
	}
	return current
}
