package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Payment is an attempt to settle a quote's payable amount.
type Payment struct {
	PaymentID        string          `json:"paymentID"`
	QuoteID          string          `json:"quoteID"`
	Amount           decimal.Decimal `json:"amount"`
	CurrencyCode     string          `json:"currencyCode"`
	Succeeded        bool            `json:"succeeded"`
	GatewayReference string          `json:"gatewayReference,omitempty"`
	Reason           string          `json:"reason,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// QuoteAggregate is the event sourced root owning a policy and the quotes that lead to it.
// State only changes by recording events.
type QuoteAggregate struct {
	TenantID            string    `json:"tenantID"`
	AggregateID         string    `json:"aggregateID"`
	ProductID           string    `json:"productID"`
	Quotes              []*Quote  `json:"quotes"`
	Policy              *Policy   `json:"policy,omitempty"`
	Payments            []Payment `json:"payments"`
	PersistedEventCount int       `json:"persistedEventCount"`
	CreatedAt           time.Time `json:"createdAt"`
	LastModifiedAt      time.Time `json:"lastModifiedAt"`

	unsaved []EventEnvelope
}

// NewBusinessQuoteParams describes the first quote of a new aggregate.
type NewBusinessQuoteParams struct {
	TenantID      string
	AggregateID   string
	QuoteID       string
	ProductID     string
	FormData      FormData
	InceptionDate time.Time
	ExpiryDate    time.Time
}

// StartNewBusinessQuote creates an aggregate with a nascent new business quote.
func StartNewBusinessQuote(p NewBusinessQuoteParams, userID string, at time.Time) (*QuoteAggregate, error) {
	if p.TenantID == "" || p.AggregateID == "" || p.QuoteID == "" || p.ProductID == "" {
		return nil, fmt.Errorf("%w: tenant, aggregate, quote and product ids are required", apperrors.ErrValidation)
	}
	if !p.ExpiryDate.After(p.InceptionDate) {
		return nil, datesInvalid("the expiry date must be after the inception date", p.InceptionDate, p.ExpiryDate)
	}
	a := &QuoteAggregate{TenantID: p.TenantID, AggregateID: p.AggregateID}
	inception, expiry := p.InceptionDate, p.ExpiryDate
	err := a.record(QuoteInitializedEvent{
		QuoteID:       p.QuoteID,
		QuoteType:     QuoteTypeNewBusiness,
		ProductID:     p.ProductID,
		FormData:      p.FormData,
		EffectiveDate: &inception,
		ExpiryDate:    &expiry,
		InitialState:  StateNascent,
	}, userID, at)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// PolicyQuoteParams describes an adjustment, renewal or cancellation quote.
// EffectiveDate is used by adjustments and cancellations, ExpiryDate by renewals.
type PolicyQuoteParams struct {
	QuoteID       string
	Type          QuoteType
	FormData      *FormData
	EffectiveDate *time.Time
	ExpiryDate    *time.Time
}

// StartPolicyQuote opens a quote that will change the issued policy.
func (a *QuoteAggregate) StartPolicyQuote(p PolicyQuoteParams, userID string, at time.Time) (*Quote, error) {
	if p.Type == QuoteTypeNewBusiness || !p.Type.IsValid() {
		return nil, fmt.Errorf("%w: quote type %q cannot be started against a policy", apperrors.ErrValidation, p.Type)
	}
	if a.findQuote(p.QuoteID) != nil {
		return nil, apperrors.NewDomainError(apperrors.ErrDuplicate, ErrCodeQuoteAlreadyExists,
			fmt.Sprintf("quote %s already exists", p.QuoteID), map[string]any{"quoteID": p.QuoteID})
	}
	if err := a.requireActivePolicy(); err != nil {
		return nil, err
	}
	for _, q := range a.Quotes {
		if q.Type != QuoteTypeNewBusiness && q.IsOpen() {
			return nil, apperrors.NewDomainError(apperrors.ErrConflict, ErrCodeTransactionQuoteInProgress,
				fmt.Sprintf("quote %s for a %s of this policy is still in progress", q.QuoteID, q.Type),
				map[string]any{"quoteID": q.QuoteID, "quoteType": string(q.Type)})
		}
	}

	evt := QuoteInitializedEvent{QuoteID: p.QuoteID, QuoteType: p.Type, ProductID: a.ProductID, InitialState: StateIncomplete}
	switch p.Type {
	case QuoteTypeAdjustment, QuoteTypeCancellation:
		if p.EffectiveDate == nil {
			return nil, fmt.Errorf("%w: an effective date is required for a %s", apperrors.ErrValidation, p.Type)
		}
		effective := *p.EffectiveDate
		evt.EffectiveDate = &effective
	case QuoteTypeRenewal:
		if p.ExpiryDate == nil {
			return nil, fmt.Errorf("%w: a new expiry date is required for a renewal", apperrors.ErrValidation)
		}
		if !p.ExpiryDate.After(a.Policy.ExpiryDate) {
			return nil, datesInvalid("the renewed expiry date must be after the current expiry date", a.Policy.ExpiryDate, *p.ExpiryDate)
		}
		effective, expiry := a.Policy.ExpiryDate, *p.ExpiryDate
		evt.EffectiveDate = &effective
		evt.ExpiryDate = &expiry
	}

	if p.FormData != nil {
		evt.FormData = p.FormData.Clone()
	} else {
		latest := a.Policy.LatestTransaction()
		evt.FormData = latest.FormData.Clone()
	}

	if err := a.record(evt, userID, at); err != nil {
		return nil, err
	}
	return a.findQuote(p.QuoteID), nil
}

// UpdateFormData stores a new revision of the quote's form data.
// A nascent quote is actualised by its first form update.
func (a *QuoteAggregate) UpdateFormData(wf *QuoteWorkflow, quoteID string, formData FormData, userID string, at time.Time) error {
	q, err := a.quoteForAction(wf, quoteID, ActionFormUpdate)
	if err != nil {
		return err
	}
	if !json.Valid(formData.Data) {
		return fmt.Errorf("%w: form data is not valid JSON", apperrors.ErrValidation)
	}
	if err := a.actualiseIfNascent(wf, q, userID, at); err != nil {
		return err
	}
	return a.record(FormDataUpdatedEvent{QuoteID: quoteID, FormData: formData.Clone()}, userID, at)
}

// RecordCalculationResult stores a calculation made from the given form data revision.
func (a *QuoteAggregate) RecordCalculationResult(wf *QuoteWorkflow, quoteID, calculationResultID, formDataID string, raw json.RawMessage, userID string, at time.Time) (*CalculationResult, error) {
	q, err := a.quoteForAction(wf, quoteID, ActionCalculation)
	if err != nil {
		return nil, err
	}
	if q.LatestFormData == nil {
		return nil, apperrors.NewDomainError(apperrors.ErrInvariantViolation, ErrCodeQuoteFormDataMissing,
			"a calculation requires form data", map[string]any{"quoteID": quoteID})
	}
	if formDataID != q.LatestFormData.FormDataID {
		return nil, apperrors.NewDomainError(apperrors.ErrConflict, ErrCodeCalculationResultStale,
			"the calculation was not made from the latest form data",
			map[string]any{"formDataID": formDataID, "latestFormDataID": q.LatestFormData.FormDataID})
	}
	if _, err := NewCalculationResult(calculationResultID, formDataID, raw, at); err != nil {
		return nil, err
	}
	if err := a.actualiseIfNascent(wf, q, userID, at); err != nil {
		return nil, err
	}
	err = a.record(CalculationResultCreatedEvent{
		QuoteID:             quoteID,
		CalculationResultID: calculationResultID,
		FormDataID:          formDataID,
		JSON:                raw,
	}, userID, at)
	if err != nil {
		return nil, err
	}
	return q.LatestCalculationResult, nil
}

// ApplyMerchantFees patches the merchant fees of the latest calculation result.
// Finalized calculations and quotes in a terminal state are rejected.
func (a *QuoteAggregate) ApplyMerchantFees(quoteID string, fees, feesGST decimal.Decimal, userID string, at time.Time) error {
	q, err := a.requireQuote(quoteID)
	if err != nil {
		return err
	}
	if q.LatestCalculationResult == nil {
		return apperrors.NewDomainError(apperrors.ErrInvariantViolation, ErrCodeCalculationResultMissing,
			"the quote has no calculation result", map[string]any{"quoteID": quoteID})
	}
	patched, err := q.LatestCalculationResult.WithMerchantFees(fees, feesGST)
	if err != nil {
		return err
	}
	if q.WorkflowState.IsTerminal() {
		return apperrors.NewDomainError(apperrors.ErrConflict, ErrCodeQuoteStateTerminal,
			fmt.Sprintf("merchant fees cannot be applied while the quote is %s", q.WorkflowState),
			map[string]any{"quoteID": quoteID, "state": string(q.WorkflowState)})
	}
	return a.record(MerchantFeesAppliedEvent{
		QuoteID:             quoteID,
		CalculationResultID: q.LatestCalculationResult.CalculationResultID,
		MerchantFees:        fees,
		MerchantFeesGST:     feesGST,
		JSON:                patched,
	}, userID, at)
}

// AssignQuoteNumber gives the quote its customer facing number.
func (a *QuoteAggregate) AssignQuoteNumber(quoteID, number, userID string, at time.Time) error {
	q, err := a.requireQuote(quoteID)
	if err != nil {
		return err
	}
	if q.QuoteNumber != nil {
		return apperrors.NewDomainError(apperrors.ErrDuplicate, ErrCodeQuoteNumberAlreadyAssigned,
			fmt.Sprintf("quote %s already has number %s", quoteID, *q.QuoteNumber),
			map[string]any{"quoteID": quoteID, "quoteNumber": *q.QuoteNumber})
	}
	return a.record(QuoteNumberAssignedEvent{QuoteID: quoteID, QuoteNumber: number}, userID, at)
}

// CreateQuoteVersion snapshots the quote's current data.
func (a *QuoteAggregate) CreateQuoteVersion(wf *QuoteWorkflow, quoteID, versionID, userID string, at time.Time) (*QuoteVersion, error) {
	q, err := a.quoteForAction(wf, quoteID, ActionVersion)
	if err != nil {
		return nil, err
	}
	if q.LatestFormData == nil {
		return nil, apperrors.NewDomainError(apperrors.ErrInvariantViolation, ErrCodeQuoteFormDataMissing,
			"a quote version requires form data", map[string]any{"quoteID": quoteID})
	}
	number := len(q.Versions) + 1
	if err := a.record(QuoteVersionCreatedEvent{QuoteID: quoteID, QuoteVersionID: versionID, VersionNumber: number}, userID, at); err != nil {
		return nil, err
	}
	return q.FindVersion(number), nil
}

// PerformWorkflowAction moves the quote through the workflow.
// The Policy action is only reachable through CompletePolicyTransaction.
func (a *QuoteAggregate) PerformWorkflowAction(wf *QuoteWorkflow, quoteID string, action QuoteAction, userID string, at time.Time) (QuoteState, error) {
	if action == ActionPolicy {
		return "", apperrors.NewDomainError(apperrors.ErrValidation, ErrCodeWorkflowUsePolicyCommand,
			"the Policy action completes a policy transaction and cannot be performed directly", nil)
	}
	if _, err := wf.GetOperation(action); err != nil {
		return "", err
	}
	q, err := a.quoteForAction(wf, quoteID, action)
	if err != nil {
		return "", err
	}
	resulting := wf.GetResultingState(action, q.WorkflowState)
	if err := a.record(QuoteStateChangedEvent{
		QuoteID:        quoteID,
		Action:         action,
		OriginalState:  q.WorkflowState,
		ResultingState: resulting,
	}, userID, at); err != nil {
		return "", err
	}
	return resulting, nil
}

// CompletePolicyTransaction binds the quote: it issues, adjusts, renews or cancels the policy,
// finalizes the calculation result and completes the quote.
// policyNumber is only used for new business.
func (a *QuoteAggregate) CompletePolicyTransaction(wf *QuoteWorkflow, quoteID, policyTransactionID, policyNumber, userID string, at time.Time) (*PolicyTransaction, error) {
	q, err := a.requireQuote(quoteID)
	if err != nil {
		return nil, err
	}
	if q.PolicyTransactionID != nil {
		return nil, apperrors.NewDomainError(apperrors.ErrConflict, ErrCodeTransactionAlreadyCreated,
			fmt.Sprintf("quote %s already completed policy transaction %s", quoteID, *q.PolicyTransactionID),
			map[string]any{"quoteID": quoteID, "policyTransactionID": *q.PolicyTransactionID})
	}
	permitted, err := wf.IsActionPermittedByState(ActionPolicy, q.WorkflowState)
	if err != nil {
		return nil, err
	}
	if !permitted {
		return nil, notPermitted(ActionPolicy, q)
	}
	if problem := q.calculationProblem(); problem != "" {
		return nil, apperrors.NewDomainError(apperrors.ErrInvariantViolation, problem,
			"the quote does not have a bindable calculation result calculated from its latest form data",
			map[string]any{"quoteID": quoteID})
	}

	base := PolicyTransactionEvent{QuoteID: quoteID, PolicyTransactionID: policyTransactionID}
	var evt DomainEvent
	switch q.Type {
	case QuoteTypeNewBusiness:
		if a.Policy != nil {
			return nil, apperrors.NewDomainError(apperrors.ErrConflict, ErrCodePolicyAlreadyIssued,
				fmt.Sprintf("policy %s has already been issued", a.Policy.PolicyNumber), nil)
		}
		if policyNumber == "" {
			return nil, fmt.Errorf("%w: a policy number is required to issue a policy", apperrors.ErrValidation)
		}
		base.EffectiveDate, base.PeriodStart, base.PeriodEnd = *q.EffectiveDate, *q.EffectiveDate, *q.ExpiryDate
		evt = &PolicyIssuedEvent{PolicyID: a.AggregateID, PolicyNumber: policyNumber}
	case QuoteTypeAdjustment:
		if err := a.requireActivePolicy(); err != nil {
			return nil, err
		}
		if a.Policy.IsExpired(at) {
			return nil, apperrors.NewDomainError(apperrors.ErrInvariantViolation, ErrCodeAdjustmentPolicyExpired,
				fmt.Sprintf("the policy cannot be adjusted because it expired on %s", a.Policy.ExpiryDate.Format(time.RFC3339)),
				map[string]any{"policyNumber": a.Policy.PolicyNumber, "expiryDate": a.Policy.ExpiryDate})
		}
		start := a.Policy.CurrentPeriodStart()
		if q.EffectiveDate.Before(start) || !q.EffectiveDate.Before(a.Policy.ExpiryDate) {
			return nil, outsidePeriod(*q.EffectiveDate, start, a.Policy.ExpiryDate)
		}
		base.EffectiveDate, base.PeriodStart, base.PeriodEnd = *q.EffectiveDate, start, a.Policy.ExpiryDate
		evt = &PolicyAdjustedEvent{}
	case QuoteTypeRenewal:
		if err := a.requireActivePolicy(); err != nil {
			return nil, err
		}
		if !q.ExpiryDate.After(a.Policy.ExpiryDate) {
			return nil, datesInvalid("the renewed expiry date must be after the current expiry date", a.Policy.ExpiryDate, *q.ExpiryDate)
		}
		base.EffectiveDate, base.PeriodStart, base.PeriodEnd = a.Policy.ExpiryDate, a.Policy.ExpiryDate, *q.ExpiryDate
		evt = &PolicyRenewedEvent{}
	case QuoteTypeCancellation:
		if err := a.requireActivePolicy(); err != nil {
			return nil, err
		}
		if a.Policy.IsExpired(at) {
			return nil, apperrors.NewDomainError(apperrors.ErrInvariantViolation, ErrCodeCancellationPolicyExpired,
				fmt.Sprintf("cannot cancel policy %s because the policy has already expired", a.Policy.PolicyNumber),
				map[string]any{"policyNumber": a.Policy.PolicyNumber, "expiryDate": a.Policy.ExpiryDate})
		}
		start := a.Policy.CurrentPeriodStart()
		if q.EffectiveDate.Before(start) || q.EffectiveDate.After(a.Policy.ExpiryDate) {
			return nil, outsidePeriod(*q.EffectiveDate, start, a.Policy.ExpiryDate)
		}
		base.EffectiveDate, base.PeriodStart, base.PeriodEnd = *q.EffectiveDate, start, a.Policy.ExpiryDate
		evt = &PolicyCancelledEvent{}
	default:
		return nil, fmt.Errorf("%w: unknown quote type %q", apperrors.ErrValidation, q.Type)
	}

	base.CreatedTicks = a.nextTransactionTicks(at)
	candidate := PolicyTransaction{
		PolicyTransactionID:    policyTransactionID,
		QuoteID:                quoteID,
		Type:                   q.Type,
		EffectiveDate:          base.EffectiveDate,
		PeriodStart:            base.PeriodStart,
		PeriodEnd:              base.PeriodEnd,
		CreatedTicksSinceEpoch: base.CreatedTicks,
		CalculationResult:      q.LatestCalculationResult,
	}
	var history []PolicyTransaction
	if a.Policy != nil {
		history = OrderedTransactions(a.Policy.Transactions)
	}
	payable, err := ProRataCalculator{}.Payable(append(history, candidate))
	if err != nil {
		return nil, err
	}
	base.Payable = payable

	switch e := evt.(type) {
	case *PolicyIssuedEvent:
		e.PolicyTransactionEvent = base
		err = a.record(*e, userID, at)
	case *PolicyAdjustedEvent:
		e.PolicyTransactionEvent = base
		err = a.record(*e, userID, at)
	case *PolicyRenewedEvent:
		e.PolicyTransactionEvent = base
		err = a.record(*e, userID, at)
	case *PolicyCancelledEvent:
		e.PolicyTransactionEvent = base
		err = a.record(*e, userID, at)
	}
	if err != nil {
		return nil, err
	}

	original := q.WorkflowState
	if err := a.record(QuoteStateChangedEvent{
		QuoteID:        quoteID,
		Action:         ActionPolicy,
		OriginalState:  original,
		ResultingState: wf.GetResultingState(ActionPolicy, original),
	}, userID, at); err != nil {
		return nil, err
	}
	return a.Policy.FindTransaction(policyTransactionID), nil
}

// PatchPolicyData applies the patch to every data holder in scope. Rules are checked and
// patched calculations parsed on all holders before anything changes.
func (a *QuoteAggregate) PatchPolicyData(cmd PolicyDataPatchCommand, userID string, at time.Time) (*PolicyDataPatchedEvent, error) {
	base := cmd.Base()
	if err := base.Validate(); err != nil {
		return nil, err
	}
	var targets []PolicyDataPatchTarget
	add := func(t PolicyDataPatchTarget, holder PatchDataHolder, name string) error {
		formData, calc, err := planPatch(cmd, holder, name)
		if err != nil {
			return err
		}
		t.FormData, t.CalculationResult = formData, calc
		if t.FormData != nil || t.CalculationResult != nil {
			targets = append(targets, t)
		}
		return nil
	}

	for _, q := range a.Quotes {
		if base.Scope.ApplicableToQuote(q) && q.LatestFormData != nil {
			if err := add(PolicyDataPatchTarget{Kind: PatchTargetQuote, QuoteID: q.QuoteID},
				holderOf(q.LatestFormData, q.LatestCalculationResult), "quote "+q.QuoteID); err != nil {
				return nil, err
			}
		}
		for i := range q.Versions {
			v := &q.Versions[i]
			if !base.Scope.ApplicableToQuoteVersion(q, v) {
				continue
			}
			name := fmt.Sprintf("quote %s version %d", q.QuoteID, v.VersionNumber)
			if err := add(PolicyDataPatchTarget{Kind: PatchTargetQuoteVersion, QuoteID: q.QuoteID, VersionNumber: v.VersionNumber},
				holderOf(&v.FormData, v.CalculationResult), name); err != nil {
				return nil, err
			}
		}
	}
	if a.Policy != nil {
		for i := range a.Policy.Transactions {
			tx := &a.Policy.Transactions[i]
			if !base.Scope.ApplicableToPolicyTransaction(tx) {
				continue
			}
			if err := add(PolicyDataPatchTarget{Kind: PatchTargetPolicyTransaction, PolicyTransactionID: tx.PolicyTransactionID},
				holderOf(&tx.FormData, tx.CalculationResult), "policy transaction "+tx.PolicyTransactionID); err != nil {
				return nil, err
			}
		}
	}

	if len(targets) == 0 {
		return nil, apperrors.NewDomainError(apperrors.ErrNotFound, ErrCodePatchNoTargets,
			"no data in this aggregate matches the patch scope",
			map[string]any{"scope": string(base.Scope.Type), "entityID": base.Scope.EntityID})
	}
	evt := PolicyDataPatchedEvent{PatchID: base.PatchID, Scope: base.Scope, Targets: targets}
	if err := a.record(evt, userID, at); err != nil {
		return nil, err
	}
	return &evt, nil
}

// RecordPayment stores the outcome of a payment attempt.
func (a *QuoteAggregate) RecordPayment(p Payment, userID string, at time.Time) error {
	if _, err := a.requireQuote(p.QuoteID); err != nil {
		return err
	}
	if err := a.RequireUnpaid(p.QuoteID); err != nil {
		return err
	}
	if !p.Amount.IsPositive() {
		return apperrors.NewDomainError(apperrors.ErrValidation, ErrCodePaymentAmountInvalid,
			"a payment amount must be positive", map[string]any{"amount": p.Amount.String()})
	}
	if p.Succeeded {
		return a.record(PaymentMadeEvent{
			QuoteID: p.QuoteID, PaymentID: p.PaymentID, Amount: p.Amount,
			CurrencyCode: p.CurrencyCode, GatewayReference: p.GatewayReference,
		}, userID, at)
	}
	return a.record(PaymentFailedEvent{
		QuoteID: p.QuoteID, PaymentID: p.PaymentID, Amount: p.Amount,
		CurrencyCode: p.CurrencyCode, GatewayReference: p.GatewayReference, Reason: p.Reason,
	}, userID, at)
}

// RequireUnpaid fails when the quote already has a successful payment.
func (a *QuoteAggregate) RequireUnpaid(quoteID string) error {
	for _, p := range a.Payments {
		if p.QuoteID == quoteID && p.Succeeded {
			return apperrors.NewDomainError(apperrors.ErrConflict, ErrCodePaymentQuoteAlreadyPaid,
				fmt.Sprintf("quote %s has already been paid", quoteID),
				map[string]any{"quoteID": quoteID, "paymentID": p.PaymentID})
		}
	}
	return nil
}

// FindQuote returns the quote with the given ID.
func (a *QuoteAggregate) FindQuote(quoteID string) (*Quote, error) {
	return a.requireQuote(quoteID)
}

// UnsavedEvents returns the events recorded since the aggregate was loaded or last saved.
func (a *QuoteAggregate) UnsavedEvents() []EventEnvelope {
	return append([]EventEnvelope(nil), a.unsaved...)
}

// MarkEventsPersisted clears the unsaved events after a successful append.
func (a *QuoteAggregate) MarkEventsPersisted() {
	a.PersistedEventCount += len(a.unsaved)
	a.unsaved = nil
}

// ReplayQuoteAggregate rebuilds an aggregate from its stored events.
func ReplayQuoteAggregate(tenantID, aggregateID string, events []EventEnvelope) (*QuoteAggregate, error) {
	a := &QuoteAggregate{TenantID: tenantID, AggregateID: aggregateID}
	for i, env := range events {
		if env.Sequence != i+1 {
			return nil, apperrors.NewDomainError(apperrors.ErrInternal, ErrCodeEventSequenceOutOfOrder,
				fmt.Sprintf("expected event %d of aggregate %s but found %d", i+1, aggregateID, env.Sequence),
				map[string]any{"aggregateID": aggregateID})
		}
		if err := a.apply(env); err != nil {
			return nil, fmt.Errorf("failed to replay event %d (%s): %w", env.Sequence, env.EventType(), err)
		}
	}
	a.PersistedEventCount = len(events)
	return a, nil
}

func (a *QuoteAggregate) record(evt DomainEvent, userID string, at time.Time) error {
	env := EventEnvelope{
		TenantID:         a.TenantID,
		AggregateID:      a.AggregateID,
		Sequence:         a.PersistedEventCount + len(a.unsaved) + 1,
		PerformingUserID: userID,
		CreatedAt:        at,
		Event:            evt,
	}
	if err := a.apply(env); err != nil {
		return err
	}
	a.unsaved = append(a.unsaved, env)
	return nil
}

func (a *QuoteAggregate) apply(env EventEnvelope) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = env.CreatedAt
	}
	a.LastModifiedAt = env.CreatedAt

	switch e := env.Event.(type) {
	case QuoteInitializedEvent:
		if a.ProductID == "" {
			a.ProductID = e.ProductID
		}
		q := &Quote{
			QuoteID:       e.QuoteID,
			ProductID:     e.ProductID,
			Type:          e.QuoteType,
			WorkflowState: e.InitialState,
			EffectiveDate: e.EffectiveDate,
			ExpiryDate:    e.ExpiryDate,
			AuditFields:   AuditFields{CreatedAt: env.CreatedAt, CreatedBy: env.PerformingUserID},
		}
		if e.FormData.FormDataID != "" {
			fd := e.FormData.Clone()
			q.LatestFormData = &fd
		}
		a.Quotes = append(a.Quotes, q)
		a.touch(q, env)
	case FormDataUpdatedEvent:
		q, err := a.requireQuote(e.QuoteID)
		if err != nil {
			return err
		}
		fd := e.FormData.Clone()
		q.LatestFormData = &fd
		a.touch(q, env)
	case CalculationResultCreatedEvent:
		q, err := a.requireQuote(e.QuoteID)
		if err != nil {
			return err
		}
		calc, err := NewCalculationResult(e.CalculationResultID, e.FormDataID, e.JSON, env.CreatedAt)
		if err != nil {
			return err
		}
		q.LatestCalculationResult = calc
		a.touch(q, env)
	case MerchantFeesAppliedEvent:
		q, err := a.requireQuote(e.QuoteID)
		if err != nil {
			return err
		}
		if q.LatestCalculationResult == nil || q.LatestCalculationResult.CalculationResultID != e.CalculationResultID {
			return fmt.Errorf("%w: merchant fees applied to unknown calculation %s", apperrors.ErrInternal, e.CalculationResultID)
		}
		if err := q.LatestCalculationResult.parse(e.JSON); err != nil {
			return err
		}
		a.touch(q, env)
	case QuoteNumberAssignedEvent:
		q, err := a.requireQuote(e.QuoteID)
		if err != nil {
			return err
		}
		number := e.QuoteNumber
		q.QuoteNumber = &number
		a.touch(q, env)
	case QuoteStateChangedEvent:
		q, err := a.requireQuote(e.QuoteID)
		if err != nil {
			return err
		}
		q.WorkflowState = e.ResultingState
		a.touch(q, env)
	case QuoteVersionCreatedEvent:
		q, err := a.requireQuote(e.QuoteID)
		if err != nil {
			return err
		}
		v := QuoteVersion{
			QuoteVersionID:    e.QuoteVersionID,
			VersionNumber:     e.VersionNumber,
			CalculationResult: q.LatestCalculationResult.Clone(),
			WorkflowState:     q.WorkflowState,
			CreatedAt:         env.CreatedAt,
			CreatedBy:         env.PerformingUserID,
		}
		if q.LatestFormData != nil {
			v.FormData = q.LatestFormData.Clone()
		}
		q.Versions = append(q.Versions, v)
		a.touch(q, env)
	case PolicyIssuedEvent:
		a.Policy = &Policy{
			PolicyID:      e.PolicyID,
			PolicyNumber:  e.PolicyNumber,
			InceptionDate: e.PeriodStart,
			ExpiryDate:    e.PeriodEnd,
			IssuedAt:      env.CreatedAt,
		}
		return a.applyPolicyTransaction(QuoteTypeNewBusiness, e.PolicyTransactionEvent, env)
	case PolicyAdjustedEvent:
		return a.applyPolicyTransaction(QuoteTypeAdjustment, e.PolicyTransactionEvent, env)
	case PolicyRenewedEvent:
		if err := a.applyPolicyTransaction(QuoteTypeRenewal, e.PolicyTransactionEvent, env); err != nil {
			return err
		}
		a.Policy.ExpiryDate = e.PeriodEnd
	case PolicyCancelledEvent:
		if err := a.applyPolicyTransaction(QuoteTypeCancellation, e.PolicyTransactionEvent, env); err != nil {
			return err
		}
		effective := e.EffectiveDate
		a.Policy.CancellationEffectiveDate = &effective
	case PolicyDataPatchedEvent:
		return a.applyPatch(e, env)
	case PaymentMadeEvent:
		a.Payments = append(a.Payments, Payment{
			PaymentID: e.PaymentID, QuoteID: e.QuoteID, Amount: e.Amount, CurrencyCode: e.CurrencyCode,
			Succeeded: true, GatewayReference: e.GatewayReference, CreatedAt: env.CreatedAt,
		})
	case PaymentFailedEvent:
		a.Payments = append(a.Payments, Payment{
			PaymentID: e.PaymentID, QuoteID: e.QuoteID, Amount: e.Amount, CurrencyCode: e.CurrencyCode,
			GatewayReference: e.GatewayReference, Reason: e.Reason, CreatedAt: env.CreatedAt,
		})
	default:
		return apperrors.NewDomainError(apperrors.ErrInternal, ErrCodeEventTypeUnknown,
			fmt.Sprintf("cannot apply event %T", env.Event), nil)
	}
	return nil
}

func (a *QuoteAggregate) applyPolicyTransaction(t QuoteType, e PolicyTransactionEvent, env EventEnvelope) error {
	q, err := a.requireQuote(e.QuoteID)
	if err != nil {
		return err
	}
	if a.Policy == nil {
		return fmt.Errorf("%w: policy transaction applied before the policy was issued", apperrors.ErrInternal)
	}
	if q.LatestCalculationResult != nil {
		q.LatestCalculationResult.Finalized = true
	}
	tx := PolicyTransaction{
		PolicyTransactionID:    e.PolicyTransactionID,
		QuoteID:                e.QuoteID,
		Type:                   t,
		EffectiveDate:          e.EffectiveDate,
		PeriodStart:            e.PeriodStart,
		PeriodEnd:              e.PeriodEnd,
		CreatedTicksSinceEpoch: e.CreatedTicks,
		CalculationResult:      q.LatestCalculationResult.Clone(),
		Payable:                e.Payable,
		CreatedBy:              env.PerformingUserID,
	}
	if q.LatestFormData != nil {
		tx.FormData = q.LatestFormData.Clone()
	}
	a.Policy.Transactions = append(a.Policy.Transactions, tx)
	id := e.PolicyTransactionID
	q.PolicyTransactionID = &id
	a.touch(q, env)
	return nil
}

// patchChange is one target of a patch, resolved and parsed but not yet written.
type patchChange struct {
	quote    *Quote
	formData *FormData
	data     json.RawMessage
	calc     *CalculationResult
	parsed   CalculationResult
}

// applyPatch resolves every target and parses every patched calculation before writing any of them.
func (a *QuoteAggregate) applyPatch(e PolicyDataPatchedEvent, env EventEnvelope) error {
	changes := make([]patchChange, 0, len(e.Targets))
	for _, t := range e.Targets {
		var ch patchChange
		switch t.Kind {
		case PatchTargetQuote:
			q, err := a.requireQuote(t.QuoteID)
			if err != nil {
				return err
			}
			ch.quote = q
			ch.formData, ch.calc = q.LatestFormData, q.LatestCalculationResult
		case PatchTargetQuoteVersion:
			q, err := a.requireQuote(t.QuoteID)
			if err != nil {
				return err
			}
			v := q.FindVersion(t.VersionNumber)
			if v == nil {
				return apperrors.NewDomainError(apperrors.ErrNotFound, ErrCodeQuoteVersionNotFound,
					fmt.Sprintf("quote %s has no version %d", t.QuoteID, t.VersionNumber), nil)
			}
			ch.formData, ch.calc = &v.FormData, v.CalculationResult
		case PatchTargetPolicyTransaction:
			var tx *PolicyTransaction
			if a.Policy != nil {
				tx = a.Policy.FindTransaction(t.PolicyTransactionID)
			}
			if tx == nil {
				return apperrors.NewDomainError(apperrors.ErrNotFound, ErrCodePolicyTransactionNotFound,
					fmt.Sprintf("policy transaction %s was not found", t.PolicyTransactionID), nil)
			}
			ch.formData, ch.calc = &tx.FormData, tx.CalculationResult
		}
		if t.FormData == nil {
			ch.formData = nil
		} else {
			ch.data = t.FormData
		}
		if t.CalculationResult == nil || ch.calc == nil {
			ch.calc = nil
		} else {
			ch.parsed = *ch.calc
			if err := ch.parsed.parse(t.CalculationResult); err != nil {
				return err
			}
		}
		changes = append(changes, ch)
	}

	for _, ch := range changes {
		if ch.formData != nil {
			ch.formData.Data = append(json.RawMessage(nil), ch.data...)
		}
		if ch.calc != nil {
			*ch.calc = ch.parsed
		}
		if ch.quote != nil {
			a.touch(ch.quote, env)
		}
	}
	return nil
}

func (a *QuoteAggregate) touch(q *Quote, env EventEnvelope) {
	q.Touch(env.PerformingUserID, env.CreatedAt)
}

func (a *QuoteAggregate) actualiseIfNascent(wf *QuoteWorkflow, q *Quote, userID string, at time.Time) error {
	if q.WorkflowState != StateNascent {
		return nil
	}
	resulting := wf.GetResultingState(ActionActualise, q.WorkflowState)
	if resulting == q.WorkflowState {
		return nil
	}
	return a.record(QuoteStateChangedEvent{
		QuoteID:        q.QuoteID,
		Action:         ActionActualise,
		OriginalState:  q.WorkflowState,
		ResultingState: resulting,
	}, userID, at)
}

func (a *QuoteAggregate) quoteForAction(wf *QuoteWorkflow, quoteID string, action QuoteAction) (*Quote, error) {
	q, err := a.requireQuote(quoteID)
	if err != nil {
		return nil, err
	}
	permitted, err := wf.IsActionPermittedByState(action, q.WorkflowState)
	if err != nil {
		return nil, err
	}
	if !permitted {
		return nil, notPermitted(action, q)
	}
	return q, nil
}

func (a *QuoteAggregate) nextTransactionTicks(at time.Time) int64 {
	ticks := at.UnixNano()
	if a.Policy != nil {
		if latest := a.Policy.LatestTransaction(); latest != nil && ticks <= latest.CreatedTicksSinceEpoch {
			ticks = latest.CreatedTicksSinceEpoch + 1
		}
	}
	return ticks
}

func (a *QuoteAggregate) requireActivePolicy() error {
	if a.Policy == nil {
		return apperrors.NewDomainError(apperrors.ErrInvariantViolation, ErrCodePolicyNotIssued,
			"the quote aggregate does not have an issued policy", map[string]any{"aggregateID": a.AggregateID})
	}
	if a.Policy.IsCancelled() {
		return apperrors.NewDomainError(apperrors.ErrInvariantViolation, ErrCodePolicyCancelled,
			fmt.Sprintf("policy %s has been cancelled", a.Policy.PolicyNumber),
			map[string]any{"policyNumber": a.Policy.PolicyNumber})
	}
	return nil
}

func (a *QuoteAggregate) findQuote(quoteID string) *Quote {
	for _, q := range a.Quotes {
		if q.QuoteID == quoteID {
			return q
		}
	}
	return nil
}

func (a *QuoteAggregate) requireQuote(quoteID string) (*Quote, error) {
	q := a.findQuote(quoteID)
	if q == nil {
		return nil, apperrors.NewDomainError(apperrors.ErrNotFound, ErrCodeQuoteNotFound,
			fmt.Sprintf("quote %s was not found", quoteID), map[string]any{"quoteID": quoteID})
	}
	return q, nil
}

func notPermitted(action QuoteAction, q *Quote) error {
	return apperrors.NewDomainError(apperrors.ErrConflict, ErrCodeWorkflowActionNotPermitted,
		fmt.Sprintf("the action %s is not permitted while the quote is %s", action, q.WorkflowState),
		map[string]any{"action": string(action), "state": string(q.WorkflowState), "quoteID": q.QuoteID})
}

func datesInvalid(msg string, from, to time.Time) error {
	return apperrors.NewDomainError(apperrors.ErrValidation, ErrCodePolicyDatesInvalid, msg,
		map[string]any{"from": from, "to": to})
}

func outsidePeriod(effective, start, end time.Time) error {
	return apperrors.NewDomainError(apperrors.ErrValidation, ErrCodeEffectiveDateOutsidePeriod,
		fmt.Sprintf("the effective date %s is outside the policy period", effective.Format(time.RFC3339)),
		map[string]any{"effectiveDate": effective, "periodStart": start, "periodEnd": end})
}
