package domain

// Machine readable codes carried by apperrors.DomainError.
const (
	ErrCodeWorkflowActionNotDefined   = "quote.workflow.action.not.defined"
	ErrCodeWorkflowActionNotPermitted = "quote.workflow.action.not.permitted"
	ErrCodeWorkflowUsePolicyCommand   = "quote.workflow.policy.action.requires.transaction"

	ErrCodeQuoteNotFound               = "quote.not.found"
	ErrCodeQuoteAlreadyExists          = "quote.already.exists"
	ErrCodeQuoteNumberAlreadyAssigned  = "quote.number.already.assigned"
	ErrCodeQuoteFormDataMissing        = "quote.form.data.missing"
	ErrCodeQuoteStateTerminal          = "quote.state.terminal"
	ErrCodeQuoteVersionNotFound        = "quote.version.not.found"
	ErrCodeCalculationResultMissing    = "quote.calculation.result.missing"
	ErrCodeCalculationResultStale      = "quote.calculation.result.not.from.latest.form.data"
	ErrCodeCalculationResultNotBinding = "quote.calculation.result.not.bindable"
	ErrCodeCalculationFinalized        = "calculation.result.already.finalized"
	ErrCodeCalculationInvalid          = "calculation.result.invalid"

	ErrCodePolicyNotFound             = "policy.not.found"
	ErrCodePolicyNotIssued            = "policy.not.issued"
	ErrCodePolicyAlreadyIssued        = "policy.already.issued"
	ErrCodePolicyCancelled            = "policy.has.been.cancelled"
	ErrCodePolicyDatesInvalid         = "policy.dates.invalid"
	ErrCodeAdjustmentPolicyExpired    = "policy.adjustment.policy.has.expired"
	ErrCodeCancellationPolicyExpired  = "policy.cancellation.policy.has.expired"
	ErrCodeEffectiveDateOutsidePeriod = "policy.transaction.effective.date.outside.period"
	ErrCodeTransactionQuoteInProgress = "policy.transaction.quote.already.in.progress"
	ErrCodeTransactionAlreadyCreated  = "policy.transaction.already.created.for.quote"
	ErrCodePolicyTransactionNotFound  = "policy.transaction.not.found"
	ErrCodePatchRuleViolated          = "policy.data.patch.rule.violated"
	ErrCodePatchSourceNotFound        = "policy.data.patch.source.field.not.found"
	ErrCodePatchInvalid               = "policy.data.patch.invalid"
	ErrCodePatchNoTargets             = "policy.data.patch.no.applicable.targets"
	ErrCodePaymentAmountInvalid       = "payment.amount.invalid"
	ErrCodePaymentQuoteNotApproved    = "payment.quote.not.approved"
	ErrCodePaymentDeclined            = "payment.declined"
	ErrCodePaymentQuoteAlreadyPaid    = "payment.quote.already.paid"
	ErrCodeEventSequenceOutOfOrder    = "aggregate.event.sequence.out.of.order"
	ErrCodeEventTypeUnknown           = "aggregate.event.type.unknown"
)
