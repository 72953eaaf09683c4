package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// PatchScopeType selects which data holders of an aggregate a patch touches.
type PatchScopeType string

const (
	PatchScopeGlobal            PatchScopeType = "Global"
	PatchScopeQuoteFull         PatchScopeType = "QuoteFull"
	PatchScopeQuoteLatest       PatchScopeType = "QuoteLatest"
	PatchScopeQuoteVersion      PatchScopeType = "QuoteVersion"
	PatchScopePolicyTransaction PatchScopeType = "PolicyTransaction"
)

// IsValid reports whether t is a known scope type.
func (t PatchScopeType) IsValid() bool {
	switch t {
	case PatchScopeGlobal, PatchScopeQuoteFull, PatchScopeQuoteLatest, PatchScopeQuoteVersion, PatchScopePolicyTransaction:
		return true
	}
	return false
}

// PolicyDataPatchScope limits a patch to an entity. EntityID is a quote ID for the quote
// scopes and a policy transaction ID for PolicyTransaction.
type PolicyDataPatchScope struct {
	Type          PatchScopeType `json:"type"`
	EntityID      string         `json:"entityID,omitempty"`
	VersionNumber int            `json:"versionNumber,omitempty"`
}

// Validate checks the scope carries what its type needs.
func (s PolicyDataPatchScope) Validate() error {
	if !s.Type.IsValid() {
		return patchInvalid(fmt.Sprintf("unknown patch scope type %q", s.Type))
	}
	if s.Type != PatchScopeGlobal && s.EntityID == "" {
		return patchInvalid(fmt.Sprintf("patch scope %s requires an entity id", s.Type))
	}
	if s.Type == PatchScopeQuoteVersion && s.VersionNumber <= 0 {
		return patchInvalid("patch scope QuoteVersion requires a positive version number")
	}
	return nil
}

// ApplicableToQuote reports whether the patch applies to the quote's latest data.
func (s PolicyDataPatchScope) ApplicableToQuote(q *Quote) bool {
	switch s.Type {
	case PatchScopeGlobal:
		return true
	case PatchScopeQuoteFull, PatchScopeQuoteLatest:
		return q.QuoteID == s.EntityID
	}
	return false
}

// ApplicableToQuoteVersion reports whether the patch applies to a version of the quote.
func (s PolicyDataPatchScope) ApplicableToQuoteVersion(q *Quote, v *QuoteVersion) bool {
	switch s.Type {
	case PatchScopeGlobal:
		return true
	case PatchScopeQuoteFull:
		return q.QuoteID == s.EntityID
	case PatchScopeQuoteVersion:
		return q.QuoteID == s.EntityID && v.VersionNumber == s.VersionNumber
	}
	return false
}

// ApplicableToPolicyTransaction reports whether the patch applies to the transaction.
func (s PolicyDataPatchScope) ApplicableToPolicyTransaction(tx *PolicyTransaction) bool {
	switch s.Type {
	case PatchScopeGlobal:
		return true
	case PatchScopeQuoteFull:
		return tx.QuoteID == s.EntityID
	case PatchScopePolicyTransaction:
		return tx.PolicyTransactionID == s.EntityID
	}
	return false
}

// PatchRules are preconditions checked on every target before anything is written.
type PatchRules uint8

const (
	PatchRulePropertyExists PatchRules = 1 << iota
	PatchRulePropertyDoesNotExist
	PatchRulePropertyIsMissingOrNullOrEmpty
)

var patchRuleNames = map[string]PatchRules{
	"PropertyExists":                 PatchRulePropertyExists,
	"PropertyDoesNotExist":           PatchRulePropertyDoesNotExist,
	"PropertyIsMissingOrNullOrEmpty": PatchRulePropertyIsMissingOrNullOrEmpty,
}

// ParsePatchRules converts rule names into flags.
func ParsePatchRules(names []string) (PatchRules, error) {
	var rules PatchRules
	for _, n := range names {
		flag, ok := patchRuleNames[n]
		if !ok {
			return 0, patchInvalid(fmt.Sprintf("unknown patch rule %q", n))
		}
		rules |= flag
	}
	return rules, nil
}

// Has reports whether the flag is set.
func (r PatchRules) Has(flag PatchRules) bool {
	return r&flag != 0
}

// Names lists the set flags.
func (r PatchRules) Names() []string {
	var out []string
	for _, name := range []string{"PropertyExists", "PropertyDoesNotExist", "PropertyIsMissingOrNullOrEmpty"} {
		if r.Has(patchRuleNames[name]) {
			out = append(out, name)
		}
	}
	return out
}

func (r PatchRules) check(doc json.RawMessage, path, holder string) error {
	v := gjson.GetBytes(doc, path)
	violated := ""
	switch {
	case r.Has(PatchRulePropertyExists) && !v.Exists():
		violated = "PropertyExists"
	case r.Has(PatchRulePropertyDoesNotExist) && v.Exists():
		violated = "PropertyDoesNotExist"
	case r.Has(PatchRulePropertyIsMissingOrNullOrEmpty) && !isMissingOrNullOrEmpty(v):
		violated = "PropertyIsMissingOrNullOrEmpty"
	}
	if violated == "" {
		return nil
	}
	return apperrors.NewDomainError(
		apperrors.ErrConflict,
		ErrCodePatchRuleViolated,
		fmt.Sprintf("patch rule %s is violated for path %q on %s", violated, path, holder),
		map[string]any{"rule": violated, "path": path, "target": holder},
	)
}

func isMissingOrNullOrEmpty(v gjson.Result) bool {
	if !v.Exists() || v.Type == gjson.Null {
		return true
	}
	switch {
	case v.Type == gjson.String:
		return v.Str == ""
	case v.IsArray():
		return len(v.Array()) == 0
	case v.IsObject():
		return len(v.Map()) == 0
	}
	return false
}

// PatchSourceEntity is the document a CopyField patch reads from.
type PatchSourceEntity string

const (
	PatchSourceFormData          PatchSourceEntity = "FormData"
	PatchSourceCalculationResult PatchSourceEntity = "CalculationResult"
)

// PatchDataHolder is a pair of form data and calculation documents a patch operates on.
type PatchDataHolder struct {
	FormData          json.RawMessage
	CalculationResult json.RawMessage
}

// PolicyDataPatchCommand is a scoped change to form data and calculation documents.
type PolicyDataPatchCommand interface {
	Base() PatchCommandBase
	// ResolveValue returns the value to write for the given holder.
	ResolveValue(holder PatchDataHolder) (json.RawMessage, error)
}

// PatchCommandBase holds the fields shared by all patch commands.
type PatchCommandBase struct {
	PatchID                     string               `json:"patchID"`
	TargetFormDataPath          string               `json:"targetFormDataPath,omitempty"`
	TargetCalculationResultPath string               `json:"targetCalculationResultPath,omitempty"`
	Scope                       PolicyDataPatchScope `json:"scope"`
	Rules                       PatchRules           `json:"rules"`
}

// Base returns the shared fields.
func (b PatchCommandBase) Base() PatchCommandBase { return b }

// Validate checks the targets and scope.
func (b PatchCommandBase) Validate() error {
	if b.TargetFormDataPath == "" && b.TargetCalculationResultPath == "" {
		return patchInvalid("a patch needs a form data path or a calculation result path")
	}
	for _, p := range []string{b.TargetFormDataPath, b.TargetCalculationResultPath} {
		if p != "" && !validPath(p) {
			return patchInvalid(fmt.Sprintf("invalid patch path %q", p))
		}
	}
	if b.Rules.Has(PatchRulePropertyExists) && b.Rules.Has(PatchRulePropertyDoesNotExist) {
		return patchInvalid("patch rules PropertyExists and PropertyDoesNotExist cannot be combined")
	}
	return b.Scope.Validate()
}

func validPath(p string) bool {
	if strings.HasPrefix(p, ".") || strings.HasSuffix(p, ".") || strings.Contains(p, "..") {
		return false
	}
	return !strings.ContainsAny(p, "#*?|@")
}

// GivenValuePolicyDataPatchCommand writes a literal value.
type GivenValuePolicyDataPatchCommand struct {
	PatchCommandBase
	NewValue json.RawMessage `json:"newValue"`
}

// ResolveValue returns the literal value.
func (c GivenValuePolicyDataPatchCommand) ResolveValue(PatchDataHolder) (json.RawMessage, error) {
	if !json.Valid(c.NewValue) {
		return nil, patchInvalid("patch value is not valid JSON")
	}
	return c.NewValue, nil
}

// CopyFieldPolicyDataPatchCommand copies a value from another path of the same holder.
type CopyFieldPolicyDataPatchCommand struct {
	PatchCommandBase
	SourceEntity PatchSourceEntity `json:"sourceEntity"`
	SourcePath   string            `json:"sourcePath"`
}

// ResolveValue reads the source path from the holder.
func (c CopyFieldPolicyDataPatchCommand) ResolveValue(holder PatchDataHolder) (json.RawMessage, error) {
	if c.SourcePath == "" || !validPath(c.SourcePath) {
		return nil, patchInvalid(fmt.Sprintf("invalid source path %q", c.SourcePath))
	}
	var doc json.RawMessage
	switch c.SourceEntity {
	case PatchSourceFormData:
		doc = holder.FormData
	case PatchSourceCalculationResult:
		doc = holder.CalculationResult
	default:
		return nil, patchInvalid(fmt.Sprintf("unknown patch source entity %q", c.SourceEntity))
	}
	v := gjson.GetBytes(doc, c.SourcePath)
	if !v.Exists() {
		return nil, apperrors.NewDomainError(
			apperrors.ErrValidation,
			ErrCodePatchSourceNotFound,
			fmt.Sprintf("source field %q was not found in %s", c.SourcePath, c.SourceEntity),
			map[string]any{"sourceEntity": string(c.SourceEntity), "sourcePath": c.SourcePath},
		)
	}
	return json.RawMessage(v.Raw), nil
}

// PatchTargetKind identifies the kind of data holder a patch result is written to.
type PatchTargetKind string

const (
	PatchTargetQuote             PatchTargetKind = "Quote"
	PatchTargetQuoteVersion      PatchTargetKind = "QuoteVersion"
	PatchTargetPolicyTransaction PatchTargetKind = "PolicyTransaction"
)

// PolicyDataPatchTarget is the resolved change for one data holder.
// A nil document means the holder's document is untouched.
type PolicyDataPatchTarget struct {
	Kind                PatchTargetKind `json:"kind"`
	QuoteID             string          `json:"quoteID,omitempty"`
	VersionNumber       int             `json:"versionNumber,omitempty"`
	PolicyTransactionID string          `json:"policyTransactionID,omitempty"`
	FormData            json.RawMessage `json:"formData,omitempty"`
	CalculationResult   json.RawMessage `json:"calculationResult,omitempty"`
}

// planPatch checks the rules and produces the patched documents of one holder.
func planPatch(cmd PolicyDataPatchCommand, holder PatchDataHolder, name string) (json.RawMessage, json.RawMessage, error) {
	base := cmd.Base()
	if base.TargetFormDataPath != "" {
		if err := base.Rules.check(holder.FormData, base.TargetFormDataPath, name+" form data"); err != nil {
			return nil, nil, err
		}
	}
	if base.TargetCalculationResultPath != "" && holder.CalculationResult != nil {
		if err := base.Rules.check(holder.CalculationResult, base.TargetCalculationResultPath, name+" calculation result"); err != nil {
			return nil, nil, err
		}
	}

	value, err := cmd.ResolveValue(holder)
	if err != nil {
		return nil, nil, err
	}

	var formData, calc json.RawMessage
	if base.TargetFormDataPath != "" {
		formData, err = setJSONPath(holder.FormData, base.TargetFormDataPath, value)
		if err != nil {
			return nil, nil, err
		}
	}
	if base.TargetCalculationResultPath != "" && holder.CalculationResult != nil {
		calc, err = setJSONPath(holder.CalculationResult, base.TargetCalculationResultPath, value)
		if err != nil {
			return nil, nil, err
		}
		var patched CalculationResult
		if err := patched.parse(calc); err != nil {
			return nil, nil, err
		}
	}
	return formData, calc, nil
}

func setJSONPath(doc json.RawMessage, path string, value json.RawMessage) (json.RawMessage, error) {
	src := append([]byte(nil), doc...)
	if len(src) == 0 {
		src = []byte("{}")
	}
	out, err := sjson.SetRawBytes(src, path, value)
	if err != nil {
		return nil, patchInvalid(fmt.Sprintf("failed to set %q: %v", path, err))
	}
	return out, nil
}

func patchInvalid(msg string) error {
	return apperrors.NewDomainError(apperrors.ErrValidation, ErrCodePatchInvalid, msg, nil)
}

func holderOf(fd *FormData, calc *CalculationResult) PatchDataHolder {
	var h PatchDataHolder
	if fd != nil {
		h.FormData = fd.Data
	}
	if calc != nil {
		h.CalculationResult = calc.JSON
	}
	return h
}
