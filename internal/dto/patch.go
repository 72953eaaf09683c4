package dto

import (
	"encoding/json"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
)

// Patch command kinds accepted by the API.
const (
	PatchKindGivenValue = "GivenValue"
	PatchKindCopyField  = "CopyField"
)

// PatchScopeRequest limits a patch to an entity.
type PatchScopeRequest struct {
	Type          domain.PatchScopeType `json:"type" binding:"required,patchscope"`
	EntityID      string                `json:"entityID"`
	VersionNumber int                   `json:"versionNumber"`
}

// PolicyDataPatchRequest is a scoped correction of form data and calculation documents.
type PolicyDataPatchRequest struct {
	Kind                        string            `json:"kind" binding:"required,oneof=GivenValue CopyField"`
	Scope                       PatchScopeRequest `json:"scope" binding:"required"`
	TargetFormDataPath          string            `json:"targetFormDataPath"`
	TargetCalculationResultPath string            `json:"targetCalculationResultPath"`
	Rules                       []string          `json:"rules"`
	// NewValue is used by GivenValue patches.
	NewValue json.RawMessage `json:"newValue"`
	// SourceEntity and SourcePath are used by CopyField patches.
	SourceEntity domain.PatchSourceEntity `json:"sourceEntity" binding:"omitempty,oneof=FormData CalculationResult"`
	SourcePath   string                   `json:"sourcePath"`
}

// ToCommand builds the domain command for the request.
func (r PolicyDataPatchRequest) ToCommand(patchID string) (domain.PolicyDataPatchCommand, error) {
	rules, err := domain.ParsePatchRules(r.Rules)
	if err != nil {
		return nil, err
	}
	base := domain.PatchCommandBase{
		PatchID:                     patchID,
		TargetFormDataPath:          r.TargetFormDataPath,
		TargetCalculationResultPath: r.TargetCalculationResultPath,
		Scope: domain.PolicyDataPatchScope{
			Type:          r.Scope.Type,
			EntityID:      r.Scope.EntityID,
			VersionNumber: r.Scope.VersionNumber,
		},
		Rules: rules,
	}
	if r.Kind == PatchKindCopyField {
		return domain.CopyFieldPolicyDataPatchCommand{
			PatchCommandBase: base,
			SourceEntity:     r.SourceEntity,
			SourcePath:       r.SourcePath,
		}, nil
	}
	return domain.GivenValuePolicyDataPatchCommand{PatchCommandBase: base, NewValue: r.NewValue}, nil
}

// PatchTargetResponse names one data holder a patch changed.
type PatchTargetResponse struct {
	Kind                domain.PatchTargetKind `json:"kind"`
	QuoteID             string                 `json:"quoteID,omitempty"`
	VersionNumber       int                    `json:"versionNumber,omitempty"`
	PolicyTransactionID string                 `json:"policyTransactionID,omitempty"`
	FormDataPatched     bool                   `json:"formDataPatched"`
	CalculationPatched  bool                   `json:"calculationPatched"`
}

// PolicyDataPatchResponse summarises an applied patch.
type PolicyDataPatchResponse struct {
	PatchID string                      `json:"patchID"`
	Scope   domain.PolicyDataPatchScope `json:"scope"`
	Targets []PatchTargetResponse       `json:"targets"`
}

// ToPolicyDataPatchResponse converts the recorded patch event to DTO.
func ToPolicyDataPatchResponse(e *domain.PolicyDataPatchedEvent) PolicyDataPatchResponse {
	targets := make([]PatchTargetResponse, len(e.Targets))
	for i, t := range e.Targets {
		targets[i] = PatchTargetResponse{
			Kind:                t.Kind,
			QuoteID:             t.QuoteID,
			VersionNumber:       t.VersionNumber,
			PolicyTransactionID: t.PolicyTransactionID,
			FormDataPatched:     t.FormData != nil,
			CalculationPatched:  t.CalculationResult != nil,
		}
	}
	return PolicyDataPatchResponse{PatchID: e.PatchID, Scope: e.Scope, Targets: targets}
}
