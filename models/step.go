package models

// CaseStep identifies the active step of the intake wizard. It is a UI
// cursor only; transition history is never persisted.
type CaseStep string

const (
	StepInitialFacts      CaseStep = "INITIAL_FACTS"
	StepDocumentUpload    CaseStep = "DOCUMENT_UPLOAD"
	StepAIAnalysis        CaseStep = "AI_ANALYSIS"
	StepDossierReview     CaseStep = "DOSSIER_REVIEW"
	StepEvidenceGathering CaseStep = "EVIDENCE_GATHERING"
)

// Steps lists all wizard steps in presentation order.
var Steps = []CaseStep{
	StepInitialFacts,
	StepDocumentUpload,
	StepAIAnalysis,
	StepDossierReview,
	StepEvidenceGathering,
}

// Valid reports whether s is a known wizard step.
func (s CaseStep) Valid() bool {
	switch s {
	case StepInitialFacts, StepDocumentUpload, StepAIAnalysis, StepDossierReview, StepEvidenceGathering:
		return true
	}
	return false
}
