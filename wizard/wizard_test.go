package wizard

import (
	"errors"
	"testing"

	"jurigen-backend/models"
)

func TestNextFromInitialFactsRequiresInput(t *testing.T) {
	s := Initial()

	if _, err := Apply(s, Next{}); !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}

	s.HasInput = true
	next, err := Apply(s, Next{})
	if err != nil {
		t.Fatalf("next with input: %v", err)
	}
	if next.Step != models.StepDocumentUpload {
		t.Fatalf("expected DOCUMENT_UPLOAD, got %s", next.Step)
	}
}

func TestRefusedEventLeavesStateUnchanged(t *testing.T) {
	s := Initial()
	got, err := Apply(s, Next{})
	if err == nil {
		t.Fatalf("expected refusal")
	}
	if got != s {
		t.Fatalf("state changed on refused event: %+v != %+v", got, s)
	}
}

func TestAnalysisLifecycleSuccess(t *testing.T) {
	s := State{Step: models.StepDocumentUpload, HasInput: true}

	s, err := Apply(s, AnalysisStarted{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Step != models.StepAIAnalysis || !s.Processing {
		t.Fatalf("expected processing AI_ANALYSIS, got %+v", s)
	}

	s, err = Apply(s, AnalysisSucceeded{})
	if err != nil {
		t.Fatalf("succeed: %v", err)
	}
	if s.Step != models.StepDossierReview || s.Processing || !s.HasDossier {
		t.Fatalf("expected DOSSIER_REVIEW with dossier, got %+v", s)
	}
}

func TestAnalysisFailureFallsBackToUpload(t *testing.T) {
	s := State{Step: models.StepDocumentUpload, HasInput: true}

	s, err := Apply(s, AnalysisStarted{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	s, err = Apply(s, AnalysisFailed{})
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if s.Step != models.StepDocumentUpload || s.Processing || s.HasDossier {
		t.Fatalf("expected fallback to DOCUMENT_UPLOAD, got %+v", s)
	}
}

func TestDuplicateAnalysisStartRefused(t *testing.T) {
	s := State{Step: models.StepDocumentUpload, HasInput: true}
	s, err := Apply(s, AnalysisStarted{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := Apply(s, AnalysisStarted{}); !errors.Is(err, ErrProcessing) {
		t.Fatalf("expected ErrProcessing, got %v", err)
	}
}

func TestNavigateRefusedWhileProcessing(t *testing.T) {
	s := State{Step: models.StepAIAnalysis, Processing: true, HasDossier: true}
	for _, step := range models.Steps {
		if _, err := Apply(s, Navigate{To: step}); !errors.Is(err, ErrProcessing) {
			t.Fatalf("navigate to %s while processing: expected ErrProcessing, got %v", step, err)
		}
	}
}

func TestNavigateToDossierStepsRequiresDossier(t *testing.T) {
	s := State{Step: models.StepDocumentUpload, HasInput: true}
	for _, step := range []models.CaseStep{models.StepDossierReview, models.StepEvidenceGathering} {
		got, err := Apply(s, Navigate{To: step})
		if !errors.Is(err, ErrNoDossier) {
			t.Fatalf("navigate to %s without dossier: expected ErrNoDossier, got %v", step, err)
		}
		if got != s {
			t.Fatalf("state changed on refused navigation")
		}
	}

	s.HasDossier = true
	got, err := Apply(s, Navigate{To: models.StepEvidenceGathering})
	if err != nil {
		t.Fatalf("navigate with dossier: %v", err)
	}
	if got.Step != models.StepEvidenceGathering {
		t.Fatalf("expected EVIDENCE_GATHERING, got %s", got.Step)
	}
}

func TestNavigateToUnknownStepRefused(t *testing.T) {
	s := Initial()
	if _, err := Apply(s, Navigate{To: models.CaseStep("SOMEWHERE")}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestBackFromUpload(t *testing.T) {
	s := State{Step: models.StepDocumentUpload, HasInput: true}
	got, err := Apply(s, Back{})
	if err != nil {
		t.Fatalf("back: %v", err)
	}
	if got.Step != models.StepInitialFacts {
		t.Fatalf("expected INITIAL_FACTS, got %s", got.Step)
	}
}

func TestReviewToGathering(t *testing.T) {
	s := State{Step: models.StepDossierReview, HasInput: true, HasDossier: true}
	got, err := Apply(s, Next{})
	if err != nil {
		t.Fatalf("next from review: %v", err)
	}
	if got.Step != models.StepEvidenceGathering {
		t.Fatalf("expected EVIDENCE_GATHERING, got %s", got.Step)
	}
}
