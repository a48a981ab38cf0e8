// Package wizard implements the case intake step machine as a pure reducer.
// The service layer owns the session data (facts, files, dossier); this
// package only decides which step transitions are allowed.
package wizard

import (
	"errors"

	"jurigen-backend/models"
)

var (
	// ErrProcessing means a generation call is outstanding and every
	// navigation request is refused until it resolves.
	ErrProcessing = errors.New("wizard: analysis in progress")

	// ErrNoDossier means the target step requires a generated dossier.
	ErrNoDossier = errors.New("wizard: no dossier generated yet")

	// ErrNoInput means the facts narrative is empty and no files are
	// attached, so the wizard cannot advance past the first step.
	ErrNoInput = errors.New("wizard: facts and files are both empty")

	// ErrInvalidEvent means the event does not apply to the current step.
	ErrInvalidEvent = errors.New("wizard: event not valid for current step")
)

// State is the reducer's view of a session. HasInput and HasDossier are
// derived from session data by the caller before applying an event.
type State struct {
	Step       models.CaseStep
	Processing bool
	HasInput   bool
	HasDossier bool
}

// Initial returns the state a fresh session starts in.
func Initial() State {
	return State{Step: models.StepInitialFacts}
}

// Event is a user action or an analysis completion signal.
type Event interface{ isEvent() }

// Next advances from the current step ("next" button).
type Next struct{}

// Back returns from DOCUMENT_UPLOAD to INITIAL_FACTS.
type Back struct{}

// Navigate is a direct sidebar jump to an arbitrary step.
type Navigate struct{ To models.CaseStep }

// AnalysisStarted marks a generation call as in flight.
type AnalysisStarted struct{}

// AnalysisSucceeded is emitted when generation returned a dossier.
type AnalysisSucceeded struct{}

// AnalysisFailed is emitted when generation failed; the wizard falls back
// one step so the user can retry.
type AnalysisFailed struct{}

func (Next) isEvent()              {}
func (Back) isEvent()              {}
func (Navigate) isEvent()          {}
func (AnalysisStarted) isEvent()   {}
func (AnalysisSucceeded) isEvent() {}
func (AnalysisFailed) isEvent()    {}

// Apply reduces an event onto a state. On a refused event the input state is
// returned unchanged alongside the reason.
func Apply(s State, e Event) (State, error) {
	switch ev := e.(type) {
	case Next:
		return applyNext(s)
	case Back:
		if s.Processing {
			return s, ErrProcessing
		}
		if s.Step != models.StepDocumentUpload {
			return s, ErrInvalidEvent
		}
		s.Step = models.StepInitialFacts
		return s, nil
	case Navigate:
		return applyNavigate(s, ev.To)
	case AnalysisStarted:
		if s.Processing {
			return s, ErrProcessing
		}
		if s.Step != models.StepDocumentUpload {
			return s, ErrInvalidEvent
		}
		s.Processing = true
		s.Step = models.StepAIAnalysis
		return s, nil
	case AnalysisSucceeded:
		if s.Step != models.StepAIAnalysis {
			return s, ErrInvalidEvent
		}
		s.Processing = false
		s.HasDossier = true
		s.Step = models.StepDossierReview
		return s, nil
	case AnalysisFailed:
		if s.Step != models.StepAIAnalysis {
			return s, ErrInvalidEvent
		}
		s.Processing = false
		s.Step = models.StepDocumentUpload
		return s, nil
	default:
		return s, ErrInvalidEvent
	}
}

func applyNext(s State) (State, error) {
	if s.Processing {
		return s, ErrProcessing
	}
	switch s.Step {
	case models.StepInitialFacts:
		if !s.HasInput {
			return s, ErrNoInput
		}
		s.Step = models.StepDocumentUpload
		return s, nil
	case models.StepDossierReview:
		if !s.HasDossier {
			return s, ErrNoDossier
		}
		s.Step = models.StepEvidenceGathering
		return s, nil
	default:
		// DOCUMENT_UPLOAD advances through AnalysisStarted, AI_ANALYSIS
		// advances on its own, EVIDENCE_GATHERING ends via finish.
		return s, ErrInvalidEvent
	}
}

func applyNavigate(s State, to models.CaseStep) (State, error) {
	if s.Processing {
		return s, ErrProcessing
	}
	if !to.Valid() {
		return s, ErrInvalidEvent
	}
	if (to == models.StepDossierReview || to == models.StepEvidenceGathering) && !s.HasDossier {
		return s, ErrNoDossier
	}
	s.Step = to
	return s, nil
}
