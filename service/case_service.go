package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"jurigen-backend/models"
	"jurigen-backend/storage"
	"jurigen-backend/wizard"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrDossierNotReady     = errors.New("dossier has not been generated yet")
	ErrChecklistIncomplete = errors.New("evidence checklist is not complete")
	ErrUnknownEvidenceItem = errors.New("evidence item not found")
	ErrFileNotFound        = errors.New("file not found")
)

const finishMessage = "Dossiê enviado com sucesso para análise jurídica profissional!"

// DossierGenerator produces a dossier from the case intake material.
type DossierGenerator interface {
	GenerateDossier(ctx context.Context, facts string, files []models.FileRecord) (*models.Dossier, error)
}

// DossierStore persists dossiers and their evidence checklists.
type DossierStore interface {
	Save(ctx context.Context, dossier *models.Dossier) error
	LoadLatest(ctx context.Context) (*models.Dossier, bool, error)
	SetEvidenceStatus(ctx context.Context, dossierID uuid.UUID, itemID string, status models.EvidenceStatus) error
}

// FileUpload is one incoming file before ingestion.
type FileUpload struct {
	Name     string
	MimeType string
	Content  []byte
}

// session is the in-memory intake state for one wizard run.
type session struct {
	mu           sync.Mutex
	id           uuid.UUID
	state        wizard.State
	facts        string
	files        []models.FileRecord
	archivePaths map[uuid.UUID]string
	dossier      *models.Dossier
	dossierSaved bool
}

// SessionView is a read-only snapshot of a session.
type SessionView struct {
	ID           uuid.UUID           `json:"id"`
	Step         models.CaseStep     `json:"step"`
	Processing   bool                `json:"processing"`
	Facts        string              `json:"facts"`
	Files        []models.FileRecord `json:"files"`
	Dossier      *models.Dossier     `json:"dossier,omitempty"`
	DossierSaved bool                `json:"dossierSaved"`
	Completion   int                 `json:"completion"`
}

// CaseService drives the intake wizard: facts and file collection, the
// analysis round trip, the evidence checklist and the final hand-off.
type CaseService struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session

	generator DossierGenerator
	store     DossierStore
	archive   storage.Storage
}

// CaseServiceOption configures the case service
type CaseServiceOption func(*CaseService)

// WithArchive sets the backend that keeps raw copies of uploaded files.
func WithArchive(archive storage.Storage) CaseServiceOption {
	return func(s *CaseService) {
		s.archive = archive
	}
}

// NewCaseService creates a new case service
func NewCaseService(generator DossierGenerator, store DossierStore, opts ...CaseServiceOption) *CaseService {
	s := &CaseService{
		sessions:  make(map[uuid.UUID]*session),
		generator: generator,
		store:     store,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession starts a fresh wizard run.
func (s *CaseService) CreateSession() SessionView {
	sess := &session{
		id:           uuid.New(),
		state:        wizard.Initial(),
		archivePaths: make(map[uuid.UUID]string),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	return sess.view()
}

// Session returns a snapshot of an existing session.
func (s *CaseService) Session(id uuid.UUID) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.viewLocked(), nil
}

// SetFacts replaces the facts narrative. Refused while analysis is running.
func (s *CaseService) SetFacts(id uuid.UUID, facts string) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state.Processing {
		return sess.viewLocked(), wizard.ErrProcessing
	}
	sess.facts = facts
	sess.syncInput()
	return sess.viewLocked(), nil
}

// AppendTranscription adds transcribed speech to the facts narrative,
// separated from existing text by a newline.
func (s *CaseService) AppendTranscription(id uuid.UUID, text string) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	text = strings.TrimSpace(text)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state.Processing {
		return sess.viewLocked(), wizard.ErrProcessing
	}
	if text == "" {
		return sess.viewLocked(), nil
	}
	if strings.TrimSpace(sess.facts) == "" {
		sess.facts = text
	} else {
		sess.facts = sess.facts + "\n" + text
	}
	sess.syncInput()
	return sess.viewLocked(), nil
}

// AddFiles ingests a batch of uploads concurrently. Each file is decoded
// and categorized on its own goroutine; a failed archive write is logged
// but does not reject the file.
func (s *CaseService) AddFiles(ctx context.Context, id uuid.UUID, uploads []FileUpload) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	if sess.state.Processing {
		defer sess.mu.Unlock()
		return sess.viewLocked(), wizard.ErrProcessing
	}
	sess.mu.Unlock()

	// Decode and archive concurrently, then append the whole batch under
	// one lock so a generation started mid-ingest cannot split it.
	type ingested struct {
		record      models.FileRecord
		archivePath string
	}
	results := make([]ingested, len(uploads))
	var wg sync.WaitGroup
	for i, upload := range uploads {
		wg.Add(1)
		go func(i int, upload FileUpload) {
			defer wg.Done()

			record := models.NewFileRecord(upload.Name, upload.MimeType, upload.Content)

			var archivePath string
			if s.archive != nil {
				path, err := s.archive.Upload(ctx, record.ID, record.Name, bytes.NewReader(upload.Content))
				if err != nil {
					log.Printf("Failed to archive file %s: %v", record.Name, err)
				} else {
					archivePath = path
				}
			}

			results[i] = ingested{record: record, archivePath: archivePath}
		}(i, upload)
	}
	wg.Wait()

	sess.mu.Lock()
	if sess.state.Processing {
		view := sess.viewLocked()
		sess.mu.Unlock()
		// Analysis started while the batch was being archived; the
		// generation snapshot must not be split, so discard the batch.
		for _, res := range results {
			if res.archivePath != "" && s.archive != nil {
				if err := s.archive.Delete(ctx, res.archivePath); err != nil {
					log.Printf("Failed to delete archived file %s: %v", res.archivePath, err)
				}
			}
		}
		return view, wizard.ErrProcessing
	}
	for _, res := range results {
		sess.files = append(sess.files, res.record)
		if res.archivePath != "" {
			sess.archivePaths[res.record.ID] = res.archivePath
		}
	}
	sess.syncInput()
	defer sess.mu.Unlock()
	return sess.viewLocked(), nil
}

// RemoveFile drops a file from the session. Removing an unknown id is a
// no-op; the archived copy is deleted best-effort.
func (s *CaseService) RemoveFile(ctx context.Context, id uuid.UUID, fileID uuid.UUID) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	if sess.state.Processing {
		defer sess.mu.Unlock()
		return sess.viewLocked(), wizard.ErrProcessing
	}

	var archivePath string
	for i, file := range sess.files {
		if file.ID == fileID {
			sess.files = append(sess.files[:i], sess.files[i+1:]...)
			archivePath = sess.archivePaths[fileID]
			delete(sess.archivePaths, fileID)
			break
		}
	}
	sess.syncInput()
	view := sess.viewLocked()
	sess.mu.Unlock()

	if archivePath != "" && s.archive != nil {
		if err := s.archive.Delete(ctx, archivePath); err != nil {
			log.Printf("Failed to delete archived file %s: %v", archivePath, err)
		}
	}

	return view, nil
}

// DownloadFile opens a session file for streaming. The archived copy is
// preferred; when archival failed at ingest time the in-memory copy backs
// the download.
func (s *CaseService) DownloadFile(ctx context.Context, id uuid.UUID, fileID uuid.UUID) (models.FileRecord, io.ReadCloser, error) {
	sess, err := s.get(id)
	if err != nil {
		return models.FileRecord{}, nil, err
	}

	sess.mu.Lock()
	var record models.FileRecord
	found := false
	for _, file := range sess.files {
		if file.ID == fileID {
			record = file
			found = true
			break
		}
	}
	archivePath := sess.archivePaths[fileID]
	sess.mu.Unlock()

	if !found {
		return models.FileRecord{}, nil, ErrFileNotFound
	}

	if archivePath != "" && s.archive != nil {
		reader, err := s.archive.Download(ctx, archivePath)
		if err == nil {
			return record, reader, nil
		}
		log.Printf("Failed to read archived file %s, serving in-memory copy: %v", archivePath, err)
	}

	data, err := models.DecodeDataURL(record.Base64)
	if err != nil {
		return models.FileRecord{}, nil, err
	}
	return record, io.NopCloser(bytes.NewReader(data)), nil
}

// Advance moves the wizard to the next step.
func (s *CaseService) Advance(id uuid.UUID) (SessionView, error) {
	return s.apply(id, wizard.Next{})
}

// Back moves the wizard to the previous step.
func (s *CaseService) Back(id uuid.UUID) (SessionView, error) {
	return s.apply(id, wizard.Back{})
}

// Navigate jumps directly to a step, subject to the wizard guards.
func (s *CaseService) Navigate(id uuid.UUID, step models.CaseStep) (SessionView, error) {
	return s.apply(id, wizard.Navigate{To: step})
}

// StartAnalysis kicks off dossier generation. The wizard moves to the
// analysis step immediately; generation and persistence run in the
// background and route the wizard to review or back to uploads when done.
func (s *CaseService) StartAnalysis(id uuid.UUID) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	next, err := wizard.Apply(sess.state, wizard.AnalysisStarted{})
	if err != nil {
		defer sess.mu.Unlock()
		return sess.viewLocked(), err
	}
	sess.state = next
	facts := sess.facts
	files := make([]models.FileRecord, len(sess.files))
	copy(files, sess.files)
	view := sess.viewLocked()
	sess.mu.Unlock()

	// Run in background so the caller gets an immediate response.
	go s.runAnalysis(sess, facts, files)

	return view, nil
}

func (s *CaseService) runAnalysis(sess *session, facts string, files []models.FileRecord) {
	ctx := context.Background()

	dossier, err := s.generator.GenerateDossier(ctx, facts, files)
	if err != nil {
		log.Printf("Dossier generation failed for session %s: %v", sess.id, err)
		sess.mu.Lock()
		if next, applyErr := wizard.Apply(sess.state, wizard.AnalysisFailed{}); applyErr == nil {
			sess.state = next
		}
		sess.mu.Unlock()
		return
	}

	// Persistence is best-effort: a failed save keeps the dossier usable
	// in memory and only loses the stored copy.
	saved := true
	if err := s.store.Save(ctx, dossier); err != nil {
		log.Printf("Failed to save dossier for session %s: %v", sess.id, err)
		saved = false
	}

	sess.mu.Lock()
	sess.dossier = dossier
	sess.dossierSaved = saved
	if next, applyErr := wizard.Apply(sess.state, wizard.AnalysisSucceeded{}); applyErr == nil {
		sess.state = next
	}
	sess.mu.Unlock()
}

// ToggleEvidence flips one checklist item between pending and collected,
// returning the updated completion percentage. The stored status is
// updated when the dossier was saved; a failed update is logged only.
func (s *CaseService) ToggleEvidence(ctx context.Context, id uuid.UUID, itemID string) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	if sess.dossier == nil {
		defer sess.mu.Unlock()
		return sess.viewLocked(), ErrDossierNotReady
	}
	if !models.ToggleEvidence(sess.dossier.SuggestedEvidence, itemID) {
		defer sess.mu.Unlock()
		return sess.viewLocked(), ErrUnknownEvidenceItem
	}

	var newStatus models.EvidenceStatus
	for _, item := range sess.dossier.SuggestedEvidence {
		if item.ID == itemID {
			newStatus = item.Status
			break
		}
	}
	dossierID := sess.dossier.ID
	saved := sess.dossierSaved
	view := sess.viewLocked()
	sess.mu.Unlock()

	if saved {
		if err := s.store.SetEvidenceStatus(ctx, dossierID, itemID, newStatus); err != nil {
			log.Printf("Failed to persist evidence status for item %s: %v", itemID, err)
		}
	}

	return view, nil
}

// Finish hands the case off for professional review. Every checklist item
// must be collected first.
func (s *CaseService) Finish(id uuid.UUID) (string, error) {
	sess, err := s.get(id)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.dossier == nil {
		return "", ErrDossierNotReady
	}
	if percent := models.CompletionPercent(sess.dossier.SuggestedEvidence); percent < 100 {
		return "", fmt.Errorf("%w: %d%% collected", ErrChecklistIncomplete, percent)
	}
	return finishMessage, nil
}

// RestoreLatest loads the most recently saved dossier into the session and
// places the wizard on the review step. The boolean reports whether a
// stored dossier existed.
func (s *CaseService) RestoreLatest(ctx context.Context, id uuid.UUID) (SessionView, bool, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, false, err
	}

	dossier, found, err := s.store.LoadLatest(ctx)
	if err != nil {
		return SessionView{}, false, fmt.Errorf("failed to load latest dossier: %w", err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !found {
		return sess.viewLocked(), false, nil
	}
	if sess.state.Processing {
		return sess.viewLocked(), false, wizard.ErrProcessing
	}

	sess.dossier = dossier
	sess.dossierSaved = true
	sess.state.HasDossier = true
	sess.state.Step = models.StepDossierReview
	return sess.viewLocked(), true, nil
}

// LatestDossier returns the most recently saved dossier, if any.
func (s *CaseService) LatestDossier(ctx context.Context) (*models.Dossier, bool, error) {
	return s.store.LoadLatest(ctx)
}

func (s *CaseService) apply(id uuid.UUID, event wizard.Event) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	next, err := wizard.Apply(sess.state, event)
	if err != nil {
		return sess.viewLocked(), err
	}
	sess.state = next
	return sess.viewLocked(), nil
}

func (s *CaseService) get(id uuid.UUID) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// syncInput keeps the wizard's input gate aligned with the session
// contents. Callers must hold the session lock.
func (sess *session) syncInput() {
	sess.state.HasInput = strings.TrimSpace(sess.facts) != "" || len(sess.files) > 0
}

func (sess *session) view() SessionView {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.viewLocked()
}

// viewLocked builds a snapshot. Callers must hold the session lock.
func (sess *session) viewLocked() SessionView {
	files := make([]models.FileRecord, len(sess.files))
	copy(files, sess.files)

	view := SessionView{
		ID:           sess.id,
		Step:         sess.state.Step,
		Processing:   sess.state.Processing,
		Facts:        sess.facts,
		Files:        files,
		Dossier:      sess.dossier,
		DossierSaved: sess.dossierSaved,
	}
	if sess.dossier != nil {
		view.Completion = models.CompletionPercent(sess.dossier.SuggestedEvidence)
	}
	return view
}
