package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"jurigen-backend/capture"
	"jurigen-backend/models"
	"jurigen-backend/service"
	"jurigen-backend/wizard"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler handles HTTP requests for intake wizard sessions
type SessionHandler struct {
	caseService *service.CaseService
	transcriber capture.Transcriber

	mu        sync.Mutex
	recorders map[uuid.UUID]*capture.Recorder
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(caseService *service.CaseService, transcriber capture.Transcriber) *SessionHandler {
	return &SessionHandler{
		caseService: caseService,
		transcriber: transcriber,
		recorders:   make(map[uuid.UUID]*capture.Recorder),
	}
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	view := h.caseService.CreateSession()

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    view,
	})
}

// GetSession handles GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	view, err := h.caseService.Session(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Session not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// SetFactsRequest represents the request body for replacing the facts text
type SetFactsRequest struct {
	Facts string `json:"facts"`
}

// SetFacts handles PUT /api/sessions/:id/facts
func (h *SessionHandler) SetFacts(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req SetFactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	view, err := h.caseService.SetFacts(id, req.Facts)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// AddFiles handles POST /api/sessions/:id/files
func (h *SessionHandler) AddFiles(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Multipart form with at least one file is required",
			},
		})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_FILES",
				"message": "No files provided",
			},
		})
		return
	}

	uploads := make([]service.FileUpload, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "READ_FAILED",
					"message": "Failed to read uploaded file " + header.Filename,
				},
			})
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "READ_FAILED",
					"message": "Failed to read uploaded file " + header.Filename,
				},
			})
			return
		}

		uploads = append(uploads, service.FileUpload{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Content:  content,
		})
	}

	view, err := h.caseService.AddFiles(c.Request.Context(), id, uploads)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    view,
	})
}

// RemoveFile handles DELETE /api/sessions/:id/files/:fileId
func (h *SessionHandler) RemoveFile(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid file ID format",
			},
		})
		return
	}

	view, err := h.caseService.RemoveFile(c.Request.Context(), id, fileID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// DownloadFile handles GET /api/sessions/:id/files/:fileId/download
func (h *SessionHandler) DownloadFile(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid file ID format",
			},
		})
		return
	}

	record, reader, err := h.caseService.DownloadFile(c.Request.Context(), id, fileID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", record.Name))
	c.DataFromReader(http.StatusOK, record.Size, record.MimeType, reader, nil)
}

// Advance handles POST /api/sessions/:id/advance
func (h *SessionHandler) Advance(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	view, err := h.caseService.Advance(id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// Back handles POST /api/sessions/:id/back
func (h *SessionHandler) Back(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	view, err := h.caseService.Back(id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// NavigateRequest represents the request body for a sidebar jump
type NavigateRequest struct {
	Step string `json:"step" binding:"required"`
}

// Navigate handles POST /api/sessions/:id/navigate
func (h *SessionHandler) Navigate(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	view, err := h.caseService.Navigate(id, models.CaseStep(req.Step))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// StartAnalysis handles POST /api/sessions/:id/analyze
func (h *SessionHandler) StartAnalysis(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	view, err := h.caseService.StartAnalysis(id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// Generation runs in the background; the client polls session state.
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    view,
	})
}

// StartRecording handles POST /api/sessions/:id/recording/start
func (h *SessionHandler) StartRecording(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if _, err := h.caseService.Session(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Session not found",
			},
		})
		return
	}

	started := h.recorder(id).Begin(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"recording": started,
		},
	})
}

// PushChunk handles POST /api/sessions/:id/recording/chunks
func (h *SessionHandler) PushChunk(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	chunk, err := io.ReadAll(c.Request.Body)
	if err != nil || len(chunk) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Request body must contain an audio chunk",
			},
		})
		return
	}

	if err := h.recorder(id).Push(chunk); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_RECORDING",
				"message": "No recording in progress",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"received": len(chunk),
		},
	})
}

// StopRecording handles POST /api/sessions/:id/recording/stop
func (h *SessionHandler) StopRecording(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	text, transcribed := h.recorder(id).End(c.Request.Context())
	h.releaseRecorder(id)
	if !transcribed {
		// The recording is discarded; the session facts are untouched.
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"transcribed": false,
			},
		})
		return
	}

	view, err := h.caseService.AppendTranscription(id, text)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"transcribed": true,
			"text":        text,
			"session":     view,
		},
	})
}

// ToggleEvidence handles POST /api/sessions/:id/evidence/:itemId/toggle
func (h *SessionHandler) ToggleEvidence(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	view, err := h.caseService.ToggleEvidence(c.Request.Context(), id, c.Param("itemId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// Finish handles POST /api/sessions/:id/finish
func (h *SessionHandler) Finish(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	message, err := h.caseService.Finish(id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": message,
		},
	})
}

// RestoreLatest handles POST /api/sessions/:id/restore
func (h *SessionHandler) RestoreLatest(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	view, found, err := h.caseService.RestoreLatest(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No saved dossier to restore",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// recorder returns the session's audio recorder, creating it on first use.
func (h *SessionHandler) recorder(id uuid.UUID) *capture.Recorder {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.recorders[id]
	if !ok {
		rec = capture.NewRecorder(capture.ClientProvider(), h.transcriber)
		h.recorders[id] = rec
	}
	return rec
}

// releaseRecorder drops a finished recorder so the map does not grow with
// every capture session.
func (h *SessionHandler) releaseRecorder(id uuid.UUID) {
	h.mu.Lock()
	delete(h.recorders, id)
	h.mu.Unlock()
}

func (h *SessionHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid session ID format",
			},
		})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service and wizard errors onto the response envelope.
func (h *SessionHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Session not found",
			},
		})
	case errors.Is(err, wizard.ErrProcessing):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROCESSING",
				"message": "Analysis is in progress; the wizard is locked",
			},
		})
	case errors.Is(err, wizard.ErrNoInput):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_INPUT",
				"message": "Describe the facts or attach a file before continuing",
			},
		})
	case errors.Is(err, wizard.ErrNoDossier), errors.Is(err, service.ErrDossierNotReady):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_DOSSIER",
				"message": "The dossier has not been generated yet",
			},
		})
	case errors.Is(err, wizard.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STEP",
				"message": err.Error(),
			},
		})
	case errors.Is(err, service.ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "File not found",
			},
		})
	case errors.Is(err, service.ErrUnknownEvidenceItem):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Evidence item not found",
			},
		})
	case errors.Is(err, service.ErrChecklistIncomplete):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CHECKLIST_INCOMPLETE",
				"message": err.Error(),
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": err.Error(),
			},
		})
	}
}
