package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"jurigen-backend/models"

	genai "google.golang.org/genai"
)

var (
	ErrEmptyCase        = errors.New("nothing to analyze: facts and files are both empty")
	ErrGenerationFailed = errors.New("failed to generate dossier")
	ErrInvalidDossier   = errors.New("model returned a malformed dossier")
)

const (
	dossierModel    = "gemini-3-pro-preview"
	transcribeModel = "gemini-3-flash-preview"
	chatModel       = "gemini-3-pro-preview"

	maxRetries     = 3
	initialBackoff = time.Second
	callTimeout    = 120 * time.Second

	// Deep-analysis budget for dossier generation.
	thinkingBudget int32 = 32768
)

const dossierPromptTemplate = `Analise profundamente os seguintes fatos e documentos jurídicos para gerar um dossiê técnico de alta precisão.

Fatos relatados: %s

Sua análise deve:
1. Extrair entidades críticas: Datas, Nomes de Partes, Valores Monetários e Cláusulas Importantes encontradas nos documentos.
2. Estabelecer conexões estratégicas entre o relato do usuário e as provas anexadas.
3. Sugerir quais novas provas são fundamentais para cobrir lacunas no caso.

Gere um objeto JSON contendo:
- title: Título formal.
- summary: Resumo executivo.
- legalAnalysis: Análise técnica das teses.
- factsTimeline: Lista cronológica de eventos.
- riskAssessment: Avaliação de riscos.
- extractedEntities: Lista de objetos {type: 'DATE'|'NAME'|'VALUE'|'CLAUSE', value: string, context: string}.
- strategicLinks: Lista de objetos {fact: string, evidence: string, strength: 'strong'|'moderate'|'weak'}.
- suggestedEvidence: Checklist para o usuário {id, title, description, status: 'pending', importance: 'high'|'medium'|'low'}.`

const transcribePrompt = "Transcreva fielmente este áudio jurídico."

const chatSystemPrompt = "Você é um assistente jurídico especializado em triagem de casos. Ajude o usuário a entender seu dossiê e quais provas faltam. Seja formal e objetivo."

// AnalysisService is the adapter for every Gemini call the wizard makes:
// dossier generation, audio transcription and the assistant chat.
type AnalysisService struct {
	client *genai.Client
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(client *genai.Client) *AnalysisService {
	return &AnalysisService{client: client}
}

// dossierSchema is the structured-output contract for generation. The model
// must return exactly this object; enum fields are constrained to their
// declared value sets.
var dossierSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":          {Type: genai.TypeString},
		"summary":        {Type: genai.TypeString},
		"legalAnalysis":  {Type: genai.TypeString},
		"riskAssessment": {Type: genai.TypeString},
		"factsTimeline": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"extractedEntities": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type":    {Type: genai.TypeString, Enum: []string{"DATE", "NAME", "VALUE", "CLAUSE"}},
					"value":   {Type: genai.TypeString},
					"context": {Type: genai.TypeString},
				},
				Required: []string{"type", "value", "context"},
			},
		},
		"strategicLinks": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"fact":     {Type: genai.TypeString},
					"evidence": {Type: genai.TypeString},
					"strength": {Type: genai.TypeString, Enum: []string{"strong", "moderate", "weak"}},
				},
				Required: []string{"fact", "evidence", "strength"},
			},
		},
		"suggestedEvidence": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id":          {Type: genai.TypeString},
					"title":       {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
					"status":      {Type: genai.TypeString, Enum: []string{"pending", "collected"}},
					"importance":  {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
				},
				Required: []string{"id", "title", "description", "status", "importance"},
			},
		},
	},
	Required: []string{
		"title", "summary", "legalAnalysis", "riskAssessment",
		"factsTimeline", "extractedEntities", "strategicLinks", "suggestedEvidence",
	},
}

// GenerateDossier sends the facts narrative plus every attached file to the
// model and parses the structured JSON reply into a Dossier. A malformed or
// schema-violating reply fails the whole call; there is no partial fill.
func (s *AnalysisService) GenerateDossier(ctx context.Context, facts string, files []models.FileRecord) (*models.Dossier, error) {
	if strings.TrimSpace(facts) == "" && len(files) == 0 {
		return nil, ErrEmptyCase
	}

	parts := make([]*genai.Part, 0, len(files)+1)
	for _, file := range files {
		data, err := models.DecodeDataURL(file.Base64)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", file.Name, err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: file.MimeType, Data: data},
		})
	}
	parts = append(parts, &genai.Part{Text: fmt.Sprintf(dossierPromptTemplate, facts)})

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   dossierSchema,
		ThinkingConfig:   &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(thinkingBudget)},
	}

	text, err := s.generate(ctx, dossierModel, []*genai.Content{{Parts: parts}}, config)
	if err != nil {
		return nil, err
	}

	return ParseDossier([]byte(text))
}

// Transcribe converts one recorded audio payload to text.
func (s *AnalysisService) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: audio}},
		{Text: transcribePrompt},
	}

	text, err := s.generate(ctx, transcribeModel, []*genai.Content{{Parts: parts}}, nil)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Complete sends one chat turn with the prior history and the triage system
// instruction, returning the model's reply.
func (s *AnalysisService) Complete(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.RoleUser
		if msg.Role == models.ChatRoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Text}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: message}},
	})

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: chatSystemPrompt}}},
	}

	return s.generate(ctx, chatModel, contents, config)
}

// generate runs one model call with bounded retry and a per-attempt timeout,
// returning the concatenated text of the first candidate.
func (s *AnalysisService) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	if s.client == nil {
		return "", errors.New("gemini client not set")
	}

	return retryGenerate(ctx, model, func(callCtx context.Context) (string, error) {
		resp, err := s.client.Models.GenerateContent(callCtx, model, contents, config)
		if err != nil {
			return "", err
		}
		return candidateText(resp)
	})
}

// retryGenerate retries a model call with doubling backoff. A cancelled
// context stops the remaining attempts instead of sleeping through them.
func retryGenerate(ctx context.Context, model string, call func(context.Context) (string, error)) (string, error) {
	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrGenerationFailed, ctx.Err())
			}
			backoff *= 2
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		text, err := call(callCtx)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		return text, nil
	}

	log.Printf("Gemini call to %s failed after %d attempts: %v", model, maxRetries, lastErr)
	return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

// candidateText extracts the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("model returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("candidate has no parts (finish reason: %s)", candidate.FinishReason)
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		builder.WriteString(part.Text)
	}
	if builder.Len() == 0 {
		return "", errors.New("model returned empty content")
	}
	return builder.String(), nil
}

// dossierPayload mirrors the wire schema field names.
type dossierPayload struct {
	Title             string                   `json:"title"`
	Summary           string                   `json:"summary"`
	LegalAnalysis     string                   `json:"legalAnalysis"`
	RiskAssessment    string                   `json:"riskAssessment"`
	FactsTimeline     []string                 `json:"factsTimeline"`
	ExtractedEntities []models.ExtractedEntity `json:"extractedEntities"`
	StrategicLinks    []models.StrategicLink   `json:"strategicLinks"`
	SuggestedEvidence []models.EvidenceItem    `json:"suggestedEvidence"`
}

// ParseDossier decodes and validates a generation reply. The provider's
// structured-output guarantee is not trusted: enum fields, evidence ids and
// id uniqueness are all re-checked, and any violation rejects the reply.
func ParseDossier(raw []byte) (*models.Dossier, error) {
	var payload dossierPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDossier, err)
	}

	if strings.TrimSpace(payload.Title) == "" || strings.TrimSpace(payload.Summary) == "" {
		return nil, fmt.Errorf("%w: missing title or summary", ErrInvalidDossier)
	}

	for i, entity := range payload.ExtractedEntities {
		if !entity.Type.Valid() {
			return nil, fmt.Errorf("%w: entity %d has unknown type %q", ErrInvalidDossier, i, entity.Type)
		}
	}
	for i, link := range payload.StrategicLinks {
		if !link.Strength.Valid() {
			return nil, fmt.Errorf("%w: link %d has unknown strength %q", ErrInvalidDossier, i, link.Strength)
		}
	}

	seen := make(map[string]bool, len(payload.SuggestedEvidence))
	for i := range payload.SuggestedEvidence {
		item := &payload.SuggestedEvidence[i]
		if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.Title) == "" {
			return nil, fmt.Errorf("%w: evidence item %d missing id or title", ErrInvalidDossier, i)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("%w: duplicate evidence id %q", ErrInvalidDossier, item.ID)
		}
		seen[item.ID] = true
		// Checklist items always start uncollected, whatever the model says.
		if item.Status == "" {
			item.Status = models.EvidencePending
		}
		if !item.Status.Valid() {
			return nil, fmt.Errorf("%w: evidence item %d has unknown status %q", ErrInvalidDossier, i, item.Status)
		}
		item.Status = models.EvidencePending
		if !item.Importance.Valid() {
			return nil, fmt.Errorf("%w: evidence item %d has unknown importance %q", ErrInvalidDossier, i, item.Importance)
		}
	}

	return &models.Dossier{
		Title:             payload.Title,
		Summary:           payload.Summary,
		LegalAnalysis:     payload.LegalAnalysis,
		RiskAssessment:    payload.RiskAssessment,
		FactsTimeline:     models.StringList(payload.FactsTimeline),
		ExtractedEntities: models.EntityList(payload.ExtractedEntities),
		StrategicLinks:    models.LinkList(payload.StrategicLinks),
		SuggestedEvidence: payload.SuggestedEvidence,
	}, nil
}
