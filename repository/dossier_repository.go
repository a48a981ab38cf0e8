package repository

import (
	"context"
	"errors"
	"fmt"

	"jurigen-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEvidenceNotFound is returned when a checklist update matches no row.
var ErrEvidenceNotFound = errors.New("evidence item not found")

// DossierRepository handles database operations for dossiers and their
// evidence checklists
type DossierRepository struct {
	db *pgxpool.Pool
}

// NewDossierRepository creates a new dossier repository
func NewDossierRepository(db *pgxpool.Pool) *DossierRepository {
	return &DossierRepository{db: db}
}

// Save inserts the dossier row and then its evidence items as a dependent
// batch keyed by the new dossier id. Evidence rows are only attempted after
// the parent insert succeeds; if the batch fails afterwards the parent row
// stays behind and the error reports the partial state.
func (r *DossierRepository) Save(ctx context.Context, dossier *models.Dossier) error {
	query := `
		INSERT INTO dossiers (
			title, summary, legal_analysis, risk_assessment,
			facts_timeline, extracted_entities, strategic_links
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		dossier.Title,
		dossier.Summary,
		dossier.LegalAnalysis,
		dossier.RiskAssessment,
		dossier.FactsTimeline,
		dossier.ExtractedEntities,
		dossier.StrategicLinks,
	).Scan(&dossier.ID, &dossier.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert dossier: %w", err)
	}

	if len(dossier.SuggestedEvidence) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for pos, item := range dossier.SuggestedEvidence {
		batch.Queue(`
			INSERT INTO evidence_items (
				dossier_id, item_id, position, title, description, status, importance
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			dossier.ID, item.ID, pos, item.Title, item.Description, item.Status, item.Importance,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range dossier.SuggestedEvidence {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("dossier %s saved but evidence items failed: %w", dossier.ID, err)
		}
	}

	return nil
}

// LoadLatest returns the most recently created dossier with its evidence
// items in their original order. The second return value is false when the
// store is empty; that is not an error.
func (r *DossierRepository) LoadLatest(ctx context.Context) (*models.Dossier, bool, error) {
	dossier := &models.Dossier{}
	query := `
		SELECT id, title, summary, legal_analysis, risk_assessment,
			facts_timeline, extracted_entities, strategic_links, created_at
		FROM dossiers
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query).Scan(
		&dossier.ID,
		&dossier.Title,
		&dossier.Summary,
		&dossier.LegalAnalysis,
		&dossier.RiskAssessment,
		&dossier.FactsTimeline,
		&dossier.ExtractedEntities,
		&dossier.StrategicLinks,
		&dossier.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load latest dossier: %w", err)
	}

	items, err := r.loadEvidence(ctx, dossier.ID)
	if err != nil {
		return nil, false, err
	}
	dossier.SuggestedEvidence = items

	return dossier, true, nil
}

// loadEvidence fetches the checklist rows for one dossier, ordered by their
// insert position.
func (r *DossierRepository) loadEvidence(ctx context.Context, dossierID uuid.UUID) ([]models.EvidenceItem, error) {
	query := `
		SELECT item_id, title, description, status, importance
		FROM evidence_items
		WHERE dossier_id = $1
		ORDER BY position ASC`

	rows, err := r.db.Query(ctx, query, dossierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load evidence items: %w", err)
	}
	defer rows.Close()

	items := make([]models.EvidenceItem, 0)
	for rows.Next() {
		var item models.EvidenceItem
		err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Description,
			&item.Status,
			&item.Importance,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// SetEvidenceStatus persists one checklist toggle so the collection guide
// survives a reload.
func (r *DossierRepository) SetEvidenceStatus(ctx context.Context, dossierID uuid.UUID, itemID string, status models.EvidenceStatus) error {
	query := `
		UPDATE evidence_items SET
			status = $3
		WHERE dossier_id = $1 AND item_id = $2`

	tag, err := r.db.Exec(ctx, query, dossierID, itemID, status)
	if err != nil {
		return fmt.Errorf("failed to update evidence status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEvidenceNotFound
	}
	return nil
}
