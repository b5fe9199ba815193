// Package reports persists and retrieves evaluation reports. The full
// report is stored as a msgpack blob alongside a few indexed columns for
// listing, so reads never need to re-run any scoring.
package reports

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/insight/internal/evaluation"
)

// ErrNotFound is returned when no report matches the query.
var ErrNotFound = errors.New("report not found")

// Summary is the listing projection of a stored report. Score is nil for
// reports whose composite was pending.
type Summary struct {
	ID          string    `json:"id"`
	EntityID    string    `json:"entity_id"`
	Sector      string    `json:"sector"`
	AsOf        time.Time `json:"as_of"`
	GeneratedAt time.Time `json:"generated_at"`
	Category    string    `json:"category"`
	Score       *float64  `json:"score"`
}

// Repository handles report database operations
type Repository struct {
	db  *sql.DB // evaluations.db - reports table
	log zerolog.Logger
}

// summaryColumns avoids SELECT * so schema changes cannot silently break
// scanning. Order must match scanSummary.
const summaryColumns = `id, entity_id, sector, as_of, generated_at, category, score`

// NewRepository creates a new report repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "reports").Logger(),
	}
}

// Save inserts a finished report together with the request snapshot that
// produced it, so the nightly job can re-score from stored inputs. A nil
// request is allowed. Reports are append-only; saving the same id twice
// is an error.
func (r *Repository) Save(report *evaluation.Report, req *evaluation.Request) error {
	if report == nil {
		return fmt.Errorf("cannot save nil report")
	}

	payload, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", report.ID, err)
	}

	var snapshot interface{}
	if req != nil {
		encoded, err := msgpack.Marshal(req)
		if err != nil {
			return fmt.Errorf("failed to encode request snapshot for %s: %w", report.ID, err)
		}
		snapshot = encoded
	}

	var score interface{}
	if report.Composite.Score != nil {
		score = *report.Composite.Score
	}

	query := `
		INSERT INTO reports
		(id, entity_id, sector, as_of, generated_at, category, score, payload, request)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		report.ID,
		report.EntityID,
		report.Sector,
		report.AsOf.UTC().Format(time.RFC3339),
		report.GeneratedAt.UTC().Format(time.RFC3339),
		string(report.Composite.Category),
		score,
		payload,
		snapshot,
	)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.ID, err)
	}

	r.log.Info().
		Str("report_id", report.ID).
		Str("entity", report.EntityID).
		Str("category", string(report.Composite.Category)).
		Msg("Report saved")

	return nil
}

// GetByID retrieves one full report by id.
func (r *Repository) GetByID(id string) (*evaluation.Report, error) {
	var payload []byte
	err := r.db.QueryRow("SELECT payload FROM reports WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", id, err)
	}

	return decodeReport(payload)
}

// GetLatestForEntity retrieves the most recent report for an entity by
// as-of date, generation time breaking ties.
func (r *Repository) GetLatestForEntity(entityID string) (*evaluation.Report, error) {
	query := `
		SELECT payload FROM reports
		WHERE entity_id = ?
		ORDER BY as_of DESC, generated_at DESC
		LIMIT 1
	`

	var payload []byte
	err := r.db.QueryRow(query, entityID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest report for %s: %w", entityID, err)
	}

	return decodeReport(payload)
}

// GetLatestRequest retrieves the most recent stored request snapshot for
// an entity. Rows saved without a snapshot are skipped.
func (r *Repository) GetLatestRequest(entityID string) (*evaluation.Request, error) {
	query := `
		SELECT request FROM reports
		WHERE entity_id = ? AND request IS NOT NULL
		ORDER BY as_of DESC, generated_at DESC
		LIMIT 1
	`

	var snapshot []byte
	err := r.db.QueryRow(query, entityID).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request snapshot for %s: %w", entityID, err)
	}

	var req evaluation.Request
	if err := msgpack.Unmarshal(snapshot, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request snapshot for %s: %w", entityID, err)
	}
	return &req, nil
}

// ListRecent returns summaries of the most recently generated reports.
func (r *Repository) ListRecent(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + summaryColumns + " FROM reports ORDER BY generated_at DESC LIMIT ?"
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// ListForEntity returns summaries for one entity, newest first.
func (r *Repository) ListForEntity(entityID string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := "SELECT " + summaryColumns + ` FROM reports
		WHERE entity_id = ?
		ORDER BY as_of DESC, generated_at DESC
		LIMIT ?`
	rows, err := r.db.Query(query, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for %s: %w", entityID, err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// EntityIDs returns the distinct entity ids with at least one stored
// report. Used by the nightly re-evaluation job.
func (r *Repository) EntityIDs() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT entity_id FROM reports ORDER BY entity_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list entity ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entity id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteOlderThan removes reports generated before the cutoff and returns
// how many were deleted. Used by the retention job.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(
		"DELETE FROM reports WHERE generated_at < ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old reports: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted reports: %w", err)
	}

	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Old reports pruned")
	}

	return deleted, nil
}

// Count returns the total number of stored reports.
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

func decodeReport(payload []byte) (*evaluation.Report, error) {
	var report evaluation.Report
	if err := msgpack.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report payload: %w", err)
	}
	return &report, nil
}

func scanSummaries(rows *sql.Rows) ([]Summary, error) {
	var summaries []Summary
	for rows.Next() {
		var (
			s           Summary
			asOf        string
			generatedAt string
			score       sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &s.EntityID, &s.Sector, &asOf, &generatedAt, &s.Category, &score); err != nil {
			return nil, fmt.Errorf("failed to scan report summary: %w", err)
		}

		parsedAsOf, err := time.Parse(time.RFC3339, asOf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse as_of %q: %w", asOf, err)
		}
		s.AsOf = parsedAsOf

		parsedGeneratedAt, err := time.Parse(time.RFC3339, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse generated_at %q: %w", generatedAt, err)
		}
		s.GeneratedAt = parsedGeneratedAt

		if score.Valid {
			s.Score = &score.Float64
		}

		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
