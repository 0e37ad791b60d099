package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"dnamatcher/logging"
	"dnamatcher/types"
)

// Case lifecycle states used by the corpus queries.
const (
	CaseOpen     = "open"
	CaseResolved = "resolved"
	CaseExpired  = "expired"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cases (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	category TEXT,
	status TEXT NOT NULL DEFAULT 'open',
	latitude REAL,
	longitude REAL,
	search_radius_km REAL,
	created_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_cases_type_status ON cases(type, status);

CREATE TABLE IF NOT EXISTS visual_dna (
	photo_id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	case_type TEXT NOT NULL,
	status TEXT NOT NULL,
	dna_id TEXT,
	algorithm_version TEXT,
	entity_type TEXT,
	category TEXT,
	average_hash TEXT,
	perceptual_hash TEXT,
	quality_score REAL,
	record BLOB NOT NULL,
	updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_dna_case ON visual_dna(case_id);
CREATE INDEX IF NOT EXISTS idx_dna_case_type_status ON visual_dna(case_type, status);
CREATE INDEX IF NOT EXISTS idx_dna_perceptual_hash ON visual_dna(perceptual_hash);
CREATE INDEX IF NOT EXISTS idx_dna_version ON visual_dna(algorithm_version);

CREATE TABLE IF NOT EXISTS matches (
	id TEXT PRIMARY KEY,
	source_photo_id TEXT NOT NULL,
	target_photo_id TEXT NOT NULL,
	source_case_id TEXT,
	target_case_id TEXT,
	overall REAL NOT NULL,
	match_type TEXT,
	feedback TEXT NOT NULL DEFAULT 'pending',
	record BLOB NOT NULL,
	created_at TEXT,
	UNIQUE(source_photo_id, target_photo_id)
);
CREATE INDEX IF NOT EXISTS idx_matches_source ON matches(source_photo_id);
CREATE INDEX IF NOT EXISTS idx_matches_target ON matches(target_photo_id);`

// Store is the sqlite-backed persistence layer. Full records are kept as
// JSON blobs next to the columns the queries filter and index on.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCase inserts or updates a case record.
func (s *Store) SaveCase(ctx context.Context, c *types.Case) error {
	status := c.Status
	if status == "" {
		status = CaseOpen
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cases (id, type, category, status, latitude, longitude, search_radius_km, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))`,
		c.ID, string(c.Type), c.Category, status, c.Latitude, c.Longitude, c.SearchRadiusKM)
	if err != nil {
		return fmt.Errorf("save case %s: %w", c.ID, err)
	}
	return nil
}

// CaseByID returns the case, or nil when it does not exist.
func (s *Store) CaseByID(ctx context.Context, id string) (*types.Case, error) {
	var c types.Case
	var caseType string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, category, status, latitude, longitude, search_radius_km
		FROM cases WHERE id = ?`, id).
		Scan(&c.ID, &caseType, &c.Category, &c.Status, &c.Latitude, &c.Longitude, &c.SearchRadiusKM)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load case %s: %w", id, err)
	}
	c.Type = types.CaseType(caseType)
	return &c, nil
}

// ResolveCase marks a case resolved so its photos drop out of scans.
func (s *Store) ResolveCase(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE cases SET status = ? WHERE id = ?`, CaseResolved, id)
	if err != nil {
		return fmt.Errorf("resolve case %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("resolve case %s: not found", id)
	}
	return nil
}

// SaveDNA inserts or replaces the fingerprint of a photo. Re-extraction
// of the same photo overwrites the previous record.
func (s *Store) SaveDNA(ctx context.Context, dna *types.VisualDNA) error {
	blob, err := json.Marshal(dna)
	if err != nil {
		return fmt.Errorf("marshal dna for %s: %w", dna.PhotoID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO visual_dna (
			photo_id, case_id, case_type, status, dna_id, algorithm_version,
			entity_type, category, average_hash, perceptual_hash, quality_score,
			record, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))`,
		dna.PhotoID, dna.CaseID, string(dna.CaseType), string(dna.Status),
		dna.DNAID, dna.AlgorithmVersion, string(dna.EntityType), dna.Category,
		dna.AverageHash, dna.PerceptualHash, dna.QualityScore, blob)
	if err != nil {
		return fmt.Errorf("save dna for %s: %w", dna.PhotoID, err)
	}
	return nil
}

// DNAByPhotoID returns the stored fingerprint, or nil when the photo has
// never been extracted.
func (s *Store) DNAByPhotoID(ctx context.Context, photoID string) (*types.VisualDNA, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM visual_dna WHERE photo_id = ?`, photoID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load dna for %s: %w", photoID, err)
	}
	return unmarshalDNA(blob, photoID)
}

// ActiveDNA returns usable fingerprints of open cases of the given type,
// capped at limit. Failed extractions never enter a scan.
func (s *Store) ActiveDNA(ctx context.Context, caseType types.CaseType, limit int) ([]*types.VisualDNA, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.record FROM visual_dna d
		JOIN cases c ON c.id = d.case_id
		WHERE d.case_type = ? AND c.status = ? AND d.status IN (?, ?)
		ORDER BY d.updated_at DESC
		LIMIT ?`,
		string(caseType), CaseOpen, string(types.StatusCompleted), string(types.StatusPartial), limit)
	if err != nil {
		return nil, fmt.Errorf("query active dna: %w", err)
	}
	defer rows.Close()

	var out []*types.VisualDNA
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan active dna row: %w", err)
		}
		dna, err := unmarshalDNA(blob, "")
		if err != nil {
			// One corrupt row must not abort a scan.
			logging.Warn("skipping corrupt dna record", "error", err)
			continue
		}
		out = append(out, dna)
	}
	return out, rows.Err()
}

// StaleDNA returns photo IDs whose fingerprints were produced by an older
// algorithm version, for background reprocessing.
func (s *Store) StaleDNA(ctx context.Context, currentVersion string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT photo_id FROM visual_dna
		WHERE algorithm_version != ? AND status != ?
		LIMIT ?`,
		currentVersion, string(types.StatusFailed), limit)
	if err != nil {
		return nil, fmt.Errorf("query stale dna: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale dna row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveMatch persists a match record. The (source, target) photo pair is
// unique; re-discovering a known pair is an idempotent no-op that leaves
// the stored record untouched, so repeated scans never error or duplicate.
func (s *Store) SaveMatch(ctx context.Context, m *types.MatchRecord) error {
	blob, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal match %s: %w", m.ID, err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO matches (
			id, source_photo_id, target_photo_id, source_case_id, target_case_id,
			overall, match_type, feedback, record, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))`,
		m.ID, m.SourcePhotoID, m.TargetPhotoID, m.SourceCaseID, m.TargetCaseID,
		m.Overall, m.MatchType, string(m.Feedback), blob)
	if err != nil {
		return fmt.Errorf("save match %s -> %s: %w", m.SourcePhotoID, m.TargetPhotoID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		logging.Debug("duplicate match pair ignored",
			"source", m.SourcePhotoID, "target", m.TargetPhotoID)
	}
	return nil
}

// MatchesForPhoto returns stored matches where the photo is the source,
// ranked by score.
func (s *Store) MatchesForPhoto(ctx context.Context, photoID string) ([]types.MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record, feedback FROM matches
		WHERE source_photo_id = ?
		ORDER BY overall DESC`, photoID)
	if err != nil {
		return nil, fmt.Errorf("query matches for %s: %w", photoID, err)
	}
	defer rows.Close()

	var out []types.MatchRecord
	for rows.Next() {
		var blob []byte
		var feedback string
		if err := rows.Scan(&blob, &feedback); err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		var m types.MatchRecord
		if err := json.Unmarshal(blob, &m); err != nil {
			return nil, fmt.Errorf("unmarshal match record: %w", err)
		}
		// Feedback is mutable after the blob was written.
		m.Feedback = types.FeedbackState(feedback)
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateFeedback records a user verdict on a match.
func (s *Store) UpdateFeedback(ctx context.Context, matchID string, state types.FeedbackState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE matches SET feedback = ? WHERE id = ?`, string(state), matchID)
	if err != nil {
		return fmt.Errorf("update feedback for %s: %w", matchID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update feedback for %s: not found", matchID)
	}
	return nil
}

// Stats summarizes the corpus.
type Stats struct {
	OpenCases     int `json:"open_cases"`
	TotalPhotos   int `json:"total_photos"`
	FailedPhotos  int `json:"failed_photos"`
	StoredMatches int `json:"stored_matches"`
	Confirmed     int `json:"confirmed_matches"`
}

// GetStats collects corpus counts for the stats command.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	queries := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&st.OpenCases, `SELECT COUNT(*) FROM cases WHERE status = ?`, []any{CaseOpen}},
		{&st.TotalPhotos, `SELECT COUNT(*) FROM visual_dna`, nil},
		{&st.FailedPhotos, `SELECT COUNT(*) FROM visual_dna WHERE status = ?`, []any{string(types.StatusFailed)}},
		{&st.StoredMatches, `SELECT COUNT(*) FROM matches`, nil},
		{&st.Confirmed, `SELECT COUNT(*) FROM matches WHERE feedback = ?`, []any{string(types.FeedbackConfirmed)}},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("collect stats: %w", err)
		}
	}
	return &st, nil
}

func unmarshalDNA(blob []byte, photoID string) (*types.VisualDNA, error) {
	var dna types.VisualDNA
	if err := json.Unmarshal(blob, &dna); err != nil {
		return nil, fmt.Errorf("unmarshal dna record %s: %w", photoID, err)
	}
	return &dna, nil
}
