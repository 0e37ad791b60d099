package types

import "time"

// EntityType is the coarse classification of what a photo shows.
type EntityType string

const (
	EntityPerson   EntityType = "person"
	EntityPet      EntityType = "pet"
	EntityVehicle  EntityType = "vehicle"
	EntityDocument EntityType = "document"
	EntityItem     EntityType = "item"
	EntityUnknown  EntityType = "unknown"
)

// CaseType distinguishes the two report corpora matched against each other.
type CaseType string

const (
	CaseLost  CaseType = "lost"
	CaseFound CaseType = "found"
)

// Opposite returns the case type a photo of type t is matched against.
func (t CaseType) Opposite() CaseType {
	if t == CaseLost {
		return CaseFound
	}
	return CaseLost
}

// ProcessingStatus tracks the lifecycle of a DNA extraction.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
	StatusPartial    ProcessingStatus = "partial"
)

// QualityTier buckets the 0-100 quality score.
type QualityTier string

const (
	QualityHigh   QualityTier = "high"
	QualityMedium QualityTier = "medium"
	QualityLow    QualityTier = "low"
)

// FeedbackState is set by a human reviewer on a persisted match.
type FeedbackState string

const (
	FeedbackPending   FeedbackState = "pending"
	FeedbackViewed    FeedbackState = "viewed"
	FeedbackConfirmed FeedbackState = "confirmed"
	FeedbackRejected  FeedbackState = "rejected"
)

// DominantColor is one entry of the top-N dominant color list.
type DominantColor struct {
	Name    string  `json:"name"`
	Abbr    string  `json:"abbr"`
	Percent float64 `json:"percent"`
}

// ColorFeatures holds the HSV histogram block of a DNA record.
type ColorFeatures struct {
	HueHist  []float64       `json:"hue_hist"`
	SatHist  []float64       `json:"sat_hist"`
	ValHist  []float64       `json:"val_hist"`
	Dominant []DominantColor `json:"dominant"`
	AvgR     float64         `json:"avg_r"`
	AvgG     float64         `json:"avg_g"`
	AvgB     float64         `json:"avg_b"`
	AvgH     float64         `json:"avg_h"`
	AvgS     float64         `json:"avg_s"`
	AvgV     float64         `json:"avg_v"`
}

// ShapeFeatures holds the edge-derived block of a DNA record.
type ShapeFeatures struct {
	Signature   []float64 `json:"signature"`
	AspectRatio float64   `json:"aspect_ratio"`
	EdgeDensity float64   `json:"edge_density"`
}

// TextureFeatures holds the variance-derived block of a DNA record.
// Pattern is one of solid, smooth, textured, complex, striped, spotted.
type TextureFeatures struct {
	Signature  []float64 `json:"signature"`
	Pattern    string    `json:"pattern"`
	Confidence float64   `json:"confidence"`
}

// OCRFeatures holds validated OCR output. Text is nil when the raw OCR text
// was classified as garbage; Identifiers is empty in that case and Score is 0.
type OCRFeatures struct {
	Text        *string             `json:"text"`
	Confidence  float64             `json:"confidence"`
	Identifiers map[string][]string `json:"identifiers"`
	Score       float64             `json:"score"`
}

// HasText reports whether usable (non-garbage) text survived validation.
func (o *OCRFeatures) HasText() bool {
	return o != nil && o.Text != nil && *o.Text != ""
}

// HasIdentifiers reports whether any structured identifier was extracted.
func (o *OCRFeatures) HasIdentifiers() bool {
	if o == nil {
		return false
	}
	for _, ids := range o.Identifiers {
		if len(ids) > 0 {
			return true
		}
	}
	return false
}

// VisualDNA is the composite fingerprint record, one per photo. Feature
// blocks are nil when the corresponding extractor failed or produced nothing;
// nil always means "feature unavailable", never "zero similarity".
type VisualDNA struct {
	PhotoID  string   `json:"photo_id"`
	CaseID   string   `json:"case_id"`
	CaseType CaseType `json:"case_type"`
	Category string   `json:"category"`

	EntityType       EntityType `json:"entity_type"`
	EntityConfidence float64    `json:"entity_confidence"`
	Labels           []string   `json:"labels"`

	AverageHash    string `json:"average_hash"`
	DifferenceHash string `json:"difference_hash"`
	PerceptualHash string `json:"perceptual_hash"`
	BlockHash      string `json:"block_hash"`

	Color   *ColorFeatures   `json:"color"`
	Shape   *ShapeFeatures   `json:"shape"`
	Texture *TextureFeatures `json:"texture"`
	OCR     *OCRFeatures     `json:"ocr"`

	Embedding     []float32 `json:"embedding"`
	EmbeddingHash string    `json:"embedding_hash"`

	DNAID        string      `json:"dna_id"`
	QualityScore float64     `json:"quality_score"`
	QualityTier  QualityTier `json:"quality_tier"`
	BlurLevel    string      `json:"blur_level"`
	Blurry       bool        `json:"blurry"`

	Width  int `json:"width"`
	Height int `json:"height"`

	Status           ProcessingStatus `json:"status"`
	ErrorReason      string           `json:"error_reason,omitempty"`
	AlgorithmVersion string           `json:"algorithm_version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WeightVector holds the six comparison dimension weights. A valid vector is
// normalized: components sum to 1.0 and are all non-negative.
type WeightVector struct {
	Hash    float64 `json:"hash"`
	Color   float64 `json:"color"`
	Shape   float64 `json:"shape"`
	OCR     float64 `json:"ocr"`
	Visual  float64 `json:"visual"`
	Objects float64 `json:"objects"`
}

// Sum returns the total of all six components.
func (w WeightVector) Sum() float64 {
	return w.Hash + w.Color + w.Shape + w.OCR + w.Visual + w.Objects
}

// Normalized returns a new vector scaled so the components sum to 1.0.
// A zero vector is returned unchanged.
func (w WeightVector) Normalized() WeightVector {
	total := w.Sum()
	if total <= 0 {
		return w
	}
	return WeightVector{
		Hash:    w.Hash / total,
		Color:   w.Color / total,
		Shape:   w.Shape / total,
		OCR:     w.OCR / total,
		Visual:  w.Visual / total,
		Objects: w.Objects / total,
	}
}

// DimensionScores holds the per-dimension similarity scores of one
// comparison, each in [0,100]. A negative value marks a dimension that could
// not be computed for the pair; it must be renormalized away, never counted
// as zero.
type DimensionScores struct {
	Hash     float64 `json:"hash"`
	Color    float64 `json:"color"`
	Shape    float64 `json:"shape"`
	OCR      float64 `json:"ocr"`
	Visual   float64 `json:"visual"`
	Objects  float64 `json:"objects"`
	Location float64 `json:"location"`
}

// MatchReason is one human-readable entry in a match explanation.
type MatchReason struct {
	Icon  string  `json:"icon"`
	Tag   string  `json:"tag"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Comparison is the full result of comparing two DNA records.
type Comparison struct {
	Overall            float64         `json:"overall"`
	Scores             DimensionScores `json:"scores"`
	Weights            WeightVector    `json:"weights"`
	MatchType          string          `json:"match_type"`
	Reasons            []MatchReason   `json:"reasons"`
	MatchedIdentifiers []string        `json:"matched_identifiers"`
}

// MatchRecord is persisted for every ordered (source, target) photo pair that
// clears the minimum overall score. The weight vector used for the comparison
// is snapshotted so the overall score can be re-derived from the stored
// per-dimension scores.
type MatchRecord struct {
	ID                 string          `json:"id"`
	SourcePhotoID      string          `json:"source_photo_id"`
	TargetPhotoID      string          `json:"target_photo_id"`
	SourceCaseID       string          `json:"source_case_id"`
	TargetCaseID       string          `json:"target_case_id"`
	Scores             DimensionScores `json:"scores"`
	Overall            float64         `json:"overall"`
	MatchType          string          `json:"match_type"`
	Reasons            []MatchReason   `json:"reasons"`
	MatchedIdentifiers []string        `json:"matched_identifiers"`
	Weights            WeightVector    `json:"weights"`
	Feedback           FeedbackState   `json:"feedback"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Case holds the report metadata the matcher needs for filtering and
// location boosting. The full case record lives with the storage layer.
type Case struct {
	ID             string   `json:"id"`
	Type           CaseType `json:"type"`
	Category       string   `json:"category"`
	Status         string   `json:"status"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	SearchRadiusKM float64  `json:"search_radius_km"`
}

// HasLocation reports whether the case carries usable coordinates. The
// zero origin point doubles as "unset".
func (c *Case) HasLocation() bool {
	return c != nil && (c.Latitude != 0 || c.Longitude != 0)
}
