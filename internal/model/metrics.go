package model

// QualityTier labels the overall score band of an extraction.
type QualityTier string

const (
	TierExcellent QualityTier = "excellent" // >= 90
	TierGood      QualityTier = "good"      // >= 75
	TierFair      QualityTier = "fair"      // >= 60
	TierPoor      QualityTier = "poor"
)

// TierForScore maps an overall 0-100 score to its quality tier.
// Thresholds are inclusive lower bounds: 90, 75, 60.
func TierForScore(score float64) QualityTier {
	switch {
	case score >= 90:
		return TierExcellent
	case score >= 75:
		return TierGood
	case score >= 60:
		return TierFair
	default:
		return TierPoor
	}
}

// QualityMetrics is the deterministic quality assessment of one extraction.
// All sub-scores and the overall score are on a 0-100 scale. Recomputing
// from the same extraction (and reference date) yields identical metrics.
type QualityMetrics struct {
	OverallScore      float64 `json:"overall_score"`
	ConfidenceScore   float64 `json:"confidence_score"`
	CompletenessScore float64 `json:"completeness_score"`
	ValidationScore   float64 `json:"validation_score"`
	ConsistencyScore  float64 `json:"consistency_score"`

	ValidationErrors []string `json:"validation_errors"`
	Warnings         []string `json:"warnings"`

	// FieldScores blends per-field confidence with rule outcomes.
	// Informational only; does not feed the overall score.
	FieldScores map[string]float64 `json:"field_scores,omitempty"`

	Tier QualityTier `json:"quality_tier"`
}
