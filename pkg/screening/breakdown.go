// Package screening talks to the resume screening service that consumes the
// forms this module autosaves. The service owns the scoring algorithm; this
// package only carries its request/response shapes and the weighting contract
// applied to component scores.
package screening

// Component weights applied by the screening service. Overall applies the
// same weighting so local aggregation agrees with the service.
const (
	WeightSkillMatch     = 0.40
	WeightExperience     = 0.30
	WeightEducation      = 0.20
	WeightCertifications = 0.10
)

// Breakdown holds the component scores of a screened resume, each on a
// 0-100 scale.
type Breakdown struct {
	SkillMatch     float64 `json:"skill_match_score"`
	Experience     float64 `json:"experience_score"`
	Education      float64 `json:"education_score"`
	Certifications float64 `json:"certification_score"`
}

// Overall computes the weighted total, clamped to the 0-100 range.
func (b Breakdown) Overall() float64 {
	total := b.SkillMatch*WeightSkillMatch +
		b.Experience*WeightExperience +
		b.Education*WeightEducation +
		b.Certifications*WeightCertifications
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

// Result is the screening service's verdict for one resume against one job
// description.
type Result struct {
	Overall         float64   `json:"overall_score"`
	Breakdown       Breakdown `json:"breakdown"`
	MatchedSkills   []string  `json:"matched_skills"`
	MissingSkills   []string  `json:"missing_skills"`
	Explanation     string    `json:"explanation"`
	ComplianceFlags []string  `json:"compliance_flags"`
}

// BiasReport is the response of the compliance check endpoint.
type BiasReport struct {
	Score           float64  `json:"bias_score"`
	RiskLevel       string   `json:"risk_level"`
	Recommendations []string `json:"recommendations"`
}
