// Package quality computes the deterministic quality score of a lease
// extraction. Scoring is pure arithmetic over the record: no I/O, no model
// calls, so rescoring a stored extraction always reproduces its metrics.
package quality

import (
	"fmt"
	"sort"
	"time"

	"github.com/mietwerk/leasescan/internal/model"
)

// Sub-score weights of the overall score. Must sum to 1.
const (
	confidenceWeight   = 0.30
	completenessWeight = 0.25
	validationWeight   = 0.25
	consistencyWeight  = 0.20
)

// Completeness blend: required fields dominate, bonus fields top it up.
const (
	requiredShare = 0.7
	bonusShare    = 0.3
)

// lowConfidenceThreshold marks individual field confidences worth a warning.
const lowConfidenceThreshold = 0.6

// fieldRuleFailFactor discounts a field's informational score when a rule
// directly referencing it fails.
const fieldRuleFailFactor = 0.5

// requiredConfidenceKeys are the confidence entries averaged into the
// confidence sub-score. Keys absent from the record are excluded from the
// mean rather than counted as zero.
var requiredConfidenceKeys = []string{
	"tenants",
	"address",
	"cold_rent",
	"warm_rent",
	"contract_start_date",
	"rent_increase_type",
}

// Assess scores one extraction. The reference date now anchors the
// date-dependent consistency checks, so callers can rescore historical
// records against the date they were originally assessed.
func Assess(e *model.LeaseExtraction, now time.Time) model.QualityMetrics {
	errs := []string{}
	warns := []string{}

	confidence := clamp(confidenceScore(e, &warns))
	completeness := clamp(completenessScore(e))

	validation, valResults := runChecklist(validationRules, e, now, &errs, &warns)
	consistency, consResults := runChecklist(consistencyRules, e, now, &errs, &warns)
	validation = clamp(validation)
	consistency = clamp(consistency)

	overall := clamp(confidence*confidenceWeight +
		completeness*completenessWeight +
		validation*validationWeight +
		consistency*consistencyWeight)

	return model.QualityMetrics{
		OverallScore:      overall,
		ConfidenceScore:   confidence,
		CompletenessScore: completeness,
		ValidationScore:   validation,
		ConsistencyScore:  consistency,
		ValidationErrors:  errs,
		Warnings:          warns,
		FieldScores:       fieldScores(e, append(valResults, consResults...)),
		Tier:              model.TierForScore(overall),
	}
}

// confidenceScore averages the model's self-reported confidences over the
// required keys and scales to 0-100. An empty confidence map scores zero.
func confidenceScore(e *model.LeaseExtraction, warns *[]string) float64 {
	var sum float64
	var n int
	for _, key := range requiredConfidenceKeys {
		conf, ok := e.ConfidenceScores[key]
		if !ok {
			continue
		}
		sum += conf
		n++
	}

	// Warn on weak required fields only. Sorted for reproducible output.
	keys := append([]string(nil), requiredConfidenceKeys...)
	sort.Strings(keys)
	for _, k := range keys {
		if conf, ok := e.ConfidenceScores[k]; ok && conf < lowConfidenceThreshold {
			*warns = append(*warns, fmt.Sprintf("low confidence for %s: %.2f", k, conf))
		}
	}

	if n == 0 {
		return 0
	}
	return sum / float64(n) * 100
}

// completenessScore measures how much of the contract was captured:
// 70% weight on the required fields, 30% on the bonus fields.
func completenessScore(e *model.LeaseExtraction) float64 {
	required := []bool{
		len(e.Tenants) > 0 || e.Name != "" || e.Surname != "",
		e.Address.Complete(),
		e.ColdRent != nil,
		e.WarmRent != nil,
		e.ContractStartDate != nil,
		e.RentIncreaseType != "",
	}
	bonus := []bool{
		e.LandlordName != "",
		e.DepositAmount != nil,
		e.NoticePeriod != "",
		e.ParkingRent != nil,
		e.UtilitiesCost != nil,
	}

	requiredRatio := filledRatio(required)
	bonusRatio := filledRatio(bonus)
	return (requiredRatio*requiredShare + bonusRatio*bonusShare) * 100
}

func filledRatio(filled []bool) float64 {
	if len(filled) == 0 {
		return 0
	}
	n := 0
	for _, ok := range filled {
		if ok {
			n++
		}
	}
	return float64(n) / float64(len(filled))
}

type ruleResult struct {
	Rule   Rule
	Result Result
}

// runChecklist evaluates every rule in order and scores passed/evaluated.
// Skipped rules stay out of the denominator; a skip with a reason leaves a
// note so the record shows which checks could not run. With nothing to
// evaluate the checklist scores a full 100.
func runChecklist(rules []Rule, e *model.LeaseExtraction, now time.Time, errs, warns *[]string) (float64, []ruleResult) {
	evaluated, passed := 0, 0
	results := make([]ruleResult, 0, len(rules))
	for _, r := range rules {
		res := r.Check(e, now)
		results = append(results, ruleResult{Rule: r, Result: res})
		switch res.Outcome {
		case OutcomePass:
			evaluated++
			passed++
		case OutcomeWarn:
			// Advisory breach: the note lands in the issue list but the
			// checklist scores it as passed.
			evaluated++
			passed++
			record(r.Severity, res.Message, errs, warns)
		case OutcomeFail:
			evaluated++
			record(r.Severity, res.Message, errs, warns)
		case OutcomeSkip:
			if res.Message != "" {
				record(r.Severity, fmt.Sprintf("check %q skipped: %s", r.Name, res.Message), errs, warns)
			}
		}
	}
	if evaluated == 0 {
		return 100, results
	}
	return float64(passed) / float64(evaluated) * 100, results
}

func record(sev Severity, msg string, errs, warns *[]string) {
	if sev == SeverityWarning {
		*warns = append(*warns, msg)
		return
	}
	*errs = append(*errs, msg)
}

// fieldScores builds the informational per-field breakdown: the field's
// confidence on a 0-100 scale, discounted when a rule referencing the field
// failed. Fields without a reported confidence start from a neutral 100.
func fieldScores(e *model.LeaseExtraction, results []ruleResult) map[string]float64 {
	scores := make(map[string]float64, len(e.ConfidenceScores))
	for field, conf := range e.ConfidenceScores {
		scores[field] = clamp(conf * 100)
	}
	for _, rr := range results {
		if rr.Result.Outcome != OutcomeFail {
			continue
		}
		for _, field := range rr.Rule.Fields {
			base, ok := scores[field]
			if !ok {
				base = 100
			}
			scores[field] = base * fieldRuleFailFactor
		}
	}
	return scores
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
