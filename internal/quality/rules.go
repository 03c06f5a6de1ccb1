package quality

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mietwerk/leasescan/internal/model"
)

// Outcome is the result of evaluating one rule against a record.
type Outcome int

const (
	// OutcomePass counts toward the numerator and denominator.
	OutcomePass Outcome = iota
	// OutcomeFail counts toward the denominator only and records an issue.
	OutcomeFail
	// OutcomeWarn records an issue but scores like a pass. For advisory
	// checks whose breach flags the contract as unusual, not the
	// extraction as wrong.
	OutcomeWarn
	// OutcomeSkip is excluded from scoring entirely. A skip with a reason
	// records a note; a skip without one means the rule did not apply.
	OutcomeSkip
)

// Severity determines which issue list a failed rule feeds.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Result carries a rule's outcome plus the failure message or skip reason.
type Result struct {
	Outcome Outcome
	Message string
}

func pass() Result                            { return Result{Outcome: OutcomePass} }
func fail(format string, args ...any) Result  { return Result{Outcome: OutcomeFail, Message: fmt.Sprintf(format, args...)} }
func warnf(format string, args ...any) Result { return Result{Outcome: OutcomeWarn, Message: fmt.Sprintf(format, args...)} }
func skip() Result                            { return Result{Outcome: OutcomeSkip} }
func skipf(format string, args ...any) Result { return Result{Outcome: OutcomeSkip, Message: fmt.Sprintf(format, args...)} }

// Rule is one independent business check. Rules never see each other's
// outcomes, so new rules can be appended without touching existing ones.
type Rule struct {
	Name     string
	Severity Severity
	// Fields lists the extraction fields the rule directly references,
	// used for the informational per-field scores.
	Fields []string
	Check  func(e *model.LeaseExtraction, now time.Time) Result
}

// Plausible monthly rent bounds in EUR. Anything outside is treated as an
// extraction error rather than an unusual contract.
var (
	rentFloor   = decimal.NewFromInt(100)
	rentCeiling = decimal.NewFromInt(10000)
)

// Customary deposit range per §551 BGB practice: two to three months cold rent.
var (
	depositMinFactor = decimal.NewFromInt(2)
	depositMaxFactor = decimal.NewFromInt(3)
)

// maxRooms is the sanity ceiling for the room count of a residential unit.
var maxRooms = decimal.NewFromInt(20)

var zipCodePattern = regexp.MustCompile(`^\d{5}$`)

// validationRules checks individual field values against business rules.
var validationRules = []Rule{
	{
		Name:     "warm rent covers cold rent",
		Severity: SeverityError,
		Fields:   []string{"cold_rent", "warm_rent"},
		Check: func(e *model.LeaseExtraction, _ time.Time) Result {
			if e.ColdRent == nil || e.WarmRent == nil {
				return skipf("cold or warm rent missing")
			}
			if e.WarmRent.LessThan(*e.ColdRent) {
				return fail("warm rent lower than cold rent: %s < %s", e.WarmRent, e.ColdRent)
			}
			return pass()
		},
	},
	{
		Name:     "contract end after start",
		Severity: SeverityError,
		Fields:   []string{"contract_start_date", "contract_end_date"},
		Check: func(e *model.LeaseExtraction, _ time.Time) Result {
			if e.ContractEndDate == nil {
				return skip() // unlimited contract, rule does not apply
			}
			if e.ContractStartDate == nil {
				return skipf("contract start date missing")
			}
			if !e.ContractEndDate.After(*e.ContractStartDate) {
				return fail("contract end date not after start date: %s <= %s", e.ContractEndDate, e.ContractStartDate)
			}
			return pass()
		},
	},
	{
		Name:     "cold rent within plausible range",
		Severity: SeverityError,
		Fields:   []string{"cold_rent"},
		Check: func(e *model.LeaseExtraction, _ time.Time) Result {
			if e.ColdRent == nil {
				return skipf("cold rent missing")
			}
			if e.ColdRent.LessThan(rentFloor) || e.ColdRent.GreaterThan(rentCeiling) {
				return fail("cold rent outside plausible range: %s", e.ColdRent)
			}
			return pass()
		},
	},
	{
		Name:     "warm rent within plausible range",
		Severity: SeverityError,
		Fields:   []string{"warm_rent"},
		Check: func(e *model.LeaseExtraction, _ time.Time) Result {
			if e.WarmRent == nil {
				return skipf("warm rent missing")
			}
			if e.WarmRent.LessThan(rentFloor) || e.WarmRent.GreaterThan(rentCeiling) {
				return fail("warm rent outside plausible range: %s", e.WarmRent)
			}
			return pass()
		},
	},
	{
		Name:     "deposit within customary range",
		Severity: SeverityWarning, // an unusual deposit is plausible, not invalid
		Fields:   []string{"deposit_amount", "cold_rent"},
		Check: func(e *model.LeaseExtraction, _ time.Time) Result {
			if e.DepositAmount == nil {
				return skip()
			}
			if e.ColdRent == nil {
				return skipf("cold rent missing")
			}
			low := e.ColdRent.Mul(depositMinFactor)
			high := e.ColdRent.Mul(depositMaxFactor)
			if e.DepositAmount.LessThan(low) || e.DepositAmount.GreaterThan(high) {
				// Advisory: an unusual deposit does not mean the values
				// were extracted wrong, so the score is untouched.
				return warnf("deposit %s outside customary 2-3x cold rent (%s-%s)", e.DepositAmount, low, high)
			}
			return pass()
		},
	},
	{
		Name:     "postal code format",
		Severity: SeverityError,
		Fields:   []string{"address"},
		Check: func(e *model.LeaseExtraction, _ time.Time) Result {
			if e.Address.ZipCode == "" {
				return skipf("postal code missing")
			}
			if !zipCodePattern.MatchString(e.Address.ZipCode) {
				return fail("postal code not a German 5-digit code: %q", e.Address.ZipCode)
			}
			return pass()
		},
	},
	{
		Name:     "room count sane",
		Severity: SeverityError,
		Fields:   []string{"number_of_rooms"},
		Check: func(e *model.LeaseExtraction, _ time.Time) Result {
			if e.NumberOfRooms == nil {
				return skip()
			}
			if e.NumberOfRooms.IsPositive() && !e.NumberOfRooms.GreaterThan(maxRooms) {
				return pass()
			}
			return fail("implausible number of rooms: %s", e.NumberOfRooms)
		},
	},
}

// consistencyRules checks cross-field logic.
var consistencyRules = []Rule{
	{
		Name:     "active flag matches contract dates",
		Severity: SeverityError,
		Fields:   []string{"is_active", "contract_start_date", "contract_end_date"},
		Check: func(e *model.LeaseExtraction, now time.Time) Result {
			if e.ContractStartDate == nil {
				return skipf("contract start date missing")
			}
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			started := !today.Before(e.ContractStartDate.Time)
			ended := e.ContractEndDate != nil && today.After(e.ContractEndDate.Time)
			expected := started && !ended
			if e.IsActive != expected {
				return fail("is_active=%t inconsistent with contract dates (start %s, end %s)",
					e.IsActive, e.ContractStartDate, formatEndDate(e.ContractEndDate))
			}
			return pass()
		},
	},
	{
		Name:     "increase schedule matches type",
		Severity: SeverityWarning,
		Fields:   []string{"rent_increase_type", "rent_increase_schedule"},
		Check: func(e *model.LeaseExtraction, _ time.Time) Result {
			switch e.RentIncreaseType {
			case "":
				return skipf("rent increase type missing")
			case model.IncreaseFixedStep:
				if len(e.RentIncreaseSchedule) == 0 {
					return fail("rent increase type is fixed_step but no schedule provided")
				}
				for i := 1; i < len(e.RentIncreaseSchedule); i++ {
					if !e.RentIncreaseSchedule[i].Date.After(e.RentIncreaseSchedule[i-1].Date) {
						return fail("rent increase schedule dates not strictly increasing at step %d", i+1)
					}
				}
				return pass()
			case model.IncreaseNone:
				if len(e.RentIncreaseSchedule) > 0 {
					return fail("rent increase type is none but a schedule is present")
				}
				return pass()
			default:
				// index-linked, percentage, unknown: a schedule is optional.
				return pass()
			}
		},
	},
	{
		Name:     "postal code matches city",
		Severity: SeverityWarning,
		Fields:   []string{"address"},
		Check: func(e *model.LeaseExtraction, _ time.Time) Result {
			if e.Address.City == "" {
				return skipf("city missing")
			}
			ranges, known := lookupCityRanges(e.Address.City)
			if !known {
				return skip() // only cities in the lookup table are checked
			}
			zip, ok := parseZip(e.Address.ZipCode)
			if !ok {
				return skipf("postal code missing or malformed")
			}
			for _, r := range ranges {
				if zip >= r[0] && zip <= r[1] {
					return pass()
				}
			}
			return fail("postal code %s unusual for %s", e.Address.ZipCode, e.Address.City)
		},
	},
	{
		Name:     "parking rent below cold rent",
		Severity: SeverityWarning,
		Fields:   []string{"parking_rent", "cold_rent"},
		Check: func(e *model.LeaseExtraction, _ time.Time) Result {
			if e.ParkingRent == nil {
				return skip()
			}
			if e.ColdRent == nil {
				return skipf("cold rent missing")
			}
			if !e.ParkingRent.LessThan(*e.ColdRent) {
				return fail("parking rent %s not below cold rent %s", e.ParkingRent, e.ColdRent)
			}
			return pass()
		},
	},
}

func formatEndDate(d *model.Date) string {
	if d == nil {
		return "unlimited"
	}
	return d.String()
}
