package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RentIncreaseType identifies the rent adjustment mechanism in the contract.
type RentIncreaseType string

const (
	IncreaseIndexLinked RentIncreaseType = "index-linked"
	IncreasePercentage  RentIncreaseType = "percentage"
	IncreaseFixedStep   RentIncreaseType = "fixed_step" // Staffelmiete
	IncreaseNone        RentIncreaseType = "none"
	IncreaseUnknown     RentIncreaseType = "unknown"
)

// Valid reports whether t is one of the known increase types.
func (t RentIncreaseType) Valid() bool {
	switch t {
	case IncreaseIndexLinked, IncreasePercentage, IncreaseFixedStep, IncreaseNone, IncreaseUnknown:
		return true
	}
	return false
}

// Tenant is one person named as tenant on the lease.
type Tenant struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate *Date  `json:"birth_date,omitempty"`
}

// FullName returns "First Last".
func (t Tenant) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

// Address is the rented property's address.
type Address struct {
	Street        string `json:"street"`
	HouseNumber   string `json:"house_number"`
	ZipCode       string `json:"zip_code"`
	City          string `json:"city"`
	ApartmentUnit string `json:"apartment_unit,omitempty"` // e.g. "3.OG links"
}

// Complete reports whether every required address component is populated.
func (a Address) Complete() bool {
	return a.Street != "" && a.HouseNumber != "" && a.ZipCode != "" && a.City != ""
}

// RentStep is one scheduled increase in a Staffelmiete agreement.
type RentStep struct {
	Date        Date            `json:"date"`
	Increase    decimal.Decimal `json:"increase"`
	NewColdRent decimal.Decimal `json:"new_cold_rent"`
}

// LeaseExtraction is the structured record produced by the AI extraction.
// Amounts are monthly EUR values. Optional fields are nil when the document
// does not state them. Once scored, the record is never mutated.
type LeaseExtraction struct {
	Tenants []Tenant `json:"tenants"`

	// Legacy single-tenant fields, auto-filled from Tenants[0].
	Name    string `json:"name,omitempty"`
	Surname string `json:"surname,omitempty"`

	Address Address `json:"address"`

	ColdRent      *decimal.Decimal `json:"cold_rent"`      // Kaltmiete
	WarmRent      *decimal.Decimal `json:"warm_rent"`      // Warmmiete
	UtilitiesCost *decimal.Decimal `json:"utilities_cost"` // Betriebskosten
	ParkingRent   *decimal.Decimal `json:"parking_rent"`

	RentIncreaseType     RentIncreaseType `json:"rent_increase_type"`
	RentIncreaseSchedule []RentStep       `json:"rent_increase_schedule,omitempty"`

	ContractStartDate *Date `json:"contract_start_date"` // Mietbeginn
	ContractEndDate   *Date `json:"contract_end_date"`   // nil = unlimited
	IsActive          bool  `json:"is_active"`

	LandlordName      string           `json:"landlord_name,omitempty"`
	LandlordAddress   string           `json:"landlord_address,omitempty"`
	DepositAmount     *decimal.Decimal `json:"deposit_amount"` // Kaution
	NoticePeriod      string           `json:"notice_period,omitempty"`
	SpecialClauses    []string         `json:"special_clauses,omitempty"`
	UtilitiesIncluded []string         `json:"utilities_included,omitempty"`
	SquareMeters      *decimal.Decimal `json:"square_meters"`
	NumberOfRooms     *decimal.Decimal `json:"number_of_rooms"`

	// ConfidenceScores maps field names to the model's 0.0-1.0 confidence.
	ConfidenceScores map[string]float64 `json:"confidence_scores"`

	ExtractedAt time.Time `json:"extraction_timestamp"`
	AIModel     string    `json:"ai_model_used"`
}

// Normalize fills derived fields: the legacy name/surname pair from the
// first tenant and a default increase type.
func (e *LeaseExtraction) Normalize() {
	if len(e.Tenants) > 0 {
		if e.Name == "" {
			e.Name = e.Tenants[0].FirstName
		}
		if e.Surname == "" {
			e.Surname = e.Tenants[0].LastName
		}
	}
	if e.RentIncreaseType == "" {
		e.RentIncreaseType = IncreaseUnknown
	}
}

// PrimaryTenant returns the first tenant, or nil when the list is empty.
func (e *LeaseExtraction) PrimaryTenant() *Tenant {
	if len(e.Tenants) == 0 {
		return nil
	}
	return &e.Tenants[0]
}

// TenantNames returns all tenant full names joined with ", ".
func (e *LeaseExtraction) TenantNames() string {
	names := make([]string, 0, len(e.Tenants))
	for _, t := range e.Tenants {
		names = append(names, t.FullName())
	}
	return strings.Join(names, ", ")
}
