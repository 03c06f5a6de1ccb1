package extractor

import "fmt"

// systemPrompt instructs the model to behave as a German lease analyst.
// It is constant across documents so responses after the first request in a
// batch run hit the prompt cache.
const systemPrompt = `You are an expert analyst for German residential lease agreements (Mietverträge). You extract structured data from contract text and return it as JSON. You never invent values: a field the contract does not state is null. You answer with JSON only, no prose and no markdown fences.`

// extractionPrompt is the per-document user prompt. The schema mirrors the
// LeaseExtraction JSON encoding exactly, so the response can be unmarshaled
// directly.
const extractionPrompt = `Extract the following fields from this German rental contract.

Rules:
- Dates in YYYY-MM-DD format.
- Monetary amounts and areas as plain numbers (e.g. 1040.00), monthly EUR values, no currency symbols.
- Fields not stated in the contract are null.
- "cold_rent" is the Kaltmiete/Grundmiete, "warm_rent" is the Warmmiete/Gesamtmiete including Nebenkosten.
- "rent_increase_type" is one of: "index-linked" (Indexmiete), "percentage", "fixed_step" (Staffelmiete), "none", "unknown".
- For a Staffelmiete, list every step in "rent_increase_schedule" in chronological order.
- "is_active" is true when the contract has started and not ended as of today.
- "confidence_scores" maps each extracted field name to your confidence from 0.0 to 1.0: 0.9-1.0 when the contract states the value explicitly, 0.6-0.8 when it required interpretation, below 0.6 when you are unsure.

Return a JSON object with this shape:
{
  "tenants": [{"first_name": "...", "last_name": "...", "birth_date": null}],
  "address": {"street": "...", "house_number": "...", "zip_code": "...", "city": "...", "apartment_unit": null},
  "cold_rent": null,
  "warm_rent": null,
  "utilities_cost": null,
  "parking_rent": null,
  "rent_increase_type": "unknown",
  "rent_increase_schedule": [{"date": "YYYY-MM-DD", "increase": 0, "new_cold_rent": 0}],
  "contract_start_date": null,
  "contract_end_date": null,
  "is_active": false,
  "landlord_name": null,
  "landlord_address": null,
  "deposit_amount": null,
  "notice_period": null,
  "special_clauses": [],
  "utilities_included": [],
  "square_meters": null,
  "number_of_rooms": null,
  "confidence_scores": {}
}

Contract text:
%s`

func buildUserPrompt(contractText string) string {
	return fmt.Sprintf(extractionPrompt, contractText)
}
