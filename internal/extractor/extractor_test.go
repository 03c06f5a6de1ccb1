package extractor

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mietwerk/leasescan/internal/config"
	"github.com/mietwerk/leasescan/internal/model"
	"github.com/mietwerk/leasescan/pkg/anthropic"
)

// fakeClient replays canned responses and errors in order.
type fakeClient struct {
	responses []string
	errs      []error
	calls     int
	lastReq   anthropic.MessageRequest
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	text := ""
	if i < len(f.responses) {
		text = f.responses[i]
	}
	return &anthropic.MessageResponse{
		Model:   "claude-sonnet-4-5-20250929",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}, nil
}

const sampleResponse = `{
  "tenants": [{"first_name": "Anna", "last_name": "Schmidt"}],
  "address": {"street": "Leopoldstraße", "house_number": "12", "zip_code": "80331", "city": "München"},
  "cold_rent": 1040.00,
  "warm_rent": 1405.00,
  "utilities_cost": 365,
  "rent_increase_type": "index-linked",
  "contract_start_date": "2023-01-01",
  "contract_end_date": null,
  "is_active": true,
  "deposit_amount": "2500.00",
  "confidence_scores": {"cold_rent": 0.95, "warm_rent": 0.9}
}`

func testConfig() config.AnthropicConfig {
	return config.AnthropicConfig{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 4096,
	}
}

func TestExtract(t *testing.T) {
	client := &fakeClient{responses: []string{sampleResponse}}
	x := New(client, testConfig())

	e, err := x.Extract(context.Background(), "Mietvertrag ...")
	require.NoError(t, err)

	require.Len(t, e.Tenants, 1)
	assert.Equal(t, "Anna", e.Tenants[0].FirstName)
	// Normalize fills the legacy single-tenant fields.
	assert.Equal(t, "Anna", e.Name)
	assert.Equal(t, "Schmidt", e.Surname)
	assert.Equal(t, "München", e.Address.City)
	require.NotNil(t, e.ColdRent)
	assert.Equal(t, "1040", e.ColdRent.String())
	// Amounts arrive as numbers or strings; both decode.
	require.NotNil(t, e.DepositAmount)
	assert.Equal(t, "2500", e.DepositAmount.String())
	require.NotNil(t, e.ContractStartDate)
	assert.Equal(t, "2023-01-01", e.ContractStartDate.String())
	assert.Nil(t, e.ContractEndDate)
	assert.Equal(t, model.IncreaseIndexLinked, e.RentIncreaseType)
	assert.Equal(t, "claude-sonnet-4-5-20250929", e.AIModel)
	assert.False(t, e.ExtractedAt.IsZero())
}

func TestExtractSendsCachedSystemPrompt(t *testing.T) {
	client := &fakeClient{responses: []string{sampleResponse}}
	x := New(client, testConfig())

	_, err := x.Extract(context.Background(), "Mietvertrag ...")
	require.NoError(t, err)

	require.Len(t, client.lastReq.System, 1)
	assert.NotNil(t, client.lastReq.System[0].CacheControl)
	require.Len(t, client.lastReq.Messages, 1)
	assert.Contains(t, client.lastReq.Messages[0].Content, "Mietvertrag ...")
}

func TestExtractRetriesTransientFailure(t *testing.T) {
	client := &fakeClient{
		errs:      []error{eris.New("overloaded")},
		responses: []string{"", sampleResponse},
	}
	x := New(client, testConfig())

	e, err := x.Extract(context.Background(), "Mietvertrag ...")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.NotNil(t, e.ColdRent)
}

func TestExtractFailsAfterRetries(t *testing.T) {
	client := &fakeClient{
		errs: []error{eris.New("overloaded"), eris.New("overloaded"), eris.New("overloaded")},
	}
	x := New(client, testConfig())

	_, err := x.Extract(context.Background(), "Mietvertrag ...")
	require.Error(t, err)
	assert.Equal(t, retryAttempts, client.calls)
	assert.Contains(t, err.Error(), "create message")
}

func TestExtractInvalidJSON(t *testing.T) {
	client := &fakeClient{responses: []string{"Sorry, I cannot parse this document."}}
	x := New(client, testConfig())

	_, err := x.Extract(context.Background(), "Mietvertrag ...")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse model response")
}

func TestDecodeExtractionFencedResponse(t *testing.T) {
	fenced := "```json\n" + sampleResponse + "\n```"

	e, err := decodeExtraction(fenced)
	require.NoError(t, err)
	assert.Equal(t, "München", e.Address.City)
}

func TestDecodeExtractionClampsConfidences(t *testing.T) {
	e, err := decodeExtraction(`{"confidence_scores": {"cold_rent": 1.4, "warm_rent": -0.2}}`)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, e.ConfidenceScores["cold_rent"], 1e-9)
	assert.Zero(t, e.ConfidenceScores["warm_rent"])
}

func TestDecodeExtractionUnknownIncreaseType(t *testing.T) {
	e, err := decodeExtraction(`{"rent_increase_type": "staffel"}`)
	require.NoError(t, err)
	assert.Equal(t, model.IncreaseUnknown, e.RentIncreaseType)
}

func TestDecodeExtractionDefaultsIncreaseType(t *testing.T) {
	e, err := decodeExtraction(`{}`)
	require.NoError(t, err)
	assert.Equal(t, model.IncreaseUnknown, e.RentIncreaseType)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", "Here is the result:\n{\"a\":1}\nDone.", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}
