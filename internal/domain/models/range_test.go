package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    Range
		wantErr bool
	}{
		{name: "temperature", raw: "13-15", want: Range{Min: 13, Max: 15}},
		{name: "humidity with decimals", raw: "90.5-95", want: Range{Min: 90.5, Max: 95}},
		{name: "padded", raw: " 13 - 15 ", want: Range{Min: 13, Max: 15}},
		{name: "degenerate", raw: "14-14", want: Range{Min: 14, Max: 14}},
		{name: "wrong separator", raw: "13to15", wantErr: true},
		{name: "three tokens", raw: "13-15-17", wantErr: true},
		{name: "negative bound", raw: "-2-4", wantErr: true},
		{name: "not numeric", raw: "a-b", wantErr: true},
		{name: "empty max", raw: "13-", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "inverted", raw: "15-13", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRange("temperature_requirement", tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				var vErr *ValidationError
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, "temperature_requirement", vErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRangeJSONUsesStoredForm(t *testing.T) {
	payload, err := json.Marshal(struct {
		Temp Range `json:"temp"`
	}{Temp: Range{Min: 13, Max: 15}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"temp":"13-15"}`, string(payload))

	var decoded struct {
		Temp Range `json:"temp"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"temp":"90-95"}`), &decoded))
	assert.Equal(t, Range{Min: 90, Max: 95}, decoded.Temp)

	err = json.Unmarshal([]byte(`{"temp":"13to15"}`), &decoded)
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestNewBatchRequestDefaults(t *testing.T) {
	req := NewBatchRequest{
		Variety:         "Cavendish",
		QuantityKg:      1200,
		HarvestDate:     "2026-10-01",
		SourceFarm:      "Davao North",
		StorageLocation: "Zone A",
	}

	batch, err := req.ToBatch()
	require.NoError(t, err)
	assert.Equal(t, DefaultShelfLifeDays, batch.EstimatedShelfLifeDays)
	assert.Equal(t, "A", batch.QualityGrade)
	assert.Equal(t, Range{Min: 13, Max: 15}, batch.TemperatureRequirement)
	assert.Equal(t, Range{Min: 90, Max: 95}, batch.HumidityRequirement)
	assert.Equal(t, StatusInStorage, batch.Status)
	assert.Equal(t, RiskLow, batch.SpoilageRisk)
}

func TestNewBatchRequestRejectsMalformedRange(t *testing.T) {
	req := NewBatchRequest{
		Variety:             "Cavendish",
		QuantityKg:          10,
		HarvestDate:         "2026-10-01",
		SourceFarm:          "Davao North",
		StorageLocation:     "Zone A",
		HumidityRequirement: "90to95",
	}

	_, err := req.ToBatch()
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "humidity_requirement", vErr.Field)
}

func TestParseRiskLevel(t *testing.T) {
	level, err := ParseRiskLevel("HIGH")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, level)

	_, err = ParseRiskLevel("critical")
	assert.Error(t, err)
}
