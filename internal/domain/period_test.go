package domain

import (
	"encoding/json"
	"testing"
	"time"

	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Period
		wantErr  bool
	}{
		{name: "valid", input: "2025-03", expected: Period{Year: 2025, Month: time.March}},
		{name: "december", input: "2024-12", expected: Period{Year: 2024, Month: time.December}},
		{name: "month out of range", input: "2025-13", wantErr: true},
		{name: "full date", input: "2025-03-01", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePeriod(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, customError.ErrInvalidPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
			assert.Equal(t, tt.input, p.String())
		})
	}
}

func TestPeriod_PrevNext(t *testing.T) {
	jan := MustParsePeriod("2025-01")

	assert.Equal(t, "2024-12", jan.Prev().String())
	assert.Equal(t, "2025-02", jan.Next().String())
	assert.Equal(t, jan, jan.Next().Prev())
	assert.True(t, jan.Prev().Before(jan))
	assert.True(t, jan.Next().After(jan))
	assert.False(t, jan.Before(jan))
}

func TestPeriod_DueDate(t *testing.T) {
	tests := []struct {
		name     string
		period   string
		day      int
		expected time.Time
	}{
		{name: "regular day", period: "2025-03", day: 15, expected: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "clamped in february", period: "2025-02", day: 31, expected: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{name: "leap february", period: "2024-02", day: 30, expected: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{name: "clamped in april", period: "2025-04", day: 31, expected: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)},
		{name: "non-positive day", period: "2025-04", day: 0, expected: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MustParsePeriod(tt.period).DueDate(tt.day))
		})
	}
}

func TestPeriod_JSONAndSQL(t *testing.T) {
	p := MustParsePeriod("2025-02")

	b, err := json.Marshal(struct {
		Period Period `json:"period"`
	}{p})
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"2025-02"}`, string(b))

	var decoded struct {
		Period *Period `json:"period"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"period":"2025-07"}`), &decoded))
	assert.Equal(t, "2025-07", decoded.Period.String())

	b, err = json.Marshal(struct {
		Period Period `json:"period"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":""}`, string(b))

	var empty struct {
		Period Period `json:"period"`
	}
	require.NoError(t, json.Unmarshal(b, &empty))
	assert.True(t, empty.Period.IsZero())

	v, err := p.Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-02", v)

	var scanned Period
	require.NoError(t, scanned.Scan([]byte("2025-02")))
	assert.Equal(t, p, scanned)
	assert.Error(t, scanned.Scan(42))
}
