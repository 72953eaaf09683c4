package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	updatedAt := time.Date(2026, 5, 15, 14, 30, 45, 123456789, time.UTC)

	token := EncodeToken(updatedAt, "quote-42")
	require.NotEmpty(t, token)

	decodedTime, decodedID, err := DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, updatedAt.Equal(decodedTime))
	assert.Equal(t, "quote-42", decodedID)

	// Non UTC instants survive as the same instant
	sydney := time.FixedZone("AEST", 10*60*60)
	local := time.Date(2026, 5, 16, 0, 30, 45, 0, sydney)
	decodedTime, _, err = DecodeToken(EncodeToken(local, "q"))
	require.NoError(t, err)
	assert.True(t, local.Equal(decodedTime))
}

func TestDecodeTokenError(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantMsg string
	}{
		{"invalid base64", "this is not base64!", "base64 decode"},
		{"missing separator", EncodeToken(time.Time{}, "x")[:10], "split"},
		{"invalid time", "bm90YXRpbWV8cXVvdGUtMQ", "time parse"}, // "notatime|quote-1"
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeToken(tt.token)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestNextToken(t *testing.T) {
	type row struct {
		id string
		at time.Time
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{{"a", base.Add(3 * time.Hour)}, {"b", base.Add(2 * time.Hour)}, {"c", base.Add(time.Hour)}}
	key := func(r row) (time.Time, string) { return r.at, r.id }

	page, next := NextToken(rows, 2, key)
	assert.Len(t, page, 2)
	require.NotNil(t, next)
	at, id, err := DecodeToken(*next)
	require.NoError(t, err)
	assert.Equal(t, "b", id)
	assert.True(t, at.Equal(rows[1].at))

	page, next = NextToken(rows, 3, key)
	assert.Len(t, page, 3)
	assert.Nil(t, next)
}
