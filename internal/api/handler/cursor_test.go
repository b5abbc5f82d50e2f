package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gptb70564-code/cw-bot/internal/api/storage"
)

func TestBidCursor_RoundTrip(t *testing.T) {
	submittedAt := time.Date(2026, 8, 24, 12, 30, 0, 123456789, time.UTC)
	original := &storage.BidCursor{
		SubmittedAt: submittedAt,
		RecordID:    "3f1c9a2e-0000-0000-0000-000000000001",
	}

	encoded, err := EncodeBidCursor(original)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeBidCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)

	assert.Equal(t, original.SubmittedAt.UnixNano(), decoded.SubmittedAt.UnixNano())
	assert.Equal(t, original.RecordID, decoded.RecordID)
}

func TestDecodeBidCursor(t *testing.T) {
	tests := []struct {
		name      string
		cursor    string
		wantNil   bool
		wantErr   bool
		errString string
	}{
		{
			name:    "empty cursor means first page",
			cursor:  "",
			wantNil: true,
		},
		{
			name:    "not base64",
			cursor:  "%%%not-base64%%%",
			wantErr: true,
		},
		{
			name:      "missing separator",
			cursor:    "MTIzNDU2Nzg5", // "123456789"
			wantErr:   true,
			errString: "invalid cursor format",
		},
		{
			name:      "non-numeric timestamp",
			cursor:    "YWJjfHJlY29yZC0x", // "abc|record-1"
			wantErr:   true,
			errString: "invalid submittedAt in cursor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeBidCursor(tt.cursor)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errString != "" {
					assert.Contains(t, err.Error(), tt.errString)
				}
				return
			}

			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cursor)
			}
		})
	}
}
