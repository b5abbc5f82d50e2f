package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gptb70564-code/cw-bot/internal/api/storage"
)

func DecodeBidCursor(cursorStr string) (*storage.BidCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var submittedAt int64
	_, err = fmt.Sscanf(decodedParts[0], "%d", &submittedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid submittedAt in cursor: %w", err)
	}

	return &storage.BidCursor{
		SubmittedAt: time.Unix(0, submittedAt),
		RecordID:    decodedParts[1],
	}, nil
}

func EncodeBidCursor(cursor *storage.BidCursor) (string, error) {
	cs := fmt.Sprintf("%d|%s", cursor.SubmittedAt.UnixNano(), cursor.RecordID)
	return base64.StdEncoding.EncodeToString([]byte(cs)), nil
}
