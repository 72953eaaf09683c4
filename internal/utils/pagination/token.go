package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano

// EncodeToken creates a keyset token from the sort timestamp and the ID of the last row on a page.
func EncodeToken(sortTime time.Time, id string) string {
	tokenStr := fmt.Sprintf("%s|%s", sortTime.UTC().Format(timeFormat), id)
	return base64.RawURLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a token created by EncodeToken.
func DecodeToken(token string) (time.Time, string, error) {
	decodedBytes, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (split)")
	}
	sortTime, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (time parse): %w", err)
	}
	return sortTime, parts[1], nil
}

// NextToken returns the token for the page after items, or nil when items is the last page.
// Callers fetch limit+1 rows; the extra row only signals that more exist.
func NextToken[T any](items []T, limit int, key func(T) (time.Time, string)) ([]T, *string) {
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	page := items[:limit]
	sortTime, id := key(page[len(page)-1])
	token := EncodeToken(sortTime, id)
	return page, &token
}
