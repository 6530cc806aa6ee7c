package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano // Use a precise time format

// EncodeToken creates a base64 encoded token from a creation time and a store sequence number.
// The pair is a stable cursor for ledger pages ordered by (created_at, seq).
func EncodeToken(createdAt time.Time, seq int64) string {
	return EncodeMultiFieldToken(createdAt.Format(timeFormat), strconv.FormatInt(seq, 10))
}

// DecodeToken parses the base64 encoded token back into creation time and sequence number.
func DecodeToken(token string) (time.Time, int64, error) {
	parts, err := DecodeMultiFieldToken(token)
	if err != nil {
		return time.Time{}, 0, err
	}
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("invalid pagination token format (split)")
	}

	createdAt, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid pagination token format (created_at parse): %w", err)
	}

	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid pagination token format (seq parse): %w", err)
	}

	return createdAt, seq, nil
}

// EncodeMultiFieldToken creates a token with any number of string fields
func EncodeMultiFieldToken(fields ...string) string {
	tokenStr := strings.Join(fields, "|")
	return base64.StdEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeMultiFieldToken decodes a token into its component fields
func DecodeMultiFieldToken(token string) ([]string, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}

	return strings.Split(string(decodedBytes), "|"), nil
}
