package realtime

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UserID is the canonical identity used for every presence lookup.
type UserID uint

// String renders the identity the way it appears in channel keys and logs.
func (id UserID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// NormalizeUserID converts the identity representations seen at the edges
// (JWT claims, fiber locals, route params, socket payloads) into a UserID.
func NormalizeUserID(value any) (UserID, error) {
	if id, ok := value.(UserID); ok {
		return nonZero(uint64(id))
	}
	id, err := ParseID(value)
	if err != nil {
		return 0, fmt.Errorf("invalid user id: %w", err)
	}
	return UserID(id), nil
}

// ParseID converts a positive integer identifier from any of its wire
// representations.
func ParseID(value any) (uint, error) {
	var (
		id  UserID
		err error
	)

	switch v := value.(type) {
	case UserID:
		id, err = nonZero(uint64(v))
	case uint:
		id, err = nonZero(uint64(v))
	case uint32:
		id, err = nonZero(uint64(v))
	case uint64:
		id, err = nonZero(v)
	case int:
		id, err = fromSigned(int64(v))
	case int32:
		id, err = fromSigned(int64(v))
	case int64:
		id, err = fromSigned(v)
	case float64:
		if v != math.Trunc(v) || v < 0 {
			return 0, fmt.Errorf("invalid id %v", v)
		}
		id, err = nonZero(uint64(v))
	case json.Number:
		return ParseID(v.String())
	case string:
		parsed, perr := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if perr != nil {
			return 0, fmt.Errorf("invalid id %q", v)
		}
		id, err = nonZero(parsed)
	case fmt.Stringer:
		return ParseID(v.String())
	case nil:
		return 0, fmt.Errorf("id missing")
	default:
		return 0, fmt.Errorf("unsupported id type %T", value)
	}
	return uint(id), err
}

func fromSigned(v int64) (UserID, error) {
	if v < 0 {
		return 0, fmt.Errorf("invalid id %d", v)
	}
	return nonZero(uint64(v))
}

func nonZero(v uint64) (UserID, error) {
	if v == 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return UserID(v), nil
}
