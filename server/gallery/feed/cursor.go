package feed

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidCursor  = errors.New("invalid cursor")
	ErrCursorMismatch = errors.New("cursor was issued for another filter mode")
)

// Cursor marks the last consumed record in (createdAt desc, id desc) order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

const (
	modePublic = "p"
	modeAdmin  = "a"
)

func cursorMode(admin bool) string {
	if admin {
		return modeAdmin
	}
	return modePublic
}

// EncodeCursor serializes c together with the filter mode it belongs to.
func EncodeCursor(c Cursor, admin bool) string {
	raw := fmt.Sprintf("%s:%d:%s", cursorMode(admin), c.CreatedAt.UnixNano(), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string, admin bool) (Cursor, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	parts := strings.SplitN(string(decoded), ":", 3)
	if len(parts) != 3 {
		return Cursor{}, ErrInvalidCursor
	}
	if parts[0] != modePublic && parts[0] != modeAdmin {
		return Cursor{}, ErrInvalidCursor
	}
	if parts[0] != cursorMode(admin) {
		return Cursor{}, ErrCursorMismatch
	}
	nanos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	id := strings.TrimSpace(parts[2])
	if id == "" {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}
