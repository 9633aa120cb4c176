package businessflow

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/google/uuid"
)

// pollGraceWindow is how far behind its high-water mark a poll looks again.
// created_at is stamped before the inserting transaction commits, so a row can
// become visible after a later poll already moved past its timestamp.
const pollGraceWindow = 30 * time.Second

// pollCursor is the high-water mark of a notification poll plus the rows
// already delivered inside the grace window behind it
type pollCursor struct {
	Mark time.Time
	Seen map[uuid.UUID]bool
}

// parsePollCursor accepts an encoded cursor or a bare RFC3339 timestamp
func parsePollCursor(raw string) (pollCursor, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return pollCursor{Mark: t.UTC(), Seen: map[uuid.UUID]bool{}}, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || len(data) < 8 || (len(data)-8)%16 != 0 {
		return pollCursor{}, ErrInvalidCursor
	}
	c := pollCursor{
		Mark: time.Unix(0, int64(binary.BigEndian.Uint64(data[:8]))).UTC(),
		Seen: make(map[uuid.UUID]bool, (len(data)-8)/16),
	}
	for off := 8; off < len(data); off += 16 {
		id, err := uuid.FromBytes(data[off : off+16])
		if err != nil {
			return pollCursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		c.Seen[id] = true
	}
	return c, nil
}

// encodePollCursor writes the mark and the delivered ids still inside the grace window
func encodePollCursor(mark time.Time, rows []*models.Notification, delivered map[uuid.UUID]bool) string {
	floor := mark.Add(-pollGraceWindow)
	buf := make([]byte, 8, 8+16*len(rows))
	binary.BigEndian.PutUint64(buf, uint64(mark.UnixNano()))
	for _, n := range rows {
		if delivered[n.UUID] && n.CreatedAt.After(floor) {
			buf = append(buf, n.UUID[:]...)
		}
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
