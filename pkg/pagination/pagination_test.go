package pagination

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -4: DefaultLimit, 10: 10, MaxLimit + 50: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestTrimKeysCursorOnLastKeptRow(t *testing.T) {
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	rows := make([]Cursor, 0, 3)
	for i := 0; i < 3; i++ {
		rows = append(rows, Cursor{CreatedAt: base.Add(-time.Duration(i) * time.Minute), ID: uuid.New()})
	}
	key := func(c Cursor) Cursor { return c }

	page, next := Trim(rows, 2, key)
	if len(page) != 2 || next == nil {
		t.Fatalf("expected a full page with a cursor, got %d rows next=%v", len(page), next)
	}
	if *next != rows[1] {
		t.Fatalf("cursor should point at the second row, got %+v", next)
	}

	page, next = Trim(rows[:2], 2, key)
	if len(page) != 2 || next != nil {
		t.Fatalf("last page should carry no cursor, got %d rows next=%v", len(page), next)
	}
}

func TestEncodedCursorIsQuerySafe(t *testing.T) {
	encoded := EncodeCursor(Cursor{CreatedAt: time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC), ID: uuid.New()})
	if strings.ContainsAny(encoded, "+/=") {
		t.Fatalf("cursor %q needs escaping in a query string", encoded)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{CreatedAt: time.Date(2026, 10, 16, 9, 30, 0, 1500, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(cursor))
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !parsed.CreatedAt.Equal(cursor.CreatedAt) || parsed.ID != cursor.ID {
		t.Fatalf("cursor mismatch: %+v", parsed)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor(""); err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, got %v %v", c, err)
	}
	for _, raw := range []string{"%%%", "bm90LWEtY3Vyc29y", "MjAyNi0xMC0xNnx4eXo="} {
		if _, err := ParseCursor(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
