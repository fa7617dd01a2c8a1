package comparator

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompareExactMatch(t *testing.T) {
	ok, err := Compare(strings.NewReader("7\n"), strings.NewReader("7\n"), 1<<20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected exact match to be accepted")
	}
}

func TestCompareTreatsCRLFAsLF(t *testing.T) {
	ok, err := Compare(strings.NewReader("7\r\n8\r\n"), strings.NewReader("7\n8\n"), 1<<20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("CRLF output should match LF expected")
	}
}

func TestCompareIgnoresTrailingLineWhitespace(t *testing.T) {
	ok, err := Compare(strings.NewReader("7   \n8\t\n"), strings.NewReader("7\n8\n"), 1<<20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("trailing per-line whitespace should be ignored")
	}
}

func TestCompareIgnoresTrailingBlankLines(t *testing.T) {
	ok, err := Compare(strings.NewReader("7\n8\n\n\n"), strings.NewReader("7\n8\n"), 1<<20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("trailing blank lines should be ignored")
	}
}

func TestCompareDetectsMismatch(t *testing.T) {
	ok, err := Compare(strings.NewReader("7\n"), strings.NewReader("8\n"), 1<<20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("differing content must not be accepted")
	}
}

func TestCompareDoesNotIgnoreInteriorWhitespace(t *testing.T) {
	// Only trailing whitespace is stripped; "7 8" and "78" must differ.
	ok, err := Compare(strings.NewReader("7 8\n"), strings.NewReader("78\n"), 1<<20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("interior whitespace must not be normalized away")
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	input := "7   \r\n8\t\r\n\n\n"
	once, err := normalize(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := normalize(bytes.NewReader(once))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("normalize must be idempotent: %q != %q", once, twice)
	}
}

func TestCompareRespectsOutputLimit(t *testing.T) {
	// Both sides truncated identically at the limit should still match.
	ok, err := Compare(strings.NewReader("aaaaa"), strings.NewReader("aaaaa"), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("identical truncation on both sides should still match")
	}
}

func TestCompareEmptyBothSides(t *testing.T) {
	ok, err := Compare(strings.NewReader(""), strings.NewReader(""), 1<<20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("two empty outputs should match")
	}
}
