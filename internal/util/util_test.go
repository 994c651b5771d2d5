package util

import (
	"strings"
	"testing"
	"time"
)

func TestFormatKST(t *testing.T) {
	ts := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	if got := FormatKST(ts, "2006-01-02 15:04"); got != "2026-03-02 00:30" {
		t.Fatalf("FormatKST = %q", got)
	}
	if FormatKST(time.Time{}, time.RFC3339) != "-" {
		t.Fatalf("zero time")
	}
}

func TestApplySeeMoreWithHeader(t *testing.T) {
	out := ApplySeeMoreWithHeader("기보\n1. a / b", "기보", "fallback", "")
	if !strings.HasPrefix(out, "기보"+KakaoZeroWidthSpace) {
		t.Fatalf("header not moved before padding: %q", out[:20])
	}
	if strings.Count(out, KakaoZeroWidthSpace) != KakaoSeeMorePadding {
		t.Fatalf("padding count = %d", strings.Count(out, KakaoZeroWidthSpace))
	}
	if !strings.HasSuffix(out, "\n1. a / b") {
		t.Fatalf("body lost: %q", out[len(out)-20:])
	}
	if ApplyKakaoSeeMorePadding("  ", "x") != "  " {
		t.Fatalf("blank text should pass through")
	}
}
