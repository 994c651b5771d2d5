package util

import "strings"

const (
	KakaoSeeMorePadding = 500
	KakaoZeroWidthSpace = "\u200b"
)

var seeMoreFill = strings.Repeat(KakaoZeroWidthSpace, KakaoSeeMorePadding)

// 카카오톡은 긴 메시지를 '전체보기'로 접는다. 제로폭 문자로 첫 줄(instruction)만
// 미리보기에 남기고 본문을 접힌 쪽으로 민다.
func ApplyKakaoSeeMorePadding(text, instruction string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sep := "\n"
	if strings.HasPrefix(text, "\n") {
		sep = ""
	}
	return strings.TrimSpace(instruction) + seeMoreFill + sep + text
}

// StripLeadingHeader drops header (and the line breaks after it) from the start of text.
func StripLeadingHeader(text, header string) string {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(header) == "" || !strings.HasPrefix(text, header) {
		return text
	}
	rest := strings.TrimPrefix(text, header)
	for i := 0; i < 2; i++ {
		switch {
		case strings.HasPrefix(rest, "\r\n"):
			rest = rest[2:]
		case strings.HasPrefix(rest, "\n"):
			rest = rest[1:]
		}
	}
	return rest
}

// ApplySeeMoreWithHeader moves header (plus suffix) in front of the fold. Without a
// header, fallback becomes the preview line.
func ApplySeeMoreWithHeader(text, header, fallback, suffix string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	instruction := strings.TrimSpace(header)
	if instruction == "" {
		instruction = strings.TrimSpace(fallback)
	} else {
		instruction += suffix
	}
	return ApplyKakaoSeeMorePadding(StripLeadingHeader(text, header), instruction)
}
