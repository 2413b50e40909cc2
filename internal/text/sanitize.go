package text

import (
	"strings"
	"unicode/utf16"
)

// CleanResponse prepares a model reply for plain-text delivery:
//
//  1. line endings are normalized to LF and invisible Unicode is dropped
//  2. markdown images are removed
//  3. markup characters and backslashes are stripped
//  4. runs of blank lines collapse to a single blank line
//
// The result is trimmed. An empty input yields an empty string.
func CleanResponse(input string) string {
	if input == "" {
		return ""
	}

	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = unicodeReplacer.Replace(s)
	s = controlCharsRegex.ReplaceAllString(s, "")

	s = imagesRegex.ReplaceAllString(s, "")
	s = markupCharsRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, `\`, "")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	s = strings.Join(lines, "\n")

	s = blankRunRegex.ReplaceAllString(s, "\n\n")
	s = multipleNewlinesRegex.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// StripCitations removes numbered citation markers such as "[1]" or "[2][3]".
func StripCitations(s string) string {
	return citationsRegex.ReplaceAllString(s, "")
}

// Truncate shortens s to at most limit UTF-16 code units, the unit Telegram
// measures message and caption lengths in, ending with an ellipsis when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if UTF16Len(s) <= limit {
		return s
	}

	suffix := ellipsis
	budget := limit - len(ellipsis)
	if limit <= len(ellipsis) {
		suffix = ""
		budget = limit
	}

	runes := []rune(s)
	return string(runes[:fit(runes, budget)]) + suffix
}

// UTF16Len reports the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

func runeWidth(r rune) int {
	if w := utf16.RuneLen(r); w > 0 {
		return w
	}
	return 1
}

// fit returns how many leading runes fit into limit UTF-16 code units.
func fit(runes []rune, limit int) int {
	width := 0
	for i, r := range runes {
		width += runeWidth(r)
		if width > limit {
			return i
		}
	}
	return len(runes)
}

// Preview returns a single-line, truncated rendering of s for lists and logs.
func Preview(s string, limit int) string {
	return Truncate(strings.Join(strings.Fields(s), " "), limit)
}

// Chunks splits s into pieces of at most limit UTF-16 code units, preferring
// to break after a newline or a space in the second half of a piece.
func Chunks(s string, limit int) []string {
	if s == "" || limit <= 0 {
		return nil
	}

	runes := []rune(s)
	var chunks []string
	for {
		end := fit(runes, limit)
		if end == len(runes) {
			break
		}
		if end == 0 {
			end = 1
		}

		cut := end
		for i := end - 1; i >= end/2; i-- {
			if runes[i] == '\n' || runes[i] == ' ' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), " \n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
