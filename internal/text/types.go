// Package text cleans model output before it is shown in a chat that renders
// plain text. It strips markdown markup, citation markers and invisible Unicode.
package text

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minNewlinesThreshold = 3
	ellipsis             = "..."
)

var (
	// controlCharsRegex matches ASCII control characters (including DEL 0x7F) that should be removed.
	controlCharsRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	// multipleNewlinesRegex matches sequences of 3 or more newlines.
	multipleNewlinesRegex = regexp.MustCompile("\n{" + strconv.Itoa(minNewlinesThreshold) + ",}")

	// blankRunRegex matches a newline followed by whitespace-only lines.
	blankRunRegex = regexp.MustCompile(`\n\s*\n`)

	// imagesRegex matches inline markdown images: ![alt](url)
	imagesRegex = regexp.MustCompile(`!\[.*?\]\(.*?\)`)

	// markupCharsRegex matches markdown and LaTeX markup characters the chat cannot render.
	markupCharsRegex = regexp.MustCompile("[*_`~#>+!$^]")

	// citationsRegex matches numbered citation markers like [1] or [2][3].
	citationsRegex = regexp.MustCompile(`(\[\d+\])+`)

	// unicodeReplacer normalizes invisible and exotic whitespace characters.
	unicodeReplacer = strings.NewReplacer(
		// Invisible format control characters
		"\u2060", "",
		"\uFEFF", "",
		"\u00AD", "",
		"\u200B", "",
		"\u200D", "",

		// Directional marks
		"\u200E", "",
		"\u200F", "",

		// Separators and exotic spaces
		"\u2028", "\n",
		"\u2029", "\n\n",
		"\u00A0", " ",
		"\u2009", " ",
		"\u200A", " ",
		"\u202F", " ",
		"\u3000", " ",
	)
)
