package moderation

import (
	"VoiceBoard/pkg/errors"
	"bufio"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	DefaultMaxLength = 500
	truncationSuffix = "..."
)

// DefaultBannedWords is the placeholder list used when nothing is configured.
var DefaultBannedWords = []string{"욕설1", "욕설2", "부적절한단어"}

// Filter masks banned words and bounds text length. It is safe for concurrent use.
type Filter struct {
	patterns []*regexp.Regexp
	maxLen   int
}

// New compiles words into case-insensitive literal matchers that accept both
// the composed (NFC) and decomposed (NFD) spelling. Blank words are skipped;
// maxLen <= 0 falls back to DefaultMaxLength.
func New(words []string, maxLen int) *Filter {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	f := &Filter{maxLen: maxLen}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = norm.NFC.String(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		expr := regexp.QuoteMeta(w)
		if d := norm.NFD.String(w); d != w {
			expr += "|" + regexp.QuoteMeta(d)
		}
		f.patterns = append(f.patterns, regexp.MustCompile("(?i)(?:"+expr+")"))
	}
	return f
}

// Moderate returns whether text passed unchanged and the text to store.
// Matching runs on the input as given; text without a banned word is only
// ever truncated. Each banned occurrence becomes one '*' per composed
// character; the result is cut to maxLen runes plus "..." afterwards.
func (f *Filter) Moderate(text string) (bool, string) {
	out := text
	approved := true
	for _, re := range f.patterns {
		out = re.ReplaceAllStringFunc(out, func(match string) string {
			approved = false
			return strings.Repeat("*", utf8.RuneCountInString(norm.NFC.String(match)))
		})
	}
	if utf8.RuneCountInString(out) > f.maxLen {
		runes := []rune(out)
		out = string(runes[:f.maxLen]) + truncationSuffix
	}
	return approved, out
}

func (f *Filter) Words() int { return len(f.patterns) }

// LoadWords reads one word per line; blank lines and lines starting with '#' are ignored.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open banned word list %s", path)
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read banned word list %s", path)
	}
	return words, nil
}

// FromConfig picks the configured word source: an explicit list, then a file,
// then DefaultBannedWords.
func FromConfig(words []string, file string, maxLen int) (*Filter, error) {
	if len(words) == 0 && file != "" {
		loaded, err := LoadWords(file)
		if err != nil {
			return nil, err
		}
		words = loaded
	}
	if len(words) == 0 {
		words = DefaultBannedWords
	}
	return New(words, maxLen), nil
}
