package moderation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

func TestModerateCleanText(t *testing.T) {
	f := New(DefaultBannedWords, 0)

	ok, out := f.Moderate("좋은 하루 되세요")
	assert.True(t, ok)
	assert.Equal(t, "좋은 하루 되세요", out)
}

func TestModerateKeepsDecomposedCleanText(t *testing.T) {
	f := New(DefaultBannedWords, 0)

	in := norm.NFD.String("안녕하세요")
	require.NotEqual(t, "안녕하세요", in)
	ok, out := f.Moderate(in)
	assert.True(t, ok)
	assert.Equal(t, []byte(in), []byte(out))
}

func TestModerateMasksDecomposedBannedWord(t *testing.T) {
	f := New(DefaultBannedWords, 0)

	ok, out := f.Moderate("안녕하세요 " + norm.NFD.String("욕설1"))
	assert.False(t, ok)
	assert.Equal(t, "안녕하세요 ***", out)
}

func TestModerateTruncatesOnInputLength(t *testing.T) {
	f := New(nil, 3)

	in := norm.NFD.String("가나")
	ok, out := f.Moderate(in)
	assert.True(t, ok)
	assert.Equal(t, string([]rune(in)[:3])+"...", out)
}

func TestModerateMasksBannedWords(t *testing.T) {
	f := New(DefaultBannedWords, 0)

	ok, out := f.Moderate("안녕하세요 욕설1")
	assert.False(t, ok)
	assert.Equal(t, "안녕하세요 ***", out)

	ok, out = f.Moderate("욕설1 그리고 욕설1, 부적절한단어")
	assert.False(t, ok)
	assert.Equal(t, "*** 그리고 ***, ******", out)
}

func TestModerateIsCaseInsensitive(t *testing.T) {
	f := New([]string{"darn"}, 0)

	ok, out := f.Moderate("Oh DARN it, darn")
	assert.False(t, ok)
	assert.Equal(t, "Oh **** it, ****", out)
}

func TestModerateEscapesMetacharacters(t *testing.T) {
	f := New([]string{"a.b"}, 0)

	ok, out := f.Moderate("axb a.b")
	assert.False(t, ok)
	assert.Equal(t, "axb ***", out)
}

func TestModerateTruncates(t *testing.T) {
	f := New(DefaultBannedWords, 0)

	exact := strings.Repeat("가", DefaultMaxLength)
	ok, out := f.Moderate(exact)
	assert.True(t, ok)
	assert.Equal(t, exact, out)

	ok, out = f.Moderate(strings.Repeat("가", DefaultMaxLength+1))
	assert.True(t, ok)
	assert.Equal(t, DefaultMaxLength+3, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestModerateOutputBound(t *testing.T) {
	f := New(DefaultBannedWords, 0)
	inputs := []string{
		"",
		"욕설2",
		strings.Repeat("욕설1 ", 400),
		strings.Repeat("abc", 1000),
	}
	for _, in := range inputs {
		ok, out := f.Moderate(in)
		assert.LessOrEqual(t, utf8.RuneCountInString(out), DefaultMaxLength+3)
		if ok {
			assert.NotContains(t, out, "*")
		}
	}
}

func TestModerateIsDeterministic(t *testing.T) {
	f := New(DefaultBannedWords, 0)
	ok1, out1 := f.Moderate("욕설2 hello")
	ok2, out2 := f.Moderate("욕설2 hello")
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, out1, out2)
}

func TestCustomMaxLength(t *testing.T) {
	f := New(nil, 5)
	ok, out := f.Moderate("abcdefgh")
	assert.True(t, ok)
	assert.Equal(t, "abcde...", out)
}

func TestNewSkipsBlankAndDuplicateWords(t *testing.T) {
	f := New([]string{"", "  ", "x", "x"}, 0)
	assert.Equal(t, 1, f.Words())
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nfoo\n\nbar\n"), 0o644))

	f, err := FromConfig(nil, path, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Words())
	ok, out := f.Moderate("foo bar baz")
	assert.False(t, ok)
	assert.Equal(t, "*** *** baz", out)

	f, err = FromConfig([]string{"only"}, path, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Words())

	f, err = FromConfig(nil, "", 0)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultBannedWords), f.Words())

	_, err = FromConfig(nil, filepath.Join(dir, "missing.txt"), 0)
	assert.Error(t, err)
}
