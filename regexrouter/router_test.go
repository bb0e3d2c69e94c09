package regexrouter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/corelib/config"
	"github.com/aledsdavies/corelib/pkg/buffer"
	"github.com/aledsdavies/corelib/pkg/regex"
)

func mustRule(t *testing.T, name, pattern string) config.CompiledRule {
	t.Helper()
	re, err := regex.Parse(pattern)
	require.NoError(t, err)
	return config.CompiledRule{Name: name, Re: re}
}

func TestRouterMatchesFirstRule(t *testing.T) {
	r := New([]config.CompiledRule{
		mustRule(t, "greeting", "^hello"),
		mustRule(t, "digits", "[0-9]+"),
	})

	read := buffer.NewByteBuffer()
	write := buffer.NewByteBuffer()
	read.Append([]byte("hello world\n"))

	r.Poll(read, write)

	out := make([]byte, write.Len())
	write.Read(out)
	require.Equal(t, "greeting\n", string(out))
}

func TestRouterNoMatch(t *testing.T) {
	r := New([]config.CompiledRule{mustRule(t, "digits", "^[0-9]+$")})

	read := buffer.NewByteBuffer()
	write := buffer.NewByteBuffer()
	read.Append([]byte("abc\n"))

	r.Poll(read, write)

	out := make([]byte, write.Len())
	write.Read(out)
	require.Equal(t, "no-match\n", string(out))
}

func TestRouterWaitsForNewline(t *testing.T) {
	r := New([]config.CompiledRule{mustRule(t, "digits", "[0-9]+")})

	read := buffer.NewByteBuffer()
	write := buffer.NewByteBuffer()
	read.Append([]byte("123"))

	r.Poll(read, write)
	require.True(t, write.IsEmpty())
	require.Equal(t, 3, read.Len())

	read.Append([]byte("456\n"))
	r.Poll(read, write)

	out := make([]byte, write.Len())
	write.Read(out)
	require.Equal(t, "digits\n", string(out))
}

func TestRouterFallsBackAtMaxLineLength(t *testing.T) {
	r := New([]config.CompiledRule{mustRule(t, "long", "a+")})

	read := buffer.NewByteBuffer()
	write := buffer.NewByteBuffer()
	read.Append([]byte(strings.Repeat("a", maxLineLength)))

	r.Poll(read, write)

	out := make([]byte, write.Len())
	write.Read(out)
	require.Equal(t, "long\n", string(out))
	require.True(t, read.IsEmpty())
}

func TestRouterSetRulesHotSwaps(t *testing.T) {
	r := New([]config.CompiledRule{mustRule(t, "old", "^x")})

	read := buffer.NewByteBuffer()
	write := buffer.NewByteBuffer()
	read.Append([]byte("y-line\n"))
	r.Poll(read, write)
	out := make([]byte, write.Len())
	write.Read(out)
	require.Equal(t, "no-match\n", string(out))

	r.SetRules([]config.CompiledRule{mustRule(t, "new", "^y")})

	read.Append([]byte("y-line\n"))
	r.Poll(read, write)
	out = make([]byte, write.Len())
	write.Read(out)
	require.Equal(t, "new\n", string(out))
}
