// Package regexrouter implements a tcpserver.ConnectionHandler that
// classifies the first line of a connection against a set of named regex
// rules.
package regexrouter

import (
	"bytes"
	"sync/atomic"

	"github.com/aledsdavies/corelib/config"
	"github.com/aledsdavies/corelib/pkg/buffer"
	"github.com/aledsdavies/corelib/pkg/regex"
)

// maxLineLength bounds how long Router waits for a newline before
// matching against whatever has arrived so far.
const maxLineLength = 4096

// Router evaluates an ordered list of compiled rules against the first
// line of every connection. Rule sets can be hot-swapped via SetRules.
type Router struct {
	rules atomic.Pointer[[]config.CompiledRule]
}

// New builds a Router with an initial rule set.
func New(rules []config.CompiledRule) *Router {
	r := &Router{}
	r.SetRules(rules)
	return r
}

// SetRules atomically replaces the active rule set. Safe to call
// concurrently with Poll; readers always see a complete, consistent
// slice.
func (r *Router) SetRules(rules []config.CompiledRule) {
	cp := make([]config.CompiledRule, len(rules))
	copy(cp, rules)
	r.rules.Store(&cp)
}

// Poll implements tcpserver.ConnectionHandler: it extracts the unread
// prefix up to the first '\n' (or, absent one before maxLineLength bytes
// have accumulated, the whole prefix), matches it against every rule in
// order, and writes the first matching rule's name or "no-match",
// newline-terminated.
func (r *Router) Poll(read, write *buffer.ByteBuffer) {
	line, ok := extractLine(read)
	if !ok {
		return
	}

	rules := r.rules.Load()
	if rules == nil {
		write.Append([]byte("no-match\n"))
		return
	}

	for _, rule := range *rules {
		if regex.Matches(rule.Re, line) {
			write.Append([]byte(rule.Name))
			write.Append([]byte("\n"))
			return
		}
	}
	write.Append([]byte("no-match\n"))
}

// extractLine peeks the buffer for a '\n'-terminated line, bounded by
// maxLineLength, and discards exactly the bytes it decides to consume. It
// returns ok=false (consuming nothing) when neither a newline nor the
// length bound has been reached yet, so more bytes can arrive untouched.
func extractLine(read *buffer.ByteBuffer) (line []byte, ok bool) {
	peeked := read.Peek(maxLineLength)

	if idx := bytes.IndexByte(peeked, '\n'); idx >= 0 {
		read.Discard(idx + 1)
		return peeked[:idx], true
	}

	if len(peeked) >= maxLineLength {
		read.Discard(len(peeked))
		return peeked, true
	}

	return nil, false
}
