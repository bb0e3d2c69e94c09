package regex

import "bytes"

// cont is a continuation: "the rest of the match still to do", invoked
// with the cursor as it stands after whatever called it succeeded. It
// returns whether the overall match attempt ultimately succeeded: this is
// what lets quantifiers and alternation retry a different choice when a
// continuation further down the chain fails.
type cont func(cursor) bool

// Matches reports whether pattern re occurs anywhere in input (classic
// "search" semantics, not anchored): it tries every start position
// until one succeeds.
func Matches(re *Regex, input []byte) bool {
	for start := 0; start <= len(input); start++ {
		cur := newCursor(input, start, re.CaptureGroupCount)
		if matchAlternation(&re.Root, cur, func(cursor) bool { return true }) {
			return true
		}
	}
	return false
}

// MatchString is a convenience wrapper over Matches for string input.
func MatchString(re *Regex, input string) bool {
	return Matches(re, []byte(input))
}

func matchAlternation(alt *Alternation, cur cursor, k cont) bool {
	for i := range alt.Branches {
		if matchBranch(alt.Branches[i], 0, cur, k) {
			return true
		}
	}
	return false
}

func matchBranch(branch Branch, idx int, cur cursor, k cont) bool {
	if idx == len(branch) {
		return k(cur)
	}
	node := &branch[idx]
	return matchNode(node, cur, func(next cursor) bool {
		return matchBranch(branch, idx+1, next, k)
	})
}

func matchNode(n *Node, cur cursor, k cont) bool {
	switch n.Kind {
	case NodeLiteral:
		if cur.pos >= len(cur.input) || cur.input[cur.pos] != n.Literal {
			return false
		}
		return k(advance(cur, 1))

	case NodeDot:
		if cur.pos >= len(cur.input) {
			return false
		}
		return k(advance(cur, 1))

	case NodeCharClass:
		if cur.pos >= len(cur.input) {
			return false
		}
		if !n.Class.Matches(cur.input[cur.pos]) {
			return false
		}
		return k(advance(cur, 1))

	case NodeStartAnchor:
		if cur.pos == 0 || cur.input[cur.pos-1] == '\n' {
			return k(cur)
		}
		return false

	case NodeEndAnchor:
		if cur.pos == len(cur.input) || cur.input[cur.pos] == '\n' {
			return k(cur)
		}
		return false

	case NodeCaptureGroup:
		start := cur.pos
		return matchAlternation(n.Group, cur, func(after cursor) bool {
			withCapture := after.snapshot()
			withCapture.captures[n.GroupIndex] = capture{start: start, end: after.pos, set: true}
			return k(withCapture)
		})

	case NodeBackreference:
		cap := cur.captures[n.Backref]
		if !cap.set {
			return false
		}
		text := cur.input[cap.start:cap.end]
		if cur.pos+len(text) > len(cur.input) {
			return false
		}
		if !bytes.Equal(cur.input[cur.pos:cur.pos+len(text)], text) {
			return false
		}
		return k(advance(cur, len(text)))

	case NodeQuantified:
		return matchQuantified(n, cur, k)

	default:
		return false
	}
}

// matchQuantified implements greedy repetition of n.Inner between
// n.Quant.Min and n.Quant.Max (inclusive, Max<0 meaning unbounded),
// trying the longest repetition count first and backtracking to shorter
// counts on failure. Non-greedy is reserved in the AST but
// never produced by the parser; matchShortest below implements it for
// completeness.
func matchQuantified(n *Node, cur cursor, k cont) bool {
	if n.Quant.Greedy {
		return matchGreedy(n.Inner, n.Quant.Min, n.Quant.Max, 0, cur, k)
	}
	return matchShortest(n.Inner, n.Quant.Min, n.Quant.Max, 0, cur, k)
}

func matchGreedy(inner *Node, min, max, count int, cur cursor, k cont) bool {
	canRepeatMore := max < 0 || count < max
	if canRepeatMore {
		matched := matchNode(inner, cur, func(next cursor) bool {
			if next.pos == cur.pos {
				// Zero-width repetition: count it once and stop, or we
				// would recurse forever at a fixed position.
				if count+1 >= min {
					return k(next)
				}
				return false
			}
			return matchGreedy(inner, min, max, count+1, next, k)
		})
		if matched {
			return true
		}
	}
	if count >= min {
		return k(cur)
	}
	return false
}

// matchShortest tries the fewest repetitions first, growing only on
// failure — the non-greedy counterpart to matchGreedy.
func matchShortest(inner *Node, min, max, count int, cur cursor, k cont) bool {
	if count >= min {
		if k(cur) {
			return true
		}
	}
	canRepeatMore := max < 0 || count < max
	if !canRepeatMore {
		return false
	}
	return matchNode(inner, cur, func(next cursor) bool {
		if next.pos == cur.pos {
			return false
		}
		return matchShortest(inner, min, max, count+1, next, k)
	})
}

func advance(c cursor, n int) cursor {
	return cursor{input: c.input, pos: c.pos + n, captures: c.captures}
}
