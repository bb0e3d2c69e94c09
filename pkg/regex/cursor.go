package regex

// capture records the half-open byte range [start, end) of a group's
// match within the subject input, or unset when the group has not
// captured yet in the current attempt.
type capture struct {
	start, end int
	set        bool
}

// cursor is the mutable matching state threaded through the backtracking
// search. captures is indexed 1..groupCount; index 0 is unused so group
// indices can be used directly.
type cursor struct {
	input    []byte
	pos      int
	captures []capture
}

func newCursor(input []byte, pos, groupCount int) cursor {
	return cursor{input: input, pos: pos, captures: make([]capture, groupCount+1)}
}

// snapshot returns a copy cheap enough to take at every choice point: the
// captures slice is small (one entry per group) and copied by value here
// via a fresh backing array, so mutating the copy never affects the
// original.
func (c cursor) snapshot() cursor {
	captures := make([]capture, len(c.captures))
	copy(captures, c.captures)
	return cursor{input: c.input, pos: c.pos, captures: captures}
}
