package invariant_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aledsdavies/corelib/internal/invariant"
)

// violationMessage runs fn and returns the recovered panic message, or
// fails the test if fn did not panic.
func violationMessage(t *testing.T, fn func()) string {
	t.Helper()

	var msg string
	func() {
		defer func() {
			if r := recover(); r != nil {
				msg = fmt.Sprintf("%v", r)
			}
		}()
		fn()
	}()
	if msg == "" {
		t.Fatal("expected a panic, got none")
	}
	return msg
}

// Parse's own postcondition (pkg/regex/parser.go:24) asserts that a
// top-level alternation always ends up with at least one branch. These
// tests exercise Postcondition against that exact shape of check rather
// than an invented one.
func TestPostconditionMatchesParserAlternationCheck(t *testing.T) {
	branches := []int{1} // stand-in for alt.Branches after a successful parse
	invariant.Postcondition(len(branches) > 0, "top-level alternation must have at least one branch")
}

func TestPostconditionPanicsWhenAlternationIsEmpty(t *testing.T) {
	var branches []int
	msg := violationMessage(t, func() {
		invariant.Postcondition(len(branches) > 0, "top-level alternation must have at least one branch")
	})
	if !strings.Contains(msg, "POSTCONDITION VIOLATION") {
		t.Errorf("expected POSTCONDITION VIOLATION, got: %s", msg)
	}
	if !strings.Contains(msg, "top-level alternation must have at least one branch") {
		t.Errorf("expected the parser's own message, got: %s", msg)
	}
}

// Reactor's Spawn guard (pkg/reactor/reactor.go) asserts a reactor is not
// already spawned. Mirrored here at the invariant-package level, without
// pulling in the reactor package (which would need epoll/kqueue).
func TestPreconditionMatchesReactorSpawnGuard(t *testing.T) {
	spawned := false
	invariant.Precondition(!spawned, "reactor: Spawn called twice without an intervening Join")
}

func TestPreconditionPanicsWhenReactorAlreadySpawned(t *testing.T) {
	spawned := true
	msg := violationMessage(t, func() {
		invariant.Precondition(!spawned, "reactor: Spawn called twice without an intervening Join")
	})
	if !strings.Contains(msg, "PRECONDITION VIOLATION") {
		t.Errorf("expected PRECONDITION VIOLATION, got: %s", msg)
	}
	if !strings.Contains(msg, "Spawn called twice") {
		t.Errorf("expected the reactor's own message, got: %s", msg)
	}
}

// Invariant itself has no call site yet in this repo, so this exercises
// it against a made-up but representative mid-match assertion: each
// quantified repetition step must move the cursor strictly forward, so a
// cursor that stays where it was is a violation.
func TestInvariantCatchesStalledCursor(t *testing.T) {
	prevPos, pos := 5, 5
	msg := violationMessage(t, func() {
		invariant.Invariant(pos > prevPos, "cursor must advance, got pos=%d prevPos=%d", pos, prevPos)
	})
	if !strings.Contains(msg, "INVARIANT VIOLATION") {
		t.Errorf("expected INVARIANT VIOLATION, got: %s", msg)
	}
	if !strings.Contains(msg, "pos=5 prevPos=5") {
		t.Errorf("expected formatted args in message, got: %s", msg)
	}
}

func TestInvariantAllowsForwardMotion(t *testing.T) {
	prevPos, pos := 5, 6
	invariant.Invariant(pos > prevPos, "cursor must advance, got pos=%d prevPos=%d", pos, prevPos)
}

// NotNil has no call site in this repo yet either; these exercise its two
// branches directly against representative nil/non-nil values.
func TestNotNilPanicsOnNilMap(t *testing.T) {
	var nilRules map[string]int
	msg := violationMessage(t, func() { invariant.NotNil(nilRules, "rules") })
	if !strings.Contains(msg, "PRECONDITION VIOLATION") {
		t.Errorf("expected PRECONDITION VIOLATION, got: %s", msg)
	}
	if !strings.Contains(msg, "rules must not be nil") {
		t.Errorf("expected 'rules must not be nil', got: %s", msg)
	}
}

func TestNotNilPassesOnPopulatedMap(t *testing.T) {
	rules := map[string]int{"a": 1}
	invariant.NotNil(rules, "rules")
}

// InRange is exercised against the ring buffer's logical-index shape
// (0 <= i <= capacity-1), even though RingBuffer itself reports
// out-of-bounds through corerr rather than invariant — this only checks
// InRange's own contract, not RingBuffer.
func TestInRangeBoundaries(t *testing.T) {
	const capacity = 8
	invariant.InRange(0, 0, capacity-1, "index")
	invariant.InRange(capacity-1, 0, capacity-1, "index")

	msg := violationMessage(t, func() { invariant.InRange(capacity, 0, capacity-1, "index") })
	if !strings.Contains(msg, fmt.Sprintf("got %d", capacity)) {
		t.Errorf("expected out-of-range value in message, got: %s", msg)
	}
}

func TestExpectNoErrorPassesThroughNil(t *testing.T) {
	invariant.ExpectNoError(nil, "compile rule set")
}

func TestExpectNoErrorPanicsOnNonNil(t *testing.T) {
	msg := violationMessage(t, func() {
		invariant.ExpectNoError(fmt.Errorf("bad pattern"), "compile rule set")
	})
	if !strings.Contains(msg, "POSTCONDITION VIOLATION") {
		t.Errorf("expected POSTCONDITION VIOLATION, got: %s", msg)
	}
	if !strings.Contains(msg, "compile rule set must not fail: bad pattern") {
		t.Errorf("expected wrapped error text, got: %s", msg)
	}
}

func TestPanicMessageCarriesCallSiteLocation(t *testing.T) {
	msg := violationMessage(t, func() { invariant.Precondition(false, "boom") })
	if !strings.Contains(msg, "invariant_test.go:") {
		t.Errorf("expected this file's name in the stack trace, got: %s", msg)
	}
}
