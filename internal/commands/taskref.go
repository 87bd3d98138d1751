package commands

import (
	"errors"
	"fmt"
	"strconv"
)

// TaskRef is a parsed task reference such as "3", "b3" or "b 3".
type TaskRef struct {
	Letter rune // list letter, 0 when omitted
	Num    int  // 1-based position within the list
}

// HasLetter reports whether the reference names a list letter.
func (r TaskRef) HasLetter() bool { return r.Letter != 0 }

func (r TaskRef) String() string {
	if r.HasLetter() {
		return fmt.Sprintf("%c%d", r.Letter, r.Num)
	}
	return strconv.Itoa(r.Num)
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef reads a task reference from the front of args and returns it
// with the number of arguments it used. Accepted forms: "<n>", "<l><n>" and
// "<l> <n>" where l is a list letter a-z.
func ParseTaskRef(args []string) (TaskRef, int, error) {
	if len(args) == 0 {
		return TaskRef{}, 0, ErrTaskRefRequired
	}
	first := args[0]

	if n, ok := parseNum(first); ok {
		return TaskRef{Num: n}, 1, nil
	}
	if first == "" || !isLetter(rune(first[0])) {
		return TaskRef{}, 0, fmt.Errorf("invalid task reference: %s", first)
	}
	letter := rune(first[0])

	if len(first) > 1 {
		n, ok := parseNum(first[1:])
		if !ok {
			return TaskRef{}, 0, fmt.Errorf("invalid task reference: %s", first)
		}
		return TaskRef{Letter: letter, Num: n}, 1, nil
	}

	if len(args) < 2 {
		return TaskRef{}, 0, ErrTaskRefRequired
	}
	n, ok := parseNum(args[1])
	if !ok {
		return TaskRef{}, 0, fmt.Errorf("invalid task reference: %s %s", first, args[1])
	}
	return TaskRef{Letter: letter, Num: n}, 2, nil
}

// parseNum accepts a non-empty run of ASCII digits.
func parseNum(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}
