package lesst

import (
	"fmt"
	"sort"
	"strings"
)

// Key is a raw byte sequence written to the child's input without a
// trailing newline.
type Key string

// Special key constants for use with WriteKey. Arrow keys are the VT100
// cursor sequences ESC [ A..D.
const (
	KeyUp        Key = "\x1b[A"
	KeyDown      Key = "\x1b[B"
	KeyRight     Key = "\x1b[C"
	KeyLeft      Key = "\x1b[D"
	KeyEnter     Key = "\n"
	KeyTab       Key = "\t"
	KeySpace     Key = " "
	KeyEscape    Key = "\x1b"
	KeyBackspace Key = "\x7f"
	KeyCtrlC     Key = "\x03"
	KeyCtrlD     Key = "\x04"
)

var keyNames = map[string]Key{
	"up":        KeyUp,
	"down":      KeyDown,
	"right":     KeyRight,
	"left":      KeyLeft,
	"enter":     KeyEnter,
	"tab":       KeyTab,
	"space":     KeySpace,
	"escape":    KeyEscape,
	"esc":       KeyEscape,
	"backspace": KeyBackspace,
	"ctrl-c":    KeyCtrlC,
	"ctrl-d":    KeyCtrlD,
}

// KeyByName resolves a case-insensitive key name such as "down" or "ctrl-c".
func KeyByName(name string) (Key, error) {
	k, ok := keyNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown key %q", name)
	}
	return k, nil
}

// KeyNames lists every name accepted by KeyByName, sorted.
func KeyNames() []string {
	names := make([]string, 0, len(keyNames))
	for name := range keyNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bytes returns the sequence as written to the child.
func (k Key) Bytes() []byte {
	return []byte(k)
}

// Channel selects one of the child's output streams.
type Channel int

const (
	Stdout Channel = iota
	Stderr
)

func (c Channel) String() string {
	switch c {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// ParseChannel accepts "stdout" or "stderr"; the empty string means stdout.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(s) {
	case "", "stdout", "out":
		return Stdout, nil
	case "stderr", "err":
		return Stderr, nil
	}
	return Stdout, fmt.Errorf("unknown channel %q", s)
}
