package script

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyScript    = errors.New("script is empty")
	ErrScriptTooLarge = errors.New("script is too large")
)

// cuePattern matches a whole line of uppercase letters and spaces. Cues with
// a trailing parenthetical such as "JOKER (V.O.)" do not match.
var cuePattern = regexp.MustCompile(`^([A-Z][A-Z\s]+)$`)

var headerPrefixes = []string{"FADE", "EXT.", "INT."}

// directives are all-caps screenplay elements that are never speaker cues.
var directives = []string{
	"FADE IN",
	"FADE OUT",
	"CUT TO",
	"DISSOLVE TO",
	"MATCH CUT",
	"CONTINUOUS",
	"LATER",
	"MEANWHILE",
	"MONTAGE",
	"SERIES OF SHOTS",
	"TITLE CARD",
	"SUPER",
	"INSERT",
	"CLOSE UP",
	"WIDE SHOT",
}

// Validate rejects input that cannot be classified. maxBytes <= 0 disables
// the size check.
func Validate(text string, maxBytes int) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyScript
	}
	if maxBytes > 0 && len(text) > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrScriptTooLarge, len(text), maxBytes)
	}
	return nil
}

// Classify returns one Character per distinct cue name, in order of first
// appearance. Every call generates fresh IDs.
func Classify(text string) []Character {
	byName := make(map[string]*Character)
	var order []string

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || isHeader(line) {
			continue
		}

		name, ok := cueName(line)
		if !ok {
			continue
		}
		if _, seen := byName[name]; seen {
			continue
		}

		byName[name] = &Character{
			ID:          NewID(),
			Name:        name,
			Description: Describe(name, text),
		}
		order = append(order, name)
	}

	characters := make([]Character, 0, len(order))
	for _, name := range order {
		characters = append(characters, *byName[name])
	}
	return characters
}

// Lines tags every non-empty line. Lines after a cue are dialogue for that
// cue until the next blank line, header or cue.
func Lines(text string) []Line {
	var lines []Line
	speaker := ""

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			speaker = ""
		case isHeader(line):
			speaker = ""
			lines = append(lines, Line{Type: LineTypeScene, Content: line})
		default:
			if name, ok := cueName(line); ok {
				speaker = name
				lines = append(lines, Line{Type: LineTypeCharacter, Content: line})
				continue
			}
			if speaker != "" {
				lines = append(lines, Line{Type: LineTypeDialogue, Content: line, Character: speaker})
				continue
			}
			lines = append(lines, Line{Type: LineTypeAction, Content: line})
		}
	}

	return lines
}

func isHeader(line string) bool {
	for _, prefix := range headerPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func cueName(line string) (string, bool) {
	m := cuePattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if isDirective(name) {
		return "", false
	}
	return name, true
}

func isDirective(text string) bool {
	for _, d := range directives {
		if strings.Contains(text, d) {
			return true
		}
	}
	return false
}
