package envbuild

import (
	"bufio"
	"strings"
)

// Assignment is a single KEY=VALUE environment entry.
type Assignment struct {
	Key   string
	Value string
}

// String renders the assignment in the form expected by exec.Cmd.Env.
func (a Assignment) String() string {
	return a.Key + "=" + a.Value
}

// Layer is an ordered set of assignments contributed by one policy stage.
type Layer struct {
	Name        string
	Assignments []Assignment
}

func (l *Layer) set(key, value string) {
	l.Assignments = append(l.Assignments, Assignment{Key: key, Value: value})
}

// Compose flattens layers into a single ordered assignment list. Keys keep the
// position of their first appearance while later layers (and later entries
// inside a layer) replace the value.
func Compose(layers ...Layer) []Assignment {
	index := make(map[string]int)
	var out []Assignment
	for _, layer := range layers {
		for _, a := range layer.Assignments {
			if i, ok := index[a.Key]; ok {
				out[i].Value = a.Value
				continue
			}
			index[a.Key] = len(out)
			out = append(out, a)
		}
	}
	return out
}

// Lookup returns the value bound to key in a composed assignment list.
func Lookup(assignments []Assignment, key string) (string, bool) {
	for _, a := range assignments {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// ParseCustomEnv parses the free-text custom environment block. Blank lines
// and lines starting with '#' are ignored. Every other line is split at the
// first '=' into a key and a value, both trimmed; lines without a separator or
// with an empty key are skipped silently.
func ParseCustomEnv(text string) []Assignment {
	var out []Assignment
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out = append(out, Assignment{Key: key, Value: strings.TrimSpace(value)})
	}
	return out
}
