package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks invariants the launcher relies on: every game has a name,
// and names and ids are unique since the supervisor keys processes by name.
func (r *Record) Validate() error {
	var errs []error
	names := make(map[string]int, len(r.Launches))
	ids := make(map[uint64]int, len(r.Launches))
	for i, d := range r.Launches {
		field := fmt.Sprintf("games[%d]", i)
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, fmt.Errorf("%s.name: must not be empty", field))
		} else if prev, ok := names[d.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name: %q duplicates games[%d]", field, d.Name, prev))
		} else {
			names[d.Name] = i
		}
		if d.ID != 0 {
			if prev, ok := ids[d.ID]; ok {
				errs = append(errs, fmt.Errorf("%s.id: %d duplicates games[%d]", field, d.ID, prev))
			} else {
				ids[d.ID] = i
			}
		}
	}
	return errors.Join(errs...)
}
