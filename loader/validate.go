package loader

import (
	"fmt"
	"strings"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks the compiled defs for referential integrity and
// consistency.
func validate(defs *Defs) error {
	ve := &ValidationError{}

	if defs.Story.Title == "" {
		ve.Errors = append(ve.Errors, "Story.title is required")
	}

	// Default narrator style, when named, must exist.
	if defs.Story.Narrator != "" {
		if _, ok := defs.Narrators[defs.Story.Narrator]; !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"narrator style %q not found in defined styles", defs.Story.Narrator))
		}
	}

	for _, name := range defs.CharacterOrder {
		c := defs.Characters[name]
		if strings.TrimSpace(c.Name) == "" {
			ve.Errors = append(ve.Errors, "character with empty name")
		}
		if c.Voice == "" {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"character %q has no voice reference", name))
		}
	}

	for id, n := range defs.Narrators {
		if strings.TrimSpace(n.Prompt) == "" && strings.TrimSpace(n.Description) == "" {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"narrator style %q has neither prompt nor description", id))
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}
