package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field limits enforced by creating surfaces and by servers.
const (
	MaxListTitle       = 100
	MaxTaskTitle       = 200
	MaxTaskDescription = 1000
)

// ValidateListTitle checks a list title is 1–100 characters.
func ValidateListTitle(title string) error {
	return validateLength("title", title, 1, MaxListTitle)
}

// ValidateTaskTitle checks a task title is 1–200 characters.
func ValidateTaskTitle(title string) error {
	return validateLength("title", title, 1, MaxTaskTitle)
}

// ValidateDescription checks an optional description is at most 1000 characters.
func ValidateDescription(desc *string) error {
	if desc == nil {
		return nil
	}
	if n := utf8.RuneCountInString(*desc); n > MaxTaskDescription {
		return Validation(fmt.Sprintf("description must be no more than %d characters long", MaxTaskDescription), "description")
	}
	return nil
}

// ValidateCreateTask checks a CreateTaskRequest.
func ValidateCreateTask(req CreateTaskRequest) error {
	if err := ValidateTaskTitle(req.Title); err != nil {
		return err
	}
	if err := ValidateDescription(req.Description); err != nil {
		return err
	}
	if strings.TrimSpace(req.ListID) == "" {
		return Validation("listId is required", "listId")
	}
	return nil
}

// ValidateTaskPatch checks the fields a TaskPatch sets.
func ValidateTaskPatch(p TaskPatch) error {
	if p.Title != nil {
		if err := ValidateTaskTitle(*p.Title); err != nil {
			return err
		}
	}
	if err := ValidateDescription(p.Description); err != nil {
		return err
	}
	if p.ListID != nil && strings.TrimSpace(*p.ListID) == "" {
		return Validation("listId is required", "listId")
	}
	return nil
}

func validateLength(field, value string, minLen, maxLen int) error {
	if strings.TrimSpace(value) == "" {
		return Validation(field+" is required", field)
	}
	n := utf8.RuneCountInString(value)
	if n < minLen {
		return Validation(fmt.Sprintf("%s must be at least %d characters long", field, minLen), field)
	}
	if n > maxLen {
		return Validation(fmt.Sprintf("%s must be no more than %d characters long", field, maxLen), field)
	}
	return nil
}
