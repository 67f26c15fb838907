package models

import (
	"fmt"
	"sort"
	"strings"
)

// FieldErrors maps a JSON field path to the reason it was rejected.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, f[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (f FieldErrors) orNil() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// Validate checks the same constraints the client-side schema enforces.
func (u NewUser) Validate() error {
	errs := FieldErrors{}
	if len(strings.TrimSpace(u.Username)) < 3 {
		errs["username"] = "must be at least 3 characters"
	}
	if len(u.Password) < 6 {
		errs["password"] = "must be at least 6 characters"
	}
	switch u.Type {
	case UserTypeUser, UserTypeBusiness:
	default:
		errs["type"] = `must be "user" or "business"`
	}
	return errs.orNil()
}

func (b NewBusiness) Validate() error {
	errs := FieldErrors{}
	if strings.TrimSpace(b.Description) == "" {
		errs["description"] = "required"
	}
	if strings.TrimSpace(b.Category) == "" {
		errs["category"] = "required"
	}
	if strings.TrimSpace(b.Location) == "" {
		errs["location"] = "required"
	}
	for i, s := range b.Services {
		if strings.TrimSpace(s) == "" {
			errs[fmt.Sprintf("services[%d]", i)] = "must not be empty"
		}
	}
	return errs.orNil()
}

func (m NewMessage) Validate() error {
	errs := FieldErrors{}
	if m.FromID < 0 {
		errs["fromId"] = "must be a non-negative integer"
	}
	if m.ToID < 0 {
		errs["toId"] = "must be a non-negative integer"
	}
	if strings.TrimSpace(m.Content) == "" {
		errs["content"] = "required"
	}
	return errs.orNil()
}
