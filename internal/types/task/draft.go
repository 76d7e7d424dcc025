package task

import (
	"fmt"
	"strings"
	"time"
)

// Draft is the payload of POST /user-tasks. Deadline is sent as null when empty.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority"`
	Repeat      Repeat   `json:"repeat"`
	Deadline    *string  `json:"deadline"`
	XP          int      `json:"xp"`
}

// NewDraft returns a draft with the task form defaults.
func NewDraft(title string) Draft {
	return Draft{
		Title:    title,
		Category: CategoryFinance,
		Priority: PriorityMedium,
		Repeat:   RepeatNone,
		XP:       10,
	}
}

// Normalize trims text fields and turns an empty deadline into nil.
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	if d.Deadline != nil && strings.TrimSpace(*d.Deadline) == "" {
		d.Deadline = nil
	}
	return d
}

// Validate checks required fields before anything is sent.
func (d Draft) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(d.Title) == "" {
		verr.add("title", "is required")
	}
	if !d.Category.Valid() {
		verr.add("category", fmt.Sprintf("unknown category %q", d.Category))
	}
	if !d.Priority.Valid() {
		verr.add("priority", fmt.Sprintf("unknown priority %q", d.Priority))
	}
	if !d.Repeat.Valid() {
		verr.add("repeat", fmt.Sprintf("unknown repeat %q", d.Repeat))
	}
	if d.XP < 0 {
		verr.add("xp", "must not be negative")
	}
	if d.Deadline != nil && *d.Deadline != "" {
		if _, err := time.Parse(DateLayout, *d.Deadline); err != nil {
			verr.add("deadline", "must be a YYYY-MM-DD date")
		}
	}
	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

// Patch is the body of PATCH /user-tasks/{id}; nil fields are left untouched.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Repeat      *Repeat   `json:"repeat,omitempty"`
	Deadline    *string   `json:"deadline,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Priority == nil && p.Repeat == nil && p.Deadline == nil
}

func (p Patch) Validate() error {
	verr := &ValidationError{}
	if p.Empty() {
		verr.add("patch", "nothing to update")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		verr.add("title", "must not be empty")
	}
	if p.Category != nil && !p.Category.Valid() {
		verr.add("category", fmt.Sprintf("unknown category %q", *p.Category))
	}
	if p.Priority != nil && !p.Priority.Valid() {
		verr.add("priority", fmt.Sprintf("unknown priority %q", *p.Priority))
	}
	if p.Repeat != nil && !p.Repeat.Valid() {
		verr.add("repeat", fmt.Sprintf("unknown repeat %q", *p.Repeat))
	}
	if p.Deadline != nil && *p.Deadline != "" {
		if _, err := time.Parse(DateLayout, *p.Deadline); err != nil {
			verr.add("deadline", "must be a YYYY-MM-DD date")
		}
	}
	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

// Apply returns t with the patch fields set.
func (p Patch) Apply(t UserTask) UserTask {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Repeat != nil {
		t.Repeat = *p.Repeat
	}
	if p.Deadline != nil {
		if *p.Deadline == "" {
			t.Deadline = nil
		} else {
			d := *p.Deadline
			t.Deadline = &d
		}
	}
	return t
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a client-side form check failure. It never reaches the network.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "invalid task: " + strings.Join(parts, "; ")
}
