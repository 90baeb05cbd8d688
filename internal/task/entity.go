package task

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Task is a card on the board. Status is the column key; Priority, Category
// and Status are free-form labels.
type Task struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	Priority    string  `json:"priority,omitempty" yaml:"priority,omitempty"`
	Category    string  `json:"category,omitempty" yaml:"category,omitempty"`
	Status      string  `json:"status,omitempty" yaml:"status,omitempty"`
	Attachment  *string `json:"attachment" yaml:"attachment,omitempty"`
}

// Clone returns a copy that shares nothing with t.
func (t *Task) Clone() *Task {
	c := *t
	if t.Attachment != nil {
		a := *t.Attachment
		c.Attachment = &a
	}
	return &c
}

// Patch is a partial update. A field takes part when its pointer is non-nil
// or, for decoded patches, when its key was present in the body. A present
// null resets the field: strings become empty and Attachment becomes nil.
// The id is not part of a patch and can never change.
type Patch struct {
	Title       *string
	Description *string
	Priority    *string
	Category    *string
	Status      *string
	Attachment  *string

	// present holds keys that were sent, explicit nulls included.
	present map[string]bool
}

// patchField binds a wire key to its field on a Patch and on a Task.
type patchField struct {
	key   string
	ptr   func(p *Patch) **string
	apply func(t *Task, v *string)
}

var patchFields = []patchField{
	{"title", func(p *Patch) **string { return &p.Title }, func(t *Task, v *string) { t.Title = deref(v) }},
	{"description", func(p *Patch) **string { return &p.Description }, func(t *Task, v *string) { t.Description = deref(v) }},
	{"priority", func(p *Patch) **string { return &p.Priority }, func(t *Task, v *string) { t.Priority = deref(v) }},
	{"category", func(p *Patch) **string { return &p.Category }, func(t *Task, v *string) { t.Category = deref(v) }},
	{"status", func(p *Patch) **string { return &p.Status }, func(t *Task, v *string) { t.Status = deref(v) }},
	{"attachment", func(p *Patch) **string { return &p.Attachment }, func(t *Task, v *string) {
		t.Attachment = nil
		if v != nil {
			a := *v
			t.Attachment = &a
		}
	}},
}

func (p *Patch) has(f patchField) bool {
	return *f.ptr(p) != nil || p.present[f.key]
}

// Clear marks a field as sent with a null value. Unknown keys are ignored.
func (p *Patch) Clear(key string) {
	for _, f := range patchFields {
		if f.key == key {
			*f.ptr(p) = nil
			if p.present == nil {
				p.present = make(map[string]bool)
			}
			p.present[key] = true
			return
		}
	}
}

// UnmarshalJSON keeps only the known keys and remembers which were present.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Patch{present: make(map[string]bool)}
	for _, f := range patchFields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		p.present[f.key] = true
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("field %q: %w", f.key, err)
		}
		*f.ptr(p) = &s
	}
	return nil
}

// MarshalJSON writes every field that takes part, reset fields as null.
func (p *Patch) MarshalJSON() ([]byte, error) {
	out := make(map[string]*string, len(patchFields))
	for _, f := range patchFields {
		if p.has(f) {
			out[f.key] = *f.ptr(p)
		}
	}
	return json.Marshal(out)
}

func (p *Patch) Apply(t *Task) {
	for _, f := range patchFields {
		if p.has(f) {
			f.apply(t, *f.ptr(p))
		}
	}
}

func (p *Patch) IsEmpty() bool {
	for _, f := range patchFields {
		if p.has(f) {
			return false
		}
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
