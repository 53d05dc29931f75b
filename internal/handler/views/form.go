package views

import (
	"github.com/pavelanni/reviewer/internal/classconfig"
	"github.com/pavelanni/reviewer/internal/model"
)

// Slot is one document upload slot on the form.
type Slot struct {
	Kind     model.DocumentKind
	Required bool
	Attached bool
	Filename string
	Size     int
}

// NewSlots lists the upload slots in display order.
func NewSlots(docs model.Documents) []Slot {
	slots := make([]Slot, 0, len(model.DocumentKinds))
	for _, k := range model.DocumentKinds {
		s := Slot{Kind: k, Required: k.Required()}
		if docs.Has(k) {
			s.Attached = true
			s.Filename = docs[k].Filename
			s.Size = docs[k].Size()
		}
		slots = append(slots, s)
	}
	return slots
}

// Form is the data for the configuration and upload page.
type Form struct {
	Classes     []string
	Config      *classconfig.ClassConfig
	Settings    model.EvaluationSettings
	FocusAreas  []string
	Slots       []Slot
	Errors      []string // localized validation messages
	Failure     string
	RawOutput   string
	Warnings    []string
	Flash       []string
	Busy        bool
	HasResult   bool
	MaxUploadMB int
}

// CanSubmit reports whether the analyze button is enabled.
func (f Form) CanSubmit() bool {
	return len(f.Errors) == 0 && !f.Busy
}
