package models

import (
	"time"

	"github.com/google/uuid"
)

// Direct column names stored as typed columns on the records table.
// Every other field lives in the Attributes JSONB document.
var directColumns = map[string]struct{}{
	"name":    {},
	"email":   {},
	"phone":   {},
	"company": {},
}

// IsDirectColumn reports whether a field is stored as a typed column
// rather than inside the attributes document.
func IsDirectColumn(name string) bool {
	_, ok := directColumns[name]
	return ok
}

// Record is a single CRM row. Name, Email, Phone, and Company are typed
// columns; everything else lives in Attributes. Metadata holds provenance
// blocks such as aiGenerated and enrichment_metadata.
type Record struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organizationId"`
	TableID        uuid.UUID      `json:"tableId"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Company        string         `json:"company"`
	Attributes     map[string]any `json:"attributes"`
	Metadata       map[string]any `json:"metadata"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// SetField writes a field value onto the record, routing direct columns
// to their typed fields and everything else into Attributes. Non-string
// values for direct columns are ignored.
func (r *Record) SetField(name string, value any) {
	if !IsDirectColumn(name) {
		if r.Attributes == nil {
			r.Attributes = make(map[string]any)
		}
		r.Attributes[name] = value
		return
	}

	s, ok := value.(string)
	if !ok {
		return
	}
	switch name {
	case "name":
		r.Name = s
	case "email":
		r.Email = s
	case "phone":
		r.Phone = s
	case "company":
		r.Company = s
	}
}

// FieldValue returns the current value of a field, whether it is stored
// as a typed column or inside Attributes. The second return reports
// whether the field holds a non-empty value.
func (r *Record) FieldValue(name string) (any, bool) {
	switch name {
	case "name":
		return r.Name, r.Name != ""
	case "email":
		return r.Email, r.Email != ""
	case "phone":
		return r.Phone, r.Phone != ""
	case "company":
		return r.Company, r.Company != ""
	}
	v, ok := r.Attributes[name]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return nil, false
	}
	return v, true
}

// KnownValues collects the record's populated fields for the given
// columns. Used to give the model existing context when enriching.
func (r *Record) KnownValues(columns []string) map[string]any {
	known := make(map[string]any)
	for _, name := range columns {
		if v, ok := r.FieldValue(name); ok {
			known[name] = v
		}
	}
	return known
}
