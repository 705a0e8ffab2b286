// Package models defines the domain types shared across repositories,
// services, and handlers.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Column describes a single column of a CRM table as shown to users and
// to the model when building prompts.
type Column struct {
	Name  string `json:"name"`  // Stable identifier, e.g. "email"
	Label string `json:"label"` // Display label, e.g. "Email Address"
	Type  string `json:"type"`  // "text", "number", "date", ...
}

// Table is a tenant-owned CRM table definition.
type Table struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Name           string    `json:"name"`
	Columns        []Column  `json:"columns"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ColumnNames returns the column identifiers in definition order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the table defines a column with the given name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}
