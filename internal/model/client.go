package model

import "time"

// Client is a persisted CRM client record. Bulk import only ever creates
// clients; editing and archiving belong to the CRUD surface.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Source    string    `json:"source,omitempty"`
	Status    string    `json:"status"`
	IsLead    bool      `json:"is_lead"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
}

// Status is a client pipeline stage. Statuses are operator-managed; exactly
// one is flagged as the default and receives rows with no recognizable status.
type Status struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	SortOrder int    `json:"sort_order"`
	IsDefault bool   `json:"is_default"`
}
