package model

import "time"

// Lead is one business contact derived from a single card scan. An empty
// string means the field was not found.
type Lead struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company,omitempty"`
	JobTitle string `json:"job_title,omitempty"`
	Website  string `json:"website,omitempty"`
	Source   string `json:"source,omitempty"`
}

// IsEmpty reports whether no contact field was extracted. Source is ignored.
func (l Lead) IsEmpty() bool {
	return l.Name == "" && l.Email == "" && l.Phone == "" &&
		l.Company == "" && l.JobTitle == "" && l.Website == ""
}

// StoredLead is a Lead as persisted by the store, including store-owned fields.
type StoredLead struct {
	ID string `json:"id"`
	Lead
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
