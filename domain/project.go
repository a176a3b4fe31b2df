package domain

import "time"

// Project groups tasks and carries the membership used for access checks
// and broadcast scoping.
type Project struct {
	ID          string    `json:"id" bson:"id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	OwnerID     string    `json:"owner_id" bson:"owner_id"`
	Members     []string  `json:"members" bson:"members"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// HasMember reports whether userID may access the project. The owner is a
// member even when absent from the stored member list.
func (p Project) HasMember(userID string) bool {
	if userID == p.OwnerID {
		return true
	}
	for _, m := range p.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the full access set, owner included exactly once.
func (p Project) MemberIDs() []string {
	ids := make([]string, 0, len(p.Members)+1)
	seen := false
	for _, m := range p.Members {
		if m == p.OwnerID {
			seen = true
		}
		ids = append(ids, m)
	}
	if !seen {
		ids = append(ids, p.OwnerID)
	}
	return ids
}

// ProjectInput carries the fields a caller supplies when creating a project.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ProjectPatch is a partial update; nil fields are left unchanged.
type ProjectPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Fields returns the set fields keyed by their stored names.
func (p ProjectPatch) Fields() map[string]any {
	fields := map[string]any{}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	return fields
}
