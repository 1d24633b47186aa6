package policy

import "github.com/google/uuid"

// NewID generates a fresh policy or statement identifier. Used by the CLI to
// fill in a missing policy id; chain history never requires ids to look like
// UUIDs, only to be unique.
func NewID() string {
	return uuid.NewString()
}
