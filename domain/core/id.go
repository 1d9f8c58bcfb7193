package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Defaults applied when a caller does not name a user or project.
const (
	DefaultUserID    = "guest"
	DefaultProjectID = "default"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Owner identifies the dataset slot of one user and project.
type Owner struct {
	UserID    string
	ProjectID string
}

// NewOwner normalizes and validates a user/project pair. Empty parts take
// the defaults; parts that could escape a storage path are rejected.
func NewOwner(userID, projectID string) (Owner, error) {
	user, err := parseKeyPart("user ID", userID, DefaultUserID)
	if err != nil {
		return Owner{}, err
	}
	project, err := parseKeyPart("project ID", projectID, DefaultProjectID)
	if err != nil {
		return Owner{}, err
	}
	return Owner{UserID: user, ProjectID: project}, nil
}

func (o Owner) String() string {
	return o.UserID + "/" + o.ProjectID
}

func parseKeyPart(what, s, fallback string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	if s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return "", fmt.Errorf("invalid %s: %q", what, s)
	}
	return s, nil
}
