package taskq

import "github.com/ZEDDEV1/nozesia-sub005/id"

// ID is the primary identifier type for taskq entities.
type ID = id.ID

// Prefix identifies the entity type encoded in an ID.
type Prefix = id.Prefix
