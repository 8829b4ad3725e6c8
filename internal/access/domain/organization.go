package domain

import "time"

// Organization is an isolated tenant. Organizations are created by platform
// operators and read-only to the access core; the slug is the immutable
// URL-safe lookup key tenant-scoped paths resolve through.
type Organization struct {
	ID        string
	Slug      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
