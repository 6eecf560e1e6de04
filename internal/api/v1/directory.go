package v1

import "fmt"

// DirectoryKind selects which list the directory serves.
type DirectoryKind string

const (
	KindProducers  DirectoryKind = "producers"
	KindCollectors DirectoryKind = "collectors"
)

// ParseDirectoryKind defaults to producers when s is empty.
func ParseDirectoryKind(s string) (DirectoryKind, error) {
	switch DirectoryKind(s) {
	case "", KindProducers:
		return KindProducers, nil
	case KindCollectors:
		return KindCollectors, nil
	}
	return "", fmt.Errorf("unknown directory kind %q (must be producers or collectors)", s)
}

// Party is a producer (farmer) or collector (porter) row.
type Party struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Phone    string `json:"phone,omitempty" yaml:"phone"`
	Location string `json:"location,omitempty" yaml:"location"`
}

// Page is the single envelope every list endpoint returns.
// TotalCount is the authoritative count at query time and may lag concurrent writes.
type Page struct {
	Items      []Party `json:"items"`
	TotalCount int     `json:"total_count"`
}
