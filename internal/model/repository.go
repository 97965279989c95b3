// Package model defines the domain types shared across repopin.
package model

import "strconv"

// Repository is a single repository search result. Values are immutable once
// fetched; a newer search replaces them wholesale.
type Repository struct {
	ID          int64  `json:"id" yaml:"id"`
	FullName    string `json:"full_name" yaml:"full_name"`
	Name        string `json:"name" yaml:"name"`
	OwnerLogin  string `json:"owner_login" yaml:"owner_login"`
	StarCount   int    `json:"stargazers_count" yaml:"stargazers_count"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	HTMLURL     string `json:"html_url,omitempty" yaml:"html_url,omitempty"`
}

// Key returns the identifier used by the selection store: the decimal
// string form of ID.
func (r Repository) Key() string {
	return KeyOf(r.ID)
}

// KeyOf formats a repository ID as a selection key.
func KeyOf(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseKey parses a selection key back into a repository ID.
func ParseKey(key string) (int64, error) {
	return strconv.ParseInt(key, 10, 64)
}
