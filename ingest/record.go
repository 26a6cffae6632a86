// Package ingest fetches raw job listings from configured boards and
// persists them with content-based deduplication. One adapter per source
// kind turns external formats into uniform records.
package ingest

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Record is one listing as extracted by a source adapter, before any
// normalization. Fields are raw strings exactly as the source provided
// them, whitespace-trimmed only.
type Record struct {
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Salary      string `json:"salary,omitempty"`
	URL         string `json:"url"`
	PostedDate  string `json:"posted_date,omitempty"`
}

// Valid reports whether the record carries the minimum fields needed to
// persist it. Invalid records count toward items_found but are dropped
// before persistence.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.Title) != "" && strings.TrimSpace(r.URL) != ""
}

// fingerprintDescLen bounds how much of the description participates in the
// checksum. Sources append tracking noise to long descriptions; the first
// 200 characters are stable.
const fingerprintDescLen = 200

// Fingerprint returns the content checksum used for deduplication:
// md5(title + "|" + url + "|" + description prefix).
func (r Record) Fingerprint() string {
	desc := r.Description
	if len(desc) > fingerprintDescLen {
		desc = desc[:fingerprintDescLen]
	}

	h := md5.Sum([]byte(r.Title + "|" + r.URL + "|" + desc))
	return hex.EncodeToString(h[:])
}
