// Package contacts maps the paginated contacts listing returned by the mail
// API and caches its records locally.
package contacts

import (
	"encoding/json"
	"fmt"
	"io"
)

// Contact is one record of a contacts listing. Only ID is relied upon.
type Contact struct {
	ID         string   `json:"ID"`
	Name       string   `json:"Name"`
	UID        string   `json:"UID"`
	Size       int64    `json:"Size"`
	CreateTime int64    `json:"CreateTime"`
	ModifyTime int64    `json:"ModifyTime"`
	LabelIDs   []string `json:"LabelIDs"`
}

// Listing is one page of contacts. Total counts every contact on the
// server, so len(Contacts) may be smaller.
type Listing struct {
	Code     int       `json:"Code"`
	Total    int       `json:"Total"`
	Contacts []Contact `json:"Contacts"`
}

// GetContacts returns the page's contacts in server order. It never
// returns nil.
func (l *Listing) GetContacts() []Contact {
	if l == nil || l.Contacts == nil {
		return []Contact{}
	}
	return l.Contacts
}

// GetTotal returns the server-side contact count.
func (l *Listing) GetTotal() int {
	if l == nil {
		return 0
	}
	return l.Total
}

// Decode reads a single listing from r.
func Decode(r io.Reader) (*Listing, error) {
	var l Listing
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return nil, fmt.Errorf("decode contacts listing: %w", err)
	}
	return &l, nil
}
