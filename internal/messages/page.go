// Package messages maps pages of message metadata from the mail API into
// the local cache, moving unread counters along with every change.
package messages

import (
	"encoding/json"
	"fmt"
	"io"
)

// Message is one record of a messages page. Unread is 1 for an unread
// message and 0 otherwise.
type Message struct {
	ID       string `json:"ID"`
	Subject  string `json:"Subject"`
	Location int    `json:"Location"`
	Unread   int    `json:"Unread"`
	Time     int64  `json:"Time"`
}

// Page is one page of message metadata. Total counts every message the
// server has for the query.
type Page struct {
	Code     int       `json:"Code"`
	Total    int       `json:"Total"`
	Messages []Message `json:"Messages"`
}

// GetMessages returns the page's messages. It never returns nil.
func (p *Page) GetMessages() []Message {
	if p == nil || p.Messages == nil {
		return []Message{}
	}
	return p.Messages
}

// Decode reads a single page from r.
func Decode(r io.Reader) (*Page, error) {
	var p Page
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode messages page: %w", err)
	}
	return &p, nil
}
