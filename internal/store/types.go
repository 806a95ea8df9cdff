package store

import "github.com/matheus3301/mailcount/internal/folder"

// Message is a cached message header. Only read state and location matter
// to the counters.
type Message struct {
	ID       string
	Subject  string
	Location folder.Location
	IsRead   bool
	Time     int64
}

// Contact is a cached contact record.
type Contact struct {
	ID         string
	Name       string
	UID        string
	Size       int64
	CreateTime int64
	ModifyTime int64
	LabelIDs   []string
}
