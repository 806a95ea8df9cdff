package folder

import (
	"fmt"
	"strconv"
	"strings"
)

// Location identifies a mailbox category. Values match the server's
// message location codes.
type Location int

const (
	Invalid   Location = -1
	Inbox     Location = 0
	AllDrafts Location = 1
	AllSent   Location = 2
	Trash     Location = 3
	Spam      Location = 4
	AllMail   Location = 5
	Archive   Location = 6
	Sent      Location = 7
	Draft     Location = 8
	Starred   Location = 10
)

var names = map[Location]string{
	Inbox:     "inbox",
	AllDrafts: "all_drafts",
	AllSent:   "all_sent",
	Trash:     "trash",
	Spam:      "spam",
	AllMail:   "all_mail",
	Archive:   "archive",
	Sent:      "sent",
	Draft:     "draft",
	Starred:   "starred",
}

// All returns every known location in code order.
func All() []Location {
	return []Location{Inbox, AllDrafts, AllSent, Trash, Spam, AllMail, Archive, Sent, Draft, Starred}
}

func (l Location) String() string {
	if n, ok := names[l]; ok {
		return n
	}
	return "location(" + strconv.Itoa(int(l)) + ")"
}

// Valid reports whether l is a known location.
func (l Location) Valid() bool {
	_, ok := names[l]
	return ok
}

// Parse accepts either a location name ("inbox") or its numeric code ("0").
func Parse(s string) (Location, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, n := range names {
		if n == s {
			return l, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Location(n).Valid() {
		return Location(n), nil
	}
	return Invalid, fmt.Errorf("unknown location %q", s)
}
