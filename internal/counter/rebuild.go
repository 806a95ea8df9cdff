package counter

import (
	"fmt"

	"github.com/matheus3301/mailcount/internal/folder"
)

// UnreadSource reports the true number of unread messages per location.
type UnreadSource interface {
	CountUnreadByLocation() (map[folder.Location]int, error)
}

// Adjust applies delta to the counter of loc. It reports false, without
// writing, when loc has no counter.
func Adjust(counters Store, loc folder.Location, delta int) (bool, error) {
	c, err := counters.FindUnreadLocation(loc)
	if err != nil {
		return false, fmt.Errorf("find counter %s: %w", loc, err)
	}
	if c == nil {
		return false, nil
	}
	if delta < 0 {
		c.Decrement(-delta)
	} else {
		c.Count += delta
	}
	if err := counters.SaveUnreadLocation(c); err != nil {
		return false, fmt.Errorf("save counter %s: %w", loc, err)
	}
	return true, nil
}

// Seed creates a counter for each of locs that does not already have one.
// Existing counters are left untouched. It returns the locations created.
func Seed(counters Store, locs []folder.Location) ([]folder.Location, error) {
	var created []folder.Location
	for _, loc := range locs {
		c, err := counters.FindUnreadLocation(loc)
		if err != nil {
			return created, fmt.Errorf("find counter %s: %w", loc, err)
		}
		if c != nil {
			continue
		}
		if err := counters.SaveUnreadLocation(&UnreadLocation{Location: loc}); err != nil {
			return created, fmt.Errorf("save counter %s: %w", loc, err)
		}
		created = append(created, loc)
	}
	return created, nil
}

// Rebuild overwrites the counters of locs with the counts from src.
func Rebuild(counters Store, src UnreadSource, locs []folder.Location) (map[folder.Location]int, error) {
	truth, err := src.CountUnreadByLocation()
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	out := make(map[folder.Location]int, len(locs))
	for _, loc := range locs {
		n := truth[loc]
		if err := counters.SaveUnreadLocation(&UnreadLocation{Location: loc, Count: n}); err != nil {
			return out, fmt.Errorf("save counter %s: %w", loc, err)
		}
		out[loc] = n
	}
	return out, nil
}
