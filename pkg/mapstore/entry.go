package mapstore

import (
	"time"
)

// Label is the text shown to the operator for this map.  Unnamed maps
// are shown by their creation time alone.
func (e Entry) Label(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	ts := e.CreatedAt.In(loc).Format(TimestampLayout)
	if e.Name == "" {
		return ts
	}
	return e.Name + " " + ts
}

func entryFromWire(w MapListEntry) Entry {
	return Entry{
		MapID:     w.MapID,
		Name:      w.Name,
		CreatedAt: time.Unix(w.Date, 0),
	}
}

// Find returns the entry with the given id.
func Find(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if e.MapID == id {
			return e, true
		}
	}
	return Entry{}, false
}
