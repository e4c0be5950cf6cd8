package domain

import (
	"reflect"
	"time"
)

const (
	EntityStateOn  = "on"
	EntityStateOff = "off"
)

// Calendar entity attribute keys.
const (
	AttrMessage       = "message"
	AttrAllDay        = "all_day"
	AttrStartTime     = "start_time"
	AttrEndTime       = "end_time"
	AttrLocation      = "location"
	AttrDescription   = "description"
	AttrOffsetReached = "offset_reached"
)

type EntityState struct {
	EntityID    string         `json:"entity_id"`
	Name        string         `json:"name"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	Event       *CalendarEvent `json:"event,omitempty"`
	LastUpdated time.Time      `json:"last_updated"`
}

// SameAs reports whether two snapshots differ only in LastUpdated.
func (s *EntityState) SameAs(other *EntityState) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.EntityID == other.EntityID &&
		s.State == other.State &&
		reflect.DeepEqual(s.Attributes, other.Attributes)
}
