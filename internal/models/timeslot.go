package models

// TimeSlot is a bookable half-open window [Start, End) derived from a
// schedule template for a concrete date. Slots are generated on demand and
// never persisted.
type TimeSlot struct {
	Start         string `json:"start"` // "08:00"
	End           string `json:"end"`   // "10:00"
	Available     bool   `json:"available"`
	ReservationID int64  `json:"reservation_id,omitempty"` // owner when unavailable
}

// Window returns the slot bounds in minutes since midnight.
func (s *TimeSlot) Window() (start, end int) {
	start, _ = MinutesOfDay(s.Start)
	end, _ = MinutesOfDay(s.End)
	return start, end
}
