// Package slots turns a schedule template into bookable time slots.
package slots

import (
	"dockbook/internal/models"
)

// Generate produces the ordered slot sequence for a template: a cursor
// starts at the opening time and each emitted slot is [cursor,
// cursor+interval) clipped to the closing time, so the final slot may be
// shorter than the interval when the window does not divide evenly. The
// result is gapless and non-overlapping by construction, ascending by start
// time.
func Generate(tpl *models.ScheduleTemplate) []models.TimeSlot {
	start, end := tpl.Window()
	if start >= end || tpl.SlotDuration <= 0 {
		return nil
	}

	var result []models.TimeSlot
	for cursor := start; cursor < end; {
		slotEnd := cursor + tpl.SlotDuration
		if slotEnd > end {
			slotEnd = end
		}
		result = append(result, models.TimeSlot{
			Start:     models.ClockString(cursor),
			End:       models.ClockString(slotEnd),
			Available: true,
		})
		cursor = slotEnd
	}
	return result
}

// CountFor returns how many slots a template yields without materializing
// them.
func CountFor(tpl *models.ScheduleTemplate) int {
	start, end := tpl.Window()
	if start >= end || tpl.SlotDuration <= 0 {
		return 0
	}
	duration := end - start
	count := duration / tpl.SlotDuration
	if duration%tpl.SlotDuration != 0 {
		count++
	}
	return count
}
