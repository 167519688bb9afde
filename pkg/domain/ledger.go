package domain

import "time"

// HasCompletedToday reports whether history holds a record for room on the
// same calendar date as now, in the given time zone. Time of day is ignored.
func HasCompletedToday(history []CleaningRecord, room RoomID, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	for _, record := range history {
		if record.Room == room && sameCalendarDay(record.Date, now, loc) {
			return true
		}
	}
	return false
}

// Recent returns the newest n records. History is already newest first, so
// this is a bounded prefix copy.
func Recent(history []CleaningRecord, n int) []CleaningRecord {
	if n < 0 {
		n = 0
	}
	if n > len(history) {
		n = len(history)
	}
	return append([]CleaningRecord(nil), history[:n]...)
}

func sameCalendarDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
