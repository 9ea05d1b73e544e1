package appointment

import "time"

// Availability is the partition of one business day into free and occupied
// slots, computed from the active appointments on that date.
type Availability struct {
	Date           time.Time
	AllSlots       []string
	AvailableSlots []string
	OccupiedSlots  []string
	TotalAvailable int
}

// ComputeAvailability builds the availability report for a date. Occupied
// entries are the appointments' own time ranges verbatim, in the order
// supplied; a generated slot counts as available iff it overlaps none of
// the active appointments.
func ComputeAvailability(date time.Time, active []*Appointment) Availability {
	allSlots := GenerateDaySlots()

	occupied := make([]string, 0, len(active))
	for _, a := range active {
		occupied = append(occupied, FormatRange(a.StartTime, a.EndTime))
	}

	available := make([]string, 0, len(allSlots))
	for _, slot := range allSlots {
		if !slotOccupied(slot, active) {
			available = append(available, slot)
		}
	}

	return Availability{
		Date:           date,
		AllSlots:       allSlots,
		AvailableSlots: available,
		OccupiedSlots:  occupied,
		TotalAvailable: len(available),
	}
}

func slotOccupied(slot string, active []*Appointment) bool {
	slotStart, slotEnd, err := ParseRange(slot)
	if err != nil {
		// Generated slots always parse; treat a malformed one as occupied.
		return true
	}
	for _, a := range active {
		if Overlaps(a.StartTime, a.EndTime, slotStart, slotEnd) {
			return true
		}
	}
	return false
}
