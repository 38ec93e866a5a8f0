package driver

import "time"

// Timings are the settle delays used between interactions. They stand in for
// completion signals the target does not expose.
type Timings struct {
	Placement  time.Duration // after clicking a library row
	Menu       time.Duration // after opening an exercise's options menu
	Picker     time.Duration // after choosing "add to superset"
	PickerRow  time.Duration // after choosing the anchor in the picker
	AddSet     time.Duration // after each "add set" click
	NoteToggle time.Duration // after revealing a note field
	Verify     time.Duration // between a write and its read-back

	// LocateTimeout bounds how long a lookup by name keeps polling for an
	// element that has not rendered yet; LocateInterval is the poll period.
	LocateTimeout  time.Duration
	LocateInterval time.Duration
}

// DefaultTimings returns delays that work against the production builder.
func DefaultTimings() Timings {
	return Timings{
		Placement:      500 * time.Millisecond,
		Menu:           250 * time.Millisecond,
		Picker:         300 * time.Millisecond,
		PickerRow:      200 * time.Millisecond,
		AddSet:         120 * time.Millisecond,
		NoteToggle:     150 * time.Millisecond,
		Verify:         300 * time.Millisecond,
		LocateTimeout:  2 * time.Second,
		LocateInterval: 100 * time.Millisecond,
	}
}
