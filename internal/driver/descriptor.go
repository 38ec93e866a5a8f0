package driver

// Descriptor names a structural lookup in the target interface. Lookups are
// resolved relative to a scope element.
type Descriptor string

// Routine builder descriptors.
const (
	RoutineTitle Descriptor = "routine.title"

	LibraryRow    Descriptor = "library.row"
	LibraryName   Descriptor = "library.name"
	LibraryMuscle Descriptor = "library.muscle"

	ExerciseCard       Descriptor = "exercise.card"
	ExerciseName       Descriptor = "exercise.name"
	ExerciseNote       Descriptor = "exercise.note"
	ExerciseNoteToggle Descriptor = "exercise.note_toggle"
	ExerciseRest       Descriptor = "exercise.rest"
	ExerciseRestInput  Descriptor = "exercise.rest_input"
	ExerciseSuperset   Descriptor = "exercise.superset_marker"
	ExerciseOptions    Descriptor = "exercise.options"
	ExerciseAddSet     Descriptor = "exercise.add_set"

	SetRow   Descriptor = "set.row"
	SetLabel Descriptor = "set.label"
	SetInput Descriptor = "set.input"

	MenuAddToSuperset Descriptor = "menu.add_to_superset"

	SupersetPicker Descriptor = "superset.picker"
	PickerRow      Descriptor = "superset.picker_row"
	PickerRowLabel Descriptor = "superset.picker_row_label"
	PickerDismiss  Descriptor = "superset.picker_dismiss"
)

// Descriptors lists every descriptor a selector profile must define.
var Descriptors = []Descriptor{
	RoutineTitle,
	LibraryRow, LibraryName, LibraryMuscle,
	ExerciseCard, ExerciseName, ExerciseNote, ExerciseNoteToggle,
	ExerciseRest, ExerciseRestInput, ExerciseSuperset, ExerciseOptions, ExerciseAddSet,
	SetRow, SetLabel, SetInput,
	MenuAddToSuperset,
	SupersetPicker, PickerRow, PickerRowLabel, PickerDismiss,
}
