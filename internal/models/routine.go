package models

// Routine is a workout routine as shown in the routine builder: a title and the
// exercises in display order.
type Routine struct {
	Title     string     `json:"title"`
	Exercises []Exercise `json:"exercises"`
}

// Exercise is one exercise region of a routine. Name is the identity used to
// find the exercise again in the target application.
type Exercise struct {
	Name       string     `json:"name"`
	Note       Text       `json:"note"`
	Rest       Text       `json:"rest"`
	Sets       []SetEntry `json:"sets"`
	SupersetID *int       `json:"supersetId"`
}

// SetEntry is one set row. All values are kept as the text the target
// application displayed.
type SetEntry struct {
	Set    Text `json:"set"`
	Weight Text `json:"weight"`
	Reps   Text `json:"reps"`
}

// LibraryEntry is one row of the exercise library.
type LibraryEntry struct {
	Name   string `json:"name"`
	Muscle string `json:"muscle"`
}

// InSuperset reports whether the exercise belongs to a superset group.
func (e Exercise) InSuperset() bool {
	return e.SupersetID != nil
}

// AssignSupersets turns per-exercise "is in a superset" flags into group ids.
// Each maximal run of true flags gets its own id, numbered from 1 in order;
// false entries get nil.
func AssignSupersets(flags []bool) []*int {
	ids := make([]*int, len(flags))
	next := 1
	var current *int
	for i, flagged := range flags {
		if !flagged {
			current = nil
			continue
		}
		if current == nil {
			id := next
			next++
			current = &id
		}
		ids[i] = current
	}
	return ids
}

// SupersetGroup is a superset in routine order. Members[0] is the anchor.
type SupersetGroup struct {
	ID      int
	Members []string
}

// Groups collects exercise names by superset id, in order of each group's
// first appearance. Standalone exercises are excluded.
func (r *Routine) Groups() []SupersetGroup {
	var groups []SupersetGroup
	index := map[int]int{}
	for _, ex := range r.Exercises {
		if ex.SupersetID == nil {
			continue
		}
		id := *ex.SupersetID
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, SupersetGroup{ID: id})
		}
		groups[i].Members = append(groups[i].Members, ex.Name)
	}
	return groups
}
