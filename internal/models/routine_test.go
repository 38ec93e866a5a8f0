package models

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const pushDay = `{"title":"Push Day","exercises":[` +
	`{"name":"Bench Press","note":"","rest":"90s","sets":[{"set":"1","weight":"60","reps":"8"}],"supersetId":null},` +
	`{"name":"Incline Press","note":"","rest":"60s","sets":[{"set":"1","weight":"40","reps":"10"}],"supersetId":1},` +
	`{"name":"Flyes","note":"","rest":"60s","sets":[{"set":"1","weight":"15","reps":"12"}],"supersetId":1}]}`

func intPtr(v int) *int { return &v }

// TestAssignSupersets verifies that group ids follow maximal runs of flagged
// exercises and that runs split by a single standalone exercise never share an id.
func TestAssignSupersets(t *testing.T) {
	tests := []struct {
		name  string
		flags []bool
		want  []*int
	}{
		{name: "empty", flags: nil, want: []*int{}},
		{name: "no supersets", flags: []bool{false, false}, want: []*int{nil, nil}},
		{name: "single run", flags: []bool{false, true, true}, want: []*int{nil, intPtr(1), intPtr(1)}},
		{
			name:  "runs split by one standalone",
			flags: []bool{true, true, false, true, true, true},
			want:  []*int{intPtr(1), intPtr(1), nil, intPtr(2), intPtr(2), intPtr(2)},
		},
		{name: "lone flagged exercises", flags: []bool{true, false, true}, want: []*int{intPtr(1), nil, intPtr(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssignSupersets(tt.flags)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				switch {
				case got[i] == nil && tt.want[i] == nil:
				case got[i] == nil || tt.want[i] == nil:
					t.Errorf("ids[%d] = %v, want %v", i, got[i], tt.want[i])
				case *got[i] != *tt.want[i]:
					t.Errorf("ids[%d] = %d, want %d", i, *got[i], *tt.want[i])
				}
			}
		})
	}
}

// TestGroups verifies that the first member of each group is its anchor and
// that standalone exercises are left out.
func TestGroups(t *testing.T) {
	r, err := DecodeRoutine([]byte(pushDay))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []SupersetGroup{{ID: 1, Members: []string{"Incline Press", "Flyes"}}}
	if diff := cmp.Diff(want, r.Groups()); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
}

// TestRoundTrip verifies that encoding is stable: decode(encode(r)) == r and
// encode is a fixed point on its own output, including empty weights.
func TestRoundTrip(t *testing.T) {
	r := &Routine{
		Title: "Legs & <Core>",
		Exercises: []Exercise{
			{Name: "Squat", Note: "belt on top sets", Rest: "2 min", Sets: []SetEntry{
				{Set: "W", Weight: "", Reps: "10"},
				{Set: "1", Weight: "100", Reps: "5"},
			}},
			{Name: "Plank", Rest: "", Sets: []SetEntry{{Set: "1", Reps: "60s"}}, SupersetID: intPtr(1)},
			{Name: "Dead Bug", Sets: nil, SupersetID: intPtr(1)},
		},
	}

	first, err := EncodeRoutine(r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRoutine(first)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	second, err := EncodeRoutine(decoded)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("re-encoded text differs:\nfirst:\n%s\nsecond:\n%s", first, second)
	}

	r.Exercises[2].Sets = []SetEntry{}
	if diff := cmp.Diff(r, decoded); diff != "" {
		t.Errorf("decoded routine mismatch (-want +got):\n%s", diff)
	}
}

// TestEncodeKeyOrder verifies field names, key order and explicit null superset ids.
func TestEncodeKeyOrder(t *testing.T) {
	r := &Routine{Title: "T", Exercises: []Exercise{{Name: "A", Sets: []SetEntry{{Set: "1", Weight: "", Reps: "5"}}}}}
	got, err := EncodeRoutine(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `{
  "title": "T",
  "exercises": [
    {
      "name": "A",
      "note": "",
      "rest": "",
      "sets": [
        {
          "set": "1",
          "weight": "",
          "reps": "5"
        }
      ],
      "supersetId": null
    }
  ]
}`
	if string(got) != want {
		t.Errorf("encoded =\n%s\nwant\n%s", got, want)
	}
}

// TestDecodeLenientFields verifies that numeric set values keep their literal
// text and that a missing supersetId reads as standalone.
func TestDecodeLenientFields(t *testing.T) {
	raw := `{"title":"X","exercises":[{"name":"Row","rest":null,"sets":[{"set":1,"weight":42.5,"reps":"8"}]}]}`
	r, err := DecodeRoutine([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ex := r.Exercises[0]
	if ex.SupersetID != nil {
		t.Errorf("supersetId = %d, want nil", *ex.SupersetID)
	}
	if ex.Rest != "" {
		t.Errorf("rest = %q, want empty", ex.Rest)
	}
	if ex.Sets[0].Set != "1" || ex.Sets[0].Weight != "42.5" {
		t.Errorf("set = %+v, want set=1 weight=42.5", ex.Sets[0])
	}
}

// TestDecodeMalformed verifies that every shape the importer cannot replay is
// rejected with ErrMalformed.
func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"not json", "Push Day: bench 3x8"},
		{"array", `[{"name":"Bench"}]`},
		{"null", `null`},
		{"missing exercises", `{"title":"Push Day"}`},
		{"exercises object", `{"title":"Push Day","exercises":{"name":"Bench"}}`},
		{"exercises null", `{"title":"Push Day","exercises":null}`},
		{"nameless exercise", `{"exercises":[{"name":""}]}`},
		{"blank exercise name", `{"exercises":[{"name":"Bench"},{"name":"   "}]}`},
		{"bad set value", `{"exercises":[{"name":"Bench","sets":[{"set":true}]}]}`},
		{"string superset id", `{"exercises":[{"name":"Bench","supersetId":"a"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRoutine([]byte(tt.raw))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}
