package diff

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestIdenticalInputsYieldEmptyScript(t *testing.T) {
	got := Compute("S: chest pain\nO: stable\n", "S: chest pain\nO: stable\n")
	if got == nil {
		t.Fatal("expected non-nil empty slice")
	}
	if len(got) != 0 {
		t.Errorf("segments = %v, want empty", got)
	}
}

func TestReplacementProducesRemovedThenAdded(t *testing.T) {
	got := Compute("S: chest pain\nP: observe\n", "S: chest pain resolved\nP: observe\n")
	want := []Segment{
		{Op: Removed, Text: "S: chest pain"},
		{Op: Added, Text: "S: chest pain resolved"},
		{Op: Unchanged, Text: "P: observe"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("segments = %+v, want %+v", got, want)
	}
}

func TestPureAddition(t *testing.T) {
	got := Compute("line one\n", "line one\nline two\n")
	want := []Segment{
		{Op: Unchanged, Text: "line one"},
		{Op: Added, Text: "line two"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("segments = %+v, want %+v", got, want)
	}
}

func TestPureRemoval(t *testing.T) {
	got := Compute("keep\ndrop\n", "keep\n")
	want := []Segment{
		{Op: Unchanged, Text: "keep"},
		{Op: Removed, Text: "drop"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("segments = %+v, want %+v", got, want)
	}
}

func TestEmptyPrevious(t *testing.T) {
	got := Compute("", "fresh content")
	want := []Segment{{Op: Added, Text: "fresh content"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("segments = %+v, want %+v", got, want)
	}
}

func TestDeterminism(t *testing.T) {
	prev := "a\nb\nc\nd\n"
	next := "a\nx\nc\ny\n"
	first := Compute(prev, next)
	for i := 0; i < 10; i++ {
		if again := Compute(prev, next); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d diverged: %+v vs %+v", i, again, first)
		}
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	raw, err := Marshal("old", "new")
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var segs []Segment
	if err := json.Unmarshal(raw, &segs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(segs) != 2 {
		t.Errorf("segments = %+v, want removed+added", segs)
	}
}
