package pipeline

import (
	"slices"
	"testing"
)

func TestSortForProcessing(t *testing.T) {
	entities := []Sortable{
		{ID: 4, PublicationYear: 0},
		{ID: 3, PublicationYear: 2021},
		{ID: 2, PublicationYear: 2019},
		{ID: 9, PublicationYear: 2023},
		{ID: 5, PublicationYear: 2019},
		{ID: 1, PublicationYear: 0},
	}
	got := SortForProcessing(entities, 9)
	want := []int64{9, 2, 5, 3, 1, 4}
	if !slices.Equal(got, want) {
		t.Fatalf("SortForProcessing = %v, want %v", got, want)
	}
	if entities[0].ID != 4 {
		t.Fatal("input slice was reordered")
	}
}

func TestSortForProcessingWithoutBase(t *testing.T) {
	got := SortForProcessing([]Sortable{{ID: 2, PublicationYear: 2020}, {ID: 1, PublicationYear: 2020}}, 0)
	if !slices.Equal(got, []int64{1, 2}) {
		t.Fatalf("unexpected order %v", got)
	}
}
