package pipeline

import "sort"

// Sortable is the slice of an entity that processing order reads.
type Sortable struct {
	ID              int64
	PublicationYear int
}

// SortForProcessing returns the IDs of entities in the order a family should
// be processed: the base entity first, then ascending publication year, with
// unknown years (zero) last. Ties fall back to ID so the order is stable.
func SortForProcessing(entities []Sortable, baseEntityID int64) []int64 {
	sorted := make([]Sortable, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if (a.ID == baseEntityID) != (b.ID == baseEntityID) {
			return a.ID == baseEntityID
		}
		if (a.PublicationYear == 0) != (b.PublicationYear == 0) {
			return b.PublicationYear == 0
		}
		if a.PublicationYear != b.PublicationYear {
			return a.PublicationYear < b.PublicationYear
		}
		return a.ID < b.ID
	})
	ids := make([]int64, len(sorted))
	for i, e := range sorted {
		ids[i] = e.ID
	}
	return ids
}
