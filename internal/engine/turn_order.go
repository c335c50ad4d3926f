package engine

// nextDrawer picks the seat that joined right after the previous drawer,
// wrapping to the earliest-joined seat. The previous drawer may have left.
// seats must be non-empty and ordered by Seq.
func nextDrawer(seats []Seat, prevSeq int) Seat {
	for _, s := range seats {
		if s.Seq > prevSeq {
			return s
		}
	}
	return seats[0]
}
