package align

// Stats carries engine counters, accumulated over the life of an Aligner.
type Stats struct {
	// Groups is the number of lane groups aligned.
	Groups int
	// Nodes counts node visits, deletion edges included.
	Nodes int
	// Columns counts DP columns swept.
	Columns int
	// Cells counts DP cells filled (columns times read length).
	Cells int
	// SeedFlushes counts pinched-node seed store flushes.
	SeedFlushes int
}

// Merge adds the field values of the two Stats objects and creates new
// Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Groups += o.Groups
	s.Nodes += o.Nodes
	s.Columns += o.Columns
	s.Cells += o.Cells
	s.SeedFlushes += o.SeedFlushes
	return s
}
