// Package align implements the SIMD-batched Smith-Waterman engine at the
// heart of gsw.  An Aligner scores up to simdvec.Lanes equal-length reads
// at a time against a topologically ordered range of graph nodes, carrying
// the trailing DP column across node boundaries and tracking the best and
// second-best hit per read as it goes.
//
// "Score" means something that is added and "penalty" something that is
// subtracted; all profile fields are positive integers.  Hot-path buffers
// live on the Aligner so a single instance allocates once and is reused
// across batches; an Aligner is not safe for concurrent use.
package align
