// Package simdvec provides the fixed-width integer lane vectors underneath
// the gsw alignment kernel.  A Vec holds one DP value per read in the
// current batch; all arithmetic saturates to the lane type's range so that
// a narrow instantiation degrades gracefully instead of wrapping.
//
// The implementation is portable Go written so the compiler can keep a Vec
// in registers; see biosimd in grail-bio for the byte-slice analogue of
// this approach.
package simdvec
