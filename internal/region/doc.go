// Package region owns the region of interest: the polygon a human drew over
// the processing-resolution frame and the occupancy grid rasterized from it.
//
// The mask is built once at startup and is read-only afterwards, so Contains
// is safe to call from any goroutine.
package region
