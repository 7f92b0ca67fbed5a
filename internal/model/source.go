// Package model defines the data structures shared by the kcovmark pipeline.
package model

// Path represents a file system path. Paths taken from a patch are
// slash-separated and relative to the source tree root.
type Path string

// String implements fmt.Stringer.
func (p Path) String() string {
	return string(p)
}
