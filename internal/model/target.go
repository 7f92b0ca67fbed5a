package model

import "fmt"

// DirectiveValue is the value assigned by the directives kcovmark writes.
const DirectiveValue = "y"

// Target is a planned Makefile annotation for a single source file.
type Target struct {
	Source   Path // path as extracted from the patch
	Dir      Path // directory holding the Makefile, relative to the root
	Makefile Path // Dir joined with "Makefile"
	Object   string
}

// Directive returns the Makefile line (without newline) enabling coverage
// instrumentation for the target's object file.
func (t Target) Directive() string {
	return Directive(t.Object, DirectiveValue)
}

// Directive formats a per-object KCOV_INSTRUMENT assignment.
func Directive(object, value string) string {
	return fmt.Sprintf("KCOV_INSTRUMENT_%s.o := %s", object, value)
}
