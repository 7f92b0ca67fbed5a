package model

import "time"

// AnnotationStatus describes what happened to a single target.
type AnnotationStatus string

const (
	// Appended means the directive was written to the Makefile.
	Appended AnnotationStatus = "appended"
	// AlreadyPresent means the directive existed and was skipped.
	AlreadyPresent AnnotationStatus = "present"
	// Planned means the target was only computed (dry run or listing).
	Planned AnnotationStatus = "planned"
)

// Annotation records the outcome for one target.
type Annotation struct {
	Source   Path             `yaml:"source"`
	Makefile Path             `yaml:"makefile"`
	Line     string           `yaml:"line"`
	Status   AnnotationStatus `yaml:"status"`
	Diff     string           `yaml:"diff,omitempty"`
}

// Report summarizes one kcovmark run.
type Report struct {
	Root        Path             `yaml:"root"`
	Patch       Path             `yaml:"patch"`
	PatchHash   string           `yaml:"patch_sha256,omitempty"`
	StartedAt   time.Time        `yaml:"started_at"`
	FinishedAt  time.Time        `yaml:"finished_at"`
	Extracted   int              `yaml:"extracted"`
	Candidates  []Path           `yaml:"candidates"`
	Annotations []Annotation     `yaml:"annotations"`
	Blacklist   []BlacklistEntry `yaml:"blacklist"`
	Overlap     []Path           `yaml:"overlap,omitempty"`
}
