package model

// BlacklistEntry is one KCOV_INSTRUMENT assignment found in the tree.
type BlacklistEntry struct {
	File   Path   `yaml:"file"`
	Line   int    `yaml:"line"`
	Dir    Path   `yaml:"dir"`
	Object string `yaml:"object,omitempty"` // empty for directory-wide assignments
	Value  string `yaml:"value,omitempty"`
}

// DirectoryWide reports whether the entry covers a whole directory
// (KCOV_INSTRUMENT := n) instead of a single object.
func (e BlacklistEntry) DirectoryWide() bool {
	return e.Object == ""
}

// SourcePath reconstructs the C source the entry refers to. Directory-wide
// entries resolve to the directory itself.
func (e BlacklistEntry) SourcePath() Path {
	if e.DirectoryWide() {
		return e.Dir
	}

	if e.Dir == "" || e.Dir == "." {
		return Path(e.Object + ".c")
	}

	return Path(string(e.Dir) + "/" + e.Object + ".c")
}
