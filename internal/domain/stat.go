package domain

// DiffStat holds the line totals of the uncommitted changes in a workspace
type DiffStat struct {
	Additions int
	Deletions int
}

// Total returns additions plus deletions
func (s DiffStat) Total() int {
	return s.Additions + s.Deletions
}

// Add returns the sum of two stats
func (s DiffStat) Add(o DiffStat) DiffStat {
	return DiffStat{
		Additions: s.Additions + o.Additions,
		Deletions: s.Deletions + o.Deletions,
	}
}

// IsEmpty returns true if there are no changed lines
func (s DiffStat) IsEmpty() bool {
	return s.Additions == 0 && s.Deletions == 0
}

// FileStat is the line count of a single changed file
type FileStat struct {
	Path      string
	OldPath   string // For renames
	Additions int
	Deletions int
	IsBinary  bool
}

// Stat returns the file's counts as a DiffStat
func (f FileStat) Stat() DiffStat {
	return DiffStat{Additions: f.Additions, Deletions: f.Deletions}
}

// IsRenamed returns true if the file was moved
func (f FileStat) IsRenamed() bool {
	return f.OldPath != "" && f.OldPath != f.Path
}

// SumFiles totals per-file counts
func SumFiles(files []FileStat) DiffStat {
	var total DiffStat
	for _, f := range files {
		total = total.Add(f.Stat())
	}
	return total
}
