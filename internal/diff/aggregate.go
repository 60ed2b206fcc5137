package diff

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/juparave/commitreminder/internal/domain"
	"github.com/juparave/commitreminder/internal/logging"
)

const devNull = "/dev/null"

// Aggregator turns unified diff text into line counts
type Aggregator struct {
	logger logging.Logger
}

// NewAggregator creates a new Aggregator
func NewAggregator(logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Aggregator{logger: logger}
}

// ComputeStats returns the total added and removed lines across every file in diffText.
// Empty input yields a zero DiffStat. Malformed input yields a *domain.ParseError.
func (a *Aggregator) ComputeStats(diffText string) (domain.DiffStat, error) {
	files, err := a.ComputeFileStats(diffText)
	if err != nil {
		return domain.DiffStat{}, err
	}
	return domain.SumFiles(files), nil
}

// ComputeFileStats returns per-file line counts in diff order
func (a *Aggregator) ComputeFileStats(diffText string) ([]domain.FileStat, error) {
	if strings.TrimSpace(diffText) == "" {
		return nil, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return nil, &domain.ParseError{Err: err}
	}

	stats := make([]domain.FileStat, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		fs := domain.FileStat{
			Path:     filePath(fd),
			OldPath:  trimPrefix(fd.OrigName),
			IsBinary: isBinary(fd),
		}
		if fs.OldPath == devNull {
			fs.OldPath = ""
		}

		for _, h := range fd.Hunks {
			adds, dels, err := countHunk(h)
			if err != nil {
				return nil, &domain.ParseError{File: fs.Path, Err: err}
			}
			fs.Additions += adds
			fs.Deletions += dels
		}

		if fs.IsBinary {
			a.logger.Debug("binary file counted as zero lines", "path", fs.Path)
		}
		stats = append(stats, fs)
	}

	return stats, nil
}

// countHunk counts pure additions and deletions in a hunk body and checks
// them against the line counts declared in the hunk header.
func countHunk(h *godiff.Hunk) (adds, dels int, err error) {
	body := strings.TrimSuffix(string(h.Body), "\n")
	if body == "" && h.OrigLines == 0 && h.NewLines == 0 {
		return 0, 0, nil
	}

	var context int
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			// Some tools strip the leading space from blank context lines
			context++
			continue
		}
		switch line[0] {
		case '+':
			adds++
		case '-':
			dels++
		case ' ':
			context++
		case '\\':
			// "\ No newline at end of file"
		default:
			return 0, 0, fmt.Errorf("unexpected hunk line %q", line)
		}
	}

	if int32(context+dels) != h.OrigLines || int32(context+adds) != h.NewLines {
		return 0, 0, fmt.Errorf("hunk @@ -%d,%d +%d,%d @@ has %d old and %d new lines",
			h.OrigStartLine, h.OrigLines, h.NewStartLine, h.NewLines, context+dels, context+adds)
	}

	return adds, dels, nil
}

func filePath(fd *godiff.FileDiff) string {
	name := trimPrefix(fd.NewName)
	if name == "" || name == devNull {
		name = trimPrefix(fd.OrigName)
	}
	return name
}

// trimPrefix strips the a/ and b/ prefixes git puts on file names
func trimPrefix(name string) string {
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}

func isBinary(fd *godiff.FileDiff) bool {
	if len(fd.Hunks) > 0 {
		return false
	}
	for _, ext := range fd.Extended {
		if strings.HasPrefix(ext, "Binary files ") || strings.HasPrefix(ext, "GIT binary patch") {
			return true
		}
	}
	return false
}
