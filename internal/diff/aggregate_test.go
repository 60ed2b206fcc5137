package diff

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juparave/commitreminder/internal/domain"
)

// gitSection builds one file section of `git diff` output with a single hunk
func gitSection(name string, context, adds, dels int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "diff --git a/%s b/%s\n", name, name)
	sb.WriteString("index 3b18e51..a042389 100644\n")
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", name, name)
	fmt.Fprintf(&sb, "@@ -1,%d +1,%d @@ func main() {\n", context+dels, context+adds)
	for i := 0; i < context; i++ {
		fmt.Fprintf(&sb, " unchanged line %d\n", i)
	}
	for i := 0; i < dels; i++ {
		fmt.Fprintf(&sb, "-removed line %d\n", i)
	}
	for i := 0; i < adds; i++ {
		fmt.Fprintf(&sb, "+added line %d\n", i)
	}
	return sb.String()
}

func TestComputeStats_Empty(t *testing.T) {
	a := NewAggregator(nil)

	for _, input := range []string{"", "\n", "  \n\t"} {
		stat, err := a.ComputeStats(input)
		require.NoError(t, err)
		assert.Equal(t, domain.DiffStat{}, stat)
	}
}

func TestComputeStats_TwoFiles(t *testing.T) {
	a := NewAggregator(nil)
	text := gitSection("a.go", 3, 10, 2) + gitSection("b.go", 1, 3, 1)

	stat, err := a.ComputeStats(text)
	require.NoError(t, err)
	assert.Equal(t, domain.DiffStat{Additions: 13, Deletions: 3}, stat)
	assert.Equal(t, 16, stat.Total())

	files, err := a.ComputeFileStats(text)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.go", files[0].Path)
	assert.Equal(t, 10, files[0].Additions)
	assert.Equal(t, 2, files[0].Deletions)
	assert.Equal(t, "b.go", files[1].Path)
	assert.Equal(t, 3, files[1].Additions)
	assert.Equal(t, 1, files[1].Deletions)
}

func TestComputeStats_HeadersNotCounted(t *testing.T) {
	text := `diff --git a/notes.txt b/notes.txt
index 3b18e51..a042389 100644
--- a/notes.txt
+++ b/notes.txt
@@ -1,3 +1,3 @@
 first
--- looks like a header but is a removed line
+++ looks like a header but is an added line
 last
`
	stat, err := NewAggregator(nil).ComputeStats(text)
	require.NoError(t, err)
	assert.Equal(t, domain.DiffStat{Additions: 1, Deletions: 1}, stat)
}

func TestComputeStats_NoNewlineMarker(t *testing.T) {
	text := `diff --git a/VERSION b/VERSION
index 9f8e9b6..d9d8b8e 100644
--- a/VERSION
+++ b/VERSION
@@ -1 +1 @@
-1.0.0
\ No newline at end of file
+1.1.0
\ No newline at end of file
`
	stat, err := NewAggregator(nil).ComputeStats(text)
	require.NoError(t, err)
	assert.Equal(t, domain.DiffStat{Additions: 1, Deletions: 1}, stat)
}

func TestComputeFileStats_NewAndDeletedFiles(t *testing.T) {
	text := `diff --git a/added.go b/added.go
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/added.go
@@ -0,0 +1,2 @@
+package main
+
diff --git a/gone.go b/gone.go
deleted file mode 100644
index e69de29..0000000
--- a/gone.go
+++ /dev/null
@@ -1,3 +0,0 @@
-package main
-
-func gone() {}
`
	files, err := NewAggregator(nil).ComputeFileStats(text)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "added.go", files[0].Path)
	assert.Equal(t, "", files[0].OldPath)
	assert.Equal(t, 2, files[0].Additions)
	assert.Equal(t, 0, files[0].Deletions)

	assert.Equal(t, "gone.go", files[1].Path)
	assert.Equal(t, 0, files[1].Additions)
	assert.Equal(t, 3, files[1].Deletions)
}

func TestComputeStats_BinaryCountsAsZero(t *testing.T) {
	text := gitSection("main.go", 2, 4, 1) + `diff --git a/logo.png b/logo.png
index 1d7f2a3..8e0b1c4 100644
Binary files a/logo.png and b/logo.png differ
` + gitSection("util.go", 2, 1, 1)

	stat, err := NewAggregator(nil).ComputeStats(text)
	require.NoError(t, err)
	assert.Equal(t, domain.DiffStat{Additions: 5, Deletions: 2}, stat)
}

func TestComputeStats_MultipleHunks(t *testing.T) {
	text := `diff --git a/server.go b/server.go
index 3b18e51..a042389 100644
--- a/server.go
+++ b/server.go
@@ -10,4 +10,5 @@ import (
 	"fmt"
-	"log"
+	"log/slog"
+	"net/http"
 	"os"
 	"time"
@@ -40,3 +41,2 @@ func run() error {
 	defer stop()
-	log.Println("starting")
 	return serve(ctx)
`
	stat, err := NewAggregator(nil).ComputeStats(text)
	require.NoError(t, err)
	assert.Equal(t, domain.DiffStat{Additions: 2, Deletions: 2}, stat)
}

func TestComputeStats_MalformedHunkHeader(t *testing.T) {
	text := `diff --git a/main.go b/main.go
index 3b18e51..a042389 100644
--- a/main.go
+++ b/main.go
@@ -x,y +z,w @@
+added
`
	_, err := NewAggregator(nil).ComputeStats(text)
	require.Error(t, err)

	var pe *domain.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestComputeStats_TruncatedHunk(t *testing.T) {
	text := `diff --git a/main.go b/main.go
index 3b18e51..a042389 100644
--- a/main.go
+++ b/main.go
@@ -1,5 +1,6 @@
 package main
+import "fmt"
`
	_, err := NewAggregator(nil).ComputeStats(text)
	require.Error(t, err)

	var pe *domain.ParseError
	assert.True(t, errors.As(err, &pe))
}

// TestComputeStats_SumsGeneratedDiffs checks that totals equal the sum of
// the per-file changes for diffs produced by an independent diff engine.
func TestComputeStats_SumsGeneratedDiffs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	a := NewAggregator(nil)

	for round := 0; round < 25; round++ {
		var (
			sb       strings.Builder
			expected domain.DiffStat
		)

		nFiles := 1 + rng.Intn(4)
		for f := 0; f < nFiles; f++ {
			before, after := mutate(rng, 12+rng.Intn(30))
			if strings.Join(before, "") == strings.Join(after, "") {
				continue
			}

			want := opcodeStat(before, after)
			expected = expected.Add(want)

			name := fmt.Sprintf("pkg/file_%d_%d.go", round, f)
			fmt.Fprintf(&sb, "diff --git a/%s b/%s\n", name, name)
			text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        before,
				B:        after,
				FromFile: "a/" + name,
				ToFile:   "b/" + name,
				Context:  3,
			})
			require.NoError(t, err)
			sb.WriteString(text)
		}

		stat, err := a.ComputeStats(sb.String())
		require.NoError(t, err, "round %d", round)
		assert.Equal(t, expected, stat, "round %d", round)

		files, err := a.ComputeFileStats(sb.String())
		require.NoError(t, err)
		assert.Equal(t, stat, domain.SumFiles(files))
	}
}

// mutate returns a file of n lines and a randomly edited copy
func mutate(rng *rand.Rand, n int) (before, after []string) {
	for i := 0; i < n; i++ {
		before = append(before, fmt.Sprintf("line %d\n", i))
	}
	for i, line := range before {
		switch rng.Intn(6) {
		case 0:
			// dropped
		case 1:
			after = append(after, line, fmt.Sprintf("inserted after %d\n", i))
		case 2:
			after = append(after, fmt.Sprintf("rewritten %d\n", i))
		default:
			after = append(after, line)
		}
	}
	return before, after
}

func opcodeStat(before, after []string) domain.DiffStat {
	var s domain.DiffStat
	for _, op := range difflib.NewMatcher(before, after).GetOpCodes() {
		switch op.Tag {
		case 'r':
			s.Deletions += op.I2 - op.I1
			s.Additions += op.J2 - op.J1
		case 'd':
			s.Deletions += op.I2 - op.I1
		case 'i':
			s.Additions += op.J2 - op.J1
		}
	}
	return s
}
