package benchmark

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"caseharvest/lib/caseid"
)

// Checkpoint is the position a prior run stopped at, recovered from
// the tail of its output file.
type Checkpoint struct {
	Year     int
	Sequence int
	// Stripped reports that the recorded case number carried a portal
	// suffix that had to be cut before it parsed. Worth a warning: it
	// means the last processed case was an associated member, not a
	// straight sequential probe.
	Stripped bool
}

// the output can grow to hundreds of megabytes, so the last row is
// fished out of a bounded tail window instead of a full read
const checkpointWindow = 1024

// column index of the searched case number in the output rows
const checkpointColumn = 3

// RecoverCheckpoint derives the resume position from the last row of
// the output file. A missing file means a fresh run. Every other
// failure mode (unreadable file, no parseable row, malformed case
// number column) is returned as an error the caller should treat as
// fatal: scraping on top of a corrupt checkpoint silently loses or
// duplicates cases.
func RecoverCheckpoint(path string) (Checkpoint, bool, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Checkpoint{}, false, err
	}
	offset := info.Size() - checkpointWindow
	if offset < 0 {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Checkpoint{}, false, err
	}
	tail, err := io.ReadAll(file)
	if err != nil {
		return Checkpoint{}, false, err
	}

	lines := strings.Split(strings.TrimRight(string(tail), "\r\n"), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return Checkpoint{}, false, fmt.Errorf("output file %q has no readable final row", path)
	}

	fields := strings.Split(last, ",")
	if len(fields) <= checkpointColumn {
		return Checkpoint{}, false, fmt.Errorf(
			"final row of %q has %d columns, expected the case number in column %d",
			path, len(fields), checkpointColumn+1,
		)
	}

	id, stripped, err := caseid.ParseLenient(fields[checkpointColumn])
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf(
			"case number %q in the final row of %q: %w",
			fields[checkpointColumn], path, err,
		)
	}
	return Checkpoint{Year: id.Year, Sequence: id.Sequence, Stripped: stripped}, true, nil
}
