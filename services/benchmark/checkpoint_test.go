package benchmark

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecoverCheckpointFreshRun(t *testing.T) {
	_, resuming, err := RecoverCheckpoint(filepath.Join(t.TempDir(), "missing.csv"))
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, resuming)
}

func TestRecoverCheckpointFromSinkOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink, err := NewCsvSink(path)
	if err != nil {
		t.Fatal(err)
	}
	record := NewRecord("FL", "Bay", "21000123")
	record.Charges = []Charge{{Count: 1, Description: "THEFT"}}
	if err := sink.Append(context.Background(), record); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	checkpoint, resuming, err := RecoverCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, resuming)
	require.Equal(t, 2021, checkpoint.Year)
	require.Equal(t, 123, checkpoint.Sequence)
	require.False(t, checkpoint.Stripped)
}

func TestRecoverCheckpointReadsOnlyTheTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	// enough rows that the first ones fall outside the tail window
	for sequence := 1; sequence <= 200; sequence++ {
		fmt.Fprintf(file, "id,FL,Bay,21%06d,,,,,,,,,,,,,,,,,,,,,,,,,,,,,,,\n", sequence)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	checkpoint, resuming, err := RecoverCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, resuming)
	require.Equal(t, 2021, checkpoint.Year)
	require.Equal(t, 200, checkpoint.Sequence)
}

func TestRecoverCheckpointSuffixedCaseNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	row := "id,FL,Bay,21000123CFMA,,,,,,,,,,,,,,,,,,,,,,,,,,,,,,,\n"
	if err := os.WriteFile(path, []byte(row), 0644); err != nil {
		t.Fatal(err)
	}

	checkpoint, resuming, err := RecoverCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, resuming)
	require.True(t, checkpoint.Stripped)
	require.Equal(t, 2021, checkpoint.Year)
	require.Equal(t, 123, checkpoint.Sequence)
}

func TestRecoverCheckpointCorruption(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"empty file", ""},
		{"whitespace only", "\n\n"},
		{"too few columns", "id,FL,Bay\n"},
		{"garbage case number", "id,FL,Bay,not-a-case,,,,,\n"},
		// a file that only ever got its header written
		{"header only", strings.Join(csvHeader, ",") + "\n"},
	}
	for _, test := range tests {
		path := filepath.Join(t.TempDir(), "out.csv")
		if err := os.WriteFile(path, []byte(test.contents), 0644); err != nil {
			t.Fatal(err)
		}
		_, _, err := RecoverCheckpoint(path)
		require.Error(t, err, "case %q", test.name)
	}
}
