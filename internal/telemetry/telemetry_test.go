package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	tbl := NewTable()
	tbl.PutNumber("b", 2)
	tbl.PutNumber("a", 1)
	tbl.PutString("state", "RUNNING")

	v, ok := tbl.Number("a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	s, ok := tbl.Text("state")
	assert.True(t, ok)
	assert.Equal(t, "RUNNING", s)

	_, ok = tbl.Number("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b", "state"}, tbl.Keys())

	snap := tbl.Snapshot()
	snap["a"] = 100
	v, _ = tbl.Number("a")
	assert.Equal(t, 1.0, v)
}

func TestTableConcurrent(t *testing.T) {
	tbl := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tbl.PutNumber("dt", float64(j))
				tbl.Keys()
			}
		}(i)
	}
	wg.Wait()
	_, ok := tbl.Number("dt")
	assert.True(t, ok)
}

func TestCSVLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := OpenCSV(dir, "run.csv", "A, B")
	require.NoError(t, err)

	require.NoError(t, l.WriteRow("%.2f, %.2f", 1.0, 2.5))
	require.NoError(t, l.WriteRow("%.2f, %.2f", 3.333, -1.0))
	assert.Equal(t, 2, l.Rows())

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.WriteRow("%d", 1), ErrLogClosed)

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{"A, B", "1.00, 2.50", "3.33, -1.00"}, lines)
}

func TestCSVLogNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	first, err := OpenCSV(dir, "run_0.02.csv", "A")
	require.NoError(t, err)
	require.NoError(t, first.WriteRow("1"))
	require.NoError(t, first.Close())

	second, err := OpenCSV(dir, "run_0.02.csv", "A")
	require.NoError(t, err)
	require.NoError(t, second.Close())

	assert.Equal(t, filepath.Join(dir, "run_0.02_1.csv"), second.Path())
	data, err := os.ReadFile(first.Path())
	require.NoError(t, err)
	assert.Equal(t, "A\n1\n", string(data))
}

func TestCSVLogOpenFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	l, err := OpenCSV(filepath.Join(blocker, "sub"), "run.csv", "A")
	assert.Error(t, err)
	assert.Nil(t, l)

	var nilLog *CSVLog
	assert.NoError(t, nilLog.Close())
	assert.ErrorIs(t, nilLog.WriteRow("x"), ErrLogClosed)
}
