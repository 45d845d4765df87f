package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/histmerge/internal/testutil"
)

// Microseconds for 2024-01-01 00:00:00 UTC.
const jan1 = int64(1_704_067_200_000_000)

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HISTMERGE_CONFIG", "")

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func assertGolden(t *testing.T, name string, got string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(got))
}

// stagingFiles lists leftover in-place staging files in dir.
func stagingFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	require.NoError(t, err)
	return matches
}

func firefoxFixture(t *testing.T) string {
	return testutil.FirefoxDB(t,
		testutil.Visit{URL: "https://a.example/", Title: testutil.Str("Example A"), Micros: jan1 + 1_000_000},
		testutil.Visit{URL: "https://b.example/", Micros: jan1 + 1_500},
		testutil.Visit{URL: "https://a.example/", Title: testutil.Str("Example A"), Micros: jan1},
		// Same millisecond as the first visit: same key, collapses.
		testutil.Visit{URL: "https://a.example/", Title: testutil.Str("Example A"), Micros: jan1 + 1_000_400},
	)
}

func TestExport_Stdout(t *testing.T) {
	db := firefoxFixture(t)

	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			out, _, err := execute(t, "--driver", driver, db)
			require.NoError(t, err)
			assertGolden(t, "export_firefox", out)
		})
	}
}

func TestExport_Chromium(t *testing.T) {
	db := testutil.ChromiumDB(t,
		testutil.Visit{URL: "https://a.example/", Title: testutil.Str("Example A"), Micros: jan1 + 1_000_000},
		testutil.Visit{URL: "https://b.example/", Micros: jan1 + 1_500},
		testutil.Visit{URL: "https://a.example/", Title: testutil.Str("Example A"), Micros: jan1},
		testutil.Visit{URL: "https://a.example/", Title: testutil.Str("Example A"), Micros: jan1 + 1_000_400},
	)

	out, _, err := execute(t, "--browser", "chromium", db)
	require.NoError(t, err)
	assertGolden(t, "export_firefox", out)
}

func TestExport_ConfigFileSelectsBrowser(t *testing.T) {
	db := testutil.ChromiumDB(t, testutil.Visit{URL: "https://a.example/", Micros: jan1})
	cfg := filepath.Join(t.TempDir(), "histmerge.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("browser: chromium\n"), 0o644))

	out, _, err := execute(t, "--config", cfg, db)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 00:00:00.000Z https://a.example/\n", out)

	// An explicit flag beats the config file.
	_, _, err = execute(t, "--config", cfg, "--browser", "firefox", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestExport_MergeKeepsPriorTitle(t *testing.T) {
	db := testutil.FirefoxDB(t,
		testutil.Visit{URL: "https://a.example/", Title: testutil.Str("NewTitle"), Micros: jan1},
		testutil.Visit{URL: "https://c.example/", Title: testutil.Str("C"), Micros: jan1 + 2_000_000},
	)
	prior := filepath.Join(t.TempDir(), "history.txt")
	require.NoError(t, os.WriteFile(prior, []byte(
		"2023-12-31 23:59:59.999Z https://old.example/\tOld\n"+
			"2024-01-01 00:00:00.000Z https://a.example/\tOldTitle\n"), 0o644))

	out, _, err := execute(t, db, prior)
	require.NoError(t, err)
	assertGolden(t, "export_merged", out)
}

func TestExport_OutputFile(t *testing.T) {
	db := firefoxFixture(t)
	dest := filepath.Join(t.TempDir(), "out.txt")

	out, _, err := execute(t, db, "-o", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assertGolden(t, "export_firefox", string(got))
}

func TestExport_InPlaceConverges(t *testing.T) {
	db := firefoxFixture(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "history.txt")

	// First run: the merge file does not exist yet.
	_, _, err := execute(t, "-i", db, file)
	require.NoError(t, err)
	first, err := os.ReadFile(file)
	require.NoError(t, err)
	assertGolden(t, "export_firefox", string(first))

	// Second run: nothing new, byte-identical result.
	_, _, err = execute(t, db, file, "--in-place")
	require.NoError(t, err)
	second, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Empty(t, stagingFiles(t, dir))
}

func TestExport_InPlaceConvergesWithUndecodableTitle(t *testing.T) {
	db := testutil.FirefoxDB(t,
		testutil.Visit{URL: "https://a.example/", Title: testutil.Str("A"), Micros: jan1},
	)
	conn, err := sql.Open("sqlite3", db)
	require.NoError(t, err)
	_, err = conn.Exec(`UPDATE moz_places SET title = CAST(X'41FF42' AS TEXT)`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	file := filepath.Join(t.TempDir(), "history.txt")
	for run := 1; run <= 2; run++ {
		_, _, err := execute(t, "-i", db, file)
		require.NoError(t, err, "run %d", run)

		got, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01 00:00:00.000Z https://a.example/\n", string(got), "run %d", run)
	}
}

func TestExport_OutputEqualToMergeFileIsInPlace(t *testing.T) {
	db := firefoxFixture(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "history.txt")
	require.NoError(t, os.WriteFile(file, []byte("2023-01-01 00:00:00.000Z https://old.example/\n"), 0o644))

	_, _, err := execute(t, db, file, "-o", file)
	require.NoError(t, err)

	got, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(got), "https://old.example/")
	assert.Contains(t, string(got), "https://b.example/")
}

func TestExport_InPlaceFailureLeavesFileUntouched(t *testing.T) {
	db := firefoxFixture(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "history.txt")
	// Unsorted previous export: fails the order check halfway through.
	original := "2024-01-01 00:00:00.000Z https://a.example/\tExample A\n" +
		"2024-06-01 00:00:00.000Z https://z.example/\n" +
		"2024-02-01 00:00:00.000Z https://m.example/\n"
	require.NoError(t, os.WriteFile(file, []byte(original), 0o644))

	_, _, err := execute(t, "--check-order", "-i", db, file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "out of order")

	got, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, original, string(got))
	assert.Empty(t, stagingFiles(t, dir))
}

func TestExport_MalformedMergeFile(t *testing.T) {
	db := firefoxFixture(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "history.txt")
	original := "2024-01-01 00:00:00.000Z https://a.example/\n\xff\xfe\n"
	require.NoError(t, os.WriteFile(file, []byte(original), 0o644))

	_, _, err := execute(t, "-i", db, file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid UTF-8")

	got, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, original, string(got))
	assert.Empty(t, stagingFiles(t, dir))
}

func TestExport_Conflicts(t *testing.T) {
	db := firefoxFixture(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "history.txt")
	require.NoError(t, os.WriteFile(file, []byte("x\n"), 0o644))
	out := filepath.Join(dir, "out.txt")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"output and in-place", []string{db, file, "-o", out, "-i"}, "mutually exclusive"},
		{"in-place without merge file", []string{db, "-i"}, "requires a merge file"},
		{"unknown browser", []string{"--browser", "mosaic", db}, "unknown browser"},
		{"no arguments", []string{}, "invalid arguments"},
		{"too many arguments", []string{db, file, "extra"}, "invalid arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, stdout)

			assert.NoFileExists(t, out)
			got, err := os.ReadFile(file)
			require.NoError(t, err)
			assert.Equal(t, "x\n", string(got))
		})
	}
}

func TestExport_MissingDatabase(t *testing.T) {
	_, _, err := execute(t, filepath.Join(t.TempDir(), "places.sqlite"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestExport_SummaryJSON(t *testing.T) {
	db := firefoxFixture(t)
	dest := filepath.Join(t.TempDir(), "out.txt")

	_, stderr, err := execute(t, "--summary", "--format", "json", db, "-o", dest)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ExportSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stderr), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "file", resp.Data.Mode)
	assert.Equal(t, dest, resp.Data.Destination)
	assert.Equal(t, int64(4), resp.Data.Stats.FreshRead)
	assert.Equal(t, int64(3), resp.Data.Stats.Written)
	assert.Equal(t, int64(1), resp.Data.Stats.Duplicates)
}

func TestExport_SummaryText(t *testing.T) {
	db := firefoxFixture(t)

	out, stderr, err := execute(t, "--summary", db)
	require.NoError(t, err)
	assertGolden(t, "export_firefox", out)
	assert.Contains(t, stderr, "Exported 3 record(s) to stdout (stdout): 4 fresh, 0 from previous export, 1 duplicate(s) dropped")
}

func TestExport_VerboseLogsToStderr(t *testing.T) {
	db := firefoxFixture(t)

	out, stderr, err := execute(t, "-v", db)
	require.NoError(t, err)
	assertGolden(t, "export_firefox", out)
	assert.Contains(t, stderr, "export finished")
	assert.Contains(t, stderr, "written=3")
	assert.Contains(t, stderr, "database opened")
	assert.Contains(t, stderr, "visits=4")
}

func TestExport_QuietSkipsVisitCount(t *testing.T) {
	db := firefoxFixture(t)

	_, stderr, err := execute(t, db)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "database opened")
}
