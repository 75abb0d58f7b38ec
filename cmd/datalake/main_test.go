package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/som4n/DataLake/internal/config"
	"github.com/som4n/DataLake/internal/ingest"
	"github.com/som4n/DataLake/internal/objstore"
)

const salesCSV = "year,month,amount\n2023,1,10\n2023,1,20\n2023,2,5\n2024,1,7\n"

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, a *app, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	if a == nil {
		a = newApp(&out, &errOut)
	} else {
		a.stdout, a.stderr = &out, &errOut
	}
	cmd := newRootCommand(a)
	cmd.SetArgs(append([]string{"--log-file", "-"}, args...))
	err := cmd.ExecuteContext(context.Background())
	a.close()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func writePipeline(t *testing.T, p config.Pipeline) string {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return writeFile(t, "pipeline.json", string(b))
}

func TestIngest_FlagsOnly(t *testing.T) {
	csvPath := writeFile(t, "sales.csv", salesCSV)

	out, _, err := run(t, nil, "ingest",
		"--path", csvPath,
		"--target", "mem://flags-only/raw/sales",
		"--partition-by", "year,month",
		"--job", "sales")
	require.NoError(t, err)

	var res ingest.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, ingest.StatusSuccess, res.Status)
	assert.Equal(t, "sales", res.Job)
	assert.Equal(t, 4, res.Rows)
	assert.Len(t, res.Objects, 3)

	keys := objstore.MemoryNamed("flags-only").Keys()
	require.Len(t, keys, 3)
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "raw/sales/year="), k)
		assert.True(t, strings.HasSuffix(k, ".parquet"), k)
	}
}

func TestIngest_ConfigWithFlagOverride(t *testing.T) {
	csvPath := writeFile(t, "sales.csv", salesCSV)
	cfg := writePipeline(t, config.Pipeline{
		Job:    "from-file",
		Source: config.Source{Kind: "file", File: config.SourceFile{Path: csvPath}},
		Target: config.Target{URL: "mem://override-file/raw", PartitionBy: []string{"year"}},
	})

	out, _, err := run(t, nil, "ingest", "-c", cfg, "--target", "mem://override-flag/raw")
	require.NoError(t, err)

	var res ingest.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "from-file", res.Job)
	assert.Len(t, res.Objects, 2)
	assert.Empty(t, objstore.MemoryNamed("override-file").Keys())
	assert.Len(t, objstore.MemoryNamed("override-flag").Keys(), 2)
}

func TestIngest_Manifest(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte(salesCSV), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("year,month,amount\n2025,3,1\n"), 0o644))
	manifest := writeFile(t, "files.txt", a+"\n\n"+b+"\n")

	out, _, err := run(t, nil, "ingest",
		"--manifest", manifest,
		"--target", "mem://manifest/raw",
		"--partition-by", "year")
	require.NoError(t, err)

	var results []ingest.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, 4, results[0].Rows)
	assert.Equal(t, 1, results[1].Rows)
	assert.Len(t, objstore.MemoryNamed("manifest").Keys(), 3)
}

func TestIngest_FailureReportsResult(t *testing.T) {
	out, _, err := run(t, nil, "ingest",
		"--path", filepath.Join(t.TempDir(), "missing.csv"),
		"--target", "mem://failure/raw")
	require.ErrorIs(t, err, errFailed)

	var res ingest.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, ingest.StatusError, res.Status)
	assert.Equal(t, config.DefaultJob, res.Job)
	assert.NotEmpty(t, res.Message)
	assert.Empty(t, objstore.MemoryNamed("failure").Keys())
}

func TestIngest_InvalidPipelineWritesNothing(t *testing.T) {
	out, stderr, err := run(t, nil, "ingest", "--path", "x.csv")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "target.url")
}

func TestValidate(t *testing.T) {
	good := writePipeline(t, config.Pipeline{
		Source: config.Source{File: config.SourceFile{Path: "sales.csv"}},
		Target: config.Target{URL: "s3://lake/raw"},
	})
	out, _, err := run(t, nil, "validate", "-c", good)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	bad := writePipeline(t, config.Pipeline{
		Source: config.Source{File: config.SourceFile{Path: "sales.csv"}},
		Target: config.Target{URL: "s3://lake/raw", PartitionBy: []string{"year", "year"}},
	})
	out, _, err = run(t, nil, "validate", "-c", bad)
	require.ErrorIs(t, err, errFailed)

	var issues []config.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &issues))
	require.NotEmpty(t, issues)
	assert.Equal(t, "target.partition_by[1]", issues[0].Path)
}

func TestValidate_RequiresConfig(t *testing.T) {
	_, _, err := run(t, nil, "validate")
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	csvPath := writeFile(t, "sales.csv", salesCSV)
	pipeline := func(min int) string {
		return writePipeline(t, config.Pipeline{
			Source: config.Source{File: config.SourceFile{Path: csvPath}},
			Target: config.Target{URL: "mem://check/raw"},
			Checks: []config.Check{
				{Name: "positive_amount", Kind: "positive", Options: config.Options{"column": "amount"}},
				{Name: "enough_rows", Kind: "min_rows", Options: config.Options{"min": min}},
			},
		})
	}

	out, _, err := run(t, nil, "check", "-c", pipeline(1))
	require.NoError(t, err)
	var rep checkReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 4, rep.Rows)
	assert.Equal(t, map[string]bool{"positive_amount": true, "enough_rows": true}, rep.Checks)
	assert.Empty(t, rep.Failed)

	out, _, err = run(t, nil, "check", "-c", pipeline(10))
	require.ErrorIs(t, err, errFailed)
	rep = checkReport{}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, []string{"enough_rows"}, rep.Failed)
	assert.Empty(t, objstore.MemoryNamed("check").Keys())
}

func TestConfigFile_UnknownKey(t *testing.T) {
	toml := writeFile(t, "datalake.toml", "log-level = \"debug\"\nbogus = 1\n")
	_, _, err := run(t, nil, "--config-file", toml, "validate", "-c", "unused.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid option in configuration file")
}

func TestConfigFile_SetsDefaults(t *testing.T) {
	toml := writeFile(t, "datalake.toml", "log-level = \"debug\"\nmetrics-backend = \"none\"\n")
	good := writePipeline(t, config.Pipeline{
		Source: config.Source{File: config.SourceFile{Path: "sales.csv"}},
		Target: config.Target{URL: "s3://lake/raw"},
	})

	a := newApp(nil, nil)
	_, _, err := run(t, a, "--config-file", toml, "validate", "-c", good)
	require.NoError(t, err)
	assert.Equal(t, "debug", a.log.Level)
}
