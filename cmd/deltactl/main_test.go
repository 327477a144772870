package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "deltactl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestRunDemo(t *testing.T) {
	out, err := runCmd(t, "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "changes=2 indices=[1 3]")
	assert.Contains(t, out, "encoded: 28 bytes")
	assert.Contains(t, out, "matches vector 2")
}

func TestRunVersion(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vecdelta")
}

func TestRunUsage(t *testing.T) {
	_, err := runCmd(t)
	assert.Error(t, err)
	_, err = runCmd(t, "frobnicate")
	assert.Error(t, err)
}

func TestRunPutGetSync(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "primary.sqlite")
	replica := filepath.Join(dir, "replica.sqlite")
	primaryCfg := writeConfig(t, dir, fmt.Sprintf("db = %q\ndataset = \"docs\"\nstrategy = \"delta\"\ncompression = \"lz4\"\nlog_level = \"error\"\n", primary))

	out, err := runCmd(t, "-config", primaryCfg, "put", "d1", "1,2,3,4")
	require.NoError(t, err)
	assert.Equal(t, "d1 version 1 full changes=4 bytes=16\n", out)

	out, err = runCmd(t, "-config", primaryCfg, "put", "d1", "1,2.5,3,4")
	require.NoError(t, err)
	assert.Equal(t, "d1 version 2 delta changes=1 bytes=20\n", out)

	out, err = runCmd(t, "-config", primaryCfg, "put", "d1", "1,2.5,3,4")
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged at version 2")

	out, err = runCmd(t, "-config", primaryCfg, "get", "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1 version 2 f32 dim=4 [1,2.5,3,4]\n", out)

	out, err = runCmd(t, "-config", primaryCfg, "get", "-version", "1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1 version 1 f32 dim=4 [1,2,3,4]\n", out)

	out, err = runCmd(t, "-config", primaryCfg, "history", "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	_, err = runCmd(t, "-config", primaryCfg, "put", "d2", "0,0,0,9")
	require.NoError(t, err)
	out, err = runCmd(t, "-config", primaryCfg, "nearest", "-k", "1", "0,0,0,1")
	require.NoError(t, err)
	assert.Equal(t, "d2\t1.0000\n", out)

	out, err = runCmd(t, "-config", primaryCfg, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "deltas:1")

	replicaDir := t.TempDir()
	replicaCfg := writeConfig(t, replicaDir, fmt.Sprintf("db = %q\nupstream = %q\ndataset = \"docs\"\nlog_level = \"error\"\n", replica, primary))
	out, err = runCmd(t, "-config", replicaCfg, "sync")
	require.NoError(t, err)
	assert.Equal(t, "synced 3 entries, scn 3\n", out)

	out, err = runCmd(t, "-config", replicaCfg, "get", "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1 version 2 f32 dim=4 [1,2.5,3,4]\n", out)

	out, err = runCmd(t, "-config", primaryCfg, "compact")
	require.NoError(t, err)
	assert.Equal(t, "compacted:2\n", out)
}

func TestParseValues(t *testing.T) {
	values, err := parseValues(" 1, 2.5 ,-3,")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2.5, -3}, values)
	_, err = parseValues("1,x")
	assert.Error(t, err)
	_, err = parseValues(",")
	assert.Error(t, err)
}
