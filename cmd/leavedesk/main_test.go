package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leavedesk/leavedesk/internal/config"
	"github.com/leavedesk/leavedesk/internal/leave"
	"github.com/leavedesk/leavedesk/store"
)

func TestRun_usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, &stdout, &stderr))
	assert.Equal(t, 2, run(context.Background(), []string{"dance"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "dance"`)
}

func TestRun_invalidConfig(t *testing.T) {
	t.Setenv("LEAVEDESK_BACKEND", "cassandra")
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"serve"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "invalid configuration")
}

func seed(t *testing.T, dbPath, journalDir string) {
	t.Setenv("LEAVEDESK_DB_PATH", dbPath)
	t.Setenv("LEAVEDESK_JOURNAL_DIR", journalDir)
	cfg := config.Load()

	app, err := openApp(cfg, nil)
	require.NoError(t, err)
	j := openJournal(context.Background(), cfg, journalDir, nil)
	require.NoError(t, j.StartWriting())

	svc := leave.NewService(app, leave.Options{Journal: j})
	ctx := context.Background()
	emp, err := svc.RegisterEmployee(ctx, "Alice", "Engineering", "Developer", 10)
	require.NoError(t, err)
	_, err = svc.SubmitLeaveRequest(ctx, emp.ID, 1, 3, "trip")
	require.NoError(t, err)

	j.FinishWriting()
	require.NoError(t, app.Close())
}

func TestRun_journal(t *testing.T) {
	dir := t.TempDir()
	seed(t, filepath.Join(dir, "leave.db"), filepath.Join(dir, "journal"))

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), []string{"journal"}, &stdout, &stderr), stderr.String())

	var lines []journalLine
	sc := bufio.NewScanner(&stdout)
	for sc.Scan() {
		var line journalLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, leave.OpRegisterEmployee, lines[0].Change.Op)
	assert.Equal(t, "Alice", lines[0].Change.Employee.Name)
	assert.Equal(t, leave.OpSubmitLeaveRequest, lines[1].Change.Op)
	assert.Equal(t, uint64(2), lines[1].Record)
}

func TestRun_backupToDir(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "leave.db")
	seed(t, dbPath, filepath.Join(dir, "journal"))

	out := filepath.Join(dir, "backups")
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), []string{"backup", "-out", out}, &stdout, &stderr), stderr.String())

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	app, err := leave.Open(filepath.Join(out, entries[0].Name()), store.Options{Backend: store.Bolt})
	require.NoError(t, err)
	defer app.Close()
	svc := leave.NewService(app, leave.Options{})
	emp, err := svc.GetEmployee(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "Alice", emp.Name)
}

func TestRun_backupNeedsTarget(t *testing.T) {
	t.Setenv("LEAVEDESK_DB_PATH", filepath.Join(t.TempDir(), "leave.db"))
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"backup"}, &stdout, &stderr))
}
