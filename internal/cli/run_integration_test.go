package cli

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/VoxDroid/shguard/internal/audit"
	"github.com/VoxDroid/shguard/internal/db"
	"github.com/VoxDroid/shguard/internal/executor"
	"github.com/VoxDroid/shguard/internal/security"
)

func TestRunIntegrationDryRun(t *testing.T) {
	t.Setenv("SHGUARD_HOME", t.TempDir())
	t.Setenv("SHGUARD_DB", "")

	dbConn, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB(): %v", err)
	}
	defer func() { _ = dbConn.Close() }()
	repo := audit.NewRepository(dbConn)

	var out bytes.Buffer
	var errb bytes.Buffer
	e := &executor.Executor{DryRun: true, Verbose: true}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, c := range []string{"echo one", "format c:", "echo two"} {
		d := security.Classify(c)
		if _, err := repo.Record(audit.NewEntry(c, audit.SourceRun, "", d)); err != nil {
			t.Fatalf("Record: %v", err)
		}
		err := e.Execute(ctx, c, "", nil, &out, &errb)
		var blocked *security.BlockedError
		if d.Allowed && err != nil {
			t.Fatalf("Execute(%q): %v", c, err)
		}
		if !d.Allowed && !errors.As(err, &blocked) {
			t.Fatalf("expected blocked error for %q, got %v", c, err)
		}
	}

	s := out.String()
	if !strings.Contains(s, "dry-run: echo one") || !strings.Contains(s, "dry-run: echo two") {
		t.Fatalf("unexpected dry-run output: %q", s)
	}
	if strings.Contains(s, "format") {
		t.Fatalf("blocked command must not reach dry-run output: %q", s)
	}

	st, err := repo.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 3 || st.Blocked != 1 || st.ByRule["disk-format"] != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestRunIntegrationRealShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses bash")
	}
	t.Setenv("SHGUARD_HOME", t.TempDir())
	t.Setenv("SHGUARD_DB", "")

	dbConn, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB(): %v", err)
	}
	defer func() { _ = dbConn.Close() }()
	repo := audit.NewRepository(dbConn)

	e := &executor.Executor{Timeout: 5 * time.Second}
	command := "echo out; echo err >&2; exit 3"
	id, err := repo.Record(audit.NewEntry(command, audit.SourceRun, "", security.Classify(command)))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	report := e.Run(context.Background(), command, "")
	for _, want := range []string{"out", "STDERR:\nerr", "Exit code: 3"} {
		if !strings.Contains(report, want) {
			t.Fatalf("expected %q in report, got %q", want, report)
		}
	}
	if err := repo.SetExitCode(id, 3); err != nil {
		t.Fatalf("SetExitCode: %v", err)
	}
	entries, err := repo.List(audit.Filter{Limit: 1})
	if err != nil || len(entries) != 1 {
		t.Fatalf("List: %v %v", entries, err)
	}
	if !entries[0].ExitCode.Valid || entries[0].ExitCode.Int64 != 3 {
		t.Fatalf("expected exit code 3, got %+v", entries[0].ExitCode)
	}
}
