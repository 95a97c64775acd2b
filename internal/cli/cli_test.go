package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sokohub/soko/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_MigrateAndCreateUser(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.toml")
	t.Setenv("SOKO_DB_PATH", filepath.Join(dir, "soko.db"))
	t.Setenv("SOKO_DB_DRIVER", "sqlite")

	if _, err := run(t, "config", "init", "--config", cfgFile); err != nil {
		t.Fatalf("config init: %v", err)
	}
	out, err := run(t, "migrate", "--config", cfgFile)
	if err != nil {
		t.Fatalf("migrate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Platform account") {
		t.Errorf("migrate output = %q", out)
	}

	out, err = run(t, "user", "create", "--config", cfgFile,
		"--name", "Wanjiru", "--email", "wanjiru@example.com", "--role", "seller")
	if err != nil {
		t.Fatalf("user create: %v\n%s", err, out)
	}
	var created struct {
		User    domain.User    `json:"user"`
		Account domain.Account `json:"account"`
	}
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if created.User.Role != domain.RoleSeller || created.Account.Currency != "KES" {
		t.Errorf("created = %+v", created)
	}

	out, err = run(t, "balance", created.Account.ID.String(), "--config", cfgFile)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !strings.Contains(out, " 0 KES") {
		t.Errorf("balance output = %q", out)
	}

	if _, err := run(t, "user", "create", "--config", cfgFile,
		"--name", "Again", "--email", "wanjiru@example.com"); err == nil {
		t.Error("duplicate email should fail")
	}

	out, err = run(t, "audit", "--config", cfgFile)
	if err != nil {
		t.Fatalf("audit: %v\n%s", err, out)
	}
	var logs []domain.AuditLog
	if err := json.Unmarshal([]byte(out), &logs); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(logs) != 1 || logs[0].Action != domain.AuditUserCreated || logs[0].Metadata["email"] != "wanjiru@example.com" {
		t.Errorf("audit = %+v, want one %s record", logs, domain.AuditUserCreated)
	}
}

func TestCLI_InvalidArguments(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.toml")
	t.Setenv("SOKO_DB_PATH", filepath.Join(dir, "soko.db"))
	t.Setenv("SOKO_DB_DRIVER", "sqlite")

	tests := [][]string{
		{"balance", "not-a-uuid"},
		{"order", "transition", "not-a-uuid", "shipped"},
		{"order", "list", "--status", "lost"},
	}
	for _, args := range tests {
		if _, err := run(t, append(args, "--config", cfgFile)...); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}
