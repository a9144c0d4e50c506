package config

import (
	"bytes"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func validTestConfig() Config {
	cfg := Defaults()
	cfg.StoreBackend = StoreMemory
	return cfg
}

func envMap(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestValidate_DefaultsPass(t *testing.T) {
	t.Parallel()
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to be valid, got error: %v", err)
	}
}

func TestValidate_RequiresBucketWhenRemoteBackupEnabled(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.EnableRemoteBackup = true
	cfg.AWSAccessKeyID = "only-half"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error without a bucket")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	msg := err.Error()
	for _, expected := range []string{"BUCKET_NAME", "AWS_SECRET_ACCESS_KEY"} {
		if !strings.Contains(msg, expected) {
			t.Fatalf("expected validation error to mention %q, got: %v", expected, err)
		}
	}

	cfg.NoS3 = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("--no-s3 should not need a bucket, got: %v", err)
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.StoreBackend = "postgres"
	cfg.LogLevel = "chatty"
	cfg.OIDCIssuer = "accounts.google.com"
	cfg.BackupPushInterval = -time.Second

	var verr *ValidationError
	if !errors.As(cfg.Validate(), &verr) {
		t.Fatal("expected *ValidationError")
	}
	if len(verr.Errors) != 4 {
		t.Fatalf("expected 4 problems, got %d: %v", len(verr.Errors), verr.Errors)
	}
}

func testValidate_MasterKey(t *rapid.T) {
	cfg := validTestConfig()
	good := rapid.Bool().Draw(t, "good")
	if good {
		cfg.MasterKey = hex.EncodeToString(rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "key"))
	} else {
		n := rapid.IntRange(1, 63).Draw(t, "len")
		cfg.MasterKey = strings.Repeat("a", n)
	}

	err := cfg.Validate()
	if good && err != nil {
		t.Fatalf("expected valid master key, got %v", err)
	}
	if !good && (err == nil || !strings.Contains(err.Error(), "MASTER_KEY")) {
		t.Fatalf("expected MASTER_KEY error, got %v", err)
	}
	if good {
		key, err := cfg.MasterKeyBytes()
		if err != nil || len(key) != 32 {
			t.Fatalf("MasterKeyBytes failed: %v", err)
		}
	}
}

func TestValidate_MasterKey(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_MasterKey)
}

func TestMasterKeyBytes_EmptyMeansNoEncryption(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	key, err := cfg.MasterKeyBytes()
	if err != nil || key != nil {
		t.Fatalf("expected nil key, got %v %v", key, err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()
	cfg := Defaults()
	cfg.applyEnv(envMap(map[string]string{
		"DATA_DIR":             "  /var/notes  ",
		"ENABLE_REMOTE_BACKUP": "true",
		"BACKUP_PUSH_INTERVAL": "750ms",
		"BUCKET_NAME":          "backups",
		"LOG_LEVEL":            "",
		"AWS_REGION":           "eu-west-1",
	}))

	if cfg.DataDir != "/var/notes" {
		t.Fatalf("DATA_DIR not trimmed: %q", cfg.DataDir)
	}
	if !cfg.EnableRemoteBackup || cfg.BackupPushInterval != 750*time.Millisecond {
		t.Fatalf("bool/duration not applied: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("empty env should keep default, got %q", cfg.LogLevel)
	}
	if cfg.AWSBucketName != "backups" || cfg.AWSRegion != "eu-west-1" {
		t.Fatalf("S3 env not applied: %+v", cfg)
	}
}

func TestApplyEnv_BadValuesKeepPrevious(t *testing.T) {
	t.Parallel()
	cfg := Defaults()
	cfg.applyEnv(envMap(map[string]string{
		"ENABLE_REMOTE_BACKUP": "maybe",
		"BACKUP_PUSH_INTERVAL": "soon",
	}))
	if cfg.EnableRemoteBackup {
		t.Fatal("unparseable bool should be ignored")
	}
	if cfg.BackupPushInterval != 2*time.Second {
		t.Fatalf("unparseable duration should be ignored, got %v", cfg.BackupPushInterval)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "notekeep.yaml")
	content := "data_dir: /srv/notekeep\nstore_backend: memory\nbackup_push_interval: 5s\nenable_remote_backup: true\nbucket_name: b\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg := Defaults()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.DataDir != "/srv/notekeep" || cfg.StoreBackend != StoreMemory {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.BackupPushInterval != 5*time.Second {
		t.Fatalf("duration not decoded: %v", cfg.BackupPushInterval)
	}
	if cfg.OIDCIssuer != "https://accounts.google.com" {
		t.Fatalf("unset keys should keep defaults, got %q", cfg.OIDCIssuer)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := Defaults()

	if err := cfg.LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	unknown := filepath.Join(dir, "unknown.yaml")
	_ = os.WriteFile(unknown, []byte("listen_addr: :8080\n"), 0o600)
	if err := cfg.LoadFile(unknown); err == nil {
		t.Fatal("expected error for unknown key")
	}

	empty := filepath.Join(dir, "empty.yaml")
	_ = os.WriteFile(empty, nil, 0o600)
	if err := cfg.LoadFile(empty); err != nil {
		t.Fatalf("empty file should be accepted, got %v", err)
	}
}

func TestLoadConfig_PrecedenceFileEnvFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notekeep.yaml")
	if err := os.WriteFile(path, []byte("data_dir: /from/file\nlog_level: warn\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv(EnvConfigFile, path)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATA_DIR", "")

	cfg, err := LoadConfig(Flags{NoS3: true})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.DataDir != "/from/file" || cfg.LogLevel != "error" || !cfg.NoS3 {
		t.Fatalf("precedence mismatch: %+v", cfg)
	}

	cfg, err = LoadConfig(Flags{DataDir: "/from/flag", LogLevel: "debug", Memory: true})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.DataDir != "/from/flag" || cfg.LogLevel != "debug" || cfg.StoreBackend != StoreMemory {
		t.Fatalf("flags should win: %+v", cfg)
	}
}

func TestLogSummary_RedactsSecrets(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.MasterKey = strings.Repeat("ab", 32)
	cfg.AWSSecretAccessKey = "super-secret"
	cfg.AWSAccessKeyID = "AKIAEXAMPLE"

	var buf bytes.Buffer
	cfg.LogSummary(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	out := buf.String()
	for _, secret := range []string{cfg.MasterKey, "super-secret", "AKIAEXAMPLE"} {
		if strings.Contains(out, secret) {
			t.Fatalf("summary leaked %q: %s", secret, out)
		}
	}
	if !strings.Contains(out, "store_backend") {
		t.Fatalf("summary missing fields: %s", out)
	}
}
