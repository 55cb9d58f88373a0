package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := "[paths]\n" +
		"data_dir = \"" + filepath.Join(base, "data") + "\"\n" +
		"log_dir = \"" + filepath.Join(base, "logs") + "\"\n" +
		"[logging]\n" +
		"level = \"error\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIQueueCommands(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "queue", "add", "aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	if !strings.Contains(out, "Queued AA:BB:CC:DD:EE:FF") {
		t.Fatalf("unexpected queue add output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "AA:BB:CC:DD:EE:FF") || !strings.Contains(out, "pending") {
		t.Fatalf("queue list missing item: %q", out)
	}

	out, _, err = runCLI(t, configPath, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if !strings.Contains(out, "pending") {
		t.Fatalf("unexpected queue status output: %q", out)
	}
}

func TestCLIIngestKML(t *testing.T) {
	configPath := writeTestConfig(t)

	kmlPath := filepath.Join(t.TempDir(), "survey.kml")
	content := `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document><Folder>
    <Placemark>
      <name>corner-cafe</name>
      <description><![CDATA[Network ID: AA:BB:CC:DD:EE:FF<br>Time: 2021-12-20T12:13:20.000Z<br>Signal: -61 dBm]]></description>
      <Point><coordinates>-74.0091,40.7433</coordinates></Point>
    </Placemark>
  </Folder></Document>
</kml>`
	if err := os.WriteFile(kmlPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write kml: %v", err)
	}

	out, _, err := runCLI(t, configPath, "ingest", "--format", "kml", kmlPath)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !strings.Contains(out, "inserted:   1") {
		t.Fatalf("unexpected ingest output: %q", out)
	}

	// Re-ingesting the same file only produces duplicates.
	out, _, err = runCLI(t, configPath, "ingest", "--format", "kml", kmlPath)
	if err != nil {
		t.Fatalf("ingest rerun: %v", err)
	}
	if !strings.Contains(out, "duplicates: 1") || !strings.Contains(out, "inserted:   0") {
		t.Fatalf("rerun should deduplicate: %q", out)
	}

	out, _, err = runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "networks") {
		t.Fatalf("unexpected status output: %q", out)
	}
}

func TestCLIMergeDryRun(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, configPath, "merge", "--dry-run")
	if err != nil {
		t.Fatalf("merge dry run: %v", err)
	}
	if !strings.Contains(out, "Dry run") {
		t.Fatalf("unexpected merge output: %q", out)
	}
}

func TestCLIMergeRejectsUnknownSource(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, _, err := runCLI(t, configPath, "merge", "--source", "carrier-pigeon"); err == nil {
		t.Fatal("expected unknown source error")
	}
}

func TestCLIConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	// Without --overwrite a second init refuses.
	cmd = newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
}

func TestCLIQueueProcessWithoutCredential(t *testing.T) {
	configPath := writeTestConfig(t)
	t.Setenv("WIGLE_API_CREDENTIAL", "")
	if _, _, err := runCLI(t, configPath, "queue", "process"); err == nil {
		t.Fatal("expected configuration error without credential")
	}
}
