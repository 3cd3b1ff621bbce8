package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ossf/byte-analysis/internal/featureflags"
	api "github.com/ossf/byte-analysis/pkg/api/bytedist"
)

func uniformBytes() []byte {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func writeFile(t *testing.T, path string, contents []byte) {
	t.Helper()
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatal(err)
	}
}

func decodeRecords(t *testing.T, data []byte) []api.Record {
	t.Helper()
	var records []api.Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var r api.Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	return records
}

func resetFeatures(t *testing.T) {
	t.Cleanup(func() {
		if err := featureflags.Update("-ByteCounts,ArchiveMembers,-Profiler"); err != nil {
			t.Fatal(err)
		}
	})
}

func TestRunListings(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"tasks", []string{"-list-tasks"}, "classification"},
		{"features", []string{"-list-features"}, "ArchiveMembers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), tt.args, &out); err != nil {
				t.Fatalf("run() error = %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("run() output %q does not contain %q", out.String(), tt.want)
			}
		})
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no local", []string{}},
		{"unknown task", []string{"-local", "x", "-tasks", "parsing"}},
		{"unknown flag", []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), tt.args, &out)
			if !errors.Is(err, errUsage) {
				t.Errorf("run() error = %v, want errUsage", err)
			}
		})
	}
}

func TestRunUnknownFeature(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-features", "NoSuchFeature"}, &out); !errors.Is(err, featureflags.ErrUndefinedFlag) {
		t.Errorf("run() error = %v, want ErrUndefinedFlag", err)
	}
}

func TestRunAnalyzeToStdout(t *testing.T) {
	resetFeatures(t)
	dir := t.TempDir()
	uniform := filepath.Join(dir, "uniform.bin")
	text := filepath.Join(dir, "text.txt")
	writeFile(t, uniform, uniformBytes())
	writeFile(t, text, []byte("aaaaaaaabbbb"))

	var out bytes.Buffer
	args := []string{"-local", uniform + "," + text, "-features", "ByteCounts"}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	records := decodeRecords(t, out.Bytes())
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	got := records[0].Results.Files[0]
	if records[0].Source != uniform || got.Filename != "uniform.bin" {
		t.Errorf("record 0 = %+v", records[0])
	}
	if got.Verdict == nil || !got.Verdict.Accepted {
		t.Errorf("uniform.bin verdict = %+v, want accepted", got.Verdict)
	}
	if got.ByteCounts == nil || got.ByteCounts.Len() != 256 {
		t.Errorf("uniform.bin byte counts = %v, want 256 values", got.ByteCounts)
	}

	got = records[1].Results.Files[0]
	if got.Verdict == nil || got.Verdict.Accepted {
		t.Errorf("text.txt verdict = %+v, want rejected", got.Verdict)
	}
}

func TestRunOutputUploadAndCriteria(t *testing.T) {
	resetFeatures(t)
	dir := t.TempDir()
	text := filepath.Join(dir, "text.txt")
	writeFile(t, text, []byte("aaaaaaaabbbb"))

	criteriaFile := filepath.Join(dir, "criteria.yaml")
	writeFile(t, criteriaFile, []byte("min_entropy: 0\nmin_std_dev: 0\nmax_std_dev: 0\n"))

	outputFile := filepath.Join(dir, "out.json")
	uploadDir := t.TempDir()

	args := []string{
		"-local", text,
		"-tasks", "basic,classification",
		"-criteria", criteriaFile,
		"-output", outputFile,
		"-upload", "file://" + uploadDir,
	}
	var out bytes.Buffer
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected stdout output %q", out.String())
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatal(err)
	}
	records := decodeRecords(t, data)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	got := records[0].Results.Files[0]
	if got.SHA256 == "" || got.Distribution == nil {
		t.Errorf("file result = %+v, want basic and distribution data", got)
	}
	if got.Verdict == nil || !got.Verdict.Accepted {
		t.Errorf("verdict = %+v, want accepted with all rules disabled", got.Verdict)
	}

	if _, err := os.Stat(filepath.Join(uploadDir, "text.txt.json")); err != nil {
		t.Errorf("results not uploaded: %v", err)
	}
}

func TestParseTasks(t *testing.T) {
	got, err := parseTasks([]string{"Basic", "all", "distribution"})
	if err != nil {
		t.Fatalf("parseTasks() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("parseTasks() = %v, want the three tasks once each", got)
	}
}
