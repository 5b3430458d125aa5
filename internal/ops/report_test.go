package ops

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/libreplot/internal/timeline"
)

func TestReport(t *testing.T) {
	cfg := testConfig(t)
	path := writeExport(t, t.TempDir())

	out, err := Report(cfg, nil, ReportInput{Path: path, Title: "January <week 1>"})
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if out.Days != 2 {
		t.Errorf("Days = %d, want 2", out.Days)
	}
	if filepath.Ext(out.Path) != ".html" {
		t.Errorf("Path = %s, want .html", out.Path)
	}

	data, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	page := string(data)

	for _, want := range []string{
		"<title>January &lt;week 1&gt;</title>",
		"<table>",
		`<a href="2024-01-05.png">2024-01-05</a>`,
		`<img src="2024-01-06.png" alt="2024-01-06">`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestBuildMarkdown(t *testing.T) {
	md := BuildMarkdown("Export", []timeline.Summary{
		{Day: "2024-01-05", Readings: 2, Min: 80, Max: 200, Mean: 140, InRangePct: 50, High: 1},
	})

	if !strings.HasPrefix(md, "# Export\n") {
		t.Errorf("missing heading: %q", md)
	}
	if !strings.Contains(md, "| [2024-01-05](2024-01-05.png) | 2 | 80 | 200 | 140.0 | 50.0% | 0 | 1 |") {
		t.Errorf("missing summary row:\n%s", md)
	}
	if !strings.Contains(md, "## 2024-01-05\n\n![2024-01-05](2024-01-05.png)") {
		t.Errorf("missing chart section:\n%s", md)
	}
}

func TestBuildMarkdown_Empty(t *testing.T) {
	md := BuildMarkdown("Nothing", nil)
	if !strings.Contains(md, "No records.") {
		t.Errorf("md = %q", md)
	}
}

func TestDumpDebug(t *testing.T) {
	cfg := testConfig(t)
	path := writeExport(t, t.TempDir())

	out, err := DumpDebug(cfg, nil, DumpInput{Path: path})
	if err != nil {
		t.Fatalf("DumpDebug failed: %v", err)
	}
	if want := filepath.Join(cfg.OutputDir, "export.debug.tsv"); out.Path != want {
		t.Errorf("Path = %s, want %s", out.Path, want)
	}
	if out.Records != 4 {
		t.Errorf("Records = %d, want 4", out.Records)
	}

	data, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("len(lines) = %d, want header + 4", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp\tid\tkind\tglucose_history\t") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2024.01.05 08:00\t1\t0\t120\t130\t") {
		t.Errorf("first record = %q", lines[1])
	}
}

func TestWriteDebug_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDebug(&buf, nil); err != nil {
		t.Fatalf("WriteDebug failed: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("output = %q, want header only", buf.String())
	}
}
