package ops

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/libreplot/internal/chart"
	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/errors"
)

// dataLine joins the fourteen export columns with tabs, including the
// trailing separator after the last column.
func dataLine(fields ...string) string {
	for len(fields) < 14 {
		fields = append(fields, "")
	}
	return strings.Join(fields, "\t") + "\t"
}

// writeExport writes a small two-day export and returns its path.
func writeExport(t *testing.T, dir string) string {
	t.Helper()
	lines := []string{
		"Patient report",
		"ID\tTime\tRecord Type\tHistoric Glucose\tScan Glucose",
		dataLine("1", "2024.01.05 08:00", "0", "120"),
		dataLine("2", "2024.01.05 08:00", "1", "", "130"),
		dataLine("3", "2024.01.05 12:00", "4", "", "", "", "", "6"),
		"garbage",
		dataLine("4", "2024.01.06 07:30", "0", "55"),
		dataLine("5", "2024.01.06 21:00", "5", "", "", "", "", "", "", "", "30"),
	}
	path := filepath.Join(dir, "export.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	return path
}

// writeIcons writes solid placeholder icons into a new resource directory.
func writeIcons(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{0, 128, 0, 255})
		}
	}
	for _, name := range []string{chart.FastInsulinIcon, chart.FoodIcon, chart.SlowInsulinIcon} {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("create icon: %v", err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatalf("encode icon: %v", err)
		}
		f.Close()
	}
	return dir
}

// testConfig returns a config writing into a fresh output directory.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ResourceDir = writeIcons(t)
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestLoad(t *testing.T) {
	path := writeExport(t, t.TempDir())

	ds, err := Load(config.DefaultConfig(), nil, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if ds.Lines != 8 {
		t.Errorf("Lines = %d, want 8", ds.Lines)
	}
	if ds.Failed != 3 || ds.Reported != 1 {
		t.Errorf("Failed = %d, Reported = %d, want 3 and 1", ds.Failed, ds.Reported)
	}
	if len(ds.Days) != 2 {
		t.Fatalf("len(Days) = %d, want 2", len(ds.Days))
	}
	if got := ds.Days[0].Title(); got != "2024-01-05" {
		t.Errorf("first day = %s, want 2024-01-05", got)
	}

	records := ds.Records()
	if len(records) != 4 {
		t.Fatalf("len(Records) = %d, want 4", len(records))
	}
	merged := records[0]
	if merged.ID != "1" || merged.Kind != 0 || merged.GlucoseHistory != 120 || merged.GlucoseScanned != 130 {
		t.Errorf("merged record = %+v", merged)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(nil, nil, ""); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("empty path: err = %v, want INVALID_REQUEST", err)
	}

	if _, err := Load(nil, nil, filepath.Join(t.TempDir(), "missing.txt")); !errors.Is(err, errors.ErrInputOpen) {
		t.Errorf("missing file: err = %v, want INPUT_OPEN", err)
	}

	cfg := config.DefaultConfig()
	cfg.DaySplit = "weekly"
	path := writeExport(t, t.TempDir())
	if _, err := Load(cfg, nil, path); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("bad day_split: err = %v, want INVALID_REQUEST", err)
	}
}

func TestRender(t *testing.T) {
	cfg := testConfig(t)
	path := writeExport(t, t.TempDir())

	out, err := Render(context.Background(), cfg, nil, RenderInput{Path: path})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(out.Failed) != 0 {
		t.Fatalf("Failed = %+v, want none", out.Failed)
	}
	if out.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", out.Skipped)
	}

	want := []string{
		filepath.Join(cfg.OutputDir, "2024-01-05.png"),
		filepath.Join(cfg.OutputDir, "2024-01-06.png"),
	}
	if len(out.Written) != len(want) {
		t.Fatalf("Written = %v, want %v", out.Written, want)
	}
	for i, p := range want {
		if out.Written[i] != p {
			t.Errorf("Written[%d] = %s, want %s", i, out.Written[i], p)
		}
		f, err := os.Open(p)
		if err != nil {
			t.Fatalf("open chart: %v", err)
		}
		cfgImg, err := png.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode chart: %v", err)
		}
		if cfgImg.Width != 800 || cfgImg.Height != 600 {
			t.Errorf("chart size = %dx%d, want 800x600", cfgImg.Width, cfgImg.Height)
		}
	}
}

func TestRender_DayFilter(t *testing.T) {
	cfg := testConfig(t)
	path := writeExport(t, t.TempDir())

	out, err := Render(context.Background(), cfg, nil, RenderInput{
		Path: path,
		Days: []string{"2024-01-06", "2024-02-01"},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(out.Written) != 1 || filepath.Base(out.Written[0]) != "2024-01-06.png" {
		t.Errorf("Written = %v, want only 2024-01-06.png", out.Written)
	}
	if len(out.Failed) != 1 || out.Failed[0].Day != "2024-02-01" {
		t.Errorf("Failed = %+v, want 2024-02-01", out.Failed)
	}
}

func TestRender_MissingIconsFailEveryDay(t *testing.T) {
	cfg := testConfig(t)
	cfg.ResourceDir = t.TempDir()
	path := writeExport(t, t.TempDir())

	out, err := Render(context.Background(), cfg, nil, RenderInput{Path: path})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(out.Written) != 0 {
		t.Errorf("Written = %v, want none", out.Written)
	}
	if len(out.Failed) != 2 {
		t.Fatalf("len(Failed) = %d, want 2", len(out.Failed))
	}
	if !strings.HasPrefix(out.Failed[0].Error, string(errors.ErrChartRender)) {
		t.Errorf("Failed[0].Error = %q, want CHART_RENDER", out.Failed[0].Error)
	}
}

func TestRender_FailedDayDoesNotStopOthers(t *testing.T) {
	cfg := testConfig(t)
	path := writeExport(t, t.TempDir())
	blocked := filepath.Join(cfg.OutputDir, "2024-01-05.png")
	if err := os.Mkdir(blocked, 0755); err != nil {
		t.Fatal(err)
	}

	out, err := Render(context.Background(), cfg, nil, RenderInput{Path: path})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(out.Failed) != 1 || out.Failed[0].Day != "2024-01-05" {
		t.Fatalf("Failed = %+v, want 2024-01-05", out.Failed)
	}
	if !strings.HasPrefix(out.Failed[0].Error, string(errors.ErrChartRender)) {
		t.Errorf("Failed[0].Error = %q, want CHART_RENDER", out.Failed[0].Error)
	}
	want := filepath.Join(cfg.OutputDir, "2024-01-06.png")
	if len(out.Written) != 1 || out.Written[0] != want {
		t.Fatalf("Written = %v, want [%s]", out.Written, want)
	}
	if info, err := os.Stat(want); err != nil || !info.Mode().IsRegular() {
		t.Errorf("stat %s: %v", want, err)
	}

	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("output dir has %d entries, want the blocked dir and one chart", len(entries))
	}
}

func TestRender_Overwrites(t *testing.T) {
	cfg := testConfig(t)
	path := writeExport(t, t.TempDir())
	target := filepath.Join(cfg.OutputDir, "2024-01-05.png")
	if err := os.WriteFile(target, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		out, err := Render(context.Background(), cfg, nil, RenderInput{Path: path, Days: []string{"2024-01-05"}})
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if len(out.Failed) != 0 {
			t.Fatalf("Failed = %+v, want none", out.Failed)
		}
	}

	f, err := os.Open(target)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.DecodeConfig(f); err != nil {
		t.Errorf("decode chart: %v", err)
	}

	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("output dir has %d entries, want 1 (temp files cleaned up)", len(entries))
	}
}

func TestRender_Canceled(t *testing.T) {
	cfg := testConfig(t)
	path := writeExport(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Render(ctx, cfg, nil, RenderInput{Path: path}); err == nil {
		t.Error("Render with canceled context succeeded, want error")
	}
}

func TestDays(t *testing.T) {
	path := writeExport(t, t.TempDir())

	out, err := Days(nil, nil, DaysInput{Path: path})
	if err != nil {
		t.Fatalf("Days failed: %v", err)
	}
	if out.Records != 4 || len(out.Days) != 2 {
		t.Fatalf("Records = %d, Days = %d, want 4 and 2", out.Records, len(out.Days))
	}

	first := out.Days[0]
	if first.Day != "2024-01-05" || first.Readings != 1 || first.Max != 130 || first.FastInsulin != 6 {
		t.Errorf("first day = %+v", first)
	}
	second := out.Days[1]
	if second.Low != 1 || second.Carbohydrate != 30 {
		t.Errorf("second day = %+v", second)
	}
}

func TestValidateOutputPath(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		ext     string
		wantErr bool
	}{
		{"ok", filepath.Join(dir, "out.xlsx"), ".xlsx", false},
		{"upper case extension", filepath.Join(dir, "OUT.XLSX"), ".xlsx", false},
		{"empty", "", ".xlsx", true},
		{"traversal", "../out.xlsx", ".xlsx", true},
		{"wrong extension", filepath.Join(dir, "out.csv"), ".xlsx", true},
		{"no extension", filepath.Join(dir, "out"), ".html", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateOutputPath(tc.path, tc.ext)
			if tc.wantErr {
				if !errors.Is(err, errors.ErrInvalidRequest) {
					t.Errorf("err = %v, want INVALID_REQUEST", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateOutputPath_Symlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.html")
	if err := os.WriteFile(target, nil, 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.html")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if err := ValidateOutputPath(link, ".html"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"export", "export"},
		{"a/b", "a-b"},
		{"..\\x", "x"},
		{"bad\x00name", "badname"},
		{"", "unnamed"},
		{"--", "unnamed"},
	}
	for _, tc := range tests {
		if got := SanitizeForFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeForFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
