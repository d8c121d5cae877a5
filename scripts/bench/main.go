// Benchmark report tool for pacemon.
//
// Runs all benchmarks, captures output, and writes a timestamped report to
// target/reports/bench.txt. Exits non-zero if any benchmarks fail.
//
// BENCH_PKG restricts the run to one package pattern; the CIB derivation
// benchmarks live in ./internal/cib/.
//
// Usage:
//
//	go run ./scripts/bench
//	BENCH_TIME=10s go run ./scripts/bench
//	BENCH_PKG=./internal/cib/ go run ./scripts/bench
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

func main() {
	projectRoot := findProjectRoot()
	reportDir := filepath.Join(projectRoot, "target", "reports")

	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		log.Fatalf("creating report directory: %v", err)
	}

	benchTime := os.Getenv("BENCH_TIME")
	if benchTime == "" {
		benchTime = "3s"
	}

	pkg := os.Getenv("BENCH_PKG")
	if pkg == "" {
		pkg = "./..."
	}

	now := time.Now()
	goVer := captureGoVersion()

	fmt.Printf("Running benchmarks (benchtime=%s)...\n\n", benchTime)

	cmd := exec.Command("go", "test",
		"-bench=.",
		"-benchmem",
		fmt.Sprintf("-benchtime=%s", benchTime),
		"-run=^$",
		pkg,
	)
	cmd.Dir = projectRoot

	var buf bytes.Buffer
	cmd.Stdout = io.MultiWriter(os.Stdout, &buf)
	cmd.Stderr = io.MultiWriter(os.Stderr, &buf)

	runErr := cmd.Run()

	var report strings.Builder
	sep := strings.Repeat("=", 72)
	report.WriteString("pacemon Benchmark Report\n")
	report.WriteString(sep + "\n")
	fmt.Fprintf(&report, "Generated:      %s\n", now.Format(time.RFC1123))
	fmt.Fprintf(&report, "Go Version:     %s\n", goVer)
	fmt.Fprintf(&report, "OS/Arch:        %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&report, "Benchmark Time: %s per benchmark\n", benchTime)
	report.WriteString(sep + "\n\n")
	writeSummary(&report, parseResults(buf.String()))
	report.WriteString("Raw Output\n")
	report.WriteString(sep + "\n")
	report.WriteString(buf.String())
	if runErr != nil {
		fmt.Fprintf(&report, "\n[ERROR] %v\n", runErr)
	}

	reportPath := filepath.Join(reportDir, "bench.txt")
	if err := os.WriteFile(reportPath, []byte(report.String()), 0o644); err != nil {
		log.Fatalf("writing bench report: %v", err)
	}
	fmt.Printf("\nBenchmark report: %s\n", reportPath)

	if runErr != nil {
		os.Exit(1)
	}
	fmt.Println("Benchmark run complete.")
}

type benchResult struct {
	Name        string
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// reBench matches a -benchmem result line, e.g.
// "BenchmarkBuild-8   2904   412345 ns/op   98765 B/op   1234 allocs/op".
var reBench = regexp.MustCompile(`^(Benchmark\S+?)(?:-\d+)?\s+\d+\s+([\d.]+) ns/op(?:\s+(\d+) B/op\s+(\d+) allocs/op)?`)

func parseResults(output string) []benchResult {
	var results []benchResult
	for line := range strings.SplitSeq(output, "\n") {
		m := reBench.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		r := benchResult{Name: m[1]}
		r.NsPerOp, _ = strconv.ParseFloat(m[2], 64)
		r.BytesPerOp, _ = strconv.ParseInt(m[3], 10, 64)
		r.AllocsPerOp, _ = strconv.ParseInt(m[4], 10, 64)
		results = append(results, r)
	}
	return results
}

func writeSummary(sb *strings.Builder, results []benchResult) {
	thin := strings.Repeat("-", 72)
	sb.WriteString("Summary\n")
	sb.WriteString(thin + "\n")
	fmt.Fprintf(sb, "  %-34s  %14s  %10s  %10s\n", "Benchmark", "Time/op", "B/op", "allocs/op")
	sb.WriteString(thin + "\n")
	for _, r := range results {
		fmt.Fprintf(sb, "  %-34s  %14s  %10d  %10d\n",
			r.Name, time.Duration(r.NsPerOp).String(), r.BytesPerOp, r.AllocsPerOp)
	}
	if len(results) == 0 {
		sb.WriteString("  no benchmark results\n")
	}
	sb.WriteString(thin + "\n\n")
}

func captureGoVersion() string {
	out, err := exec.Command("go", "version").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func findProjectRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		log.Fatal("could not determine script directory")
	}
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			log.Fatal("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}
