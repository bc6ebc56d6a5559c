package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type BenchmarkResult struct {
	Name       string
	Framework  string
	Category   string
	Scenario   string
	Iterations int64
	NsPerOp    float64
	BytesPerOp int64
	AllocsOp   int64
}

type CategoryResults struct {
	Category string
	Results  []BenchmarkResult
}

var frameworkColors = map[string]text.Colors{
	"Nest": {text.FgGreen},
	"Do":   {text.FgYellow},
	"Dig":  {text.FgMagenta},
	"Fx":   {text.FgBlue},
}

var categoryOrder = []string{
	"Register_Simple",
	"Resolve_Local", "Resolve_Depth4", "Resolve_Chain",
	"Named_10",
	"Lifecycle_10", "Lifecycle_50",
}

var categoryTitles = map[string]string{
	"Register_Simple": "Registration (single component)",
	"Resolve_Local":   "Resolution (local scope)",
	"Resolve_Depth4":  "Resolution (four nested scopes)",
	"Resolve_Chain":   "Resolution (dependency chain across scopes)",
	"Named_10":        "Named components (10)",
	"Lifecycle_10":    "Start/Stop (10 components)",
	"Lifecycle_50":    "Start/Stop (50 components)",
}

func main() {
	fmt.Println(text.Bold.Sprint(text.FgCyan.Sprint("Nest benchmark suite")))
	fmt.Println(text.Faint.Sprint("Running benchmarks..."))
	fmt.Println()

	benchDir := ".."
	if len(os.Args) > 1 && os.Args[1] != "--json" {
		benchDir = os.Args[1]
	}

	cmd := exec.Command("go", "test", "-bench=.", "-benchmem", "-count=3", "-benchtime=100ms")
	cmd.Dir = benchDir
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Benchmark failed: %s\n", string(exitErr.Stderr))
		}
		os.Exit(1)
	}

	results := parseResults(output)
	grouped := groupByCategory(results)

	for _, cat := range grouped {
		printCategory(cat)
	}

	printSummary(grouped)

	if len(os.Args) > 1 && os.Args[1] == "--json" {
		exportJSON(results)
	}
}

var (
	benchPattern = regexp.MustCompile(`^Benchmark(\w+)-\d+\s+(\d+)\s+([\d.]+) ns/op\s+(\d+) B/op\s+(\d+) allocs/op`)
	namePattern  = regexp.MustCompile(`^([^_]+)_([^_]+)_(\w+)$`)
)

// parseResults averages repeated runs of the same benchmark.
func parseResults(output []byte) []BenchmarkResult {
	seen := make(map[string][]BenchmarkResult)
	var order []string

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		matches := benchPattern.FindStringSubmatch(scanner.Text())
		if matches == nil {
			continue
		}

		name := matches[1]
		iterations, _ := strconv.ParseInt(matches[2], 10, 64)
		nsPerOp, _ := strconv.ParseFloat(matches[3], 64)
		bytesPerOp, _ := strconv.ParseInt(matches[4], 10, 64)
		allocsOp, _ := strconv.ParseInt(matches[5], 10, 64)

		r := BenchmarkResult{
			Name:       name,
			Iterations: iterations,
			NsPerOp:    nsPerOp,
			BytesPerOp: bytesPerOp,
			AllocsOp:   allocsOp,
		}
		if parts := namePattern.FindStringSubmatch(name); parts != nil {
			r.Category, r.Scenario, r.Framework = parts[1], parts[2], parts[3]
		} else if parts := strings.Split(name, "_"); len(parts) >= 2 {
			r.Category = parts[0]
			r.Framework = parts[len(parts)-1]
			r.Scenario = strings.Join(parts[1:len(parts)-1], "_")
		}

		if _, ok := seen[name]; !ok {
			order = append(order, name)
		}
		seen[name] = append(seen[name], r)
	}

	results := make([]BenchmarkResult, 0, len(order))
	for _, name := range order {
		runs := seen[name]

		var totalNs float64
		var totalBytes, totalAllocs int64
		for _, r := range runs {
			totalNs += r.NsPerOp
			totalBytes += r.BytesPerOp
			totalAllocs += r.AllocsOp
		}
		count := float64(len(runs))

		avg := runs[0]
		avg.NsPerOp = totalNs / count
		avg.BytesPerOp = int64(float64(totalBytes) / count)
		avg.AllocsOp = int64(float64(totalAllocs) / count)
		results = append(results, avg)
	}
	return results
}

func groupByCategory(results []BenchmarkResult) []CategoryResults {
	groups := make(map[string][]BenchmarkResult)
	for _, r := range results {
		key := r.Category + "_" + r.Scenario
		groups[key] = append(groups[key], r)
	}

	var keys []string
	for _, key := range categoryOrder {
		if _, ok := groups[key]; ok {
			keys = append(keys, key)
		}
	}
	var rest []string
	for key := range groups {
		if _, known := categoryTitles[key]; !known {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	ordered := make([]CategoryResults, 0, len(keys))
	for _, key := range keys {
		rs := groups[key]
		sort.Slice(rs, func(i, j int) bool { return rs[i].NsPerOp < rs[j].NsPerOp })
		ordered = append(ordered, CategoryResults{Category: key, Results: rs})
	}
	return ordered
}

func printCategory(cat CategoryResults) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(formatCategoryTitle(cat.Category))
	t.AppendHeader(table.Row{"Framework", "Time/op", "Relative", "B/op", "Allocs/op"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	if len(cat.Results) == 0 {
		t.AppendRow(table.Row{"no results"})
		t.Render()
		fmt.Println()
		return
	}

	fastest := cat.Results[0].NsPerOp
	for i, r := range cat.Results {
		relative := "fastest"
		if i > 0 && fastest > 0 {
			relative = fmt.Sprintf("%.1fx", r.NsPerOp/fastest)
		}
		t.AppendRow(table.Row{
			colorize(r.Framework),
			formatNs(r.NsPerOp),
			relative,
			r.BytesPerOp,
			r.AllocsOp,
		})
	}
	t.Render()
	fmt.Println()
}

func formatCategoryTitle(cat string) string {
	if title, ok := categoryTitles[cat]; ok {
		return title
	}
	return strings.ReplaceAll(cat, "_", " ")
}

func colorize(framework string) string {
	if c, ok := frameworkColors[framework]; ok {
		return c.Sprint(framework)
	}
	return framework
}

func formatNs(ns float64) string {
	if ns >= 1_000_000 {
		return fmt.Sprintf("%.2f ms", ns/1_000_000)
	}
	if ns >= 1_000 {
		return fmt.Sprintf("%.2f µs", ns/1_000)
	}
	return fmt.Sprintf("%.0f ns", ns)
}

func printSummary(groups []CategoryResults) {
	wins := make(map[string]int)
	for _, cat := range groups {
		if len(cat.Results) > 0 {
			wins[cat.Results[0].Framework]++
		}
	}

	type frameworkWins struct {
		name string
		wins int
	}
	sorted := make([]frameworkWins, 0, len(wins))
	for name, count := range wins {
		sorted = append(sorted, frameworkWins{name, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].wins != sorted[j].wins {
			return sorted[i].wins > sorted[j].wins
		}
		return sorted[i].name < sorted[j].name
	})

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Summary")
	t.AppendHeader(table.Row{"#", "Framework", "Fastest in"})
	for i, fw := range sorted {
		t.AppendRow(table.Row{i + 1, colorize(fw.name), fmt.Sprintf("%d/%d", fw.wins, len(groups))})
	}
	t.AppendFooter(table.Row{"", "Compared", "nest, samber/do, uber/dig, uber/fx"})
	t.Render()
	fmt.Println()
}

func exportJSON(results []BenchmarkResult) {
	output := struct {
		Benchmarks []BenchmarkResult `json:"benchmarks"`
	}{
		Benchmarks: results,
	}

	data, _ := json.MarshalIndent(output, "", "  ")
	_ = os.WriteFile("benchmark_results.json", data, 0644)
	fmt.Println(text.Faint.Sprint("Results exported to benchmark_results.json"))
}
