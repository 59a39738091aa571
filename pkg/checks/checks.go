// Package checks runs named consistency checks over run-configuration
// files. Checks can be selected or excluded by name, and each reports
// findings with a severity plus timing stats.
package checks

import (
	"fmt"
	"strings"
	"time"

	"github.com/hatlab/hatctl/pkg/runconf"

	"github.com/sirupsen/logrus"
)

var DebugLog func(string, ...interface{})

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

type Finding struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Key      string   `json:"key,omitempty"`
	Message  string   `json:"message"`
}

// Context is what a check sees: the raw document, the typed configuration,
// and any schema issues found while decoding.
type Context struct {
	Path   string
	Doc    *runconf.Document
	Config *runconf.RunConfig
	Issues []runconf.Issue
}

type Check interface {
	Name() string
	Run(*Context) []Finding
}

type CheckStat struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Findings int           `json:"findings"`
	Errors   int           `json:"errors"`
}

type Report struct {
	Path     string        `json:"path"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
	Findings []Finding     `json:"findings"`
	Stats    []CheckStat   `json:"stats,omitempty"`
}

const (
	StatusClean = "CLEAN"
	StatusWarn  = "WARN"
	StatusFail  = "FAIL"
)

type Engine struct {
	Checks []Check
	Logger *logrus.Logger
}

// NewEngine builds an engine with the default check set. selected and
// excluded are comma-separated check names; selected empty means all.
func NewEngine(logger *logrus.Logger, selected, excluded string) *Engine {
	all := []Check{
		schemaCheck{},
		batchCheck{},
		optimizerCheck{},
		criterionCheck{},
		cadenceCheck{},
		spaceCheck{},
		subtransformerCheck{},
		pathsCheck{},
		rankingCheck{},
	}

	include := splitNames(selected)
	exclude := splitNames(excluded)

	var checks []Check
	for _, c := range all {
		if len(include) > 0 && !include[c.Name()] {
			continue
		}
		if exclude[c.Name()] {
			if DebugLog != nil {
				DebugLog("excluding check %s", c.Name())
			}
			continue
		}
		checks = append(checks, c)
	}

	return &Engine{Checks: checks, Logger: logger}
}

func splitNames(s string) map[string]bool {
	names := make(map[string]bool)
	for _, n := range strings.Split(s, ",") {
		n = strings.TrimSpace(strings.ToLower(n))
		if n != "" {
			names[n] = true
		}
	}
	return names
}

// CheckNames lists the available check names.
func CheckNames() []string {
	return []string{
		"schema", "batch", "optimizer", "criterion", "cadence",
		"space", "subtransformer", "paths", "ranking",
	}
}

// RunFile parses one configuration file and runs every check over it.
// A file that does not parse gets a single syntax finding and fails.
func (e *Engine) RunFile(path string) *Report {
	start := time.Now()

	doc, err := runconf.ParseFile(path)
	if err != nil {
		return &Report{
			Path:     path,
			Status:   StatusFail,
			Duration: time.Since(start),
			Findings: []Finding{{
				Check:    "syntax",
				Severity: Error,
				Message:  err.Error(),
			}},
		}
	}

	cfg, issues := runconf.Decode(doc)
	ctx := &Context{Path: path, Doc: doc, Config: cfg, Issues: issues}

	report := &Report{Path: path}
	for _, check := range e.Checks {
		checkStart := time.Now()
		findings := check.Run(ctx)

		stat := CheckStat{
			Name:     check.Name(),
			Duration: time.Since(checkStart),
			Findings: len(findings),
		}
		for _, f := range findings {
			if f.Severity == Error {
				stat.Errors++
			}
		}
		report.Findings = append(report.Findings, findings...)
		report.Stats = append(report.Stats, stat)

		if DebugLog != nil {
			DebugLog("check %s on %s: %d finding(s)", check.Name(), path, len(findings))
		}
	}

	report.Status = statusOf(report.Findings)
	report.Duration = time.Since(start)
	return report
}

func statusOf(findings []Finding) string {
	status := StatusClean
	for _, f := range findings {
		if f.Severity == Error {
			return StatusFail
		}
		status = StatusWarn
	}
	return status
}

func finding(check string, sev Severity, key, format string, args ...interface{}) Finding {
	return Finding{
		Check:    check,
		Severity: sev,
		Key:      key,
		Message:  fmt.Sprintf(format, args...),
	}
}
