// Package runner wires the pieces together: it loads the tool
// configuration, runs the check engine over a set of run-configuration
// files, and optionally records the results in the tracking database and
// the report index.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hatlab/hatctl/pkg/checks"
	"github.com/hatlab/hatctl/pkg/config"
	"github.com/hatlab/hatctl/pkg/database"
	"github.com/hatlab/hatctl/pkg/elastic"
	"github.com/hatlab/hatctl/pkg/runconf"
	"github.com/hatlab/hatctl/pkg/space"

	"github.com/sirupsen/logrus"
)

var DebugLog func(string, ...interface{})

type Runner struct {
	config        *config.Config
	configManager *config.Manager
	logger        *logrus.Logger
	db            *database.DB
}

type ValidateOptions struct {
	Paths         []string
	Checks        string
	ExcludeChecks string
	Experiment    string
	Track         bool
	Silent        bool
}

type ValidateResult struct {
	Reports       []*checks.Report
	StartTime     time.Time
	Duration      time.Duration
	FilesScanned  int
	TotalFindings int
	Success       bool
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var levelText string
	switch entry.Level {
	case logrus.InfoLevel:
		levelText = "[INF]"
	case logrus.WarnLevel:
		levelText = "[WARN]"
	case logrus.ErrorLevel:
		levelText = "[ERR]"
	case logrus.DebugLevel:
		levelText = "[DBG]"
	default:
		levelText = "[???]"
	}
	return []byte(fmt.Sprintf("%s %s\n", levelText, entry.Message)), nil
}

func NewRunner(configPath string) (*Runner, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&customFormatter{})

	configManager := config.NewManager(configPath)
	if err := configManager.LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := configManager.GetConfig()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Warnf("Database initialization failed: %v", err)
	}

	return &Runner{
		config:        cfg,
		configManager: configManager,
		logger:        logger,
		db:            db,
	}, nil
}

// RunValidate checks every configuration file named by opts.Paths.
// Directories are walked for *.yml and *.yaml files.
func (r *Runner) RunValidate(opts ValidateOptions) (*ValidateResult, error) {
	files, err := collectFiles(opts.Paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no configuration files found")
	}

	excludes := opts.ExcludeChecks
	if excludes == "" {
		excludes = r.config.DefaultSettings.ExcludeChecks
	}
	engine := checks.NewEngine(r.logger, opts.Checks, excludes)

	result := &ValidateResult{
		StartTime: time.Now(),
		Success:   true,
	}

	for _, file := range files {
		if DebugLog != nil {
			DebugLog("checking %s", file)
		}
		report := engine.RunFile(file)
		result.Reports = append(result.Reports, report)
		result.TotalFindings += len(report.Findings)
		if report.Status == checks.StatusFail {
			result.Success = false
		}
		if !opts.Silent {
			r.logReport(report)
		}
	}
	result.FilesScanned = len(files)

	if opts.Track {
		if err := r.trackReports(opts.Experiment, result.Reports); err != nil {
			r.logger.Warnf("Tracking failed: %v", err)
		}
	}

	if r.config.Elastic.Enabled {
		if err := r.indexReports(result.Reports); err != nil {
			r.logger.Warnf("Report indexing failed: %v", err)
		}
	}

	result.Duration = time.Since(result.StartTime)
	return result, nil
}

func (r *Runner) logReport(report *checks.Report) {
	switch report.Status {
	case checks.StatusClean:
		r.logger.Infof("%s: %s", report.Path, report.Status)
	case checks.StatusWarn:
		r.logger.Warnf("%s: %s", report.Path, report.Status)
	default:
		r.logger.Errorf("%s: %s", report.Path, report.Status)
	}
	for _, f := range report.Findings {
		msg := f.Message
		if f.Key != "" {
			msg = f.Key + ": " + msg
		}
		if f.Severity == checks.Error {
			r.logger.Errorf("  [%s] %s", f.Check, msg)
		} else {
			r.logger.Warnf("  [%s] %s", f.Check, msg)
		}
	}
}

// trackReports derives a RunRecord per successfully parsed file and
// upserts them. The record carries the arch key and the parameter-count
// estimate when the file pins a SubTransformer.
func (r *Runner) trackReports(experiment string, reports []*checks.Report) error {
	if r.db == nil || !r.db.IsEnabled() {
		return fmt.Errorf("database is not enabled")
	}
	if experiment == "" {
		experiment = r.config.DefaultSettings.Experiment
	}

	var records []database.RunRecord
	for _, report := range reports {
		doc, err := runconf.ParseFile(report.Path)
		if err != nil {
			continue
		}
		cfg, _ := runconf.Decode(doc)

		rec := database.RunRecord{
			Experiment: experiment,
			ConfigPath: report.Path,
			ConfigHash: doc.Fingerprint(),
			Arch:       "supertransformer",
			Status:     report.Status,
		}
		if arch, ok := space.ArchFromConfig(cfg); ok {
			rec.Arch = arch.Key()
			if params, err := arch.ParamCount(cfg.Super.QKVDim); err == nil {
				rec.Params = params
			}
		}
		records = append(records, rec)
	}

	if err := r.db.TrackRuns(records); err != nil {
		return err
	}
	r.logger.Infof("Tracked %d run(s) under experiment %q", len(records), experiment)
	return nil
}

func (r *Runner) indexReports(reports []*checks.Report) error {
	client, err := elastic.New(r.config.Elastic)
	if err != nil {
		return err
	}
	if err := client.IndexReports(context.Background(), reports); err != nil {
		return err
	}
	r.logger.Infof("Indexed %d report(s) to elasticsearch", len(reports))
	return nil
}

func (r *Runner) GetConfig() *config.Config {
	return r.config
}

func (r *Runner) GetDB() *database.DB {
	return r.db
}

func (r *Runner) Logger() *logrus.Logger {
	return r.logger
}

func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}

		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.Walk(p, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext == ".yml" || ext == ".yaml" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	sort.Strings(files)
	return files, nil
}
