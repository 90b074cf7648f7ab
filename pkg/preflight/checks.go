// Package preflight validates the environment before the server or the
// service installer touches anything.
package preflight

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/config"
)

// Check is a single environment validation.
type Check struct {
	Name        string
	Description string
	Check       func(context.Context) error
	Required    bool
}

// CheckResult records the outcome of one check.
type CheckResult struct {
	Name    string
	Passed  bool
	Error   error
	Warning string
}

// RunChecks executes every check, logging each outcome. It returns an
// error when any required check fails; optional failures become warnings.
func RunChecks(ctx context.Context, checks []Check) ([]CheckResult, error) {
	logger := otelzap.Ctx(ctx)

	logger.Info("Running preflight checks", zap.Int("total_checks", len(checks)))

	results := make([]CheckResult, 0, len(checks))
	requiredFailures := 0

	for _, check := range checks {
		logger.Debug("Running check", zap.String("check", check.Name))

		result := CheckResult{Name: check.Name}

		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := check.Check(checkCtx)
		cancel()

		if err != nil {
			result.Error = err
			if check.Required {
				logger.Error("Check failed (required)",
					zap.String("check", check.Name),
					zap.Error(err))
				requiredFailures++
			} else {
				logger.Warn("Check failed (optional)",
					zap.String("check", check.Name),
					zap.Error(err))
				result.Warning = err.Error()
			}
		} else {
			result.Passed = true
			logger.Info("Check passed", zap.String("check", check.Name))
		}

		results = append(results, result)
	}

	if requiredFailures > 0 {
		return results, cerr.Newf("%d required check(s) failed", requiredFailures)
	}

	logger.Info("All required preflight checks passed")
	return results, nil
}

// CheckPort verifies the listen port is free.
func CheckPort(port int) func(context.Context) error {
	return func(ctx context.Context) error {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return cerr.Newf("port %d is already in use; stop the conflicting service or change server.port", port)
		}
		return ln.Close()
	}
}

// CheckLogDirWritable verifies the service log directory can be created
// and written.
func CheckLogDirWritable(dir string) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return cerr.Wrapf(err, "create log directory %s", dir)
		}
		probe := filepath.Join(dir, ".preflight")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			return cerr.Wrapf(err, "log directory %s is not writable", dir)
		}
		return os.Remove(probe)
	}
}

// CheckHelper verifies the service manager helper exists.
func CheckHelper(path string) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := os.Stat(path); err != nil {
			return cerr.Wrapf(err, "service manager helper not found at %s; run: thequeue setup deps", path)
		}
		return nil
	}
}

// CheckWorkcellsFile verifies the workcell definitions file exists.
func CheckWorkcellsFile(path string) func(context.Context) error {
	return func(ctx context.Context) error {
		info, err := os.Stat(path)
		if err != nil {
			return cerr.Wrapf(err, "workcell definitions not found at %s", path)
		}
		if info.IsDir() {
			return cerr.Newf("workcell definitions path %s is a directory", path)
		}
		return nil
	}
}

// CheckDatabase verifies the ERP database answers a ping.
func CheckDatabase(dsn string) func(context.Context) error {
	return func(ctx context.Context) error {
		db, err := sqlx.Open("sqlserver", dsn)
		if err != nil {
			return cerr.Wrap(err, "open ERP database")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return cerr.Wrap(err, "ERP database is unreachable")
		}
		return nil
	}
}

// CheckEpicorAPI verifies the Epicor REST endpoint responds. Any HTTP
// status counts as reachable; unauthorized still proves the host is up.
func CheckEpicorAPI(baseURL string, insecureTLS bool) func(context.Context) error {
	return func(ctx context.Context) error {
		if baseURL == "" {
			return cerr.New("epicor.base_url is not configured")
		}
		client := &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: insecureTLS},
			},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return cerr.Wrap(err, "build Epicor request")
		}
		resp, err := client.Do(req)
		if err != nil {
			return cerr.Wrapf(err, "Epicor REST endpoint %s is unreachable", baseURL)
		}
		return resp.Body.Close()
	}
}

// ServerChecks is the standard set run before serving or installing.
func ServerChecks(settings *config.Settings) []Check {
	checks := []Check{
		{
			Name:        fmt.Sprintf("Port %d", settings.Server.Port),
			Description: "listen port is available",
			Check:       CheckPort(settings.Server.Port),
			Required:    true,
		},
		{
			Name:        "Log directory",
			Description: "service log directory is writable",
			Check:       CheckLogDirWritable(settings.Paths.LogDir),
			Required:    true,
		},
		{
			Name:        "Workcell definitions",
			Description: "workcells file exists",
			Check:       CheckWorkcellsFile(settings.Paths.WorkcellsFile),
			Required:    true,
		},
		{
			Name:        "ERP database",
			Description: "SQL Server answers a ping",
			Check:       CheckDatabase(settings.Database.DSN),
			Required:    false,
		},
		{
			Name:        "Epicor REST",
			Description: "Epicor API endpoint is reachable",
			Check:       CheckEpicorAPI(settings.Epicor.BaseURL, settings.Epicor.InsecureTLS),
			Required:    false,
		},
	}
	if runtime.GOOS == "windows" {
		checks = append(checks, Check{
			Name:        "Service manager helper",
			Description: "NSSM executable is present",
			Check:       CheckHelper(settings.Paths.NSSMPath),
			Required:    false,
		})
	}
	return checks
}
