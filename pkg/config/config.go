// pkg/config/config.go

package config

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is the full application configuration. Defaults reproduce the
// production deployment at JD Squared; everything is overridable through
// THEQUEUE_* environment variables or an optional config file.
type Settings struct {
	Server   ServerSettings   `mapstructure:"server"`
	Database DatabaseSettings `mapstructure:"database"`
	Epicor   EpicorSettings   `mapstructure:"epicor"`
	Paths    PathSettings     `mapstructure:"paths"`
	Service  ServiceSettings  `mapstructure:"service"`
}

type ServerSettings struct {
	Host  string `mapstructure:"host" validate:"required"`
	Port  int    `mapstructure:"port" validate:"required,gt=0,lte=65535"`
	Debug bool   `mapstructure:"debug"`
}

type DatabaseSettings struct {
	// DSN is a go-mssqldb URL. The default relies on Windows integrated
	// authentication against the Epicor production database.
	DSN string `mapstructure:"dsn" validate:"required"`
}

type EpicorSettings struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	InsecureTLS bool   `mapstructure:"insecure_tls"`
}

type PathSettings struct {
	AppRoot       string `mapstructure:"app_root" validate:"required"`
	WorkcellsFile string `mapstructure:"workcells_file" validate:"required"`
	LogDir        string `mapstructure:"log_dir" validate:"required"`
	NSSMPath      string `mapstructure:"nssm_path"`
}

type ServiceSettings struct {
	Name        string `mapstructure:"name" validate:"required"`
	DisplayName string `mapstructure:"display_name" validate:"required"`
	Description string `mapstructure:"description"`
}

// Address returns the listen address for the HTTP server.
func (s ServerSettings) Address() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Load reads settings from defaults, an optional config file, a local
// .env, and the environment, then validates the result.
func Load() (*Settings, error) {
	// A .env next to the binary keeps parity with the original deployment.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("THEQUEUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("thequeue")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(defaultAppRoot())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !cerr.As(err, &notFound) {
			return nil, cerr.Wrap(err, "reading config file")
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, cerr.Wrap(err, "unmarshalling settings")
	}

	if err := validator.New().Struct(&settings); err != nil {
		return nil, cerr.Wrap(err, "validating settings")
	}

	return &settings, nil
}

func setDefaults(v *viper.Viper) {
	appRoot := defaultAppRoot()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5002)
	v.SetDefault("server.debug", false)

	v.SetDefault("database.dsn",
		"sqlserver://SQL1.CORP.JD2.COM?database=EPIC10LIVE&trustservercertificate=true")

	// Credentials default empty but must be registered so AutomaticEnv
	// surfaces THEQUEUE_EPICOR_* overrides during Unmarshal.
	v.SetDefault("epicor.base_url", "")
	v.SetDefault("epicor.api_key", "")
	v.SetDefault("epicor.username", "")
	v.SetDefault("epicor.password", "")
	v.SetDefault("epicor.insecure_tls", false)

	v.SetDefault("paths.app_root", appRoot)
	v.SetDefault("paths.workcells_file", filepath.Join(appRoot, "config", "workcells.json"))
	v.SetDefault("paths.log_dir", defaultLogDir(appRoot))
	v.SetDefault("paths.nssm_path", defaultNSSMPath())

	v.SetDefault("service.name", "TheQueue")
	v.SetDefault("service.display_name", "The Queue")
	v.SetDefault("service.description", "Shop floor work queue for Epicor")
}

func defaultAppRoot() string {
	if runtime.GOOS == "windows" {
		return `C:\TheQueue`
	}
	return "/opt/thequeue"
}

func defaultLogDir(appRoot string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(appRoot, "logs")
	}
	return "/var/log/thequeue"
}

func defaultNSSMPath() string {
	if runtime.GOOS != "windows" {
		return ""
	}
	return `C:\nssm\win64\nssm.exe`
}

