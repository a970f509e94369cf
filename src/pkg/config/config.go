package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// Env var holding the bearer token required by the HTTP API.
const EnvAPIToken = "HANDOVER_API_TOKEN"

/*
PipelineConfig controls how every evidence photo is normalized and how large
the final encoding may get.
*/
type PipelineConfig struct {
	MaxWidth       int    `json:"max_width,omitempty"`
	MaxHeight      int    `json:"max_height,omitempty"`
	ForceLandscape bool   `json:"force_landscape,omitempty"`
	WatermarkText  string `json:"watermark_text,omitempty"`
	BudgetBytes    int    `json:"budget_bytes,omitempty"`
}

/*
CompressorConfig holds the tuning constants of the byte-budget compressor.
Qualities and the scale factor are percentages.
*/
type CompressorConfig struct {
	InitialQuality int `json:"initial_quality,omitempty"`
	QualityFloor   int `json:"quality_floor,omitempty"`
	QualityStep    int `json:"quality_step,omitempty"`
	QualityNudge   int `json:"quality_nudge,omitempty"`
	ScalePercent   int `json:"scale_percent,omitempty"`
	MaxAttempts    int `json:"max_attempts,omitempty"`
}

/*
ExportConfig selects the document generator ("pdf" or "none") and the
directory used when a generated document has to be saved to disk.
*/
type ExportConfig struct {
	Generator string `json:"generator,omitempty"`
	SaveDir   string `json:"save_dir,omitempty"`
}

// CameraConfig points at a network camera that serves one JPEG per GET.
type CameraConfig struct {
	SnapshotURL    string `json:"snapshot_url,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

type ServerConfig struct {
	Address             string `json:"address,omitempty"`
	Port                int    `json:"port,omitempty"`
	MiddlewareRateLimit int    `json:"middleware_rate_limit,omitempty"`
	MiddlewareBurst     int    `json:"middleware_burst,omitempty"`
	MaxUploadBytes      int64  `json:"max_upload_bytes,omitempty"`
}

type BatchConfig struct {
	Concurrency int `json:"concurrency,omitempty"`
}

type Config struct {
	Pipeline   PipelineConfig   `json:"pipeline"`
	Compressor CompressorConfig `json:"compressor"`
	Export     ExportConfig     `json:"export"`
	Camera     CameraConfig     `json:"camera"`
	Server     ServerConfig     `json:"server"`
	Batch      BatchConfig      `json:"batch"`
}

func DefaultValueConfig() Config {
	return Config{
		Pipeline: PipelineConfig{
			MaxWidth:    1600,
			MaxHeight:   1600,
			BudgetBytes: 350 * 1024,
		},
		Compressor: CompressorConfig{
			InitialQuality: 90,
			QualityFloor:   45,
			QualityStep:    10,
			QualityNudge:   5,
			ScalePercent:   85,
			MaxAttempts:    12,
		},
		Export: ExportConfig{
			Generator: "pdf",
			SaveDir:   "./tmp/exports",
		},
		Camera: CameraConfig{
			TimeoutSeconds: 10,
		},
		Server: ServerConfig{
			Address:             "127.0.0.1",
			Port:                8401,
			MiddlewareRateLimit: 3,
			MiddlewareBurst:     50,
			MaxUploadBytes:      25 * 1024 * 1024,
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
	}
}

// create config with default values before config gets initialized
var Cfg Config = DefaultValueConfig() // this one we use to access config values from anywhere

/*
InitializeConfig reads the JSON configuration file at configPath into Cfg.

A missing file is not fatal: defaults are kept. Every field left empty in the
file is replaced with its default value, section by section.
*/
func InitializeConfig(configPath string) {
	localConfig, e := ReadConfigFile(configPath)
	if e != nil {
		tl.Log(tl.Warning, palette.PurpleBright, "Unable to read config '%s', keeping %s: %s", configPath, "default config", e)
		return
	}
	Cfg = WithDefaults(localConfig)

	tl.Log(tl.Info, palette.Green, "%s config was %s, using '%s'", GetPackageName(), "provided", configPath)
	tl.LogJSON(tl.Verbose, palette.CyanDim, "handover configuration", Cfg)
}

/*
ReadConfigFile unmarshals the JSON file at configPath without applying defaults.
*/
func ReadConfigFile(configPath string) (localConfig Config, e *xerr.Error) {
	fileBytes, readErr := os.ReadFile(configPath)
	if readErr != nil {
		e = xerr.NewError(readErr, "read config file", configPath)
		return localConfig, e
	}

	unmarshalErr := json.Unmarshal(fileBytes, &localConfig)
	if unmarshalErr != nil {
		e = xerr.NewError(unmarshalErr, "unmarshal config file", configPath)
		return localConfig, e
	}

	return localConfig, e
}

/*
WithDefaults returns localConfig with all missing fields taken from
DefaultValueConfig.
*/
func WithDefaults(localConfig Config) Config {
	defaultConfig := DefaultValueConfig()
	logMissing := func(field string, defVal any) {
		tl.Log(
			tl.Info, palette.Purple,
			"%s field is %s in %s configuration. Using default value: %v",
			field, "missing", GetPackageName(), tl.PrettyForStderr(defVal),
		)
	}

	tl.ApplyDefaults(&localConfig.Pipeline, defaultConfig.Pipeline, logMissing)
	tl.ApplyDefaults(&localConfig.Compressor, defaultConfig.Compressor, logMissing)
	tl.ApplyDefaults(&localConfig.Export, defaultConfig.Export, logMissing)
	tl.ApplyDefaults(&localConfig.Camera, defaultConfig.Camera, logMissing)
	tl.ApplyDefaults(&localConfig.Server, defaultConfig.Server, logMissing)
	tl.ApplyDefaults(&localConfig.Batch, defaultConfig.Batch, logMissing)

	return localConfig
}

/*
CheckIfEnvVarsPresent logs a warning for every listed environment variable
that is unset or blank. It never exits: the caller decides whether a missing
value is fatal.
*/
func CheckIfEnvVarsPresent(names ...string) (missing []string) {
	for _, name := range names {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			tl.Log(tl.Warning, palette.YellowBold, "Environment variable %s is %s", name, "not set")
			missing = append(missing, name)
		}
	}
	return missing
}

// GetPackageName returns the name of the package of the calling function.
func GetPackageName() string {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return "unknown"
	}
	fullName := runtime.FuncForPC(pc).Name()
	// handover/src/pkg/config.GetPackageName -> config
	lastSlash := strings.LastIndex(fullName, "/")
	name := fullName[lastSlash+1:]
	if dot := strings.Index(name, "."); dot >= 0 {
		name = name[:dot]
	}
	return name
}

// ServerAddress joins the configured address and port.
func (c ServerConfig) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}
