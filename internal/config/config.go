package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	appdefaults "github.com/saker-ai/realtime-assistant/config"
	"github.com/saker-ai/realtime-assistant/internal/logger"
	"github.com/saker-ai/realtime-assistant/pkg/realtime"
)

const (
	envPrefix  = "assistant"
	rootDirEnv = "ASSISTANT_ROOT_DIR"

	defaultPort = 8101
)

// ErrNoEndpoint is returned by Validate when neither realtime.url nor
// realtime.endpoint is configured.
var ErrNoEndpoint = errors.New("realtime endpoint not configured")

// SystemConfig holds the listen host and port.
type SystemConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// TurnDetectionConfig mirrors the server VAD settings of the realtime session.
type TurnDetectionConfig struct {
	Type              string  `mapstructure:"type"`
	Threshold         float64 `mapstructure:"threshold"`
	PrefixPaddingMS   int     `mapstructure:"prefix_padding_ms"`
	SilenceDurationMS int     `mapstructure:"silence_duration_ms"`
}

// RealtimeConfig selects and configures the realtime service.
type RealtimeConfig struct {
	URL                     string              `mapstructure:"url"`
	Endpoint                string              `mapstructure:"endpoint"`
	APIVersion              string              `mapstructure:"api_version"`
	Deployment              string              `mapstructure:"deployment"`
	APIKey                  string              `mapstructure:"api_key"`
	Voice                   string              `mapstructure:"voice"`
	Instructions            string              `mapstructure:"instructions"`
	Modalities              []string            `mapstructure:"modalities"`
	Temperature             float64             `mapstructure:"temperature"`
	MaxResponseOutputTokens int                 `mapstructure:"max_response_output_tokens"`
	ConnectTimeout          time.Duration       `mapstructure:"connect_timeout"`
	InputAudioFormat        string              `mapstructure:"input_audio_format"`
	OutputAudioFormat       string              `mapstructure:"output_audio_format"`
	TranscriptionModel      string              `mapstructure:"transcription_model"`
	InputSampleRate         int                 `mapstructure:"input_sample_rate"`
	TurnDetection           TurnDetectionConfig `mapstructure:"turn_detection"`
}

// SearchConfig points at the semantic document search index.
type SearchConfig struct {
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	Index          string `mapstructure:"index"`
	SemanticConfig string `mapstructure:"semantic_config"`
	APIVersion     string `mapstructure:"api_version"`
	Top            int    `mapstructure:"top"`
}

// IssuesConfig points at the issue tracker used for grievances.
type IssuesConfig struct {
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	APIKey      string `mapstructure:"api_key"`
	ProjectKey  string `mapstructure:"project_key"`
	ProjectName string `mapstructure:"project_name"`
	IssueType   string `mapstructure:"issue_type"`
}

// AcademicsConfig points at the academic records database.
type AcademicsConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ToolsConfig configures the tool backends.
type ToolsConfig struct {
	Timeout   time.Duration   `mapstructure:"timeout"`
	Search    SearchConfig    `mapstructure:"search"`
	Issues    IssuesConfig    `mapstructure:"issues"`
	Academics AcademicsConfig `mapstructure:"academics"`
}

// Config is the full application configuration.
type Config struct {
	RootDir      string         `mapstructure:"-"`
	HTTPAddr     string         `mapstructure:"http_addr"`
	FrontendDir  string         `mapstructure:"frontend_dir"`
	PersonaPath  string         `mapstructure:"persona_path"`
	TLSCertPath  string         `mapstructure:"tls_cert_path"`
	TLSKeyPath   string         `mapstructure:"tls_key_path"`
	TLSRequired  bool           `mapstructure:"tls_required"`
	TLSDisable   bool           `mapstructure:"tls_disable"`
	SystemConfig SystemConfig   `mapstructure:"system_config"`
	Realtime     RealtimeConfig `mapstructure:"realtime"`
	Tools        ToolsConfig    `mapstructure:"tools"`
	Persona      Persona        `mapstructure:"persona"`
	Log          logger.Config  `mapstructure:"log"`
}

// Load reads conf.yaml from the discovered root directory, if any, over the
// embedded defaults.
func Load() (Config, error) {
	rootDir, err := resolveRootDir()
	if err != nil {
		return Config{}, err
	}
	return load(rootDir, "")
}

// LoadConfig reads the config file at configPath over the embedded defaults.
// An empty path behaves like Load.
func LoadConfig(configPath string) (Config, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		return Load()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, err
	}

	rootDir := strings.TrimSpace(os.Getenv(rootDirEnv))
	if rootDir == "" {
		rootDir = filepath.Dir(absPath)
		if filepath.Base(rootDir) == "config" {
			rootDir = filepath.Dir(rootDir)
		}
	}
	return load(rootDir, absPath)
}

func load(rootDir, configFile string) (Config, error) {
	if err := loadDotEnv(rootDir); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(appdefaults.Default)); err != nil {
		return Config{}, fmt.Errorf("load embedded config: %w", err)
	}
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("conf")
		v.AddConfigPath(rootDir)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg.RootDir = rootDir
	deriveHTTPAddr(&cfg)
	derivePaths(&cfg)
	if err := applyPersonaFile(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", "")
	v.SetDefault("tls_required", false)
	v.SetDefault("tls_disable", true)
	v.SetDefault("realtime.api_version", "2024-10-01-preview")
	v.SetDefault("realtime.voice", "shimmer")
	v.SetDefault("realtime.connect_timeout", realtime.DefaultConnectTimeout)
	v.SetDefault("realtime.input_sample_rate", 24000)
	v.SetDefault("tools.timeout", 30*time.Second)
	v.SetDefault("tools.search.top", 2)
	v.SetDefault("tools.issues.issue_type", "Task")
	v.SetDefault("tools.academics.table", "student_academics")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.stdout", true)
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "./data/logs")
	v.SetDefault("log.file.name", "realtime-assistant.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)
}

// loadDotEnv exports <rootDir>/.env into the process environment. Variables
// already set win.
func loadDotEnv(rootDir string) error {
	path := filepath.Join(rootDir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// EndpointURL returns the websocket URL of the realtime service. An explicit
// url wins; otherwise it is derived from endpoint, api_version and deployment.
// A bare endpoint name is expanded to <name>.openai.azure.com.
func (r RealtimeConfig) EndpointURL() string {
	if u := strings.TrimSpace(r.URL); u != "" {
		return u
	}
	host := strings.TrimSpace(r.Endpoint)
	if host == "" {
		return ""
	}
	for _, scheme := range []string{"https://", "http://", "wss://", "ws://"} {
		host = strings.TrimPrefix(host, scheme)
	}
	host = strings.TrimRight(host, "/")
	if !strings.Contains(host, ".") && !strings.Contains(host, ":") {
		host += ".openai.azure.com"
	}

	query := url.Values{}
	if r.APIVersion != "" {
		query.Set("api-version", r.APIVersion)
	}
	if r.Deployment != "" {
		query.Set("deployment", r.Deployment)
	}
	u := url.URL{Scheme: "wss", Host: host, Path: "/openai/realtime", RawQuery: query.Encode()}
	return u.String()
}

// Validate reports whether the realtime service can be reached with r.
func (r RealtimeConfig) Validate() error {
	if r.EndpointURL() == "" {
		return ErrNoEndpoint
	}
	return nil
}

// ClientConfig builds the realtime client configuration. Instructions fall
// back to the persona prompt.
func (c Config) ClientConfig() realtime.Config {
	r := c.Realtime
	instructions := strings.TrimSpace(r.Instructions)
	if instructions == "" {
		instructions = strings.TrimSpace(c.Persona.Prompt)
	}

	session := realtime.DefaultSessionConfig(instructions)
	if r.Voice != "" {
		session.Voice = r.Voice
	}
	if len(r.Modalities) > 0 {
		session.Modalities = append([]string(nil), r.Modalities...)
	}
	if r.InputAudioFormat != "" {
		session.InputAudioFormat = r.InputAudioFormat
	}
	if r.OutputAudioFormat != "" {
		session.OutputAudioFormat = r.OutputAudioFormat
	}
	if r.TranscriptionModel != "" {
		session.InputAudioTranscription = &realtime.TranscriptionConfig{Model: r.TranscriptionModel}
	}
	if r.Temperature > 0 {
		session.Temperature = r.Temperature
	}
	if r.MaxResponseOutputTokens > 0 {
		session.MaxResponseOutputTokens = r.MaxResponseOutputTokens
	}
	if td := r.TurnDetection; td.Type != "" {
		session.TurnDetection = &realtime.TurnDetection{
			Type:              td.Type,
			Threshold:         td.Threshold,
			PrefixPaddingMS:   td.PrefixPaddingMS,
			SilenceDurationMS: td.SilenceDurationMS,
		}
	}

	response := realtime.DefaultResponseConfig()
	if len(r.Modalities) > 0 {
		response.Modalities = append([]string(nil), r.Modalities...)
	}

	return realtime.Config{
		URL:            r.EndpointURL(),
		APIKey:         r.APIKey,
		ConnectTimeout: r.ConnectTimeout,
		Session:        session,
		Response:       response,
	}
}

func deriveHTTPAddr(cfg *Config) {
	if cfg.HTTPAddr != "" {
		return
	}
	host := cfg.SystemConfig.Host
	port := cfg.SystemConfig.Port
	if port == 0 {
		port = defaultPort
	}
	if host == "" {
		cfg.HTTPAddr = fmt.Sprintf(":%d", port)
		return
	}
	cfg.HTTPAddr = net.JoinHostPort(host, strconv.Itoa(port))
}

func resolveRootDir() (string, error) {
	if root := strings.TrimSpace(os.Getenv(rootDirEnv)); root != "" {
		return filepath.Abs(root)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := wd
	for i := 0; i < 6; i++ {
		if fileExists(filepath.Join(dir, "conf.yaml")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return wd, nil
}

func derivePaths(cfg *Config) {
	if strings.TrimSpace(cfg.FrontendDir) != "" {
		cfg.FrontendDir = resolvePath(cfg.RootDir, cfg.FrontendDir, "")
	}
	if strings.TrimSpace(cfg.PersonaPath) != "" {
		cfg.PersonaPath = resolvePath(cfg.RootDir, cfg.PersonaPath, "")
	}
	cfg.TLSCertPath = resolvePath(cfg.RootDir, cfg.TLSCertPath, filepath.Join("certs", "server.crt"))
	cfg.TLSKeyPath = resolvePath(cfg.RootDir, cfg.TLSKeyPath, filepath.Join("certs", "server.key"))
}

func resolvePath(rootDir string, configured string, fallback string) string {
	path := strings.TrimSpace(configured)
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
