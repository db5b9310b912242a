package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func loadFromTempRoot(t *testing.T, files map[string]string) Config {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	t.Setenv(rootDirEnv, root)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func TestLoadEmbeddedDefaults(t *testing.T) {
	cfg := loadFromTempRoot(t, nil)

	if cfg.HTTPAddr != "0.0.0.0:8101" {
		t.Fatalf("HTTPAddr=%q, want 0.0.0.0:8101", cfg.HTTPAddr)
	}
	if cfg.Realtime.Voice != "shimmer" {
		t.Fatalf("Voice=%q, want shimmer", cfg.Realtime.Voice)
	}
	if cfg.Realtime.ConnectTimeout != 15*time.Second {
		t.Fatalf("ConnectTimeout=%v, want 15s", cfg.Realtime.ConnectTimeout)
	}
	if cfg.Realtime.InputSampleRate != 24000 {
		t.Fatalf("InputSampleRate=%d, want 24000", cfg.Realtime.InputSampleRate)
	}
	if cfg.Tools.Timeout != 30*time.Second {
		t.Fatalf("Tools.Timeout=%v, want 30s", cfg.Tools.Timeout)
	}
	if cfg.Tools.Search.Top != 2 {
		t.Fatalf("Search.Top=%d, want 2", cfg.Tools.Search.Top)
	}
	if cfg.Tools.Issues.IssueType != "Task" {
		t.Fatalf("IssueType=%q, want Task", cfg.Tools.Issues.IssueType)
	}
	if !strings.HasPrefix(cfg.Persona.Welcome, "Hi, Welcome!") {
		t.Fatalf("Welcome=%q", cfg.Persona.Welcome)
	}
	if cfg.Persona.Prompt == "" {
		t.Fatal("Persona.Prompt empty")
	}
	if cfg.Log.File.Name != "realtime-assistant.log" {
		t.Fatalf("Log.File.Name=%q", cfg.Log.File.Name)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ASSISTANT_REALTIME_VOICE", "alloy")
	t.Setenv("ASSISTANT_SYSTEM_CONFIG_PORT", "9000")
	t.Setenv("ASSISTANT_TOOLS_TIMEOUT", "5s")

	cfg := loadFromTempRoot(t, nil)

	if cfg.Realtime.Voice != "alloy" {
		t.Fatalf("Voice=%q, want alloy", cfg.Realtime.Voice)
	}
	if cfg.HTTPAddr != "0.0.0.0:9000" {
		t.Fatalf("HTTPAddr=%q, want 0.0.0.0:9000", cfg.HTTPAddr)
	}
	if cfg.Tools.Timeout != 5*time.Second {
		t.Fatalf("Tools.Timeout=%v, want 5s", cfg.Tools.Timeout)
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "ASSISTANT_TOOLS_SEARCH_INDEX"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	cfg := loadFromTempRoot(t, map[string]string{
		".env": key + "=course-material\n",
	})
	if cfg.Tools.Search.Index != "course-material" {
		t.Fatalf("Search.Index=%q, want course-material", cfg.Tools.Search.Index)
	}
}

func TestLoadMergesRootConf(t *testing.T) {
	cfg := loadFromTempRoot(t, map[string]string{
		"conf.yaml": "realtime:\n  deployment: custom-deploy\n  endpoint: contoso\n",
	})
	if cfg.Realtime.Deployment != "custom-deploy" {
		t.Fatalf("Deployment=%q, want custom-deploy", cfg.Realtime.Deployment)
	}
	if cfg.Realtime.Voice != "shimmer" {
		t.Fatalf("Voice=%q, want embedded default shimmer", cfg.Realtime.Voice)
	}
	want := "wss://contoso.openai.azure.com/openai/realtime?api-version=2024-10-01-preview&deployment=custom-deploy"
	if got := cfg.Realtime.EndpointURL(); got != want {
		t.Fatalf("EndpointURL=%q, want %q", got, want)
	}
}

func TestLoadConfigExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assistant.yaml")
	if err := os.WriteFile(path, []byte("http_addr: 127.0.0.1:7000\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(rootDirEnv, "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:7000" {
		t.Fatalf("HTTPAddr=%q, want 127.0.0.1:7000", cfg.HTTPAddr)
	}
	if cfg.RootDir != dir {
		t.Fatalf("RootDir=%q, want %q", cfg.RootDir, dir)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadConfig error=nil, want error")
	}
}

func TestPersonaFileOverlay(t *testing.T) {
	cfg := loadFromTempRoot(t, map[string]string{
		"conf.yaml":    "persona_path: persona.yaml\n",
		"persona.yaml": "welcome: Hello there\nprompt: Be brief.\n",
	})
	if cfg.Persona.Welcome != "Hello there" {
		t.Fatalf("Welcome=%q, want Hello there", cfg.Persona.Welcome)
	}
	if cfg.Persona.Prompt != "Be brief." {
		t.Fatalf("Prompt=%q, want Be brief.", cfg.Persona.Prompt)
	}
	if cfg.Persona.Organization != "Contoso Education Society" {
		t.Fatalf("Organization=%q, want embedded default", cfg.Persona.Organization)
	}
}

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  RealtimeConfig
		want string
	}{
		{"explicit url wins", RealtimeConfig{URL: "ws://localhost:9/rt", Endpoint: "x"}, "ws://localhost:9/rt"},
		{"empty", RealtimeConfig{}, ""},
		{"bare name", RealtimeConfig{Endpoint: "contoso", APIVersion: "v1", Deployment: "d"},
			"wss://contoso.openai.azure.com/openai/realtime?api-version=v1&deployment=d"},
		{"full host with scheme", RealtimeConfig{Endpoint: "https://rt.example.com/", Deployment: "d"},
			"wss://rt.example.com/openai/realtime?deployment=d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.EndpointURL(); got != tc.want {
				t.Fatalf("EndpointURL=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := (RealtimeConfig{}).Validate(); !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("Validate=%v, want ErrNoEndpoint", err)
	}
	if err := (RealtimeConfig{Endpoint: "contoso"}).Validate(); err != nil {
		t.Fatalf("Validate=%v, want nil", err)
	}
}

func TestClientConfig(t *testing.T) {
	cfg := Config{
		Realtime: RealtimeConfig{
			Endpoint:       "contoso",
			APIKey:         "secret",
			Voice:          "alloy",
			Modalities:     []string{"text"},
			ConnectTimeout: 3 * time.Second,
			TurnDetection:  TurnDetectionConfig{Type: "server_vad", Threshold: 0.7},
		},
		Persona: Persona{Prompt: "persona prompt"},
	}
	rc := cfg.ClientConfig()
	if rc.APIKey != "secret" || rc.ConnectTimeout != 3*time.Second {
		t.Fatalf("APIKey=%q ConnectTimeout=%v", rc.APIKey, rc.ConnectTimeout)
	}
	if rc.Session.Instructions != "persona prompt" {
		t.Fatalf("Instructions=%q, want persona prompt", rc.Session.Instructions)
	}
	if rc.Session.Voice != "alloy" {
		t.Fatalf("Voice=%q, want alloy", rc.Session.Voice)
	}
	if len(rc.Response.Modalities) != 1 || rc.Response.Modalities[0] != "text" {
		t.Fatalf("Response.Modalities=%v, want [text]", rc.Response.Modalities)
	}
	if rc.Session.TurnDetection == nil || rc.Session.TurnDetection.Threshold != 0.7 {
		t.Fatalf("TurnDetection=%+v", rc.Session.TurnDetection)
	}

	cfg.Realtime.Instructions = "explicit"
	if got := cfg.ClientConfig().Session.Instructions; got != "explicit" {
		t.Fatalf("Instructions=%q, want explicit", got)
	}
}
