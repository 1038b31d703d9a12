package session

import (
	"fmt"
	"os"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/codesession/completion"
	"github.com/jonwraymond/codesession/completion/anthropic"
	"github.com/jonwraymond/codesession/completion/openai"
	"github.com/jonwraymond/codesession/driver"
	"github.com/jonwraymond/codesession/quota"
	"github.com/jonwraymond/codesession/runtime"
	"github.com/jonwraymond/codesession/runtime/docker"
	"github.com/jonwraymond/codesession/runtime/inproc"
	"github.com/jonwraymond/codesession/runtime/local"
	"github.com/jonwraymond/codesession/volume"
	vminio "github.com/jonwraymond/codesession/volume/minio"
	vredis "github.com/jonwraymond/codesession/volume/redis"
)

// FileConfig is the declarative YAML form of a session configuration.
// LoadConfigFile reads one; Build composes the runtime provisioner,
// the durable-volume binding, and the completion wiring it names into
// a Config ready for New.
type FileConfig struct {
	Runtime struct {
		// Provider selects the provisioner: "local", "docker", or
		// "inproc". Empty selects "local".
		Provider string `yaml:"provider"`

		// Image is the container image (container providers only).
		Image string `yaml:"image"`

		// Command launches the driver inside the runtime.
		Command []string `yaml:"command"`

		// DockerPath overrides the docker client binary.
		DockerPath string `yaml:"docker_path"`
	} `yaml:"runtime"`

	// Profile names the security posture: dev, standard, hardened.
	Profile string `yaml:"profile"`

	Resources struct {
		MemoryBytes int64 `yaml:"memory_bytes"`
		CPUMillis   int64 `yaml:"cpu_millis"`
		PidsLimit   int64 `yaml:"pids_limit"`
	} `yaml:"resources"`

	// Workspace is the mount point of the staging directory inside the
	// runtime. With host-process providers it defaults to the staging
	// directory itself.
	Workspace string `yaml:"workspace"`

	Timeouts struct {
		// WallClock and Idle are Go duration strings ("30m", "90s").
		// Empty applies the defaults; a negative value disables the
		// bound.
		WallClock string `yaml:"wall_clock"`
		Idle      string `yaml:"idle"`
	} `yaml:"timeouts"`

	Volume struct {
		// Backend selects the durable store: "minio", "redis", or empty
		// for no durable volume.
		Backend string `yaml:"backend"`

		// Staging is the local staging directory the binding mirrors.
		// Required when a backend is selected.
		Staging string `yaml:"staging"`

		Minio struct {
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
			Bucket    string `yaml:"bucket"`
			UseSSL    bool   `yaml:"use_ssl"`
		} `yaml:"minio"`

		Redis struct {
			Addr      string `yaml:"addr"`
			KeyPrefix string `yaml:"key_prefix"`
		} `yaml:"redis"`
	} `yaml:"volume"`

	Completion struct {
		// Provider selects the model backend for governed sub-queries:
		// "anthropic", "openai", or empty for none.
		Provider string `yaml:"provider"`

		// Model is the model identifier. Required when a provider is
		// selected.
		Model string `yaml:"model"`

		// APIKeyEnv names the host environment variable holding the
		// API key. Empty selects the provider's canonical variable.
		APIKeyEnv string `yaml:"api_key_env"`

		// MaxCalls is the session's sub-query budget. Zero applies the
		// driver default.
		MaxCalls int `yaml:"max_calls"`

		// SummarizeOver is the output-condensation threshold in
		// characters. Zero applies the governor default.
		SummarizeOver int `yaml:"summarize_over"`
	} `yaml:"completion"`

	// Secrets are additional KEY: value pairs injected into the
	// runtime's environment.
	Secrets map[string]string `yaml:"secrets"`

	// Labels tag the provisioned runtime.
	Labels map[string]string `yaml:"labels"`
}

// LoadConfigFile reads and parses a YAML session configuration.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config file: %v", ErrConfiguration, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: parse config file: %v", ErrConfiguration, err)
	}
	return &fc, nil
}

// Build composes a Config from the declarative settings. Completion
// credentials are read from the host environment: with the in-process
// runtime they feed a host-side governor, with subprocess and container
// runtimes they are injected so the driver builds its own.
func (fc *FileConfig) Build() (Config, error) {
	cfg := Config{
		Image:         fc.Runtime.Image,
		DriverCommand: fc.Runtime.Command,
		Profile:       runtime.Profile(fc.Profile),
		Resources: runtime.ResourceSpec{
			MemoryBytes:    fc.Resources.MemoryBytes,
			CPUQuotaMillis: fc.Resources.CPUMillis,
			PidsLimit:      fc.Resources.PidsLimit,
		},
		WorkspaceDir: fc.Workspace,
		Labels:       fc.Labels,
	}

	cfg.Secrets = make(map[string]string, len(fc.Secrets))
	for k, v := range fc.Secrets {
		cfg.Secrets[k] = v
	}

	var err error
	if cfg.WallClockTimeout, err = parseTimeout("wall_clock", fc.Timeouts.WallClock); err != nil {
		return Config{}, err
	}
	if cfg.IdleTimeout, err = parseTimeout("idle", fc.Timeouts.Idle); err != nil {
		return Config{}, err
	}

	if err := fc.buildVolume(&cfg); err != nil {
		return Config{}, err
	}
	if err := fc.buildRuntime(&cfg); err != nil {
		return Config{}, err
	}

	// Host-process providers cannot remap mount paths, so the workspace
	// defaults to the staging directory itself.
	if cfg.WorkspaceDir == "" && cfg.Volume != nil && fc.Runtime.Provider != "docker" {
		cfg.WorkspaceDir = cfg.Volume.StagePath()
	}
	return cfg, nil
}

func (fc *FileConfig) buildRuntime(cfg *Config) error {
	switch fc.Runtime.Provider {
	case "", "local":
		cfg.Runtime = local.New(local.Options{})
		if err := fc.injectCompletionEnv(cfg); err != nil {
			return err
		}
	case "docker":
		cfg.Runtime = docker.New(docker.Options{DockerPath: fc.Runtime.DockerPath})
		if err := fc.injectCompletionEnv(cfg); err != nil {
			return err
		}
	case "inproc":
		gov, err := fc.buildGovernor()
		if err != nil {
			return err
		}
		cfg.Runtime = inproc.New(inproc.Options{Governor: gov, Logger: cfg.Logger})
	default:
		return fmt.Errorf("%w: unknown runtime provider %q", ErrConfiguration, fc.Runtime.Provider)
	}
	return nil
}

func (fc *FileConfig) buildVolume(cfg *Config) error {
	var store volume.Store
	switch fc.Volume.Backend {
	case "", "none":
		return nil
	case "minio":
		s, err := vminio.New(vminio.Config{
			Endpoint:  fc.Volume.Minio.Endpoint,
			AccessKey: fc.Volume.Minio.AccessKey,
			SecretKey: fc.Volume.Minio.SecretKey,
			Bucket:    fc.Volume.Minio.Bucket,
			UseSSL:    fc.Volume.Minio.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("%w: minio volume: %v", ErrConfiguration, err)
		}
		store = s
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: fc.Volume.Redis.Addr})
		s, err := vredis.New(vredis.Config{Client: client, KeyPrefix: fc.Volume.Redis.KeyPrefix})
		if err != nil {
			return fmt.Errorf("%w: redis volume: %v", ErrConfiguration, err)
		}
		store = s
	default:
		return fmt.Errorf("%w: unknown volume backend %q", ErrConfiguration, fc.Volume.Backend)
	}

	if fc.Volume.Staging == "" {
		return fmt.Errorf("%w: volume staging directory is required", ErrConfiguration)
	}
	binding, err := volume.NewBinding(store, fc.Volume.Staging)
	if err != nil {
		return fmt.Errorf("%w: volume binding: %v", ErrConfiguration, err)
	}
	cfg.Volume = binding
	return nil
}

// buildGovernor assembles the host-side governor for the in-process
// runtime from the completion settings.
func (fc *FileConfig) buildGovernor() (*quota.Governor, error) {
	client, err := fc.completionClient()
	if err != nil {
		return nil, err
	}
	maxCalls := fc.Completion.MaxCalls
	if maxCalls <= 0 {
		maxCalls = driver.DefaultBudgetMax
	}
	return quota.New(quota.Config{
		Budget:        quota.NewBudget(maxCalls),
		Client:        client,
		SummarizeOver: fc.Completion.SummarizeOver,
	})
}

// injectCompletionEnv renders the completion settings into the secrets
// injected for subprocess and container runtimes, where the driver
// builds its own governor from the environment.
func (fc *FileConfig) injectCompletionEnv(cfg *Config) error {
	provider := fc.Completion.Provider
	if provider == "" || provider == "none" {
		return nil
	}

	var canonical string
	switch provider {
	case "anthropic":
		canonical = driver.EnvAnthropicKey
	case "openai":
		canonical = driver.EnvOpenAIKey
	default:
		return fmt.Errorf("%w: unknown completion provider %q", ErrConfiguration, provider)
	}

	key, err := fc.apiKey(canonical)
	if err != nil {
		return err
	}
	cfg.Secrets[canonical] = key
	if fc.Completion.MaxCalls > 0 {
		cfg.Secrets[driver.EnvBudgetMax] = strconv.Itoa(fc.Completion.MaxCalls)
	}
	if fc.Completion.SummarizeOver > 0 {
		cfg.Secrets[driver.EnvSummarizeOver] = strconv.Itoa(fc.Completion.SummarizeOver)
	}
	if fc.Completion.Model != "" {
		cfg.Secrets[driver.EnvModel] = fc.Completion.Model
	}
	return nil
}

func (fc *FileConfig) completionClient() (completion.Client, error) {
	switch fc.Completion.Provider {
	case "", "none":
		return nil, nil
	case "anthropic":
		key, err := fc.apiKey(driver.EnvAnthropicKey)
		if err != nil {
			return nil, err
		}
		client, err := anthropic.NewFromAPIKey(key, fc.Completion.Model)
		if err != nil {
			return nil, fmt.Errorf("%w: anthropic completion: %v", ErrConfiguration, err)
		}
		return client, nil
	case "openai":
		key, err := fc.apiKey(driver.EnvOpenAIKey)
		if err != nil {
			return nil, err
		}
		client, err := openai.NewFromAPIKey(key, fc.Completion.Model)
		if err != nil {
			return nil, fmt.Errorf("%w: openai completion: %v", ErrConfiguration, err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown completion provider %q", ErrConfiguration, fc.Completion.Provider)
	}
}

// apiKey resolves the completion API key from the configured host
// environment variable, falling back to the provider's canonical one.
func (fc *FileConfig) apiKey(canonical string) (string, error) {
	name := fc.Completion.APIKeyEnv
	if name == "" {
		name = canonical
	}
	key := os.Getenv(name)
	if key == "" {
		return "", fmt.Errorf("%w: environment variable %s is empty", ErrConfiguration, name)
	}
	return key, nil
}

func parseTimeout(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: timeouts.%s: %v", ErrConfiguration, name, err)
	}
	return d, nil
}
