package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".funneltrace"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML configuration file format. All fields are optional;
// zero values leave the corresponding Config default untouched.
type File struct {
	// CollectorAddress overrides the collector listen address.
	CollectorAddress string `yaml:"collector_address"`

	// BackendURL overrides the REST sink target.
	BackendURL string `yaml:"backend_url"`

	// Sink overrides the delivery strategy (rest, document, versioned).
	Sink string `yaml:"sink"`

	// DBDir and StateDir override the storage directories.
	DBDir    string `yaml:"db_dir"`
	StateDir string `yaml:"state_dir"`

	// GeoEndpoint overrides the geolocation endpoint. Set to "off" to
	// disable geolocation enrichment entirely.
	GeoEndpoint string `yaml:"geo_endpoint"`

	// GeoTimeout overrides the geolocation timeout (e.g. "5s").
	GeoTimeout time.Duration `yaml:"geo_timeout"`

	// HTTPTimeout overrides the sink/CRM request timeout.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// ExcludePath overrides the visit-tracking exclusion substring.
	ExcludePath string `yaml:"exclude_path"`

	// Versioned-file sink settings.
	Contents struct {
		APIBaseURL string `yaml:"api_base_url"`
		Owner      string `yaml:"owner"`
		Repo       string `yaml:"repo"`
		Branch     string `yaml:"branch"`
		Token      string `yaml:"token"`
	} `yaml:"contents"`

	// CRM settings.
	CRM struct {
		BaseURL     string `yaml:"base_url"`
		WorkspaceID string `yaml:"workspace_id"`
		APIKey      string `yaml:"api_key"`
		TagIDs      []int  `yaml:"tag_ids"`
	} `yaml:"crm"`
}

// LoadConfigFile loads a configuration file from the given path.
// If the file does not exist it returns ErrConfigNotFound; callers
// decide whether that is fatal based on whether the path was explicit.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// Apply merges the file's non-zero values into cfg.
func (f *File) Apply(cfg *Config) {
	if f.CollectorAddress != "" {
		cfg.CollectorAddress = f.CollectorAddress
	}
	if f.BackendURL != "" {
		cfg.BackendURL = f.BackendURL
	}
	if f.Sink != "" {
		cfg.Sink = SinkKind(f.Sink)
	}
	if f.DBDir != "" {
		cfg.DBDir = f.DBDir
	}
	if f.StateDir != "" {
		cfg.StateDir = f.StateDir
	}
	if f.GeoEndpoint == "off" {
		cfg.GeoEndpoint = ""
	} else if f.GeoEndpoint != "" {
		cfg.GeoEndpoint = f.GeoEndpoint
	}
	if f.GeoTimeout > 0 {
		cfg.GeoTimeout = f.GeoTimeout
	}
	if f.HTTPTimeout > 0 {
		cfg.HTTPTimeout = f.HTTPTimeout
	}
	if f.ExcludePath != "" {
		cfg.ExcludePath = f.ExcludePath
	}
	if f.Contents.APIBaseURL != "" {
		cfg.ContentsAPIBaseURL = f.Contents.APIBaseURL
	}
	if f.Contents.Owner != "" {
		cfg.ContentsOwner = f.Contents.Owner
	}
	if f.Contents.Repo != "" {
		cfg.ContentsRepo = f.Contents.Repo
	}
	if f.Contents.Branch != "" {
		cfg.ContentsBranch = f.Contents.Branch
	}
	if f.Contents.Token != "" {
		cfg.ContentsToken = f.Contents.Token
	}
	if f.CRM.BaseURL != "" {
		cfg.CRMBaseURL = f.CRM.BaseURL
	}
	if f.CRM.WorkspaceID != "" {
		cfg.CRMWorkspaceID = f.CRM.WorkspaceID
	}
	if f.CRM.APIKey != "" {
		cfg.CRMAPIKey = f.CRM.APIKey
	}
	if len(f.CRM.TagIDs) > 0 {
		cfg.CRMTagIDs = f.CRM.TagIDs
	}
}

// FindConfigFile searches for the configuration file in order:
// an explicit path if given, then the current directory, then the
// user's home directory. It returns an empty string when not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
