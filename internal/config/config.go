package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/thoreinstein/ovsnap/internal/paths"
	"github.com/thoreinstein/ovsnap/pkg/fileutil"
)

// CurrentVersion is the only config schema version understood.
const CurrentVersion = 1

// EnvPrefix prefixes every environment override, e.g. OVSNAP_OUTPUT_DIR.
const EnvPrefix = "OVSNAP"

// ConfigDirEnv names an extra directory searched for config.yaml.
const ConfigDirEnv = EnvPrefix + "_CONFIG_DIR"

// Config represents the top-level configuration structure.
type Config struct {
	Version int `mapstructure:"version" yaml:"version" json:"version" toml:"version"`

	// Roots are the absolute directories captured by every snapshot.
	Roots []string `mapstructure:"roots" yaml:"roots" json:"roots" toml:"roots"`

	// OutputDir receives new archives.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir" toml:"output_dir"`

	// ArchiveDirs are searched for archives after OutputDir.
	ArchiveDirs []string `mapstructure:"archive_dirs" yaml:"archive_dirs" json:"archive_dirs" toml:"archive_dirs"`

	// StagingDir holds temporary unpack workspaces. Empty means the system
	// temp directory.
	StagingDir string `mapstructure:"staging_dir" yaml:"staging_dir" json:"staging_dir" toml:"staging_dir"`

	Exclude Exclude `mapstructure:"exclude" yaml:"exclude" json:"exclude" toml:"exclude"`

	// StrictPurge deletes untracked files during restore.
	StrictPurge bool `mapstructure:"strict_purge" yaml:"strict_purge" json:"strict_purge" toml:"strict_purge"`

	// Retention is how many archives prune keeps.
	Retention int `mapstructure:"retention" yaml:"retention" json:"retention" toml:"retention"`

	PKI     PKI     `mapstructure:"pki" yaml:"pki" json:"pki" toml:"pki"`
	Service Service `mapstructure:"service" yaml:"service" json:"service" toml:"service"`
}

// Exclude lists paths and suffixes invisible to capture, diff and purge.
type Exclude struct {
	Paths    []string `mapstructure:"paths" yaml:"paths" json:"paths" toml:"paths"`
	Suffixes []string `mapstructure:"suffixes" yaml:"suffixes" json:"suffixes" toml:"suffixes"`
}

// PKI locates the Easy-RSA installation and controls CRL publishing.
type PKI struct {
	EasyRSADir   string `mapstructure:"easyrsa_dir" yaml:"easyrsa_dir" json:"easyrsa_dir" toml:"easyrsa_dir"`
	AutoRegenCRL bool   `mapstructure:"auto_regen_crl" yaml:"auto_regen_crl" json:"auto_regen_crl" toml:"auto_regen_crl"`
	CRLDays      int    `mapstructure:"crl_days" yaml:"crl_days" json:"crl_days" toml:"crl_days"`
	CRLDest      string `mapstructure:"crl_dest" yaml:"crl_dest" json:"crl_dest" toml:"crl_dest"`
}

// Service controls the restart after a restore.
type Service struct {
	Restart bool     `mapstructure:"restart" yaml:"restart" json:"restart" toml:"restart"`
	Units   []string `mapstructure:"units" yaml:"units" json:"units" toml:"units"`
}

// Default returns the configuration of a stock OpenVPN host.
func Default() *Config {
	return &Config{
		Version:     CurrentVersion,
		Roots:       []string{"/etc/openvpn", "/etc/iptables", "/root"},
		OutputDir:   "/root/backups",
		ArchiveDirs: []string{"/root"},
		Exclude: Exclude{
			Paths:    []string{"/root/.bash_history", "/root/.cache", "/root/backups/.tmp"},
			Suffixes: []string{".pyc", ".log", ".swp"},
		},
		StrictPurge: true,
		Retention:   5,
		PKI: PKI{
			EasyRSADir:   "/etc/openvpn/easy-rsa",
			AutoRegenCRL: true,
			CRLDays:      3650,
			CRLDest:      "/etc/openvpn/crl.pem",
		},
		Service: Service{
			Restart: true,
			Units:   []string{"openvpn@server", "openvpn"},
		},
	}
}

// Init resets Viper and registers defaults, search paths and environment
// overrides. Call it once at startup, before Load.
func Init() {
	viper.Reset()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths, highest precedence first.
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		viper.AddConfigPath(dir)
	}
	viper.AddConfigPath(".")
	viper.AddConfigPath(filepath.Join(paths.ConfigHome(), paths.AppName))

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	d := Default()
	viper.SetDefault("version", d.Version)
	viper.SetDefault("roots", d.Roots)
	viper.SetDefault("output_dir", d.OutputDir)
	viper.SetDefault("archive_dirs", d.ArchiveDirs)
	viper.SetDefault("staging_dir", d.StagingDir)
	viper.SetDefault("exclude.paths", d.Exclude.Paths)
	viper.SetDefault("exclude.suffixes", d.Exclude.Suffixes)
	viper.SetDefault("strict_purge", d.StrictPurge)
	viper.SetDefault("retention", d.Retention)
	viper.SetDefault("pki.easyrsa_dir", d.PKI.EasyRSADir)
	viper.SetDefault("pki.auto_regen_crl", d.PKI.AutoRegenCRL)
	viper.SetDefault("pki.crl_days", d.PKI.CRLDays)
	viper.SetDefault("pki.crl_dest", d.PKI.CRLDest)
	viper.SetDefault("service.restart", d.Service.Restart)
	viper.SetDefault("service.units", d.Service.Units)
}

// Load reads the configuration file and validates the result.
// If path is provided, it reads from that specific file and a missing file
// is an error. If path is empty, it searches the default locations and
// falls back to defaults when nothing is found.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := Check(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation.
func Read(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || os.IsNotExist(errors.UnwrapAll(err))
		switch {
		case missing && path == "":
			// Implicit search with no file: defaults apply.
		case missing:
			return nil, errors.Wrapf(err, "config file not found at %s", path)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	return &cfg, nil
}

// Check joins the errors of Validate into one.
func Check(cfg *Config) error {
	if errs := Validate(cfg); len(errs) > 0 {
		return errors.Wrap(errors.Join(errs...), "validating config")
	}
	return nil
}

// Used returns the config file Viper read, or "" when defaults were used.
func Used() string {
	return viper.ConfigFileUsed()
}

// Write saves cfg as YAML at path, creating the parent directory. An
// existing file is only replaced when force is set.
func Write(path string, cfg *Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Newf("%s already exists", path)
	}
	if err := paths.EnsureDir(filepath.Dir(path), paths.DefaultDirPerm); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return errors.Wrap(fileutil.AtomicWriteYAML(path, cfg, 0o600), "writing config")
}
