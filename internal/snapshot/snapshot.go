package snapshot

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/ovsnap/internal/archive"
	"github.com/thoreinstein/ovsnap/internal/config"
	"github.com/thoreinstein/ovsnap/internal/exclude"
	"github.com/thoreinstein/ovsnap/internal/logging"
	"github.com/thoreinstein/ovsnap/internal/manifest"
	"github.com/thoreinstein/ovsnap/internal/pki"
	"github.com/thoreinstein/ovsnap/internal/restore"
	"github.com/thoreinstein/ovsnap/internal/service"
)

// Manager runs snapshot operations against one configuration.
type Manager struct {
	cfg     *config.Config
	layout  pki.Layout
	catalog *archive.Catalog
	tool    pki.CATool
	ctrl    service.Controller
	clock   func() time.Time
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger passed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithClock overrides the capture and report timestamps.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		m.clock = fn
	}
}

// WithCATool replaces the easyrsa invocation.
func WithCATool(t pki.CATool) Option {
	return func(m *Manager) {
		m.tool = t
	}
}

// WithController replaces the service controller derived from the config.
// A nil controller disables the restart.
func WithController(c service.Controller) Option {
	return func(m *Manager) {
		m.ctrl = c
	}
}

// NewManager validates cfg and returns a Manager for it.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	if err := config.Check(cfg); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:     cfg,
		layout:  pki.Layout{EasyRSADir: cfg.PKI.EasyRSADir},
		catalog: archive.NewCatalog(append([]string{cfg.OutputDir}, cfg.ArchiveDirs...)...),
		clock:   time.Now,
	}
	m.tool = pki.NewEasyRSA(m.layout)
	if cfg.Service.Restart {
		m.ctrl = service.NewSystemd(cfg.Service.Units...)
	}

	for _, opt := range opts {
		opt(m)
	}
	if sd, ok := m.ctrl.(*service.Systemd); ok && sd.Logger == nil {
		sd.Logger = m.logger
	}
	return m, nil
}

// Config returns the configuration the Manager was built from.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Catalog returns the archive catalogue: the output directory first, then
// the extra search directories.
func (m *Manager) Catalog() *archive.Catalog {
	return m.catalog
}

// Filter returns the exclusion filter for the current state of the
// catalogue. Besides the configured exclusions it hides the output
// directory, every catalogued archive and the staging root, so a root that
// contains any of them never captures, diffs or purges them.
func (m *Manager) Filter() (*exclude.Filter, error) {
	archives, err := m.catalog.List()
	if err != nil {
		return nil, errors.Wrap(err, "listing archives")
	}
	excluded := slices.Clone(m.cfg.Exclude.Paths)
	excluded = append(excluded, m.cfg.OutputDir, m.stagingRoot())
	for _, a := range archives {
		excluded = append(excluded, a.Path)
	}
	f := exclude.New(excluded, m.cfg.Exclude.Suffixes)
	logging.OrDiscard(m.logger).Log(context.Background(), logging.LevelTrace, "exclusion filter",
		"paths", f.Paths(), "suffixes", f.Suffixes())
	return f, nil
}

// stagingRoot is where pack and restore workspaces are created.
func (m *Manager) stagingRoot() string {
	if m.cfg.StagingDir != "" {
		return m.cfg.StagingDir
	}
	return os.TempDir()
}

// Created describes a freshly written archive.
type Created struct {
	Name     string             `json:"name"`
	Path     string             `json:"path"`
	Size     int64              `json:"size"`
	Files    int                `json:"files"`
	Skipped  []string           `json:"skipped"`
	Manifest *manifest.Manifest `json:"-"`
}

// Create captures the configured roots and packs them into a new archive
// in the output directory.
func (m *Manager) Create(ctx context.Context) (*Created, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logging.OrDiscard(m.logger)

	filter, err := m.Filter()
	if err != nil {
		return nil, err
	}

	builder := &manifest.Builder{Filter: filter, PKI: &m.layout, Clock: m.clock, Logger: log}
	man, err := builder.Build(m.cfg.Roots)
	if err != nil {
		return nil, errors.Wrap(err, "building manifest")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	packer := &archive.Packer{Filter: filter, TempDir: m.cfg.StagingDir, Logger: log}
	path, err := packer.Pack(man, m.cfg.Roots, m.cfg.OutputDir)
	if err != nil {
		return nil, errors.Wrap(err, "packing archive")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	skipped := man.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	log.Info("snapshot created", "archive", path, "files", len(man.Files), "size", info.Size())
	return &Created{
		Name:     filepath.Base(path),
		Path:     path,
		Size:     info.Size(),
		Files:    len(man.Files),
		Skipped:  skipped,
		Manifest: man,
	}, nil
}

// List returns the catalogue, newest first.
func (m *Manager) List() ([]archive.Info, error) {
	return m.catalog.List()
}

// Summary is what an archive's manifest says about it.
type Summary struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Roots     []string  `json:"roots"`
	Files     int       `json:"files"`
	Bytes     int64     `json:"bytes"`
	HasPKI    bool      `json:"has_pki"`
	Valid     int       `json:"valid"`
	Revoked   int       `json:"revoked"`
}

// Info reads only the manifest of the named archive.
func (m *Manager) Info(name string) (*Summary, error) {
	path, err := m.catalog.Locate(name)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	man, err := archive.ReadManifest(path)
	if err != nil {
		return nil, err
	}

	valid, revoked := man.PKI.Counts()
	return &Summary{
		Name:      filepath.Base(path),
		Path:      path,
		Size:      st.Size(),
		CreatedAt: man.CreatedAt.Time,
		Roots:     man.Roots,
		Files:     len(man.Files),
		Bytes:     man.TotalSize(),
		HasPKI:    man.PKI != nil,
		Valid:     valid,
		Revoked:   revoked,
	}, nil
}

// Diff reports how the live roots differ from the named archive without
// changing anything.
func (m *Manager) Diff(ctx context.Context, name string) (*restore.Report, error) {
	return m.Restore(ctx, name, true)
}

// Restore applies the named archive to the live roots. Purging follows
// the strict_purge setting.
func (m *Manager) Restore(ctx context.Context, name string, dryRun bool) (*restore.Report, error) {
	path, err := m.catalog.Locate(name)
	if err != nil {
		return nil, err
	}
	ex, err := m.executor()
	if err != nil {
		return nil, err
	}
	return ex.Restore(ctx, path, restore.Options{DryRun: dryRun, StrictPurge: m.cfg.StrictPurge})
}

func (m *Manager) executor() (*restore.Executor, error) {
	filter, err := m.Filter()
	if err != nil {
		return nil, err
	}
	return &restore.Executor{
		Filter:     filter,
		Roots:      m.cfg.Roots,
		StagingDir: m.cfg.StagingDir,
		CRL:        m.regenerator(m.cfg.PKI.AutoRegenCRL),
		Service:    m.ctrl,
		Logger:     m.logger,
		Clock:      m.clock,
	}, nil
}

// Delete removes the named archive and returns its path.
func (m *Manager) Delete(name string) (string, error) {
	return m.catalog.Delete(name)
}

// Prune keeps the newest keep archives and deletes the rest. A negative
// keep means the configured retention.
func (m *Manager) Prune(keep int) ([]archive.Info, error) {
	if keep < 0 {
		keep = m.cfg.Retention
	}
	removed, err := m.catalog.Prune(keep)
	for _, r := range removed {
		logging.OrDiscard(m.logger).Info("archive pruned", "archive", r.Path)
	}
	return removed, err
}

// Clients reads the live CA index.
func (m *Manager) Clients() (*pki.Snapshot, []error) {
	return pki.ReadSnapshot(m.layout)
}

// Revoke revokes each named client and publishes one new CRL.
func (m *Manager) Revoke(ctx context.Context, names []string) pki.RevokeResult {
	return m.regenerator(true).RevokeAll(ctx, names)
}

// RegenerateCRL publishes a new CRL regardless of auto_regen_crl.
func (m *Manager) RegenerateCRL(ctx context.Context) pki.Result {
	return m.regenerator(true).Regenerate(ctx)
}

func (m *Manager) regenerator(enabled bool) *pki.Regenerator {
	return &pki.Regenerator{
		Layout:  m.layout,
		Tool:    m.tool,
		Dest:    m.cfg.PKI.CRLDest,
		Days:    m.cfg.PKI.CRLDays,
		Enabled: enabled,
		Logger:  m.logger,
	}
}
