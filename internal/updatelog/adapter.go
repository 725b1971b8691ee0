// Package updatelog keeps the update log collection in a repository file and
// mirrors it into the local cache store.
//
// Reads prefer the repository when it is configured and fall back to the cache
// on any failure. Writes go to the repository when it is configured and always
// end up in the cache, whatever the remote outcome.
package updatelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/snapp-incubator/updatelog/internal/config"
	"github.com/snapp-incubator/updatelog/internal/github"
	"github.com/snapp-incubator/updatelog/internal/logging"
	"github.com/snapp-incubator/updatelog/internal/metrics"
	"github.com/snapp-incubator/updatelog/internal/storage"
)

const (
	// ConfigKey holds the repository settings in the local cache.
	ConfigKey = "github_config"
	// LogsKey holds the cached log collection.
	LogsKey = "updateLogs"
	// DefaultPath is the repository file of the log collection.
	DefaultPath = "data/updateLogs.json"

	commitTimeLayout = "2006-01-02 15:04:05"
)

// Remote is the part of the Contents API the adapter uses.
type Remote interface {
	GetFile(ctx context.Context, path string) (*github.File, error)
	PutFile(ctx context.Context, path string, r github.PutRequest) (string, error)
}

type options struct {
	remote     Remote
	baseURL    string
	path       string
	httpClient *http.Client
	notifier   Notifier
	log        *zap.Logger
	now        func() time.Time
}

// Option configures an Adapter.
type Option func(*options)

// WithRemote replaces the Contents API client built from the repository settings.
func WithRemote(r Remote) Option { return func(o *options) { o.remote = r } }

// WithBaseURL sets the API root of the default client.
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithPath sets the repository file holding the collection.
func WithPath(p string) Option {
	return func(o *options) {
		if p != "" {
			o.path = p
		}
	}
}

// WithHTTPClient sets the HTTP client of the default Contents API client.
func WithHTTPClient(hc *http.Client) Option { return func(o *options) { o.httpClient = hc } }

// WithNotifier sets the receiver of user-visible warnings.
func WithNotifier(n Notifier) Option { return func(o *options) { o.notifier = n } }

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithClock sets the time source of commit messages.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func newOptions(opts []Option) options {
	o := options{path: DefaultPath, now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	o.log = logging.Or(o.log)
	if o.notifier == nil {
		o.notifier = LogNotifier{L: o.log}
	}
	return o
}

// Adapter loads and saves a collection of T records.
// T must survive a JSON round trip.
type Adapter[T any] struct {
	cfg      config.GitHub
	cache    storage.Store
	remote   Remote
	notifier Notifier
	log      *zap.Logger
	path     string
	now      func() time.Time
}

// New reads the repository settings from cache and creates the adapter.
func New[T any](ctx context.Context, cache storage.Store, opts ...Option) *Adapter[T] {
	o := newOptions(opts)
	return newAdapter[T](LoadGitHubConfig(ctx, cache, o.log), cache, o)
}

// NewWithConfig creates the adapter with explicit repository settings.
func NewWithConfig[T any](cfg config.GitHub, cache storage.Store, opts ...Option) *Adapter[T] {
	return newAdapter[T](cfg, cache, newOptions(opts))
}

func newAdapter[T any](cfg config.GitHub, cache storage.Store, o options) *Adapter[T] {
	a := &Adapter[T]{
		cfg:      cfg,
		cache:    cache,
		remote:   o.remote,
		notifier: o.notifier,
		log:      o.log.With(zap.String("path", o.path)),
		path:     o.path,
		now:      o.now,
	}
	if a.remote == nil && cfg.Configured() {
		a.remote = github.NewClient(cfg, github.WithBaseURL(o.baseURL), github.WithHTTPClient(o.httpClient))
	}
	return a
}

// LoadGitHubConfig reads the repository settings stored under ConfigKey.
// Missing or malformed settings yield the zero value; failures are only logged.
func LoadGitHubConfig(ctx context.Context, cache storage.Store, log *zap.Logger) config.GitHub {
	log = logging.Or(log)

	raw, ok, err := cache.Get(ctx, ConfigKey)
	metrics.CacheOpCounter.WithLabelValues("get", metrics.Result(err)).Inc()
	if err != nil {
		log.Error("error in reading the github config", zap.Error(err))
		return config.GitHub{}
	}
	if !ok {
		return config.GitHub{}
	}

	cfg, err := config.ParseGitHub(raw)
	if err != nil {
		log.Error("error in parsing the github config", zap.Error(err))
		return config.GitHub{}
	}
	return cfg
}

// IsConfigured reports whether username, repository and token are all set.
func (a *Adapter[T]) IsConfigured() bool {
	return a.cfg.Configured()
}

// ConfigInfo returns the repository settings without the token.
func (a *Adapter[T]) ConfigInfo() (config.Info, bool) {
	return a.cfg.Info()
}

// Load returns the collection. It never fails: when the repository cannot be
// read the cached collection is returned, and an empty one when there is none.
// A repository without the file yields an empty collection and leaves the
// cache untouched.
func (a *Adapter[T]) Load(ctx context.Context) []T {
	if !a.IsConfigured() {
		return a.loadLocal(ctx)
	}

	logs, err := a.loadRemote(ctx)
	if errors.Is(err, github.ErrNotFound) {
		a.log.Info("log file does not exist in the repository yet")
		return []T{}
	}
	if err != nil {
		a.log.Error("error in loading logs from github, using the local cache", zap.Error(err))
		metrics.FallbackCounter.WithLabelValues("load").Inc()
		return a.loadLocal(ctx)
	}

	if err := a.saveLocal(ctx, logs); err != nil {
		a.log.Error("error in refreshing the local cache", zap.Error(err))
	}
	return logs
}

// Save replaces the collection and reports whether it reached its primary
// store. The cache always receives the collection. A failed remote write
// notifies the user once and returns false.
func (a *Adapter[T]) Save(ctx context.Context, logs []T) bool {
	if logs == nil {
		logs = []T{}
	}

	if !a.IsConfigured() {
		if err := a.saveLocal(ctx, logs); err != nil {
			a.log.Error("error in saving logs to the local cache", zap.Error(err))
			return false
		}
		return true
	}

	if err := a.saveRemote(ctx, logs); err != nil {
		a.log.Error("error in saving logs to github", zap.Error(err))
		metrics.FallbackCounter.WithLabelValues("save").Inc()
		a.notifier.Warn(fmt.Sprintf("saving the update logs to GitHub failed, they are kept in the local cache only: %v", err))

		if err := a.saveLocal(ctx, logs); err != nil {
			a.log.Error("error in saving logs to the local cache", zap.Error(err))
		}
		return false
	}

	if err := a.saveLocal(ctx, logs); err != nil {
		a.log.Error("error in mirroring logs to the local cache", zap.Error(err))
	}
	return true
}

// SyncFromGitHub loads the collection from the repository.
func (a *Adapter[T]) SyncFromGitHub(ctx context.Context) ([]T, error) {
	if !a.IsConfigured() {
		return nil, ErrNotConfigured
	}
	return a.Load(ctx), nil
}

// SyncToGitHub pushes the cached collection to the repository.
func (a *Adapter[T]) SyncToGitHub(ctx context.Context) (bool, error) {
	if !a.IsConfigured() {
		return false, ErrNotConfigured
	}
	return a.Save(ctx, a.loadLocal(ctx)), nil
}

func (a *Adapter[T]) loadRemote(ctx context.Context) ([]T, error) {
	f, err := a.remote.GetFile(ctx, a.path)
	if err != nil {
		return nil, err
	}
	return decode[T](f.Content)
}

func (a *Adapter[T]) saveRemote(ctx context.Context, logs []T) error {
	// The revision changes with every commit, so it is fetched on each save.
	var sha string
	f, err := a.remote.GetFile(ctx, a.path)
	switch {
	case err == nil:
		sha = f.SHA
	case errors.Is(err, github.ErrNotFound):
	default:
		a.log.Warn("error in fetching the current revision, writing without it", zap.Error(err))
	}

	body, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		return fmt.Errorf("error in encoding logs: %w", err)
	}

	_, err = a.remote.PutFile(ctx, a.path, github.PutRequest{
		Message: "Update logs - " + a.now().Format(commitTimeLayout),
		Content: body,
		Branch:  a.cfg.BranchOrDefault(),
		SHA:     sha,
	})
	return err
}

func (a *Adapter[T]) loadLocal(ctx context.Context) []T {
	raw, ok, err := a.cache.Get(ctx, LogsKey)
	metrics.CacheOpCounter.WithLabelValues("get", metrics.Result(err)).Inc()
	if err != nil {
		a.log.Error("error in reading the local cache", zap.Error(err))
		return []T{}
	}
	if !ok {
		return []T{}
	}

	logs, err := decode[T]([]byte(raw))
	if err != nil {
		a.log.Error("error in parsing the local cache", zap.Error(err))
		return []T{}
	}
	return logs
}

func (a *Adapter[T]) saveLocal(ctx context.Context, logs []T) error {
	b, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalStore, err)
	}

	err = a.cache.Set(ctx, LogsKey, string(b))
	metrics.CacheOpCounter.WithLabelValues("set", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocalStore, err)
	}
	return nil
}

func decode[T any](b []byte) ([]T, error) {
	var logs []T
	if err := json.Unmarshal(b, &logs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if logs == nil {
		logs = []T{}
	}
	return logs, nil
}
