package updatelog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/snapp-incubator/updatelog/internal/config"
	"github.com/snapp-incubator/updatelog/internal/ghfake"
	"github.com/snapp-incubator/updatelog/internal/github"
	"github.com/snapp-incubator/updatelog/internal/storage"
)

type entry struct {
	Version string   `json:"version,omitempty"`
	Text    string   `json:"text"`
	Items   []string `json:"items,omitempty"`
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Warn(message string) {
	n.messages = append(n.messages, message)
}

type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string) (string, bool, error) { return "", false, s.err }
func (s failingStore) Set(context.Context, string, string) error        { return s.err }
func (s failingStore) Close() error                                     { return nil }

// racingRemote commits a concurrent change between reading the revision and writing.
type racingRemote struct {
	*github.Client
	fake *ghfake.Server
}

func (r racingRemote) PutFile(ctx context.Context, path string, req github.PutRequest) (string, error) {
	r.fake.Seed("octo", "notes", "main", path, []byte(`[{"text":"from another writer"}]`))
	return r.Client.PutFile(ctx, path, req)
}

const configJSON = `{"username":"octo","repo":"notes","token":"secret"}`

// ------------------------------------------------------------------
//                     		setup test
// ------------------------------------------------------------------

type AdapterTestSuite struct {
	suite.Suite
	ctx      context.Context
	fake     *ghfake.Server
	srv      *httptest.Server
	cache    storage.Store
	notifier *recordingNotifier
	now      time.Time
}

func (suite *AdapterTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.fake = ghfake.New()
	suite.fake.Token = "secret"
	suite.srv = httptest.NewServer(suite.fake.Router())
	suite.cache = storage.NewFileStore(afero.NewMemMapFs())
	suite.notifier = &recordingNotifier{}
	suite.now = time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
}

func (suite *AdapterTestSuite) TearDownTest() {
	suite.srv.Close()
}

func (suite *AdapterTestSuite) options(extra ...Option) []Option {
	return append([]Option{
		WithBaseURL(suite.srv.URL),
		WithNotifier(suite.notifier),
		WithLogger(zap.NewNop()),
		WithClock(func() time.Time { return suite.now }),
	}, extra...)
}

func (suite *AdapterTestSuite) configured(extra ...Option) *Adapter[entry] {
	suite.Require().NoError(suite.cache.Set(suite.ctx, ConfigKey, configJSON))
	a := New[entry](suite.ctx, suite.cache, suite.options(extra...)...)
	suite.Require().True(a.IsConfigured())
	return a
}

func (suite *AdapterTestSuite) unconfigured() *Adapter[entry] {
	a := New[entry](suite.ctx, suite.cache, suite.options()...)
	suite.Require().False(a.IsConfigured())
	return a
}

func (suite *AdapterTestSuite) cached() (string, bool) {
	v, ok, err := suite.cache.Get(suite.ctx, LogsKey)
	suite.Require().NoError(err)
	return v, ok
}

func (suite *AdapterTestSuite) remote() (string, bool) {
	content, _, ok := suite.fake.File("octo", "notes", "main", DefaultPath)
	return string(content), ok
}

// ------------------------------------------------------------------
//                     		configuration
// ------------------------------------------------------------------

func (suite *AdapterTestSuite) TestIsConfiguredRequiresAllFields() {
	for _, raw := range []string{
		`{"repo":"notes","token":"secret"}`,
		`{"username":"octo","token":"secret"}`,
		`{"username":"octo","repo":"notes"}`,
		`{"username":"octo","repo":"notes","token":""}`,
		`{}`,
		`{"username":"octo",`,
		`[]`,
	} {
		suite.Require().NoError(suite.cache.Set(suite.ctx, ConfigKey, raw))
		a := New[entry](suite.ctx, suite.cache, suite.options()...)
		suite.Require().False(a.IsConfigured(), raw)
	}

	suite.Require().NoError(suite.cache.Set(suite.ctx, ConfigKey, configJSON))
	suite.Require().True(New[entry](suite.ctx, suite.cache, suite.options()...).IsConfigured())
}

func (suite *AdapterTestSuite) TestConfigInfo() {
	require := suite.Require()

	_, ok := suite.unconfigured().ConfigInfo()
	require.False(ok)

	info, ok := suite.configured().ConfigInfo()
	require.True(ok)
	require.Equal(config.Info{
		Username: "octo",
		Repo:     "notes",
		Branch:   "main",
		RepoURL:  "https://github.com/octo/notes",
	}, info)
}

// ------------------------------------------------------------------
//                     		unconfigured
// ------------------------------------------------------------------

func (suite *AdapterTestSuite) TestUnconfiguredLoad() {
	require := suite.Require()
	a := suite.unconfigured()

	require.Equal([]entry{}, a.Load(suite.ctx))

	require.NoError(suite.cache.Set(suite.ctx, LogsKey, `[{"version":"1.0","text":"first"}]`))
	require.Equal([]entry{{Version: "1.0", Text: "first"}}, a.Load(suite.ctx))

	require.NoError(suite.cache.Set(suite.ctx, LogsKey, `{"broken"`))
	require.Equal([]entry{}, a.Load(suite.ctx))

	require.Zero(suite.fake.Requests(http.MethodGet))
}

func (suite *AdapterTestSuite) TestUnconfiguredSave() {
	require := suite.Require()
	a := suite.unconfigured()

	require.True(a.Save(suite.ctx, []entry{{Text: "local"}}))

	v, ok := suite.cached()
	require.True(ok)
	require.JSONEq(`[{"text":"local"}]`, v)
	require.Zero(suite.fake.Requests(http.MethodPut))

	require.True(a.Save(suite.ctx, nil))
	v, _ = suite.cached()
	require.Equal(`[]`, v)
}

func (suite *AdapterTestSuite) TestUnconfiguredSaveStoreFailure() {
	a := NewWithConfig[entry](config.GitHub{}, failingStore{err: errors.New("quota exceeded")}, suite.options()...)

	suite.Require().False(a.Save(suite.ctx, []entry{{Text: "lost"}}))
	suite.Require().Equal([]entry{}, a.Load(suite.ctx))
	suite.Require().Empty(suite.notifier.messages)
}

// ------------------------------------------------------------------
//                     		configured load
// ------------------------------------------------------------------

func (suite *AdapterTestSuite) TestLoadRefreshesCache() {
	require := suite.Require()
	suite.fake.Seed("octo", "notes", "main", DefaultPath, []byte(`[{"text":"remote"}]`))
	require.NoError(suite.cache.Set(suite.ctx, LogsKey, `[{"text":"stale"}]`))

	logs := suite.configured().Load(suite.ctx)

	require.Equal([]entry{{Text: "remote"}}, logs)
	v, _ := suite.cached()
	require.JSONEq(`[{"text":"remote"}]`, v)
}

func (suite *AdapterTestSuite) TestLoadNotFoundKeepsCache() {
	require := suite.Require()
	require.NoError(suite.cache.Set(suite.ctx, LogsKey, `[{"text":"cached"}]`))

	logs := suite.configured().Load(suite.ctx)

	require.Equal([]entry{}, logs)
	v, _ := suite.cached()
	require.Equal(`[{"text":"cached"}]`, v)
}

func (suite *AdapterTestSuite) TestLoadFallsBackOnRemoteFailure() {
	require := suite.Require()
	require.NoError(suite.cache.Set(suite.ctx, LogsKey, `[{"text":"cached"}]`))
	a := suite.configured()

	suite.srv.Close()

	require.Equal([]entry{{Text: "cached"}}, a.Load(suite.ctx))
	require.Empty(suite.notifier.messages)
}

func (suite *AdapterTestSuite) TestLoadFallsBackOnRejectedRequest() {
	require := suite.Require()
	require.NoError(suite.cache.Set(suite.ctx, LogsKey, `[{"text":"cached"}]`))
	suite.fake.Token = "rotated"

	require.Equal([]entry{{Text: "cached"}}, suite.configured().Load(suite.ctx))
}

func (suite *AdapterTestSuite) TestLoadFallsBackOnMalformedContent() {
	require := suite.Require()
	suite.fake.Seed("octo", "notes", "main", DefaultPath, []byte(`{"not":"a list"}`))
	require.NoError(suite.cache.Set(suite.ctx, LogsKey, `[{"text":"cached"}]`))

	require.Equal([]entry{{Text: "cached"}}, suite.configured().Load(suite.ctx))
	v, _ := suite.cached()
	require.Equal(`[{"text":"cached"}]`, v)
}

// ------------------------------------------------------------------
//                     		configured save
// ------------------------------------------------------------------

func (suite *AdapterTestSuite) TestSaveCreatesFile() {
	require := suite.Require()
	logs := []entry{{Version: "2.0", Text: "release", Items: []string{"a", "b"}}}

	require.True(suite.configured().Save(suite.ctx, logs))

	content, ok := suite.remote()
	require.True(ok)
	require.Equal(`[
  {
    "version": "2.0",
    "text": "release",
    "items": [
      "a",
      "b"
    ]
  }
]`, content)
	require.Equal([]string{"Update logs - 2026-10-19 08:30:00"}, suite.fake.Commits())

	v, _ := suite.cached()
	require.JSONEq(content, v)
}

func (suite *AdapterTestSuite) TestSaveRoundTripsNonASCII() {
	require := suite.Require()
	logs := []entry{{Text: "日志"}, {Text: "journal de mise à jour ✓"}}

	require.True(suite.configured().Save(suite.ctx, logs))

	fresh := storage.NewFileStore(afero.NewMemMapFs())
	require.NoError(fresh.Set(suite.ctx, ConfigKey, configJSON))
	loaded := New[entry](suite.ctx, fresh, suite.options()...).Load(suite.ctx)

	require.Equal(logs, loaded)
}

func (suite *AdapterTestSuite) TestSequentialSavesRefetchRevision() {
	require := suite.Require()
	a := suite.configured()

	require.True(a.Save(suite.ctx, []entry{{Text: "one"}}))
	require.Equal(1, suite.fake.Requests(http.MethodGet))

	require.True(a.Save(suite.ctx, []entry{{Text: "one"}, {Text: "two"}}))
	require.Equal(2, suite.fake.Requests(http.MethodGet))
	require.Equal(2, suite.fake.Requests(http.MethodPut))

	content, _ := suite.remote()
	require.JSONEq(`[{"text":"one"},{"text":"two"}]`, content)
	require.Empty(suite.notifier.messages)
}

func (suite *AdapterTestSuite) TestSaveFailureWarnsAndCaches() {
	require := suite.Require()
	suite.fake.FailPuts(http.StatusInternalServerError, "server exploded")

	ok := suite.configured().Save(suite.ctx, []entry{{Text: "kept"}})

	require.False(ok)
	require.Len(suite.notifier.messages, 1)
	require.Contains(suite.notifier.messages[0], "server exploded")

	v, cached := suite.cached()
	require.True(cached)
	require.JSONEq(`[{"text":"kept"}]`, v)
	_, exists := suite.remote()
	require.False(exists)
}

func (suite *AdapterTestSuite) TestSaveWithStaleRevisionIsNotRetried() {
	require := suite.Require()
	suite.fake.Seed("octo", "notes", "main", DefaultPath, []byte(`[]`))
	client := github.NewClient(
		config.GitHub{Username: "octo", Repo: "notes", Token: "secret"},
		github.WithBaseURL(suite.srv.URL),
	)
	a := suite.configured(WithRemote(racingRemote{Client: client, fake: suite.fake}))

	require.False(a.Save(suite.ctx, []entry{{Text: "mine"}}))

	require.Equal(1, suite.fake.Requests(http.MethodPut))
	require.Len(suite.notifier.messages, 1)
	content, _ := suite.remote()
	require.JSONEq(`[{"text":"from another writer"}]`, content)
	v, _ := suite.cached()
	require.JSONEq(`[{"text":"mine"}]`, v)
}

func (suite *AdapterTestSuite) TestSaveUnreachableRemote() {
	require := suite.Require()
	a := suite.configured()
	suite.srv.Close()

	require.False(a.Save(suite.ctx, []entry{{Text: "offline"}}))
	require.Len(suite.notifier.messages, 1)
	v, _ := suite.cached()
	require.JSONEq(`[{"text":"offline"}]`, v)
}

// ------------------------------------------------------------------
//                     		sync
// ------------------------------------------------------------------

func (suite *AdapterTestSuite) TestSyncRequiresConfiguration() {
	require := suite.Require()
	a := suite.unconfigured()

	_, err := a.SyncFromGitHub(suite.ctx)
	require.ErrorIs(err, ErrNotConfigured)

	ok, err := a.SyncToGitHub(suite.ctx)
	require.ErrorIs(err, ErrNotConfigured)
	require.False(ok)
}

func (suite *AdapterTestSuite) TestSyncToGitHubPushesCache() {
	require := suite.Require()
	require.NoError(suite.cache.Set(suite.ctx, LogsKey, `[{"text":"offline edit"}]`))

	ok, err := suite.configured().SyncToGitHub(suite.ctx)
	require.NoError(err)
	require.True(ok)

	content, _ := suite.remote()
	require.JSONEq(`[{"text":"offline edit"}]`, content)
}

func (suite *AdapterTestSuite) TestSyncFromGitHub() {
	require := suite.Require()
	suite.fake.Seed("octo", "notes", "main", DefaultPath, []byte(`[{"text":"remote"}]`))

	logs, err := suite.configured().SyncFromGitHub(suite.ctx)
	require.NoError(err)
	require.Equal([]entry{{Text: "remote"}}, logs)
}

// ------------------------------------------------------------------
//                     run test suite
// ------------------------------------------------------------------

func TestAdapterTestSuite(t *testing.T) {
	suite.Run(t, new(AdapterTestSuite))
}

func TestLoadGitHubConfigStoreFailure(t *testing.T) {
	cfg := LoadGitHubConfig(context.Background(), failingStore{err: errors.New("disk gone")}, zap.NewNop())
	require.False(t, cfg.Configured())
}

func TestDecode(t *testing.T) {
	logs, err := decode[entry]([]byte(`null`))
	require.NoError(t, err)
	require.Equal(t, []entry{}, logs)

	_, err = decode[entry]([]byte(`{}`))
	require.ErrorIs(t, err, ErrDecode)
}
