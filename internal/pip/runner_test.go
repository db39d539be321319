package pip

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRun builds a CommandRunner returning fixed results and recording calls.
func fakeRun(calls *[][]string, code int, stdout, stderr string) CommandRunner {
	return func(_ context.Context, name string, args ...string) (int, string, string, error) {
		if calls != nil {
			*calls = append(*calls, append([]string{name}, args...))
		}

		return code, stdout, stderr, nil
	}
}

// TestInstalledVersionParsesPipShow extracts the Version line and collapses
// failures to nil.
func TestInstalledVersionParsesPipShow(t *testing.T) {
	t.Parallel()

	r := NewRunner("python3", false)
	r.Run = fakeRun(nil, 0, "Name: foo\nVersion: 1.2.3\nLocation: /x\n", "")

	v := r.InstalledVersion(context.Background(), "foo")
	require.NotNil(t, v)
	require.Equal(t, "1.2.3", *v)

	// Missing package: pip show exits non-zero.
	r.Run = fakeRun(nil, 1, "", "WARNING: Package(s) not found: foo")
	require.Nil(t, r.InstalledVersion(context.Background(), "foo"))

	// Malformed output.
	r.Run = fakeRun(nil, 0, "garbage", "")
	require.Nil(t, r.InstalledVersion(context.Background(), "foo"))
}

// TestIsOutdatedMatchesCaseInsensitively mirrors pip's name normalization.
func TestIsOutdatedMatchesCaseInsensitively(t *testing.T) {
	t.Parallel()

	r := NewRunner("python3", false)
	r.Run = fakeRun(nil, 0, `[{"name":"SomePkg","version":"1.0","latest_version":"2.0"}]`, "")

	require.True(t, r.IsOutdated(context.Background(), "somepkg"))
	require.False(t, r.IsOutdated(context.Background(), "otherpkg"))
}

// TestIsOutdatedHandlesNonJSON treats unparseable listings as up to date.
func TestIsOutdatedHandlesNonJSON(t *testing.T) {
	t.Parallel()

	r := NewRunner("python3", false)
	r.Run = fakeRun(nil, 0, "not json", "")

	require.False(t, r.IsOutdated(context.Background(), "pkg"))
}

// TestIsOutdatedIgnoresStaleListing requires the latest version to sort newer
// when both versions are parseable.
func TestIsOutdatedIgnoresStaleListing(t *testing.T) {
	t.Parallel()

	r := NewRunner("python3", false)
	r.Run = fakeRun(nil, 0, `[{"name":"pkg","version":"2.0.0","latest_version":"2.0.0"}]`, "")

	require.False(t, r.IsOutdated(context.Background(), "pkg"))

	// Unparseable versions fall back to trusting the listing.
	r.Run = fakeRun(nil, 0, `[{"name":"pkg","version":"weird","latest_version":"also-weird"}]`, "")
	require.True(t, r.IsOutdated(context.Background(), "pkg"))
}

// TestBatchInstallDeduplicatesPackages keeps the first occurrence only.
func TestBatchInstallDeduplicatesPackages(t *testing.T) {
	t.Parallel()

	var calls [][]string

	r := NewRunner("python3", false)
	r.Run = fakeRun(&calls, 0, "", "")

	code, err := r.BatchInstall(context.Background(), []string{"foo", "bar", "foo"}, false)
	require.NoError(t, err)
	require.Equal(t, 0, code)

	var installed []string

	for _, call := range calls {
		if len(call) > 3 && call[3] == "install" {
			installed = append(installed, call[len(call)-1])
		}
	}

	require.Equal(t, []string{"foo", "bar"}, installed)
}

// TestRefreshPackagePassesUserFlag checks --user propagation and version capture.
func TestRefreshPackagePassesUserFlag(t *testing.T) {
	t.Parallel()

	var calls [][]string

	r := NewRunner("python3", false)
	r.Run = func(_ context.Context, name string, args ...string) (int, string, string, error) {
		call := append([]string{name}, args...)
		calls = append(calls, call)

		if len(args) > 2 && args[2] == "show" {
			return 0, "Version: 1.0\n", "", nil
		}

		return 0, "", "", nil
	}

	result := r.refreshPackage(context.Background(), "foo", true)
	require.Equal(t, "foo", result.Name)
	require.NotNil(t, result.Prev)
	require.Equal(t, "1.0", *result.Prev)
	require.NotNil(t, result.Curr)
	require.Equal(t, "1.0", *result.Curr)
	require.Equal(t, 0, result.Code)

	foundUser := false

	for _, call := range calls {
		if strings.Contains(strings.Join(call, " "), "install") &&
			strings.Contains(strings.Join(call, " "), "--user") {
			foundUser = true
		}
	}

	require.True(t, foundUser)
}

// TestSummarizeReportsFailures returns 1 when any result has a non-zero code.
func TestSummarizeReportsFailures(t *testing.T) {
	t.Parallel()

	r := NewRunner("python3", false)
	v1, v2 := "1.0", "2.0"

	results := []InstallResult{
		{Name: "foo", Prev: &v1, Curr: &v2, Code: 0},
		{Name: "bar", Prev: &v1, Curr: &v1, Code: 2},
	}

	require.Equal(t, 1, r.summarize(context.Background(), results))
	require.Equal(t, 0, r.summarize(context.Background(), results[:1]))
}

// TestEnsureInstallsWhenMissing installs without --upgrade for absent packages.
func TestEnsureInstallsWhenMissing(t *testing.T) {
	t.Parallel()

	var calls [][]string

	r := NewRunner("python3", false)
	r.Run = func(_ context.Context, name string, args ...string) (int, string, string, error) {
		call := append([]string{name}, args...)
		calls = append(calls, call)

		if len(args) > 2 && args[2] == "show" {
			return 1, "", "not found", nil
		}

		return 0, "", "", nil
	}

	result := r.Ensure(context.Background(), "foo")
	require.Nil(t, result.Prev)
	require.Equal(t, 0, result.Code)

	for _, call := range calls {
		joined := strings.Join(call, " ")
		if strings.Contains(joined, "install") {
			require.NotContains(t, joined, "--upgrade")
		}
	}
}
