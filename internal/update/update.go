// Package update checks GitHub releases for a newer tusk build.
package update

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/mod/semver"
)

const (
	// DefaultReleasesURL is the latest-release endpoint of the tusk repository.
	DefaultReleasesURL = "https://api.github.com/repos/skullzarmy/Tusk/releases/latest"
	CheckTimeout       = 5 * time.Second
)

// Release is the subset of the GitHub release payload the check reads.
type Release struct {
	TagName    string `json:"tag_name"`
	HTMLURL    string `json:"html_url"`
	Prerelease bool   `json:"prerelease"`
}

type CheckResult struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateURL       string
	UpdateAvailable bool
}

// Checker fetches the latest release, retrying transient failures.
type Checker struct {
	URL      string
	HTTP     *http.Client
	Attempts uint
	Delay    time.Duration
}

// NewChecker returns a Checker for the public release feed.
func NewChecker() *Checker {
	return &Checker{
		URL:      DefaultReleasesURL,
		HTTP:     http.DefaultClient,
		Attempts: 3,
		Delay:    200 * time.Millisecond,
	}
}

// Check compares currentVersion against the latest release. Development
// builds are never compared and yield (nil, nil).
func (c *Checker) Check(ctx context.Context, currentVersion string) (*CheckResult, error) {
	if currentVersion == "dev" || currentVersion == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	release, err := retry.DoWithData(func() (Release, error) {
		return c.fetch(ctx)
	},
		retry.Context(ctx),
		retry.Attempts(c.Attempts),
		retry.Delay(c.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	current := normalizeVersion(currentVersion)
	latest := normalizeVersion(release.TagName)

	result := &CheckResult{
		CurrentVersion: currentVersion,
		LatestVersion:  strings.TrimPrefix(release.TagName, "v"),
		UpdateURL:      release.HTMLURL,
	}
	if !release.Prerelease && semver.IsValid(current) && semver.IsValid(latest) {
		result.UpdateAvailable = semver.Compare(latest, current) > 0
	}
	return result, nil
}

func (c *Checker) fetch(ctx context.Context) (Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Release{}, retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Release{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Release{}, fmt.Errorf("release check failed: HTTP %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Release{}, retry.Unrecoverable(fmt.Errorf("release check failed: HTTP %d", resp.StatusCode))
	}

	var release Release
	if err := jsoniter.NewDecoder(resp.Body).Decode(&release); err != nil {
		return Release{}, retry.Unrecoverable(fmt.Errorf("invalid release payload: %w", err))
	}
	return release, nil
}

// CheckForUpdate runs the default checker and swallows failures so the
// check never blocks the CLI.
func CheckForUpdate(ctx context.Context, currentVersion string) *CheckResult {
	result, err := NewChecker().Check(ctx, currentVersion)
	if err != nil {
		return nil
	}
	return result
}

func normalizeVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
