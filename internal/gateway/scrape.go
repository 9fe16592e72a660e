package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

// The calendar page interleaves attributes in either order depending on
// the rendering path.
var (
	dayCellPattern    = regexp.MustCompile(`data-date="(\d{4}-\d{2}-\d{2})"[^>]*data-level="(\d+)"`)
	dayCellPatternRev = regexp.MustCompile(`data-level="(\d+)"[^>]*data-date="(\d{4}-\d{2}-\d{2})"`)
)

// ProbeActivity scrapes the public contribution-calendar view for a
// subject and reports whether any day in the window shows activity. It
// consumes no API quota, which is the whole point: it lets the expensive
// phase skip inactive subjects. Errors (privacy-restricted profiles,
// timeouts) tell the caller to fall back to the quota-consuming check.
func (g *GitHubGateway) ProbeActivity(ctx context.Context, login string, from, to time.Time) (bool, error) {
	if err := g.probeLimiter.Wait(ctx); err != nil {
		return false, err
	}

	url := fmt.Sprintf(g.calendarURL, login, from.Format(dateLayout), to.Format(dateLayout))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := g.probeClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to probe activity of %s: %w", login, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, fmt.Errorf("%w: user %s", ErrNotFound, login)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("activity probe for %s returned status %d", login, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read activity calendar of %s: %w", login, err)
	}

	page := string(body)
	fromDay := from.Format(dateLayout)
	toDay := to.Format(dateLayout)
	inRange := func(day string) bool { return day >= fromDay && day <= toDay }

	for _, m := range dayCellPattern.FindAllStringSubmatch(page, -1) {
		if inRange(m[1]) && m[2] != "0" {
			return true, nil
		}
	}
	for _, m := range dayCellPatternRev.FindAllStringSubmatch(page, -1) {
		if inRange(m[2]) && m[1] != "0" {
			return true, nil
		}
	}
	return false, nil
}
