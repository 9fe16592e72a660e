package classify

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubTopics struct {
	topics map[string][]string
	err    error
	calls  atomic.Int32
}

func (s *stubTopics) RepoTopics(ctx context.Context, repo string) ([]string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.topics[repo], nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestClassifier_Categorize(t *testing.T) {
	testCases := []struct {
		name     string
		repo     string
		topics   map[string][]string
		expected string
	}{
		{name: "explicit mapping", repo: "validator/validator", expected: CategoryValidation},
		{name: "explicit mapping is case insensitive", repo: "Validator/Validator", expected: CategoryValidation},
		{name: "fork inherits upstream base name", repo: "alice/validator", expected: CategoryValidation},
		{name: "fork suffix trimmed before base lookup", repo: "alice/ladybird-fork", expected: CategoryBrowserEngines},
		{name: "standards positions under any org", repo: "alice/standards-positions", expected: CategoryStandardsPositions},
		{name: "standards positions beats org default", repo: "w3c/standards-positions", expected: CategoryStandardsPositions},
		{name: "standards org default", repo: "w3c/webrtc-pc", expected: CategoryWebStandards},
		{name: "org override for accessibility", repo: "w3c/wai-aria", expected: CategoryAccessibility},
		{name: "org override for wcag", repo: "w3c/wcag21", expected: CategoryAccessibility},
		{name: "org override for i18n", repo: "w3c/i18n-drafts", expected: CategoryI18n},
		{name: "whatwg org default", repo: "whatwg/dom", expected: CategoryWebStandards},
		{name: "tc39 is language standards", repo: "tc39/proposal-temporal", expected: CategoryLanguageStandards},
		{name: "general pattern validator", repo: "alice/my-css-validator", expected: CategoryValidation},
		{name: "general pattern accessibility", repo: "alice/a11y-helpers", expected: CategoryAccessibility},
		{name: "topic fallback machine learning", repo: "alice/fancy-model",
			topics:   map[string][]string{"alice/fancy-model": {"python", "machine-learning"}},
			expected: CategoryMLFrameworks},
		{name: "topic fallback devops", repo: "alice/deploy-tool",
			topics:   map[string][]string{"alice/deploy-tool": {"kubernetes"}},
			expected: CategoryDevOps},
		{name: "no match falls through to other", repo: "alice/dotfiles-extra", expected: CategoryOther},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewClassifier(DefaultRules(), &stubTopics{topics: tc.topics}, testLogger())
			assert.Equal(t, tc.expected, c.Categorize(context.Background(), tc.repo))
		})
	}
}

func TestClassifier_ExplicitBeatsOrgRule(t *testing.T) {
	c := NewClassifier(DefaultRules(), nil, testLogger())
	// w3c default would say web standards, but the explicit entry wins.
	assert.Equal(t, CategoryValidation, c.Categorize(context.Background(), "w3c/css-validator"))
}

func TestClassifier_TopicLookupMemoized(t *testing.T) {
	topics := &stubTopics{topics: map[string][]string{"alice/deploy-tool": {"docker"}}}
	c := NewClassifier(DefaultRules(), topics, testLogger())

	for i := 0; i < 5; i++ {
		assert.Equal(t, CategoryDevOps, c.Categorize(context.Background(), "alice/deploy-tool"))
	}
	assert.Equal(t, int32(1), topics.calls.Load())
}

func TestClassifier_TopicLookupFailureIsOther(t *testing.T) {
	topics := &stubTopics{err: errors.New("boom")}
	c := NewClassifier(DefaultRules(), topics, testLogger())
	assert.Equal(t, CategoryOther, c.Categorize(context.Background(), "alice/mystery"))
	// Failures are not cached, the next call retries.
	c.Categorize(context.Background(), "alice/mystery")
	assert.Equal(t, int32(2), topics.calls.Load())
}

func TestClassifier_NilTopicFetcher(t *testing.T) {
	c := NewClassifier(DefaultRules(), nil, testLogger())
	assert.Equal(t, CategoryOther, c.Categorize(context.Background(), "alice/mystery"))
}

func TestClassifier_Interesting(t *testing.T) {
	c := NewClassifier(DefaultRules(), nil, testLogger())

	assert.True(t, c.Interesting("validator/validator"))
	assert.True(t, c.Interesting("whatwg/html"))
	assert.True(t, c.Interesting("alice/ladybird"))
	assert.False(t, c.Interesting("alice/dotfiles"))
}

func TestClassifier_SortCategories(t *testing.T) {
	c := NewClassifier(DefaultRules(), nil, testLogger())

	sorted := c.SortCategories([]string{
		CategoryOther,
		CategoryDevOps,
		CategoryTesting,
		CategoryMLFrameworks,
		CategoryWebStandards,
	})

	// Ranked categories first in table order, unranked ones
	// alphabetically after, Other at the end.
	assert.Equal(t, []string{
		CategoryWebStandards,
		CategoryTesting,
		CategoryDevOps,
		CategoryMLFrameworks,
		CategoryOther,
	}, sorted)
}

func TestPattern_Matches(t *testing.T) {
	testCases := []struct {
		name     string
		pattern  Pattern
		input    string
		expected bool
	}{
		{name: "exact", pattern: Pattern{Exact: []string{"i18n"}}, input: "i18n", expected: true},
		{name: "prefix", pattern: Pattern{Prefix: []string{"wai-"}}, input: "wai-aria", expected: true},
		{name: "suffix", pattern: Pattern{Suffix: []string{"-spec"}}, input: "fetch-spec", expected: true},
		{name: "contains", pattern: Pattern{Contains: []string{"validator"}}, input: "nu-validator-ui", expected: true},
		{name: "case insensitive input", pattern: Pattern{Contains: []string{"validator"}}, input: "Nu-Validator", expected: true},
		{name: "exclude prefix wins", pattern: Pattern{Contains: []string{"html"}, ExcludePrefix: []string{"old-"}}, input: "old-html-tool", expected: false},
		{name: "exclude contains wins", pattern: Pattern{Prefix: []string{"wai-"}, ExcludeContains: []string{"archive"}}, input: "wai-archive-site", expected: false},
		{name: "no match", pattern: Pattern{Prefix: []string{"wai-"}}, input: "dom", expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.pattern.Matches(tc.input))
		})
	}
}
