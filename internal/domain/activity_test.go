package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitRepo(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedOwner string
		expectedName  string
	}{
		{name: "owner and name", input: "w3c/csswg-drafts", expectedOwner: "w3c", expectedName: "csswg-drafts"},
		{name: "bare name", input: "csswg-drafts", expectedOwner: "", expectedName: "csswg-drafts"},
		{name: "empty", input: "", expectedOwner: "", expectedName: ""},
		{name: "nested path keeps first split", input: "a/b/c", expectedOwner: "a", expectedName: "b/c"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			owner, name := SplitRepo(tc.input)
			assert.Equal(t, tc.expectedOwner, owner)
			assert.Equal(t, tc.expectedName, name)
		})
	}
}

func TestIsBot(t *testing.T) {
	testCases := []struct {
		name     string
		login    string
		expected bool
	}{
		{name: "app account suffix", login: "dependabot[bot]", expected: true},
		{name: "conventional bot name", login: "github-actions-bot", expected: true},
		{name: "bare bot suffix", login: "somebot", expected: true},
		{name: "uppercase suffix", login: "RenovateBOT", expected: true},
		{name: "regular user", login: "alice", expected: false},
		{name: "bot in the middle", login: "botanist", expected: false},
		{name: "empty login", login: "", expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsBot(tc.login))
		})
	}
}
