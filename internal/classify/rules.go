package classify

// Category labels used across the rule tables.
const (
	CategoryWebStandards       = "Web standards and specifications"
	CategoryBrowserEngines     = "Browser engines"
	CategoryAccessibility      = "Accessibility"
	CategoryI18n               = "Internationalization"
	CategoryValidation         = "HTML/CSS checking/validation"
	CategoryStandardsPositions = "Standards positions"
	CategorySpecTooling        = "Spec tooling"
	CategoryTesting            = "Testing infrastructure"
	CategoryLanguageStandards  = "Programming language standards"
	CategoryMLFrameworks       = "ML frameworks"
	CategoryDevOps             = "DevOps"
	CategoryDocs               = "Documentation and websites"
	CategoryOther              = "Other"
)

// Rules is the full static rule set consumed by a Classifier.
type Rules struct {
	// Explicit maps a repository (or a bare base name) to its category.
	// A fork carrying the same base name inherits the mapping.
	Explicit map[string]string

	// StandardsOrgs and OtherOrgs assign categories per owning
	// organization; standards orgs may carry org-scoped overrides.
	StandardsOrgs []OrgRule
	OtherOrgs     []OrgRule

	// General is consulted after the org rules, in order.
	General []PatternRule

	// Topics drives the network-backed fallback, in order.
	Topics []TopicRule

	// Blocklist and Mirrors feed ShouldSkip.
	Blocklist map[string]bool
	Mirrors   []MirrorRule

	// Priority orders categories for presentation; anything absent sorts
	// alphabetically after these, with Other always last.
	Priority []string
}

// DefaultRules returns the standing rule tables.
func DefaultRules() Rules {
	return Rules{
		Explicit: map[string]string{
			"validator/validator":         CategoryValidation,
			"w3c/css-validator":           CategoryValidation,
			"validator/htmlparser":        CategoryValidation,
			"ladybirdbrowser/ladybird":    CategoryBrowserEngines,
			"mozilla-firefox/firefox":     CategoryBrowserEngines,
			"servo/servo":                 CategoryBrowserEngines,
			"webkit/webkit":               CategoryBrowserEngines,
			"chromium/chromium":           CategoryBrowserEngines,
			"whatwg/html":                 CategoryWebStandards,
			"w3c/csswg-drafts":            CategoryWebStandards,
			"web-platform-tests/wpt":      CategoryTesting,
			"speced/respec":               CategorySpecTooling,
			"speced/bikeshed":             CategorySpecTooling,
			"mozilla/standards-positions": CategoryStandardsPositions,
			"webkit/standards-positions":  CategoryStandardsPositions,
		},
		StandardsOrgs: []OrgRule{
			{Org: "w3c", Category: CategoryWebStandards, Overrides: []PatternRule{
				{Pattern{Prefix: []string{"wai-", "wcag"}}, CategoryAccessibility},
				{Pattern{Prefix: []string{"i18n-"}}, CategoryI18n},
			}},
			{Org: "whatwg", Category: CategoryWebStandards},
			{Org: "wicg", Category: CategoryWebStandards},
			{Org: "w3ctag", Category: CategoryWebStandards},
			{Org: "webassembly", Category: CategoryWebStandards},
			{Org: "immersive-web", Category: CategoryWebStandards},
			{Org: "gpuweb", Category: CategoryWebStandards},
			{Org: "tc39", Category: CategoryLanguageStandards},
		},
		OtherOrgs: []OrgRule{
			{Org: "ladybirdbrowser", Category: CategoryBrowserEngines},
			{Org: "serenityos", Category: CategoryBrowserEngines},
			{Org: "web-platform-tests", Category: CategoryTesting},
		},
		General: []PatternRule{
			{Pattern{Contains: []string{"validator"}}, CategoryValidation},
			{Pattern{Contains: []string{"respec", "bikeshed"}}, CategorySpecTooling},
			{Pattern{Contains: []string{"a11y", "accessibility"}}, CategoryAccessibility},
			{Pattern{Prefix: []string{"i18n-"}, Exact: []string{"i18n"}}, CategoryI18n},
			{Pattern{Suffix: []string{"-spec", "-specification"}}, CategoryWebStandards},
			{Pattern{Suffix: []string{".github.io"}}, CategoryDocs},
		},
		Topics: []TopicRule{
			{[]string{"machine-learning", "deep-learning", "tensorflow", "pytorch", "neural-network"}, CategoryMLFrameworks},
			{[]string{"kubernetes", "docker", "devops", "terraform", "ci-cd"}, CategoryDevOps},
			{[]string{"accessibility", "a11y"}, CategoryAccessibility},
			{[]string{"internationalization", "i18n"}, CategoryI18n},
			{[]string{"browser", "browser-engine"}, CategoryBrowserEngines},
			{[]string{"web-standards", "w3c", "whatwg", "specification"}, CategoryWebStandards},
		},
		Blocklist: map[string]bool{
			"zechy0055/qosta-broswer":    true,
			"mozilla/gecko-dev":          true,
			"serenityos/serenity":        true,
			"bugbounted/mozilla-firefox": true,
		},
		Mirrors: []MirrorRule{
			{
				Flagship:     "ladybirdbrowser/ladybird",
				NamePatterns: []string{"lady"},
				Taglines:     []string{"truly independent web browser"},
				Allowlist:    []string{"ladybirdbrowser/ladybird"},
			},
			{
				Flagship:     "serenityos/serenity",
				NamePatterns: []string{"serenity"},
				Taglines:     []string{"the serenityos operating system"},
				Allowlist:    nil,
			},
			{
				Flagship:     "mozilla-firefox/firefox",
				NamePatterns: []string{"firefox", "gecko"},
				Taglines:     []string{"the official repository of mozilla's firefox web browser"},
				Allowlist:    []string{"mozilla-firefox/firefox"},
			},
		},
		Priority: []string{
			CategoryWebStandards,
			CategoryBrowserEngines,
			CategoryValidation,
			CategoryAccessibility,
			CategoryI18n,
			CategoryStandardsPositions,
			CategoryTesting,
			CategorySpecTooling,
		},
	}
}
