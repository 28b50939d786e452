package annotate

import (
	"fmt"
	"regexp"
	"strings"
)

// Default link targets used by the package-level helpers.
const (
	DefaultProfileBase = "http://twitter.com"
	DefaultGitHubBase  = "https://github.com"
)

// Rule is a single named pattern substitution. The replacement uses
// regexp.Expand syntax (${1} for the first submatch).
type Rule struct {
	Name        string
	pattern     *regexp.Regexp
	replacement string
}

// NewRule compiles pattern into a Rule.
func NewRule(name, pattern, replacement string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("annotate: rule %q: %w", name, err)
	}
	return Rule{Name: name, pattern: re, replacement: replacement}, nil
}

// MustRule is like NewRule but panics on an invalid pattern. Intended for
// rules built from constant patterns.
func MustRule(name, pattern, replacement string) Rule {
	r, err := NewRule(name, pattern, replacement)
	if err != nil {
		panic(err)
	}
	return r
}

// Apply replaces every match of the rule's pattern in text.
func (r Rule) Apply(text string) string {
	if r.pattern == nil {
		return text
	}
	return r.pattern.ReplaceAllString(text, r.replacement)
}

// Chain is an ordered list of rules. Order matters: rule n+1 runs on the
// output of rule n.
type Chain []Rule

// Apply runs every rule in order and returns the final text.
func (c Chain) Apply(text string) string {
	out := text
	for _, r := range c {
		out = r.Apply(out)
	}
	return out
}

// Names returns the rule names in application order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, r := range c {
		names[i] = r.Name
	}
	return names
}

// Patterns shared by every Annotator.
const (
	urlPattern     = `(https?://[^ ]+)`
	mentionPattern = `@(\w+)`
	hashtagPattern = `#(\w+)`
	relLinkPattern = `"/`
)

// Annotator holds the tweet and GitHub chains for one set of link targets.
type Annotator struct {
	urls     Rule
	mentions Rule
	hashtags Rule
	github   Rule
}

// New returns an Annotator linking mentions and hashtags under profileBase
// and GitHub relative links under githubBase. Empty values fall back to the
// package defaults.
func New(profileBase, githubBase string) *Annotator {
	if profileBase == "" {
		profileBase = DefaultProfileBase
	}
	if githubBase == "" {
		githubBase = DefaultGitHubBase
	}
	pb := escapeTemplate(strings.TrimSuffix(profileBase, "/"))
	gb := escapeTemplate(strings.TrimSuffix(githubBase, "/"))

	return &Annotator{
		urls:     MustRule("urls", urlPattern, `<a href="${1}">${1}</a>`),
		mentions: MustRule("mentions", mentionPattern, `<a href="`+pb+`/${1}">@${1}</a>`),
		hashtags: MustRule("hashtags", hashtagPattern, `<a href="`+pb+`/#!/search/%23${1}">#${1}</a>`),
		github:   MustRule("github_links", relLinkPattern, `"`+gb+`/`),
	}
}

// TweetChain returns the rules HTMLify applies, in order.
func (a *Annotator) TweetChain() Chain {
	return Chain{a.urls, a.mentions, a.hashtags}
}

// HTMLify anchors URLs, then mentions, then hashtags.
func (a *Annotator) HTMLify(text string) string {
	return a.TweetChain().Apply(text)
}

// AnchorURLs wraps every http(s) URL (up to the next space) in an anchor.
func (a *Annotator) AnchorURLs(text string) string { return a.urls.Apply(text) }

// AnchorMentions links every @user to its profile page.
func (a *Annotator) AnchorMentions(text string) string { return a.mentions.Apply(text) }

// AnchorHashtags links every #tag to a search for it.
func (a *Annotator) AnchorHashtags(text string) string { return a.hashtags.Apply(text) }

// AnchorGitHubLinks makes root-relative attribute values absolute.
func (a *Annotator) AnchorGitHubLinks(text string) string { return a.github.Apply(text) }

// escapeTemplate protects literal '$' in a base URL from regexp.Expand.
func escapeTemplate(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

var std = New(DefaultProfileBase, DefaultGitHubBase)

// HTMLify annotates text using the default link targets.
func HTMLify(text string) string { return std.HTMLify(text) }

// AnchorURLs anchors URLs using the default Annotator.
func AnchorURLs(text string) string { return std.AnchorURLs(text) }

// AnchorMentions anchors mentions using the default Annotator.
func AnchorMentions(text string) string { return std.AnchorMentions(text) }

// AnchorHashtags anchors hashtags using the default Annotator.
func AnchorHashtags(text string) string { return std.AnchorHashtags(text) }

// AnchorGitHubLinks rewrites relative links using the default Annotator.
func AnchorGitHubLinks(text string) string { return std.AnchorGitHubLinks(text) }
