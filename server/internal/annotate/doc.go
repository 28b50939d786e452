// Package annotate turns plain status and feed text into HTML by running it
// through an ordered chain of regular-expression substitutions.
//
// The tweet chain is fixed: URLs first, then @mentions, then #hashtags. Each
// rule sees the output of the previous one, so a rule may match text that an
// earlier rule inserted. Input is never escaped; upstream text is trusted.
//
// AnchorGitHubLinks rewrites root-relative attribute values ("/owner/repo")
// in GitHub Atom summaries into absolute https://github.com links.
package annotate
