package trigger

import (
	"regexp"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/webqa/autoheal/pkg/suite"
)

// matches evaluates a push-type Trigger's MatchConditions against a VCS
// event (spec.md §4.9). All configured conditions must pass; an empty
// condition is always satisfied.
func matches(t *suite.Trigger, ev suite.VCSEvent) bool {
	mc := t.MatchConditions
	if len(mc.BranchGlobs) > 0 && !anyMatch(mc.BranchGlobs, ev.Branch) {
		return false
	}
	if len(mc.FileGlobs) > 0 && !anyFileMatches(mc.FileGlobs, ev.ChangedFiles) {
		return false
	}
	if len(mc.SkipGlobs) > 0 && allFilesSkipped(mc.SkipGlobs, ev.ChangedFiles) {
		return false
	}
	if mc.CommitMessageRegex != "" {
		re, err := regexp.Compile(mc.CommitMessageRegex)
		if err != nil || !re.MatchString(ev.CommitMessage) {
			return false
		}
	}
	return true
}

func anyMatch(globs []string, s string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, s); ok {
			return true
		}
	}
	return false
}

func anyFileMatches(globs []string, files []string) bool {
	for _, f := range files {
		if anyMatch(globs, f) {
			return true
		}
	}
	return false
}

// allFilesSkipped reports whether every changed file matches a skip glob —
// meaning the event has no changes the Trigger cares about.
func allFilesSkipped(skipGlobs []string, files []string) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !anyMatch(skipGlobs, f) {
			return false
		}
	}
	return true
}
