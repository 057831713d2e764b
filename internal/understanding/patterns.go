package understanding

import "regexp"

// intentEntry pairs an intent name with the patterns that signal it.
// The table is ordered: when two intents score equally, the one listed
// first wins, which keeps classification deterministic.
type intentEntry struct {
	name     string
	patterns []*regexp.Regexp
}

var intentTable = []intentEntry{
	{"factual_lookup", compileAll(
		`\bwhat is\b`, `\bwhat are\b`, `\bwho is\b`, `\bwhere is\b`,
		`\bwhen is\b`, `\bdefine\b`, `\bdefinition\b`,
	)},
	{"procedural", compileAll(
		`\bhow to\b`, `\bhow do\b`, `\bhow can\b`, `\bsteps\b`,
		`\bprocess\b`, `\bprocedure\b`, `\binstructions\b`,
	)},
	{"comparison", compileAll(
		`\bcompare\b`, `\bversus\b`, `\bvs\b`, `\bdifference\b`,
		`\bbetter\b`, `\bworse\b`, `\bcontrast\b`, `\balternative\b`,
	)},
	{"analytical", compileAll(
		`\bwhy\b`, `\bexplain\b`, `\breason\b`, `\bcause\b`,
		`\bimpact\b`, `\beffect\b`, `\banalyz`, `\bevaluat`,
	)},
	{"summarization", compileAll(
		`\bsummariz`, `\boverview\b`, `\bmain points\b`,
		`\bkey\b.*\bpoints\b`, `\bhighlights\b`, `\bin brief\b`,
	)},
	{"list_enumeration", compileAll(
		`\blist\b`, `\ball\b.*\b(documents|files|items)\b`,
		`\bshow me\b.*\b(documents|files)\b`, `\bwhat documents\b`,
	)},
	{"specific_value", compileAll(
		`\bprice\b`, `\bcost\b`, `\bdate\b`, `\bnumber\b`,
		`\bversion\b`, `\bsize\b`, `\bquantity\b`,
	)},
	{"opinion_recommendation", compileAll(
		`\bshould i\b`, `\brecommend\b`, `\bsuggestion\b`,
		`\badvice\b`, `\bbest\b`, `\btop\b`,
	)},
}

// multiDocPatterns signal that a query spans more than one document.
var multiDocPatterns = compileAll(
	`\ball documents\b`, `\bevery document\b`, `\bacross documents\b`,
	`\bin all\b.*\b(files|pdfs)\b`, `\bthroughout\b`,
	`\bbetween\b.*\band\b`, `\bcompare\b`, `\bacross\b`,
)

// followUpPatterns signal explicit continuation of a prior exchange.
var followUpPatterns = compileAll(
	`\balso\b`, `\badditionally\b`, `\bmoreover\b`, `\bfurthermore\b`,
	`\band\b.*\babout\b`, `\bwhat about\b`, `\bhow about\b`,
	`\btell me more\b`, `\bcan you\b.*\bmore\b`,
)

// pronounPatterns are pronouns that refer back to earlier context.
var pronounPatterns = compileAll(
	`\bit\b`, `\bthat\b`, `\bthis\b`, `\bthey\b`, `\bthem\b`,
	`\bthose\b`, `\bthese\b`,
)

// vagueTerm is a vague-word pattern with an optional exclusion applied
// to the text immediately after the match. The exclusion stands in for
// a negative lookahead, which the regexp package does not support.
type vagueTerm struct {
	re            *regexp.Regexp
	notFollowedBy *regexp.Regexp
}

var vagueTerms = []vagueTerm{
	{re: regexp.MustCompile(`\bsomething\b`)},
	{re: regexp.MustCompile(`\bsomewhere\b`)},
	{re: regexp.MustCompile(`\bsomeone\b`)},
	// "thing" followed by "is" reads as a definition request, not vagueness.
	{re: regexp.MustCompile(`\bthing\b`), notFollowedBy: regexp.MustCompile(`^\s+is\b`)},
	{re: regexp.MustCompile(`\bstuff\b`)},
	{re: regexp.MustCompile(`\bitems\b`)},
}

// match returns the first occurrence of the vague term in text, or ""
// when absent or excluded by the follow-on check.
func (v vagueTerm) match(text string) string {
	for _, loc := range v.re.FindAllStringIndex(text, -1) {
		if v.notFollowedBy != nil && v.notFollowedBy.MatchString(text[loc[1]:]) {
			continue
		}
		return text[loc[0]:loc[1]]
	}
	return ""
}

var questionWords = []string{"what", "when", "where", "who", "why", "how", "which"}

var docMentionPattern = regexp.MustCompile(`\b(?:document|file|pdf)\b`)

func compileAll(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(expr))
	}
	return compiled
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
