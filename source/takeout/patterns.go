package takeout

import "regexp"

// Locale is the language a takeout was exported with. Google localizes
// directory names inside the archive, so the locale picks the path
// patterns used to recognize legacy HTML activity files.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleDE Locale = "de"
)

// patternSet describes the legacy HTML activity layout of one locale.
// Paths are matched relative to the takeout root, with forward slashes.
type patternSet struct {
	// Files holding activity records in the legacy HTML format.
	activity []*regexp.Regexp
	// Directories that never contain legacy HTML activity files.
	// Matched against the relative directory path; matches are not
	// descended into.
	prune []*regexp.Regexp
}

var locales = map[Locale]patternSet{
	LocaleEN: {
		activity: []*regexp.Regexp{
			regexp.MustCompile(`My Activity/.*?My\s*Activity\.html$`),
			regexp.MustCompile(`YouTube( and YouTube Music)?/history/.*?\.html$`),
		},
		prune: []*regexp.Regexp{
			regexp.MustCompile(`^My Activity/Takeout$`),
			regexp.MustCompile(`^(Calendar|Contacts|Drive|Google Photos|Google Play Books|Mail|Maps|News|Profile|Saved|Tasks)$`),
		},
	},
	LocaleDE: {
		activity: []*regexp.Regexp{
			regexp.MustCompile(`Meine Aktivitäten/.*?Meine\s*Aktivitäten\.html$`),
			regexp.MustCompile(`YouTube( und YouTube Music)?/Verlauf/.*?\.html$`),
		},
		prune: []*regexp.Regexp{
			regexp.MustCompile(`^Meine Aktivitäten/Takeout$`),
			regexp.MustCompile(`^(Drive|Google Fotos|Kalender|Kontakte|Mail|Maps|News|Profil)$`),
		},
	},
}

func (p patternSet) matchesActivity(relPath string) bool {
	for _, pattern := range p.activity {
		if pattern.MatchString(relPath) {
			return true
		}
	}
	return false
}

func (p patternSet) prunesDir(relPath string) bool {
	for _, pattern := range p.prune {
		if pattern.MatchString(relPath) {
			return true
		}
	}
	return false
}
