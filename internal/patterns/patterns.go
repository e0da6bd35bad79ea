// Package patterns holds the static detector vocabulary: profanity tiers,
// leetspeak evasion builders, and the suspicious username/URL/filename sets
// shared by the content and security detectors.
package patterns

import (
	"errors"
	"regexp"
	"strings"
)

// Profanity word lists keyed by language tag. Multi-word entries are matched
// as flexible-whitespace phrases.
var ProfanityWords = map[string][]string{
	"en": {
		"damn", "crap", "hell",
		"shit", "bitch", "asshole", "bastard", "dick", "piss",
		"fuck", "cunt", "motherfucker", "whore", "slut",
		"kill yourself", "kys", "go die",
	},
	"fr": {
		"merde", "putain", "connard", "salope", "enculé",
		"fils de pute", "nique ta mère",
	},
	"es": {
		"mierda", "cabrón", "puta", "gilipollas", "joder",
		"hijo de puta", "vete a la mierda",
	},
}

const (
	SeverityMild     = 1
	SeverityModerate = 2
	SeverityStrong   = 3
	SeverityExtreme  = 4
)

var severityTiers = map[int][]string{
	SeverityMild: {
		"damn", "crap", "hell", "merde", "mierda", "joder", "piss",
	},
	SeverityModerate: {
		"shit", "bitch", "dick", "bastard", "putain", "cabrón", "gilipollas",
	},
	SeverityStrong: {
		"fuck", "asshole", "cunt", "whore", "slut", "motherfucker",
		"connard", "salope", "enculé", "puta",
	},
	SeverityExtreme: {
		"kill yourself", "kys", "go die",
		"fils de pute", "nique ta mère", "hijo de puta", "vete a la mierda",
	},
}

var wordSeverity = func() map[string]int {
	out := make(map[string]int)
	for tier, words := range severityTiers {
		for _, word := range words {
			out[word] = tier
		}
	}
	return out
}()

// WordSeverity returns the tier for a word regardless of which list matched
// it. Words outside the table default to moderate.
func WordSeverity(word string) int {
	if tier, ok := wordSeverity[strings.ToLower(word)]; ok {
		return tier
	}
	return SeverityModerate
}

// leetClasses maps characters to the substitution class an evader would use.
// Only characters present in the original word get a class, so short words do
// not produce over-broad patterns.
var leetClasses = map[rune]string{
	'a': "[a@4]",
	'e': "[e3]",
	'i': "[i1!]",
	'l': "[l1]",
	'o': "[o0]",
	's': "[s5$z]",
}

// ExactPattern compiles a case-insensitive word-boundary matcher. Phrases
// match across any run of whitespace.
func ExactPattern(word string) (*regexp.Regexp, error) {
	parts := strings.Fields(strings.ToLower(word))
	if len(parts) == 0 {
		return nil, errors.New("empty word")
	}
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = regexp.QuoteMeta(part)
	}
	return regexp.Compile(`(?i)\b` + strings.Join(quoted, `\s+`) + `\b`)
}

// EvasionPattern compiles a leetspeak-tolerant matcher for a single word.
// It returns nil when the word contains no substitutable characters or is a
// multi-word phrase (phrases are matched exactly, never leet-substituted).
func EvasionPattern(word string) (*regexp.Regexp, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" || strings.ContainsAny(word, " \t") {
		return nil, nil
	}

	substitutable := false
	var sb strings.Builder
	// \b does not bound substitutions like "$" or "!", so anchor on
	// anything that is not a letter or digit instead.
	sb.WriteString(`(?i)(?:^|[^\p{L}\p{N}])`)
	for _, r := range word {
		if class, ok := leetClasses[r]; ok {
			sb.WriteString(class)
			substitutable = true
			continue
		}
		sb.WriteString(regexp.QuoteMeta(string(r)))
	}
	sb.WriteString(`(?:[^\p{L}\p{N}]|$)`)

	if !substitutable {
		return nil, nil
	}
	return regexp.Compile(sb.String())
}

// Username patterns that mark an account as bot-like or impersonating.
var SuspiciousUsernames = []*regexp.Regexp{
	regexp.MustCompile(`(?i)discord[\s._-]*(staff|admin|mod|support|team)`),
	regexp.MustCompile(`(?i)(free|gift)[\s._-]*(nitro|robux|vbucks)`),
	regexp.MustCompile(`(?i)hypesquad.*events`),
	regexp.MustCompile(`(?i)official.*(bot|giveaway)`),
	regexp.MustCompile(`(?i)^(admin|moderator|system|everyone|here)$`),
	regexp.MustCompile(`^[a-zA-Z]+\d{5,}$`),
}

// Chat-platform invite links.
var InviteLink = regexp.MustCompile(`(?i)(discord\.(gg|io|me|li)|discord(app)?\.com/invite)/[a-zA-Z0-9-]+`)

// Known scam/phishing host fragments and outright bad domains.
var SuspiciousDomains = []string{
	"discord-nitro", "discordgift", "discorcl", "dlscord", "discord-app",
	"steamcommunlty", "steancommunity", "free-nitro", "nitro-gift",
	"grabify", "iplogger",
}

var SuspiciousURLKeywords = []string{
	"free-nitro", "nitro-generator", "gift-card", "airdrop-claim", "wallet-verify",
}

var BareIPURL = regexp.MustCompile(`https?://(?:\d{1,3}\.){3}\d{1,3}(?::\d+)?`)

// Scam phrasing for the security detector's message pass.
var (
	NitroScamPhrases = []string{
		"free nitro", "nitro for free", "free discord nitro", "claim your nitro",
		"nitro giveaway", "steam gift",
	}
	DMSolicitations = []string{
		"dm me", "message me directly", "add me and dm", "write me in dm",
	}
)

// Attachment scoring sets.
var (
	ExecutableExtensions = []string{
		".exe", ".scr", ".bat", ".cmd", ".com", ".pif", ".msi", ".vbs", ".jar", ".ps1",
	}
	DecoyExtensions = []string{
		".jpg", ".jpeg", ".png", ".gif", ".pdf", ".txt", ".doc", ".mp4", ".mp3",
	}
	SuspiciousFilenameKeywords = []string{
		"crack", "keygen", "hack", "cheat", "free_nitro", "patcher", "generator",
	}
	// Built-in fallback when the guild configures no allowed file types.
	DefaultAllowedFileTypes = []string{
		"jpg", "jpeg", "png", "gif", "webp", "mp4", "webm", "mp3", "ogg",
		"pdf", "txt", "zip",
	}
)
