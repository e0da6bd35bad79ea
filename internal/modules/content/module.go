// Package content scores message text and attachment metadata against the
// profanity pattern library, with leetspeak evasion matching for built-in
// word lists.
package content

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/Denny519/security-bot/internal/config"
	"github.com/Denny519/security-bot/internal/moderation"
	"github.com/Denny519/security-bot/internal/patterns"
	"github.com/Denny519/security-bot/internal/utils"
)

const maxFilenameLength = 200

type matcher struct {
	word     string
	exact    *regexp.Regexp
	evasion  *regexp.Regexp
	severity int
}

// newMatcher builds the exact matcher and, for built-in single words, the
// leetspeak fallback. Custom guild words never get an evasion pattern.
func newMatcher(word string, withEvasion bool) (matcher, error) {
	exact, err := patterns.ExactPattern(word)
	if err != nil {
		return matcher{}, err
	}
	mt := matcher{word: word, exact: exact, severity: patterns.WordSeverity(word)}
	if withEvasion {
		evasion, err := patterns.EvasionPattern(word)
		if err != nil {
			return matcher{}, err
		}
		mt.evasion = evasion
	}
	return mt, nil
}

func (mt matcher) match(text string) (bool, string) {
	if mt.exact.MatchString(text) {
		return true, "exact"
	}
	if mt.evasion != nil && mt.evasion.MatchString(text) {
		return true, "evasion"
	}
	return false, ""
}

type Module struct {
	mu      sync.Mutex
	logger  *zap.Logger
	builtin map[string][]matcher
	custom  map[string][]matcher
	cache   *resultCache
}

func New(logger *zap.Logger) *Module {
	return &Module{
		logger:  logger,
		builtin: make(map[string][]matcher),
		custom:  make(map[string][]matcher),
		cache:   newResultCache(),
	}
}

func (m *Module) WithClock(clock utils.Clock) {
	m.cache.clock = clock
}

func (m *Module) Evaluate(event moderation.Event, cfg config.ContentFilterConfig) moderation.DetectionResult {
	if !cfg.Enabled {
		return moderation.Disabled(moderation.CategoryContent)
	}

	if whitelisted(event, cfg.Whitelist) {
		return moderation.DetectionResult{Category: moderation.CategoryContent, Reasons: []string{"whitelisted user"}}
	}

	result := m.scanText(event, cfg)

	attConf, attSev, attReasons := m.scanAttachments(event.Attachments, cfg)
	result.Confidence = capInt(result.Confidence+attConf, 100)
	if attSev > result.Severity {
		result.Severity = attSev
	}
	result.Reasons = append(result.Reasons, attReasons...)
	result.Triggered = len(result.Reasons) > 0
	return result
}

// scanText consults the per-user result cache so reverted edits and identical
// resubmissions are not rescored.
func (m *Module) scanText(event moderation.Event, cfg config.ContentFilterConfig) moderation.DetectionResult {
	if event.Content == "" {
		return moderation.DetectionResult{Category: moderation.CategoryContent}
	}

	if cached, ok := m.cache.get(event.AuthorID, event.Content); ok {
		return cached
	}

	result := moderation.DetectionResult{Category: moderation.CategoryContent}
	text := norm.NFKC.String(strings.ToLower(event.Content))

	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"en"}
	}

scan:
	for _, lang := range languages {
		for _, mt := range m.builtinMatchers(lang) {
			if hit, via := mt.match(text); hit {
				result.Confidence += wordConfidence(via)
				if mt.severity > result.Severity {
					result.Severity = mt.severity
				}
				result.Reasons = append(result.Reasons, fmt.Sprintf("blocked word (%s, tier %d)", via, mt.severity))
				if cfg.StrictMode {
					break scan
				}
			}
		}
	}

	if !cfg.StrictMode || len(result.Reasons) == 0 {
		for _, mt := range m.customMatchers(cfg.CustomWords) {
			if hit, _ := mt.match(text); hit {
				result.Confidence += wordConfidence("exact")
				if mt.severity > result.Severity {
					result.Severity = mt.severity
				}
				result.Reasons = append(result.Reasons, "blocked custom word")
				if cfg.StrictMode {
					break
				}
			}
		}
	}

	result.Confidence = capInt(result.Confidence, 100)
	result.Triggered = len(result.Reasons) > 0
	m.cache.put(event.AuthorID, event.Content, result)
	return result
}

func (m *Module) scanAttachments(attachments []moderation.Attachment, cfg config.ContentFilterConfig) (int, int, []string) {
	if len(attachments) == 0 {
		return 0, 0, nil
	}

	allowed := cfg.AllowedFileTypes
	if len(allowed) == 0 {
		allowed = patterns.DefaultAllowedFileTypes
	}

	conf, sev := 0, 0
	var reasons []string
	for _, att := range attachments {
		name := strings.ToLower(att.Filename)
		ext := strings.TrimPrefix(filepath.Ext(name), ".")

		if !containsFold(allowed, ext) {
			conf += 30
			sev = maxInt(sev, 2)
			reasons = append(reasons, fmt.Sprintf("disallowed file type .%s", ext))
		}
		if cfg.MaxFileSize > 0 && att.Size > cfg.MaxFileSize {
			conf += 20
			sev = maxInt(sev, 1)
			reasons = append(reasons, "oversized attachment")
		}
		if masquerading(name) {
			conf += 40
			sev = maxInt(sev, 3)
			reasons = append(reasons, "executable masquerading as media")
		}
		for _, keyword := range patterns.SuspiciousFilenameKeywords {
			if strings.Contains(name, keyword) {
				conf += 25
				sev = maxInt(sev, 2)
				reasons = append(reasons, fmt.Sprintf("suspicious filename keyword %q", keyword))
			}
		}
		if len(att.Filename) > maxFilenameLength {
			conf += 20
			sev = maxInt(sev, 2)
			reasons = append(reasons, "excessively long filename")
		}
	}
	return conf, sev, reasons
}

// Sweep evicts stale cache entries; called by the host scheduler.
func (m *Module) Sweep() {
	m.cache.sweep()
}

// builtinMatchers compiles the language's word list once. First exact match
// wins; the evasion pattern is the fallback and only exists for single words
// with substitutable characters.
func (m *Module) builtinMatchers(lang string) []matcher {
	m.mu.Lock()
	defer m.mu.Unlock()

	if compiled, ok := m.builtin[lang]; ok {
		return compiled
	}

	words := patterns.ProfanityWords[lang]
	compiled := make([]matcher, 0, len(words))
	for _, word := range words {
		mt, err := newMatcher(word, true)
		if err != nil {
			m.logger.Warn("word pattern failed to compile", zap.String("lang", lang), zap.Error(err))
			continue
		}
		compiled = append(compiled, mt)
	}
	m.builtin[lang] = compiled
	return compiled
}

// customMatchers compiles per-guild custom words (exact matching only) and
// caches by list signature. A single malformed word is skipped, the rest of
// the list still runs.
func (m *Module) customMatchers(words []string) []matcher {
	if len(words) == 0 {
		return nil
	}

	key := strings.Join(words, "\x00")
	m.mu.Lock()
	defer m.mu.Unlock()

	if compiled, ok := m.custom[key]; ok {
		return compiled
	}

	compiled := make([]matcher, 0, len(words))
	for _, word := range words {
		mt, err := newMatcher(word, false)
		if err != nil {
			m.logger.Warn("custom word skipped", zap.String("word", word), zap.Error(err))
			continue
		}
		compiled = append(compiled, mt)
	}
	m.custom[key] = compiled
	return compiled
}

func whitelisted(event moderation.Event, whitelist []string) bool {
	for _, entry := range whitelist {
		if entry == event.AuthorID || (event.AuthorTag != "" && strings.EqualFold(entry, event.AuthorTag)) {
			return true
		}
	}
	return false
}

func masquerading(name string) bool {
	for _, exe := range patterns.ExecutableExtensions {
		if !strings.HasSuffix(name, exe) {
			continue
		}
		base := strings.TrimSuffix(name, exe)
		for _, decoy := range patterns.DecoyExtensions {
			if strings.HasSuffix(base, decoy) {
				return true
			}
		}
	}
	return false
}

func wordConfidence(via string) int {
	if via == "evasion" {
		return 40
	}
	return 50
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimPrefix(item, "."), value) {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func capInt(value, limit int) int {
	if value > limit {
		return limit
	}
	return value
}
