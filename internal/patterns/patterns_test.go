package patterns

import "testing"

func TestExactPatternWordBoundary(t *testing.T) {
	re, err := ExactPattern("shit")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !re.MatchString("what the SHIT is this") {
		t.Fatalf("expected case-insensitive match")
	}
	if re.MatchString("mitshitake") {
		t.Fatalf("did not expect inner-word match")
	}
}

func TestExactPatternPhrase(t *testing.T) {
	re, err := ExactPattern("kill yourself")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !re.MatchString("just kill   yourself") {
		t.Fatalf("expected flexible-whitespace phrase match")
	}
}

func TestEvasionPattern(t *testing.T) {
	re, err := EvasionPattern("shit")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if re == nil {
		t.Fatalf("expected pattern, word has substitutable chars")
	}
	for _, variant := range []string{"sh1t", "5hit", "$h!t", "what a $h!t take"} {
		if !re.MatchString(variant) {
			t.Fatalf("expected evasion match for %q", variant)
		}
	}
	for _, clean := range []string{"mishits", "shitake"} {
		if re.MatchString(clean) {
			t.Fatalf("unexpected match inside %q", clean)
		}
	}
}

func TestEvasionPatternSkipsPhrasesAndPlainWords(t *testing.T) {
	if re, _ := EvasionPattern("kill yourself"); re != nil {
		t.Fatalf("phrases must not be leet-substituted")
	}
	if re, _ := EvasionPattern("fck"); re != nil {
		t.Fatalf("words without substitutable chars get no evasion pattern")
	}
}

func TestWordSeverityTiers(t *testing.T) {
	if got := WordSeverity("damn"); got != SeverityMild {
		t.Fatalf("expected mild, got %d", got)
	}
	if got := WordSeverity("KYS"); got != SeverityExtreme {
		t.Fatalf("expected extreme, got %d", got)
	}
	if got := WordSeverity("unlisted"); got != SeverityModerate {
		t.Fatalf("expected moderate default, got %d", got)
	}
}

func TestInviteLink(t *testing.T) {
	if !InviteLink.MatchString("join discord.gg/abc123") {
		t.Fatalf("expected invite match")
	}
	if !InviteLink.MatchString("https://discordapp.com/invite/xyz") {
		t.Fatalf("expected invite match")
	}
	if InviteLink.MatchString("https://discord.com/channels/1/2") {
		t.Fatalf("did not expect channel link match")
	}
}
