package utils

import "testing"

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("go to https://example.com/a and www.test.org now")
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %v", urls)
	}
}

func TestNormalizeHost(t *testing.T) {
	host, err := NormalizeHost("HTTPS://Example.COM/path?x=1")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if host != "example.com" {
		t.Fatalf("expected example.com, got %q", host)
	}

	host, err = NormalizeHost("www.discord.gg/abc")
	if err != nil {
		t.Fatalf("normalize bare: %v", err)
	}
	if host != "www.discord.gg" {
		t.Fatalf("expected www.discord.gg, got %q", host)
	}
}

func TestHostWhitelisted(t *testing.T) {
	whitelist := []string{"example.com", "Trusted.ORG"}
	if !HostWhitelisted("example.com", whitelist) {
		t.Fatalf("expected exact match")
	}
	if !HostWhitelisted("cdn.example.com", whitelist) {
		t.Fatalf("expected subdomain match")
	}
	if HostWhitelisted("evilexample.com", whitelist) {
		t.Fatalf("did not expect suffix-only match")
	}
	if !HostWhitelisted("trusted.org", whitelist) {
		t.Fatalf("expected case-insensitive match")
	}
}
