package verify

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"domainstack/internal/probe"
	"domainstack/pkg/domain"
	"domainstack/pkg/logger"

	"go.uber.org/zap"
)

// checker runs one challenge type. Check returns true only on positive
// proof; network, DNS and parse failures all count as "no proof found" and
// are never surfaced to the caller.
type checker interface {
	Method() domain.VerificationMethod
	Check(ctx context.Context, domainName, token string) bool
}

// dnsTXTChecker looks for the verification TXT record at the apex and the
// legacy fallback name. The record value is compared whitespace-trimmed; the
// token itself is case-sensitive.
type dnsTXTChecker struct {
	resolver probe.Resolver
}

func (c dnsTXTChecker) Method() domain.VerificationMethod { return domain.MethodDNSTXT }

func (c dnsTXTChecker) Check(ctx context.Context, domainName, token string) bool {
	want := TXTValue(token)
	for _, name := range TXTNames(domainName) {
		records, err := c.resolver.LookupTXT(ctx, name)
		if err != nil {
			logger.Debug(ctx, "txt lookup failed", zap.String("name", name), zap.Error(err))

			continue
		}
		for _, rec := range records {
			if strings.TrimSpace(rec) == want {
				return true
			}
		}
	}

	return false
}

// htmlFileChecker fetches the verification file, trying https then http at
// the tokened path and then both schemes at the legacy fixed path. The body
// must equal the expected content exactly after trimming.
type htmlFileChecker struct {
	fetcher probe.Fetcher
}

func (c htmlFileChecker) Method() domain.VerificationMethod { return domain.MethodHTMLFile }

func (c htmlFileChecker) Check(ctx context.Context, domainName, token string) bool {
	want := FileBody(token)
	paths := []string{FilePath(token), LegacyFilePath}
	for _, path := range paths {
		for _, scheme := range []string{"https", "http"} {
			body, err := c.fetcher.Body(ctx, scheme+"://"+domainName+path)
			if err != nil {
				logger.Debug(ctx, "verification file fetch failed",
					zap.String("scheme", scheme), zap.String("path", path), zap.Error(err))

				continue
			}
			if strings.TrimSpace(string(body)) == want {
				return true
			}
		}
	}

	return false
}

// metaTagChecker fetches the homepage over https only and scans it for the
// verification meta tag. Parsing is tolerant: the tokenizer survives
// malformed and unclosed markup, and attribute order is irrelevant. When
// several competing tags are present, any one carrying the token counts.
type metaTagChecker struct {
	fetcher probe.Fetcher
}

func (c metaTagChecker) Method() domain.VerificationMethod { return domain.MethodMetaTag }

func (c metaTagChecker) Check(ctx context.Context, domainName, token string) bool {
	body, err := c.fetcher.Body(ctx, "https://"+domainName+"/")
	if err != nil {
		logger.Debug(ctx, "homepage fetch failed", zap.Error(err))

		return false
	}

	for _, content := range metaTagContents(body) {
		if content == token {
			return true
		}
	}

	return false
}

// metaTagContents returns the content attributes of every verification meta
// tag found in doc. It uses the streaming tokenizer rather than a full DOM
// parse so truncated documents still yield the tags seen so far.
func metaTagContents(doc []byte) []string {
	var out []string
	z := html.NewTokenizer(strings.NewReader(string(doc)))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "meta" || !hasAttr {
			continue
		}

		var tagName, content string
		for {
			key, val, more := z.TagAttr()
			switch string(key) {
			case "name":
				tagName = string(val)
			case "content":
				content = string(val)
			}
			if !more {
				break
			}
		}
		if tagName == metaTagName {
			out = append(out, content)
		}
	}
}
