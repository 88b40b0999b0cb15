// Package verify implements the domain-ownership verification engine. A
// domain is proven via one of three challenge types (DNS TXT record,
// well-known HTML file, homepage meta tag), checked in priority order. The
// challenge artifacts are derived deterministically from (domain, token,
// method) and are never persisted; they must match the documented formats
// bit-exactly for interoperability with third-party tooling.
package verify

import (
	"fmt"

	"domainstack/pkg/domain"
)

const (
	// txtPrefix is the required prefix of the verification TXT record value.
	txtPrefix = "domainstack-verify="
	// legacyTXTLabel is the fallback owner name checked in addition to the apex.
	legacyTXTLabel = "_domainstack-verify."
	// fileBodyPrefix is the required prefix of the verification file body.
	fileBodyPrefix = "domainstack-verify: "
	// metaTagName is the name attribute of the verification meta tag.
	metaTagName = "domainstack-verify"
)

// TXTValue returns the exact TXT record value that proves ownership.
func TXTValue(token string) string {
	return txtPrefix + token
}

// TXTNames returns the owner names to query, apex first and the legacy
// fallback second.
func TXTNames(domainName string) []string {
	return []string{domainName, legacyTXTLabel + domainName}
}

// FilePath returns the current well-known path of the verification file.
func FilePath(token string) string {
	return fmt.Sprintf("/.well-known/domainstack-verify/%s.html", token)
}

// LegacyFilePath is the fixed fallback path older integrations use.
const LegacyFilePath = "/.well-known/domainstack-verify.html"

// FileBody returns the exact body (after trimming) the verification file
// must contain.
func FileBody(token string) string {
	return fileBodyPrefix + token
}

// MetaTag returns the meta tag users are instructed to place in their
// homepage head.
func MetaTag(token string) string {
	return fmt.Sprintf(`<meta name=%q content=%q>`, metaTagName, token)
}

// Challenge bundles the published artifacts for one (domain, token, method)
// triple, for display in setup instructions.
type Challenge struct {
	Method domain.VerificationMethod `json:"method"`

	// TXT challenge.
	RecordNames []string `json:"recordNames,omitempty"`
	RecordValue string   `json:"recordValue,omitempty"`

	// HTML file challenge.
	Path     string `json:"path,omitempty"`
	FileBody string `json:"fileBody,omitempty"`

	// Meta tag challenge.
	Tag string `json:"tag,omitempty"`
}

// ChallengeFor derives the challenge artifacts for a method.
func ChallengeFor(domainName, token string, method domain.VerificationMethod) Challenge {
	switch method {
	case domain.MethodDNSTXT:
		return Challenge{
			Method:      method,
			RecordNames: TXTNames(domainName),
			RecordValue: TXTValue(token),
		}
	case domain.MethodHTMLFile:
		return Challenge{
			Method:   method,
			Path:     FilePath(token),
			FileBody: FileBody(token),
		}
	case domain.MethodMetaTag:
		return Challenge{
			Method: method,
			Tag:    MetaTag(token),
		}
	}

	return Challenge{}
}
