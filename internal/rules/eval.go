package rules

import (
	"regexp"
	"strings"
)

// Context carries the observed facts a rule tree is evaluated against.
// Absent facts (nil headers, empty issuer) simply fail the leaves that need
// them.
type Context struct {
	// Headers are the HTTP response headers of the domain's homepage.
	Headers map[string]string
	// MX and NS are record hosts from the DNS lookup, in any casing.
	MX []string
	NS []string
	// Issuer is the leaf certificate issuer string, when available.
	Issuer string
	// Registrar is the registrar name from registration data, when available.
	Registrar string
}

// Eval evaluates a rule tree against the given facts. It never returns an
// error: rule data originates from a managed but not fully trusted catalog,
// so anything malformed (bad regex, unknown kind) evaluates to false. A false
// match would mislabel a provider in a user-visible report, so failing closed
// is the safe direction.
func Eval(r Rule, ctx Context) bool {
	switch r.Kind {
	case KindAll:
		for _, c := range r.Rules {
			if !Eval(c, ctx) {
				return false
			}
		}

		return true

	case KindAny:
		for _, c := range r.Rules {
			if Eval(c, ctx) {
				return true
			}
		}

		return false

	case KindNot:
		if r.Rule == nil {
			return false
		}

		return !Eval(*r.Rule, ctx)

	case KindHeaderEquals:
		v, ok := lookupHeader(ctx.Headers, r.Header)

		return ok && strings.EqualFold(v, r.Value)

	case KindHeaderIncludes:
		v, ok := lookupHeader(ctx.Headers, r.Header)

		return ok && strings.Contains(strings.ToLower(v), strings.ToLower(r.Value))

	case KindHeaderPresent:
		_, ok := lookupHeader(ctx.Headers, r.Header)

		return ok

	case KindMXSuffix:
		return anyHostSuffix(ctx.MX, r.Value)

	case KindMXRegex:
		return anyRegex(ctx.MX, r.Pattern, r.Flags)

	case KindNSSuffix:
		return anyHostSuffix(ctx.NS, r.Value)

	case KindNSRegex:
		return anyRegex(ctx.NS, r.Pattern, r.Flags)

	case KindIssuerEquals:
		return ctx.Issuer != "" && strings.EqualFold(ctx.Issuer, r.Value)

	case KindIssuerIncludes:
		return ctx.Issuer != "" && strings.Contains(strings.ToLower(ctx.Issuer), strings.ToLower(r.Value))

	case KindRegistrarEquals:
		return ctx.Registrar != "" && strings.EqualFold(ctx.Registrar, r.Value)

	case KindRegistrarIncludes:
		return ctx.Registrar != "" &&
			strings.Contains(strings.ToLower(ctx.Registrar), strings.ToLower(r.Value))
	}

	return false
}

// lookupHeader finds a header by case-insensitive name.
func lookupHeader(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}

	return "", false
}

// HostHasSuffix reports whether host equals suffix or ends with "."+suffix,
// case-insensitively. The label boundary check prevents "example.com" from
// matching "evilexample.com".
func HostHasSuffix(host, suffix string) bool {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	suffix = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(suffix), "."))
	if host == "" || suffix == "" {
		return false
	}
	if host == suffix {
		return true
	}

	return strings.HasSuffix(host, "."+suffix)
}

func anyHostSuffix(hosts []string, suffix string) bool {
	for _, h := range hosts {
		if HostHasSuffix(h, suffix) {
			return true
		}
	}

	return false
}

// anyRegex compiles pattern with the given flags and matches it against each
// host. Compilation happens per evaluation; a malformed pattern evaluates to
// false rather than propagating an error.
func anyRegex(hosts []string, pattern, flags string) bool {
	if pattern == "" {
		return false
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	for _, h := range hosts {
		if re.MatchString(h) {
			return true
		}
	}

	return false
}
