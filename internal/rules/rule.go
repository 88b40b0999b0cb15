// Package rules implements the declarative boolean rule trees used to
// classify registrar/DNS/hosting/email/CA providers from observed domain
// facts. Evaluation is pure, with no I/O and no panics; a malformed rule
// evaluates to false.
package rules

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the node types of a rule tree.
type Kind string

const (
	// Combinators.
	KindAll Kind = "all"
	KindAny Kind = "any"
	KindNot Kind = "not"

	// Header leaves. Header name lookup and value comparison are
	// case-insensitive.
	KindHeaderEquals   Kind = "headerEquals"
	KindHeaderIncludes Kind = "headerIncludes"
	KindHeaderPresent  Kind = "headerPresent"

	// DNS leaves. Suffix matching requires an exact match or a
	// "."-delimited label boundary.
	KindMXSuffix Kind = "mxSuffix"
	KindMXRegex  Kind = "mxRegex"
	KindNSSuffix Kind = "nsSuffix"
	KindNSRegex  Kind = "nsRegex"

	// Certificate issuer leaves.
	KindIssuerEquals   Kind = "issuerEquals"
	KindIssuerIncludes Kind = "issuerIncludes"

	// Registrar-name leaves.
	KindRegistrarEquals   Kind = "registrarEquals"
	KindRegistrarIncludes Kind = "registrarIncludes"
)

// Rule is one node of a rule tree: either a combinator over child rules or a
// leaf matching a single fact. It is a closed sum; which fields are relevant
// depends on Kind.
type Rule struct {
	Kind Kind `json:"kind"`

	// Rules holds the children of all/any nodes.
	Rules []Rule `json:"rules,omitempty"`
	// Rule holds the single child of a not node.
	Rule *Rule `json:"rule,omitempty"`

	// Header is the header name for header leaves.
	Header string `json:"header,omitempty"`
	// Value is the expected value, substring or suffix, per leaf kind.
	Value string `json:"value,omitempty"`
	// Pattern and Flags configure regex leaves. Patterns are compiled at
	// evaluation time; a malformed pattern fails closed.
	Pattern string `json:"pattern,omitempty"`
	Flags   string `json:"flags,omitempty"`
}

// All builds an AND combinator. An empty list is vacuously true.
func All(children ...Rule) Rule { return Rule{Kind: KindAll, Rules: children} }

// Any builds an OR combinator. An empty list is vacuously false.
func Any(children ...Rule) Rule { return Rule{Kind: KindAny, Rules: children} }

// Not negates a rule.
func Not(child Rule) Rule { return Rule{Kind: KindNot, Rule: &child} }

// Parse decodes a serialized rule tree. Unknown node kinds are rejected here
// rather than at evaluation time so catalog loading surfaces bad data early.
func Parse(data []byte) (Rule, error) {
	var r Rule
	if err := json.Unmarshal(data, &r); err != nil {
		return Rule{}, fmt.Errorf("could not decode rule: %w", err)
	}
	if err := validate(r); err != nil {
		return Rule{}, err
	}

	return r, nil
}

func validate(r Rule) error {
	switch r.Kind {
	case KindAll, KindAny:
		for _, c := range r.Rules {
			if err := validate(c); err != nil {
				return err
			}
		}
	case KindNot:
		if r.Rule == nil {
			return fmt.Errorf("not rule has no child")
		}

		return validate(*r.Rule)
	case KindHeaderEquals, KindHeaderIncludes, KindHeaderPresent,
		KindMXSuffix, KindMXRegex, KindNSSuffix, KindNSRegex,
		KindIssuerEquals, KindIssuerIncludes,
		KindRegistrarEquals, KindRegistrarIncludes:
	default:
		return fmt.Errorf("unknown rule kind: %q", r.Kind)
	}

	return nil
}
