package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"domainstack/pkg/domain"
	"domainstack/pkg/serrors"
)

// RDAPClient implements RegistrationClient against the rdap.org bootstrap
// service, which redirects to the authoritative registry RDAP server for any
// TLD. It is safe for concurrent use.
type RDAPClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewRDAPClient returns a client using the provided http.Client, which
// should carry a single-digit-second timeout. A nil client gets a default
// with a 10 second timeout.
func NewRDAPClient(httpClient *http.Client) *RDAPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &RDAPClient{
		httpClient: httpClient,
		baseURL:    "https://rdap.org",
	}
}

// rdapDomain mirrors the subset of the RDAP domain response we consume.
// https://datatracker.ietf.org/doc/html/rfc9083
type rdapDomain struct {
	Status   []string `json:"status"`
	Entities []struct {
		Roles      []string `json:"roles"`
		VcardArray []any    `json:"vcardArray"`
	} `json:"entities"`
	Nameservers []struct {
		LdhName string `json:"ldhName"`
	} `json:"nameservers"`
	Events []struct {
		EventAction string `json:"eventAction"`
		EventDate   string `json:"eventDate"`
	} `json:"events"`
}

// Lookup fetches registration facts for the given apex domain. A 404 from the
// registry is an authoritative "not registered" answer and yields facts with
// Registered=false rather than an error.
func (c *RDAPClient) Lookup(ctx context.Context, domainName string) (*domain.RegistrationFacts, error) {
	url := fmt.Sprintf("%s/domain/%s", c.baseURL, strings.ToLower(domainName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrFetch, err, "could not create request")
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrConnection, err, "could not query rdap for %s", domainName)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return &domain.RegistrationFacts{Registered: false, TransferLock: domain.TransferLockUnknown}, nil
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrFetch, err, "could not read rdap response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, serrors.With(serrors.ErrFetch, "rdap lookup failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var rd rdapDomain
	if err := json.Unmarshal(b, &rd); err != nil {
		return nil, serrors.Wrap(serrors.ErrFetch, err, "could not decode rdap response")
	}

	return factsFromRDAP(rd), nil
}

func factsFromRDAP(rd rdapDomain) *domain.RegistrationFacts {
	facts := &domain.RegistrationFacts{
		Registered:   true,
		Statuses:     rd.Status,
		TransferLock: transferLockFromStatuses(rd.Status),
	}

	for _, ns := range rd.Nameservers {
		if ns.LdhName != "" {
			facts.Nameservers = append(facts.Nameservers, normalizeHost(ns.LdhName))
		}
	}
	sort.Strings(facts.Nameservers)

	for _, e := range rd.Entities {
		for _, role := range e.Roles {
			if role == "registrar" {
				facts.RegistrarName = vcardFullName(e.VcardArray)
			}
		}
	}

	for _, ev := range rd.Events {
		if ev.EventAction == "expiration" {
			if t, err := time.Parse(time.RFC3339, ev.EventDate); err == nil {
				facts.ExpiresAt = t
			}
		}
	}

	return facts
}

// transferLockFromStatuses derives the tri-state lock from EPP status codes.
// Registries that expose no transfer status at all report unknown.
func transferLockFromStatuses(statuses []string) domain.TransferLock {
	if len(statuses) == 0 {
		return domain.TransferLockUnknown
	}
	for _, s := range statuses {
		ls := strings.ToLower(strings.ReplaceAll(s, " ", ""))
		if ls == "clienttransferprohibited" || ls == "servertransferprohibited" {
			return domain.TransferLockLocked
		}
	}

	return domain.TransferLockUnlocked
}

// vcardFullName digs the "fn" property out of a jCard array. The jCard
// format nests untyped arrays; anything unexpected just yields "".
func vcardFullName(vcard []any) string {
	if len(vcard) < 2 {
		return ""
	}
	props, ok := vcard[1].([]any)
	if !ok {
		return ""
	}
	for _, p := range props {
		fields, ok := p.([]any)
		if !ok || len(fields) < 4 {
			continue
		}
		name, ok := fields[0].(string)
		if !ok || name != "fn" {
			continue
		}
		if v, ok := fields[3].(string); ok {
			return v
		}
	}

	return ""
}
