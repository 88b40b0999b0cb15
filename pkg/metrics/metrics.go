package metrics

// DefaultBuckets is the shared histogram bucket layout in seconds. The upper
// buckets are wide because monitoring runs block on WHOIS and TLS handshakes
// of arbitrary remote hosts.
var DefaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60} //nolint: gochecknoglobals
