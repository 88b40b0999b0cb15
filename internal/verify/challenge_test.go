package verify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"domainstack/pkg/domain"
)

// The challenge artifacts are published formats; third-party tooling builds
// them independently, so every string here is load-bearing.
func TestChallengeArtifacts(t *testing.T) {
	const token = "2f1b56c0a4de4bb0a7f3a7708a2f9ce1"

	t.Run("txt record", func(t *testing.T) {
		require.Equal(t, "domainstack-verify=2f1b56c0a4de4bb0a7f3a7708a2f9ce1", TXTValue(token))
		require.Equal(t,
			[]string{"example.com", "_domainstack-verify.example.com"},
			TXTNames("example.com"))
	})

	t.Run("html file", func(t *testing.T) {
		require.Equal(t,
			"/.well-known/domainstack-verify/2f1b56c0a4de4bb0a7f3a7708a2f9ce1.html",
			FilePath(token))
		require.Equal(t, "/.well-known/domainstack-verify.html", LegacyFilePath)
		require.Equal(t, "domainstack-verify: 2f1b56c0a4de4bb0a7f3a7708a2f9ce1", FileBody(token))
	})

	t.Run("meta tag", func(t *testing.T) {
		require.Equal(t,
			`<meta name="domainstack-verify" content="2f1b56c0a4de4bb0a7f3a7708a2f9ce1">`,
			MetaTag(token))
	})
}

func TestChallengeFor(t *testing.T) {
	const token = "deadbeef"

	c := ChallengeFor("example.com", token, domain.MethodDNSTXT)
	require.Equal(t, domain.MethodDNSTXT, c.Method)
	require.Equal(t, TXTValue(token), c.RecordValue)
	require.Empty(t, c.Path)

	c = ChallengeFor("example.com", token, domain.MethodHTMLFile)
	require.Equal(t, FilePath(token), c.Path)
	require.Equal(t, FileBody(token), c.FileBody)
	require.Empty(t, c.RecordValue)

	c = ChallengeFor("example.com", token, domain.MethodMetaTag)
	require.Equal(t, MetaTag(token), c.Tag)

	require.Zero(t, ChallengeFor("example.com", token, "bogus"))
}
