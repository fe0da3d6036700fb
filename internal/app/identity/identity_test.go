package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataO1/hush-fm/internal/pkg/randx"
)

func Test_Identify_newClient(t *testing.T) {
	svc := NewService()

	client, reused, cerr := svc.Identify("", "")
	require.Nil(t, cerr, "expected identify to succeed")

	assert.False(t, reused, "expected a fresh identity")
	assert.True(t, randx.IsValidClientID(client.ID), "expected a well-formed client id, got %q", client.ID)
	assert.NotEmpty(t, client.DisplayName, "expected a generated display name")
}

func Test_Identify_customName(t *testing.T) {
	svc := NewService()

	client, reused, cerr := svc.Identify("", "DJ Shadow")
	require.Nil(t, cerr, "expected identify to succeed")

	assert.False(t, reused)
	assert.Equal(t, "DJ Shadow", client.DisplayName, "expected the requested display name to be kept")
}

func Test_Identify_reuseIsIdempotent(t *testing.T) {
	svc := NewService()

	first, _, cerr := svc.Identify("", "")
	require.Nil(t, cerr)

	second, reused, cerr := svc.Identify(first.ID, "SomeOtherName")
	require.Nil(t, cerr, "expected re-identification to succeed")

	assert.True(t, reused, "expected the existing identity to be reused")
	assert.Equal(t, first.ID, second.ID, "expected the same client id")
	assert.Equal(t, first.DisplayName, second.DisplayName, "expected the display name to be immutable on reuse")
}

func Test_Identify_unknownReuseIDMintsFresh(t *testing.T) {
	svc := NewService()

	client, reused, cerr := svc.Identify("client_notissued", "")
	require.Nil(t, cerr, "expected identify to succeed even with an unknown reuse id")

	assert.False(t, reused, "expected a fresh identity for an unknown reuse id")
	assert.NotEqual(t, "client_notissued", client.ID, "expected a server-minted id, not the unknown one")
}

func Test_Lookup_and_DisplayName(t *testing.T) {
	svc := NewService()

	client, _, cerr := svc.Identify("", "GroovyBass7")
	require.Nil(t, cerr)

	got, ok := svc.Lookup(client.ID)
	assert.True(t, ok, "expected lookup to find the issued identity")
	assert.Equal(t, client.ID, got.ID)

	_, ok = svc.Lookup("client_missing1")
	assert.False(t, ok, "expected lookup to miss an unknown id")

	assert.Equal(t, "GroovyBass7", svc.DisplayName(client.ID))
	assert.Empty(t, svc.DisplayName("client_missing1"), "expected empty display name for unknown id")
}
