package tunnel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name string
	url  string
	err  error
}

func (s stubProvider) Name() string { return s.name }
func (s stubProvider) Expose(ctx context.Context, port int) (string, error) {
	return s.url, s.err
}

func TestChainReturnsFirstURL(t *testing.T) {
	c := NewChain(
		stubProvider{name: "a", err: errors.New("down")},
		stubProvider{name: "b", url: "https://b.example"},
		stubProvider{name: "c", url: "https://c.example"},
	)
	assert.Equal(t, "https://b.example", c.Expose(context.Background(), 4310))
}

func TestChainAllFailingIsNotAnError(t *testing.T) {
	c := NewChain(
		stubProvider{name: "a", err: errors.New("down")},
		stubProvider{name: "b"},
	)
	assert.Equal(t, "", c.Expose(context.Background(), 4310))
}

func TestChainEmpty(t *testing.T) {
	assert.Equal(t, "", NewChain().Expose(context.Background(), 4310))
}

func TestCommandProviderScrapesURL(t *testing.T) {
	p, err := NewCommandProvider("echo", []string{
		"echo", "tunnel ready at https://deck.example.com for {port}",
	}, "")
	require.NoError(t, err)

	url, err := p.Expose(context.Background(), 4310)
	require.NoError(t, err)
	assert.Equal(t, "https://deck.example.com", url)
}

func TestCommandProviderCustomPattern(t *testing.T) {
	p, err := NewCommandProvider("echo", []string{
		"echo", "url=https://x.trycloudflare.com ignore=https://docs.example",
	}, `https://\S+\.trycloudflare\.com`)
	require.NoError(t, err)

	url, err := p.Expose(context.Background(), 4310)
	require.NoError(t, err)
	assert.Equal(t, "https://x.trycloudflare.com", url)
}

func TestCommandProviderKillsSilentChildOnTimeout(t *testing.T) {
	p, err := NewCommandProvider("sleeper", []string{"sleep", "30"}, "")
	require.NoError(t, err)
	p.wait = 50 * time.Millisecond

	start := time.Now()
	url, err := p.Expose(context.Background(), 4310)
	require.NoError(t, err)
	assert.Equal(t, "", url)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCommandProviderFirstURLWins(t *testing.T) {
	p, err := NewCommandProvider("printf", []string{
		"printf", "https://first.example\nhttps://second.example\n",
	}, "")
	require.NoError(t, err)

	url, err := p.Expose(context.Background(), 4310)
	require.NoError(t, err)
	assert.Equal(t, "https://first.example", url)
}

func TestCommandProviderRejectsBadPattern(t *testing.T) {
	_, err := NewCommandProvider("x", []string{"true"}, `https://(`)
	assert.Error(t, err)
}

func TestCommandProviderPortSubstitution(t *testing.T) {
	p, err := NewCommandProvider("echo", []string{
		"echo", "https://host.example:{port}/x",
	}, "")
	require.NoError(t, err)

	url, err := p.Expose(context.Background(), 9999)
	require.NoError(t, err)
	assert.Equal(t, "https://host.example:9999/x", url)
}
