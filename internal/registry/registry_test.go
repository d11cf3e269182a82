package registry

import (
	"context"
	"net/http"
	"testing"

	"alerttrigger/internal/config"
	"alerttrigger/internal/domain"
	"alerttrigger/internal/logging"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryURL = "http://portal.internal/apis"

func newMockedHTTPRegistry(headers map[string]string) (*HTTPRegistry, *httpmock.MockTransport) {
	transport := httpmock.NewMockTransport()
	r := NewHTTPRegistry(config.HTTPRegistryConfig{URL: registryURL, TimeoutSec: 1, Headers: headers}, logging.Discard())
	r.client = &http.Client{Transport: transport}
	return r, transport
}

func TestHTTPRegistryFetchAll(t *testing.T) {
	t.Parallel()

	r, transport := newMockedHTTPRegistry(map[string]string{"Authorization": "Bearer token"})
	transport.RegisterResponder(http.MethodGet, registryURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer token", req.Header.Get("Authorization"))
		return httpmock.NewStringResponse(http.StatusOK, `[
			{"id":"a","state":"STARTED","services":[{"kind":"health-check","enabled":true}],"owner":{"email":"a@example.com"}},
			{"id":"b","state":"STOPPED","owner":{}}
		]`), nil
	})

	apis, err := r.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, apis, 2)
	assert.Equal(t, "a", apis[0].ID)
	assert.True(t, apis[0].HealthCheckEnabled())
	assert.False(t, apis[1].Started())
}

func TestHTTPRegistryStatusError(t *testing.T) {
	t.Parallel()

	r, transport := newMockedHTTPRegistry(nil)
	transport.RegisterResponder(http.MethodGet, registryURL, httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"))

	_, err := r.FetchAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502 body=upstream down")
}

func TestHTTPRegistrySkipsInvalidEntries(t *testing.T) {
	t.Parallel()

	r, transport := newMockedHTTPRegistry(nil)
	transport.RegisterResponder(http.MethodGet, registryURL, httpmock.NewStringResponder(http.StatusOK, `[
		{"state":"STARTED"},
		{"id":"a","state":"STARTED"},
		{"id":42},
		{"id":"  ","state":"STARTED"},
		{"id":"b","state":"STOPPED"}
	]`))

	apis, err := r.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, apis, 2)
	assert.Equal(t, "a", apis[0].ID)
	assert.Equal(t, "b", apis[1].ID)
}

func TestHTTPRegistryRejectsNonArrayBody(t *testing.T) {
	t.Parallel()

	r, transport := newMockedHTTPRegistry(nil)
	transport.RegisterResponder(http.MethodGet, registryURL, httpmock.NewStringResponder(http.StatusOK, `{"id":"a"}`))

	_, err := r.FetchAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode registry listing")
}

func TestStaticRegistryReturnsCopy(t *testing.T) {
	t.Parallel()

	r := NewStaticRegistry(domain.APISnapshot{ID: "a"})
	first, err := r.FetchAll(context.Background())
	require.NoError(t, err)
	first[0].ID = "mutated"

	second, err := r.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", second[0].ID)

	r.Replace(nil)
	empty, err := r.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNewSelectsImplementation(t *testing.T) {
	t.Parallel()

	static, err := New(config.RegistryConfig{Kind: config.RegistryKindStatic}, nil)
	require.NoError(t, err)
	assert.IsType(t, &StaticRegistry{}, static)

	httpRegistry, err := New(config.RegistryConfig{Kind: config.RegistryKindHTTP, HTTP: config.HTTPRegistryConfig{URL: registryURL}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPRegistry{}, httpRegistry)

	_, err = New(config.RegistryConfig{Kind: "etcd"}, nil)
	assert.Error(t, err)
}
