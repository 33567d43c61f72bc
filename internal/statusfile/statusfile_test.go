package statusfile

import (
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/agentdeck/agentdeck/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setHome(t *testing.T) {
	t.Helper()
	t.Setenv("AGENTDECK_HOME", t.TempDir())
}

func TestWriteLoadRoundTrip(t *testing.T) {
	setHome(t)

	rec := models.StatusRecord{
		PID:       1234,
		Port:      4310,
		TunnelURL: "https://x.example",
		PIN:       "123456",
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, Write(rec))

	got, err := Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
}

func TestLoadMissingIsNilNil(t *testing.T) {
	setHome(t)
	got, err := Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRemoveIsIdempotent(t *testing.T) {
	setHome(t)
	assert.NoError(t, Remove())

	require.NoError(t, Write(models.StatusRecord{PID: 1}))
	assert.NoError(t, Remove())
	assert.NoError(t, Remove())
}

func TestWriteReplacesWholeRecord(t *testing.T) {
	setHome(t)

	require.NoError(t, Write(models.StatusRecord{PID: 1, Port: 4310, TunnelURL: "https://old"}))
	require.NoError(t, Write(models.StatusRecord{PID: 1, Port: 4310}))

	got, err := Load()
	require.NoError(t, err)
	assert.Empty(t, got.TunnelURL)
}

func TestVerifyNoRecord(t *testing.T) {
	setHome(t)
	state, rec := Verify()
	assert.Equal(t, NoDaemon, state)
	assert.Nil(t, rec)
}

func TestVerifyDeadPIDDeletesRecord(t *testing.T) {
	setHome(t)
	require.NoError(t, Write(models.StatusRecord{PID: 99999999, Port: 4310}))

	state, _ := Verify()
	assert.Equal(t, NoDaemon, state)

	got, err := Load()
	require.NoError(t, err)
	assert.Nil(t, got, "stale record should be deleted")
}

func serverPort(t *testing.T, handler http.HandlerFunc) int {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func TestVerifyHealthy(t *testing.T) {
	setHome(t)

	port := serverPort(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Write([]byte(`{"app":"agentdeck"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	require.NoError(t, Write(models.StatusRecord{PID: os.Getpid(), Port: port}))

	state, rec := Verify()
	assert.Equal(t, Healthy, state)
	require.NotNil(t, rec)
	assert.Equal(t, port, rec.Port)
}

func TestVerifyRejectsForeignProcessOnPort(t *testing.T) {
	setHome(t)

	// Something else answers 200 on the recorded port, but without the
	// app marker. The record is stale and must go.
	port := serverPort(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	require.NoError(t, Write(models.StatusRecord{PID: os.Getpid(), Port: port}))

	state, _ := Verify()
	assert.Equal(t, NoDaemon, state)

	got, err := Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestVerifyLivePIDButNoServer(t *testing.T) {
	setHome(t)
	// Own PID is alive, but nothing listens on the port.
	require.NoError(t, Write(models.StatusRecord{PID: os.Getpid(), Port: 1}))

	state, _ := Verify()
	assert.Equal(t, NoDaemon, state)

	got, err := Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestVerifyCorruptRecordDeleted(t *testing.T) {
	setHome(t)
	path := Path()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0600))

	state, _ := Verify()
	assert.Equal(t, NoDaemon, state)

	got, err := Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}
