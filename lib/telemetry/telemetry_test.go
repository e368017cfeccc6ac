package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	recorder := &RecorderAPI{}
	scoped := NewScopedAPI("steamtrades", recorder)

	scoped.ReportWarning("client.bump", "cooldown")
	scoped.ReportBroken("client.login", "boom")
	scoped.ReportCount("client.bumps", 3)

	warnings := recorder.Reports("warning")
	require.Len(t, warnings, 1)
	require.Equal(t, "steamtrades: client.bump", warnings[0].Id)
	require.Equal(t, []any{"cooldown"}, warnings[0].Params)

	require.Equal(t, "steamtrades: client.login", recorder.Reports("broken")[0].Id)
	require.Equal(t, []any{int64(3)}, recorder.Reports("count")[0].Params)
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	recorder := &RecorderAPI{}
	client := resty.New()
	InstrumentResty(client, recorder)

	res, err := client.R().SetContext(context.Background()).Get(server.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, res.StatusCode())

	debug := recorder.Reports("debug")
	require.Len(t, debug, 2)
	require.Equal(t, report_resty_request, debug[0].Id)
	require.Equal(t, report_resty_response, debug[1].Id)
	require.Empty(t, recorder.Reports("broken"))
}

func TestInstrumentRestyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	recorder := &RecorderAPI{}
	client := resty.New()
	InstrumentResty(client, recorder)

	_, err := client.R().Get(url)
	require.Error(t, err)
	require.Len(t, recorder.Reports("broken"), 1)
}
