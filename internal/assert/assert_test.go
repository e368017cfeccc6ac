package assert

import (
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestNotNil(t *testing.T) {
	var client *resty.Client
	require.Panics(t, func() { NotNil(nil) })
	require.Panics(t, func() { NotNil(client) })
	require.NotPanics(t, func() { NotNil(resty.New()) })
	require.NotPanics(t, func() { NotNil(3) })
}

func TestNotEmptyStr(t *testing.T) {
	require.Panics(t, func() { NotEmptyStr("") })
	require.NotPanics(t, func() { NotEmptyStr("https://www.steamtrades.com") })
}
