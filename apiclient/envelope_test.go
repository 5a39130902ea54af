package apiclient_test

import (
	"testing"

	"github.com/jrsteele09/studio-gateway/apiclient"
	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/token"
	"github.com/stretchr/testify/require"
)

func TestDecodeReissue(t *testing.T) {
	pair := token.Pair{AccessToken: "AT2", RefreshToken: "RT2"}

	got, err := apiclient.DecodeReissue([]byte(`{"success":true,"data":{"accessToken":"AT2","refreshToken":"RT2"}}`))
	require.NoError(t, err)
	require.Equal(t, apiclient.ReissueResponse{Shape: apiclient.ReissueWrapped, Pair: pair}, got)

	got, err = apiclient.DecodeReissue([]byte(`{"accessToken":"AT2","refreshToken":"RT2"}`))
	require.NoError(t, err)
	require.Equal(t, apiclient.ReissueResponse{Shape: apiclient.ReissueBare, Pair: pair}, got)
}

func TestDecodeReissueUnknownShapes(t *testing.T) {
	for name, body := range map[string]string{
		"not json":       `<html>`,
		"array":          `[]`,
		"empty object":   `{}`,
		"null data":      `{"success":true,"data":null}`,
		"bare half pair": `{"accessToken":"AT2"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := apiclient.DecodeReissue([]byte(body))
			require.ErrorIs(t, err, apperrors.ErrUnknownResponseShape)
		})
	}
}

func TestDecodeReissueEnvelopeFailure(t *testing.T) {
	_, err := apiclient.DecodeReissue([]byte(`{"success":false,"data":null,"error":{"code":"AUTH_002","message":"expired"}}`))
	require.ErrorIs(t, err, apperrors.ErrBackend)
}
