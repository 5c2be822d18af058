package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/blockx"
)

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := decode([]byte("not json"))
	assert.Error(t, err)

	_, _, err = decode([]byte(`{"id":"x","kind":"bogus"}`))
	assert.ErrorContains(t, err, "unknown event kind")

	_, _, err = decode([]byte(`{"id":"x","kind":"none"}`))
	assert.Error(t, err)
}

func TestEncodeCarriesMetadata(t *testing.T) {
	data, err := encode("pump", blockx.SignalEvent("start", "now"))
	require.NoError(t, err)

	d, e, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, "pump", d.Source)
	assert.NotEmpty(t, d.ID)
	assert.NotZero(t, d.SentAt)
	assert.Equal(t, blockx.SignalEvent("start", "now"), e)
}

func TestEncodeRejectsOversizedEvent(t *testing.T) {
	big := make([]byte, maxDatagram)
	_, err := encode("", blockx.SignalEvent("blob", string(big)))
	assert.ErrorContains(t, err, "limit")
}
