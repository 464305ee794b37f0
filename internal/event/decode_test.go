package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	want := UploadFinalizedPayloadV1{UploadID: "up-1", Size: 42}

	t.Run("struct value", func(t *testing.T) {
		got, err := DecodePayload[UploadFinalizedPayloadV1](want)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("pointer", func(t *testing.T) {
		got, err := DecodePayload[UploadFinalizedPayloadV1](&want)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("raw json", func(t *testing.T) {
		raw, err := json.Marshal(want)
		require.NoError(t, err)

		got, err := DecodePayload[UploadFinalizedPayloadV1](json.RawMessage(raw))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("generic map", func(t *testing.T) {
		var generic map[string]interface{}
		raw, _ := json.Marshal(want)
		require.NoError(t, json.Unmarshal(raw, &generic))

		got, err := DecodePayload[UploadFinalizedPayloadV1](generic)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("nil", func(t *testing.T) {
		got, err := DecodePayload[UploadFinalizedPayloadV1](nil)
		require.NoError(t, err)
		assert.Zero(t, got)
	})

	t.Run("incompatible", func(t *testing.T) {
		_, err := DecodePayload[UploadFinalizedPayloadV1]("not an object")
		assert.Error(t, err)
	})
}
