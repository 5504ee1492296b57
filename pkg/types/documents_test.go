package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocumentsSkipsEmpty(t *testing.T) {
	t.Parallel()

	raw := "a: 1\n---\n---\nb: 2\n"
	docs, err := DecodeDocuments(raw)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 1, docs[0]["a"])
	assert.Equal(t, 2, docs[1]["b"])
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	docs := []map[string]interface{}{
		{"service": "foo", "version": "prometheus/v1"},
		{"service": "bar", "version": "prometheus/v1"},
	}
	encoded, err := EncodeDocuments(docs)
	require.NoError(t, err)

	decoded, err := DecodeDocuments(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, "foo", decoded[0]["service"])
	assert.Equal(t, "bar", decoded[1]["service"])
}

func TestDecodeDocumentsMalformed(t *testing.T) {
	t.Parallel()

	_, err := DecodeDocuments("ok: yes\n---\n\t bad")
	require.Error(t, err)
}
