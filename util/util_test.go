package util

import (
	"github.com/lefinal/memorama/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestEncodeAsJSON(t *testing.T) {
	raw, err := EncodeAsJSON(map[string]int{"moves": 12})
	require.NoError(t, err, "should not fail")
	assert.JSONEq(t, `{"moves":12}`, string(raw))
}

func TestEncodeAsJSONUnsupported(t *testing.T) {
	_, err := EncodeAsJSON(make(chan int))
	require.Error(t, err, "should fail")
	assert.True(t, errors.HasKind(err, errors.KindEncodeJSON), "should have correct kind")
}

func TestDecodeAsJSON(t *testing.T) {
	var target struct {
		CardID string `json:"cardId"`
	}
	err := DecodeAsJSON([]byte(`{"cardId":"c-1"}`), &target)
	require.NoError(t, err, "should not fail")
	assert.Equal(t, "c-1", target.CardID)
}

func TestDecodeAsJSONInvalid(t *testing.T) {
	var target struct{}
	err := DecodeAsJSON([]byte(`{`), &target)
	require.Error(t, err, "should fail")
	assert.True(t, errors.HasKind(err, errors.KindDecodeJSON), "should have correct kind")
	assert.True(t, errors.BlameUser(err), "should blame user")
}
