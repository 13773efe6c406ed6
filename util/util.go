package util

import (
	"encoding/json"
	"github.com/lefinal/memorama/errors"
)

// EncodeAsJSON serves as a wrapper for the standard encoding and error stuff.
func EncodeAsJSON(content interface{}) (json.RawMessage, error) {
	j, err := json.Marshal(content)
	if err != nil {
		return json.RawMessage{}, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "encode json",
			Details: errors.Details{"content": content},
		}
	}
	return j, nil
}

// DecodeAsJSON serves as a wrapper for the standard decoding and error stuff.
// Failures are blamed on the sender.
func DecodeAsJSON(data []byte, target interface{}) error {
	err := json.Unmarshal(data, target)
	if err != nil {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindDecodeJSON,
			Err:     err,
			Message: "decode json",
			Details: errors.Details{"content": string(data)},
		}
	}
	return nil
}
