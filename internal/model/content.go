package model

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

// EncodingBase64 marks content carried as standard base64 in a JSON string.
const EncodingBase64 = "base64"

// EncodeContent renders content for a JSON string field. Valid UTF-8 is returned
// as is with an empty encoding; anything else is base64 encoded.
func EncodeContent(b []byte) (content, encoding string) {
	if utf8.Valid(b) {
		return string(b), ""
	}
	return base64.StdEncoding.EncodeToString(b), EncodingBase64
}

// DecodeContent reverses EncodeContent. Failures are ErrInvalidInput.
func DecodeContent(op, content, encoding string) ([]byte, error) {
	switch encoding {
	case "":
		return []byte(content), nil
	case EncodingBase64:
		b, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, &Error{Op: op, Kind: ErrInvalidInput, Err: fmt.Errorf("decode base64 content: %w", err)}
		}
		return b, nil
	default:
		return nil, &Error{Op: op, Kind: ErrInvalidInput, Err: fmt.Errorf("unknown content encoding %q", encoding)}
	}
}
