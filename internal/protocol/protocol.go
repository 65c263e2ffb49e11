// Package protocol implements the line-oriented wire format spoken over
// stdin/stdout: one JSON object per line, requests tagged {id, m, p} and
// responses carrying exactly one of d (progress), r (result), or e (error).
package protocol

import (
	"encoding/base64"
	"fmt"

	"github.com/bytedance/sonic"
)

// Version is announced in the ready banner and bumped on breaking changes.
const Version = 1

// Request is a single peer request. ID 0 is reserved for unsolicited
// agent messages (ready banner, parse errors), so peers start at 1.
type Request struct {
	ID     uint64 `json:"id"`
	Method string `json:"m"`
	Params Params `json:"p"`
}

// ParseRequest decodes one request line. Params may be nil when the
// peer omits p.
func ParseRequest(line []byte) (*Request, error) {
	var req Request
	if err := sonic.Unmarshal(line, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Encode64 encodes binary payloads for the wire.
func Encode64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode64 decodes a base64 payload field.
func Decode64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return data, nil
}
