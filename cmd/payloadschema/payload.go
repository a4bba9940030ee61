package main

import (
	"encoding/hex"
	"os"
	"strings"
)

// readPayload accepts a hex string directly, or, prefixed with "@", a path
// to a file of raw bytes to read instead.
func readPayload(s string) ([]byte, error) {
	if strings.HasPrefix(s, "@") {
		return os.ReadFile(s[1:])
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	return hex.DecodeString(s)
}
