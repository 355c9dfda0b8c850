// Package fileid derives stable identifiers and type hints for uploaded files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Digest returns the hex SHA-256 of data. Identical uploads yield the same
// digest regardless of filename.
func Digest(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ContentType returns the declared type when set, else a guess from the file
// extension, else a sniff of the content.
func ContentType(filename, declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
