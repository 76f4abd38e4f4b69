package ocr

import (
	"encoding/base64"
	"os"
	"path/filepath"
)

// MakeDataURL builds data:<mime>;base64,<payload>
func MakeDataURL(mime, b64 string) string {
	return "data:" + mime + ";base64," + b64
}

// EncodeFile reads path fully and returns it as a base64 data URL
func EncodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", NewIOError(filepath.Base(path), err)
	}

	mime, ok := MIMEType(path)
	if !ok {
		mime = "application/octet-stream"
	}
	return MakeDataURL(mime, base64.StdEncoding.EncodeToString(data)), nil
}
