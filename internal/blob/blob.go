// Package blob decodes data-URL payloads and persists them to a local
// directory or an S3 bucket.
package blob

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"time"
)

// Store persists decoded binary attachments and returns their public URL.
type Store interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

var dataURLPattern = regexp.MustCompile(`^data:([A-Za-z0-9.+/-]+);base64,(.+)$`)

// ParseDataURL splits a data URL into media type and decoded bytes.
// ok is false for anything that is not a base64 data URL.
func ParseDataURL(s string) (mediaType string, data []byte, ok bool) {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return "", nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", nil, false
	}
	return m[1], decoded, true
}

// SaveDataURL decodes value and writes it through the store under a name
// derived from prefix and the current time. A value that is not a data URL
// is returned unchanged: it is treated as already being a URL.
func SaveDataURL(ctx context.Context, store Store, value, prefix string) (string, error) {
	mediaType, data, ok := ParseDataURL(value)
	if !ok {
		return value, nil
	}
	name := fmt.Sprintf("%s_%d.%s", prefix, time.Now().UnixMilli(), extensionFor(mediaType))
	return store.Save(ctx, name, mediaType, data)
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "application/pdf":
		return "pdf"
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "bin"
	}
}
