// Package blob stores uploaded image bytes and computes their public URLs.
package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Store is a flat key/value object store.
type Store interface {
	// Put writes data under key with the given content type. The object
	// is publicly readable once Put returns. Put never replaces an
	// existing object; a taken key wraps common.ErrAlreadyExists.
	Put(ctx context.Context, key, contentType string, data []byte) error
	// Get reads the object at key. A missing object wraps common.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// PublicURL is the address the object can be fetched from.
	PublicURL(key string) string
}

// FormatURL fills a public URL template such as
// "https://storage.googleapis.com/my-bucket/%s" with key. Each segment of
// key is path-escaped so '#' and '?' in a filename stay in the path.
func FormatURL(template, key string) string {
	if !strings.Contains(template, "%s") {
		template = strings.TrimRight(template, "/") + "/%s"
	}
	return CleanURL(fmt.Sprintf(template, EscapeKey(key)))
}

// EscapeKey path-escapes every '/'-separated segment of key.
func EscapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func CleanURL(urlStr string) string {
	urlStr = strings.ReplaceAll(urlStr, " ", "%20")
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}

	return parsedURL.String()
}
