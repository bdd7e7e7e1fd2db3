package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Credentials are the username and password every API request carries.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ctxKey struct{}

// maxMultipartMemory is how much of a multipart body is kept in memory
// before spilling file parts to disk.
const maxMultipartMemory = 32 << 20

// CredentialsMiddleware pulls username and password out of a JSON,
// urlencoded or multipart body and stores them in the request context.
// Requests missing either field are rejected with 400. JSON bodies are
// restored so handlers can decode the remaining fields.
func CredentialsMiddleware(onMissing func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, err := readCredentials(r)
			if err != nil || creds.Username == "" || creds.Password == "" {
				onMissing(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, creds)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the credentials stored by CredentialsMiddleware.
func FromContext(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(ctxKey{}).(Credentials)
	return creds, ok
}

func readCredentials(r *http.Request) (Credentials, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return Credentials{}, err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		var creds Credentials
		if len(bytes.TrimSpace(body)) == 0 {
			return creds, nil
		}
		if err := json.Unmarshal(body, &creds); err != nil {
			return Credentials{}, err
		}
		return creds, nil
	case strings.HasPrefix(mediaType, "multipart/"):
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return Credentials{}, err
		}
	default:
		if err := r.ParseForm(); err != nil {
			return Credentials{}, err
		}
	}
	return Credentials{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}, nil
}
