package utils

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/nodeline/internal/application/usecases/session"
)

// Headers set by the upstream authentication proxy.
const (
	HeaderUserID     = "X-User-ID"
	HeaderUserHandle = "X-User-Handle"
	HeaderUserStaff  = "X-User-Staff"
	HeaderUserGuest  = "X-User-Guest"
)

var ErrUnauthenticated = errors.New("missing identity headers")

func IdentityFromRequest(r *http.Request) (session.Identity, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		return session.Identity{}, ErrUnauthenticated
	}

	handle := strings.TrimSpace(r.Header.Get(HeaderUserHandle))
	if handle == "" {
		handle = id
	}

	return session.Identity{
		ID:     id,
		Handle: handle,
		Staff:  headerBool(r, HeaderUserStaff),
		Guest:  headerBool(r, HeaderUserGuest),
	}, nil
}

func headerBool(r *http.Request, key string) bool {
	b, err := strconv.ParseBool(r.Header.Get(key))
	return err == nil && b
}

// Origin is the caller address as seen after chi's RealIP middleware.
func Origin(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func OrdinalParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "ordinal")
	ordinal, err := strconv.Atoi(raw)
	if err != nil || ordinal < 1 {
		return 0, errors.New("node ordinal must be a positive integer")
	}
	return ordinal, nil
}

func LimitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
