package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("body", "too long"), http.StatusBadRequest},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("node 9: %w", domain.ErrNodeNotFound), http.StatusNotFound},
		{domain.ErrAutoReplyNotFound, http.StatusNotFound},
		{fmt.Errorf("after 3 attempts: %w", domain.ErrNoNodeAvailable), http.StatusConflict},
		{domain.ErrRecipientOffline, http.StatusConflict},
		{domain.ErrNodeUnoccupied, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestIdentityFromRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := IdentityFromRequest(req)
	require.ErrorIs(t, err, ErrUnauthenticated)

	req.Header.Set(HeaderUserID, " u-1 ")
	req.Header.Set(HeaderUserStaff, "true")
	req.Header.Set(HeaderUserGuest, "not-a-bool")

	identity, err := IdentityFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "u-1", identity.ID)
	assert.Equal(t, "u-1", identity.Handle, "handle falls back to the id")
	assert.True(t, identity.Staff)
	assert.False(t, identity.Guest)
}

func TestOrdinalParam(t *testing.T) {
	t.Parallel()

	withOrdinal := func(raw string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("ordinal", raw)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	ordinal, err := OrdinalParam(withOrdinal("4"))
	require.NoError(t, err)
	assert.Equal(t, 4, ordinal)

	for _, raw := range []string{"0", "-1", "four", ""} {
		_, err := OrdinalParam(withOrdinal(raw))
		assert.Error(t, err, raw)
	}
}

func TestOrigin(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", Origin(req))

	req.RemoteAddr = "10.1.2.3"
	assert.Equal(t, "10.1.2.3", Origin(req))
}
