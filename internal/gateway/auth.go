package gateway

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is returned when a connection cannot be attributed to a device
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the authenticated owner of a connection
type Identity struct {
	TenantID string
	UserID   string
	DeviceID string
}

// Authenticator resolves the identity of an upgrade request.
// Token issuance lives outside this service.
type Authenticator interface {
	Authenticate(r *http.Request) (Identity, error)
}

// APIKeyAuthenticator trusts identity headers from callers holding the shared key.
// An empty key disables the key check.
type APIKeyAuthenticator struct {
	Key string
}

// Authenticate implements Authenticator
func (a APIKeyAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	if a.Key != "" {
		got := r.Header.Get(HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.Key)) != 1 {
			return Identity{}, fmt.Errorf("%w: %s", ErrUnauthorized, ErrMsgInvalidAPIKey)
		}
	}

	id := Identity{
		TenantID: r.Header.Get(HeaderTenantID),
		UserID:   r.Header.Get(HeaderUserID),
		DeviceID: r.Header.Get(HeaderDeviceID),
	}
	for _, h := range [][2]string{
		{HeaderTenantID, id.TenantID},
		{HeaderUserID, id.UserID},
		{HeaderDeviceID, id.DeviceID},
	} {
		if h[1] == "" {
			return Identity{}, fmt.Errorf("%w: "+ErrMsgMissingHeader, ErrUnauthorized, h[0])
		}
	}
	return id, nil
}
