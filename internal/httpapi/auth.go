package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/codeduels/duel-server/internal/apperr"
)

// TokenVerifier resolves an Authorization credential to a user
// identity. Credential issuance lives in an external service; the
// relay only consumes the contract.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type ctxKey int

const identityKey ctxKey = 0

// Identity returns the authenticated identity stored by the auth
// middleware, or "".
func Identity(ctx context.Context) string {
	id, _ := ctx.Value(identityKey).(string)
	return id
}

// RequireAuth rejects requests without a verifiable credential and
// stores the resolved identity on the request context.
func RequireAuth(v TokenVerifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("Authorization"))
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			writeError(w, apperr.Auth("missing credential"))
			return
		}
		identity, err := v.Verify(token)
		if err != nil {
			writeError(w, apperr.Auth("invalid credential"))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	}
}

// HMACVerifier is the reference implementation: tokens are
// "<identity>:<hex hmac-sha256(identity, secret)>". Enough to run the
// server standalone; production deployments inject their own verifier.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Sign(identity string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(identity))
	return identity + ":" + hex.EncodeToString(mac.Sum(nil))
}

func (v *HMACVerifier) Verify(token string) (string, error) {
	i := strings.LastIndex(token, ":")
	if i <= 0 {
		return "", apperr.Auth("malformed token")
	}
	identity, sig := token[:i], token[i+1:]
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(identity))
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return "", apperr.Auth("bad signature")
	}
	return identity, nil
}
