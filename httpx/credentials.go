package httpx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/oauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/survey-dashboard/log"
	"github.com/mbolis/survey-dashboard/store"
)

// refresh tokens outlive any session cookie
const refreshTokenTTL = 8760 * time.Hour

var errNotSupported = errors.New("not supported")

type credentialsVerifier struct {
	store store.Store
	now   func() time.Time
}

// CredentialsVerifier backs the bearer server's password grant with two
// strategies: the user's bcrypt password, or a one-time login ticket minted
// after a Google sign-in.
func CredentialsVerifier(st store.Store) oauth.CredentialsVerifier {
	return &credentialsVerifier{store: st, now: time.Now}
}

// HashTicket is how login tickets are keyed in the store.
func HashTicket(ticket string) string {
	sum := sha256.Sum256([]byte(ticket))
	return hex.EncodeToString(sum[:])
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	ctx := r.Context()

	hash, err := cs.store.PasswordHash(ctx, username)
	if err != nil {
		return err
	}
	if hash != nil && bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil {
		return nil
	}

	user, err := cs.store.GetUserByEmail(ctx, username)
	if err != nil {
		return err
	}
	if err := cs.store.ConsumeLoginTicket(ctx, user.ID, HashTicket(password)); err != nil {
		log.Debugf("credentials.validate_user: %s", err)
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return nil
}

func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.store.StoreToken(context.Background(), credential, tokenID, refreshTokenID, cs.now().Add(refreshTokenTTL))
}

func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.store.ConsumeToken(context.Background(), credential, tokenID, refreshTokenID)
}

func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	user, err := cs.store.GetUserByEmail(r.Context(), credential)
	if err != nil {
		return nil, err
	}
	return map[string]string{"uid": user.ID, "email": user.Email}, nil
}

func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}

func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errNotSupported
}
