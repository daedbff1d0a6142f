package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type (
	// Issuer signs and verifies the bearer tokens of hosts and participants.
	Issuer struct {
		secret []byte
		ttl    time.Duration
		now    func() time.Time
	}

	// Principal is who a verified token speaks for.
	Principal struct {
		SessionID     string
		ParticipantID string
	}
)

const (
	httpHeaderAuthorization = "Authorization"
	realm                   = "Bearer "

	hostSubject  = "host"
	sessionClaim = "sid"
)

var (
	// ErrMissingToken ...
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidRealm ...
	ErrInvalidRealm = errors.New("invalid authentication realm")

	// ErrInvalidToken ...
	ErrInvalidToken = errors.New("invalid token")

	jwtSigningMethod = jwt.SigningMethodHS256
)

// NewIssuer ...
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// IsHost ...
func (p *Principal) IsHost() bool {
	return p.ParticipantID == ""
}

// IssueHost returns a token that lets its bearer edit the session.
func (i *Issuer) IssueHost(sessionID string) (string, error) {
	return i.issue(sessionID, hostSubject)
}

// IssueParticipant returns a token that lets its bearer update their own
// allocation in the session.
func (i *Issuer) IssueParticipant(sessionID, participantID string) (string, error) {
	return i.issue(sessionID, participantID)
}

func (i *Issuer) issue(sessionID, subject string) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwtSigningMethod, jwt.MapClaims{
		"sub":        subject,
		sessionClaim: sessionID,
		"iat":        now.Unix(),
		"exp":        now.Add(i.ttl).Unix(),
	})
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("error signing jwt token: %w", err)
	}
	return tokenString, nil
}

// Verify ...
func (i *Issuer) Verify(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwtSigningMethod.Name}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: error parsing jwt token: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sid, _ := claims[sessionClaim].(string)
	if sid == "" {
		return nil, fmt.Errorf("%w: missing session", ErrInvalidToken)
	}
	p := &Principal{SessionID: sid}
	if sub != hostSubject {
		p.ParticipantID = sub
	}
	return p, nil
}

// VerifyRequest verifies the bearer token of r.
func (i *Issuer) VerifyRequest(r *http.Request) (*Principal, error) {
	authn := r.Header.Get(httpHeaderAuthorization)
	if authn == "" {
		return nil, ErrMissingToken
	}
	if !strings.HasPrefix(authn, realm) {
		return nil, ErrInvalidRealm
	}
	return i.Verify(strings.TrimSpace(authn[len(realm):]))
}
