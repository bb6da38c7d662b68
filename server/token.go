package server

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var (
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token has expired")
)

// Payload names the player a session belongs to and the room it is valid for.
type Payload struct {
	PlayerID string
	RoomCode string
	Expires  int64
}

func (payload *Payload) Valid() error {
	if time.Now().After(time.Unix(payload.Expires, 0)) {
		return ErrExpiredToken
	}
	return nil
}

type Token struct {
	secretKey string
	duration  time.Duration
}

// NewToken signs sessions with secret, or with a random key when secret is
// empty. A random key invalidates all sessions on restart; players then
// rejoin with their secret.
func NewToken(secret string, duration time.Duration) Token {
	if secret == "" {
		secret = RandomSecret(32)
	}
	if duration <= 0 {
		duration = 2 * time.Hour
	}
	return Token{secretKey: secret, duration: duration}
}

// RandomSecret returns n random bytes, base64 encoded.
func RandomSecret(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Errorf("no randomness available: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func (t *Token) CreateToken(roomCode, playerID string) (string, error) {
	payload := Payload{
		PlayerID: playerID,
		RoomCode: roomCode,
		Expires:  time.Now().Add(t.duration).Unix(),
	}
	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, &payload)
	signedToken, err := jwtToken.SignedString([]byte(t.secretKey))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func ExtractToken(r *http.Request) string {
	bearToken := r.Header.Get("Authorization")
	strArr := strings.Split(bearToken, " ")
	if len(strArr) == 2 {
		return strArr[1]
	}
	return ""
}

func (t *Token) VerifyToken(token string) (*Payload, error) {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		_, ok := token.Method.(*jwt.SigningMethodHMAC)
		if !ok {
			return nil, ErrInvalidToken
		}
		return []byte(t.secretKey), nil
	}

	jwtToken, err := jwt.ParseWithClaims(token, &Payload{}, keyFunc)
	if err != nil {
		verr, ok := err.(*jwt.ValidationError)
		if ok && errors.Is(verr.Inner, ErrExpiredToken) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	payload, ok := jwtToken.Claims.(*Payload)
	if !ok {
		return nil, ErrInvalidToken
	}

	return payload, nil
}

func (t *Token) CheckTokenVars(vars map[string]string) (*Payload, error) {
	token, ok := vars["sessionToken"]
	if !ok {
		return nil, fmt.Errorf("missing parameter for sessionToken")
	}
	return t.VerifyToken(token)
}
