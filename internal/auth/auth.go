package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// JWTClaims defines the payload for the JWT. ActorID is the uid for
// patients, drivers and admins; pharmacy accounts use their pharmacy id so
// that routing events address the pharmacy, not the person.
type JWTClaims struct {
	UID        string `json:"uid"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	PharmacyID string `json:"pharmacyId,omitempty"`
	jwt.RegisteredClaims
}

// ActorID is the identity the websocket hub and the routing engine use.
func (c *JWTClaims) ActorID() string {
	if c.PharmacyID != "" {
		return c.PharmacyID
	}
	return c.UID
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// JwtSecret is overwritten from config at startup.
var JwtSecret = []byte("YOUR_SUPER_SECRET_KEY")

func GenerateJWT(uid, email, role, pharmacyID string, expiration time.Duration) (string, error) {
	claims := &JWTClaims{
		UID:        uid,
		Email:      email,
		Role:       role,
		PharmacyID: pharmacyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JwtSecret)
}
