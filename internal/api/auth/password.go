package auth

import "golang.org/x/crypto/bcrypt"

// HashToken wraps bcrypt.GenerateFromPassword. The output is what ADMIN_TOKEN_HASH holds.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyToken wraps bcrypt.CompareHashAndPassword.
func VerifyToken(hash, token string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
