package auth

import "golang.org/x/crypto/bcrypt"

// BcryptVerifier is the default CredentialVerifier.
type BcryptVerifier struct{}

func (BcryptVerifier) Verify(hashedSecret, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
