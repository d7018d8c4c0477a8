package security

import (
	"golang.org/x/crypto/bcrypt"

	authservice "github.com/slogsolutions/WebBuyer/internal/app/services/auth"
)

// BcryptHasher backs the auth service's password port.
type BcryptHasher struct {
	Cost int
}

var _ authservice.PasswordHasher = BcryptHasher{}

func (h BcryptHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (h BcryptHasher) cost() int {
	if h.Cost >= bcrypt.MinCost {
		return h.Cost
	}
	return bcrypt.DefaultCost
}
