package auth

import "golang.org/x/crypto/bcrypt"

// disabledPassword marks accounts that cannot log in with a password,
// such as users provisioned from inbound email.
const disabledPassword = "!disabled"

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// DisabledPasswordHash returns the sentinel stored for accounts without a
// usable password. It never matches any bcrypt comparison.
func DisabledPasswordHash() string {
	return disabledPassword
}

// PasswordDisabled reports whether the stored hash is the sentinel.
func PasswordDisabled(hash string) bool {
	return hash == disabledPassword
}
