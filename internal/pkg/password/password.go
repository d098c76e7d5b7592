// Package password hashes user login passwords with bcrypt. Share
// codes are hashed separately with Argon2id in pkg/sharecode; bcrypt
// stays here because login passwords fit under its 72 byte input cap
// and the stored digests predate the sharing feature.
package password

import "golang.org/x/crypto/bcrypt"

const hashCost = bcrypt.DefaultCost

func Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
