package utils

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 12

var (
	ErrUnknownStaff = errors.New("no credential configured for handle")
	ErrPINMismatch  = errors.New("pin does not match")
)

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ParseCredentials reads "@handle:bcrypt-hash" pairs separated by commas.
func ParseCredentials(spec string) (map[string]string, error) {
	creds := make(map[string]string)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		handle, hash, ok := strings.Cut(pair, ":")
		handle, hash = strings.TrimSpace(handle), strings.TrimSpace(hash)
		if !ok || handle == "" || hash == "" {
			return nil, fmt.Errorf("malformed credential entry %q", pair)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("credential for %s is not a bcrypt hash: %w", handle, err)
		}
		if !strings.HasPrefix(handle, "@") {
			handle = "@" + handle
		}
		creds[handle] = hash
	}
	return creds, nil
}

// PINVerifier checks staff PINs against configured bcrypt hashes.
type PINVerifier struct {
	hashes map[string]string
}

func NewPINVerifier(hashes map[string]string) *PINVerifier {
	return &PINVerifier{hashes: hashes}
}

func (v *PINVerifier) Verify(handle, pin string) error {
	hash, ok := v.hashes[handle]
	if !ok {
		return ErrUnknownStaff
	}
	if !CheckPasswordHash(pin, hash) {
		return ErrPINMismatch
	}
	return nil
}
