package server

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"math/big"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// CodeRegistry holds the codes the daemon will accept, keyed by user.
// All methods are safe for concurrent use.
type CodeRegistry struct {
	mu    sync.RWMutex
	codes map[string]string
}

// NewCodeRegistry creates an empty registry
func NewCodeRegistry() *CodeRegistry {
	return &CodeRegistry{
		codes: make(map[string]string),
	}
}

// Set stores or replaces the expected code for a user
func (r *CodeRegistry) Set(user, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[user] = code
}

// Remove drops a user from the registry
func (r *CodeRegistry) Remove(user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, user)
}

// Len returns the number of users with registered codes
func (r *CodeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codes)
}

// Users returns the registered user names in sorted order
func (r *CodeRegistry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.codes))
	for user := range r.codes {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}

// Check reports whether code is the expected code for user. The comparison
// runs in constant time over digests so neither code length nor a partial
// match leaks through timing; unknown users burn the same work.
func (r *CodeRegistry) Check(user, code string) bool {
	r.mu.RLock()
	expected, ok := r.codes[user]
	r.mu.RUnlock()

	expectedSum := sha256.Sum256([]byte(expected))
	gotSum := sha256.Sum256([]byte(code))
	match := subtle.ConstantTimeCompare(expectedSum[:], gotSum[:]) == 1

	return ok && match
}

// codesFile is the on-disk YAML shape for LoadFile
type codesFile struct {
	Users map[string]string `yaml:"users"`
}

// LoadFile merges user codes from a YAML file into the registry.
//
// Expected format:
//
//	users:
//	  alice: "123456"
//	  bob: "654321"
func (r *CodeRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read codes file: %w", err)
	}

	var parsed codesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse codes file: %w", err)
	}
	if len(parsed.Users) == 0 {
		return fmt.Errorf("codes file %s lists no users", path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for user, code := range parsed.Users {
		if user == "" || code == "" {
			return fmt.Errorf("codes file %s has an empty user or code entry", path)
		}
		r.codes[user] = code
	}
	return nil
}

// GenerateCode returns a random numeric code of the given length using
// crypto/rand. Each digit is drawn independently so there is no modulo
// bias.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}

	ten := big.NewInt(10)
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to read random digit: %w", err)
		}
		digits[i] = '0' + byte(n.Int64())
	}
	return string(digits), nil
}

// GenerateFor creates a fresh random code for a user, stores it and
// returns it so the operator can hand it out
func (r *CodeRegistry) GenerateFor(user string, length int) (string, error) {
	code, err := GenerateCode(length)
	if err != nil {
		return "", err
	}
	r.Set(user, code)
	return code, nil
}
