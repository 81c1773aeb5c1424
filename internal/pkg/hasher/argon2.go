package hasher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Prefix = "$argon2id$"

	// Stored parameters outside these bounds mean a corrupt record.
	minArgon2KeyLen = 16
	maxArgon2Memory = 4 * 1024 * 1024
)

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Memory: 64 * 1024, Iterations: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}
}

// Argon2id encodes hashes in the PHC string format:
// $argon2id$v=19$m=<kib>,t=<iter>,p=<par>$<salt>$<hash>
type Argon2id struct {
	params Argon2Params
}

func NewArgon2id(params Argon2Params) (*Argon2id, error) {
	if params.Memory < 8*1024 {
		return nil, fmt.Errorf("argon2 memory must be at least 8192 KiB, got %d", params.Memory)
	}
	if params.Iterations < 1 || params.Parallelism < 1 {
		return nil, fmt.Errorf("argon2 iterations and parallelism must be positive")
	}
	if params.SaltLength < 16 || params.KeyLength < 16 {
		return nil, fmt.Errorf("argon2 salt and key length must be at least 16 bytes")
	}
	return &Argon2id{params: params}, nil
}

func (a *Argon2id) Hash(secret string) (string, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	p := a.params
	key := argon2.IDKey([]byte(secret), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix,
		argon2.Version,
		p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (a *Argon2id) Verify(secret, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, ErrUnknownFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrUnknownFormat
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, ErrUnknownFormat
	}
	if iterations < 1 || parallelism < 1 || memory < 8*uint32(parallelism) || memory > maxArgon2Memory {
		return false, ErrUnknownFormat
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false, ErrUnknownFormat
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) < minArgon2KeyLen {
		return false, ErrUnknownFormat
	}

	got := argon2.IDKey([]byte(secret), salt, iterations, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func (a *Argon2id) Recognizes(encoded string) bool {
	return strings.HasPrefix(encoded, argon2Prefix)
}
