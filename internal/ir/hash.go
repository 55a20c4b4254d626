package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// Domain prefixes for content-addressed identity. The version suffix
// leaves room for algorithm migration.
const (
	DomainModel      = "cellsim/model/v1"
	DomainCheckpoint = "cellsim/checkpoint/v1"
)

// genericJSON decodes numbers as json.Number so no precision is lost
// between the model and its canonical form.
var genericJSON = jsoniter.Config{
	EscapeHTML:             false,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Canonicalize renders any JSON-serializable value as canonical JSON by
// round-tripping it through its generic form.
func Canonicalize(v any) ([]byte, error) {
	raw, err := genericJSON.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var generic any
	if err := genericJSON.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode generic: %w", err)
	}
	return MarshalCanonical(generic)
}

// ModelHash computes the content hash of a model. Two models with the same
// hash build identical simulations.
func ModelHash(m *Model) (string, error) {
	canonical, err := Canonicalize(m)
	if err != nil {
		return "", fmt.Errorf("ModelHash: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

// CheckpointHash computes the content hash of a checkpoint payload.
func CheckpointHash(payload any) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", fmt.Errorf("CheckpointHash: %w", err)
	}
	return hashWithDomain(DomainCheckpoint, canonical), nil
}

// MustModelHash is like ModelHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustModelHash(m *Model) string {
	h, err := ModelHash(m)
	if err != nil {
		panic(err)
	}
	return h
}
