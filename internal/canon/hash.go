package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity, mirroring the
// teacher's domain-separated hashing in internal/ir/hash.go.
const (
	DomainStream   = "gdsl/stream/v1"
	DomainReport   = "gdsl/report/v1"
	DomainManifest = "gdsl/diff-manifest/v1"
)

// hashWithDomain computes SHA-256(domain || 0x00 || data). The null
// separator prevents ambiguity at the domain/data boundary.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StreamHash hashes a raw GDSL instruction stream directly — no
// canonical-JSON step, since the stream is already a fixed byte
// sequence. It is exposed here, alongside the JSON hashers, because
// history treats it as the same family of content-addressed identity.
func StreamHash(stream []byte) string {
	return hashWithDomain(DomainStream, stream)
}

// ReportHash computes a content-addressed id for a verification
// report, canonicalized so two runs over byte-identical streams at
// the same level hash identically.
func ReportHash(report map[string]any) (string, error) {
	canonical, err := Marshal(report)
	if err != nil {
		return "", fmt.Errorf("canon: ReportHash: %w", err)
	}
	return hashWithDomain(DomainReport, canonical), nil
}

// ManifestHash computes a content-addressed id for a diff manifest
// (header plus chunk table, not the payload bytes — the payload is
// addressed by the base/target hashes already in the manifest).
func ManifestHash(manifest map[string]any) (string, error) {
	canonical, err := Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("canon: ManifestHash: %w", err)
	}
	return hashWithDomain(DomainManifest, canonical), nil
}
