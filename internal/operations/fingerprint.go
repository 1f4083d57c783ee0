package operations

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"clinicalqc/internal/exporter"
	"clinicalqc/pkg/contracts/domain"
)

// Fingerprint returns the BLAKE2b-256 digest of the table's CSV form.
// Equal tables, as written to disk, have equal fingerprints.
func Fingerprint(t *domain.Table) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if err := exporter.WriteTable(h, t); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
