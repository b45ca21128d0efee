// Package fingerprint implements spec.md §4.5's fingerprint operation:
// the hex digest of the source byte stream as received (not of decoded
// pixels). MD5 is the spec's "out of scope" hash primitive (§1),
// reached behind a narrow Fingerprinter interface so a different
// algorithm could be substituted without touching the pipeline.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// Algorithm is a recognized fingerprint type, spec.md §4.5. Only MD5 is
// accepted today.
type Algorithm string

const MD5 Algorithm = "md5"

// Fingerprinter computes a hex digest of raw bytes under a named
// algorithm.
type Fingerprinter interface {
	Fingerprint(algo Algorithm, data []byte) (string, error)
}

// MD5Fingerprinter is the stdlib-backed Fingerprinter Arion uses by
// default.
type MD5Fingerprinter struct{}

// Fingerprint returns the lowercase hex MD5 digest of data. algo must be
// MD5; any other value is an error, matching spec.md §4.5 ("currently
// `md5` is the only accepted value").
func (MD5Fingerprinter) Fingerprint(algo Algorithm, data []byte) (string, error) {
	if algo != MD5 {
		return "", fmt.Errorf("unsupported fingerprint type %q", algo)
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// Sum is a convenience wrapper for the common MD5 case, used by the
// source loader to populate TopResult.md5 (SPEC_FULL.md) independent of
// any fingerprint operation in the request.
func Sum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
