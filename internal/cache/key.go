package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Namespaces used for cache key derivation.
const (
	NamespaceSpeech = "speech"
	NamespaceImage  = "image"
)

// DeriveKey produces a stable cache key of the form "{namespace}:{md5hex}".
// Structured payloads are JSON-encoded with lexicographically sorted keys
// before hashing, so two semantically identical payloads with different field
// orders collapse to the same key. Opaque string/byte payloads hash raw.
//
// MD5 is used as a non-adversarial content fingerprint, not a security boundary.
func DeriveKey(namespace string, payload any) string {
	var data []byte

	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		// encoding/json sorts map keys, which gives the canonical form.
		encoded, err := json.Marshal(v)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", v))
		}
		data = encoded
	}

	sum := md5.Sum(data)
	return namespace + ":" + hex.EncodeToString(sum[:])
}
