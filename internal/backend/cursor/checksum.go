package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// ChecksumHeaderName returns the vendor-specific checksum header name,
// e.g. "X-Cursor-Checksum".
func ChecksumHeaderName(vendor string) string {
	return "X-" + vendor + "-Checksum"
}

// BuildChecksum derives the checksum header value: a millisecond
// timestamp, XOR-scrambled under a key rolled from the machine
// identifier, base64url-encoded, then concatenated with the machine
// identifier itself.
func BuildChecksum(machineID string, now time.Time) string {
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(now.UnixMilli()))
	scrambled := xorScramble(ts, rollingKey(machineID, len(ts)))
	return base64.RawURLEncoding.EncodeToString(scrambled) + machineID
}

// rollingKey derives an n-byte key stream from seed by repeatedly
// hashing, so the key does not simply repeat every len(seed) bytes.
func rollingKey(seed string, n int) []byte {
	key := make([]byte, 0, n)
	block := sha256.Sum256([]byte(seed))
	for len(key) < n {
		key = append(key, block[:]...)
		block = sha256.Sum256(block[:])
	}
	return key[:n]
}

func xorScramble(data, key []byte) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}

// ClientKey derives the x-client-key header value from an access token.
func ClientKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
