package crypto

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// EIP55 computes the checksummed hex string for a 20-byte address. API
// responses render addresses this way so wallet UIs can compare them
// byte-for-byte.
func EIP55(addr20 []byte) string {
	hexaddr := hex.EncodeToString(addr20)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(hexaddr))
	hash := h.Sum(nil)

	out := make([]byte, 2+len(hexaddr))
	copy(out, "0x")
	for i, c := range []byte(hexaddr) {
		if c >= '0' && c <= '9' {
			out[2+i] = c
			continue
		}
		// each hex char maps to 4 bits; i>>1 picks the hash byte,
		// even/odd picks the high/low nibble
		nibble := hash[i>>1]
		if i%2 == 0 {
			nibble = (nibble >> 4) & 0x0f
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[2+i] = byte(strings.ToUpper(string(c))[0])
		} else {
			out[2+i] = c
		}
	}
	return string(out)
}
