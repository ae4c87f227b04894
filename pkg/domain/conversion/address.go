package conversion

import (
	"encoding/hex"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/sha3"
)

var validate = validator.New()

// ValidateAddress accepts "0x" followed by 40 hex characters, in any case.
func ValidateAddress(addr string) error {
	if err := validate.Var(addr, "required,eth_addr"); err != nil {
		return ErrInvalidAddress
	}
	return nil
}

// ChecksumAddress returns the EIP-55 mixed-case form of a valid address.
// Invalid input is returned unchanged.
func ChecksumAddress(addr string) string {
	if ValidateAddress(addr) != nil {
		return addr
	}
	lower := strings.ToLower(addr[2:])
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := hex.EncodeToString(h.Sum(nil))

	out := []byte(lower)
	for i, c := range out {
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			out[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(out)
}
