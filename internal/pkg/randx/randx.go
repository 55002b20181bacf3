/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is primarily used to generate the temporary ids attached to optimistic local messages
before the server acknowledges them, and the Base62 instance id that distinguishes
concurrent sessions of the same account.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// TempIDPrefix is the prefix carried by every locally generated temporary message id.
	TempIDPrefix = "tmp_"

	// InstanceIDLength is the fixed length of the Base62 session instance id.
	InstanceIDLength = 8
)

// TempID generates a temporary message identifier: the TempIDPrefix followed by a
// UUID v4 string. The temp id stays attached to an optimistic local message so
// delivery acknowledgements and realtime echoes can match it.
func TempID() string {
	return TempIDPrefix + uuid.New().String()
}

// IsTempID reports whether the given identifier is a locally generated temporary id.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// InstanceID generates a Base62 encoded session instance id using a cryptographically
// secure random number generator (crypto/rand). Two browser tabs or devices signed in
// as the same user get distinct instance ids, which is what makes echoed self-messages
// from another session distinguishable in logs.
func InstanceID() (string, error) {
	result := make([]byte, InstanceIDLength)

	for i := 0; i < InstanceIDLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for instance id: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}
