/*
Package randx provides functions for generating cryptographically secure random identifiers.

It generates fixed-length lowercase-hex room ids, prefixed client ids, and
pseudonymous display names for clients that arrive without one.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// HexChars defines the character set used for room ids.
	HexChars = "0123456789abcdef"

	// RoomIDLength is the fixed length of a generated room id.
	RoomIDLength = 8

	// ClientIDPrefix is the required prefix for generated client ids.
	ClientIDPrefix = "client_"

	// ClientIDChars defines the character set for the random part of a client id.
	ClientIDChars = "abcdefghijklmnopqrstuvwxyz0123456789"

	// ClientIDRawLength is the fixed length of the random part of a client id.
	ClientIDRawLength = 9
)

// adjectives and nouns feed the pseudonymous display-name generator.
var adjectives = []string{
	"Funky", "Groovy", "Electric", "Cosmic", "Disco", "Neon",
	"Retro", "Stellar", "Jazzy", "Vibrant", "Rhythmic", "Melodic",
	"Sonic", "Dynamic",
}

var nouns = []string{
	"Beats", "Rhythm", "Vibes", "Groove", "Tempo", "Harmony",
	"Sound", "Wave", "Flow", "Pulse", "Chords", "Bass", "Echo", "Dancer",
}

// randomFrom picks count random characters from the given character set
// using crypto/rand.
func randomFrom(charset string, count int) (string, error) {
	setLen := big.NewInt(int64(len(charset)))
	result := make([]byte, count)

	for i := 0; i < count; i++ {
		num, err := rand.Int(rand.Reader, setLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random index: %w", err)
		}
		result[i] = charset[num.Int64()]
	}

	return string(result), nil
}

// RoomID generates a lowercase-hex room id of length RoomIDLength.
func RoomID() (string, error) {
	return randomFrom(HexChars, RoomIDLength)
}

// ClientID generates a prefixed client id, e.g. "client_x7kq20ab3".
func ClientID() (string, error) {
	raw, err := randomFrom(ClientIDChars, ClientIDRawLength)
	if err != nil {
		return "", err
	}
	return ClientIDPrefix + raw, nil
}

// DisplayName generates a pseudonymous display name such as "FunkyBeats42".
func DisplayName() (string, error) {
	adjIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(adjectives))))
	if err != nil {
		return "", fmt.Errorf("failed to generate display name: %w", err)
	}

	nounIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(nouns))))
	if err != nil {
		return "", fmt.Errorf("failed to generate display name: %w", err)
	}

	num, err := rand.Int(rand.Reader, big.NewInt(99))
	if err != nil {
		return "", fmt.Errorf("failed to generate display name: %w", err)
	}

	return fmt.Sprintf("%s%s%d", adjectives[adjIdx.Int64()], nouns[nounIdx.Int64()], num.Int64()+1), nil
}

// IsValidRoomID checks that the given string is a well-formed room id:
// exactly RoomIDLength characters, all lowercase hex.
func IsValidRoomID(id string) bool {
	if len(id) != RoomIDLength {
		return false
	}

	for _, char := range id {
		if !strings.ContainsRune(HexChars, char) {
			return false
		}
	}

	return true
}

// IsValidClientID checks that the given string is a well-formed client id.
func IsValidClientID(id string) bool {
	if !strings.HasPrefix(id, ClientIDPrefix) {
		return false
	}

	rawID := id[len(ClientIDPrefix):]

	if len(rawID) != ClientIDRawLength {
		return false
	}

	for _, char := range rawID {
		if !strings.ContainsRune(ClientIDChars, char) {
			return false
		}
	}

	return true
}
