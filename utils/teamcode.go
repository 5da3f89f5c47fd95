package utils

import (
	"crypto/rand"
	"math/big"
)

const TeamCodeLength = 8

// GenerateTeamCode returns a random join code. Uniqueness is enforced
// by the caller against the team_code unique index, retrying on
// collision.
func GenerateTeamCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O, 1/I
	code := make([]byte, TeamCodeLength)

	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		code[i] = alphabet[num.Int64()]
	}

	return string(code), nil
}
