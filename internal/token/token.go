package token

import "github.com/google/uuid"

// Generate returns a new claim token: a random version 4 UUID carrying 122
// bits of entropy. It panics if the system entropy source fails.
func Generate() string {
	return uuid.Must(uuid.NewRandom()).String()
}
