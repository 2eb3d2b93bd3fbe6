package helpers

import (
	"math/rand"
	"time"
)

// Fataler is satisfied by *testing.T and *log2.Log.
type Fataler interface {
	Fatal(...interface{})
}

// RandUnix is seeded by current time, tests should log the values they use.
func RandUnix() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
