package config

import (
	"fmt"
	"log"
	"strings"
)

// Requirement records whether a mandatory env var ended up with a value.
type Requirement struct {
	Env string
	Set bool
}

func NonEmpty(envName, value string) Requirement {
	return Requirement{Env: envName, Set: strings.TrimSpace(value) != ""}
}

func NonEmptyBytes(envName string, value []byte) Requirement {
	return Requirement{Env: envName, Set: len(value) > 0}
}

// Check reports every unset requirement at once, in the order given.
func Check(reqs ...Requirement) error {
	var missing []string
	for _, r := range reqs {
		if !r.Set {
			missing = append(missing, r.Env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MustCheck exits the process through log.Fatal when Check fails.
func MustCheck(reqs ...Requirement) {
	if err := Check(reqs...); err != nil {
		log.Fatal(err)
	}
}
