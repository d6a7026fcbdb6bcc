package utils

import (
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator hands out names that are unique among the names
// it produced and the ones registered with Reserve
type RandomNameGenerator map[string]struct{}

func (rng *RandomNameGenerator) init() {
	if *rng == nil {
		*rng = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
}

// Reserve marks an existing name as taken
func (rng *RandomNameGenerator) Reserve(name string) {
	rng.init()
	(*rng)[name] = struct{}{}
}

func (rng *RandomNameGenerator) RandomName() string {
	rng.init()
	for {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := (*rng)[name]; !exists {
			(*rng)[name] = struct{}{}
			return name
		}
	}
}
