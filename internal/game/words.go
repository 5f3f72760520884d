package game

import (
	"errors"
	"math/rand"
	"strings"
)

var ErrNotEnoughWords = errors.New("not enough words for requested rounds")

// Embedded fallback lists, keyed by word length. The admin-managed database
// list takes precedence when it has enough entries for a length.
var defaultWords = map[int][]string{
	4: {
		"able", "acid", "arch", "bank", "bird", "blue", "bolt", "cake",
		"calm", "cave", "clay", "coal", "cold", "dark", "dawn", "deep",
		"dust", "echo", "fern", "fire", "flag", "foam", "fork", "gate",
		"gold", "hawk", "hill", "iron", "jade", "kite", "lake", "lamp",
		"leaf", "lime", "mask", "mist", "moon", "moss", "nest", "oval",
		"palm", "pine", "rain", "reef", "rose", "sand", "snow", "star",
		"tide", "wolf",
	},
	5: {
		"abode", "amber", "apple", "beach", "blaze", "brave", "brick",
		"charm", "chess", "cider", "cloud", "coral", "crane", "crisp",
		"daisy", "dream", "dusky", "eagle", "ember", "fable", "feast",
		"flame", "flora", "frost", "globe", "grape", "grove", "haven",
		"honey", "ivory", "jolly", "lemon", "light", "lunar", "maple",
		"march", "mirth", "ocean", "olive", "peach", "pearl", "plumb",
		"quilt", "raven", "ridge", "river", "slate", "spire", "stone",
		"storm", "swirl", "thorn", "tiger", "torch", "trail", "vivid",
		"wheat", "whisk", "woven", "zesty",
	},
	6: {
		"anchor", "arcade", "autumn", "basket", "bridge", "candle",
		"canyon", "cobalt", "copper", "dazzle", "embers", "falcon",
		"forest", "garden", "harbor", "indigo", "jungle", "lagoon",
		"locket", "marble", "meadow", "mirror", "nectar", "orchid",
		"pebble", "quartz", "ripple", "salmon", "shadow", "silver",
		"sphere", "spring", "summit", "sunset", "tangle", "thrive",
		"timber", "tundra", "velvet", "violet", "walnut", "winter",
		"wonder", "zephyr",
	},
}

// DefaultWords returns the embedded list for a length, or nil when the
// length is unsupported.
func DefaultWords(length int) []string {
	return defaultWords[length]
}

// PickSolutions draws n distinct solutions from pool. Words are normalized
// to lower case; duplicates in the pool are collapsed first.
func PickSolutions(pool []string, n int, rng *rand.Rand) ([]string, error) {
	seen := make(map[string]struct{}, len(pool))
	distinct := make([]string, 0, len(pool))
	for _, w := range pool {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		distinct = append(distinct, w)
	}
	if len(distinct) < n {
		return nil, ErrNotEnoughWords
	}
	rng.Shuffle(len(distinct), func(i, j int) {
		distinct[i], distinct[j] = distinct[j], distinct[i]
	})
	return distinct[:n], nil
}
