// Package jptext holds Japanese-locale string helpers shared by the
// pipeline stages. Registry ids and review queues are ordered with a
// Japanese collator so that mixed kana/ASCII identifiers sort the same
// way the curation site displays them.
package jptext

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	mu   sync.Mutex
	coll = collate.New(language.Japanese)
)

// Compare returns -1, 0 or +1 ordering a before b under Japanese collation.
func Compare(a, b string) int {
	mu.Lock()
	defer mu.Unlock()
	return coll.CompareString(a, b)
}

// Less reports whether a sorts before b under Japanese collation.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}
