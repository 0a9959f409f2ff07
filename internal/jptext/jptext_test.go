package jptext

import (
	"sort"
	"sync"
	"testing"
)

func TestCompareOrdersASCII(t *testing.T) {
	t.Parallel()

	if Compare("src-a", "src-b") >= 0 {
		t.Fatal("src-a must sort before src-b")
	}
	if Compare("src-a", "src-a") != 0 {
		t.Fatal("equal strings must compare equal")
	}
	if !Less("src-1", "src-2") {
		t.Fatal("src-1 must sort before src-2")
	}
}

func TestCompareOrdersKana(t *testing.T) {
	t.Parallel()

	ids := []string{"ポケモン", "あいうえお", "デジモン", "abc"}
	sort.Slice(ids, func(i, j int) bool { return Less(ids[i], ids[j]) })

	for i := 1; i < len(ids); i++ {
		if Compare(ids[i-1], ids[i]) > 0 {
			t.Fatalf("not sorted at %d: %v", i, ids)
		}
	}
}

func TestCompareConcurrentUse(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = Less("ソース甲", "ソース乙")
				_ = Compare("src-a", "src-b")
			}
		}()
	}
	wg.Wait()
}
