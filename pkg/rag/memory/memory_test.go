package memory

import (
	"fmt"
	"sync"
	"testing"
)

func TestAppendAssignsSequence(t *testing.T) {
	c := NewConversation()

	first := c.Append("q1", "a1")
	second := c.Append("q2", "a2")

	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("Seq = %d,%d, want 1,2", first.Seq, second.Seq)
	}
	if first.CreatedAt.IsZero() {
		t.Error("CreatedAt not assigned")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestHistoryWindowsOldestFirst(t *testing.T) {
	c := NewConversation()
	for i := 1; i <= 5; i++ {
		c.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	tests := []struct {
		name     string
		maxTurns int
		wantSeqs []int
	}{
		{name: "window smaller than transcript", maxTurns: 2, wantSeqs: []int{4, 5}},
		{name: "window larger than transcript", maxTurns: 10, wantSeqs: []int{1, 2, 3, 4, 5}},
		{name: "zero means all", maxTurns: 0, wantSeqs: []int{1, 2, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.History(tt.maxTurns)
			if len(got) != len(tt.wantSeqs) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.wantSeqs))
			}
			for i, want := range tt.wantSeqs {
				if got[i].Seq != want {
					t.Errorf("got[%d].Seq = %d, want %d", i, got[i].Seq, want)
				}
			}
		})
	}
}

func TestAllReturnsCopy(t *testing.T) {
	c := NewConversation()
	c.Append("q", "a")

	turns := c.All()
	turns[0].Answer = "mutated"

	if c.All()[0].Answer != "a" {
		t.Error("All leaked internal storage")
	}
}

func TestConcurrentAppendKeepsEveryTurn(t *testing.T) {
	c := NewConversation()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Append(fmt.Sprintf("q%d", n), "a")
		}(i)
	}
	wg.Wait()

	if c.Len() != 50 {
		t.Fatalf("Len = %d, want 50", c.Len())
	}
	seen := make(map[int]bool)
	for _, turn := range c.All() {
		if seen[turn.Seq] {
			t.Errorf("duplicate Seq %d", turn.Seq)
		}
		seen[turn.Seq] = true
	}
}
