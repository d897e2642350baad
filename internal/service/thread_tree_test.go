package service

import (
	"strings"
	"testing"
	"time"

	"teamflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thread(id, messageID uint, repliedTo *uint, content string) *model.Thread {
	return &model.Thread{
		ID:          id,
		MessageID:   messageID,
		RepliedToID: repliedTo,
		UserID:      1,
		User:        &model.User{ID: 1, Username: "alice"},
		Content:     content,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, int(id), 0, time.UTC),
	}
}

// collect 深度优先收集森林中的全部节点
func collect(forest []*ThreadNode) []*ThreadNode {
	var out []*ThreadNode
	var walk func(nodes []*ThreadNode)
	walk = func(nodes []*ThreadNode) {
		for _, n := range nodes {
			out = append(out, n)
			walk(n.Replies)
		}
	}
	walk(forest)
	return out
}

func assertWellFormed(t *testing.T, forest []*ThreadNode, total int) {
	t.Helper()
	nodes := collect(forest)
	require.Len(t, nodes, total)

	seen := make(map[uint]bool, len(nodes))
	for _, n := range nodes {
		assert.False(t, seen[n.ID], "node %d appears twice", n.ID)
		seen[n.ID] = true
	}
	for _, n := range nodes {
		if n.RepliedToID != nil {
			assert.True(t, seen[*n.RepliedToID], "node %d references missing %d", n.ID, *n.RepliedToID)
		}
		for _, c := range n.Replies {
			require.NotNil(t, c.RepliedToID)
			assert.Equal(t, n.ID, *c.RepliedToID)
			assert.Equal(t, n.Depth+1, c.Depth)
		}
	}
	for _, r := range forest {
		assert.Zero(t, r.Depth)
		assert.Nil(t, r.RepliedToID)
		assert.Nil(t, r.RepliedToContent)
	}
}

func TestBuildThreadForestNested(t *testing.T) {
	threads := []*model.Thread{
		thread(1, 10, nil, "root"),
		thread(2, 10, uintPtr(1), "child"),
		thread(3, 10, uintPtr(2), "grandchild"),
		thread(4, 10, nil, "second root"),
	}
	forest := buildThreadForest(threads, map[uint][]ReactionView{
		2: {{Emoji: "👍", UserID: 1, User: "alice"}},
	})

	assertWellFormed(t, forest, 4)
	require.Len(t, forest, 2)
	assert.Equal(t, uint(1), forest[0].ID)
	assert.Equal(t, uint(4), forest[1].ID)

	child := forest[0].Replies[0]
	require.NotNil(t, child.RepliedToContent)
	assert.Equal(t, "root", *child.RepliedToContent)
	assert.Len(t, child.Reactions, 1)
	assert.Equal(t, 2, child.Replies[0].Depth)
	assert.NotNil(t, forest[1].Reactions)
	assert.NotNil(t, forest[1].Replies)
}

func TestBuildThreadForestDanglingReference(t *testing.T) {
	threads := []*model.Thread{
		thread(1, 10, uintPtr(99), "orphan"),
		thread(2, 10, uintPtr(1), "reply to orphan"),
	}
	forest := buildThreadForest(threads, nil)

	assertWellFormed(t, forest, 2)
	require.Len(t, forest, 1)
	assert.Nil(t, forest[0].RepliedToID)
}

func TestBuildThreadForestCycle(t *testing.T) {
	threads := []*model.Thread{
		thread(1, 10, uintPtr(3), "a"),
		thread(2, 10, uintPtr(1), "b"),
		thread(3, 10, uintPtr(2), "c"),
		thread(4, 10, uintPtr(4), "self"),
		thread(5, 10, uintPtr(2), "hangs off the cycle"),
	}
	forest := buildThreadForest(threads, nil)

	assertWellFormed(t, forest, 5)
	require.Len(t, forest, 2)
	assert.Equal(t, uint(1), forest[0].ID)
	assert.Equal(t, uint(4), forest[1].ID)
}

func TestBuildThreadForestEmpty(t *testing.T) {
	forest := buildThreadForest(nil, nil)
	assert.NotNil(t, forest)
	assert.Empty(t, forest)
}

func TestRepliedToContentTruncated(t *testing.T) {
	long := strings.Repeat("é", 150)
	forest := buildThreadForest([]*model.Thread{
		thread(1, 10, nil, long),
		thread(2, 10, uintPtr(1), "short"),
	}, nil)

	reply := forest[0].Replies[0]
	require.NotNil(t, reply.RepliedToContent)
	assert.Equal(t, strings.Repeat("é", 100), *reply.RepliedToContent)
}

func TestFindNode(t *testing.T) {
	forest := buildThreadForest([]*model.Thread{
		thread(1, 10, nil, "a"),
		thread(2, 10, uintPtr(1), "b"),
	}, nil)
	require.NotNil(t, findNode(forest, 2))
	assert.Nil(t, findNode(forest, 3))
}
