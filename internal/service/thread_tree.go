package service

import (
	"sort"

	"teamflow/internal/model"
)

const repliedToPreviewLen = 100

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// buildThreadForest 用下标索引重建同一顶层消息下的话题回复森林
// threads 需按创建时间正序；replied_to_id 在组内无法解析的节点提升为根并清空引用；
// 环上的节点从未被根访问到，按创建顺序依次提升为根，保证每个节点只出现一次
func buildThreadForest(threads []*model.Thread, reactions map[uint][]ReactionView) []*ThreadNode {
	index := make(map[uint]int, len(threads))
	for i, t := range threads {
		index[t.ID] = i
	}

	parent := make([]int, len(threads))
	children := make([][]int, len(threads))
	for i, t := range threads {
		parent[i] = -1
		if t.RepliedToID != nil {
			if j, ok := index[*t.RepliedToID]; ok && j != i {
				parent[i] = j
				children[j] = append(children[j], i)
			}
		}
	}

	nodes := make([]*ThreadNode, len(threads))
	visited := make([]bool, len(threads))

	var visit func(i, depth int)
	visit = func(i, depth int) {
		visited[i] = true
		t := threads[i]
		node := &ThreadNode{
			ID:        t.ID,
			MessageID: t.MessageID,
			Content:   t.Content,
			User:      username(t.User),
			UserID:    t.UserID,
			Timestamp: formatTime(t.CreatedAt),
			Depth:     depth,
			Reactions: reactions[t.ID],
			Replies:   []*ThreadNode{},
		}
		if node.Reactions == nil {
			node.Reactions = []ReactionView{}
		}
		if p := parent[i]; p >= 0 {
			id := threads[p].ID
			preview := truncateRunes(threads[p].Content, repliedToPreviewLen)
			node.RepliedToID = &id
			node.RepliedToContent = &preview
		}
		nodes[i] = node

		for _, c := range children[i] {
			if visited[c] {
				continue
			}
			visit(c, depth+1)
			node.Replies = append(node.Replies, nodes[c])
		}
	}

	roots := make([]int, 0)
	for i := range threads {
		if parent[i] < 0 {
			roots = append(roots, i)
			visit(i, 0)
		}
	}
	for i := range threads {
		if !visited[i] {
			parent[i] = -1
			roots = append(roots, i)
			visit(i, 0)
		}
	}
	sort.Ints(roots)

	forest := make([]*ThreadNode, 0, len(roots))
	for _, i := range roots {
		forest = append(forest, nodes[i])
	}
	return forest
}

// findNode 在森林中按ID查找节点
func findNode(forest []*ThreadNode, id uint) *ThreadNode {
	stack := append([]*ThreadNode(nil), forest...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.ID == id {
			return n
		}
		stack = append(stack, n.Replies...)
	}
	return nil
}
