package service

import (
	"context"

	"teamflow/internal/model"
	"teamflow/internal/repository"
)

// viewAssembler 批量加载回应、话题与回复，组装消息的完整表示
type viewAssembler struct {
	messages  *repository.MessageRepository
	threads   *repository.ThreadRepository
	reactions *repository.ReactionRepository
}

func (a *viewAssembler) assemble(ctx context.Context, msgs []*model.Message, withReplies bool) ([]*MessageView, error) {
	views := make([]*MessageView, 0, len(msgs))
	if len(msgs) == 0 {
		return views, nil
	}

	ids := make([]uint, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}

	msgReactions, err := a.reactions.ListForTargets(ctx, model.TargetMessage, ids)
	if err != nil {
		return nil, err
	}
	reactionsByMessage := groupReactions(msgReactions)

	forests, err := a.threadForests(ctx, ids)
	if err != nil {
		return nil, err
	}

	repliesByParent := map[uint][]*MessageView{}
	if withReplies {
		replies, err := a.messages.ListReplies(ctx, ids)
		if err != nil {
			return nil, err
		}
		replyViews, err := a.assemble(ctx, replies, false)
		if err != nil {
			return nil, err
		}
		for i, r := range replies {
			repliesByParent[*r.ParentID] = append(repliesByParent[*r.ParentID], replyViews[i])
		}
	}

	for _, m := range msgs {
		v := newMessageView(m)
		if rs, ok := reactionsByMessage[m.ID]; ok {
			v.Reactions = rs
		}
		if f, ok := forests[m.ID]; ok {
			v.Threads = f
		}
		if rs, ok := repliesByParent[m.ID]; ok {
			v.Replies = rs
		}
		views = append(views, v)
	}
	return views, nil
}

// threadForests 每个顶层消息的话题回复森林
func (a *viewAssembler) threadForests(ctx context.Context, messageIDs []uint) (map[uint][]*ThreadNode, error) {
	threads, err := a.threads.ListByMessages(ctx, messageIDs)
	if err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		return map[uint][]*ThreadNode{}, nil
	}

	threadIDs := make([]uint, 0, len(threads))
	groups := make(map[uint][]*model.Thread)
	for _, t := range threads {
		threadIDs = append(threadIDs, t.ID)
		groups[t.MessageID] = append(groups[t.MessageID], t)
	}

	threadReactions, err := a.reactions.ListForTargets(ctx, model.TargetThread, threadIDs)
	if err != nil {
		return nil, err
	}
	reactionsByThread := groupReactions(threadReactions)

	forests := make(map[uint][]*ThreadNode, len(groups))
	for messageID, group := range groups {
		forests[messageID] = buildThreadForest(group, reactionsByThread)
	}
	return forests, nil
}

func groupReactions(reactions []*model.Reaction) map[uint][]ReactionView {
	grouped := make(map[uint][]*model.Reaction)
	for _, r := range reactions {
		grouped[r.TargetID] = append(grouped[r.TargetID], r)
	}
	out := make(map[uint][]ReactionView, len(grouped))
	for id, rs := range grouped {
		out[id] = newReactionViews(rs)
	}
	return out
}
