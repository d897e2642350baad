package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"teamflow/internal/service"
	"teamflow/pkg/websocket"
)

func (r *Router) handleJoin(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p roomPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	if _, err := r.svc.Channels.Get(ctx, p.Channel); err != nil {
		return err
	}

	room := websocket.ChannelRoom(p.Channel)
	if r.manager.Join(c, room) {
		r.manager.Broadcast(room, websocket.Event{
			Type: service.EventStatus,
			Data: map[string]string{"msg": fmt.Sprintf("%s has joined the channel.", c.Username)},
		})
	}

	history, err := r.svc.Messages.History(ctx, p.Channel, r.opts.HistoryLimit)
	if err != nil {
		return err
	}
	for _, m := range history {
		r.send(c, service.EventMessage, m)
	}
	return nil
}

func (r *Router) handleLeave(_ context.Context, c *websocket.Client, data json.RawMessage) error {
	var p roomPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	room := websocket.ChannelRoom(p.Channel)
	if !r.manager.InRoom(c, room) {
		return nil
	}
	r.manager.Leave(c, room)
	r.manager.Broadcast(room, websocket.Event{
		Type: service.EventStatus,
		Data: map[string]string{"msg": fmt.Sprintf("%s has left the channel.", c.Username)},
	})
	return nil
}

func (r *Router) handleMessage(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p messagePayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}

	in := service.PostMessageInput{
		ChannelID: p.ChannelID,
		UserID:    c.UserID,
		Content:   p.Content,
		ParentID:  p.ParentID,
	}
	if p.File != nil {
		if r.svc.Files == nil {
			return service.NewValidationError("File uploads are disabled")
		}
		raw, contentType, err := service.DecodeDataURL(p.File.Data)
		if err != nil {
			return err
		}
		if err := r.svc.Messages.Precheck(ctx, &in); err != nil {
			return err
		}
		att, err := r.svc.Files.Store(ctx, service.UploadedFile{
			Name:        filepath.Base(p.File.Name),
			ContentType: contentType,
			Data:        raw,
		}, c.Username, fmt.Sprintf("%d", p.ChannelID))
		if err != nil {
			return err
		}
		in.Attachment = att
	}

	if _, err := r.svc.Messages.Post(ctx, in); err != nil {
		if in.Attachment != nil {
			r.svc.Files.Discard(in.Attachment)
		}
		return err
	}
	return nil
}

func (r *Router) handleThreadReply(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p threadReplyPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	_, err := r.svc.Threads.Reply(ctx, service.ThreadReplyInput{
		MessageID:   p.ParentID,
		UserID:      c.UserID,
		Content:     p.Content,
		RepliedToID: p.RepliedToID,
	})
	return err
}

func (r *Router) handleThreadHistory(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p messageRefPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	forest, err := r.svc.Threads.History(ctx, p.MessageID)
	if err != nil {
		return err
	}
	r.send(c, service.EventThreadHistory, map[string]interface{}{
		"message_id": p.MessageID,
		"threads":    forest,
	})
	return nil
}

func (r *Router) handleReaction(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p reactionPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	_, err := r.svc.Reactions.Toggle(ctx, service.ReactionInput{
		TargetID: p.MessageID,
		IsThread: p.IsThread,
		Emoji:    p.Emoji,
		UserID:   c.UserID,
		Username: c.Username,
	})
	return err
}

func (r *Router) handlePin(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p messageRefPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	_, err := r.svc.Messages.TogglePin(ctx, c.UserID, p.MessageID)
	return err
}

func (r *Router) handleBookmark(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p bookmarkPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	_, err := r.svc.Bookmarks.Toggle(ctx, c.UserID, p.MessageID, p.Note)
	return err
}

func (r *Router) handleDeleteMessage(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p messageRefPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	return r.svc.Messages.Delete(ctx, c.UserID, p.MessageID)
}

func (r *Router) handleCreateChannel(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p createChannelPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	_, err := r.svc.Channels.Create(ctx, c.UserID, p.Name, p.Description)
	return err
}

func (r *Router) handleChannelInfo(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p channelRefPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	info, err := r.svc.Channels.Info(ctx, p.ChannelID)
	if err != nil {
		return err
	}
	r.send(c, service.EventChannelInfo, info)
	return nil
}

func (r *Router) handleGetUserStatus(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p userStatusPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	status, err := r.svc.Users.Status(ctx, p.Username)
	if err != nil {
		return err
	}
	r.send(c, service.EventUserStatus, status)
	return nil
}

func (r *Router) handleUpdateCustomStatus(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p customStatusPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	return r.svc.Users.UpdateCustomStatus(ctx, c.UserID, p.Status, p.Emoji)
}

func (r *Router) handleSearch(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p searchPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	results, err := r.svc.Search.Search(ctx, service.SearchQuery{
		Keyword:        p.Keyword,
		Username:       p.Username,
		ChannelID:      p.ChannelID,
		DateFrom:       p.DateFrom,
		DateTo:         p.DateTo,
		IncludeThreads: p.IncludeThreads,
	})
	if err != nil {
		return err
	}
	// 空关键字不回包
	if results == nil {
		return nil
	}
	r.send(c, service.EventSearchResults, map[string]interface{}{
		"keyword": p.Keyword,
		"results": results,
	})
	return nil
}

func (r *Router) handleHeartbeat(ctx context.Context, c *websocket.Client, data json.RawMessage) error {
	var p heartbeatPayload
	if err := r.decodeInto(data, &p); err != nil {
		return err
	}
	r.svc.Presence.Heartbeat(ctx, c.UserID, c.Username)
	r.send(c, service.EventHeartbeatAck, map[string]interface{}{})
	return nil
}
