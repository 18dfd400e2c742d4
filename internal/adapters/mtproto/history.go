package mtproto

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/infra/metrics"
)

// History реализует domain.ChatHistory через MTProto. Bot API не умеет ни
// читать историю канала, ни перечислять проголосовавших реакциями, поэтому
// восстановление опросов ходит в Telegram через gotd.
type History struct {
	client *telegram.Client
	token  string
	alias  string
	log    zerolog.Logger
}

var _ domain.ChatHistory = (*History)(nil)

// NewHistory создаёт MTProto клиент с файловой сессией.
func NewHistory(apiID int, apiHash, botToken, channelAlias, sessionPath string, log zerolog.Logger) *History {
	client := telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: sessionPath},
	})
	return &History{client: client, token: botToken, alias: channelAlias, log: log}
}

func (h *History) run(ctx context.Context, fn func(ctx context.Context, api *tg.Client) error) error {
	return h.client.Run(ctx, func(ctx context.Context) error {
		status, err := h.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("статус авторизации: %w", err)
		}
		if !status.Authorized {
			if _, err := h.client.Auth().Bot(ctx, h.token); err != nil {
				return fmt.Errorf("бот-авторизация: %w", err)
			}
		}
		return fn(ctx, h.client.API())
	})
}

func (h *History) resolvePeer(ctx context.Context, api *tg.Client) (*tg.InputPeerChannel, error) {
	resolved, err := api.ContactsResolveUsername(ctx, h.alias)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", h.alias, err)
	}
	for _, chat := range resolved.Chats {
		if channel, ok := chat.(*tg.Channel); ok {
			return &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}, nil
		}
	}
	return nil, fmt.Errorf("канал %s не найден среди чатов", h.alias)
}

// RecentMessages возвращает последние сообщения командного канала. Аргумент
// chatID не используется: адаптер привязан к каналу из конфигурации.
func (h *History) RecentMessages(ctx context.Context, _ int64, limit int) ([]domain.ChannelMessage, error) {
	var out []domain.ChannelMessage
	start := time.Now()
	err := h.run(ctx, func(ctx context.Context, api *tg.Client) error {
		peer, err := h.resolvePeer(ctx, api)
		if err != nil {
			return err
		}
		self, err := h.client.Self(ctx)
		if err != nil {
			return fmt.Errorf("собственный профиль: %w", err)
		}
		history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{Peer: peer, Limit: limit})
		if err != nil {
			return fmt.Errorf("чтение истории: %w", err)
		}
		out = collectMessages(history, self.ID)
		return nil
	})
	metrics.ObserveNetworkRequest("mtproto", "get_history", h.alias, start, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func collectMessages(history tg.MessagesMessagesClass, selfID int64) []domain.ChannelMessage {
	var raw []tg.MessageClass
	switch m := history.(type) {
	case *tg.MessagesChannelMessages:
		raw = m.Messages
	case *tg.MessagesMessagesSlice:
		raw = m.Messages
	case *tg.MessagesMessages:
		raw = m.Messages
	}

	var out []domain.ChannelMessage
	for _, mc := range raw {
		msg, ok := mc.(*tg.Message)
		if !ok || msg.Message == "" {
			continue
		}
		fromSelf := msg.Out
		if from, ok := msg.FromID.(*tg.PeerUser); ok && from.UserID == selfID {
			fromSelf = true
		}
		out = append(out, domain.ChannelMessage{
			ID:       int64(msg.ID),
			FromSelf: fromSelf,
			Text:     msg.Message,
			Date:     time.Unix(int64(msg.Date), 0),
		})
	}
	return out
}

// ReactionVoters возвращает пользователей, поставивших указанный эмодзи на
// сообщение.
func (h *History) ReactionVoters(ctx context.Context, _ int64, messageID int64, emoji string) ([]int64, error) {
	var out []int64
	start := time.Now()
	err := h.run(ctx, func(ctx context.Context, api *tg.Client) error {
		peer, err := h.resolvePeer(ctx, api)
		if err != nil {
			return err
		}
		req := &tg.MessagesGetMessageReactionsListRequest{
			Peer:  peer,
			ID:    int(messageID),
			Limit: 100,
		}
		req.SetReaction(&tg.ReactionEmoji{Emoticon: emoji})
		list, err := api.MessagesGetMessageReactionsList(ctx, req)
		if err != nil {
			return fmt.Errorf("список реакций: %w", err)
		}
		for _, r := range list.Reactions {
			if user, ok := r.PeerID.(*tg.PeerUser); ok {
				out = append(out, user.UserID)
			}
		}
		return nil
	})
	metrics.ObserveNetworkRequest("mtproto", "reaction_voters", strconv.FormatInt(messageID, 10), start, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}
