package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/PavelAgarkov/halt-pkg/logger"
	logger "github.com/PavelAgarkov/halt-pkg/logger/zap_engine"
	"github.com/PavelAgarkov/halt-pkg/registry"
	"github.com/go-redis/redis/v8"
	"github.com/rs/xid"
)

const DefaultChannel = "haltpkg:control"

// Command это управляющее сообщение в шине. Ровно одна из целей
// Name/Group/All должна быть задана.
type Command struct {
	ID    string `json:"id,omitempty"`
	Op    string `json:"op"`
	Name  string `json:"name,omitempty"`
	Group string `json:"group,omitempty"`
	All   bool   `json:"all,omitempty"`
}

// Bridge слушает redis-канал и применяет команды к реестру. Так одной
// публикацией можно поставить на паузу конвейеры всех реплик сразу.
type Bridge struct {
	client  *redis.Client
	remotes registry.RemoteRegistry
	channel string

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewBridge(client *redis.Client, remotes registry.RemoteRegistry, channel string) *Bridge {
	if client == nil {
		panic("bridge.NewBridge: nil redis client")
	}
	if remotes == nil {
		panic("bridge.NewBridge: nil registry")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Bridge{client: client, remotes: remotes, channel: channel}
}

func (b *Bridge) Start(parent context.Context) {
	if !b.running.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	pubsub := b.client.Subscribe(ctx, b.channel)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.listen(ctx, pubsub)
	}()

	logger.WriteInfoLog(ctx, &logger_wrapper.LogEntry{
		Msg:       "control bridge subscribed",
		Component: "bridge",
		Method:    "Start",
		Args:      b.channel,
	})
}

func (b *Bridge) Stop() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}

	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Bridge) listen(ctx context.Context, pubsub *redis.PubSub) {
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle(ctx, msg.Payload)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, payload string) {
	var cmd Command
	if err := json.Unmarshal([]byte(payload), &cmd); err != nil {
		logger.WriteWarnLog(ctx, &logger_wrapper.LogEntry{
			Msg:       "malformed control command dropped",
			Component: "bridge",
			Method:    "handle",
			Args:      payload,
			Error:     err,
		})
		return
	}
	if cmd.ID == "" {
		cmd.ID = xid.New().String()
	}

	op, err := registry.ParseOp(cmd.Op)
	if err != nil {
		logger.WriteWarnLog(ctx, &logger_wrapper.LogEntry{
			Msg:       "control command with unknown op dropped",
			Component: "bridge",
			Method:    "handle",
			Args:      fmt.Sprintf("id: %s, op: %s", cmd.ID, cmd.Op),
			Error:     err,
		})
		return
	}

	var (
		target  string
		changed int
	)
	switch {
	case cmd.Name != "":
		target = "remote " + cmd.Name
		ok, applyErr := b.remotes.Apply(op, cmd.Name)
		err = applyErr
		if ok {
			changed = 1
		}
	case cmd.Group != "":
		target = "group " + cmd.Group
		changed, err = b.remotes.ApplyGroup(op, cmd.Group)
	case cmd.All:
		target = "all"
		changed = b.remotes.ApplyAll(op)
	default:
		logger.WriteWarnLog(ctx, &logger_wrapper.LogEntry{
			Msg:       "control command without target dropped",
			Component: "bridge",
			Method:    "handle",
			Args:      fmt.Sprintf("id: %s, op: %s", cmd.ID, cmd.Op),
		})
		return
	}

	if err != nil {
		logger.WriteWarnLog(ctx, &logger_wrapper.LogEntry{
			Msg:       "control command failed",
			Component: "bridge",
			Method:    "handle",
			Args:      fmt.Sprintf("id: %s, op: %s, target: %s", cmd.ID, op, target),
			Error:     err,
		})
		return
	}

	logger.WriteInfoLog(ctx, &logger_wrapper.LogEntry{
		Msg:       "control command applied",
		Component: "bridge",
		Method:    "handle",
		Args:      fmt.Sprintf("id: %s, op: %s, target: %s, changed: %d", cmd.ID, op, target, changed),
	})
}

// Publish отправляет команду в шину. Пустой ID заполняется автоматически
// и возвращается для трассировки.
func Publish(ctx context.Context, client *redis.Client, channel string, cmd Command) (string, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	if cmd.ID == "" {
		cmd.ID = xid.New().String()
	}

	raw, err := json.Marshal(cmd)
	if err != nil {
		return "", fmt.Errorf("marshal command: %w", err)
	}
	if err := client.Publish(ctx, channel, raw).Err(); err != nil {
		return "", fmt.Errorf("publish command: %w", err)
	}
	return cmd.ID, nil
}
