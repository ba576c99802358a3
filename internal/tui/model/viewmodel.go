package model

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/botchat/internal/api"
	"github.com/matheus3301/botchat/internal/chat"
)

// Backend is the subset of the daemon client the TUI drives.
type Backend interface {
	Conversations(ctx context.Context) ([]chat.Conversation, error)
	Send(ctx context.Context, content, chatID string) (chat.Message, error)
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SetNetwork(ctx context.Context, online bool) error
}

// ViewModel caches the latest daemon snapshot and derives what the views show.
type ViewModel struct {
	mu sync.RWMutex

	backend   Backend
	seeds     []chat.Seed
	messages  []chat.Message
	online    bool
	connected bool
	active    string

	Flash Flash
}

// NewViewModel creates a view model backed by the daemon client.
func NewViewModel(b Backend) *ViewModel {
	return &ViewModel{backend: b}
}

// LoadConversations fetches the configured conversations so names survive
// before any message arrives.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	convs, err := vm.backend.Conversations(ctx)
	if err != nil {
		return err
	}
	seeds := make([]chat.Seed, 0, len(convs))
	for _, c := range convs {
		seeds = append(seeds, chat.Seed{ID: c.ID, Name: c.Name})
	}
	vm.mu.Lock()
	vm.seeds = seeds
	vm.mu.Unlock()
	return nil
}

// Apply stores a watch snapshot.
func (vm *ViewModel) Apply(snap api.Snapshot) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.messages = snap.Messages
	vm.online = snap.Online
	vm.connected = snap.Connected
}

// Open makes chatID the active conversation.
func (vm *ViewModel) Open(chatID string) {
	vm.mu.Lock()
	vm.active = chatID
	vm.mu.Unlock()
}

// Active returns the open conversation, or "" on the list.
func (vm *ViewModel) Active() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.active
}

// Conversations projects the latest snapshot onto the known conversations.
func (vm *ViewModel) Conversations() []chat.Conversation {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return chat.Project(vm.seeds, vm.messages)
}

// Thread returns the active conversation oldest first.
func (vm *ViewModel) Thread() []chat.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.active == "" {
		return nil
	}
	return chat.Thread(vm.messages, vm.active)
}

// ConversationName resolves a display name for id.
func (vm *ViewModel) ConversationName(id string) string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, s := range vm.seeds {
		if s.ID == id {
			return s.Name
		}
	}
	return "Chat " + id
}

// Online reports network reachability from the last snapshot.
func (vm *ViewModel) Online() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.online
}

// Connected reports effective connectivity from the last snapshot.
func (vm *ViewModel) Connected() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.connected
}

// PendingCount counts messages not yet confirmed, failed ones included.
func (vm *ViewModel) PendingCount() int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	n := 0
	for _, m := range vm.messages {
		if m.Status != chat.StatusSent {
			n++
		}
	}
	return n
}

// Send queues text for the active conversation.
func (vm *ViewModel) Send(ctx context.Context, text string) error {
	chatID := vm.Active()
	if chatID == "" {
		return nil
	}
	if _, err := vm.backend.Send(ctx, text, chatID); err != nil {
		return err
	}
	if !vm.Connected() {
		vm.Flash.Set("Queued, will send when back online", 3*time.Second)
	}
	return nil
}

// ToggleConnection connects when disconnected and the other way round.
func (vm *ViewModel) ToggleConnection(ctx context.Context) error {
	if vm.Connected() {
		vm.Flash.Set("Disconnecting", 2*time.Second)
		return vm.backend.Disconnect(ctx)
	}
	vm.Flash.Set("Connecting", 2*time.Second)
	return vm.backend.Connect(ctx)
}

// ToggleNetwork flips the daemon's network switch.
func (vm *ViewModel) ToggleNetwork(ctx context.Context) error {
	return vm.backend.SetNetwork(ctx, !vm.Online())
}
