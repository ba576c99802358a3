// Package tui is the terminal client: a conversation list, a thread view with
// a composer, and a status bar that shows when messages are being queued.
package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/botchat/internal/client"
	"github.com/matheus3301/botchat/internal/tui/keys"
	"github.com/matheus3301/botchat/internal/tui/model"
	"github.com/matheus3301/botchat/internal/tui/ui"
	"github.com/matheus3301/botchat/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageList   = "list"
	pageThread = "thread"
)

// App is the main TUI application shell.
type App struct {
	app       *tview.Application
	pages     *tview.Pages
	vm        *model.ViewModel
	client    *client.Client
	registry  *keys.Registry
	statusBar *views.StatusBar
	convList  *views.ConversationList
	thread    *views.MessageThread
	composer  *views.Composer
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		vm:        model.NewViewModel(c),
		client:    c,
		registry:  keys.NewRegistry(),
		statusBar: views.NewStatusBar(theme),
		convList:  views.NewConversationList(theme),
		thread:    views.NewMessageThread(theme),
		composer:  views.NewComposer(theme),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetProfile(profileName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "q:quit",
		Handler:     a.Stop,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'c',
		Description: "c:connect",
		Handler:     func() { a.async("Connect", a.vm.ToggleConnection) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'n',
		Description: "n:network",
		Handler:     func() { a.async("Network", a.vm.ToggleNetwork) },
	})
	a.registry.AddPage(pageList, &keys.Action{
		Key:         tcell.KeyEnter,
		Description: "enter:open",
		Handler: func() {
			if id := a.convList.SelectedConversation(); id != "" {
				a.openConversation(id)
			}
		},
	})
	a.registry.AddPage(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i',
		Description: "i:compose",
		Handler:     func() { a.app.SetFocus(a.composer.InputField) },
	})
	a.registry.AddPage(pageThread, &keys.Action{
		Key:         tcell.KeyEscape,
		Description: "esc:back",
		Handler:     a.showList,
	})
}

func (a *App) setupCallbacks() {
	a.composer.SetOnSend(func(text string) {
		a.async("Send", func(ctx context.Context) error {
			return a.vm.Send(ctx, text)
		})
	})
}

func (a *App) setupLayout() {
	threadFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, false).
		AddItem(a.composer, 1, 0, false)

	a.pages.AddPage(pageList, a.convList, true, true)
	a.pages.AddPage(pageThread, threadFlex, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)
	a.app.SetRoot(root, true)
	a.statusBar.SetHints(a.registry.Hints(pageList))

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		page, _ := a.pages.GetFrontPage()

		// The composer keeps every key except Escape, which returns to the thread.
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			if event.Key() == tcell.KeyEscape {
				a.app.SetFocus(a.thread)
				return nil
			}
			return event
		}
		if a.registry.HandleEvent(page, event) {
			return nil
		}
		return event
	})
}

func (a *App) openConversation(id string) {
	a.vm.Open(id)
	a.thread.SetConversation(a.vm.ConversationName(id))
	a.thread.Update(a.vm.Thread(), a.vm.ConversationName(id))
	a.pages.SwitchToPage(pageThread)
	a.app.SetFocus(a.composer.InputField)
	a.statusBar.SetHints(a.registry.Hints(pageThread))
}

func (a *App) showList() {
	a.vm.Open("")
	a.pages.SwitchToPage(pageList)
	a.app.SetFocus(a.convList)
	a.statusBar.SetHints(a.registry.Hints(pageList))
}

// async runs fn off the UI goroutine and flashes its error.
func (a *App) async(what string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			a.vm.Flash.Set(what+" failed: "+err.Error(), 5*time.Second)
		}
		a.app.QueueUpdateDraw(a.refresh)
	}()
}

// refresh redraws every view from the view model. Runs on the UI goroutine.
func (a *App) refresh() {
	a.convList.Update(a.vm.Conversations())
	if id := a.vm.Active(); id != "" {
		a.thread.Update(a.vm.Thread(), a.vm.ConversationName(id))
	}
	a.statusBar.SetConnectivity(a.vm.Online(), a.vm.Connected(), a.vm.PendingCount())
	a.statusBar.SetFlash(a.vm.Flash.Get())
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		if err := a.vm.LoadConversations(a.ctx); err != nil {
			a.vm.Flash.Set("Load failed: "+err.Error(), 5*time.Second)
		}
		a.app.QueueUpdateDraw(a.refresh)
		go a.watchLoop()
		a.tickLoop()
	}()
	return a.app.Run()
}

// watchLoop follows the daemon's message stream, reopening it after errors.
func (a *App) watchLoop() {
	for a.ctx.Err() == nil {
		w, err := a.client.Watch(a.ctx)
		if err == nil {
			for {
				snap, rerr := w.Recv()
				if rerr != nil {
					err = rerr
					break
				}
				a.vm.Apply(snap)
				a.app.QueueUpdateDraw(a.refresh)
			}
		}
		if a.ctx.Err() != nil {
			return
		}
		a.vm.Flash.Set("Daemon stream lost: "+err.Error(), 3*time.Second)
		a.app.QueueUpdateDraw(a.refresh)
		select {
		case <-time.After(2 * time.Second):
		case <-a.ctx.Done():
			return
		}
	}
}

// tickLoop expires flash messages.
func (a *App) tickLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.statusBar.SetFlash(a.vm.Flash.Get())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// Stop shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
