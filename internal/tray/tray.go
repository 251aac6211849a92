// Package tray provides system tray functionality using getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID       int
	Title    string
	Disabled bool
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon and menu
type Tray struct {
	tooltip string
	log     zerolog.Logger

	mu     sync.Mutex
	items  []*MenuItem
	quitCh chan struct{}
}

// New creates a new system tray. Items must be added before Run.
func New(tooltip string, log zerolog.Logger) *Tray {
	return &Tray{
		tooltip: tooltip,
		log:     log.With().Str("component", "tray").Logger(),
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem adds a menu item to the tray
func (t *Tray) AddMenuItem(title string, callback func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.items)
	t.items = append(t.items, &MenuItem{ID: id, Title: title, Callback: callback})
	return id
}

// AddLabel adds a disabled item whose title can be changed with SetItemTitle
func (t *Tray) AddLabel(title string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.items)
	t.items = append(t.items, &MenuItem{ID: id, Title: title, Disabled: true})
	return id
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil) // nil indicates separator
}

// SetItemTitle changes an item's title. Before Run the new title is used
// when the menu is built.
func (t *Tray) SetItemTitle(id int, title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.items) || t.items[id] == nil {
		return
	}
	t.items[id].Title = title
	if t.items[id].item != nil {
		t.items[id].item.SetTitle(title)
	}
}

// Run starts the tray event loop (blocks). It must be called from the main
// goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	systray.SetTitle("HostBridge")
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(Icon())

	t.mu.Lock()
	for _, menuItem := range t.items {
		if menuItem == nil {
			systray.AddSeparator()
			continue
		}
		menuItem.item = systray.AddMenuItem(menuItem.Title, "")
		if menuItem.Disabled {
			menuItem.item.Disable()
		}
		if menuItem.Callback != nil {
			go t.watch(menuItem)
		}
	}
	t.mu.Unlock()

	t.log.Debug().Msg("Tray: ready")
}

func (t *Tray) watch(mi *MenuItem) {
	for {
		select {
		case <-mi.item.ClickedCh:
			mi.Callback()
		case <-t.quitCh:
			return
		}
	}
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}
