// Package board is the runtime context behind the pulse CLI: one keyed list
// of items rendered into a vdom container, plus the signals derived from it.
//
// The reactive core is single-threaded. Board serializes every access to it
// behind one mutex, so HTTP handlers and other goroutines call in through
// its methods or Do.
package board

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/vango-dev/pulse/pkg/keyed"
	"github.com/vango-dev/pulse/pkg/pulse"
	"github.com/vango-dev/pulse/pkg/render"
	"github.com/vango-dev/pulse/pkg/vdom"
)

// Lifecycle channels. ChannelLoaded fires once initial items are in,
// ChannelSynced after every Sync. Both carry the item count.
const (
	ChannelLoaded = "loaded"
	ChannelSynced = "synced"
)

// ErrEmptyText is returned for items without text.
var ErrEmptyText = errors.New("board: item text is empty")

// Item is one entry on the board.
type Item struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Change is a list mutation as seen on the board's event bus.
type Change = keyed.Change[Item]

// Config configures a Board.
type Config struct {
	// Title heads the rendered page (default: "pulse").
	Title string

	// Reporter receives recovered callback failures.
	Reporter pulse.Reporter

	// Logger defaults to slog.Default().With("component", "board").
	Logger *slog.Logger
}

// Board owns the item list and everything derived from it.
type Board struct {
	mu sync.Mutex

	app       *pulse.Application[Change]
	container *vdom.Container
	list      *keyed.List[Item, *vdom.VNode]
	count     *pulse.Signal[int]
	title     *pulse.Signal[string]
	page      *pulse.Signal[[]byte]
	lifecycle *pulse.Emitter[int]
	ready     *pulse.Aggregator

	logger *slog.Logger
}

// New creates an empty board.
func New(cfg Config) *Board {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "board")
	}
	rep := cfg.Reporter
	if rep == nil {
		rep = pulse.LogReporter{Logger: logger}
	}
	heading := cfg.Title
	if heading == "" {
		heading = "pulse"
	}

	b := &Board{logger: logger}
	b.app = pulse.NewApplication[Change]("board", pulse.WithReporter(rep))
	b.container = vdom.NewContainer(vdom.Ul(vdom.ID("items"), vdom.Class("board")), pulse.WithReporter(rep))
	b.list = keyed.New(b.container, itemID, renderItem, pulse.WithName("items"), pulse.WithReporter(rep))
	b.count = pulse.NewSignal(0, pulse.WithName("count"), pulse.WithReporter(rep))
	b.title = pulse.Map(b.count, func(n int) string {
		return titleFor(heading, n)
	}, pulse.WithName("title"), pulse.WithReporter(rep))
	b.page = pulse.NewEmptySignal[[]byte](pulse.WithName("page"), pulse.WithReporter(rep)).WithEquals(bytes.Equal)
	b.lifecycle = pulse.NewEmitter[int]("board", pulse.WithReporter(rep))
	b.ready = pulse.NewAggregator("ready", pulse.WithReporter(rep))

	root := b.app.Scope()
	root.Add(
		pulse.Combine(b.ready, b.lifecycle, ChannelLoaded),
		b.list.Subscribe(b.changed),
		b.ready, b.lifecycle, b.page, b.title, b.count, b.list, b.container,
	)
	b.refresh()
	return b
}

func itemID(it Item) string { return it.ID }

func renderItem(it Item) (*vdom.VNode, error) {
	return vdom.Li(vdom.Class("item"), vdom.Text(it.Text)), nil
}

func titleFor(heading string, n int) string {
	switch n {
	case 0:
		return heading
	case 1:
		return heading + " (1 item)"
	default:
		return fmt.Sprintf("%s (%d items)", heading, n)
	}
}

func (b *Board) changed(c Change) {
	b.count.Set(b.list.Len())
	b.refresh()
	b.app.Emit(c.Op.String(), c)
}

// refresh re-renders the static page into the page signal.
func (b *Board) refresh() {
	var buf bytes.Buffer
	if err := b.writePage(&buf); err != nil {
		b.logger.Error("render board", "error", err)
		return
	}
	b.page.Set(buf.Bytes())
}

// Do runs fn while holding the board lock. Use it for anything that touches
// the board's signals, emitters or aggregator from another goroutine.
func (b *Board) Do(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}

// Load ensures every item and then announces the board as loaded.
func (b *Board) Load(items []Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, it := range items {
		if err := b.ensure(it); err != nil {
			return err
		}
	}
	b.lifecycle.Emit(ChannelLoaded, b.list.Len())
	return nil
}

// Sync makes the board hold exactly items: missing IDs are removed, the
// rest are replaced in place or appended. Nothing changes if any item is
// invalid: empty text, an empty ID, or an ID given twice.
func (b *Board) Sync(items []Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]Item, 0, len(items))
	keep := make(map[string]bool, len(items))
	for _, raw := range items {
		if raw.ID == "" {
			return fmt.Errorf("item %q: %w", raw.Text, keyed.ErrInvalidIdentity)
		}
		if keep[raw.ID] {
			return fmt.Errorf("item %q: %w", raw.ID, keyed.ErrDuplicateIdentity)
		}
		it, err := normalize(raw)
		if err != nil {
			return fmt.Errorf("item %q: %w", raw.ID, err)
		}
		next = append(next, it)
		keep[it.ID] = true
	}

	for _, id := range b.list.IDs() {
		if keep[id] {
			continue
		}
		if err := b.list.RemoveChild(id); err != nil {
			return err
		}
	}
	for _, it := range next {
		if err := b.list.EnsureChild(it); err != nil {
			return err
		}
	}
	b.lifecycle.Emit(ChannelSynced, b.list.Len())
	return nil
}

// Ensure replaces the item carrying its ID, or appends it.
func (b *Board) Ensure(it Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ensure(it)
}

func (b *Board) ensure(it Item) error {
	it, err := normalize(it)
	if err != nil {
		return err
	}
	return b.list.EnsureChild(it)
}

// Add appends a new item with a generated ID.
func (b *Board) Add(text string) (Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	it, err := normalize(Item{ID: keyed.NewID(), Text: text})
	if err != nil {
		return Item{}, err
	}
	if err := b.list.Append(it); err != nil {
		return Item{}, err
	}
	return it, nil
}

// InsertBefore places it immediately before refID.
func (b *Board) InsertBefore(it Item, refID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	it, err := normalize(it)
	if err != nil {
		return err
	}
	return b.list.InsertBefore(it, refID)
}

// Replace swaps the item at oldID for it, keeping its position.
func (b *Board) Replace(it Item, oldID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	it, err := normalize(it)
	if err != nil {
		return err
	}
	return b.list.ReplaceChild(it, oldID)
}

// Remove deletes the item identified by id.
func (b *Board) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.list.RemoveChild(id)
}

func normalize(it Item) (Item, error) {
	it.Text = strings.TrimSpace(it.Text)
	if it.Text == "" {
		return Item{}, ErrEmptyText
	}
	return it, nil
}

// Get returns the item identified by id.
func (b *Board) Get(id string) (Item, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.list.Get(id)
}

// Items returns the items in order.
func (b *Board) Items() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.list.Items()
}

// Len returns the number of items.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count.Get()
}

// Title returns the current page title.
func (b *Board) Title() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.title.Get()
}

// Page returns the last static rendering of the full document.
func (b *Board) Page() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.page.Get())
}

// WritePage renders the full document. Scripts are added to the body.
func (b *Board) WritePage(w io.Writer, scripts ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writePage(w, scripts...)
}

func (b *Board) writePage(w io.Writer, scripts ...string) error {
	title := b.title.Get()
	return render.WritePage(w, render.PageOptions{
		Title:   title,
		Scripts: scripts,
		Styles:  pageStyles,
	},
		vdom.Main(
			vdom.H1(vdom.ID("title"), vdom.Text(title)),
			b.container.Root(),
		),
	)
}

const pageStyles = `body{font-family:system-ui,sans-serif;max-width:40rem;margin:2rem auto}.item{padding:.25rem 0}`

// Watch hands the current list markup to sync and then subscribes fn to
// container patches. Both run under the lock, so fn only sees patches made
// after the markup sync received.
func (b *Board) Watch(sync func(html []byte), fn func(vdom.Patch)) (*pulse.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	html, err := render.HTML(b.container.Root())
	if err != nil {
		return nil, err
	}
	sync([]byte(html))
	return b.container.OnPatch(fn), nil
}

// Unwatch cancels a subscription made by Watch.
func (b *Board) Unwatch(sub *pulse.Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub.Dispose()
}

// On subscribes fn to the board's event bus. Channels are change op names;
// pulse.Wildcard receives all of them.
func (b *Board) On(channel string, fn func(Change)) *pulse.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.app.On(channel, fn)
}

// Readiness returns the aggregator that fires once the board is loaded and
// every other combined source has reported. Touch it only inside Do.
func (b *Board) Readiness() *pulse.Aggregator {
	return b.ready
}

// Dispose releases the board and every installed plugin.
func (b *Board) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.app.Dispose()
}
