// Package monitor provides an interactive TUI that shows the live relay
// state of all configured boards and lets the user fire commands at them.
// It owns the driver handle exclusively: every hardware command, including
// the ones triggered by key presses, is funneled through the single poll
// goroutine so transactions never interleave on the bus.
package monitor

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gammazero/deque"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/exp/maps"

	"lautenbacher.net/relayplate/config"
	"lautenbacher.net/relayplate/logging"
	"lautenbacher.net/relayplate/plate"
	"lautenbacher.net/relayplate/util"
)

const monitorTitle = " RELAYplate Monitor "

// record is one entry in the transaction history pane.
type record struct {
	when   time.Time
	text   string
	failed bool
}

type Monitor struct {
	conf     *config.Config
	confPath string
	plate    *plate.Plate

	app         *tview.Application
	intro       *tview.TextView
	boardView   *tview.TextView
	historyView *tview.TextView
	logView     *tview.TextView

	boards       []int
	chartoboard  map[string]int
	selected     int
	idents       map[int]string
	states       *util.AtomicMapEvent[int, plate.BoardState]
	histText     *util.AtomicEvent[string]
	history      *deque.Deque[record]
	historyMu    sync.Mutex
	cmdChan      chan func()
	stopChan     chan struct{}
	wg           sync.WaitGroup
	logFlushOnce sync.Once
}

// New creates a monitor for the boards listed in the config. confPath may
// be empty when the configuration did not come from a file; config
// watching is disabled then.
func New(conf *config.Config, confPath string, pl *plate.Plate) *Monitor {
	boards := conf.Monitor.Boards
	if len(boards) == 0 {
		boards = []int{0}
	}
	// Digits are taken by the relay toggles, so boards select with a row
	// of letter keys.
	const boardSelectKeys = "wertyuio"
	chartoboard := make(map[string]int, len(boards))
	for i, b := range boards {
		if i < len(boardSelectKeys) {
			chartoboard[string(boardSelectKeys[i])] = b
		}
	}
	m := &Monitor{
		conf:        conf,
		confPath:    confPath,
		plate:       pl,
		boards:      boards,
		chartoboard: chartoboard,
		idents:      make(map[int]string, len(boards)),
		states:      util.NewAtomicMapEvent[int, plate.BoardState](),
		histText:    util.NewAtomicEvent[string](),
		history:     new(deque.Deque[record]),
		cmdChan:     make(chan func(), 8),
		stopChan:    make(chan struct{}),
	}
	m.history.Grow(conf.Monitor.HistorySize)
	return m
}

// Run starts the TUI and blocks until the user quits.
func (m *Monitor) Run() error {
	m.setupUI()

	m.wg.Add(2)
	go m.pollLoop()
	go m.redrawLoop()
	if m.confPath != "" {
		m.wg.Add(1)
		go m.watchConfig()
	}

	err := m.app.Run()

	close(m.stopChan)
	m.wg.Wait()
	logging.BufferOutput()
	return err
}

func (m *Monitor) introText() string {
	keys := maps.Keys(m.chartoboard)
	sort.Strings(keys)
	line1 := fmt.Sprintf("Boards: hit [blue]%s[-] to select | selected: [#ffff00]%d[-]", strings.Join(keys, "[-]/[blue]"), m.boards[m.selected])
	line2 := "Hit [blue]1[-]...[blue]7[-] to toggle a relay, [blue]l[-] for the LED, [blue]a[-]/[blue]x[-] for all on/off"
	line3 := "Hit [#ff0000]q[-] to exit, [#ff0000]Up/Down[-] to scroll logs"
	return fmt.Sprintf("%s\n%s\n%s", line1, line2, line3)
}

func (m *Monitor) setupUI() {
	m.app = tview.NewApplication()

	m.intro = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	m.intro.SetText(m.introText())
	m.intro.SetBorder(true).SetTitle(monitorTitle).SetTitleColor(tcell.ColorLightBlue)
	m.intro.SetBackgroundColor(tcell.NewRGBColor(20, 20, 20))

	m.boardView = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	m.boardView.SetBorder(true).SetTitle(" Boards ")
	m.boardView.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))

	m.historyView = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	m.historyView.SetBorder(true).SetTitle(" Transactions ")
	m.historyView.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))

	m.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			m.logView.ScrollToEnd()
			m.app.Draw()
		})
	m.logView.SetBorder(true).SetTitle(" Logs ").SetTitleColor(tcell.ColorLightBlue)
	m.logView.SetBackgroundColor(tcell.NewRGBColor(40, 40, 40))

	boardHeight := len(m.boards) + 3
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(m.intro, 5, 0, false).
		AddItem(m.boardView, boardHeight, 0, false).
		AddItem(m.historyView, 8, 0, false).
		AddItem(m.logView, 0, 1, true)

	m.app.SetAfterDrawFunc(func(screen tcell.Screen) {
		m.logFlushOnce.Do(func() {
			logging.SetOutput(tview.ANSIWriter(m.logView))
		})
	})

	m.app.SetInputCapture(m.handleKey)
	m.app.SetRoot(layout, true)
}

func (m *Monitor) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlC:
		m.app.Stop()
		return nil
	case tcell.KeyRune:
		key := string(event.Rune())
		if board, exist := m.chartoboard[key]; exist {
			for i, b := range m.boards {
				if b == board {
					m.selected = i
				}
			}
			m.intro.SetText(m.introText())
			return nil
		}
		board := m.boards[m.selected]
		switch key {
		case "q", "Q":
			m.app.Stop()
			return nil
		case "1", "2", "3", "4", "5", "6", "7":
			relay := int(event.Rune() - '0')
			m.dispatch(fmt.Sprintf("relay-toggle b%d r%d", board, relay), func() error {
				return m.plate.RelayToggle(board, relay)
			})
			return nil
		case "l", "L":
			m.dispatch(fmt.Sprintf("led-toggle b%d", board), func() error {
				return m.plate.LEDToggle(board)
			})
			return nil
		case "a", "A":
			all := plate.BoardState{true, true, true, true, true, true, true}
			m.dispatch(fmt.Sprintf("relay-all b%d on", board), func() error {
				return m.plate.RelayAll(board, all)
			})
			return nil
		case "x", "X":
			m.dispatch(fmt.Sprintf("relay-all b%d off", board), func() error {
				return m.plate.RelayAll(board, plate.BoardState{})
			})
			return nil
		}
	case tcell.KeyUp:
		row, col := m.logView.GetScrollOffset()
		m.logView.ScrollTo(row-1, col)
		return nil
	case tcell.KeyDown:
		row, col := m.logView.GetScrollOffset()
		m.logView.ScrollTo(row+1, col)
		return nil
	}
	return event
}

// dispatch hands a command to the poll goroutine. Commands are dropped
// (with a log entry) when the queue is full rather than blocking the UI.
func (m *Monitor) dispatch(desc string, cmd func() error) {
	wrapped := func() {
		err := cmd()
		m.record(desc, err)
		if err != nil {
			slog.Warn("Command failed", "cmd", desc, "error", err)
		}
	}
	select {
	case m.cmdChan <- wrapped:
	default:
		slog.Warn("Command queue full, dropping", "cmd", desc)
	}
}

func (m *Monitor) record(text string, err error) {
	m.historyMu.Lock()
	if m.history.Len() == m.conf.Monitor.HistorySize {
		m.history.PopFront()
	}
	m.history.PushBack(record{when: time.Now(), text: text, failed: err != nil})
	m.historyMu.Unlock()

	m.histText.Send(m.renderHistory())
}

func (m *Monitor) renderHistory() string {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	var buf strings.Builder
	for i := 0; i < m.history.Len(); i++ {
		r := m.history.At(i)
		status := "[green]ok[-]"
		if r.failed {
			status = "[red]failed[-]"
		}
		fmt.Fprintf(&buf, "%s  %-28s %s\n", r.when.Format("15:04:05.000"), r.text, status)
	}
	return buf.String()
}

// pollLoop is the only goroutine that touches the driver handle.
func (m *Monitor) pollLoop() {
	defer m.wg.Done()

	for _, b := range m.boards {
		id, err := m.plate.Identify(b)
		if err != nil {
			slog.Warn("Identify failed", "board", b, "error", err)
			continue
		}
		m.idents[b] = id
		if id == "" {
			slog.Warn("No board answered", "board", b)
		}
	}

	ticker := time.NewTicker(m.conf.Monitor.PollDelay.Std())
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			slog.Info("Ending monitor poll go-routine")
			return
		case cmd := <-m.cmdChan:
			cmd()
		case <-ticker.C:
			for _, b := range m.boards {
				st, err := m.plate.State(b)
				if err != nil {
					slog.Warn("State poll failed", "board", b, "error", err)
					continue
				}
				m.states.Send(b, st)
			}
		}
	}
}

func (m *Monitor) redrawLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopChan:
			return
		case <-m.states.Channel():
			m.app.QueueUpdateDraw(func() {
				m.boardView.SetText(m.renderBoards(m.states.Value()))
			})
		case <-m.histText.Channel():
			m.app.QueueUpdateDraw(func() {
				m.historyView.SetText(m.histText.Value())
				m.historyView.ScrollToEnd()
			})
		}
	}
}

func (m *Monitor) renderBoards(states map[int]plate.BoardState) string {
	var buf strings.Builder
	buf.WriteString(" board  relays 1-7          identity\n")
	for i, b := range m.boards {
		marker := "  "
		if i == m.selected {
			marker = "[#ffff00]>[-] "
		}
		st := states[b]
		var dots strings.Builder
		for _, on := range st {
			if on {
				dots.WriteString("[green]⬤[-] ")
			} else {
				dots.WriteString("[#505050]⬤[-] ")
			}
		}
		fmt.Fprintf(&buf, "%s  %d     %s  %s\n", marker, b, dots.String(), m.idents[b])
	}
	return buf.String()
}

// watchConfig re-reads the config file when it changes and applies the log
// level to the running logger. Everything else in the file needs a restart
// and is left alone.
func (m *Monitor) watchConfig() {
	defer m.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("Config watching disabled", "error", err)
		return
	}
	defer watcher.Close()
	if err := watcher.Add(m.confPath); err != nil {
		slog.Warn("Config watching disabled", "file", m.confPath, "error", err)
		return
	}

	for {
		select {
		case <-m.stopChan:
			return
		case err := <-watcher.Errors:
			slog.Warn("Config watcher error", "error", err)
		case ev := <-watcher.Events:
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			conf, err := config.ReadConfig(m.confPath)
			if err != nil {
				slog.Warn("Ignoring config change", "error", err)
				continue
			}
			logging.SetLevel(logging.ParseLevel(conf.Logging.Level))
			slog.Info("Re-applied log level from config", "level", conf.Logging.Level)
		}
	}
}
