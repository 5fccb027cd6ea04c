package monitor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lautenbacher.net/relayplate/config"
	"lautenbacher.net/relayplate/plate"
)

func testMonitor(boards ...int) *Monitor {
	conf := config.Default()
	conf.Monitor.Boards = boards
	return New(conf, "", nil)
}

func TestNewAssignsBoardSelectKeys(t *testing.T) {
	m := testMonitor(0, 3, 7)

	assert.Equal(t, 0, m.chartoboard["w"])
	assert.Equal(t, 3, m.chartoboard["e"])
	assert.Equal(t, 7, m.chartoboard["r"])
	assert.Len(t, m.chartoboard, 3)
}

func TestNewDefaultsToBoardZero(t *testing.T) {
	m := testMonitor()
	assert.Equal(t, []int{0}, m.boards)
}

func TestRenderBoardsMarksSelection(t *testing.T) {
	m := testMonitor(0, 1)
	m.selected = 1
	m.idents[1] = "Pi-Plate RELAY"

	out := m.renderBoards(map[int]plate.BoardState{
		1: plate.StateFromMask(0b0000001),
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3) // header + two boards
	assert.NotContains(t, lines[1], ">")
	assert.Contains(t, lines[2], ">")
	assert.Contains(t, lines[2], "[green]⬤[-]")
	assert.Contains(t, lines[2], "Pi-Plate RELAY")
}

func TestRenderHistoryBounded(t *testing.T) {
	m := testMonitor(0)
	m.conf.Monitor.HistorySize = 3

	for i := 0; i < 5; i++ {
		if m.history.Len() == m.conf.Monitor.HistorySize {
			m.history.PopFront()
		}
		m.history.PushBack(record{when: time.Now(), text: "relay-toggle b0 r1"})
	}
	assert.Equal(t, 3, m.history.Len())

	out := m.renderHistory()
	assert.Contains(t, out, "relay-toggle b0 r1")
	assert.Contains(t, out, "[green]ok[-]")
}

func TestRecordPublishesHistory(t *testing.T) {
	m := testMonitor(0)

	m.record("relay-toggle b0 r1", nil)
	select {
	case <-m.histText.Channel():
	default:
		t.Fatal("record must notify the redraw loop")
	}
	assert.Contains(t, m.histText.Value(), "relay-toggle b0 r1")

	// Further records coalesce into the pending notification; the latest
	// rendering wins.
	m.record("led-toggle b0", nil)
	assert.Contains(t, m.histText.Value(), "led-toggle b0")
}

func TestRenderHistoryMarksFailures(t *testing.T) {
	m := testMonitor(0)
	m.history.PushBack(record{when: time.Now(), text: "led-toggle b0", failed: true})
	assert.Contains(t, m.renderHistory(), "[red]failed[-]")
}

func TestIntroTextListsSelectKeys(t *testing.T) {
	m := testMonitor(4, 2)
	text := m.introText()
	assert.Contains(t, text, "[blue]w[-]")
	assert.Contains(t, text, "[blue]e[-]")
	assert.Contains(t, text, "selected: [#ffff00]4[-]")
}
