package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/scipunch/secfeed/model"
)

const defaultWidth = 100

// Console prints a colored live log. Article lines are only printed in
// verbose mode and are cut to the terminal width.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	width   int
	verbose bool
	colors  map[Level]*color.Color
	dim     *color.Color
}

func NewConsole(out io.Writer, verbose bool) *Console {
	width := defaultWidth
	tty := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	c := &Console{
		out:     out,
		width:   width,
		verbose: verbose,
		colors: map[Level]*color.Color{
			LevelInfo:    color.New(color.FgCyan),
			LevelSuccess: color.New(color.FgGreen),
			LevelWarning: color.New(color.FgYellow),
			LevelError:   color.New(color.FgRed, color.Bold),
		},
		dim: color.New(color.Faint),
	}
	for _, col := range append([]*color.Color{c.dim}, c.levelColors()...) {
		if tty {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

func (c *Console) levelColors() []*color.Color {
	out := make([]*color.Color, 0, len(c.colors))
	for _, col := range c.colors {
		out = append(out, col)
	}
	return out
}

func (c *Console) OnRunStart(info RunInfo) {
	c.line(LevelInfo, StartMessage(info))
}

func (c *Console) OnArticle(source string, a model.Article) {
	if !c.verbose {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	text := fmt.Sprintf("  + [%s] %s", model.DisplayName(source), a.Title)
	c.dim.Fprintln(c.out, runewidth.Truncate(text, c.width-1, "…"))
}

func (c *Console) OnSourceDone(res model.SourceRunResult) {
	level, msg := SourceMessage(res)
	c.line(level, msg)
}

func (c *Console) OnRunDone(run *model.AggregationRun) {
	level, msg := DoneMessage(run)
	c.line(level, msg)
}

func (c *Console) line(level Level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors[level].Fprintln(c.out, msg)
}
