package overlay

import (
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/vigil/internal/auth"
	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/media"
	"github.com/dyluth/vigil/internal/notify"
	"github.com/dyluth/vigil/internal/sysmon"
	"github.com/fatih/color"
)

const barWidth = 20

var (
	dim      = color.New(color.FgHiBlack)
	heading  = color.New(color.FgHiWhite, color.Bold)
	clockFmt = color.New(color.FgHiWhite, color.Bold)
	errorFmt = color.New(color.FgRed, color.Bold)
	okFmt    = color.New(color.FgGreen, color.Bold)

	severityColor = map[sysmon.Severity]*color.Color{
		sysmon.SeverityNormal:   color.New(color.FgGreen),
		sysmon.SeverityWarn:     color.New(color.FgYellow),
		sysmon.SeverityCritical: color.New(color.FgRed),
	}
)

// Renderer draws frames to a terminal.
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Draw clears the screen and writes the current frame. Lines end in CRLF so
// the output stays aligned while the terminal is in raw mode.
func (r *Renderer) Draw(s *State) error {
	frame := strings.ReplaceAll(Frame(s), "\n", "\r\n")
	_, err := io.WriteString(r.out, "\x1b[H\x1b[2J"+frame)
	return err
}

// Frame renders the state as text, widgets in the configured layout order.
func Frame(s *State) string {
	var b strings.Builder

	writeHeader(&b, s)

	cfg := s.Config()
	for _, widget := range cfg.WidgetLayout {
		switch widget {
		case config.WidgetWeather:
			if cfg.ShowWeather {
				writeWeather(&b, s)
			}
		case config.WidgetSysmon:
			if cfg.ShowSysmon {
				writeSysmon(&b, s)
			}
		case config.WidgetNotifications:
			if cfg.ShowNotifications {
				writeNotifications(&b, s)
			}
		case config.WidgetMedia:
			if cfg.ShowMedia {
				writeMedia(&b, s)
			}
		case config.WidgetEditor:
			if cfg.ShowEditor {
				writeEditor(&b, s)
			}
		}
	}

	writePrompt(&b, s)
	return b.String()
}

func section(b *strings.Builder, title string, extra ...string) {
	b.WriteString("\n")
	b.WriteString(heading.Sprint(title))
	for _, e := range extra {
		b.WriteString("  " + e)
	}
	b.WriteString("\n")
}

func writeHeader(b *strings.Builder, s *State) {
	now := s.Now.Local()
	fmt.Fprintf(b, "%s   %s\n", clockFmt.Sprint(now.Format("15:04:05")), now.Format("Monday, 2 January"))

	bg := s.Background
	switch {
	case bg.Period != "":
		b.WriteString(dim.Sprintf("background: %s (%s, dim %.2f)", bg.Path, bg.Period, bg.Dim))
	case bg.Path != "":
		b.WriteString(dim.Sprintf("background: %s (dim %.2f)", bg.Path, bg.Dim))
	default:
		b.WriteString(dim.Sprintf("background: none (dim %.2f)", bg.Dim))
	}
	b.WriteString("\n")
}

func writeWeather(b *strings.Builder, s *State) {
	section(b, "WEATHER")

	w := s.Weather
	switch {
	case !w.Configured:
		b.WriteString(dim.Sprint("NO API KEY") + "\n")
		return
	case w.Current == nil:
		b.WriteString(dim.Sprint("loading…") + "\n")
	default:
		c := w.Current
		fmt.Fprintf(b, "%s %+d°  feels %+d°  %s  %s  humidity %d%%\n",
			c.Icon, c.Temp, c.FeelsLike, Sanitize(c.Description), Sanitize(c.Location), c.Humidity)
	}

	if f := w.Forecast; f != nil {
		fmt.Fprintf(b, "tomorrow %s %+d° (%+d° … %+d°)  %s\n", f.Icon, f.Temp, f.TempMin, f.TempMax, Sanitize(f.Description))
	}
}

func usageLine(label string, percent float64, detail string) string {
	c := severityColor[sysmon.SeverityOf(percent)]
	return fmt.Sprintf("%-4s %s %3.0f%%  %s\n", label, c.Sprint(Bar(percent/100, barWidth)), percent, detail)
}

func writeSysmon(b *strings.Builder, s *State) {
	section(b, "SYSTEM")

	snap := s.Sys
	if snap == nil {
		b.WriteString(dim.Sprint("sampling…") + "\n")
		return
	}

	b.WriteString(usageLine("CPU", snap.CPUPercent, ""))
	b.WriteString(usageLine("MEM", snap.Memory.Percent, sysmon.FormatUsage(snap.Memory)))
	if snap.HasDisk {
		b.WriteString(usageLine("DISK", snap.Disk.Percent, sysmon.FormatUsage(snap.Disk)))
	} else {
		b.WriteString("DISK --\n")
	}
	if snap.HasNet {
		fmt.Fprintf(b, "NET  ↓ %s  ↑ %s\n", sysmon.FormatRate(snap.NetRx), sysmon.FormatRate(snap.NetTx))
	} else {
		b.WriteString("NET  --\n")
	}

	for _, p := range snap.TopProcesses {
		fmt.Fprintf(b, "  %-18s %5.1f%%  mem %4.1f%%\n", Truncate(p.Name, 18), p.CPUPercent, p.MemPercent)
	}
}

func writeNotifications(b *strings.Builder, s *State) {
	section(b, "NOTIFICATIONS")

	recent := s.Notifications.Recent(notify.DisplayCount)
	if len(recent) == 0 {
		b.WriteString(dim.Sprint("no notifications") + "\n")
		return
	}
	for _, n := range recent {
		line := fmt.Sprintf("%s: %s", n.App, n.Summary)
		if n.Body != "" {
			line += " · " + n.Body
		}
		fmt.Fprintf(b, "%s %s\n", dim.Sprint(n.Timestamp.Local().Format("15:04")), Truncate(line, 60))
	}
}

func writeMedia(b *strings.Builder, s *State) {
	accentColor := color.RGB(int(s.Accent.R), int(s.Accent.G), int(s.Accent.B))
	section(b, "NOW PLAYING", accentColor.Sprintf("[%s]", Badge(s.Media)))

	m := s.Media
	if m == nil {
		b.WriteString(dim.Sprint("no player") + "\n")
		return
	}

	b.WriteString(accentColor.Sprint(Marquee(m.Title, TitleMarquee, s.Ticks)) + "\n")
	line := Marquee(m.Artist, ArtistMarquee, s.Ticks)
	if m.Album != "" {
		line += " · " + Marquee(m.Album, AlbumMarquee, s.Ticks)
	}
	b.WriteString(line + "\n")

	if pos, ok := s.Progress(); ok {
		fmt.Fprintf(b, "%s %s %s\n",
			media.FormatTime(pos),
			accentColor.Sprint(Bar(media.Fraction(pos, m.LengthUS), barWidth)),
			media.FormatTime(m.LengthUS))
	}
}

func writeEditor(b *strings.Builder, s *State) {
	ed := s.Editor
	if !ed.Running {
		section(b, "EDITOR", dim.Sprint("not running"))
		return
	}
	section(b, "EDITOR", Sanitize(ed.FileName))
	if ed.CodeExcerpt == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(ed.CodeExcerpt, "\n"), "\n") {
		b.WriteString(dim.Sprint("│ ") + Truncate(line, 78) + "\n")
	}
}

func writePrompt(b *strings.Builder, s *State) {
	b.WriteString("\n")
	switch s.Auth.State {
	case auth.StateChecking:
		b.WriteString("checking…")
	case auth.StateSuccess:
		b.WriteString(okFmt.Sprint("unlocked"))
	case auth.StateFailed:
		b.WriteString(errorFmt.Sprintf("wrong password (attempt %d)", s.Auth.Count))
	default:
		fmt.Fprintf(b, "password: %s", strings.Repeat("•", s.InputLen))
	}
	b.WriteString("\n")
}

