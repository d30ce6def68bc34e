package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is the data shown in the bottom status bar.
type StatusInfo struct {
	Streaming bool
	Session   string
	Buffered  int
	Capacity  int
	Seq       uint64
	HasLink   bool // the source reports packet counts
	Packets   uint64
	Decoded   uint64
	Notice    string
	Error     bool // Notice is an error
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	status := StyleStatusIdle.Render("[IDLE]")
	if info.Streaming {
		status = StyleStatusStreaming.Render("[STREAMING]")
	}

	session := info.Session
	if len(session) > 8 {
		session = session[:8]
	}
	if session == "" {
		session = "-"
	}

	text := fmt.Sprintf(" Session: %s  Buffer: %d/%d  Frame: %d",
		session, info.Buffered, info.Capacity, info.Seq)
	if info.HasLink {
		text += fmt.Sprintf("  Packets: %d (%d samples)", info.Packets, info.Decoded)
	}
	content := status + StyleStatusText.Render(text)

	if info.Notice != "" {
		noticeStyle := StyleValue
		if info.Error {
			noticeStyle = StyleStatusError
		}
		content += "  " + noticeStyle.Render(info.Notice)
	}

	inner := width - StyleStatusBar.GetHorizontalFrameSize()
	gap := max(inner-lipgloss.Width(content), 0)
	return StyleStatusBar.Width(width).MaxHeight(1).Render(content + strings.Repeat(" ", gap))
}
