package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/kfallows/holdfast/internal/agent"
)

// renderHeader renders the status bar across the top of the screen.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	sep := "  "

	var parts []string
	parts = append(parts, styles.Logo.Render("holdfast"))

	// Connectivity indicator
	conn := m.connState()
	if conn.Online {
		parts = append(parts, styles.SuccessText.Render("● ON"))
	} else {
		parts = append(parts, styles.DangerText.Render("● OFF"))
	}

	if m.snapshot.HasOverview {
		ov := m.snapshot.Overview
		label := ov.Service
		if ov.Version != "" {
			label += " " + ov.Version
		}
		parts = append(parts, styles.Text.Render(label))
		if !ov.Healthy {
			parts = append(parts, styles.WarningText.Render("degraded"))
		}
	} else if m.snapshot.LastError == nil {
		parts = append(parts, m.spin.View()+styles.WarningText.Render("Connecting..."))
	}

	parts = append(parts,
		styles.MutedText.Render("Items:")+" "+
			styles.Text.Render(fmt.Sprintf("%d", len(m.snapshot.Items))),
	)

	// Agent lifecycle, shown only once it is interesting
	switch st := m.agentState(); st.Phase {
	case agent.Failed:
		parts = append(parts, styles.FaintText.Render("agent off"))
	case agent.Registering, agent.Installing:
		parts = append(parts, styles.FaintText.Render("agent "+st.Phase.String()))
	case agent.Waiting:
		parts = append(parts, styles.InfoText.Render("agent waiting"))
	}

	// Data freshness
	if !m.snapshot.FetchedAt.IsZero() {
		stamp := m.snapshot.FetchedAt.Format("15:04:05")
		if since := time.Since(m.snapshot.FetchedAt); since >= time.Minute {
			stamp += " (" + formatAge(since) + " ago)"
		}
		parts = append(parts, styles.MutedText.Render(stamp))
	}

	if m.snapshot.LastError != nil {
		errText := truncate(m.snapshot.LastError.Error(), 60)
		parts = append(parts, styles.DangerText.Render("ERROR")+" "+styles.DangerText.Render(errText))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// renderFooter renders the key hint bar with the last action outcome.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()

	hints := "j/k move  d done  u update  x dismiss  P purge  T theme  h help  e quit"
	out := styles.MutedText.Render(hints)

	if m.note != "" {
		noteStyle := styles.InfoText
		if m.noteErr {
			noteStyle = styles.DangerText
		}
		out += "  " + noteStyle.Render(truncate(m.note, 60))
	}

	return styles.Footer.Width(m.width).Render(out)
}
