package ui

import (
	"github.com/kfallows/holdfast/internal/banner"
)

// Banner copy. One line each; the bar spans the full width.
const (
	offlineNotice     = "OFFLINE  showing cached data; changes are paused until you reconnect"
	reconnectedNotice = "BACK ONLINE  refreshing"
	updateNotice      = "UPDATE READY  press u to restart onto the new version, x to dismiss"
)

// renderBanner renders the single notice bar, or "" when there is nothing to
// show. At most one banner is ever visible.
func (m Model) renderBanner() string {
	styles := m.theme.Styles()

	switch m.banner.Kind {
	case banner.Offline:
		return styles.BannerOffline.Width(m.width).Render(offlineNotice)
	case banner.Reconnected:
		return styles.BannerReconnected.Width(m.width).Render(reconnectedNotice)
	case banner.UpdateAvailable:
		return styles.BannerUpdate.Width(m.width).Render(updateNotice)
	default:
		return ""
	}
}
