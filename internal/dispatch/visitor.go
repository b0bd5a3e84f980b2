package dispatch

import (
	"context"
	"strings"

	"github.com/rbright/aurora/internal/command"
)

const defaultSink = "@DEFAULT_AUDIO_SINK@"

type visitor struct {
	d      *Dispatcher
	ctx    context.Context
	cmd    command.Command
	result Result
	failed bool
}

var _ command.Visitor = (*visitor)(nil)

func (v *visitor) VisitOpenApp(c command.OpenApp) {
	switch c.App {
	case command.AppFirefox:
		v.spawn("firefox")
	case command.AppTerminal:
		v.spawnFirst(v.d.programs.Terminal)
	case command.AppDolphin:
		v.spawn("dolphin")
	case command.AppObsidian:
		v.spawnFirst([]string{"obsidian"}, []string{"flatpak", "run", "md.obsidian.Obsidian"})
	case command.AppSteam:
		v.spawnFirst([]string{"steam"}, []string{"flatpak", "run", "com.valvesoftware.Steam"})
	case command.AppTelegram:
		v.spawnFirst([]string{"Telegram"}, []string{"telegram-desktop"}, []string{"flatpak", "run", "org.telegram.desktop"})
	default:
		v.fail("unknown app", "app", string(c.App))
	}
}

func (v *visitor) VisitVolumeUp(command.VolumeUp)     { v.spawn("wpctl", "set-volume", defaultSink, "5%+") }
func (v *visitor) VisitVolumeDown(command.VolumeDown) { v.spawn("wpctl", "set-volume", defaultSink, "5%-") }
func (v *visitor) VisitVolumeMax(command.VolumeMax)   { v.spawn("wpctl", "set-volume", defaultSink, "100%") }
func (v *visitor) VisitVolumeMute(command.VolumeMute) { v.toggleMute() }

func (v *visitor) VisitBrightnessUp(command.BrightnessUp)     { v.spawn("brightnessctl", "set", "10%+") }
func (v *visitor) VisitBrightnessDown(command.BrightnessDown) { v.spawn("brightnessctl", "set", "10%-") }
func (v *visitor) VisitBrightnessMax(command.BrightnessMax)   { v.spawn("brightnessctl", "set", "100%") }
func (v *visitor) VisitBrightnessMin(command.BrightnessMin)   { v.spawn("brightnessctl", "set", "5%") }

func (v *visitor) VisitAudioPause(command.AudioPause) { v.spawn("playerctl", "play-pause") }
func (v *visitor) VisitAudioNext(command.AudioNext)   { v.spawn("playerctl", "next") }

// The first previous restarts the current track.
func (v *visitor) VisitAudioPrevious(command.AudioPrevious) {
	v.spawn("playerctl", "previous")
	v.spawn("playerctl", "previous")
}

func (v *visitor) VisitSystemToggle(c command.SystemToggle) {
	switch c.Toggle {
	case command.ToggleWifi:
		v.toggleWifi()
	case command.ToggleBluetooth:
		v.toggleBluetooth()
	case command.ToggleNightLight:
		v.spawnFirst(v.d.programs.NightLight)
	case command.ToggleDoNotDisturb:
		v.spawnFirst(v.d.programs.DoNotDisturb)
	case command.ToggleVolume:
		v.toggleMute()
	default:
		v.fail("unknown toggle", "toggle", string(c.Toggle))
	}
}

func (v *visitor) VisitPoweroff(command.Poweroff) {
	v.spawn("poweroff")
	v.result = ResultQuit
}

func (v *visitor) VisitReboot(command.Reboot) {
	v.spawn("reboot")
	v.result = ResultQuit
}

func (v *visitor) VisitSleep(command.Sleep)           { v.spawn("systemctl", "suspend") }
func (v *visitor) VisitScreenshot(command.Screenshot) { v.spawnFirst(v.d.programs.Screenshot) }

func (v *visitor) VisitFindInInternet(c command.FindInInternet) {
	v.spawn("xdg-open", searchURL(v.d.programs.SearchURL, c.Query))
}

func (v *visitor) VisitEndConversation(command.EndConversation) { v.result = ResultEndConversation }
func (v *visitor) VisitQuit(command.Quit)                       { v.result = ResultQuit }

func (v *visitor) VisitUnknown(c command.Unknown) {
	v.d.logger.Info("unrecognized command", "text", c.Text)
}

func (v *visitor) toggleMute() {
	v.spawn("wpctl", "set-mute", defaultSink, "toggle")
}

// toggleWifi reads `nmcli radio wifi` (enabled|disabled) and requests the opposite.
func (v *visitor) toggleWifi() {
	state, err := v.d.runner.Output(v.ctx, "nmcli", "radio", "wifi")
	if err != nil {
		v.fail("query wifi state failed", "error", err.Error())
		return
	}
	next := "on"
	if strings.EqualFold(strings.TrimSpace(state), "enabled") {
		next = "off"
	}
	v.spawn("nmcli", "radio", "wifi", next)
}

// toggleBluetooth reads the Powered line of `bluetoothctl show` and requests the opposite.
func (v *visitor) toggleBluetooth() {
	out, err := v.d.runner.Output(v.ctx, "bluetoothctl", "show")
	if err != nil {
		v.fail("query bluetooth state failed", "error", err.Error())
		return
	}
	next := "on"
	if bluetoothPowered(out) {
		next = "off"
	}
	v.spawn("bluetoothctl", "power", next)
}

func bluetoothPowered(show string) bool {
	for _, line := range strings.Split(show, "\n") {
		value, ok := strings.CutPrefix(strings.TrimSpace(line), "Powered:")
		if ok {
			return strings.EqualFold(strings.TrimSpace(value), "yes")
		}
	}
	return false
}
