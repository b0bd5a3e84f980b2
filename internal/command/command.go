// Package command defines the closed set of voice commands and the classifier that produces them.
package command

import "fmt"

// App identifies an application the assistant can launch.
type App string

const (
	AppFirefox  App = "firefox"
	AppTerminal App = "terminal"
	AppDolphin  App = "dolphin"
	AppObsidian App = "obsidian"
	AppSteam    App = "steam"
	AppTelegram App = "telegram"
)

// Apps lists every App in classification order.
var Apps = []App{AppFirefox, AppTerminal, AppObsidian, AppSteam, AppDolphin, AppTelegram}

// Toggle identifies a system setting that can be flipped.
type Toggle string

const (
	ToggleWifi         Toggle = "wifi"
	ToggleBluetooth    Toggle = "bluetooth"
	ToggleNightLight   Toggle = "night_light"
	ToggleDoNotDisturb Toggle = "do_not_disturb"
	ToggleVolume       Toggle = "volume"
)

// Toggles lists every Toggle in classification order.
var Toggles = []Toggle{ToggleWifi, ToggleBluetooth, ToggleNightLight, ToggleDoNotDisturb, ToggleVolume}

// Command is one classified intent. The set of implementations is closed to this package.
type Command interface {
	// Name is a stable identifier used in logs and metrics.
	Name() string
	// Accept calls the Visitor method for the concrete variant.
	Accept(Visitor)
	sealed()
}

// Visitor has one method per Command variant. Adding a variant adds a method here, so every
// implementation has to handle it before the build succeeds.
type Visitor interface {
	VisitOpenApp(OpenApp)
	VisitVolumeUp(VolumeUp)
	VisitVolumeDown(VolumeDown)
	VisitVolumeMute(VolumeMute)
	VisitVolumeMax(VolumeMax)
	VisitBrightnessUp(BrightnessUp)
	VisitBrightnessDown(BrightnessDown)
	VisitBrightnessMin(BrightnessMin)
	VisitBrightnessMax(BrightnessMax)
	VisitAudioPause(AudioPause)
	VisitAudioNext(AudioNext)
	VisitAudioPrevious(AudioPrevious)
	VisitSystemToggle(SystemToggle)
	VisitPoweroff(Poweroff)
	VisitReboot(Reboot)
	VisitSleep(Sleep)
	VisitScreenshot(Screenshot)
	VisitFindInInternet(FindInInternet)
	VisitEndConversation(EndConversation)
	VisitQuit(Quit)
	VisitUnknown(Unknown)
}

type (
	OpenApp         struct{ App App }
	VolumeUp        struct{}
	VolumeDown      struct{}
	VolumeMute      struct{}
	VolumeMax       struct{}
	BrightnessUp    struct{}
	BrightnessDown  struct{}
	BrightnessMin   struct{}
	BrightnessMax   struct{}
	AudioPause      struct{}
	AudioNext       struct{}
	AudioPrevious   struct{}
	SystemToggle    struct{ Toggle Toggle }
	Poweroff        struct{}
	Reboot          struct{}
	Sleep           struct{}
	Screenshot      struct{}
	FindInInternet  struct{ Query string }
	EndConversation struct{}
	Quit            struct{}
	Unknown         struct{ Text string }
)

func (OpenApp) sealed()         {}
func (VolumeUp) sealed()        {}
func (VolumeDown) sealed()      {}
func (VolumeMute) sealed()      {}
func (VolumeMax) sealed()       {}
func (BrightnessUp) sealed()    {}
func (BrightnessDown) sealed()  {}
func (BrightnessMin) sealed()   {}
func (BrightnessMax) sealed()   {}
func (AudioPause) sealed()      {}
func (AudioNext) sealed()       {}
func (AudioPrevious) sealed()   {}
func (SystemToggle) sealed()    {}
func (Poweroff) sealed()        {}
func (Reboot) sealed()          {}
func (Sleep) sealed()           {}
func (Screenshot) sealed()      {}
func (FindInInternet) sealed()  {}
func (EndConversation) sealed() {}
func (Quit) sealed()            {}
func (Unknown) sealed()         {}

func (c OpenApp) Accept(v Visitor)         { v.VisitOpenApp(c) }
func (c VolumeUp) Accept(v Visitor)        { v.VisitVolumeUp(c) }
func (c VolumeDown) Accept(v Visitor)      { v.VisitVolumeDown(c) }
func (c VolumeMute) Accept(v Visitor)      { v.VisitVolumeMute(c) }
func (c VolumeMax) Accept(v Visitor)       { v.VisitVolumeMax(c) }
func (c BrightnessUp) Accept(v Visitor)    { v.VisitBrightnessUp(c) }
func (c BrightnessDown) Accept(v Visitor)  { v.VisitBrightnessDown(c) }
func (c BrightnessMin) Accept(v Visitor)   { v.VisitBrightnessMin(c) }
func (c BrightnessMax) Accept(v Visitor)   { v.VisitBrightnessMax(c) }
func (c AudioPause) Accept(v Visitor)      { v.VisitAudioPause(c) }
func (c AudioNext) Accept(v Visitor)       { v.VisitAudioNext(c) }
func (c AudioPrevious) Accept(v Visitor)   { v.VisitAudioPrevious(c) }
func (c SystemToggle) Accept(v Visitor)    { v.VisitSystemToggle(c) }
func (c Poweroff) Accept(v Visitor)        { v.VisitPoweroff(c) }
func (c Reboot) Accept(v Visitor)          { v.VisitReboot(c) }
func (c Sleep) Accept(v Visitor)           { v.VisitSleep(c) }
func (c Screenshot) Accept(v Visitor)      { v.VisitScreenshot(c) }
func (c FindInInternet) Accept(v Visitor)  { v.VisitFindInInternet(c) }
func (c EndConversation) Accept(v Visitor) { v.VisitEndConversation(c) }
func (c Quit) Accept(v Visitor)            { v.VisitQuit(c) }
func (c Unknown) Accept(v Visitor)         { v.VisitUnknown(c) }

func (OpenApp) Name() string         { return "open_app" }
func (VolumeUp) Name() string        { return "volume_up" }
func (VolumeDown) Name() string      { return "volume_down" }
func (VolumeMute) Name() string      { return "volume_mute" }
func (VolumeMax) Name() string       { return "volume_max" }
func (BrightnessUp) Name() string    { return "brightness_up" }
func (BrightnessDown) Name() string  { return "brightness_down" }
func (BrightnessMin) Name() string   { return "brightness_min" }
func (BrightnessMax) Name() string   { return "brightness_max" }
func (AudioPause) Name() string      { return "audio_pause" }
func (AudioNext) Name() string       { return "audio_next" }
func (AudioPrevious) Name() string   { return "audio_previous" }
func (SystemToggle) Name() string    { return "system_toggle" }
func (Poweroff) Name() string        { return "poweroff" }
func (Reboot) Name() string          { return "reboot" }
func (Sleep) Name() string           { return "sleep" }
func (Screenshot) Name() string      { return "screenshot" }
func (FindInInternet) Name() string  { return "find_in_internet" }
func (EndConversation) Name() string { return "end_conversation" }
func (Quit) Name() string            { return "quit" }
func (Unknown) Name() string         { return "unknown" }

// Describe renders a command with its payload for logs and notices.
func Describe(c Command) string {
	switch v := c.(type) {
	case OpenApp:
		return fmt.Sprintf("%s(%s)", v.Name(), v.App)
	case SystemToggle:
		return fmt.Sprintf("%s(%s)", v.Name(), v.Toggle)
	case FindInInternet:
		return fmt.Sprintf("%s(%q)", v.Name(), v.Query)
	case Unknown:
		return fmt.Sprintf("%s(%q)", v.Name(), v.Text)
	case nil:
		return "<nil>"
	default:
		return c.Name()
	}
}
