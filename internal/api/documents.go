package api

import "github.com/banshee-data/arctic.bridge/internal/wled"

// DeviceInfo is the part of the info document that comes from
// configuration. Everything else is a fixed ESP32 identity.
type DeviceInfo struct {
	Name     string
	UDPPort  int
	LEDCount int
}

// Info mirrors the subset of WLED's /json/info that discovery clients read.
type Info struct {
	Ver      string   `json:"ver"`
	VID      int      `json:"vid"`
	CN       string   `json:"cn"`
	Release  string   `json:"release"`
	Repo     string   `json:"repo"`
	DeviceID string   `json:"deviceId"`
	Leds     LedsInfo `json:"leds"`
	Name     string   `json:"name"`
	UDPPort  int      `json:"udpport"`
	Live     bool     `json:"live"`
	WiFi     WiFiInfo `json:"wifi"`
	Arch     string   `json:"arch"`
	Core     string   `json:"core"`
	Brand    string   `json:"brand"`
	Product  string   `json:"product"`
	MAC      string   `json:"mac"`
	IP       string   `json:"ip"`
}

type LedsInfo struct {
	Count  int   `json:"count"`
	Pwr    int   `json:"pwr"`
	FPS    int   `json:"fps"`
	MaxPwr int   `json:"maxpwr"`
	MaxSeg int   `json:"maxseg"`
	SegLC  []int `json:"seglc"`
	LC     int   `json:"lc"`
	RGBW   bool  `json:"rgbw"`
	WV     int   `json:"wv"`
	CCT    int   `json:"cct"`
}

type WiFiInfo struct {
	BSSID   string `json:"bssid"`
	RSSI    int    `json:"rssi"`
	Signal  int    `json:"signal"`
	Channel int    `json:"channel"`
	AP      bool   `json:"ap"`
}

// State mirrors WLED's /json/state. The bridge is always on at full
// brightness and only receives realtime data.
type State struct {
	On   bool     `json:"on"`
	Bri  int      `json:"bri"`
	UDPN UDPNSync `json:"udpn"`
}

type UDPNSync struct {
	Send bool `json:"send"`
	Recv bool `json:"recv"`
}

// NewInfo fills the fixed identity around dev. Zero fields in dev take the
// stock values.
func NewInfo(dev DeviceInfo) Info {
	if dev.Name == "" {
		dev.Name = "Arctic Bridge"
	}
	if dev.UDPPort == 0 {
		dev.UDPPort = wled.DefaultPort
	}
	if dev.LEDCount < 1 {
		dev.LEDCount = 4
	}
	return Info{
		Ver:      "0.15.3",
		VID:      2508020,
		CN:       "ArcticBridge",
		Release:  "ESP32",
		Repo:     "wled/WLED",
		DeviceID: "dd6af53b90e913e31b393da78e3a56e9b19f510f65",
		Leds: LedsInfo{
			Count:  dev.LEDCount,
			Pwr:    100,
			FPS:    60,
			MaxPwr: 9000,
			MaxSeg: 1,
			SegLC:  []int{1, 1, 1, 1, 1},
			LC:     1,
		},
		Name:    dev.Name,
		UDPPort: dev.UDPPort,
		Live:    true,
		WiFi: WiFiInfo{
			BSSID:   "72:42:7F:4F:46:4D",
			RSSI:    -50,
			Signal:  100,
			Channel: 9,
		},
		Arch:    "esp32",
		Core:    "v3.3.6",
		Brand:   "WLED",
		Product: "FOSS",
		MAC:     "76ee4d009999",
		IP:      "127.0.0.1",
	}
}

// DefaultState is the only state the bridge reports.
func DefaultState() State {
	return State{On: true, Bri: 255, UDPN: UDPNSync{Recv: true}}
}
