package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	State         string        `json:"state"`
	Fault         string        `json:"fault,omitempty"`
	Phase         string        `json:"phase"`
	Progress      ProgressJSON  `json:"progress"`
	Actuators     ActuatorsJSON `json:"actuators"`
	Transitions   int           `json:"transitions"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// ProgressJSON reports where in the program the sequencer is.
type ProgressJSON struct {
	PhaseIndex int    `json:"phase_index"`
	PhaseCount int    `json:"phase_count"`
	Block      string `json:"block,omitempty"`
	Run        int    `json:"run,omitempty"`
	Of         int    `json:"of,omitempty"`
}

// ActuatorsJSON is the JSON representation of actuator states.
type ActuatorsJSON struct {
	Power     string `json:"power"`
	Direction string `json:"direction"`
	Drain     string `json:"drain"`
	Inlet     string `json:"inlet"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip          string `json:"chip"`
	FillTimeoutMs int64  `json:"fill_timeout_ms"`
	PollMs        int64  `json:"poll_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	StatsdAddr    string `json:"statsd_addr,omitempty"`
}

// OnOff renders a binary state.
func OnOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	phase := string(snap.Phase)
	if phase == "" {
		phase = "none"
	}

	return StatusInner{
		State: string(snap.State),
		Fault: snap.Fault,
		Phase: phase,
		Progress: ProgressJSON{
			PhaseIndex: snap.PhaseIndex,
			PhaseCount: snap.PhaseCount,
			Block:      snap.Block,
			Run:        snap.Run,
			Of:         snap.Of,
		},
		Actuators: ActuatorsJSON{
			Power:     OnOff(snap.Actuators.Power),
			Direction: OnOff(snap.Actuators.Direction),
			Drain:     OnOff(snap.Actuators.Drain),
			Inlet:     OnOff(snap.Actuators.Inlet),
		},
		Transitions:   snap.Transitions,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Chip:          snap.Config.Chip,
			FillTimeoutMs: snap.Config.FillTimeoutMs,
			PollMs:        snap.Config.PollMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			StatsdAddr:    snap.Config.StatsdAddr,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
