// Package dispatch parses inbound control messages and routes them to the
// variable registry and the stream controller, emitting one response per
// request.
package dispatch

import (
	"encoding/json"
	"errors"

	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
	"github.com/jocoteles/ESP32WebSocketControl/internal/registry"
	"github.com/jocoteles/ESP32WebSocketControl/internal/stream"
)

// Failure reasons used as log fields and never sent on the wire.
const (
	reasonMalformed    = "malformed_message"
	reasonMissingField = "missing_field"
	reasonNotFound     = "variable_not_found"
	reasonInvalidType  = "invalid_type"
	reasonOutOfRange   = "out_of_range"
	reasonUnavailable  = "feature_unavailable"
	reasonUnknown      = "unknown_action"
)

// Option customizes dispatcher behavior.
type Option func(*Dispatcher)

// WithSetBroadcast makes every successful set also broadcast the updated
// value to all peers, not just the requester. Off by default.
func WithSetBroadcast(enabled bool) Option {
	return func(d *Dispatcher) { d.broadcastSets = enabled }
}

// Dispatcher implements ports.EventHandler. The transport invokes it from
// a single event loop, one complete text frame at a time; every error is
// answered with a structured response and never closes the connection.
type Dispatcher struct {
	reg           *registry.Registry
	ctrl          *stream.Controller
	transport     ports.Transport
	obs           ports.Observability
	broadcastSets bool
}

// New wires a dispatcher to its collaborators.
func New(reg *registry.Registry, ctrl *stream.Controller, transport ports.Transport,
	obs ports.Observability, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reg:       reg,
		ctrl:      ctrl,
		transport: transport,
		obs:       obs,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleConnect records the new peer.
func (d *Dispatcher) HandleConnect(peer ports.PeerID) {
	d.obs.LogInfo("peer_connected", ports.Field{Key: "peer", Value: peer})
}

// HandleDisconnect feeds the post-disconnect peer count to the stream
// controller, which auto-stops streaming when the last peer leaves.
func (d *Dispatcher) HandleDisconnect(peer ports.PeerID, remaining int) {
	d.obs.LogInfo("peer_disconnected",
		ports.Field{Key: "peer", Value: peer},
		ports.Field{Key: "remaining", Value: remaining})
	d.ctrl.PeerCountChanged(remaining)
}

// HandleBinary accepts and ignores inbound binary frames; the binary
// direction is device-to-peer only.
func (d *Dispatcher) HandleBinary(peer ports.PeerID, data []byte) {
	d.obs.IncCounter("wsctl_binary_frames_ignored_total", 1)
	d.obs.LogInfo("binary_frame_ignored",
		ports.Field{Key: "peer", Value: peer},
		ports.Field{Key: "bytes", Value: len(data)})
}

// HandleText processes one complete inbound control message.
func (d *Dispatcher) HandleText(peer ports.PeerID, data []byte) {
	d.obs.IncCounter("wsctl_messages_received_total", 1)

	req, err := parseRequest(data)
	if err != nil {
		// Parse failures always log: they indicate a protocol mismatch.
		d.obs.LogWarn("json_parse_error",
			ports.Field{Key: "peer", Value: peer},
			ports.Field{Key: "error", Value: err.Error()})
		d.fail(peer, reasonMalformed, "Invalid JSON format received.")
		return
	}
	if req.Action == nil {
		d.fail(peer, reasonMissingField, "JSON missing 'action' field.")
		return
	}

	d.obs.IncCounter("wsctl_commands_total", 1)

	switch *req.Action {
	case actionGet, actionSet:
		d.handleVariable(peer, req)
	case actionStartStream:
		d.handleStreamToggle(peer, d.ctrl.Start, "Stream started.", "Stream was already active.")
	case actionStopStream:
		d.handleStreamToggle(peer, d.ctrl.Stop, "Stream stopped.", "Stream was already stopped.")
	case actionGetVarsConfig:
		d.handleVarsConfig(peer)
	default:
		d.fail(peer, reasonUnknown, "Unknown action")
	}
}

func (d *Dispatcher) handleVariable(peer ports.PeerID, req *request) {
	if req.Variable == nil {
		d.fail(peer, reasonMissingField, "Missing 'variable' field for get/set action.")
		return
	}
	idx, ok := d.reg.Find(*req.Variable)
	if !ok {
		d.fail(peer, reasonNotFound, "Variable name not found.")
		return
	}

	if *req.Action == actionGet {
		d.sendValue(peer, idx)
		return
	}

	if len(req.Value) == 0 {
		d.fail(peer, reasonMissingField, "Missing or null 'value' field for set action.")
		return
	}
	candidate, err := req.decodeValue()
	if err != nil || candidate == nil {
		d.fail(peer, reasonMissingField, "Missing or null 'value' field for set action.")
		return
	}

	if err := d.reg.Set(idx, candidate); err != nil {
		reason := reasonInvalidType
		if errors.Is(err, registry.ErrOutOfRange) {
			reason = reasonOutOfRange
		}
		d.obs.LogWarn("set_rejected",
			ports.Field{Key: "variable", Value: *req.Variable},
			ports.Field{Key: "reason", Value: reason})
		d.fail(peer, reason, "Failed to set value (invalid type or out of limits).")
		return
	}

	// Echo the updated value to the requester, and to everyone when the
	// post-set broadcast is enabled.
	d.sendValue(peer, idx)
	if d.broadcastSets {
		if raw, err := json.Marshal(valueResponse{Variable: d.reg.Name(idx), Value: d.reg.Get(idx)}); err == nil {
			d.transport.Broadcast(raw)
		}
	}
}

func (d *Dispatcher) handleStreamToggle(peer ports.PeerID, toggle func() (bool, error), okMsg, infoMsg string) {
	changed, err := toggle()
	switch {
	case errors.Is(err, stream.ErrNoHooks):
		d.fail(peer, reasonUnavailable, "Streaming feature not implemented/configured.")
	case err != nil:
		d.fail(peer, reasonUnavailable, err.Error())
	case changed:
		d.sendStatus(peer, statusOK, okMsg)
	default:
		d.sendStatus(peer, statusInfo, infoMsg)
	}
}

func (d *Dispatcher) handleVarsConfig(peer ports.PeerID) {
	if d.reg.Len() == 0 {
		d.fail(peer, reasonUnavailable, "No variables configured on server.")
		return
	}
	resp := configResponse{
		Status:    statusVarConfigList,
		Variables: d.reg.DescribeAll(),
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		d.obs.LogError("encode_var_config_failed", err)
		return
	}
	d.transport.Send(peer, raw)
}

func (d *Dispatcher) sendValue(peer ports.PeerID, idx int) {
	raw, err := json.Marshal(valueResponse{Variable: d.reg.Name(idx), Value: d.reg.Get(idx)})
	if err != nil {
		d.obs.LogError("encode_value_failed", err)
		return
	}
	d.transport.Send(peer, raw)
}

func (d *Dispatcher) sendStatus(peer ports.PeerID, status, message string) {
	raw, err := json.Marshal(statusResponse{Status: status, Message: message})
	if err != nil {
		d.obs.LogError("encode_status_failed", err)
		return
	}
	d.transport.Send(peer, raw)
}

func (d *Dispatcher) fail(peer ports.PeerID, reason, message string) {
	d.obs.IncCounter("wsctl_command_errors_total", 1)
	d.obs.LogInfo("command_rejected",
		ports.Field{Key: "peer", Value: peer},
		ports.Field{Key: "reason", Value: reason})
	d.sendStatus(peer, statusError, message)
}
