package dispatch

import (
	"bytes"
	"encoding/json"

	"github.com/jocoteles/ESP32WebSocketControl/internal/domain"
)

// Supported action verbs.
const (
	actionGet           = "get"
	actionSet           = "set"
	actionStartStream   = "start_stream"
	actionStopStream    = "stop_stream"
	actionGetVarsConfig = "get_all_vars_config"
)

// Response status values.
const (
	statusOK            = "ok"
	statusInfo          = "info"
	statusError         = "error"
	statusVarConfigList = "var_config_list"
)

// request is one inbound control message. Value stays raw so numbers keep
// full precision until the target variable's type is known.
type request struct {
	Action   *string         `json:"action"`
	Variable *string         `json:"variable"`
	Value    json.RawMessage `json:"value"`
}

// parseRequest decodes a text frame. Numbers decode as json.Number so the
// registry can tell integral from fractional values.
func parseRequest(data []byte) (*request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var req request
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// decodeValue unwraps the raw value into json.Number, string, bool, or
// nil for the registry's coercion rules. Arrays and objects come back as
// their decoded forms and are rejected by the registry as invalid types.
func (r *request) decodeValue() (any, error) {
	dec := json.NewDecoder(bytes.NewReader(r.Value))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// statusResponse is the generic ok/info/error reply.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// valueResponse echoes a variable's current value to the requester.
type valueResponse struct {
	Variable string       `json:"variable"`
	Value    domain.Value `json:"value"`
}

// configResponse enumerates every configured variable.
type configResponse struct {
	Status    string        `json:"status"`
	Variables []domain.Info `json:"variables"`
}
