package ipc

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/manager"
	"github.com/bnema/displaytoggle/internal/state"
)

// MessageType identifies an IPC message. Every message is a protobuf
// Struct whose "type" field holds one of these values.
type MessageType string

const (
	MessageTypeList     MessageType = "list"
	MessageTypeSet      MessageType = "set"
	MessageTypeRestore  MessageType = "restore"
	MessageTypePrefs    MessageType = "prefs"
	MessageTypeStatus   MessageType = "status"
	MessageTypeState    MessageType = "state"
	MessageTypeStatusOK MessageType = "status_response"
	MessageTypeError    MessageType = "error"
)

// Error codes carried by error responses so clients can match sentinels
const (
	codeLastDisplayOn  = "last_display_on"
	codeUnknownDisplay = "unknown_display"
	codeConfigFailed   = "configuration_failed"
	codeQueryFailed    = "query_failed"
	codeLoginItem      = "login_item_unsupported"
	codeInternal       = "internal"
)

// Message is one framed IPC message
type Message = structpb.Struct

// SetCommand asks the daemon to power a display on or off
type SetCommand struct {
	ID      display.ID
	Enabled bool
}

// PrefsCommand updates the preferences that are set
type PrefsCommand struct {
	AutoDisableBuiltin *bool
	LaunchAtLogin      *bool
}

// Status describes the running daemon
type Status struct {
	Backend   string      `json:"backend" yaml:"backend"`
	LastError string      `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	State     state.State `json:"state" yaml:"state"`
}

// RemoteError is an error reported by the daemon
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Is matches the sentinel errors of the display and manager packages
func (e *RemoteError) Is(target error) bool {
	switch e.Code {
	case codeLastDisplayOn:
		return target == display.ErrLastDisplayOn
	case codeUnknownDisplay:
		return target == display.ErrUnknownDisplay
	case codeConfigFailed:
		return target == display.ErrConfigurationFailed
	case codeQueryFailed:
		return target == display.ErrDisplayQueryFailed
	case codeLoginItem:
		return target == manager.ErrLoginItemUnsupported
	}
	return false
}

func newMessage(t MessageType, fields map[string]any) (*Message, error) {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["type"] = string(t)

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s message: %w", t, err)
	}
	return msg, nil
}

// TypeOf returns the type of a message
func TypeOf(msg *Message) MessageType {
	return MessageType(msg.GetFields()["type"].GetStringValue())
}

func expectType(msg *Message, t MessageType) error {
	if got := TypeOf(msg); got != t {
		return fmt.Errorf("message is not a %s message (got %q)", t, got)
	}
	return nil
}

// NewListMessage creates a display list query
func NewListMessage() (*Message, error) {
	return newMessage(MessageTypeList, nil)
}

// NewSetMessage creates a display power command
func NewSetMessage(id display.ID, enabled bool) (*Message, error) {
	return newMessage(MessageTypeSet, map[string]any{
		"id":      float64(id),
		"enabled": enabled,
	})
}

// NewRestoreMessage creates an "all displays on" command
func NewRestoreMessage() (*Message, error) {
	return newMessage(MessageTypeRestore, nil)
}

// NewPrefsMessage creates a preference update. Nil fields are left as is;
// with both nil it only queries.
func NewPrefsMessage(cmd PrefsCommand) (*Message, error) {
	fields := make(map[string]any)
	if cmd.AutoDisableBuiltin != nil {
		fields["auto_disable_builtin"] = *cmd.AutoDisableBuiltin
	}
	if cmd.LaunchAtLogin != nil {
		fields["launch_at_login"] = *cmd.LaunchAtLogin
	}
	return newMessage(MessageTypePrefs, fields)
}

// NewStatusMessage creates a status query
func NewStatusMessage() (*Message, error) {
	return newMessage(MessageTypeStatus, nil)
}

// NewStateMessage creates a state response
func NewStateMessage(s state.State) (*Message, error) {
	return newMessage(MessageTypeState, stateFields(s))
}

// NewStatusResponseMessage creates a status response
func NewStatusResponseMessage(status Status) (*Message, error) {
	fields := stateFields(status.State)
	fields["backend"] = status.Backend
	fields["last_error"] = status.LastError
	return newMessage(MessageTypeStatusOK, fields)
}

// NewErrorMessage creates an error response, keeping the sentinel of err
func NewErrorMessage(err error) (*Message, error) {
	return newMessage(MessageTypeError, map[string]any{
		"code":  errorCode(err),
		"error": err.Error(),
	})
}

// GetSetCommand extracts a display power command
func GetSetCommand(msg *Message) (SetCommand, error) {
	if err := expectType(msg, MessageTypeSet); err != nil {
		return SetCommand{}, err
	}

	fields := msg.GetFields()
	idValue, ok := fields["id"]
	if !ok {
		return SetCommand{}, fmt.Errorf("set command has no display id")
	}
	enabledValue, ok := fields["enabled"]
	if !ok {
		return SetCommand{}, fmt.Errorf("set command has no enabled flag")
	}

	id := idValue.GetNumberValue()
	if id < 0 || id > float64(^uint32(0)) || id != float64(uint32(id)) {
		return SetCommand{}, fmt.Errorf("invalid display id %v", id)
	}

	return SetCommand{ID: display.ID(id), Enabled: enabledValue.GetBoolValue()}, nil
}

// GetPrefsCommand extracts a preference update
func GetPrefsCommand(msg *Message) (PrefsCommand, error) {
	if err := expectType(msg, MessageTypePrefs); err != nil {
		return PrefsCommand{}, err
	}

	var cmd PrefsCommand
	fields := msg.GetFields()
	if v, ok := fields["auto_disable_builtin"]; ok {
		b := v.GetBoolValue()
		cmd.AutoDisableBuiltin = &b
	}
	if v, ok := fields["launch_at_login"]; ok {
		b := v.GetBoolValue()
		cmd.LaunchAtLogin = &b
	}
	return cmd, nil
}

// GetState extracts the state of a state response
func GetState(msg *Message) (state.State, error) {
	if err := expectType(msg, MessageTypeState); err != nil {
		return state.State{}, err
	}
	return parseState(msg), nil
}

// GetStatusResponse extracts a status response
func GetStatusResponse(msg *Message) (Status, error) {
	if err := expectType(msg, MessageTypeStatusOK); err != nil {
		return Status{}, err
	}

	fields := msg.GetFields()
	return Status{
		Backend:   fields["backend"].GetStringValue(),
		LastError: fields["last_error"].GetStringValue(),
		State:     parseState(msg),
	}, nil
}

// GetErrorResponse extracts the error carried by an error response
func GetErrorResponse(msg *Message) (*RemoteError, error) {
	if err := expectType(msg, MessageTypeError); err != nil {
		return nil, err
	}

	fields := msg.GetFields()
	return &RemoteError{
		Code:    fields["code"].GetStringValue(),
		Message: fields["error"].GetStringValue(),
	}, nil
}

func stateFields(s state.State) map[string]any {
	displays := make([]any, 0, len(s.Displays))
	for _, d := range s.Displays {
		displays = append(displays, map[string]any{
			"id":       float64(d.ID),
			"name":     d.Name,
			"on":       d.On,
			"built_in": d.BuiltIn,
		})
	}

	return map[string]any{
		"displays":             displays,
		"auto_disable_builtin": s.AutoDisableBuiltin,
		"launch_at_login":      s.LaunchAtLogin,
	}
}

func parseState(msg *Message) state.State {
	fields := msg.GetFields()

	var s state.State
	for _, v := range fields["displays"].GetListValue().GetValues() {
		d := v.GetStructValue().GetFields()
		s.Displays = append(s.Displays, display.Display{
			ID:      display.ID(d["id"].GetNumberValue()),
			Name:    d["name"].GetStringValue(),
			On:      d["on"].GetBoolValue(),
			BuiltIn: d["built_in"].GetBoolValue(),
		})
	}
	s.AutoDisableBuiltin = fields["auto_disable_builtin"].GetBoolValue()
	s.LaunchAtLogin = fields["launch_at_login"].GetBoolValue()
	return s
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, display.ErrLastDisplayOn):
		return codeLastDisplayOn
	case errors.Is(err, display.ErrUnknownDisplay):
		return codeUnknownDisplay
	case errors.Is(err, display.ErrConfigurationFailed):
		return codeConfigFailed
	case errors.Is(err, display.ErrDisplayQueryFailed):
		return codeQueryFailed
	case errors.Is(err, manager.ErrLoginItemUnsupported):
		return codeLoginItem
	default:
		return codeInternal
	}
}
