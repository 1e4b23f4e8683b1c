package proxy

import (
	"encoding/json"
	"errors"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/resolve"
)

// Wire names of the control commands.
const (
	CmdGetManifest = "getManifest"
	CmdSetManifest = "setManifest"
	CmdFlushCache  = "flushCache"
)

// Command is a control request. The set of commands is closed: only the
// types in this package implement it.
type Command interface {
	// Name returns the wire name of the command.
	Name() string
	isCommand()
}

// GetManifest returns the stored manifest, or null when none is stored.
type GetManifest struct{}

// SetManifest replaces the stored manifest.
type SetManifest struct {
	Manifest resolve.Manifest
}

// FlushCache discards every cached response.
type FlushCache struct{}

// UnknownCommand is any command name the engine does not implement. It
// always produces an error reply.
type UnknownCommand struct {
	Command string
}

func (GetManifest) Name() string      { return CmdGetManifest }
func (SetManifest) Name() string      { return CmdSetManifest }
func (FlushCache) Name() string       { return CmdFlushCache }
func (c UnknownCommand) Name() string { return c.Command }

func (GetManifest) isCommand()    {}
func (SetManifest) isCommand()    {}
func (FlushCache) isCommand()     {}
func (UnknownCommand) isCommand() {}

// Message is the wire form of a command: {"command": "...", "data": ...}.
type Message struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DecodeCommand parses a wire message. Unrecognized command names decode
// to [UnknownCommand]; only malformed JSON or invalid command data is an
// error.
func DecodeCommand(data []byte) (Command, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidInput, err, "decode command")
	}
	return msg.Decode()
}

// Decode converts m to a [Command].
func (m Message) Decode() (Command, error) {
	switch m.Command {
	case CmdGetManifest:
		return GetManifest{}, nil
	case CmdFlushCache:
		return FlushCache{}, nil
	case CmdSetManifest:
		if len(m.Data) == 0 {
			return nil, wcmerrors.New(wcmerrors.ErrCodeInvalidManifest, "setManifest requires data")
		}
		mf, err := resolve.ParseManifest(m.Data)
		if err != nil {
			return nil, err
		}
		return SetManifest{Manifest: mf}, nil
	default:
		return UnknownCommand{Command: m.Command}, nil
	}
}

// ErrUnknownCommand is the cause of replies to [UnknownCommand].
var ErrUnknownCommand = errors.New("unknown command")

// Reply is the result of a [Command]. Exactly one of Result and Err is
// meaningful.
type Reply struct {
	// ID correlates the reply with its call in logs.
	ID     string
	Result any
	Err    error
}

// MarshalJSON encodes the raw result, or {"error": "..."} on failure.
func (r Reply) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{wcmerrors.UserMessage(r.Err)})
	}
	return json.Marshal(r.Result)
}

func unknownReply(c UnknownCommand) error {
	return wcmerrors.Wrap(wcmerrors.ErrCodeUnknownCommand, ErrUnknownCommand, "command %q", c.Command)
}
