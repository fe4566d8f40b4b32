package chat

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
)

const (
	commandSetProb = "setprob"
	commandStats   = "stats"
)

type command struct {
	name string
	args []string
}

func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// parseCommand splits "/name[@bot] args..." and checks the arguments of the
// known commands.
func parseCommand(text string) (command, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return command{}, fmt.Errorf("%w: not a command", apperrors.ErrInvalidCommand)
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	cmd := command{name: strings.ToLower(name), args: fields[1:]}

	switch cmd.name {
	case commandSetProb:
		if len(cmd.args) != 1 {
			return cmd, fmt.Errorf("%w: usage: /setprob <0..1|reset>", apperrors.ErrInvalidCommand)
		}
	case commandStats:
		if len(cmd.args) != 0 {
			return cmd, fmt.Errorf("%w: /stats takes no arguments", apperrors.ErrInvalidCommand)
		}
	default:
		return cmd, fmt.Errorf("%w: unknown command /%s", apperrors.ErrInvalidCommand, cmd.name)
	}
	return cmd, nil
}

// probabilityArg parses a /setprob argument. reset reports whether the chat
// override should be dropped instead.
func probabilityArg(arg string) (p float64, reset bool, err error) {
	if strings.EqualFold(arg, "reset") {
		return 0, true, nil
	}
	p, err = strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q is not a probability", apperrors.ErrInvalidCommand, arg)
	}
	return p, false, nil
}
